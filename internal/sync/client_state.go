package sync

import (
	"sync"

	"github.com/annel0/arena-game/internal/protocol"
	"github.com/annel0/arena-game/internal/snapshot"
)

// Phase определяет фазу жизненного цикла клиента в протоколе синхронизации
type Phase int

const (
	PhaseAwaitingSyncAck Phase = iota // Ожидание подтверждения загрузки ресурсов
	PhaseFullBaseline                 // Отправлено первое полное состояние
	PhaseDeltaSteady                  // Установившийся режим дельт
	PhaseForcedFull                   // Запланирован принудительный полный ресинк
	PhaseDisconnected                 // Соединение завершено
)

// String возвращает строковое представление фазы
func (p Phase) String() string {
	switch p {
	case PhaseAwaitingSyncAck:
		return "AWAITING_SYNC_ACK"
	case PhaseFullBaseline:
		return "FULL_BASELINE"
	case PhaseDeltaSteady:
		return "DELTA_STEADY_STATE"
	case PhaseForcedFull:
		return "FORCED_FULL"
	case PhaseDisconnected:
		return "DISCONNECTED"
	default:
		return "UNKNOWN"
	}
}

// Capabilities описывает возможности клиента, заявленные при рукопожатии
type Capabilities struct {
	SupportsDelta       bool `json:"supports_delta"`       // Понимает дельта-сообщения
	SupportsCompression bool `json:"supports_compression"` // Понимает zstd-сжатие
	SupportsBinary      bool `json:"supports_binary"`      // Понимает бинарную сериализацию
}

// ClientState — контекст одного соединения: кеш последнего отправленного
// состояния, обратная таблица классов и фаза жизненного цикла.
// Доступ только из пути обработки этого клиента; мьютекс защищает
// от гонки между тиком рассылки и обработчиком отключения.
type ClientState struct {
	ID   string       // Идентификатор соединения
	Caps Capabilities // Возможности клиента

	mu            sync.Mutex
	phase         Phase
	cache         map[snapshot.Category]map[uint64]snapshot.Attributes
	classes       map[protocol.ClassKey]int32 // Обратная таблица классов
	fullRequested bool                        // Явный запрос полного ресинка
	syncAcked     bool                        // Подтверждена загрузка ресурсов
	lastFullTick  uint64                      // Тик последней полной отправки
	hasFull       bool                        // Было ли хоть одно полное состояние
}

// NewClientState создаёт контекст для нового соединения
func NewClientState(id string, caps Capabilities) *ClientState {
	return &ClientState{
		ID:    id,
		Caps:  caps,
		phase: PhaseAwaitingSyncAck,
	}
}

// Phase возвращает текущую фазу клиента
func (cs *ClientState) Phase() Phase {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.phase
}

// AckSync отмечает, что клиент подтвердил загрузку ресурсов
func (cs *ClientState) AckSync() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.syncAcked = true
}

// SyncAcked возвращает true, если клиент подтвердил загрузку ресурсов
func (cs *ClientState) SyncAcked() bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.syncAcked
}

// RequestFull запрашивает принудительный полный ресинк на следующем тике
// (например, после обнаружения рассинхронизации)
func (cs *ClientState) RequestFull() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.fullRequested = true
	if cs.phase == PhaseDeltaSteady {
		cs.phase = PhaseForcedFull
	}
}

// Disconnect переводит клиента в терминальную фазу и освобождает кеш
func (cs *ClientState) Disconnect() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.phase = PhaseDisconnected
	cs.cache = nil
	cs.classes = nil
}

// Disconnected возвращает true для завершённых соединений
func (cs *ClientState) Disconnected() bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.phase == PhaseDisconnected
}

// NeedsFull решает, требуется ли полная отправка на данном тике:
// нет кеша, истёк интервал полных отправок или есть явный запрос.
func (cs *ClientState) NeedsFull(tick uint64, fullInterval uint64) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.hasFull || cs.cache == nil {
		return true
	}
	if cs.fullRequested {
		return true
	}
	return tick-cs.lastFullTick >= fullInterval
}

// CommitFull фиксирует кеш после успешной полной отправки:
// кеш становится точной копией собранного состояния, обратная таблица
// классов перестраивается с нуля.
func (cs *ClientState) CommitFull(col *snapshot.Collection, reg *protocol.ClassRegistry, tick uint64) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.cache = make(map[snapshot.Category]map[uint64]snapshot.Attributes, len(snapshot.Categories))
	for _, category := range snapshot.Categories {
		entries := make(map[uint64]snapshot.Attributes)
		for _, snap := range col.ByCategory[category] {
			entries[snap.NetworkID] = snap.Attributes.Clone()
		}
		cs.cache[category] = entries
	}

	cs.classes = make(map[protocol.ClassKey]int32, len(reg.Reverse))
	for key, id := range reg.Reverse {
		cs.classes[key] = id
	}

	cs.fullRequested = false
	cs.hasFull = true
	cs.lastFullTick = tick
	if cs.phase == PhaseAwaitingSyncAck || cs.phase == PhaseForcedFull || cs.phase == PhaseFullBaseline {
		cs.phase = PhaseFullBaseline
	}
}

// CommitDelta фиксирует кеш после успешной отправки дельты: обновлённые
// категории приравниваются к текущему снапшоту, пропущенные статические
// остаются как были, удалённые сущности выбрасываются из всех категорий.
func (cs *ClientState) CommitDelta(col *snapshot.Collection, refreshed []snapshot.Category, removedIDs []uint64) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.cache == nil {
		return
	}

	for _, category := range refreshed {
		entries := make(map[uint64]snapshot.Attributes)
		for _, snap := range col.ByCategory[category] {
			entries[snap.NetworkID] = snap.Attributes.Clone()
		}
		cs.cache[category] = entries
	}

	for _, id := range removedIDs {
		for _, entries := range cs.cache {
			delete(entries, id)
		}
	}

	cs.phase = PhaseDeltaSteady
}
