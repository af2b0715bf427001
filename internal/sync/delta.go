package sync

import (
	"reflect"
	"sort"
	"time"

	"github.com/annel0/arena-game/internal/protocol"
	"github.com/annel0/arena-game/internal/snapshot"
)

// Engine вычисляет пополевые дельты между текущим состоянием мира и
// кешем клиента. Дельта либо вычислима целиком против существующего
// кеша, либо отбрасывается в пользу полной отправки — частичных или
// повреждённых дельт не бывает.
type Engine struct {
	staticRefreshEvery uint64 // Статические категории обновляются каждые N тиков
}

// NewEngine создаёт движок дельт
func NewEngine(staticRefreshEvery int) *Engine {
	if staticRefreshEvery <= 0 {
		staticRefreshEvery = 10
	}
	return &Engine{staticRefreshEvery: uint64(staticRefreshEvery)}
}

// DeltaResult — результат вычисления дельты для одного клиента
type DeltaResult struct {
	Payload    map[string]interface{} // Полезная нагрузка дельты (nil при ForceFull)
	ForceFull  bool                   // Дельта невозможна, нужен полный ресинк
	RemovedIDs []uint64               // Сущности, исчезнувшие со времени последней отправки
	Refreshed  []snapshot.Category    // Категории, реально вошедшие в дельту
}

// ComputeDelta строит дельту для клиента. Не мутирует ни кеш, ни
// снапшоты: кеш фиксируется отдельно (CommitDelta) после успешной
// отправки.
func (e *Engine) ComputeDelta(cs *ClientState, col *snapshot.Collection, tick uint64) *DeltaResult {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	// Первый контакт всегда получает полное состояние
	if cs.cache == nil || !cs.hasFull {
		return &DeltaResult{ForceFull: true}
	}

	removedIDs := e.collectRemoved(cs, col)

	payload := map[string]interface{}{
		"timestamp":        time.Now().UnixMilli(),
		"removed_entities": uint64List(removedIDs),
		"game_over":        col.GameOver,
	}
	if col.GameOver {
		payload["winner_id"] = col.WinnerID
	}

	staticTick := tick%e.staticRefreshEvery == 0
	refreshed := make([]snapshot.Category, 0, len(snapshot.Categories))

	for _, category := range snapshot.Categories {
		// Статические категории вне планового тика — сигнальный nil:
		// клиент не трогает свой кеш по этой категории
		if category.IsStatic() && !staticTick {
			payload[string(category)] = nil
			continue
		}

		records, ok := e.diffCategory(cs, category, col.ByCategory[category])
		if !ok {
			// Тип новой сущности неизвестен клиенту — дельта недекодируема,
			// молча переходим на полный ресинк
			return &DeltaResult{ForceFull: true}
		}

		payload[string(category)] = records
		refreshed = append(refreshed, category)
	}

	return &DeltaResult{
		Payload:    payload,
		RemovedIDs: removedIDs,
		Refreshed:  refreshed,
	}
}

// collectRemoved возвращает идентификаторы из кеша, отсутствующие в
// текущем снапшоте. Список единый для всех категорий: сетевые id
// уникальны в пределах всего мира.
func (e *Engine) collectRemoved(cs *ClientState, col *snapshot.Collection) []uint64 {
	current := make(map[uint64]bool)
	for _, category := range snapshot.Categories {
		for _, snap := range col.ByCategory[category] {
			current[snap.NetworkID] = true
		}
	}

	var removed []uint64
	for _, entries := range cs.cache {
		for id := range entries {
			if !current[id] {
				removed = append(removed, id)
			}
		}
	}

	// Для воспроизводимости сообщений при одинаковом состоянии
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	return removed
}

// diffCategory строит записи дельты для одной категории.
// Возвращает ok=false, если встретилась сущность с типом, неизвестным
// обратной таблице классов клиента.
func (e *Engine) diffCategory(cs *ClientState, category snapshot.Category, snaps []*snapshot.EntitySnapshot) ([]interface{}, bool) {
	cached := cs.cache[category]
	records := make([]interface{}, 0)

	for _, snap := range snaps {
		prev, exists := cached[snap.NetworkID]
		if !exists {
			// Новая сущность: полный снапшот, тип заменён на class_id
			classID, known := cs.classes[protocol.ClassKey{Namespace: snap.TypeNamespace, Name: snap.TypeName}]
			if !known {
				return nil, false
			}
			records = append(records, newEntityRecord(snap, classID))
			continue
		}

		// Пополевое сравнение: только изменившиеся и новые атрибуты
		changes := map[string]interface{}{}
		for key, value := range snap.Attributes {
			if old, ok := prev[key]; !ok || !reflect.DeepEqual(old, value) {
				changes[key] = value
			}
		}

		// Сущность без изменений в дельту не попадает
		if len(changes) == 0 {
			continue
		}

		changes["network_id"] = snap.NetworkID
		records = append(records, changes)
	}

	return records, true
}

// newEntityRecord — полный снапшот новой сущности с class_id вместо пары строк
func newEntityRecord(snap *snapshot.EntitySnapshot, classID int32) map[string]interface{} {
	record := make(map[string]interface{}, len(snap.Attributes)+2)
	for key, value := range snap.Attributes {
		record[key] = value
	}
	record["network_id"] = snap.NetworkID
	record["class_id"] = classID
	return record
}

func uint64List(ids []uint64) []interface{} {
	out := make([]interface{}, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}
