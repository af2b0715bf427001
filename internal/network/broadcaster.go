package network

import (
	"context"
	gosync "sync"
	"time"

	"github.com/annel0/arena-game/internal/config"
	"github.com/annel0/arena-game/internal/eventbus"
	"github.com/annel0/arena-game/internal/logging"
	"github.com/annel0/arena-game/internal/protocol"
	"github.com/annel0/arena-game/internal/snapshot"
	"github.com/annel0/arena-game/internal/sync"
)

// Broadcaster — планировщик рассылки состояния: раз в тик решает
// full или delta для каждого клиента, изолирует отказы отдельных
// клиентов и собирает телеметрию трафика.
type Broadcaster struct {
	provider  snapshot.Provider
	collector *snapshot.Collector
	engine    *sync.Engine
	codec     *protocol.Codec
	clients   *ClientManager
	telemetry *Telemetry
	cfg       config.BroadcastConfig
	logger    *logging.Logger

	tick            uint64
	matchEndingSent bool
}

// NewBroadcaster создаёт планировщик рассылки
func NewBroadcaster(provider snapshot.Provider, clients *ClientManager, telemetry *Telemetry, cfg config.BroadcastConfig) (*Broadcaster, error) {
	cfg = cfg.WithDefaults()

	codec, err := protocol.NewCodec(cfg.EnableCompression)
	if err != nil {
		return nil, err
	}

	return &Broadcaster{
		provider:  provider,
		collector: snapshot.NewCollector(cfg.FloatPrecision),
		engine:    sync.NewEngine(cfg.StaticRefreshEvery),
		codec:     codec,
		clients:   clients,
		telemetry: telemetry,
		cfg:       cfg,
		logger:    logging.GetBroadcastLogger(),
	}, nil
}

// Run запускает цикл рассылки с частотой TickRate до отмены контекста
func (b *Broadcaster) Run(ctx context.Context) {
	interval := time.Second / time.Duration(b.cfg.TickRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	b.logger.Info("🚀 Рассылка состояния запущена: %d тиков/с, полное состояние каждые %d тиков",
		b.cfg.TickRate, b.cfg.FullStateInterval)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("🛑 Рассылка состояния остановлена")
			return
		case <-ticker.C:
			b.BroadcastTick()
		}
	}
}

// BroadcastTick выполняет один проход рассылки. Вынесен отдельно,
// чтобы тик можно было вызывать вручную из тестов.
func (b *Broadcaster) BroadcastTick() {
	b.tick++

	entries := b.clients.Active()
	if len(entries) == 0 {
		return
	}

	// Рассылка целиком придержана, пока ВСЕ клиенты не подтвердили
	// загрузку ресурсов: отстающий клиент не должен получить состояние,
	// ссылающееся на незагруженные ресурсы
	for _, entry := range entries {
		if !entry.state.SyncAcked() {
			if b.tick%100 == 0 {
				b.logger.Debug("Рассылка придержана: клиент %s ещё не подтвердил загрузку", entry.state.ID)
			}
			return
		}
	}

	// Снапшот собирается один раз и переиспользуется всеми клиентами
	// только на чтение
	col := b.collector.Collect(b.provider)
	reg := protocol.BuildClassRegistry(col)

	if col.GameOver {
		// Одноразовое уведомление о завершении матча; регулярная
		// рассылка подавлена до рестарта
		if !b.matchEndingSent {
			b.broadcastMatchEnding(col)
			b.matchEndingSent = true
		}
		return
	}
	b.matchEndingSent = false

	// Кодирование и отправка разным клиентам независимы: общий снапшот
	// только читается, кеш каждого клиента трогает только его горутина
	var wg gosync.WaitGroup
	for _, entry := range entries {
		if entry.state.Disconnected() {
			continue
		}

		wg.Add(1)
		go func(entry *clientEntry) {
			defer wg.Done()
			b.sendToClient(entry, col, reg)
		}(entry)
	}
	wg.Wait()

	if b.cfg.TelemetryEvery > 0 && b.tick%uint64(b.cfg.TelemetryEvery) == 0 {
		b.telemetry.LogSummary(b.logger)
	}
}

// Tick возвращает номер текущего тика рассылки
func (b *Broadcaster) Tick() uint64 { return b.tick }

// sendToClient выбирает full/delta/legacy для клиента и отправляет.
// Ошибка отправки приводит к отключению только этого клиента.
func (b *Broadcaster) sendToClient(entry *clientEntry, col *snapshot.Collection, reg *protocol.ClassRegistry) {
	state := entry.state

	// Клиенты без поддержки дельт получают несжатое полное состояние
	// старого формата каждый тик
	if !state.Caps.SupportsDelta {
		payload := sync.BuildLegacy(col)
		b.encodeAndSend(entry, payload, protocol.KindLegacy, protocol.SerializationJSON, false)
		return
	}

	if state.NeedsFull(b.tick, uint64(b.cfg.FullStateInterval)) {
		b.sendFull(entry, col, reg)
		return
	}

	result := b.engine.ComputeDelta(state, col, b.tick)
	if result.ForceFull {
		// Дельта невозможна — полный ресинк на этом же тике, тик не
		// пропускается
		b.sendFull(entry, col, reg)
		return
	}

	st := protocol.SelectSerialization(state.Caps.SupportsBinary)
	if b.encodeAndSend(entry, result.Payload, protocol.KindDelta, st, state.Caps.SupportsCompression) {
		state.CommitDelta(col, result.Refreshed, result.RemovedIDs)
	}
}

// sendFull отправляет полное состояние и при успехе фиксирует кеш
func (b *Broadcaster) sendFull(entry *clientEntry, col *snapshot.Collection, reg *protocol.ClassRegistry) {
	state := entry.state
	payload := sync.BuildFull(col, reg)

	st := protocol.SelectSerialization(state.Caps.SupportsBinary)
	if b.encodeAndSend(entry, payload, protocol.KindFull, st, state.Caps.SupportsCompression) {
		state.CommitFull(col, reg, b.tick)
	}
}

// encodeAndSend кодирует payload и отправляет кадр. Возвращает true
// при успешной отправке.
func (b *Broadcaster) encodeAndSend(entry *clientEntry, payload map[string]interface{}, kind protocol.MessageKind, st protocol.SerializationType, compress bool) bool {
	state := entry.state

	result, err := b.codec.Encode(payload, kind, st, compress)
	if err != nil {
		// Ошибка кодирования не должна валить весь тик
		b.logger.Error("❌ Ошибка кодирования %s для %s: %v", kind, state.ID, err)
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(b.cfg.SendTimeoutMs)*time.Millisecond)
	defer cancel()

	if err := entry.transport.Send(ctx, state.ID, result.Frame); err != nil {
		// Отказ одного клиента не прерывает рассылку остальным:
		// клиент отключается и вычищается
		b.logger.Warn("❌ Ошибка отправки %s клиенту %s: %v", kind, state.ID, err)
		b.telemetry.RecordSendError(kind)
		b.clients.Remove(state.ID, err)
		return false
	}

	b.telemetry.RecordSend(kind, result.RawSize, result.EncodedSize)
	return true
}

// broadcastMatchEnding рассылает одноразовое уведомление о завершении матча
func (b *Broadcaster) broadcastMatchEnding(col *snapshot.Collection) {
	b.logger.Info("🏁 Матч завершён, победитель: %d", col.WinnerID)
	eventbus.Publish(context.Background(), eventbus.NewEnvelope(eventbus.EventMatchEnding, ""))

	payload := sync.BuildMatchEnding(col)

	var wg gosync.WaitGroup
	for _, entry := range b.clients.Active() {
		if entry.state.Disconnected() {
			continue
		}

		wg.Add(1)
		go func(entry *clientEntry) {
			defer wg.Done()
			st := protocol.SelectSerialization(entry.state.Caps.SupportsBinary)
			compress := entry.state.Caps.SupportsCompression && entry.state.Caps.SupportsDelta
			b.encodeAndSend(entry, payload, protocol.KindMatchEnding, st, compress)
		}(entry)
	}
	wg.Wait()
}
