package network

import (
	"os"
	gosync "sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/annel0/arena-game/internal/logging"
	"github.com/annel0/arena-game/internal/protocol"
)

// kindStats — накопленные счётчики для одного вида сообщений
type kindStats struct {
	Messages     uint64 // Отправлено сообщений
	RawBytes     uint64 // Байт до сжатия
	EncodedBytes uint64 // Байт после сжатия
	SendErrors   uint64 // Ошибок отправки
}

// Telemetry собирает статистику трафика рассылки по видам сообщений.
// Чисто наблюдательная: на корректность протокола не влияет.
type Telemetry struct {
	mu     gosync.Mutex
	byKind map[protocol.MessageKind]*kindStats

	// Prometheus-метрики
	messagesTotal *prometheus.CounterVec
	rawBytes      *prometheus.CounterVec
	encodedBytes  *prometheus.CounterVec
	sendErrors    *prometheus.CounterVec
}

// NewTelemetry создаёт телеметрию и регистрирует метрики в указанном
// регистре (в тестах передаётся отдельный prometheus.NewRegistry()).
func NewTelemetry(reg prometheus.Registerer) *Telemetry {
	t := &Telemetry{
		byKind: make(map[protocol.MessageKind]*kindStats),
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "broadcast",
			Name:      "messages_total",
			Help:      "Общее число отправленных сообщений состояния.",
		}, []string{"kind"}),
		rawBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "broadcast",
			Name:      "raw_bytes_total",
			Help:      "Байты полезной нагрузки до сжатия.",
		}, []string{"kind"}),
		encodedBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "broadcast",
			Name:      "encoded_bytes_total",
			Help:      "Байты полезной нагрузки после сжатия.",
		}, []string{"kind"}),
		sendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "broadcast",
			Name:      "send_errors_total",
			Help:      "Ошибки отправки, приведшие к отключению клиента.",
		}, []string{"kind"}),
	}

	if reg != nil {
		reg.MustRegister(t.messagesTotal, t.rawBytes, t.encodedBytes, t.sendErrors)
	}
	return t
}

// RecordSend учитывает успешную отправку сообщения
func (t *Telemetry) RecordSend(kind protocol.MessageKind, rawSize, encodedSize int) {
	t.mu.Lock()
	stats := t.getOrCreate(kind)
	stats.Messages++
	stats.RawBytes += uint64(rawSize)
	stats.EncodedBytes += uint64(encodedSize)
	t.mu.Unlock()

	label := string(kind)
	t.messagesTotal.WithLabelValues(label).Inc()
	t.rawBytes.WithLabelValues(label).Add(float64(rawSize))
	t.encodedBytes.WithLabelValues(label).Add(float64(encodedSize))
}

// RecordSendError учитывает ошибку отправки
func (t *Telemetry) RecordSendError(kind protocol.MessageKind) {
	t.mu.Lock()
	t.getOrCreate(kind).SendErrors++
	t.mu.Unlock()

	t.sendErrors.WithLabelValues(string(kind)).Inc()
}

// Stats возвращает копию счётчиков для вида сообщения
func (t *Telemetry) Stats(kind protocol.MessageKind) kindStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	if stats, exists := t.byKind[kind]; exists {
		return *stats
	}
	return kindStats{}
}

func (t *Telemetry) getOrCreate(kind protocol.MessageKind) *kindStats {
	if stats, exists := t.byKind[kind]; exists {
		return stats
	}
	stats := &kindStats{}
	t.byKind[kind] = stats
	return stats
}

// LogSummary пишет периодическую сводку: средние размеры, степень
// сжатия по видам сообщений и потребление ресурсов процессом.
func (t *Telemetry) LogSummary(logger *logging.Logger) {
	t.mu.Lock()
	snapshot := make(map[protocol.MessageKind]kindStats, len(t.byKind))
	for kind, stats := range t.byKind {
		snapshot[kind] = *stats
	}
	t.mu.Unlock()

	for kind, stats := range snapshot {
		if stats.Messages == 0 {
			continue
		}
		avgRaw := float64(stats.RawBytes) / float64(stats.Messages)
		avgEncoded := float64(stats.EncodedBytes) / float64(stats.Messages)
		ratio := 1.0
		if stats.RawBytes > 0 {
			ratio = float64(stats.EncodedBytes) / float64(stats.RawBytes)
		}
		logger.Info("📊 Телеметрия [%s]: %d сообщений, avg raw=%.0fB, avg encoded=%.0fB, ratio=%.2f, ошибок=%d",
			kind, stats.Messages, avgRaw, avgEncoded, ratio, stats.SendErrors)
	}

	if cpuPercent, memMB, err := processUsage(); err == nil {
		logger.Info("📊 Ресурсы процесса: CPU=%.1f%%, RSS=%.1fMB", cpuPercent, memMB)
	}
}

// processUsage возвращает использование CPU и памяти текущим процессом
func processUsage() (float64, float64, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, 0, err
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		return 0, 0, err
	}

	memInfo, err := proc.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}

	return cpuPercent, float64(memInfo.RSS) / 1024 / 1024, nil
}
