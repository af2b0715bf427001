package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/annel0/arena-game/internal/eventbus"
)

const (
	defaultNATSAddr = "nats://localhost:4222"
	timeFormat      = "15:04:05.000"
)

// event-cli — утилита наблюдения за событиями сервера через NATS JetStream.
//
// Примеры:
//
//	event-cli -cmd tail
//	event-cli -cmd tail -types ClientConnected,ClientDisconnected
//	event-cli -cmd stats
func main() {
	var (
		natsAddr   = flag.String("nats", defaultNATSAddr, "адрес NATS")
		stream     = flag.String("stream", "ARENA_EVENTS", "имя JetStream стрима")
		command    = flag.String("cmd", "tail", "команда: tail, stats")
		eventTypes = flag.String("types", "", "фильтр по типам событий (через запятую)")
		duration   = flag.Duration("duration", 0, "длительность наблюдения (0 — до Ctrl+C)")
	)
	flag.Parse()

	bus, err := eventbus.NewJetStreamBus(*natsAddr, *stream, 24*time.Hour)
	if err != nil {
		log.Fatalf("❌ Ошибка подключения к NATS: %v", err)
	}
	defer bus.Close()

	switch *command {
	case "tail":
		if err := tailEvents(bus, parseStringList(*eventTypes), *duration); err != nil {
			log.Fatalf("❌ Ошибка наблюдения: %v", err)
		}
	case "stats":
		if err := showStats(bus, *duration); err != nil {
			log.Fatalf("❌ Ошибка сбора статистики: %v", err)
		}
	default:
		log.Fatalf("❌ Неизвестная команда: %s", *command)
	}
}

// tailEvents печатает события по мере поступления (как tail -f)
func tailEvents(bus eventbus.EventBus, types []string, duration time.Duration) error {
	ctx, cancel := watchContext(duration)
	defer cancel()

	sub, err := bus.Subscribe(ctx, eventbus.Filter{Types: types}, func(ctx context.Context, ev *eventbus.Envelope) {
		client := ev.ClientID
		if client == "" {
			client = "-"
		}
		fmt.Printf("%s  %-20s  client=%-38s prio=%d  %s\n",
			ev.Timestamp.Local().Format(timeFormat), ev.EventType, client, ev.Priority, ev.ID)
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	if len(types) > 0 {
		fmt.Printf("👀 Наблюдение за событиями: %s\n", strings.Join(types, ", "))
	} else {
		fmt.Println("👀 Наблюдение за всеми событиями")
	}

	<-ctx.Done()
	return nil
}

// showStats периодически печатает метрики шины
func showStats(bus eventbus.EventBus, duration time.Duration) error {
	ctx, cancel := watchContext(duration)
	defer cancel()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			stats := bus.Metrics()
			fmt.Printf("📊 published=%d consumed=%d dropped=%d inflight=%d\n",
				stats.Published, stats.Consumed, stats.Dropped, stats.InFlight)
		}
	}
}

// watchContext ограничивает наблюдение сигналом ОС и опциональным таймаутом
func watchContext(duration time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if duration <= 0 {
		return ctx, stop
	}

	tctx, cancel := context.WithTimeout(ctx, duration)
	return tctx, func() {
		cancel()
		stop()
	}
}

func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
