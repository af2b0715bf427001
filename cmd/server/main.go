package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/arena-game/internal/config"
	"github.com/annel0/arena-game/internal/eventbus"
	"github.com/annel0/arena-game/internal/logging"
	"github.com/annel0/arena-game/internal/network"
	"github.com/annel0/arena-game/internal/observability"
	"github.com/annel0/arena-game/internal/vec"
	"github.com/annel0/arena-game/internal/world"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Инициализируем систему логирования
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	logging.Info("🎮 Запуск Arena Game Server...")

	// === КОНФИГУРАЦИЯ ===
	cfg, err := config.Load("")
	if err != nil {
		logging.Error("❌ Ошибка загрузки конфигурации: %v", err)
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}
	if cfg == nil {
		cfg = &config.Config{}
	}
	bcCfg := cfg.Broadcast.WithDefaults()

	tcpAddr := fmt.Sprintf(":%d", cfg.Server.GetTCPPort())
	kcpAddr := fmt.Sprintf(":%d", cfg.Server.GetKCPPort())
	metricsPort := cfg.Server.GetMetricsPort()

	logging.Info("📡 Конфигурация: TCP=%s, KCP=%s, метрики=:%d, тик=%d Гц",
		tcpAddr, kcpAddr, metricsPort, bcCfg.TickRate)

	// === ТРАССИРОВКА ===
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracingShutdown, err := observability.InitTracing(ctx, "arena-game-server")
	if err != nil {
		logging.Warn("⚠️ Трассировка недоступна: %v", err)
		tracingShutdown = func(context.Context) error { return nil }
	}

	// === ШИНА СОБЫТИЙ ===
	var bus eventbus.EventBus
	if cfg.EventBus.URL != "" {
		jsBus, err := eventbus.NewJetStreamBus(cfg.EventBus.URL, cfg.EventBus.Stream,
			time.Duration(cfg.EventBus.Retention)*time.Hour)
		if err != nil {
			logging.Warn("⚠️ JetStream недоступен (%v), используем in-memory шину", err)
			bus = eventbus.NewMemoryBus(1024)
		} else {
			bus = jsBus
			defer jsBus.Close()
		}
	} else {
		bus = eventbus.NewMemoryBus(1024)
	}
	eventbus.Init(bus)
	if err := eventbus.StartLoggingListener(bus); err != nil {
		logging.Warn("⚠️ Не удалось подписать журнал событий: %v", err)
	}

	busMetrics := eventbus.NewMetricsExporter(bus, prometheus.DefaultRegisterer)
	busMetrics.Start()
	defer busMetrics.Stop()

	// === МИР ===
	logging.Debug("Создание менеджера мира...")
	wm := world.NewManager()
	seedArena(wm)

	// === СЕТЕВЫЕ КОМПОНЕНТЫ ===
	clients := network.NewClientManager()

	tcpTransport, err := network.NewTCPTransport(tcpAddr, clients)
	if err != nil {
		logging.Error("❌ Ошибка запуска TCP транспорта: %v", err)
		log.Fatalf("❌ Ошибка запуска TCP транспорта: %v", err)
	}

	kcpTransport, err := network.NewKCPTransport(kcpAddr, clients)
	if err != nil {
		logging.Error("❌ Ошибка запуска KCP транспорта: %v", err)
		log.Fatalf("❌ Ошибка запуска KCP транспорта: %v", err)
	}

	telemetry := network.NewTelemetry(prometheus.DefaultRegisterer)
	network.StartMetricsServer(metricsPort)

	broadcaster, err := network.NewBroadcaster(wm, clients, telemetry, bcCfg)
	if err != nil {
		logging.Error("❌ Ошибка создания рассыльщика: %v", err)
		log.Fatalf("❌ Ошибка создания рассыльщика: %v", err)
	}
	go broadcaster.Run(ctx)

	// Симуляция мира идёт в том же ритме, что и рассылка
	go runSimulation(ctx, wm, bcCfg.TickRate)

	logging.Info("✅ Все сервисы запущены и готовы принимать соединения")
	logging.Info("   🎮 Игровой трафик: TCP %s, KCP %s", tcpAddr, kcpAddr)
	logging.Info("   📊 Метрики: http://localhost:%d/metrics", metricsPort)

	// Канал для получения сигналов ОС
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logging.Info("📡 Получен сигнал %v, завершение работы...", sig)

	// === GRACEFUL SHUTDOWN ===
	cancel()

	logging.Debug("Остановка транспортов...")
	if err := tcpTransport.Close(); err != nil {
		logging.Error("❌ Ошибка остановки TCP транспорта: %v", err)
	}
	if err := kcpTransport.Close(); err != nil {
		logging.Error("❌ Ошибка остановки KCP транспорта: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := tracingShutdown(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки трассировки: %v", err)
	}

	logging.Info("👋 Сервер успешно остановлен")
}

// seedArena наполняет арену стартовыми сущностями: препятствия по краям
// и несколько точек с усилениями.
func seedArena(wm *world.Manager) {
	// Стены арены 100x100
	wm.SpawnObstacle(vec.Vec2Float{X: 50, Y: 0}, 100, 2)
	wm.SpawnObstacle(vec.Vec2Float{X: 50, Y: 100}, 100, 2)
	wm.SpawnObstacle(vec.Vec2Float{X: 0, Y: 50}, 2, 100)
	wm.SpawnObstacle(vec.Vec2Float{X: 100, Y: 50}, 2, 100)

	wm.SpawnPickup("health", vec.Vec2Float{X: 25, Y: 25})
	wm.SpawnPickup("health", vec.Vec2Float{X: 75, Y: 75})
	wm.SpawnPickup("ammo", vec.Vec2Float{X: 25, Y: 75})
	wm.SpawnPickup("ammo", vec.Vec2Float{X: 75, Y: 25})

	// Пара ботов, чтобы состояние менялось от тика к тику
	bot := wm.SpawnCharacter("bot_alpha", vec.Vec2Float{X: 30, Y: 50})
	bot.Velocity = vec.Vec2Float{X: 2, Y: 0}
	bot = wm.SpawnCharacter("bot_beta", vec.Vec2Float{X: 70, Y: 50})
	bot.Velocity = vec.Vec2Float{X: -2, Y: 0}

	logging.Info("🌍 Арена инициализирована")
}

// runSimulation продвигает симуляцию мира с фиксированным шагом.
func runSimulation(ctx context.Context, wm *world.Manager, tickRate int) {
	interval := time.Second / time.Duration(tickRate)
	dt := interval.Seconds()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			wm.Update(dt)
		}
	}
}
