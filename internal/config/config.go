package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации приложения.
// Содержит настройки сервера, рассылки состояния и шины событий.

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
}

type ServerConfig struct {
	TCPPort     int `yaml:"tcp_port"`
	KCPPort     int `yaml:"kcp_port"`
	MetricsPort int `yaml:"metrics_port"`
}

type BroadcastConfig struct {
	TickRate           int  `yaml:"tick_rate"`            // Тиков в секунду
	FullStateInterval  int  `yaml:"full_state_interval"`  // Полное состояние каждые N тиков
	StaticRefreshEvery int  `yaml:"static_refresh_every"` // Статические категории каждые N тиков
	TelemetryEvery     int  `yaml:"telemetry_every"`      // Сводка телеметрии каждые N тиков
	EnableCompression  bool `yaml:"enable_compression"`   // Глобальный переключатель zstd
	SendTimeoutMs      int  `yaml:"send_timeout_ms"`      // Таймаут отправки одному клиенту
	FloatPrecision     int  `yaml:"float_precision"`      // Знаков после запятой в снапшотах
}

type EventBusConfig struct {
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
}

// GetTCPPort возвращает TCP порт с поддержкой fallback значений
func (s *ServerConfig) GetTCPPort() int {
	return getPortWithEnvFallback(s.TCPPort, "ARENA_TCP_PORT", 7777)
}

// GetKCPPort возвращает KCP порт с поддержкой fallback значений
func (s *ServerConfig) GetKCPPort() int {
	return getPortWithEnvFallback(s.KCPPort, "ARENA_KCP_PORT", 7778)
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "ARENA_METRICS_PORT", 2112)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	// Если порт задан в конфиге и больше 0, используем его
	if configPort > 0 {
		return configPort
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	// Используем дефолтное значение
	return defaultPort
}

// WithDefaults заполняет незаданные поля рассылки значениями по умолчанию
func (b BroadcastConfig) WithDefaults() BroadcastConfig {
	if b.TickRate <= 0 {
		b.TickRate = 20
	}
	if b.FullStateInterval <= 0 {
		b.FullStateInterval = 100
	}
	if b.StaticRefreshEvery <= 0 {
		b.StaticRefreshEvery = 10
	}
	if b.TelemetryEvery <= 0 {
		b.TelemetryEvery = 600
	}
	if b.SendTimeoutMs <= 0 {
		b.SendTimeoutMs = 250
	}
	if b.FloatPrecision <= 0 {
		b.FloatPrecision = 4
	}
	return b
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать из ENV ARENA_CONFIG или возвращает nil, nil.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("ARENA_CONFIG")
		if path == "" {
			return nil, nil // конфиг не задан — использовать дефолты
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
