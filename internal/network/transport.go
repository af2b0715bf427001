// Package network реализует рассылку состояния мира подключённым клиентам:
// транспорты, реестр клиентов, планировщик full/delta и телеметрию.
package network

import (
	"context"

	"github.com/annel0/arena-game/internal/sync"
)

// Transport — примитив отправки байтов конкретному клиенту.
// Реализации: TCP и KCP. Send обязан уважать дедлайн контекста:
// медленный клиент не должен задерживать рассылку остальным.
type Transport interface {
	// Send отправляет готовый кадр клиенту
	Send(ctx context.Context, clientID string, data []byte) error

	// Disconnect закрывает соединение клиента
	Disconnect(clientID string)

	// Close останавливает транспорт целиком
	Close() error
}

// SessionHandler получает события жизненного цикла соединений.
// Транспорты вызывают его из своих read-горутин.
type SessionHandler interface {
	// OnConnect вызывается после рукопожатия с возможностями клиента
	OnConnect(clientID string, caps sync.Capabilities, transport Transport)

	// OnSyncAck вызывается, когда клиент подтвердил загрузку ресурсов
	OnSyncAck(clientID string)

	// OnFullRequest вызывается при явном запросе полного состояния
	OnFullRequest(clientID string)

	// OnDisconnect вызывается при закрытии соединения
	OnDisconnect(clientID string, err error)
}

// controlMessage — входящее управляющее сообщение клиента.
// Клиент-серверный трафик использует то же кадрирование, что и
// исходящие сообщения состояния.
type controlMessage struct {
	Type         string            `json:"type"`                   // hello | sync_ack | full_request
	Capabilities sync.Capabilities `json:"capabilities,omitempty"` // Только для hello
}

// Типы управляющих сообщений
const (
	ctrlHello       = "hello"        // Рукопожатие с возможностями
	ctrlSyncAck     = "sync_ack"     // Подтверждение загрузки ресурсов
	ctrlFullRequest = "full_request" // Запрос полного ресинка
)
