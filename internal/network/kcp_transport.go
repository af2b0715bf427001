package network

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xtaci/kcp-go/v5"

	"github.com/annel0/arena-game/internal/logging"
	"github.com/annel0/arena-game/internal/protocol"
)

// KCPTransport — низколатентная альтернатива TCP поверх UDP.
// Кадрирование и управляющие сообщения те же, что и у TCP-транспорта.
type KCPTransport struct {
	listener *kcp.Listener
	handler  SessionHandler
	logger   *logging.Logger

	mu    sync.RWMutex
	conns map[string]*kcp.UDPSession

	ctx    context.Context
	cancel context.CancelFunc
}

// NewKCPTransport создаёт транспорт и начинает слушать указанный адрес
func NewKCPTransport(address string, handler SessionHandler) (*KCPTransport, error) {
	listener, err := kcp.ListenWithOptions(address, nil, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("ошибка прослушивания KCP %s: %w", address, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &KCPTransport{
		listener: listener,
		handler:  handler,
		logger:   logging.GetNetworkLogger(),
		conns:    make(map[string]*kcp.UDPSession),
		ctx:      ctx,
		cancel:   cancel,
	}

	go t.acceptLoop()
	t.logger.Info("✅ KCP транспорт запущен на %s", address)
	return t, nil
}

func (t *KCPTransport) acceptLoop() {
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			select {
			case <-t.ctx.Done():
				return
			default:
				t.logger.Error("Ошибка accept KCP: %v", err)
				continue
			}
		}

		kcpConn, ok := conn.(*kcp.UDPSession)
		if !ok {
			conn.Close()
			continue
		}

		// Настройки для игрового трафика: быстрый режим, без задержки Нейгла
		kcpConn.SetNoDelay(1, 10, 2, 1)
		kcpConn.SetWindowSize(128, 128)

		go t.handleConnection(kcpConn)
	}
}

func (t *KCPTransport) handleConnection(conn *kcp.UDPSession) {
	clientID := uuid.NewString()

	t.mu.Lock()
	t.conns[clientID] = conn
	t.mu.Unlock()

	t.logger.Info("Новое KCP-соединение %s от %s", clientID, conn.RemoteAddr())

	var connected bool
	var readErr error

	defer func() {
		t.removeConn(clientID)
		if connected {
			t.handler.OnDisconnect(clientID, readErr)
		}
	}()

	for {
		frame, err := protocol.ReadFrame(conn)
		if err != nil {
			if err != io.EOF {
				readErr = err
				t.logger.Debug("Ошибка чтения KCP от %s: %v", clientID, err)
			}
			return
		}

		var ctrl controlMessage
		if err := json.Unmarshal(frame, &ctrl); err != nil {
			logging.LogProtocolError(clientID, err, frame)
			continue
		}

		switch ctrl.Type {
		case ctrlHello:
			connected = true
			t.handler.OnConnect(clientID, ctrl.Capabilities, t)
		case ctrlSyncAck:
			t.handler.OnSyncAck(clientID)
		case ctrlFullRequest:
			t.handler.OnFullRequest(clientID)
		default:
			t.logger.Warn("Неизвестное управляющее сообщение %q от %s", ctrl.Type, clientID)
		}
	}
}

// Send отправляет кадр клиенту с дедлайном из контекста
func (t *KCPTransport) Send(ctx context.Context, clientID string, data []byte) error {
	t.mu.RLock()
	conn, exists := t.conns[clientID]
	t.mu.RUnlock()

	if !exists {
		return fmt.Errorf("KCP-соединение %s не найдено", clientID)
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
	} else {
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	}

	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("ошибка отправки KCP клиенту %s: %w", clientID, err)
	}
	return nil
}

// Disconnect закрывает соединение клиента
func (t *KCPTransport) Disconnect(clientID string) {
	t.removeConn(clientID)
}

func (t *KCPTransport) removeConn(clientID string) {
	t.mu.Lock()
	conn, exists := t.conns[clientID]
	if exists {
		delete(t.conns, clientID)
	}
	t.mu.Unlock()

	if exists {
		conn.Close()
	}
}

// Close останавливает транспорт и закрывает все соединения
func (t *KCPTransport) Close() error {
	t.cancel()
	err := t.listener.Close()

	t.mu.Lock()
	for id, conn := range t.conns {
		conn.Close()
		delete(t.conns, id)
	}
	t.mu.Unlock()

	return err
}

// интерфейсная проверка
var _ net.Conn = (*kcp.UDPSession)(nil)
