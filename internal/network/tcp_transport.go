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

	"github.com/annel0/arena-game/internal/logging"
	"github.com/annel0/arena-game/internal/protocol"
)

// TCPTransport принимает TCP-соединения и отправляет клиентам кадры
// с 4-байтовым big-endian префиксом длины.
type TCPTransport struct {
	listener net.Listener
	handler  SessionHandler
	logger   *logging.Logger

	mu    sync.RWMutex
	conns map[string]net.Conn

	ctx    context.Context
	cancel context.CancelFunc
}

// NewTCPTransport создаёт транспорт и начинает слушать указанный адрес
func NewTCPTransport(address string, handler SessionHandler) (*TCPTransport, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("ошибка прослушивания %s: %w", address, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &TCPTransport{
		listener: listener,
		handler:  handler,
		logger:   logging.GetNetworkLogger(),
		conns:    make(map[string]net.Conn),
		ctx:      ctx,
		cancel:   cancel,
	}

	go t.acceptLoop()
	t.logger.Info("✅ TCP транспорт запущен на %s", address)
	return t, nil
}

// acceptLoop принимает входящие соединения
func (t *TCPTransport) acceptLoop() {
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			select {
			case <-t.ctx.Done():
				return
			default:
				t.logger.Error("Ошибка accept: %v", err)
				continue
			}
		}

		go t.handleConnection(conn)
	}
}

// handleConnection обслуживает одно соединение: рукопожатие, затем
// чтение управляющих сообщений до закрытия.
func (t *TCPTransport) handleConnection(conn net.Conn) {
	clientID := uuid.NewString()

	t.mu.Lock()
	t.conns[clientID] = conn
	t.mu.Unlock()

	t.logger.Info("Новое TCP-соединение %s от %s", clientID, conn.RemoteAddr())

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
				t.logger.Debug("Ошибка чтения от %s: %v", clientID, err)
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
func (t *TCPTransport) Send(ctx context.Context, clientID string, data []byte) error {
	t.mu.RLock()
	conn, exists := t.conns[clientID]
	t.mu.RUnlock()

	if !exists {
		return fmt.Errorf("соединение %s не найдено", clientID)
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
	} else {
		// Отправка не должна блокировать рассылку остальным
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	}

	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("ошибка отправки клиенту %s: %w", clientID, err)
	}
	return nil
}

// Disconnect закрывает соединение клиента
func (t *TCPTransport) Disconnect(clientID string) {
	t.removeConn(clientID)
}

func (t *TCPTransport) removeConn(clientID string) {
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
func (t *TCPTransport) Close() error {
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
