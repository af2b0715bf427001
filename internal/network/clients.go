package network

import (
	"context"
	gosync "sync"

	"github.com/annel0/arena-game/internal/eventbus"
	"github.com/annel0/arena-game/internal/logging"
	"github.com/annel0/arena-game/internal/sync"
)

// clientEntry связывает состояние клиента с его транспортом
type clientEntry struct {
	state     *sync.ClientState
	transport Transport
}

// ClientManager — реестр подключённых клиентов: возможности, фаза
// жизненного цикла и транспорт каждого соединения. Реализует
// SessionHandler, поэтому транспорты сообщают сюда о событиях.
type ClientManager struct {
	mu      gosync.RWMutex
	clients map[string]*clientEntry
	logger  *logging.Logger
}

// NewClientManager создаёт пустой реестр клиентов
func NewClientManager() *ClientManager {
	return &ClientManager{
		clients: make(map[string]*clientEntry),
		logger:  logging.GetNetworkLogger(),
	}
}

// OnConnect регистрирует клиента после рукопожатия
func (cm *ClientManager) OnConnect(clientID string, caps sync.Capabilities, transport Transport) {
	state := sync.NewClientState(clientID, caps)

	cm.mu.Lock()
	cm.clients[clientID] = &clientEntry{state: state, transport: transport}
	total := len(cm.clients)
	cm.mu.Unlock()

	cm.logger.Info("✅ Клиент %s подключён (delta=%v, compression=%v, binary=%v), всего: %d",
		clientID, caps.SupportsDelta, caps.SupportsCompression, caps.SupportsBinary, total)

	eventbus.Publish(context.Background(), eventbus.NewEnvelope(eventbus.EventClientConnected, clientID))
}

// OnSyncAck отмечает подтверждение загрузки ресурсов
func (cm *ClientManager) OnSyncAck(clientID string) {
	if state := cm.State(clientID); state != nil {
		state.AckSync()
		cm.logger.Debug("Клиент %s подтвердил загрузку ресурсов", clientID)
	}
}

// OnFullRequest помечает клиента на принудительный полный ресинк
func (cm *ClientManager) OnFullRequest(clientID string) {
	if state := cm.State(clientID); state != nil {
		state.RequestFull()
		cm.logger.Debug("Клиент %s запросил полный ресинк", clientID)
		eventbus.Publish(context.Background(), eventbus.NewEnvelope(eventbus.EventResyncForced, clientID))
	}
}

// OnDisconnect удаляет клиента и освобождает его кеш
func (cm *ClientManager) OnDisconnect(clientID string, err error) {
	cm.Remove(clientID, err)
}

// Remove удаляет клиента из реестра. Кеш и таблица классов очищаются;
// отправки остальным клиентам не затрагиваются.
func (cm *ClientManager) Remove(clientID string, cause error) {
	cm.mu.Lock()
	entry, exists := cm.clients[clientID]
	if exists {
		delete(cm.clients, clientID)
	}
	total := len(cm.clients)
	cm.mu.Unlock()

	if !exists {
		return
	}

	entry.state.Disconnect()
	entry.transport.Disconnect(clientID)

	if cause != nil {
		cm.logger.Info("❌ Клиент %s отключён: %v, осталось: %d", clientID, cause, total)
	} else {
		cm.logger.Info("Клиент %s отключён, осталось: %d", clientID, total)
	}

	eventbus.Publish(context.Background(), eventbus.NewEnvelope(eventbus.EventClientDisconnected, clientID))
}

// State возвращает состояние клиента или nil
func (cm *ClientManager) State(clientID string) *sync.ClientState {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if entry, exists := cm.clients[clientID]; exists {
		return entry.state
	}
	return nil
}

// Active возвращает срез текущих клиентов для обхода на тике
func (cm *ClientManager) Active() []*clientEntry {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	out := make([]*clientEntry, 0, len(cm.clients))
	for _, entry := range cm.clients {
		out = append(out, entry)
	}
	return out
}

// Count возвращает число подключённых клиентов
func (cm *ClientManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.clients)
}
