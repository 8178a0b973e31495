// websocket/manager.go
package websocket

import (
	"context"
	"encoding/json"

	"github.com/LilVoxy/fabric_activity_etl/ETL/models"
	"github.com/LilVoxy/fabric_activity_etl/ETL/utils"
)

// NewManager создает новый хаб событий сборки
func NewManager(logger *utils.ETLLogger) *Manager {
	return &Manager{
		Broadcast:  make(chan []byte, broadcastBufferSize),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Clients:    make(map[string]*Client),
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Run обслуживает регистрацию клиентов и рассылку до отмены ctx
func (manager *Manager) Run(ctx context.Context) {
	defer close(manager.done)
	for {
		select {
		case client := <-manager.Register:
			manager.Clients[client.ID] = client
			manager.clients.Store(int64(len(manager.Clients)))
			manager.logger.Debug("Подписчик %s подключился", client.ID)
			manager.welcome(client)

		case client := <-manager.Unregister:
			if _, ok := manager.Clients[client.ID]; ok {
				delete(manager.Clients, client.ID)
				close(client.Send)
				manager.clients.Store(int64(len(manager.Clients)))
				manager.logger.Debug("Подписчик %s отключился", client.ID)
			}

		case message := <-manager.Broadcast:
			manager.broadcast(message)

		case <-ctx.Done():
			for id, client := range manager.Clients {
				delete(manager.Clients, id)
				close(client.Send)
			}
			manager.clients.Store(0)
			return
		}
	}
}

// welcome отправляет новому клиенту его идентификатор и последнее событие
func (manager *Manager) welcome(client *Client) {
	data, err := json.Marshal(Message{Type: MessageWelcome, ClientID: client.ID, LastEvent: manager.LastEvent()})
	if err != nil {
		manager.logger.Error("Ошибка кодирования приветствия: %v", err)
		return
	}
	select {
	case client.Send <- data:
	default:
	}
}

// broadcast отправляет сообщение всем подключенным клиентам.
// Клиент с переполненной очередью отключается.
func (manager *Manager) broadcast(message []byte) {
	for id, client := range manager.Clients {
		select {
		case client.Send <- message:
		default:
			close(client.Send)
			delete(manager.Clients, id)
			manager.logger.Warn("Подписчик %s не успевает читать события и отключён", id)
		}
	}
	manager.clients.Store(int64(len(manager.Clients)))
}

// Publish реализует load.EventSink. Сборка не ждёт подписчиков:
// при переполненной очереди событие отбрасывается.
func (manager *Manager) Publish(event models.BuildEvent) {
	manager.lastMu.Lock()
	e := event
	manager.lastEvent = &e
	manager.lastMu.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		manager.logger.Error("Ошибка кодирования события сборки: %v", err)
		return
	}
	select {
	case manager.Broadcast <- data:
	default:
		manager.logger.Warn("Очередь рассылки переполнена, событие %s отброшено", event.Type)
	}
}

// LastEvent возвращает последнее опубликованное событие
func (manager *Manager) LastEvent() *models.BuildEvent {
	manager.lastMu.RLock()
	defer manager.lastMu.RUnlock()
	return manager.lastEvent
}

// ClientCount возвращает число подключенных подписчиков
func (manager *Manager) ClientCount() int {
	return int(manager.clients.Load())
}
