// websocket/read_pump.go
package websocket

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

// readPump читает служебные сообщения клиента и обнаруживает отключение
func (c *Client) readPump(manager *Manager) {
	defer func() {
		select {
		case manager.Unregister <- c:
		case <-manager.done:
		}
		c.Socket.Close()
	}()

	c.Socket.SetReadLimit(maxMessageSize)
	c.Socket.SetReadDeadline(time.Now().Add(pongWait))
	c.Socket.SetPongHandler(func(string) error {
		c.Socket.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				manager.logger.Warn("Подписчик %s: %v", c.ID, err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Type == MessagePing {
			if pong, err := json.Marshal(Message{Type: MessagePong}); err == nil {
				select {
				case c.control <- pong:
				default:
				}
			}
		}
	}
}
