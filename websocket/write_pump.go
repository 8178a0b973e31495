// websocket/write_pump.go
package websocket

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/LilVoxy/fabric_activity_etl/processor"
)

// writePump отвечает за отправку сообщений клиенту
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Socket.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Канал закрыт хабом
				c.Socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(message); err != nil {
				return
			}

		case message := <-c.control:
			c.Socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.write(message); err != nil {
				return
			}

		case <-ticker.C:
			c.Socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// write отправляет одно сообщение отдельным кадром
func (c *Client) write(message []byte) error {
	if c.Compress {
		return c.Socket.WriteMessage(websocket.BinaryMessage, processor.CompressMessage(message))
	}
	return c.Socket.WriteMessage(websocket.TextMessage, message)
}
