// websocket/connection_handler.go
package websocket

import (
	"net/http"

	"github.com/google/uuid"
)

// HandleConnections подключает подписчика на события сборки.
// Параметр compress=snappy включает бинарные кадры со сжатием.
func (manager *Manager) HandleConnections(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		manager.logger.Warn("Ошибка при установке WebSocket-соединения: %v", err)
		return
	}

	client := &Client{
		ID:       uuid.NewString(),
		Compress: r.URL.Query().Get("compress") == "snappy",
		Socket:   conn,
		Send:     make(chan []byte, sendBufferSize),
		control:  make(chan []byte, 1),
	}

	select {
	case manager.Register <- client:
	case <-manager.done:
		conn.Close()
		return
	}
	manager.logger.Info("Подписчик %s подключился с адреса %s", client.ID, r.RemoteAddr)

	go client.writePump()
	go client.readPump(manager)
}
