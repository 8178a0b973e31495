// websocket/types.go
package websocket

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/LilVoxy/fabric_activity_etl/ETL/models"
	"github.com/LilVoxy/fabric_activity_etl/ETL/utils"
)

// Типы служебных сообщений
const (
	MessageWelcome = "welcome"
	MessagePing    = "ping"
	MessagePong    = "pong"
)

// Message - служебное сообщение хаба
type Message struct {
	Type      string             `json:"type"`
	ClientID  string             `json:"client_id,omitempty"`
	LastEvent *models.BuildEvent `json:"last_event,omitempty"`
}

// Клиент WebSocket
type Client struct {
	ID string

	// Compress включает отправку событий бинарными кадрами со сжатием Snappy
	Compress bool

	Socket *websocket.Conn
	Send   chan []byte

	// control - ответы на служебные сообщения клиента; хаб его не закрывает
	control chan []byte
}

// Manager - хаб рассылки событий сборки подписчикам
type Manager struct {
	Clients    map[string]*Client
	Broadcast  chan []byte
	Register   chan *Client
	Unregister chan *Client

	logger  *utils.ETLLogger
	clients atomic.Int64
	done    chan struct{}

	lastMu    sync.RWMutex
	lastEvent *models.BuildEvent
}

// Конфигурация WebSocket-соединения
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}
