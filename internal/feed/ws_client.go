package feed

import (
	"encoding/json"
	"sync"
	"time"

	"fixmycity/backend/internal/logging"
	"fixmycity/backend/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// WebSocketClient streams events to one dashboard connection. Dashboards
// only listen; anything they send is read and discarded to keep the
// control frames flowing.
type WebSocketClient struct {
	id          string
	department  string
	PrincipalID string

	Conn *websocket.Conn
	Hub  *Hub
	Send chan models.ComplaintEvent

	closeOnce sync.Once
}

// NewWebSocketClient wraps conn. An empty department subscribes to all
// departments.
func NewWebSocketClient(hub *Hub, conn *websocket.Conn, principalID, department string) *WebSocketClient {
	return &WebSocketClient{
		id:          uuid.NewString(),
		department:  department,
		PrincipalID: principalID,
		Conn:        conn,
		Hub:         hub,
		Send:        make(chan models.ComplaintEvent, sendBuffer),
	}
}

func (c *WebSocketClient) ID() string                                { return c.id }
func (c *WebSocketClient) DepartmentID() string                      { return c.department }
func (c *WebSocketClient) SendChannel() chan<- models.ComplaintEvent { return c.Send }

func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close closes the send channel, which stops writePump.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() { close(c.Send) })
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Warn().Err(err).Str("client", c.id).Msg("feed connection closed unexpectedly")
			}
			return
		}
	}
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				logging.Error().Err(err).Str("client", c.id).Msg("encode feed event")
				continue
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
