package handler

import (
	"net/http"

	"fixmycity/backend/internal/feed"
	"fixmycity/backend/internal/logging"
	"fixmycity/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboards are served from other origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeFeed upgrades to a websocket streaming complaint events. Admins
// receive every department, workers only their own.
func (h *Handler) ServeFeed(c *gin.Context) {
	p := principal(c)
	department := ""
	if p.Kind == models.KindWorker {
		department = p.DepartmentID.Hex()
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.Ctx(c.Request.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := feed.NewWebSocketClient(h.Hub, conn, p.ID.Hex(), department)
	if !h.Hub.Register(client) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}
	client.Run()
}
