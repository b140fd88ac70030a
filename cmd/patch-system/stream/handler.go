package stream

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades HTTP requests to run event streams
type Handler struct {
	hub *Hub
}

// NewHandler creates a new stream handler
func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// Events streams run events as JSON text frames
// GET /api/v1/patches/events?source=groovy
func (h *Handler) Events(c echo.Context) error {
	source := c.QueryParam("source")

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		h.hub.log.Warn("websocket upgrade failed", "error", err)
		return nil
	}

	client := NewClient(h.hub, conn, source)
	if !h.hub.join(c.Request().Context(), client) {
		conn.Close()
		return nil
	}

	h.hub.log.Info("new event stream connection", "source", source, "remote", c.RealIP())

	go client.writePump()
	go client.readPump()
	return nil
}
