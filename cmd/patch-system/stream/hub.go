package stream

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ida-mediafoundry/jetpack-patch-system/common/logger"
)

// allSources is the subscription key of clients that want every source
const allSources = ""

// Message is a run event ready to be pushed to clients
type Message struct {
	Source string
	Data   []byte
}

// Hub maintains active WebSocket connections and broadcasts run events
type Hub struct {
	// Map: source → clients, allSources receives everything
	connections map[string]map[*Client]struct{}
	mutex       sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	done       chan struct{}

	log *logger.Logger
}

// NewHub creates a new Hub instance
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		connections: make(map[string]map[*Client]struct{}),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *Message, 256),
		done:        make(chan struct{}),
		log:         log,
	}
}

// Run is the hub's main loop; it closes every client when ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	h.log.Info("event hub started")

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			h.log.Info("event hub stopped")
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastToSource(message)
		}
	}
}

// PublishEvent queues a run event payload for broadcast.
// The source is read from the payload so clients can subscribe per source.
func (h *Hub) PublishEvent(ctx context.Context, channel string, message string) error {
	var head struct {
		Source string `json:"source"`
	}
	if err := json.Unmarshal([]byte(message), &head); err != nil {
		h.log.Warn("dropping malformed run event", "channel", channel, "error", err)
		return nil
	}

	select {
	case h.broadcast <- &Message{Source: head.Source, Data: []byte(message)}:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// leave unregisters a client unless the hub already stopped
func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// join registers a client; it reports false when the hub has stopped or ctx is done
func (h *Hub) join(ctx context.Context, client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	case <-ctx.Done():
		return false
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	clients, ok := h.connections[client.source]
	if !ok {
		clients = make(map[*Client]struct{})
		h.connections[client.source] = clients
	}
	clients[client] = struct{}{}
	h.log.Info("stream client registered", "source", client.source, "total_for_source", len(clients))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.removeLocked(client)
}

// removeLocked drops a client and closes its send channel; caller holds h.mutex
func (h *Hub) removeLocked(client *Client) {
	clients := h.connections[client.source]
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)

	if len(clients) == 0 {
		delete(h.connections, client.source)
	}
	h.log.Info("stream client unregistered", "source", client.source, "remaining_for_source", len(clients))
}

// broadcastToSource sends a message to clients of its source and to clients of all sources
func (h *Hub) broadcastToSource(message *Message) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	targets := []string{allSources}
	if message.Source != allSources {
		targets = append(targets, message.Source)
	}

	for _, source := range targets {
		for client := range h.connections[source] {
			select {
			case client.send <- message.Data:
			default:
				h.log.Warn("stream client send buffer full, closing connection", "source", client.source)
				h.removeLocked(client)
			}
		}
	}
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for _, clients := range h.connections {
		for client := range clients {
			h.removeLocked(client)
		}
	}
}

// ConnectionCount returns the total number of active connections
func (h *Hub) ConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	count := 0
	for _, clients := range h.connections {
		count += len(clients)
	}
	return count
}
