package feed

import (
	"context"

	"fixmycity/backend/internal/logging"
	"fixmycity/backend/internal/models"

	"github.com/rs/zerolog"
)

// Hub owns the set of connected clients. All mutation happens on the Run
// goroutine; other goroutines talk to it through the channels.
type Hub struct {
	clients map[string]Client

	RegisterCh   chan Client
	UnregisterCh chan Client
	EventCh      chan models.ComplaintEvent
	countCh      chan chan int
	done         chan struct{}

	log zerolog.Logger
}

func NewHub() *Hub {
	return &Hub{
		clients:      make(map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		EventCh:      make(chan models.ComplaintEvent, 64),
		countCh:      make(chan chan int),
		done:         make(chan struct{}),
		log:          logging.With("feed"),
	}
}

// Run serves the hub until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for id, c := range h.clients {
				c.Close()
				delete(h.clients, id)
			}
			return

		case c := <-h.RegisterCh:
			if old, ok := h.clients[c.ID()]; ok {
				old.Close()
			}
			h.clients[c.ID()] = c
			h.log.Debug().Str("client", c.ID()).Str("department", c.DepartmentID()).Msg("client registered")

		case c := <-h.UnregisterCh:
			if cur, ok := h.clients[c.ID()]; ok && cur == c {
				delete(h.clients, c.ID())
				c.Close()
				h.log.Debug().Str("client", c.ID()).Msg("client unregistered")
			}

		case ev := <-h.EventCh:
			h.broadcast(ev)

		case reply := <-h.countCh:
			reply <- len(h.clients)
		}
	}
}

func (h *Hub) broadcast(ev models.ComplaintEvent) {
	for id, c := range h.clients {
		if !Wants(c, ev) {
			continue
		}
		select {
		case c.SendChannel() <- ev:
		default:
			// Slow consumer; drop it rather than stall the hub.
			h.log.Warn().Str("client", id).Msg("client send buffer full, disconnecting")
			delete(h.clients, id)
			c.Close()
		}
	}
}

// Register adds c to the hub. It is a no-op once the hub has stopped.
func (h *Hub) Register(c Client) bool {
	select {
	case h.RegisterCh <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes c and closes it if it is still registered.
func (h *Hub) Unregister(c Client) {
	select {
	case h.UnregisterCh <- c:
	case <-h.done:
	}
}

// Deliver hands ev to the hub for local fan-out.
func (h *Hub) Deliver(ctx context.Context, ev models.ComplaintEvent) {
	select {
	case h.EventCh <- ev:
	case <-ctx.Done():
	case <-h.done:
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	reply := make(chan int, 1)
	select {
	case h.countCh <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}
