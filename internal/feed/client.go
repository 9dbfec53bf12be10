// Package feed pushes complaint events to connected admin and worker
// dashboards.
package feed

import "fixmycity/backend/internal/models"

// Client is one live dashboard connection.
type Client interface {
	// ID identifies the connection in the hub.
	ID() string
	// DepartmentID scopes delivered events. Empty receives every event.
	DepartmentID() string
	// SendChannel is written by the hub and drained by the client.
	SendChannel() chan<- models.ComplaintEvent
	// Run starts the client's pumps.
	Run()
	// Close releases the send channel.
	Close()
}

// Wants reports whether c should receive ev.
func Wants(c Client, ev models.ComplaintEvent) bool {
	dept := c.DepartmentID()
	return dept == "" || dept == ev.DepartmentID
}
