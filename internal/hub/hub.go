package hub

import (
	"encoding/json"
	"log"
	"strings"
	"sync"

	"github.com/lambalia/eats/internal/models"
)

// Hub maintains exactly one live channel per connected user id and delivers
// lifecycle/match events to the channels of the involved parties only.
// Delivery is at-most-once and best-effort: events emitted while a user is
// disconnected, or while their channel is full, are dropped. Clients
// re-derive current state through a pull query on reconnect.
type Hub struct {
	mu      sync.RWMutex
	conns   map[string]chan models.Event
	bufSize int
	sink    Sink
}

// NewHub creates a hub. sink may be nil; when set, every published event is
// also teed to it for the analytics feed.
func NewHub(bufferSize int, sink Sink) *Hub {
	if bufferSize < 1 {
		bufferSize = 16
	}
	return &Hub{
		conns:   make(map[string]chan models.Event),
		bufSize: bufferSize,
		sink:    sink,
	}
}

// Register opens the live channel for a user. A previous channel for the same
// user is closed first, so there is never more than one per user id.
func (h *Hub) Register(userID string) <-chan models.Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.conns[userID]; ok {
		close(old)
	}
	ch := make(chan models.Event, h.bufSize)
	h.conns[userID] = ch
	return ch
}

// Unregister closes and removes the user's live channel, if any.
func (h *Hub) Unregister(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.conns[userID]; ok {
		close(ch)
		delete(h.conns, userID)
	}
}

// Connected reports whether the user currently holds a live channel.
func (h *Hub) Connected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[userID]
	return ok
}

// Publish delivers the event to each named user's channel, never to anyone
// else. Sends never block: a full channel drops the event for that user.
func (h *Hub) Publish(event models.Event, userIDs ...string) {
	h.mu.RLock()
	for _, userID := range userIDs {
		ch, ok := h.conns[userID]
		if !ok {
			continue
		}
		select {
		case ch <- event:
		default:
			log.Printf("dropping %s event for %s: channel full", event.Type, userID)
		}
	}
	h.mu.RUnlock()

	if h.sink != nil {
		msg, err := json.Marshal(event)
		if err != nil {
			log.Printf("Error serializing event: %v", err)
			return
		}
		if err := h.sink.WriteMessage(sinkTopic(event.Type), msg); err != nil {
			log.Printf("Error writing event to sink: %v", err)
		}
	}
}

// Close tears down all live channels and the sink.
func (h *Hub) Close() error {
	h.mu.Lock()
	for userID, ch := range h.conns {
		close(ch)
		delete(h.conns, userID)
	}
	h.mu.Unlock()

	if h.sink != nil {
		return h.sink.Close()
	}
	return nil
}

// sinkTopic maps "order.created" to "order_created_events".
func sinkTopic(eventType string) string {
	return strings.ReplaceAll(eventType, ".", "_") + "_events"
}
