// Package events fans post change events out to stream subscribers.
package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/garcia/facebook-api/internal/domain"
)

// DefaultBuffer is the per-subscriber channel capacity used by NewHub.
const DefaultBuffer = 64

// Hub delivers published events to every current subscriber. A subscriber
// whose buffer is full misses the event; publishers never block.
type Hub struct {
	mu     sync.RWMutex
	subs   map[chan domain.PostEvent]struct{}
	buffer int
	logger *slog.Logger
}

// NewHub creates a Hub. A buffer below 1 falls back to DefaultBuffer.
func NewHub(buffer int, logger *slog.Logger) *Hub {
	if buffer < 1 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subs:   make(map[chan domain.PostEvent]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

// Publish implements domain.EventPublisher.
func (h *Hub) Publish(_ context.Context, event domain.PostEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs {
		select {
		case ch <- event:
		default:
			h.logger.Warn("dropping event for slow subscriber", "event_id", event.ID, "type", event.Type)
		}
	}
	return nil
}

// Subscribe registers a new subscriber. The returned cancel func unregisters
// it and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe() (<-chan domain.PostEvent, func()) {
	ch := make(chan domain.PostEvent, h.buffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Subscribers returns the number of registered subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
