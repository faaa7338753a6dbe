// ABOUTME: In-memory fan-out of stream events to each user's open SSE connections
// ABOUTME: A user may hold several streams; each gets its own buffered channel

package devserver

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// subscriberBufferSize is the channel buffer for each open stream.
const subscriberBufferSize = 64

// Event is one frame to push: an SSE event name and a JSON-encodable payload.
type Event struct {
	Name string
	Data any
}

// Hub routes events to the streams of connected users.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]chan Event // userID -> subID -> ch
	logger      *slog.Logger
}

// NewHub creates a hub. Pass nil logger for default.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subscribers: make(map[string]map[string]chan Event),
		logger:      logger.With("component", "hub"),
	}
}

// Subscribe opens a stream for userID. The stream is removed, and its channel
// closed, when ctx ends.
func (h *Hub) Subscribe(ctx context.Context, userID string) (<-chan Event, string) {
	subID := uuid.New().String()
	ch := make(chan Event, subscriberBufferSize)

	h.mu.Lock()
	if _, ok := h.subscribers[userID]; !ok {
		h.subscribers[userID] = make(map[string]chan Event)
	}
	h.subscribers[userID][subID] = ch
	h.mu.Unlock()

	h.logger.Debug("stream opened", "user_id", userID, "sub_id", subID)

	context.AfterFunc(ctx, func() {
		h.Unsubscribe(userID, subID)
	})

	return ch, subID
}

// Publish sends ev to every stream of userID. Streams whose buffers are full
// miss the event.
func (h *Hub) Publish(userID string, ev Event) {
	// Held across sends so Unsubscribe cannot close a channel mid-send.
	h.mu.RLock()
	defer h.mu.RUnlock()

	h.send(h.subscribers[userID], ev, userID)
}

// Broadcast sends ev to every connected user except exceptUserID.
func (h *Hub) Broadcast(ev Event, exceptUserID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for userID, subs := range h.subscribers {
		if userID != exceptUserID {
			h.send(subs, ev, userID)
		}
	}
}

// Connected reports how many streams userID has open.
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[userID])
}

func (h *Hub) send(targets map[string]chan Event, ev Event, userID string) {
	for _, ch := range targets {
		select {
		case ch <- ev:
		default:
			h.logger.Warn("dropped event for slow stream", "event", ev.Name, "user_id", userID)
		}
	}
}

// Unsubscribe removes a stream and closes its channel.
func (h *Hub) Unsubscribe(userID, subID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.subscribers[userID]
	if !ok {
		return
	}
	ch, ok := subs[subID]
	if !ok {
		return
	}

	delete(subs, subID)
	close(ch)
	if len(subs) == 0 {
		delete(h.subscribers, userID)
	}

	h.logger.Debug("stream closed", "user_id", userID, "sub_id", subID)
}

// Close closes every open stream.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, subs := range h.subscribers {
		for subID, ch := range subs {
			close(ch)
			delete(subs, subID)
		}
		delete(h.subscribers, userID)
	}
}
