// Package notify carries human-readable events from the controller to
// whatever presents them. Subscribers receive notifications on their own
// buffered channel; a slow subscriber loses messages instead of blocking
// the publisher.
package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	Success Type = "success"
	Error   Type = "error"
	Info    Type = "info"
	Warning Type = "warning"
)

type Notification struct {
	ID            uuid.UUID `json:"id"`
	Type          Type      `json:"type"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	CompetitionID uuid.UUID `json:"competition_id,omitempty"`
	PlatformID    uuid.UUID `json:"platform_id,omitempty"`
	At            time.Time `json:"at"`
}

// Publisher is what the services depend on.
type Publisher interface {
	Publish(n Notification)
}

type Hub struct {
	mu     sync.Mutex
	subs   map[uint64]chan Notification
	nextID uint64
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]chan Notification)}
}

// Publish stamps n with an id and time when missing and fans it out.
func (h *Hub) Publish(n Notification) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.At.IsZero() {
		n.At = time.Now().UTC()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for id, ch := range h.subs {
		select {
		case ch <- n:
		default:
			slog.Warn("notification dropped", "subscriber", id, "title", n.Title)
		}
	}
}

// Subscribe returns a channel of notifications and a cancel func that closes it.
func (h *Hub) Subscribe(buffer int) (<-chan Notification, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Notification, buffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(ch)
			}
		})
	}
}

// Close closes every subscriber channel. Later publishes are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

func Successf(title, message string) Notification {
	return Notification{Type: Success, Title: title, Message: message}
}

func Failure(title string, err error) Notification {
	return Notification{Type: Error, Title: title, Message: err.Error()}
}
