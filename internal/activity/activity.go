// Package activity fan-outs document lifecycle events to live subscribers
// (SSE clients).
package activity

import (
	"context"
	"sync"
	"time"
)

// EventType classifies a lifecycle event.
type EventType string

const (
	EventUploaded EventType = "uploaded"
	EventEdited   EventType = "edited"
	EventShared   EventType = "shared"
	EventDeleted  EventType = "deleted"
)

// Event describes one document action for the activity feed.
type Event struct {
	Type      EventType `json:"type"`
	DocID     string    `json:"doc_id"`
	DocTitle  string    `json:"doc_title"`
	ActorID   string    `json:"actor_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Stream fan-outs events to all active subscribers.
type Stream struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber and returns a channel which will receive
// events. The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to all subscribers.
func (s *Stream) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}
