package sinks

import (
	"context"
	"sync"

	"github.com/moonhappy/biophage-xna-2009-sub001/logging"
)

// MemorySink retains the events it receives, optionally only the most recent
// ones. It doubles as a synchronous logging.Publisher so tests can observe
// events without a Router.
type MemorySink struct {
	mu     sync.RWMutex
	limit  int
	events []logging.Event
}

// NewMemorySink retains every event.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// NewBoundedMemorySink keeps the last limit events; older ones are evicted.
func NewBoundedMemorySink(limit int) *MemorySink {
	return &MemorySink{limit: max(limit, 1)}
}

func (s *MemorySink) Write(event logging.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(event.Targets) > 0 {
		event.Targets = append([]logging.EntityRef(nil), event.Targets...)
	}
	if s.limit > 0 && len(s.events) == s.limit {
		copy(s.events, s.events[1:])
		s.events[len(s.events)-1] = event
		return nil
	}
	s.events = append(s.events, event)
	return nil
}

func (s *MemorySink) Publish(_ context.Context, event logging.Event) {
	_ = s.Write(event)
}

// Events returns a copy of the retained events, oldest first.
func (s *MemorySink) Events() []logging.Event {
	return s.Last(0)
}

// Last returns up to n of the newest events, oldest first. n <= 0 means all.
func (s *MemorySink) Last(n int) []logging.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := 0
	if n > 0 && n < len(s.events) {
		start = len(s.events) - n
	}
	return append([]logging.Event(nil), s.events[start:]...)
}

// OfType returns the retained events with the given type, oldest first.
func (s *MemorySink) OfType(eventType logging.EventType) []logging.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []logging.Event
	for _, event := range s.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

func (s *MemorySink) Close(context.Context) error {
	return nil
}
