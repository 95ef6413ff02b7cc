package sinks

import (
	"context"
	"sync"

	"arena/server/logging"
)

// Memory retains events for inspection in tests and diagnostics.
type Memory struct {
	mu     sync.RWMutex
	events []logging.Event
}

func NewMemory() *Memory {
	return &Memory{}
}

func (s *Memory) Write(event logging.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, logging.CloneEvent(event))
	return nil
}

// Publish lets the sink act as a synchronous publisher in tests.
func (s *Memory) Publish(_ context.Context, event logging.Event) {
	_ = s.Write(event)
}

// Events returns a copy of the retained events.
func (s *Memory) Events() []logging.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := make([]logging.Event, len(s.events))
	copy(copied, s.events)
	return copied
}

// OfType filters retained events by type.
func (s *Memory) OfType(kind logging.EventType) []logging.Event {
	var out []logging.Event
	for _, event := range s.Events() {
		if event.Type == kind {
			out = append(out, event)
		}
	}
	return out
}

func (s *Memory) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = s.events[:0]
}

func (s *Memory) Close(context.Context) error {
	return nil
}
