package state

import (
	"slices"
	"sync"
)

// Event names what changed in a session.
type Event string

const (
	EventObject    Event = "object"
	EventAnimation Event = "animation"
	EventFPS       Event = "fps"
	EventDuration  Event = "duration"
	EventSpeed     Event = "speed"
	EventFrames    Event = "frames" // a load completed and frames are playable
	EventFailed    Event = "failed" // a load failed and the store is not ready
)

// Observer receives session events synchronously, outside session locks.
type Observer func(Event)

// Subject is a set of observers with explicit unsubscribe.
type Subject struct {
	mu        sync.Mutex
	next      int
	observers map[int]Observer
}

// Subscribe registers fn and returns a func that removes it.
func (s *Subject) Subscribe(fn Observer) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.observers == nil {
		s.observers = make(map[int]Observer)
	}
	id := s.next
	s.next++
	s.observers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.observers, id)
			s.mu.Unlock()
		})
	}
}

// Notify calls every observer in subscription order.
func (s *Subject) Notify(ev Event) {
	s.mu.Lock()
	ids := make([]int, 0, len(s.observers))
	for id := range s.observers {
		ids = append(ids, id)
	}
	fns := make([]Observer, 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, s.observers[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Len returns the number of observers.
func (s *Subject) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observers)
}

func (s *Subject) reset() {
	s.mu.Lock()
	s.observers = nil
	s.mu.Unlock()
}
