package history

import "sync"

// MemoryStore keeps history in memory only (no persistence).
type MemoryStore struct {
	events   []Event
	maxCount int
	mu       sync.Mutex
}

// NewMemoryStore creates a new in-memory store holding at most maxCount
// events. A non-positive maxCount means no limit.
func NewMemoryStore(maxCount int) *MemoryStore {
	return &MemoryStore{
		events:   make([]Event, 0),
		maxCount: maxCount,
	}
}

// Events returns a copy of all events, most recent first.
func (s *MemoryStore) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Event, len(s.events))
	copy(result, s.events)
	return result
}

// Save stores an event in memory.
func (s *MemoryStore) Save(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = e.CalculateID()
	}

	// Prepend to keep most recent first
	s.events = append([]Event{e}, s.events...)
	if s.maxCount > 0 && len(s.events) > s.maxCount {
		s.events = s.events[:s.maxCount]
	}
	return nil
}
