package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Entry tracks failed-attempt state for one identifier. Entries are owned by
// the Limiter; stores hand out copies, never shared pointers.
type Entry struct {
	Identifier   string    `json:"identifier"`
	Attempts     int       `json:"attempts"`
	FirstAttempt time.Time `json:"first_attempt"`
	LastAttempt  time.Time `json:"last_attempt"`
	ResetTime    time.Time `json:"reset_time"`
	Blocked      bool      `json:"blocked"`
}

// Expired reports whether the entry must be treated as absent.
func (e *Entry) Expired(now time.Time) bool {
	return !now.Before(e.ResetTime)
}

// Store persists limiter entries keyed by identifier. Implementations return
// (nil, nil) from Get for missing identifiers. The Limiter serializes all
// access to a given identifier, so stores need only be safe for concurrent
// calls on distinct keys.
type Store interface {
	Get(ctx context.Context, identifier string) (*Entry, error)
	Put(ctx context.Context, entry *Entry) error
	Delete(ctx context.Context, identifier string) error
	// Entries returns a snapshot of all stored entries, expired ones included.
	Entries(ctx context.Context) ([]*Entry, error)
}

// MemoryStore is the default in-process Store: a mutex-guarded map.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Get(_ context.Context, identifier string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[identifier]
	if !ok {
		return nil, nil
	}
	out := e
	return &out, nil
}

func (s *MemoryStore) Put(_ context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.Identifier] = *entry
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, identifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, identifier)
	return nil
}

func (s *MemoryStore) Entries(_ context.Context) ([]*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		copied := e
		out = append(out, &copied)
	}
	return out, nil
}
