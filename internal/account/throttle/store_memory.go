package throttle

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore is the fallback failure counter when Redis is not configured.
// Single-process only.
type InMemoryStore struct {
	mu      sync.Mutex
	window  time.Duration
	entries map[string]*windowEntry
	now     func() time.Time
}

type windowEntry struct {
	count     int
	expiresAt time.Time
}

func NewInMemory(window time.Duration) *InMemoryStore {
	if window <= 0 {
		window = DefaultWindow
	}
	return &InMemoryStore{
		window:  window,
		entries: make(map[string]*windowEntry),
		now:     time.Now,
	}
}

func (s *InMemoryStore) RecordFailure(ctx context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	e, ok := s.entries[key]
	if !ok || !now.Before(e.expiresAt) {
		e = &windowEntry{expiresAt: now.Add(s.window)}
		s.entries[key] = e
	}
	e.count++
	return e.count, nil
}

func (s *InMemoryStore) Failures(ctx context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return 0, nil
	}
	return e.count, nil
}

func (s *InMemoryStore) Clear(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
