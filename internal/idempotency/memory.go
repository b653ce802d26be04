package idempotency

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value   string
	expires time.Time
}

// memoryStore implements Store in process memory. It is used when Redis is
// disabled and only protects a single instance.
type memoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates an in-memory store. A non-positive ttl uses
// DefaultTTL.
func NewMemoryStore(ttl time.Duration) Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &memoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *memoryStore) Begin(ctx context.Context, key string) (Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[key]; ok && now.Before(e.expires) {
		if e.value == pendingMarker {
			return Claim{}, ErrInProgress
		}
		return Claim{OrderID: e.value}, nil
	}

	s.entries[key] = memoryEntry{value: pendingMarker, expires: now.Add(s.ttl)}
	s.sweep(now)
	return Claim{Acquired: true}, nil
}

func (s *memoryStore) Complete(ctx context.Context, key, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = memoryEntry{value: orderID, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *memoryStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok && e.value == pendingMarker {
		delete(s.entries, key)
	}
	return nil
}

// sweep drops expired entries. Callers hold mu.
func (s *memoryStore) sweep(now time.Time) {
	for k, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, k)
		}
	}
}
