package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	record    Record
	expiresAt time.Time
}

// MemoryStore keeps chart records in process memory. It is the default
// backend when no Redis URL is configured; charts do not survive a restart.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

// NewMemoryStore creates an in-memory chart store
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
	}
}

// Get retrieves a chart record, sweeping expired entries as a side effect
func (s *MemoryStore) Get(ctx context.Context, chartID string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(time.Now())

	entry, ok := s.entries[chartID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return entry.record, nil
}

// Put stores a chart record and refreshes its expiration
func (s *MemoryStore) Put(ctx context.Context, chartID string, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.sweepLocked(now)
	s.entries[chartID] = memoryEntry{
		record:    record,
		expiresAt: now.Add(s.ttl),
	}
	return nil
}

// Delete removes a chart record
func (s *MemoryStore) Delete(ctx context.Context, chartID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, chartID)
	return nil
}

// Ping always succeeds for the in-memory backend
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for the in-memory backend
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) sweepLocked(now time.Time) {
	for id, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, id)
		}
	}
}
