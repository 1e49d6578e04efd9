package store

import (
	"context"
	"sync"
	"time"

	"github.com/dan-solli/kinship/pkg/graph"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemorySnapshotStore keeps encoded snapshots in process memory.
// Entries are stored encoded so callers can never alias a cached graph.
type MemorySnapshotStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemorySnapshotStore creates an empty in-memory store.
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Save stores snap under key.
func (s *MemorySnapshotStore) Save(ctx context.Context, key string, snap graph.Snapshot, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}

	entry := memoryEntry{data: data}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry
	return nil
}

// Load returns the snapshot under key, or nil if missing or expired.
func (s *MemorySnapshotStore) Load(ctx context.Context, key string) (*graph.Snapshot, error) {
	s.mu.Lock()
	entry, ok := s.entries[key]
	if ok && !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt) {
		delete(s.entries, key)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return nil, nil
	}
	return decodeSnapshot(entry.data)
}

// Delete removes key.
func (s *MemorySnapshotStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Close drops all entries.
func (s *MemorySnapshotStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]memoryEntry)
	return nil
}
