// Package store provides snapshot caches for reconciled family graphs.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dan-solli/kinship/pkg/graph"
)

// SnapshotStore persists graph snapshots between sessions.
// Implementations enforce TTL themselves; callers never check expiry.
type SnapshotStore interface {
	// Save stores snap under key, replacing any previous value.
	// A ttl of zero or less means the entry never expires.
	Save(ctx context.Context, key string, snap graph.Snapshot, ttl time.Duration) error

	// Load returns the snapshot stored under key.
	// Returns (nil, nil) if the key is missing or expired.
	Load(ctx context.Context, key string) (*graph.Snapshot, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the store.
	Close() error
}

// ErrEmptyKey is returned when a snapshot key is empty.
var ErrEmptyKey = errors.New("snapshot key is empty")

func encodeSnapshot(snap graph.Snapshot) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

func decodeSnapshot(data []byte) (*graph.Snapshot, error) {
	var snap graph.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}
