package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dan-solli/kinship/pkg/graph"
)

// DefaultRedisPrefix namespaces snapshot keys.
const DefaultRedisPrefix = "kinship:snapshot:"

// RedisSnapshotStore keeps snapshots in Redis so several clients can share a
// cache. TTL is enforced by Redis through SET EX.
type RedisSnapshotStore struct {
	client *redis.Client
	prefix string
}

// NewRedisSnapshotStore wraps an existing client. An empty prefix uses
// DefaultRedisPrefix.
func NewRedisSnapshotStore(client *redis.Client, prefix string) *RedisSnapshotStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisSnapshotStore{client: client, prefix: prefix}
}

// DialRedisSnapshotStore connects to addr and verifies the connection.
func DialRedisSnapshotStore(ctx context.Context, addr string) (*RedisSnapshotStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return NewRedisSnapshotStore(client, ""), nil
}

func (s *RedisSnapshotStore) makeKey(key string) string {
	return s.prefix + key
}

// Save stores snap under key.
func (s *RedisSnapshotStore) Save(ctx context.Context, key string, snap graph.Snapshot, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.makeKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to SET snapshot %s: %w", key, err)
	}
	return nil
}

// Load returns the snapshot under key, or nil if missing or expired.
func (s *RedisSnapshotStore) Load(ctx context.Context, key string) (*graph.Snapshot, error) {
	data, err := s.client.Get(ctx, s.makeKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to GET snapshot %s: %w", key, err)
	}
	return decodeSnapshot(data)
}

// Delete removes key.
func (s *RedisSnapshotStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.makeKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to DEL snapshot %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying client.
func (s *RedisSnapshotStore) Close() error {
	return s.client.Close()
}
