package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupRedisStore(t *testing.T) (*RedisSnapshotStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisSnapshotStore(client, "")
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestRedisSnapshotStore(t *testing.T) {
	store, _ := setupRedisStore(t)
	runSnapshotStoreTests(t, store)
}

func TestRedisSnapshotStore_TTL(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "k", testSnapshot(), time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if ttl := mr.TTL(DefaultRedisPrefix + "k"); ttl != time.Minute {
		t.Errorf("Expected ttl of 1m, got %v", ttl)
	}

	mr.FastForward(2 * time.Minute)

	got, err := store.Load(ctx, "k")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got != nil {
		t.Error("Expected nil after ttl elapsed")
	}
}

func TestRedisSnapshotStore_Prefix(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisSnapshotStore(client, "test:")
	defer store.Close()

	if err := store.Save(context.Background(), "fam", testSnapshot(), 0); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !mr.Exists("test:fam") {
		t.Error("Expected key under custom prefix")
	}
}

func TestDialRedisSnapshotStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	store, err := DialRedisSnapshotStore(context.Background(), mr.Addr())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	store.Close()

	mr.Close()
	if _, err := DialRedisSnapshotStore(context.Background(), mr.Addr()); err == nil {
		t.Error("Expected dial error against closed server")
	}
}
