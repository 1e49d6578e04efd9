package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/dan-solli/kinship/pkg/graph"
)

// DriverPure is the database/sql name of the pure-Go SQLite driver.
const DriverPure = "sqlite"

// SQLiteSnapshotStore implements SnapshotStore using SQLite as the backend.
type SQLiteSnapshotStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteSnapshotStore creates a new SQLite-backed snapshot store using the
// pure-Go driver. The dbPath can be a file path or ":memory:".
// Creates tables and indexes if they don't exist.
func NewSQLiteSnapshotStore(dbPath string) (*SQLiteSnapshotStore, error) {
	return NewSQLiteSnapshotStoreWithDriver(DriverPure, dbPath)
}

// NewSQLiteSnapshotStoreWithDriver opens dbPath with a registered SQLite driver.
func NewSQLiteSnapshotStoreWithDriver(driver, dbPath string) (*SQLiteSnapshotStore, error) {
	db, err := sql.Open(driver, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// :memory: databases are per-connection
	db.SetMaxOpenConns(1)

	store := &SQLiteSnapshotStore{db: db, now: time.Now}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the database schema if it doesn't exist.
func (s *SQLiteSnapshotStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		key TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		node_count INTEGER NOT NULL DEFAULT 0,
		root_id TEXT,
		saved_at INTEGER NOT NULL,
		expires_at INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_expires ON snapshots(expires_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Save stores snap under key (INSERT OR REPLACE by key).
func (s *SQLiteSnapshotStore) Save(ctx context.Context, key string, snap graph.Snapshot, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}

	now := s.now()
	var expiresAt sql.NullInt64
	if ttl > 0 {
		expiresAt = sql.NullInt64{Int64: now.Add(ttl).UnixNano(), Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO snapshots (key, payload, saved_at, expires_at, node_count, root_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		key, data, now.UnixNano(), expiresAt, len(snap.Nodes), snap.Root.ID)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Load returns the snapshot under key, or nil if missing or expired.
// Expired rows are deleted on read.
func (s *SQLiteSnapshotStore) Load(ctx context.Context, key string) (*graph.Snapshot, error) {
	var data []byte
	var expiresAt sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		"SELECT payload, expires_at FROM snapshots WHERE key = ?", key).Scan(&data, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	if expiresAt.Valid && s.now().UnixNano() >= expiresAt.Int64 {
		if err := s.Delete(ctx, key); err != nil {
			return nil, err
		}
		return nil, nil
	}

	return decodeSnapshot(data)
}

// Delete removes key.
func (s *SQLiteSnapshotStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// PurgeExpired deletes every expired row and returns how many were removed.
func (s *SQLiteSnapshotStore) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM snapshots WHERE expires_at IS NOT NULL AND expires_at <= ?", s.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired snapshots: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of stored snapshots, expired or not.
func (s *SQLiteSnapshotStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM snapshots").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return count, nil
}

// Close closes the database connection.
func (s *SQLiteSnapshotStore) Close() error {
	return s.db.Close()
}
