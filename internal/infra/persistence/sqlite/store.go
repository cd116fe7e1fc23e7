// Package sqlite provides an embedded SQLite-backed persistent store. It
// reuses the in-memory implementation for transaction semantics and snapshots
// the full state to a single JSON-bucket table after every successful write.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"plancore/internal/infra/persistence/memory"
	"plancore/internal/infra/persistence/retry"
	"plancore/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ domain.PersistentStore = (*Store)(nil)

// Store persists the in-memory state to a single SQLite table as JSON blobs.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore constructs a snapshotting SQLite-backed persistent store.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "plancore.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, domain.ErrStorageUnavailable{Op: "open sqlite", Err: err}
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, domain.ErrStorageUnavailable{Op: "create state table", Err: err}
	}
	s := &Store{Store: memory.NewStore(), db: db, path: path}
	if err := retry.Do(context.Background(), retry.DefaultAttempts, retry.DefaultDelay, s.load); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

const (
	bucketScenarios = "scenarios"
	bucketOverlays  = "overlays"
	bucketCanonical = "canonical"
	bucketCommits   = "commits"
)

var sqliteBuckets = []string{bucketScenarios, bucketOverlays, bucketCanonical, bucketCommits}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		return domain.ErrStorageUnavailable{Op: "select state", Err: err}
	}
	defer func() { _ = rows.Close() }()
	var snapshot memory.Snapshot
	loaded := false
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return domain.ErrStorageUnavailable{Op: "scan state", Err: err}
		}
		if len(payload) == 0 {
			continue
		}
		var target any
		switch bucket {
		case bucketScenarios:
			target = &snapshot.Scenarios
		case bucketOverlays:
			target = &snapshot.Overlays
		case bucketCanonical:
			target = &snapshot.Canonical
		case bucketCommits:
			target = &snapshot.Commits
		default:
			continue
		}
		if err := json.Unmarshal(payload, target); err != nil {
			return fmt.Errorf("decode %s: %w", bucket, err)
		}
		loaded = true
	}
	if err := rows.Err(); err != nil {
		return domain.ErrStorageUnavailable{Op: "iterate state", Err: err}
	}
	if loaded {
		s.ImportState(snapshot)
	}
	return nil
}

func (s *Store) persist() (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	tx, err := s.db.Begin()
	if err != nil {
		return domain.ErrStorageUnavailable{Op: "begin tx", Err: err}
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range sqliteBuckets {
		var data []byte
		switch bucket {
		case bucketScenarios:
			data, err = json.Marshal(snapshot.Scenarios)
		case bucketOverlays:
			data, err = json.Marshal(snapshot.Overlays)
		case bucketCanonical:
			data, err = json.Marshal(snapshot.Canonical)
		case bucketCommits:
			data, err = json.Marshal(snapshot.Commits)
		}
		if err != nil {
			retErr = err
			return retErr
		}
		if _, err = tx.Exec(`INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
			retErr = domain.ErrStorageUnavailable{Op: "upsert " + bucket, Err: err}
			return retErr
		}
	}
	if err = tx.Commit(); err != nil {
		return domain.ErrStorageUnavailable{Op: "commit", Err: err}
	}
	return nil
}

// RunInTransaction applies the provided function within a transaction, then
// snapshots state to SQLite if successful. Snapshot writes are retried a
// bounded number of times before StorageUnavailable reaches the caller.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) error {
	if err := s.Store.RunInTransaction(ctx, fn); err != nil {
		return err
	}
	return retry.Do(ctx, retry.DefaultAttempts, retry.DefaultDelay, s.persist)
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
