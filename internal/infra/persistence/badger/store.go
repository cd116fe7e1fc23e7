// Package badger provides an embedded Badger-backed persistent store. It
// mirrors the in-memory transaction semantics and writes the state snapshot
// to a handful of keys after every successful transaction.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"plancore/internal/infra/persistence/memory"
	"plancore/internal/infra/persistence/retry"
	"plancore/pkg/domain"

	badger "github.com/dgraph-io/badger/v4"
)

var _ domain.PersistentStore = (*Store)(nil)

// Config holds the options for opening a Badger-backed store.
type Config struct {
	// Dir is the database directory. Required unless InMemory is set.
	Dir string
	// InMemory disables disk persistence; useful for tests.
	InMemory bool
	// SyncWrites forces fsync on every write.
	SyncWrites bool
}

// Store persists state to Badger while reusing the in-memory implementation
// for transactions.
type Store struct {
	*memory.Store
	db *badger.DB
	mu sync.Mutex
}

const (
	keyScenarios = "state/scenarios"
	keyOverlays  = "state/overlays"
	keyCanonical = "state/canonical"
	keyCommits   = "state/commits"
)

var badgerKeys = []string{keyScenarios, keyOverlays, keyCanonical, keyCommits}

// NewStore opens a Badger-backed store and hydrates it from any existing
// snapshot.
func NewStore(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Dir == "" {
		return nil, errors.New("badger: dir is required for persistent database")
	}
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Dir)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, domain.ErrStorageUnavailable{Op: "open badger", Err: err}
	}
	s := &Store{Store: memory.NewStore(), db: db}
	if err := retry.Do(context.Background(), retry.DefaultAttempts, retry.DefaultDelay, s.load); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	var snapshot memory.Snapshot
	loaded := false
	err := s.db.View(func(txn *badger.Txn) error {
		targets := map[string]any{
			keyScenarios: &snapshot.Scenarios,
			keyOverlays:  &snapshot.Overlays,
			keyCanonical: &snapshot.Canonical,
			keyCommits:   &snapshot.Commits,
		}
		for key, target := range targets {
			item, err := txn.Get([]byte(key))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if err := item.Value(func(val []byte) error {
				if len(val) == 0 {
					return nil
				}
				if err := json.Unmarshal(val, target); err != nil {
					return fmt.Errorf("decode %s: %w", key, err)
				}
				loaded = true
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.ErrStorageUnavailable{Op: "load snapshot", Err: err}
	}
	if loaded {
		s.ImportState(snapshot)
	}
	return nil
}

func (s *Store) persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	payloads := make(map[string][]byte, len(badgerKeys))
	for _, key := range badgerKeys {
		var data []byte
		var err error
		switch key {
		case keyScenarios:
			data, err = json.Marshal(snapshot.Scenarios)
		case keyOverlays:
			data, err = json.Marshal(snapshot.Overlays)
		case keyCanonical:
			data, err = json.Marshal(snapshot.Canonical)
		case keyCommits:
			data, err = json.Marshal(snapshot.Commits)
		}
		if err != nil {
			return err
		}
		payloads[key] = data
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, key := range badgerKeys {
			if err := txn.Set([]byte(key), payloads[key]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.ErrStorageUnavailable{Op: "persist snapshot", Err: err}
	}
	return nil
}

// RunInTransaction applies the provided function within a transaction, then
// snapshots state to Badger if successful. Snapshot writes are retried a
// bounded number of times before StorageUnavailable reaches the caller.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) error {
	if err := s.Store.RunInTransaction(ctx, fn); err != nil {
		return err
	}
	return retry.Do(ctx, retry.DefaultAttempts, retry.DefaultDelay, s.persist)
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
