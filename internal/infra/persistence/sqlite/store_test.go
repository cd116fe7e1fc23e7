package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"plancore/pkg/domain"
)

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStateSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plancore.db")
	ctx := context.Background()

	store := openStore(t, path)
	var baseline domain.Scenario
	err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		baseline, err = tx.CreateScenario(domain.Scenario{Name: "baseline", Kind: domain.KindBaseline})
		if err != nil {
			return err
		}
		if _, err := tx.PutOverlay(baseline.ID, domain.EntityPerson, "alice", json.RawMessage(`{"id":"alice","name":"Alice"}`), "tester", ""); err != nil {
			return err
		}
		return tx.SeedCanonical(domain.EntityProject, "apollo", json.RawMessage(`{"id":"apollo","name":"Apollo"}`))
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := openStore(t, path)
	got, ok := reopened.GetScenario(baseline.ID)
	if !ok || got.Name != "baseline" {
		t.Fatalf("scenario after reopen = (%+v, %v)", got, ok)
	}
	err = reopened.View(ctx, func(view domain.TransactionView) error {
		res, err := view.Resolve(baseline.ID, domain.EntityPerson, "alice")
		if err != nil {
			return err
		}
		if !res.Present {
			t.Fatalf("overlay entry lost across reopen")
		}
		canonical, err := view.Resolve(baseline.ID, domain.EntityProject, "apollo")
		if err != nil {
			return err
		}
		if !canonical.Present || canonical.Source != "" {
			t.Fatalf("canonical record lost across reopen: %+v", canonical)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
	if commits := reopened.History(domain.HistoryFilter{}); len(commits) == 0 {
		t.Fatalf("commit log lost across reopen")
	}
}

func TestFailedTransactionNotPersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plancore.db")
	ctx := context.Background()

	store := openStore(t, path)
	err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, err := tx.CreateScenario(domain.Scenario{Name: "baseline", Kind: domain.KindBaseline}); err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatalf("transaction error swallowed")
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := openStore(t, path)
	if scenarios := reopened.ListScenarios(domain.ScenarioFilter{}); len(scenarios) != 0 {
		t.Fatalf("rolled back write persisted: %+v", scenarios)
	}
}

func TestUnavailableBackendSurfacesAfterRetries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plancore.db")
	ctx := context.Background()

	store := openStore(t, path)
	if err := store.DB().Close(); err != nil {
		t.Fatalf("close handle: %v", err)
	}
	err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreateScenario(domain.Scenario{Name: "baseline", Kind: domain.KindBaseline})
		return err
	})
	var unavailable domain.ErrStorageUnavailable
	if !errors.As(err, &unavailable) {
		t.Fatalf("err = %v, want ErrStorageUnavailable", err)
	}
	if unavailable.Err == nil {
		t.Fatalf("driver error not wrapped: %+v", unavailable)
	}
}

func TestDefaultPath(t *testing.T) {
	dir := t.TempDir()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
	store := openStore(t, "")
	if store.Path() != "plancore.db" {
		t.Fatalf("path = %s", store.Path())
	}
}
