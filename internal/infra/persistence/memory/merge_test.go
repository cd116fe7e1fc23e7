package memory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"plancore/pkg/domain"
)

func mergeBranch(t *testing.T, store *Store, branchID string) (domain.Scenario, []domain.MergeWarning) {
	t.Helper()
	var merged domain.Scenario
	var warnings []domain.MergeWarning
	err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		merged, warnings, err = tx.MergeScenario(branchID, "merger")
		return err
	})
	if err != nil {
		t.Fatalf("merge %s: %v", branchID, err)
	}
	return merged, warnings
}

func TestMergeFoldsBranchOntoParent(t *testing.T) {
	store, _ := newTestStore(t)
	baseline := createBaseline(t, store)
	branch := createBranch(t, store, baseline.ID, "hiring-freeze")

	putEntity(t, store, baseline.ID, domain.EntityProject, "p1", `{"id":"p1","name":"old"}`)
	putEntity(t, store, branch.ID, domain.EntityProject, "p1", `{"id":"p1","name":"new"}`)
	putEntity(t, store, branch.ID, domain.EntityPerson, "carol", `{"id":"carol"}`)
	removeEntity(t, store, branch.ID, domain.EntityAssignment, "a1")

	merged, warnings := mergeBranch(t, store, branch.ID)
	if merged.Status != domain.StatusMerged {
		t.Fatalf("status = %s, want merged", merged.Status)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %+v", warnings)
	}

	// branch values won on the parent
	res := resolve(t, store, baseline.ID, domain.EntityProject, "p1")
	if string(res.Payload) != `{"id":"p1","name":"new"}` {
		t.Fatalf("parent payload = %s", res.Payload)
	}
	if res := resolve(t, store, baseline.ID, domain.EntityPerson, "carol"); !res.Present {
		t.Fatal("added entity missing on parent")
	}
	if res := resolve(t, store, baseline.ID, domain.EntityAssignment, "a1"); res.Present {
		t.Fatal("tombstone did not propagate to parent")
	}

	// parent and merged branch now resolve identically
	for _, probe := range []struct {
		entityType domain.EntityType
		id         string
	}{
		{domain.EntityProject, "p1"},
		{domain.EntityPerson, "carol"},
		{domain.EntityAssignment, "a1"},
	} {
		parentRes := resolve(t, store, baseline.ID, probe.entityType, probe.id)
		branchRes := resolve(t, store, branch.ID, probe.entityType, probe.id)
		if parentRes.Present != branchRes.Present || string(parentRes.Payload) != string(branchRes.Payload) {
			t.Fatalf("post-merge divergence on %s %s", probe.entityType, probe.id)
		}
	}
}

func TestMergeIsTerminal(t *testing.T) {
	store, _ := newTestStore(t)
	baseline := createBaseline(t, store)
	branch := createBranch(t, store, baseline.ID, "one-shot")
	putEntity(t, store, branch.ID, domain.EntityProject, "p1", `{"id":"p1"}`)
	mergeBranch(t, store, branch.ID)

	// second merge rejected
	err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, _, err := tx.MergeScenario(branch.ID, "merger")
		return err
	})
	var notMergeable domain.ErrNotMergeable
	if !errors.As(err, &notMergeable) {
		t.Fatalf("expected ErrNotMergeable, got %v", err)
	}

	// writes to the merged branch rejected
	err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.PutOverlay(branch.ID, domain.EntityProject, "p2", json.RawMessage(`{}`), "tester", "")
		return err
	})
	var immutable domain.ErrScenarioImmutable
	if !errors.As(err, &immutable) {
		t.Fatalf("expected ErrScenarioImmutable, got %v", err)
	}

	// archiving the merged branch rejected: merged is already terminal
	err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.ArchiveScenario(branch.ID)
		return err
	})
	var terminal domain.ErrAlreadyTerminal
	if !errors.As(err, &terminal) {
		t.Fatalf("expected ErrAlreadyTerminal, got %v", err)
	}

	// merged branch still resolves for comparisons
	if res := resolve(t, store, branch.ID, domain.EntityProject, "p1"); !res.Present {
		t.Fatal("merged branch lost read access to its entries")
	}
}

func TestMergeBaselineRejected(t *testing.T) {
	store, _ := newTestStore(t)
	baseline := createBaseline(t, store)
	err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, _, err := tx.MergeScenario(baseline.ID, "merger")
		return err
	})
	var notMergeable domain.ErrNotMergeable
	if !errors.As(err, &notMergeable) {
		t.Fatalf("expected ErrNotMergeable, got %v", err)
	}
}

func TestMergeIntoImmutableParentRejected(t *testing.T) {
	store, _ := newTestStore(t)
	baseline := createBaseline(t, store)
	parent := createBranch(t, store, baseline.ID, "parent")
	child := createBranch(t, store, parent.ID, "child")
	putEntity(t, store, child.ID, domain.EntityProject, "p1", `{"id":"p1"}`)
	err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, err := tx.ArchiveScenario(parent.ID)
		return err
	})
	if err != nil {
		t.Fatalf("archive parent: %v", err)
	}

	err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, _, err := tx.MergeScenario(child.ID, "merger")
		return err
	})
	var immutable domain.ErrScenarioImmutable
	if !errors.As(err, &immutable) {
		t.Fatalf("expected ErrScenarioImmutable, got %v", err)
	}
}

func TestMergeEmptyBranchSucceeds(t *testing.T) {
	store, _ := newTestStore(t)
	baseline := createBaseline(t, store)
	branch := createBranch(t, store, baseline.ID, "idle")
	merged, warnings := mergeBranch(t, store, branch.ID)
	if merged.Status != domain.StatusMerged {
		t.Fatalf("status = %s", merged.Status)
	}
	if len(warnings) != 0 {
		t.Fatalf("warnings = %+v", warnings)
	}
}

func TestMergeReportsParentDivergence(t *testing.T) {
	store, clock := newTestStore(t)
	baseline := createBaseline(t, store)
	putEntity(t, store, baseline.ID, domain.EntityProject, "p1", `{"id":"p1","name":"v1"}`)

	clock.Advance(time.Hour)
	branch := createBranch(t, store, baseline.ID, "late-fork")
	clock.Advance(time.Hour)
	putEntity(t, store, branch.ID, domain.EntityProject, "p1", `{"id":"p1","name":"branch"}`)

	// parent edits the same key after the fork
	clock.Advance(time.Hour)
	putEntity(t, store, baseline.ID, domain.EntityProject, "p1", `{"id":"p1","name":"parent-later"}`)
	// and a different key, which must not warn
	putEntity(t, store, baseline.ID, domain.EntityPerson, "dave", `{"id":"dave"}`)

	clock.Advance(time.Hour)
	_, warnings := mergeBranch(t, store, branch.ID)
	if len(warnings) != 1 {
		t.Fatalf("warnings = %+v, want exactly one", warnings)
	}
	if warnings[0].Code != domain.WarningParentDiverged {
		t.Fatalf("warning code = %s", warnings[0].Code)
	}

	// branch still won
	res := resolve(t, store, baseline.ID, domain.EntityProject, "p1")
	if string(res.Payload) != `{"id":"p1","name":"branch"}` {
		t.Fatalf("parent payload = %s", res.Payload)
	}
}

func TestMergeRecordsCommits(t *testing.T) {
	store, _ := newTestStore(t)
	baseline := createBaseline(t, store)
	branch := createBranch(t, store, baseline.ID, "tracked")
	putEntity(t, store, branch.ID, domain.EntityProject, "p1", `{"id":"p1"}`)
	putEntity(t, store, branch.ID, domain.EntityPerson, "erin", `{"id":"erin"}`)
	mergeBranch(t, store, branch.ID)

	merges := store.History(domain.HistoryFilter{ScenarioID: baseline.ID})
	count := 0
	for _, rec := range merges {
		if rec.Action == domain.CommitMerge {
			count++
		}
	}
	if count != 2 {
		t.Fatalf("merge commits on parent = %d, want 2", count)
	}
}
