package domain

import (
	"context"
	"encoding/json"
)

// ScenarioFilter narrows a scenario listing. Zero values match everything.
type ScenarioFilter struct {
	Kind   ScenarioKind
	Status ScenarioStatus
}

// Matches reports whether the scenario satisfies the filter.
func (f ScenarioFilter) Matches(s Scenario) bool {
	if f.Kind != "" && s.Kind != f.Kind {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	return true
}

// Transaction exposes the mutations a persistence implementation must support
// within an atomic scope. Every method either fully applies or leaves the
// store untouched when the enclosing transaction returns an error.
type Transaction interface {
	// CreateScenario registers a new scenario. Baselines require no parent;
	// branches and sandboxes require an active base scenario.
	CreateScenario(Scenario) (Scenario, error)
	// ArchiveScenario moves an active scenario to archived.
	ArchiveScenario(id string) (Scenario, error)
	// PutOverlay upserts a present entry and emits a commit record.
	PutOverlay(scenarioID string, entityType EntityType, entityID string, payload json.RawMessage, author, message string) (OverlayEntry, error)
	// RemoveOverlay writes a tombstone entry and emits a commit record.
	RemoveOverlay(scenarioID string, entityType EntityType, entityID string, author, message string) (OverlayEntry, error)
	// MergeScenario folds the branch overlay onto its parent, marks the branch
	// merged, and emits one commit record per folded entry.
	MergeScenario(branchID, author string) (Scenario, []MergeWarning, error)
	// SeedCanonical installs or replaces a canonical baseline record.
	SeedCanonical(entityType EntityType, entityID string, payload json.RawMessage) error
	// Snapshot exposes the transactional state for reads within the same scope.
	Snapshot() TransactionView
}

// TransactionView provides read-only access to a consistent snapshot of the
// store. Implementations must guarantee that every read within one view
// observes the same instant.
type TransactionView interface {
	GetScenario(id string) (Scenario, bool)
	ListScenarios(ScenarioFilter) []Scenario
	// EntriesFor returns the overlay entries belonging to exactly this
	// scenario, never resolved through ancestors.
	EntriesFor(scenarioID string) ([]OverlayEntry, error)
	// Resolve walks the scenario's parent chain for the entity, honoring
	// tombstones, and falls through to the canonical records at the baseline.
	Resolve(scenarioID string, entityType EntityType, entityID string) (Resolution, error)
	// EffectiveSet materializes every entity of the given type visible from
	// the scenario, excluding tombstoned ids.
	EffectiveSet(scenarioID string, entityType EntityType) (map[string]json.RawMessage, error)
	// History returns commit records matching the filter, newest first.
	History(HistoryFilter) []CommitRecord
}

// PersistentStore is the abstraction over durable backends. It mirrors the
// subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) error
	View(ctx context.Context, fn func(TransactionView) error) error
	GetScenario(id string) (Scenario, bool)
	ListScenarios(ScenarioFilter) []Scenario
	History(HistoryFilter) []CommitRecord
}
