// Package memory provides the in-memory scenario store that all durable
// backends wrap. Transactions run against a deep copy of the state and swap it
// in atomically on success, giving snapshot isolation for reads and
// all-or-nothing semantics for writes.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"plancore/pkg/domain"
)

type state struct {
	scenarios map[string]domain.Scenario
	overlays  map[string]map[domain.EntityKey]domain.OverlayEntry
	canonical map[domain.EntityType]map[string]json.RawMessage
	commits   []domain.CommitRecord
}

func newState() state {
	canonical := make(map[domain.EntityType]map[string]json.RawMessage, len(domain.EntityTypes))
	for _, t := range domain.EntityTypes {
		canonical[t] = make(map[string]json.RawMessage)
	}
	return state{
		scenarios: make(map[string]domain.Scenario),
		overlays:  make(map[string]map[domain.EntityKey]domain.OverlayEntry),
		canonical: canonical,
	}
}

func (s state) clone() state {
	cloned := newState()
	for id, sc := range s.scenarios {
		cloned.scenarios[id] = cloneScenario(sc)
	}
	for sid, entries := range s.overlays {
		bucket := make(map[domain.EntityKey]domain.OverlayEntry, len(entries))
		for key, entry := range entries {
			bucket[key] = entry.Clone()
		}
		cloned.overlays[sid] = bucket
	}
	for t, records := range s.canonical {
		bucket := cloned.canonical[t]
		for id, raw := range records {
			bucket[id] = append(json.RawMessage(nil), raw...)
		}
	}
	cloned.commits = append([]domain.CommitRecord(nil), s.commits...)
	return cloned
}

func cloneScenario(s domain.Scenario) domain.Scenario {
	cp := s
	if s.ParentID != nil {
		parent := *s.ParentID
		cp.ParentID = &parent
	}
	return cp
}

// Compile-time contract assertion.
var _ domain.PersistentStore = (*Store)(nil)

// Store is the in-memory implementation of domain.PersistentStore.
type Store struct {
	mu    sync.RWMutex
	state state
	nowFn func() time.Time
	idFn  func() string
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{
		state: newState(),
		nowFn: func() time.Time { return time.Now().UTC() },
		idFn:  uuid.NewString,
	}
}

// SetClock overrides the store clock; intended for tests.
func (s *Store) SetClock(now func() time.Time) { s.nowFn = now }

// RunInTransaction executes fn within a transactional copy of the store state.
// The copy replaces the live state only when fn returns nil.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

// View executes fn against a read-only snapshot of the store state. Every read
// within fn observes the same instant.
func (s *Store) View(ctx context.Context, fn func(domain.TransactionView) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(&view{state: &snapshot})
}

// GetScenario retrieves a scenario from committed state.
func (s *Store) GetScenario(id string) (domain.Scenario, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.state.scenarios[id]
	if !ok {
		return domain.Scenario{}, false
	}
	return cloneScenario(sc), true
}

// ListScenarios returns committed scenarios matching the filter, ordered by
// creation time then id.
func (s *Store) ListScenarios(filter domain.ScenarioFilter) []domain.Scenario {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listScenarios(&s.state, filter)
}

// History returns committed commit records matching the filter, newest first.
func (s *Store) History(filter domain.HistoryFilter) []domain.CommitRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return history(&s.state, filter)
}

func listScenarios(st *state, filter domain.ScenarioFilter) []domain.Scenario {
	out := make([]domain.Scenario, 0, len(st.scenarios))
	for _, sc := range st.scenarios {
		if filter.Matches(sc) {
			out = append(out, cloneScenario(sc))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func history(st *state, filter domain.HistoryFilter) []domain.CommitRecord {
	out := make([]domain.CommitRecord, 0, len(st.commits))
	for i := len(st.commits) - 1; i >= 0; i-- {
		rec := st.commits[i]
		if !filter.Matches(rec) {
			continue
		}
		out = append(out, rec)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out
}

// chainFor materializes the parent chain from the scenario to the baseline,
// nearest first. The walk is a bounded loop over parent pointers; a chain
// longer than the scenario count indicates a corrupted parent graph.
func chainFor(st *state, scenarioID string) ([]string, error) {
	chain := make([]string, 0, 4)
	current := scenarioID
	for {
		sc, ok := st.scenarios[current]
		if !ok {
			return nil, domain.ErrNotFound{Kind: "scenario", ID: current}
		}
		chain = append(chain, current)
		if len(chain) > len(st.scenarios) {
			return nil, fmt.Errorf("scenario %s has a cyclic parent chain", scenarioID)
		}
		if sc.ParentID == nil {
			return chain, nil
		}
		current = *sc.ParentID
	}
}

// resolveThroughChain returns the effective value of one entity given a
// pre-materialized chain. Both Resolve and EffectiveSet funnel through this
// helper so the two can never diverge.
func resolveThroughChain(st *state, chain []string, entityType domain.EntityType, entityID string) domain.Resolution {
	key := domain.EntityKey{Type: entityType, ID: entityID}
	for _, sid := range chain {
		entry, ok := st.overlays[sid][key]
		if !ok {
			continue
		}
		if entry.State == domain.OverlayTombstone {
			return domain.Resolution{}
		}
		return domain.Resolution{
			Present: true,
			Payload: append(json.RawMessage(nil), entry.Payload...),
			Source:  sid,
		}
	}
	if raw, ok := st.canonical[entityType][entityID]; ok {
		return domain.Resolution{Present: true, Payload: append(json.RawMessage(nil), raw...)}
	}
	return domain.Resolution{}
}
