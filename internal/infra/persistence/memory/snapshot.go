package memory

import (
	"encoding/json"

	"plancore/pkg/domain"
)

// Snapshot is the serializable form of the full store state. Durable backends
// persist it after every successful transaction and rehydrate it on startup.
type Snapshot struct {
	Scenarios []domain.Scenario                                `json:"scenarios"`
	Overlays  []domain.OverlayEntry                            `json:"overlays"`
	Canonical map[domain.EntityType]map[string]json.RawMessage `json:"canonical"`
	Commits   []domain.CommitRecord                            `json:"commits"`
}

// ExportState captures the committed state as a Snapshot.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Scenarios: make([]domain.Scenario, 0, len(s.state.scenarios)),
		Canonical: make(map[domain.EntityType]map[string]json.RawMessage, len(s.state.canonical)),
		Commits:   append([]domain.CommitRecord(nil), s.state.commits...),
	}
	for _, sc := range listScenarios(&s.state, domain.ScenarioFilter{}) {
		snap.Scenarios = append(snap.Scenarios, sc)
	}
	for _, sc := range snap.Scenarios {
		for _, entry := range sortedEntries(s.state.overlays[sc.ID]) {
			snap.Overlays = append(snap.Overlays, entry)
		}
	}
	for t, records := range s.state.canonical {
		bucket := make(map[string]json.RawMessage, len(records))
		for id, raw := range records {
			bucket[id] = append(json.RawMessage(nil), raw...)
		}
		snap.Canonical[t] = bucket
	}
	return snap
}

// ImportState replaces the committed state with the Snapshot contents.
func (s *Store) ImportState(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := newState()
	for _, sc := range snap.Scenarios {
		st.scenarios[sc.ID] = cloneScenario(sc)
		st.overlays[sc.ID] = make(map[domain.EntityKey]domain.OverlayEntry)
	}
	for _, entry := range snap.Overlays {
		bucket, ok := st.overlays[entry.ScenarioID]
		if !ok {
			bucket = make(map[domain.EntityKey]domain.OverlayEntry)
			st.overlays[entry.ScenarioID] = bucket
		}
		bucket[entry.Key()] = entry.Clone()
	}
	for t, records := range snap.Canonical {
		if !domain.KnownEntityType(t) {
			continue
		}
		for id, raw := range records {
			st.canonical[t][id] = append(json.RawMessage(nil), raw...)
		}
	}
	st.commits = append([]domain.CommitRecord(nil), snap.Commits...)
	s.state = st
}
