package memory

import (
	"encoding/json"

	"plancore/pkg/domain"
)

// view exposes a read-only snapshot of one state copy.
type view struct {
	state *state
}

var _ domain.TransactionView = (*view)(nil)

func (v *view) GetScenario(id string) (domain.Scenario, bool) {
	sc, ok := v.state.scenarios[id]
	if !ok {
		return domain.Scenario{}, false
	}
	return cloneScenario(sc), true
}

func (v *view) ListScenarios(filter domain.ScenarioFilter) []domain.Scenario {
	return listScenarios(v.state, filter)
}

// EntriesFor returns the overlay entries belonging to exactly this scenario,
// sorted by entity type then id.
func (v *view) EntriesFor(scenarioID string) ([]domain.OverlayEntry, error) {
	if _, ok := v.state.scenarios[scenarioID]; !ok {
		return nil, domain.ErrNotFound{Kind: "scenario", ID: scenarioID}
	}
	return sortedEntries(v.state.overlays[scenarioID]), nil
}

// Resolve walks the scenario's parent chain for the entity. The chain is
// materialized once; a tombstone hit terminates the walk as absent without
// consulting farther ancestors.
func (v *view) Resolve(scenarioID string, entityType domain.EntityType, entityID string) (domain.Resolution, error) {
	if !domain.KnownEntityType(entityType) {
		return domain.Resolution{}, domain.ErrNotFound{Kind: string(entityType), ID: entityID}
	}
	chain, err := chainFor(v.state, scenarioID)
	if err != nil {
		return domain.Resolution{}, err
	}
	return resolveThroughChain(v.state, chain, entityType, entityID), nil
}

// EffectiveSet materializes every entity of the given type visible from the
// scenario. Candidate ids are the union of canonical ids and every chain
// member's overlay ids; each candidate is resolved through the same chain walk
// Resolve uses, and absent results are excluded.
func (v *view) EffectiveSet(scenarioID string, entityType domain.EntityType) (map[string]json.RawMessage, error) {
	if !domain.KnownEntityType(entityType) {
		return nil, domain.ErrNotFound{Kind: string(entityType), ID: ""}
	}
	chain, err := chainFor(v.state, scenarioID)
	if err != nil {
		return nil, err
	}
	candidates := make(map[string]struct{}, len(v.state.canonical[entityType]))
	for id := range v.state.canonical[entityType] {
		candidates[id] = struct{}{}
	}
	for _, sid := range chain {
		for key := range v.state.overlays[sid] {
			if key.Type == entityType {
				candidates[key.ID] = struct{}{}
			}
		}
	}
	out := make(map[string]json.RawMessage, len(candidates))
	for id := range candidates {
		res := resolveThroughChain(v.state, chain, entityType, id)
		if res.Present {
			out[id] = res.Payload
		}
	}
	return out, nil
}

func (v *view) History(filter domain.HistoryFilter) []domain.CommitRecord {
	return history(v.state, filter)
}
