package memory

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"plancore/pkg/domain"
)

// transaction applies mutations to a private copy of the store state.
type transaction struct {
	store *Store
	state state
	now   time.Time
}

var _ domain.Transaction = (*transaction)(nil)

// Snapshot exposes the transactional state for reads within the same scope.
func (tx *transaction) Snapshot() domain.TransactionView {
	return &view{state: &tx.state}
}

// CreateScenario registers a new scenario after validating lineage rules:
// a single baseline with no parent, and branches/sandboxes cut from an
// existing active base.
func (tx *transaction) CreateScenario(s domain.Scenario) (domain.Scenario, error) {
	if s.ID == "" {
		s.ID = tx.store.idFn()
	}
	if _, exists := tx.state.scenarios[s.ID]; exists {
		return domain.Scenario{}, fmt.Errorf("scenario %q already exists", s.ID)
	}
	switch s.Kind {
	case domain.KindBaseline:
		if s.ParentID != nil {
			return domain.Scenario{}, domain.ErrInvalidKind{Kind: s.Kind, Reason: "baseline cannot have a parent"}
		}
		for _, existing := range tx.state.scenarios {
			if existing.Kind == domain.KindBaseline {
				return domain.Scenario{}, domain.ErrInvalidKind{Kind: s.Kind, Reason: "baseline already exists"}
			}
		}
	case domain.KindBranch, domain.KindSandbox:
		if s.ParentID == nil {
			return domain.Scenario{}, domain.ErrInvalidBase{BaseID: "", Reason: "base scenario required"}
		}
		base, ok := tx.state.scenarios[*s.ParentID]
		if !ok {
			return domain.Scenario{}, domain.ErrInvalidBase{BaseID: *s.ParentID, Reason: "base scenario does not exist"}
		}
		if base.Terminal() {
			return domain.Scenario{}, domain.ErrInvalidBase{BaseID: base.ID, Reason: fmt.Sprintf("base scenario is %s", base.Status)}
		}
	default:
		return domain.Scenario{}, domain.ErrInvalidKind{Kind: s.Kind, Reason: "unknown kind"}
	}
	s.Status = domain.StatusActive
	s.CreatedAt = tx.now
	s.ForkedAt = tx.now
	tx.state.scenarios[s.ID] = cloneScenario(s)
	tx.state.overlays[s.ID] = make(map[domain.EntityKey]domain.OverlayEntry)
	return cloneScenario(s), nil
}

// ArchiveScenario moves an active scenario to archived. Overlay entries are
// retained so diffs against the archived scenario keep working.
func (tx *transaction) ArchiveScenario(id string) (domain.Scenario, error) {
	sc, ok := tx.state.scenarios[id]
	if !ok {
		return domain.Scenario{}, domain.ErrNotFound{Kind: "scenario", ID: id}
	}
	if sc.Terminal() {
		return domain.Scenario{}, domain.ErrAlreadyTerminal{ID: id, Status: sc.Status}
	}
	sc.Status = domain.StatusArchived
	tx.state.scenarios[id] = sc
	return cloneScenario(sc), nil
}

// PutOverlay upserts a present entry for the entity, replacing any previous
// entry for the same key, and appends one commit record.
func (tx *transaction) PutOverlay(scenarioID string, entityType domain.EntityType, entityID string, payload json.RawMessage, author, message string) (domain.OverlayEntry, error) {
	if err := tx.checkWritable(scenarioID, entityType, entityID); err != nil {
		return domain.OverlayEntry{}, err
	}
	entry := domain.OverlayEntry{
		ScenarioID: scenarioID,
		EntityType: entityType,
		EntityID:   entityID,
		State:      domain.OverlayPresent,
		Payload:    append(json.RawMessage(nil), payload...),
		UpdatedAt:  tx.now,
		UpdatedBy:  author,
	}
	tx.state.overlays[scenarioID][entry.Key()] = entry
	tx.appendCommit(scenarioID, entityType, entityID, domain.CommitPut, author, message)
	return entry.Clone(), nil
}

// RemoveOverlay writes a tombstone entry so the entity is absent in this
// scenario even when an ancestor still carries it.
func (tx *transaction) RemoveOverlay(scenarioID string, entityType domain.EntityType, entityID string, author, message string) (domain.OverlayEntry, error) {
	if err := tx.checkWritable(scenarioID, entityType, entityID); err != nil {
		return domain.OverlayEntry{}, err
	}
	entry := domain.OverlayEntry{
		ScenarioID: scenarioID,
		EntityType: entityType,
		EntityID:   entityID,
		State:      domain.OverlayTombstone,
		UpdatedAt:  tx.now,
		UpdatedBy:  author,
	}
	tx.state.overlays[scenarioID][entry.Key()] = entry
	tx.appendCommit(scenarioID, entityType, entityID, domain.CommitRemove, author, message)
	return entry.Clone(), nil
}

func (tx *transaction) checkWritable(scenarioID string, entityType domain.EntityType, entityID string) error {
	if !domain.KnownEntityType(entityType) {
		return fmt.Errorf("unknown entity type %q", entityType)
	}
	if entityID == "" {
		return fmt.Errorf("entity id required")
	}
	sc, ok := tx.state.scenarios[scenarioID]
	if !ok {
		return domain.ErrNotFound{Kind: "scenario", ID: scenarioID}
	}
	if !sc.Editable() {
		return domain.ErrScenarioImmutable{ID: scenarioID, Status: sc.Status}
	}
	return nil
}

// MergeScenario folds every overlay entry of the branch onto its parent as one
// atomic unit. The branch's own edits always win over whatever the parent
// currently holds for the same key; tombstones propagate as tombstones. The
// branch moves to merged and keeps its entries for history.
func (tx *transaction) MergeScenario(branchID, author string) (domain.Scenario, []domain.MergeWarning, error) {
	branch, ok := tx.state.scenarios[branchID]
	if !ok {
		return domain.Scenario{}, nil, domain.ErrNotFound{Kind: "scenario", ID: branchID}
	}
	if branch.Kind == domain.KindBaseline {
		return domain.Scenario{}, nil, domain.ErrNotMergeable{ID: branchID, Reason: "baseline has no parent to merge into"}
	}
	if branch.Status != domain.StatusActive {
		return domain.Scenario{}, nil, domain.ErrNotMergeable{ID: branchID, Reason: fmt.Sprintf("scenario is %s", branch.Status)}
	}
	parentID := *branch.ParentID
	parent, ok := tx.state.scenarios[parentID]
	if !ok {
		return domain.Scenario{}, nil, domain.ErrNotFound{Kind: "scenario", ID: parentID}
	}
	if !parent.Editable() {
		return domain.Scenario{}, nil, domain.ErrScenarioImmutable{ID: parentID, Status: parent.Status}
	}

	warnings := tx.divergenceWarnings(branch, parentID)

	entries := sortedEntries(tx.state.overlays[branchID])
	parentBucket := tx.state.overlays[parentID]
	for _, entry := range entries {
		folded := entry.Clone()
		folded.ScenarioID = parentID
		folded.UpdatedAt = tx.now
		folded.UpdatedBy = author
		parentBucket[folded.Key()] = folded
		tx.appendCommit(parentID, entry.EntityType, entry.EntityID, domain.CommitMerge, author,
			fmt.Sprintf("merge %s from %s", entry.EntityType, branch.Name))
	}

	branch.Status = domain.StatusMerged
	tx.state.scenarios[branchID] = branch
	return cloneScenario(branch), warnings, nil
}

// divergenceWarnings reports parent edits made after the branch was forked to
// keys the branch is about to overwrite. The merge is branch-wins regardless;
// the warning only makes the silent overwrite visible to the caller.
func (tx *transaction) divergenceWarnings(branch domain.Scenario, parentID string) []domain.MergeWarning {
	branchKeys := tx.state.overlays[branch.ID]
	if len(branchKeys) == 0 {
		return nil
	}
	diverged := make(map[domain.EntityKey]struct{})
	for _, rec := range tx.state.commits {
		if rec.ScenarioID != parentID || !rec.Timestamp.After(branch.ForkedAt) {
			continue
		}
		key := domain.EntityKey{Type: rec.EntityType, ID: rec.EntityID}
		if _, ok := branchKeys[key]; ok {
			diverged[key] = struct{}{}
		}
	}
	if len(diverged) == 0 {
		return nil
	}
	keys := make([]domain.EntityKey, 0, len(diverged))
	for key := range diverged {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Type != keys[j].Type {
			return keys[i].Type < keys[j].Type
		}
		return keys[i].ID < keys[j].ID
	})
	warnings := make([]domain.MergeWarning, 0, len(keys))
	for _, key := range keys {
		warnings = append(warnings, domain.MergeWarning{
			Code:    domain.WarningParentDiverged,
			Message: fmt.Sprintf("parent %s changed %s %s after the branch was forked; branch value wins", parentID, key.Type, key.ID),
		})
	}
	return warnings
}

// SeedCanonical installs or replaces a canonical baseline record.
func (tx *transaction) SeedCanonical(entityType domain.EntityType, entityID string, payload json.RawMessage) error {
	if !domain.KnownEntityType(entityType) {
		return fmt.Errorf("unknown entity type %q", entityType)
	}
	if entityID == "" {
		return fmt.Errorf("entity id required")
	}
	tx.state.canonical[entityType][entityID] = append(json.RawMessage(nil), payload...)
	return nil
}

func (tx *transaction) appendCommit(scenarioID string, entityType domain.EntityType, entityID string, action domain.CommitAction, author, message string) {
	if message == "" {
		message = fmt.Sprintf("%s %s %s", action, entityType, entityID)
	}
	tx.state.commits = append(tx.state.commits, domain.CommitRecord{
		ID:         tx.store.idFn(),
		Timestamp:  tx.now,
		Message:    message,
		Author:     author,
		ScenarioID: scenarioID,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
	})
}

func sortedEntries(bucket map[domain.EntityKey]domain.OverlayEntry) []domain.OverlayEntry {
	out := make([]domain.OverlayEntry, 0, len(bucket))
	for _, entry := range bucket {
		out = append(out, entry.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EntityType != out[j].EntityType {
			return out[i].EntityType < out[j].EntityType
		}
		return out[i].EntityID < out[j].EntityID
	})
	return out
}
