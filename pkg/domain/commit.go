package domain

import "time"

// CommitAction identifies the overlay mutation that produced a commit record.
type CommitAction string

// Commit actions recorded in the append-only change log.
const (
	CommitPut    CommitAction = "put"
	CommitRemove CommitAction = "remove"
	CommitMerge  CommitAction = "merge"
)

// CommitRecord is one entry of the append-only change log. The engine emits
// exactly one record per put, remove, and per entry folded by a merge; the
// audit UI consumes these records but the engine never reads them back except
// for history queries and divergence checks.
type CommitRecord struct {
	ID         string       `json:"id"`
	Timestamp  time.Time    `json:"timestamp"`
	Message    string       `json:"message"`
	Author     string       `json:"author"`
	ScenarioID string       `json:"scenario_id"`
	EntityType EntityType   `json:"entity_type,omitempty"`
	EntityID   string       `json:"entity_id,omitempty"`
	Action     CommitAction `json:"action"`
}

// HistoryFilter narrows a history query. Zero values match everything; Limit
// caps the number of records returned, newest first.
type HistoryFilter struct {
	ScenarioID string
	EntityType EntityType
	EntityID   string
	Limit      int
}

// Matches reports whether the record satisfies the filter's field constraints.
func (f HistoryFilter) Matches(rec CommitRecord) bool {
	if f.ScenarioID != "" && rec.ScenarioID != f.ScenarioID {
		return false
	}
	if f.EntityType != "" && rec.EntityType != f.EntityType {
		return false
	}
	if f.EntityID != "" && rec.EntityID != f.EntityID {
		return false
	}
	return true
}
