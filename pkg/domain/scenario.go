package domain

import "time"

// ScenarioKind classifies a scenario within the version tree.
type ScenarioKind string

// Scenario kinds. Exactly one baseline exists per store; branches and
// sandboxes always point at a parent.
const (
	// KindBaseline is the single root scenario backed by the canonical records.
	KindBaseline ScenarioKind = "baseline"
	// KindBranch is a long-lived fork intended to be merged back.
	KindBranch ScenarioKind = "branch"
	// KindSandbox is a throwaway fork for exploratory edits.
	KindSandbox ScenarioKind = "sandbox"
)

// ScenarioStatus tracks the lifecycle of a scenario.
type ScenarioStatus string

// Scenario statuses. Archived and merged are terminal; no overlay writes are
// accepted once a scenario leaves active.
const (
	StatusActive   ScenarioStatus = "active"
	StatusArchived ScenarioStatus = "archived"
	StatusMerged   ScenarioStatus = "merged"
)

// Scenario is a named, independently editable view of the planning dataset.
// Its data lives entirely in overlay entries; creating one copies nothing.
type Scenario struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Kind        ScenarioKind   `json:"kind"`
	Status      ScenarioStatus `json:"status"`
	ParentID    *string        `json:"parent_id"`
	CreatedAt   time.Time      `json:"created_at"`
	CreatedBy   string         `json:"created_by"`
	// ForkedAt records the instant the scenario was cut from its parent. The
	// merge coordinator uses it to detect parent divergence since the fork.
	ForkedAt time.Time `json:"forked_at"`
}

// Terminal reports whether the scenario is in a terminal status.
func (s Scenario) Terminal() bool {
	return s.Status == StatusArchived || s.Status == StatusMerged
}

// Editable reports whether the scenario accepts overlay writes.
func (s Scenario) Editable() bool {
	return s.Status == StatusActive
}
