package domain

import (
	"encoding/json"
	"time"
)

// DiffKind classifies a structural difference between two scenarios.
type DiffKind string

// Difference kinds, expressed relative to the first scenario of a comparison.
const (
	DiffAdded    DiffKind = "added"
	DiffRemoved  DiffKind = "removed"
	DiffModified DiffKind = "modified"
)

// FieldChange records one differing field of a modified entity.
type FieldChange struct {
	Field string `json:"field"`
	Old   any    `json:"old"`
	New   any    `json:"new"`
}

// Difference describes one entity that differs between two scenarios.
type Difference struct {
	EntityType EntityType `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	EntityName string     `json:"entity_name"`
	Kind       DiffKind   `json:"kind"`
	// Fields lists the differing fields in struct declaration order. Populated
	// only for modified differences.
	Fields []FieldChange `json:"fields,omitempty"`
	// Old and New carry the full resolved payloads of both sides. Old is nil
	// for added, New is nil for removed.
	Old json.RawMessage `json:"old,omitempty"`
	New json.RawMessage `json:"new,omitempty"`
}

// KindCounts tallies differences by kind.
type KindCounts struct {
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Modified int `json:"modified"`
}

// Total returns the sum of all counts.
func (c KindCounts) Total() int { return c.Added + c.Removed + c.Modified }

// Summary aggregates difference counts overall and per entity type.
type Summary struct {
	KindCounts
	ByEntityType map[EntityType]KindCounts `json:"by_entity_type,omitempty"`
}

// ComparisonResult is the structural diff of two scenarios' effective entity
// sets, with derived impact metrics.
type ComparisonResult struct {
	ScenarioA   string       `json:"scenario_a"`
	ScenarioB   string       `json:"scenario_b"`
	Differences []Difference `json:"differences"`
	Summary     Summary      `json:"summary"`
	Impact      ImpactReport `json:"impact"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// Empty reports whether the comparison found no differences.
func (r ComparisonResult) Empty() bool { return len(r.Differences) == 0 }

// UtilizationImpact summarizes allocation shifts per person caused by a diff.
type UtilizationImpact struct {
	// ShiftByPerson maps person id to the aggregate percentage-point change in
	// total allocation between the two scenarios.
	ShiftByPerson map[string]float64 `json:"shift_by_person,omitempty"`
	// NewlyOverAllocated counts people whose total allocation crosses above
	// their capacity as a result of the diff.
	NewlyOverAllocated int `json:"newly_over_allocated"`
	// NoLongerOverAllocated counts people brought back under capacity.
	NoLongerOverAllocated int `json:"no_longer_over_allocated"`
}

// TimelineImpact summarizes schedule movement caused by a diff.
type TimelineImpact struct {
	// ChangedProjects lists projects whose assignment or phase date ranges
	// changed between the two scenarios.
	ChangedProjects []string `json:"changed_projects,omitempty"`
	// AtRiskProjects lists the subset whose resulting schedule no longer fits
	// the project's target completion window.
	AtRiskProjects []string `json:"at_risk_projects,omitempty"`
}

// RoleShortfall reports a role whose assigned allocation no longer covers its
// known demand after the diff.
type RoleShortfall struct {
	Role     string  `json:"role"`
	Demand   float64 `json:"demand"`
	Assigned float64 `json:"assigned"`
}

// CapacityImpact lists roles newly lacking sufficient assigned percentage.
type CapacityImpact struct {
	Shortfalls []RoleShortfall `json:"shortfalls,omitempty"`
}

// ImpactReport holds the derived metrics attached to a comparison.
type ImpactReport struct {
	Utilization UtilizationImpact `json:"utilization"`
	Timeline    TimelineImpact    `json:"timeline"`
	Capacity    CapacityImpact    `json:"capacity"`
}

// MergeWarning surfaces a non-fatal condition detected while merging.
type MergeWarning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WarningParentDiverged reports that the parent scenario changed one of the
// branch's overlaid entities after the branch was forked; the merge still
// applies branch-wins semantics over those keys.
const WarningParentDiverged = "parent_has_diverged"
