// Package domain defines the planning entities, scenario versioning
// primitives, and error taxonomy used by plancore.
package domain

import "time"

// EntityType identifies the type of planning record addressed by overlays and diffs.
type EntityType string

// Supported entity type identifiers used in overlay entries, commit records and
// persistence buckets.
const (
	// EntityProject identifies a project record.
	EntityProject EntityType = "project"
	// EntityPerson identifies a person record.
	EntityPerson EntityType = "person"
	// EntityAssignment identifies an assignment record.
	EntityAssignment EntityType = "assignment"
	// EntityProjectPhase identifies a project phase record.
	EntityProjectPhase EntityType = "project_phase"
)

// EntityTypes lists all supported entity types in canonical order. Comparators
// and persistence buckets iterate this slice so output ordering stays stable.
var EntityTypes = []EntityType{EntityProject, EntityPerson, EntityAssignment, EntityProjectPhase}

// KnownEntityType reports whether t is one of the supported entity types.
func KnownEntityType(t EntityType) bool {
	for _, known := range EntityTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Project captures a plannable initiative with a target completion window and
// role demand used by capacity impact analysis.
type Project struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Status      string             `json:"status"`
	TargetStart time.Time          `json:"target_start"`
	TargetEnd   time.Time          `json:"target_end"`
	RoleDemand  map[string]float64 `json:"role_demand,omitempty"`
}

// Person represents a plannable resource. Capacity is the total allocation
// percentage the person can absorb; 100 is a full-time resource.
type Person struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Role     string  `json:"role"`
	Capacity float64 `json:"capacity"`
}

// Assignment allocates a percentage of a person to a project for a date range.
type Assignment struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"project_id"`
	PersonID   string    `json:"person_id"`
	PhaseID    *string   `json:"phase_id,omitempty"`
	Role       string    `json:"role"`
	Allocation float64   `json:"allocation"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
}

// ProjectPhase is a named slice of a project's schedule.
type ProjectPhase struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}
