package core

import "plancore/pkg/domain"

// Aliases re-export the domain model so engine-facing packages can depend on
// core alone.
type (
	EntityType       = domain.EntityType
	Scenario         = domain.Scenario
	ScenarioKind     = domain.ScenarioKind
	ScenarioStatus   = domain.ScenarioStatus
	ScenarioFilter   = domain.ScenarioFilter
	OverlayEntry     = domain.OverlayEntry
	OverlayState     = domain.OverlayState
	EntityKey        = domain.EntityKey
	Resolution       = domain.Resolution
	ComparisonResult = domain.ComparisonResult
	Difference       = domain.Difference
	FieldChange      = domain.FieldChange
	ImpactReport     = domain.ImpactReport
	MergeWarning     = domain.MergeWarning
	CommitRecord     = domain.CommitRecord
	HistoryFilter    = domain.HistoryFilter
	PersistentStore  = domain.PersistentStore
	Transaction      = domain.Transaction
	TransactionView  = domain.TransactionView
)

const (
	EntityProject      = domain.EntityProject
	EntityPerson       = domain.EntityPerson
	EntityAssignment   = domain.EntityAssignment
	EntityProjectPhase = domain.EntityProjectPhase

	KindBaseline = domain.KindBaseline
	KindBranch   = domain.KindBranch
	KindSandbox  = domain.KindSandbox

	StatusActive   = domain.StatusActive
	StatusArchived = domain.StatusArchived
	StatusMerged   = domain.StatusMerged
)
