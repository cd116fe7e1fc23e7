package domain

import "fmt"

// ErrNotFound is returned when a scenario or entity id cannot be resolved.
// Kind is "scenario" or one of the entity type identifiers.
type ErrNotFound struct {
	Kind string
	ID   string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// ErrInvalidBase is returned when a scenario is created from a base that does
// not exist or is no longer active.
type ErrInvalidBase struct {
	BaseID string
	Reason string
}

func (e ErrInvalidBase) Error() string {
	return fmt.Sprintf("invalid base scenario %s: %s", e.BaseID, e.Reason)
}

// ErrInvalidKind is returned when a scenario is created with an unsupported
// kind, including any attempt at a second baseline.
type ErrInvalidKind struct {
	Kind   ScenarioKind
	Reason string
}

func (e ErrInvalidKind) Error() string {
	return fmt.Sprintf("invalid scenario kind %q: %s", e.Kind, e.Reason)
}

// ErrAlreadyTerminal is returned when archiving a scenario that is already
// archived or merged.
type ErrAlreadyTerminal struct {
	ID     string
	Status ScenarioStatus
}

func (e ErrAlreadyTerminal) Error() string {
	return fmt.Sprintf("scenario %s is already %s", e.ID, e.Status)
}

// ErrScenarioImmutable is returned when an overlay write targets a scenario
// whose status is not active.
type ErrScenarioImmutable struct {
	ID     string
	Status ScenarioStatus
}

func (e ErrScenarioImmutable) Error() string {
	return fmt.Sprintf("scenario %s is %s and accepts no overlay writes", e.ID, e.Status)
}

// ErrNotMergeable is returned when merge preconditions fail: the scenario is
// the baseline, not active, or already merged.
type ErrNotMergeable struct {
	ID     string
	Reason string
}

func (e ErrNotMergeable) Error() string {
	return fmt.Sprintf("scenario %s cannot be merged: %s", e.ID, e.Reason)
}

// ErrStorageUnavailable is returned when a persistence driver exhausts its
// retry budget against the backing store. It is distinct from the logic-error
// taxonomy above: callers should treat it as transient infrastructure failure.
type ErrStorageUnavailable struct {
	Op  string
	Err error
}

func (e ErrStorageUnavailable) Error() string {
	return fmt.Sprintf("storage unavailable during %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying driver error.
func (e ErrStorageUnavailable) Unwrap() error { return e.Err }
