package domain

import (
	"encoding/json"
	"time"
)

// OverlayState tags an overlay entry as a live value or a deletion marker.
// The tombstone variant must stay distinct from a missing entry: a tombstone
// shadows ancestor values while a missing entry falls through to them.
type OverlayState string

const (
	// OverlayPresent marks an addition or modification carrying a payload.
	OverlayPresent OverlayState = "present"
	// OverlayTombstone marks the entity deleted in this scenario.
	OverlayTombstone OverlayState = "tombstone"
)

// EntityKey addresses one entity within a scenario's overlay.
type EntityKey struct {
	Type EntityType `json:"type"`
	ID   string     `json:"id"`
}

// OverlayEntry is a scenario-local addition, modification, or deletion
// recorded against one entity. At most one entry exists per
// (scenario, entity type, entity id); writes replace, never append.
type OverlayEntry struct {
	ScenarioID string          `json:"scenario_id"`
	EntityType EntityType      `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	State      OverlayState    `json:"state"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	UpdatedAt  time.Time       `json:"updated_at"`
	UpdatedBy  string          `json:"updated_by"`
}

// Key returns the entity key the entry shadows.
func (e OverlayEntry) Key() EntityKey {
	return EntityKey{Type: e.EntityType, ID: e.EntityID}
}

// Clone returns a deep copy of the entry; the payload buffer is not shared.
func (e OverlayEntry) Clone() OverlayEntry {
	cp := e
	if e.Payload != nil {
		cp.Payload = append(json.RawMessage(nil), e.Payload...)
	}
	return cp
}

// Resolution is the outcome of resolving an entity through a scenario's
// lineage. Present carries the effective payload; absent means the entity does
// not exist in the scenario's view (tombstoned or never defined).
type Resolution struct {
	Present bool            `json:"present"`
	Payload json.RawMessage `json:"payload,omitempty"`
	// Source is the id of the scenario whose overlay supplied the value, or
	// empty when the value came from the canonical baseline records.
	Source string `json:"source,omitempty"`
}
