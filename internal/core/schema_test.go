package core

import (
	"encoding/json"
	"testing"

	"plancore/pkg/domain"
)

func TestDiffFieldsDeclarationOrder(t *testing.T) {
	oldRaw, err := json.Marshal(domain.Project{
		ID: "apollo", Name: "Apollo", Status: "draft",
		TargetStart: day(4, 1), TargetEnd: day(6, 30),
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	newRaw, err := json.Marshal(domain.Project{
		ID: "apollo", Name: "Apollo II", Status: "active",
		TargetStart: day(4, 1), TargetEnd: day(7, 31),
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	changes, err := diffFields(domain.EntityProject, oldRaw, newRaw)
	if err != nil {
		t.Fatalf("diffFields: %v", err)
	}
	want := []string{"name", "status", "target_end"}
	if len(changes) != len(want) {
		t.Fatalf("changes = %+v, want fields %v", changes, want)
	}
	for i, name := range want {
		if changes[i].Field != name {
			t.Fatalf("field %d = %s, want %s (declaration order)", i, changes[i].Field, name)
		}
	}
	if changes[0].Old != "Apollo" || changes[0].New != "Apollo II" {
		t.Fatalf("name change = %v -> %v", changes[0].Old, changes[0].New)
	}
}

func TestDiffFieldsEqualPayloads(t *testing.T) {
	raw, err := json.Marshal(domain.Person{ID: "alice", Name: "Alice", Role: "engineer", Capacity: 100})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	changes, err := diffFields(domain.EntityPerson, raw, raw)
	if err != nil {
		t.Fatalf("diffFields: %v", err)
	}
	if len(changes) != 0 {
		t.Fatalf("identical payloads produced changes: %+v", changes)
	}
}

func TestDiffFieldsTimeComparesByInstant(t *testing.T) {
	// The same instant rendered in two zones must not register as a change.
	oldRaw := []byte(`{"id":"ph1","project_id":"apollo","name":"build","start_date":"2026-04-01T00:00:00Z","end_date":"2026-05-01T00:00:00Z"}`)
	newRaw := []byte(`{"id":"ph1","project_id":"apollo","name":"build","start_date":"2026-04-01T02:00:00+02:00","end_date":"2026-05-01T00:00:00Z"}`)

	changes, err := diffFields(domain.EntityProjectPhase, oldRaw, newRaw)
	if err != nil {
		t.Fatalf("diffFields: %v", err)
	}
	if len(changes) != 0 {
		t.Fatalf("timezone shift reported as change: %+v", changes)
	}
}

func TestDiffFieldsUnknownEntityType(t *testing.T) {
	if _, err := diffFields(domain.EntityType("widget"), []byte(`{}`), []byte(`{}`)); err == nil {
		t.Fatalf("expected error for unknown entity type")
	}
}

func TestDiffFieldsMalformedPayload(t *testing.T) {
	if _, err := diffFields(domain.EntityPerson, []byte(`{`), []byte(`{}`)); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
}

func TestEntityName(t *testing.T) {
	if got := entityName([]byte(`{"id":"apollo","name":"Apollo"}`), "apollo"); got != "Apollo" {
		t.Fatalf("entityName = %q, want Apollo", got)
	}
	if got := entityName([]byte(`{"id":"a1","allocation":50}`), "a1"); got != "a1" {
		t.Fatalf("entityName fallback = %q, want a1", got)
	}
	if got := entityName([]byte(`not json`), "x"); got != "x" {
		t.Fatalf("entityName on garbage = %q, want fallback", got)
	}
}

func TestDecodePayload(t *testing.T) {
	person, ok := DecodePayload[domain.Person]([]byte(`{"id":"alice","name":"Alice","role":"engineer","capacity":80}`))
	if !ok {
		t.Fatalf("decode failed")
	}
	if person.Capacity != 80 || person.Name != "Alice" {
		t.Fatalf("decoded person = %+v", person)
	}
	if _, ok := DecodePayload[domain.Person](nil); ok {
		t.Fatalf("empty payload must not decode")
	}
	if _, ok := DecodePayload[domain.Person]([]byte(`{`)); ok {
		t.Fatalf("malformed payload must not decode")
	}
}
