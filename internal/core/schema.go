package core

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"plancore/pkg/domain"
)

// entitySchemas maps each entity type to its Go struct. Field diffing walks
// these structs in declaration order so modified-field lists stay stable
// regardless of payload key order.
var entitySchemas = map[domain.EntityType]reflect.Type{
	domain.EntityProject:      reflect.TypeOf(domain.Project{}),
	domain.EntityPerson:       reflect.TypeOf(domain.Person{}),
	domain.EntityAssignment:   reflect.TypeOf(domain.Assignment{}),
	domain.EntityProjectPhase: reflect.TypeOf(domain.ProjectPhase{}),
}

type fieldDesc struct {
	name  string // json field name
	index int
}

var fieldDescs = func() map[domain.EntityType][]fieldDesc {
	out := make(map[domain.EntityType][]fieldDesc, len(entitySchemas))
	for entityType, rt := range entitySchemas {
		fields := make([]fieldDesc, 0, rt.NumField())
		for i := 0; i < rt.NumField(); i++ {
			field := rt.Field(i)
			name := jsonName(field)
			if name == "" {
				continue
			}
			fields = append(fields, fieldDesc{name: name, index: i})
		}
		out[entityType] = fields
	}
	return out
}()

func jsonName(field reflect.StructField) string {
	if !field.IsExported() {
		return ""
	}
	tag := field.Tag.Get("json")
	if tag == "-" {
		return ""
	}
	if idx := strings.Index(tag, ","); idx >= 0 {
		tag = tag[:idx]
	}
	if tag == "" {
		return field.Name
	}
	return tag
}

func decodeEntity(entityType domain.EntityType, raw json.RawMessage) (reflect.Value, error) {
	rt, ok := entitySchemas[entityType]
	if !ok {
		return reflect.Value{}, fmt.Errorf("unknown entity type %q", entityType)
	}
	ptr := reflect.New(rt)
	if err := json.Unmarshal(raw, ptr.Interface()); err != nil {
		return reflect.Value{}, fmt.Errorf("decode %s payload: %w", entityType, err)
	}
	return ptr.Elem(), nil
}

// diffFields returns the fields that differ between two payloads of the same
// entity type, in struct declaration order. An empty slice means the payloads
// are field-for-field equal.
func diffFields(entityType domain.EntityType, oldRaw, newRaw json.RawMessage) ([]domain.FieldChange, error) {
	oldVal, err := decodeEntity(entityType, oldRaw)
	if err != nil {
		return nil, err
	}
	newVal, err := decodeEntity(entityType, newRaw)
	if err != nil {
		return nil, err
	}
	var changes []domain.FieldChange
	for _, field := range fieldDescs[entityType] {
		a := oldVal.Field(field.index)
		b := newVal.Field(field.index)
		if equalFieldValues(a, b) {
			continue
		}
		changes = append(changes, domain.FieldChange{
			Field: field.name,
			Old:   a.Interface(),
			New:   b.Interface(),
		})
	}
	return changes, nil
}

// equalFieldValues compares two field values. Times compare by instant so a
// timezone shift introduced by a JSON round trip is not reported as a change.
func equalFieldValues(a, b reflect.Value) bool {
	if at, ok := a.Interface().(time.Time); ok {
		return at.Equal(b.Interface().(time.Time))
	}
	return reflect.DeepEqual(a.Interface(), b.Interface())
}

// entityName extracts a display name from a payload. Entities without a name
// field (assignments) fall back to their id.
func entityName(raw json.RawMessage, fallback string) string {
	var probe struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &probe); err == nil && probe.Name != "" {
		return probe.Name
	}
	return fallback
}

// DecodePayload decodes a resolved payload into a concrete entity value. It
// returns the zero value and false when the payload is empty or malformed.
func DecodePayload[T any](raw json.RawMessage) (T, bool) {
	var out T
	if len(raw) == 0 {
		return out, false
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, false
	}
	return out, true
}
