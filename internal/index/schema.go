package index

import (
	"fmt"
	"strings"

	"github.com/scrypster/nedindex/pkg/types"
)

// SchemaVersion is recorded in every finalized index.
const SchemaVersion = 1

// Field names one of the three record fields.
type Field int

const (
	FieldName Field = iota
	FieldAliases
	FieldContext
)

// String returns the field's column name.
func (f Field) String() string {
	switch f {
	case FieldName:
		return "name"
	case FieldAliases:
		return "aliases"
	case FieldContext:
		return "context"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

// ParseField resolves a field by column name.
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "name":
		return FieldName, nil
	case "aliases":
		return FieldAliases, nil
	case "context":
		return FieldContext, nil
	default:
		return 0, fmt.Errorf("index: unknown field %q", s)
	}
}

// Policy says how a field is treated by the engine.
type Policy struct {
	Stored    bool
	Indexed   bool
	Tokenized bool
}

// Searchable reports whether queries may target a field with p.
func (p Policy) Searchable() bool { return p.Indexed && p.Tokenized }

// FieldSpec pairs a field with its policy.
type FieldSpec struct {
	Field  Field
	Policy Policy
}

// Schema is the ordered field layout shared by all documents of an index.
type Schema struct {
	Fields []FieldSpec
}

// DefaultSchema stores the canonical name without indexing it and makes
// aliases and context stored, indexed and tokenized.
func DefaultSchema() Schema {
	searchable := Policy{Stored: true, Indexed: true, Tokenized: true}
	return Schema{Fields: []FieldSpec{
		{Field: FieldName, Policy: Policy{Stored: true}},
		{Field: FieldAliases, Policy: searchable},
		{Field: FieldContext, Policy: searchable},
	}}
}

// Policy returns the policy of f, and false if f is not in the schema.
func (s Schema) Policy(f Field) (Policy, bool) {
	for _, fd := range s.Fields {
		if fd.Field == f {
			return fd.Policy, true
		}
	}
	return Policy{}, false
}

// CheckSearchable returns ErrNotSearchable unless f is a searchable field.
func (s Schema) CheckSearchable(f Field) error {
	p, ok := s.Policy(f)
	if !ok || !p.Searchable() {
		return fmt.Errorf("%w: %s", ErrNotSearchable, f)
	}
	return nil
}

// Values returns rec's field values in schema order.
func (s Schema) Values(rec types.EntityRecord) []any {
	values := make([]any, 0, len(s.Fields))
	for _, fd := range s.Fields {
		switch fd.Field {
		case FieldName:
			values = append(values, rec.Name)
		case FieldAliases:
			values = append(values, rec.Aliases)
		case FieldContext:
			values = append(values, rec.Context)
		}
	}
	return values
}
