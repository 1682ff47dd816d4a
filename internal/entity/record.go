package entity

import (
	"strings"

	"github.com/scrypster/nedindex/pkg/types"
)

// CanonicalName derives an entity's display name from its IRI: the path
// segment after the last '/', with underscores replaced by spaces and
// surrounding whitespace trimmed.
func CanonicalName(iri string) string {
	name := iri[strings.LastIndex(iri, "/")+1:]
	return strings.TrimSpace(strings.ReplaceAll(name, "_", " "))
}

// BuildRecord assembles the indexable record for an entity.
func BuildRecord(iri string, fields types.AggregatedFields) types.EntityRecord {
	return types.EntityRecord{
		Name:    CanonicalName(iri),
		Aliases: fields.Aliases,
		Context: fields.Context,
	}
}
