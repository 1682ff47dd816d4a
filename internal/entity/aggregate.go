package entity

import (
	"context"
	"fmt"
	"strings"

	"github.com/scrypster/nedindex/internal/graph"
	"github.com/scrypster/nedindex/pkg/types"
)

// Separator follows every value appended to an aggregated field.
const Separator = ", "

// fieldQuery is one of the four per-entity aggregation queries.
type fieldQuery struct {
	name  string
	query graph.Query
	bound string // projected variable holding the value
}

// Aggregator collects the alias and context values of one entity from
// four independent queries.
type Aggregator struct {
	src     graph.Source
	aliases []fieldQuery
	context []fieldQuery
}

// NewAggregator returns an Aggregator over src. category constrains the
// label alias query to members of the target category.
func NewAggregator(src graph.Source, category string) *Aggregator {
	return &Aggregator{
		src: src,
		aliases: []fieldQuery{
			{name: "isCalled", query: IsCalledAliasQuery(), bound: varAlias},
			{name: "label", query: LabelAliasQuery(category), bound: varAlias},
		},
		context: []fieldQuery{
			{name: "owns", query: OwnsContextQuery(), bound: varContext},
			{name: "created", query: CreatedContextQuery(), bound: varContext},
		},
	}
}

// Aggregate runs the alias queries (isCalled, then label) and the context
// queries (owns, then created) for the entity, in that order. Values are
// concatenated in result order, each followed by Separator, without
// deduplication. The first query failure aborts aggregation.
func (a *Aggregator) Aggregate(ctx context.Context, iri string) (types.AggregatedFields, error) {
	aliases, err := a.collect(ctx, iri, a.aliases)
	if err != nil {
		return types.AggregatedFields{}, err
	}
	contextTerms, err := a.collect(ctx, iri, a.context)
	if err != nil {
		return types.AggregatedFields{}, err
	}
	return types.AggregatedFields{Aliases: aliases, Context: contextTerms}, nil
}

func (a *Aggregator) collect(ctx context.Context, iri string, queries []fieldQuery) (string, error) {
	var b strings.Builder
	for _, fq := range queries {
		rows, err := a.src.Select(ctx, forEntity(fq.query, iri))
		if err != nil {
			return "", fmt.Errorf("entity: %s query for %s: %w", fq.name, iri, err)
		}
		for _, row := range rows {
			v, ok := row[fq.bound]
			if !ok {
				continue
			}
			b.WriteString(normalize(v))
			b.WriteString(Separator)
		}
	}
	return b.String(), nil
}

// normalize renders a bound value as field text. Literals lose their
// datatype annotation (and language tag); resources are reduced to their
// local name.
func normalize(v graph.Value) string {
	switch {
	case v.IsLiteral() && v.Lang != "":
		return v.Lexical
	case v.IsLiteral():
		return StripDatatype(v.String())
	default:
		return CanonicalName(v.Lexical)
	}
}

// StripDatatype removes a typed literal's annotation from its raw
// rendering: everything from the first "^^" marker is discarded. Text
// without the marker is returned unchanged.
func StripDatatype(raw string) string {
	if i := strings.Index(raw, "^^"); i >= 0 {
		return raw[:i]
	}
	return raw
}
