// Package entity discovers the entities of a target category in a graph
// source, aggregates their alias and context facts, and builds the
// per-entity records that are written to the candidate index.
package entity

import (
	"context"
	"fmt"

	"github.com/scrypster/nedindex/internal/graph"
	"github.com/scrypster/nedindex/internal/logger"
)

// Discover returns the deduplicated identifiers of every entity that is a
// member of category, directly or through a direct subclass. Direct
// members come first in result order, then subclass members not already
// seen. An empty result is not an error.
func Discover(ctx context.Context, src graph.Source, category string) ([]string, error) {
	var (
		entities []string
		seen     = make(map[string]struct{})
	)

	queries := []struct {
		name string
		q    graph.Query
	}{
		{"direct", DirectMembersQuery(category)},
		{"subclass", SubclassMembersQuery(category)},
	}
	for _, dq := range queries {
		rows, err := src.Select(ctx, dq.q)
		if err != nil {
			return nil, fmt.Errorf("entity: discover %s members of %s: %w", dq.name, category, err)
		}
		added := 0
		for _, row := range rows {
			v, ok := row[varEntity]
			if !ok || !v.IsIRI() {
				continue
			}
			if _, dup := seen[v.Lexical]; dup {
				continue
			}
			seen[v.Lexical] = struct{}{}
			entities = append(entities, v.Lexical)
			added++
		}
		logger.Debug("discovery query finished", "query", dq.name, "rows", len(rows), "new", added)
	}

	return entities, nil
}
