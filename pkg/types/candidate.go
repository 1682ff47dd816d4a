// Package types defines the value types shared by the nedindex build
// pipeline, the index engines and the candidate retrieval engine.
package types

import "time"

// EntityRecord is the indexable document built for one knowledge-base
// entity. It is created once per discovered entity during a build pass and
// never mutated afterwards.
type EntityRecord struct {
	// Name is the canonical display name derived from the entity IRI.
	Name string

	// Aliases holds every alias literal, each followed by ", ".
	Aliases string

	// Context holds every context term, each followed by ", ".
	Context string
}

// AggregatedFields is the output of aggregating one entity's alias and
// context facts before the canonical name is attached.
type AggregatedFields struct {
	Aliases string
	Context string
}

// Candidate is one ranked hit returned by a candidate lookup.
type Candidate struct {
	// Name is the canonical name stored in the matched document.
	Name string

	// Score is the engine's relevance score; higher is better.
	Score float64
}

// Names projects the canonical names of candidates, preserving order.
func Names(candidates []Candidate) []string {
	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		names = append(names, c.Name)
	}
	return names
}

// BuildStats summarizes one completed build pass.
type BuildStats struct {
	// BuildID identifies the finalized index produced by the pass.
	BuildID string

	// Entities is the number of distinct entities discovered.
	Entities int

	// Documents is the number of documents written to the index.
	Documents int

	// Duration is the wall-clock time of the whole pass.
	Duration time.Duration
}
