// Package engine runs index build passes over a knowledge graph and
// answers candidate lookups against the finished index.
package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/scrypster/nedindex/internal/entity"
	"github.com/scrypster/nedindex/internal/graph"
	"github.com/scrypster/nedindex/internal/index"
	"github.com/scrypster/nedindex/internal/logger"
	"github.com/scrypster/nedindex/internal/metrics"
	"github.com/scrypster/nedindex/pkg/types"
)

// progressEvery controls how often build progress is logged at INFO.
const progressEvery = 1000

// Pipeline discovers the members of a category, aggregates each member's
// facts into a record and writes the records to an index.
type Pipeline struct {
	// Source is the graph the entities and their facts are read from.
	Source graph.Source

	// Category is the IRI whose direct and subclass members are indexed.
	Category string

	// Concurrency bounds how many entities are aggregated at once.
	// Values below 1 mean 1.
	Concurrency int
}

type aggregated struct {
	rec types.EntityRecord
	err error
}

// Build runs one pass and finalizes w. Records reach w one at a time in
// discovery order whatever the concurrency. On any failure the pass stops
// and w is left unfinalized.
func (p *Pipeline) Build(ctx context.Context, w index.Writer) (types.BuildStats, error) {
	start := time.Now()
	stats, err := p.build(ctx, w)
	stats.Duration = time.Since(start)
	metrics.RecordBuild(stats.Duration, err)
	if err != nil {
		logger.Error("build failed", "category", p.Category, "written", stats.Documents, "error", err)
		return stats, err
	}
	logger.Info("build complete",
		"category", p.Category,
		"entities", stats.Entities,
		"documents", stats.Documents,
		"duration", stats.Duration.Round(time.Millisecond))
	return stats, nil
}

func (p *Pipeline) build(ctx context.Context, w index.Writer) (types.BuildStats, error) {
	var stats types.BuildStats

	iris, err := entity.Discover(ctx, p.Source, p.Category)
	if err != nil {
		return stats, fmt.Errorf("engine: build: %w", err)
	}
	stats.Entities = len(iris)
	logger.Info("entities discovered", "category", p.Category, "count", len(iris))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	agg := entity.NewAggregator(p.Source, p.Category)
	slots := make([]chan aggregated, len(iris))
	for i := range slots {
		slots[i] = make(chan aggregated, 1)
	}

	var g errgroup.Group
	g.SetLimit(max(p.Concurrency, 1))
	launched := make(chan struct{})
	go func() {
		defer close(launched)
		for i, iri := range iris {
			g.Go(func() error {
				fields, err := agg.Aggregate(ctx, iri)
				if err != nil {
					slots[i] <- aggregated{err: err}
					return err
				}
				slots[i] <- aggregated{rec: entity.BuildRecord(iri, fields)}
				return nil
			})
		}
	}()

	var buildErr error
	for i := range slots {
		res := <-slots[i]
		if res.err != nil {
			buildErr = fmt.Errorf("engine: build: %w", res.err)
			break
		}
		if err := w.AddDocument(ctx, res.rec); err != nil {
			buildErr = fmt.Errorf("engine: build: write %q: %w", res.rec.Name, err)
			break
		}
		stats.Documents++
		metrics.RecordEntityWritten()
		logger.Debug("entity indexed", "name", res.rec.Name, "aliases", res.rec.Aliases, "context", res.rec.Context)
		if stats.Documents%progressEvery == 0 {
			logger.Info("build progress", "written", stats.Documents, "total", stats.Entities)
		}
	}

	if buildErr != nil {
		cancel()
	}
	<-launched
	_ = g.Wait()
	if buildErr != nil {
		return stats, buildErr
	}

	if err := w.Finalize(ctx); err != nil {
		return stats, fmt.Errorf("engine: build: finalize: %w", err)
	}
	return stats, nil
}
