package engine

import (
	"context"
	"time"

	"github.com/scrypster/nedindex/internal/graph"
	"github.com/scrypster/nedindex/internal/metrics"
)

// instrumentedSource records latency and outcome of every graph query.
type instrumentedSource struct {
	src  graph.Source
	name string
}

func instrument(src graph.Source, name string) graph.Source {
	return &instrumentedSource{src: src, name: name}
}

func (s *instrumentedSource) Select(ctx context.Context, q graph.Query) ([]graph.Row, error) {
	start := time.Now()
	rows, err := s.src.Select(ctx, q)
	metrics.RecordGraphQuery(s.name, time.Since(start), err)
	return rows, err
}

func sourceName(src graph.Source) string {
	switch src.(type) {
	case *graph.Model:
		return "model"
	case *graph.Endpoint:
		return "endpoint"
	default:
		return "custom"
	}
}
