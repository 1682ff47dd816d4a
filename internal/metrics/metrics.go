// Package metrics registers the Prometheus collectors for index builds,
// graph queries and candidate lookups on the default registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// buildEntitiesTotal counts entity documents written by build passes.
	buildEntitiesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "nedindex",
		Subsystem: "build",
		Name:      "entities_total",
		Help:      "Total entity documents written to candidate indexes",
	})

	// buildDurationSeconds measures whole build passes.
	// Labels: status (ok, error)
	buildDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nedindex",
		Subsystem: "build",
		Name:      "duration_seconds",
		Help:      "Duration of index build passes",
		Buckets:   []float64{0.1, 1, 5, 30, 60, 300, 900, 3600},
	}, []string{"status"})

	// graphQueriesTotal counts graph source queries.
	// Labels: source (model, endpoint), status (ok, error)
	graphQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nedindex",
		Subsystem: "graph",
		Name:      "queries_total",
		Help:      "Total graph source queries by source and status",
	}, []string{"source", "status"})

	// graphQuerySeconds measures graph source query latency.
	// Labels: source
	graphQuerySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nedindex",
		Subsystem: "graph",
		Name:      "query_seconds",
		Help:      "Graph source query latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"source"})

	// lookupsTotal counts candidate lookups.
	// Labels: kind (token, context), outcome (hit, miss, cached, syntax_error, error)
	lookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nedindex",
		Name:      "lookups_total",
		Help:      "Total candidate lookups by kind and outcome",
	}, []string{"kind", "outcome"})
)

// Lookup outcomes.
const (
	OutcomeHit         = "hit"
	OutcomeMiss        = "miss"
	OutcomeCached      = "cached"
	OutcomeSyntaxError = "syntax_error"
	OutcomeError       = "error"
)

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordEntityWritten counts one document written during a build.
func RecordEntityWritten() {
	buildEntitiesTotal.Inc()
}

// RecordBuild records the duration and result of a build pass.
func RecordBuild(d time.Duration, err error) {
	buildDurationSeconds.WithLabelValues(status(err)).Observe(d.Seconds())
}

// RecordGraphQuery records one graph query against source.
func RecordGraphQuery(source string, d time.Duration, err error) {
	graphQueriesTotal.WithLabelValues(source, status(err)).Inc()
	graphQuerySeconds.WithLabelValues(source).Observe(d.Seconds())
}

// RecordLookup records one candidate lookup of kind with outcome.
func RecordLookup(kind, outcome string) {
	lookupsTotal.WithLabelValues(kind, outcome).Inc()
}
