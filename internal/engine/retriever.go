package engine

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/scrypster/nedindex/internal/index"
	"github.com/scrypster/nedindex/internal/logger"
	"github.com/scrypster/nedindex/internal/metrics"
	"github.com/scrypster/nedindex/pkg/types"
)

// Lookup kinds, used as the metrics "kind" label.
const (
	kindToken   = "token"
	kindContext = "context"
)

type cacheKey struct {
	field index.Field
	text  string
	k     int
}

// Retriever answers candidate lookups against a finalized index. It is
// safe for concurrent use.
type Retriever struct {
	idx          index.Index
	contextField index.Field
	cache        *lru.Cache[cacheKey, []types.Candidate]
	stats        types.BuildStats
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever) error

// WithContextField sets the field searched by context lookups. The
// default is the aliases field.
func WithContextField(f index.Field) RetrieverOption {
	return func(r *Retriever) error {
		if err := r.idx.Schema().CheckSearchable(f); err != nil {
			return err
		}
		r.contextField = f
		return nil
	}
}

// WithCacheSize memoizes up to n lookup results. Zero disables caching.
func WithCacheSize(n int) RetrieverOption {
	return func(r *Retriever) error {
		if n <= 0 {
			r.cache = nil
			return nil
		}
		c, err := lru.New[cacheKey, []types.Candidate](n)
		if err != nil {
			return err
		}
		r.cache = c
		return nil
	}
}

// WithBuildStats attaches the stats of the pass that produced the index.
func WithBuildStats(stats types.BuildStats) RetrieverOption {
	return func(r *Retriever) error {
		r.stats = stats
		return nil
	}
}

// NewRetriever wraps a finalized index.
func NewRetriever(idx index.Index, opts ...RetrieverOption) (*Retriever, error) {
	r := &Retriever{idx: idx, contextField: index.FieldAliases}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, fmt.Errorf("engine: new retriever: %w", err)
		}
	}
	if r.stats.BuildID == "" {
		r.stats.BuildID = idx.BuildID()
	}
	return r, nil
}

// CandidatesFromToken returns the names of up to k entities whose aliases
// best match token.
func (r *Retriever) CandidatesFromToken(ctx context.Context, token string, k int) ([]string, error) {
	hits, err := r.CandidatesFromTokenScored(ctx, token, k)
	if err != nil {
		return nil, err
	}
	return types.Names(hits), nil
}

// CandidatesFromContext returns the names of up to k entities that best
// match a free-text passage.
func (r *Retriever) CandidatesFromContext(ctx context.Context, text string, k int) ([]string, error) {
	hits, err := r.CandidatesFromContextScored(ctx, text, k)
	if err != nil {
		return nil, err
	}
	return types.Names(hits), nil
}

// CandidatesFromTokenScored is CandidatesFromToken with relevance scores.
func (r *Retriever) CandidatesFromTokenScored(ctx context.Context, token string, k int) ([]types.Candidate, error) {
	return r.lookup(ctx, kindToken, index.FieldAliases, token, k)
}

// CandidatesFromContextScored is CandidatesFromContext with relevance scores.
func (r *Retriever) CandidatesFromContextScored(ctx context.Context, text string, k int) ([]types.Candidate, error) {
	return r.lookup(ctx, kindContext, r.contextField, text, k)
}

func (r *Retriever) lookup(ctx context.Context, kind string, field index.Field, text string, k int) ([]types.Candidate, error) {
	if k <= 0 {
		return []types.Candidate{}, nil
	}

	key := cacheKey{field: field, text: text, k: k}
	if r.cache != nil {
		if hits, ok := r.cache.Get(key); ok {
			metrics.RecordLookup(kind, metrics.OutcomeCached)
			return clone(hits), nil
		}
	}

	hits, err := r.idx.Search(ctx, field, text, k)
	if err != nil {
		if errors.Is(err, index.ErrQuerySyntax) {
			logger.Warn("unparsable lookup text, returning no candidates", "kind", kind, "text", text, "error", err)
			metrics.RecordLookup(kind, metrics.OutcomeSyntaxError)
			return []types.Candidate{}, nil
		}
		metrics.RecordLookup(kind, metrics.OutcomeError)
		return nil, fmt.Errorf("engine: %s lookup %q: %w", kind, text, err)
	}

	if len(hits) == 0 {
		metrics.RecordLookup(kind, metrics.OutcomeMiss)
	} else {
		metrics.RecordLookup(kind, metrics.OutcomeHit)
	}
	if r.cache != nil {
		r.cache.Add(key, clone(hits))
	}
	return hits, nil
}

func clone(hits []types.Candidate) []types.Candidate {
	out := make([]types.Candidate, len(hits))
	copy(out, hits)
	return out
}

// ContextField returns the field searched by context lookups.
func (r *Retriever) ContextField() index.Field { return r.contextField }

// BuildStats returns the stats of the pass that produced the index. Only
// BuildID is known for an index opened from disk.
func (r *Retriever) BuildStats() types.BuildStats { return r.stats }

// Close releases the underlying index.
func (r *Retriever) Close() error {
	return r.idx.Close()
}
