package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/nedindex/internal/config"
	"github.com/scrypster/nedindex/internal/graph"
	"github.com/scrypster/nedindex/internal/graph/graphtest"
	"github.com/scrypster/nedindex/internal/index"
	"github.com/scrypster/nedindex/internal/index/sqlite"
	"github.com/scrypster/nedindex/pkg/types"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Build.Concurrency = 2
	return cfg
}

// newTestRetriever builds the company fixture into an in-memory index.
func newTestRetriever(t *testing.T, cfg *config.Config) *Retriever {
	t.Helper()
	idx, err := sqlite.Open("")
	require.NoError(t, err)

	r, err := Build(context.Background(), cfg, graphtest.Companies(), idx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestCandidatesFromToken(t *testing.T) {
	r := newTestRetriever(t, testConfig(t))
	ctx := context.Background()

	got, err := r.CandidatesFromToken(ctx, "AAPL", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"Apple Inc."}, got)

	got, err = r.CandidatesFromToken(ctx, "doesnotexist", 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = r.CandidatesFromToken(ctx, "Paris", 5)
	require.NoError(t, err)
	assert.Empty(t, got, "entities outside the category are not indexed")
}

func TestCandidatesFromToken_NonPositiveK(t *testing.T) {
	r := newTestRetriever(t, testConfig(t))

	for _, k := range []int{0, -1} {
		got, err := r.CandidatesFromToken(context.Background(), "AAPL", k)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
}

func TestCandidatesFromToken_SyntaxErrorIsEmpty(t *testing.T) {
	r := newTestRetriever(t, testConfig(t))

	for _, q := range []string{`"AAPL`, "(AAPL", ""} {
		got, err := r.CandidatesFromToken(context.Background(), q, 5)
		require.NoError(t, err, q)
		assert.Empty(t, got, q)
	}
}

func TestCandidatesFromContext_SearchesAliasesByDefault(t *testing.T) {
	r := newTestRetriever(t, testConfig(t))
	ctx := context.Background()
	require.Equal(t, index.FieldAliases, r.ContextField())

	// Context terms are not aliases, so a passage naming only them finds nothing.
	got, err := r.CandidatesFromContext(ctx, "Steve Jobs unveiled the IPhone", 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = r.CandidatesFromContext(ctx, "shares of MSFT and AAPL rose", 5)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Apple Inc.", "Microsoft"}, got)
}

func TestCandidatesFromContext_ContextField(t *testing.T) {
	cfg := testConfig(t)
	cfg.Retrieval.ContextField = "context"
	r := newTestRetriever(t, cfg)

	got, err := r.CandidatesFromContext(context.Background(), "Steve Jobs unveiled the IPhone", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"Apple Inc."}, got)
}

func TestCandidates_ScoredAndLimited(t *testing.T) {
	r := newTestRetriever(t, testConfig(t))

	hits, err := r.CandidatesFromContextScored(context.Background(), "apple microsoft banana", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
}

func TestCandidates_CacheReturnsCopies(t *testing.T) {
	r := newTestRetriever(t, testConfig(t))
	ctx := context.Background()

	first, err := r.CandidatesFromTokenScored(ctx, "AAPL", 5)
	require.NoError(t, err)
	require.Len(t, first, 1)
	first[0].Name = "mutated"

	second, err := r.CandidatesFromTokenScored(ctx, "AAPL", 5)
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc.", second[0].Name)
}

func TestCandidates_Concurrent(t *testing.T) {
	r := newTestRetriever(t, testConfig(t))
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([][]string, 32)
	errs := make([]error, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				results[i], errs[i] = r.CandidatesFromToken(ctx, "MSFT", 5)
			} else {
				results[i], errs[i] = r.CandidatesFromContext(ctx, "banana republic", 5)
			}
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		if i%2 == 0 {
			assert.Equal(t, []string{"Microsoft"}, results[i])
		} else {
			assert.Equal(t, []string{"Banana Republic"}, results[i])
		}
	}
}

func TestBuildStats(t *testing.T) {
	r := newTestRetriever(t, testConfig(t))

	stats := r.BuildStats()
	assert.NotEmpty(t, stats.BuildID)
	assert.Equal(t, 3, stats.Entities)
	assert.Equal(t, 3, stats.Documents)
}

func TestBuildOnDisk_MatchesInMemory(t *testing.T) {
	cfg := testConfig(t)
	dir := filepath.Join(t.TempDir(), "index")
	ctx := context.Background()

	mem := newTestRetriever(t, cfg)

	built, err := BuildOnDisk(ctx, cfg, dir, graphtest.Companies())
	require.NoError(t, err)
	require.NoError(t, built.Close())

	disk, err := OpenExisting(ctx, cfg, dir)
	require.NoError(t, err)
	defer disk.Close()
	assert.Equal(t, built.BuildStats().BuildID, disk.BuildStats().BuildID)

	for _, q := range []string{"AAPL", "apple computer", "banana", "MSFT", "nothing"} {
		want, err := mem.CandidatesFromToken(ctx, q, 5)
		require.NoError(t, err)
		got, err := disk.CandidatesFromToken(ctx, q, 5)
		require.NoError(t, err)
		assert.Equal(t, want, got, q)
	}
}

func TestOpenExisting_InvalidPath(t *testing.T) {
	_, err := OpenExisting(context.Background(), testConfig(t), filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, index.ErrInvalidIndexPath)
}

func TestBuildInMemoryFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "companies.nt")
	require.NoError(t, os.WriteFile(path, []byte(graphtest.NTriples()), 0o600))

	r, err := BuildInMemoryFromFile(context.Background(), testConfig(t), path)
	require.NoError(t, err)
	defer r.Close()

	got, err := r.CandidatesFromToken(context.Background(), "Apple", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"Apple Inc."}, got)
}

func TestBuildInMemoryFromFile_Missing(t *testing.T) {
	_, err := BuildInMemoryFromFile(context.Background(), testConfig(t), filepath.Join(t.TempDir(), "none.nt"))
	assert.ErrorIs(t, err, graph.ErrFileNotFound)
}

func TestBuild_FailureClosesIndex(t *testing.T) {
	idx, err := sqlite.Open("")
	require.NoError(t, err)

	src := &flakySource{src: graphtest.Companies(), badIRI: graphtest.Apple}
	_, err = Build(context.Background(), testConfig(t), src, idx)
	require.Error(t, err)

	// The index was closed by Build, so it can no longer be written.
	assert.Error(t, idx.AddDocument(context.Background(), types.EntityRecord{Name: "x"}))
}

// brokenIndex fails every search with an I/O error.
type brokenIndex struct{ index.Index }

func (brokenIndex) Search(context.Context, index.Field, string, int) ([]types.Candidate, error) {
	return nil, index.ErrIndexIO
}

func (brokenIndex) BuildID() string { return "broken" }

func TestCandidates_IOErrorPropagates(t *testing.T) {
	r, err := NewRetriever(brokenIndex{}, WithCacheSize(8))
	require.NoError(t, err)

	_, err = r.CandidatesFromToken(context.Background(), "AAPL", 5)
	assert.True(t, errors.Is(err, index.ErrIndexIO))
}

func TestNewRetriever_RejectsStoredOnlyContextField(t *testing.T) {
	idx, err := sqlite.Open("")
	require.NoError(t, err)
	defer idx.Close()

	_, err = NewRetriever(idx, WithContextField(index.FieldName))
	assert.ErrorIs(t, err, index.ErrNotSearchable)
}
