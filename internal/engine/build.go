package engine

import (
	"context"
	"fmt"

	"github.com/scrypster/nedindex/internal/config"
	"github.com/scrypster/nedindex/internal/graph"
	"github.com/scrypster/nedindex/internal/index"
	"github.com/scrypster/nedindex/internal/index/postgres"
	"github.com/scrypster/nedindex/internal/index/sqlite"
)

// SourceFromConfig opens the graph named by cfg: the local file when one
// is configured, the remote endpoint otherwise.
func SourceFromConfig(cfg *config.Config) (graph.Source, error) {
	if cfg.Source.File != "" {
		m, err := graph.LoadFile(cfg.Source.File)
		if err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
		return m, nil
	}
	return endpointFromConfig(cfg, cfg.Source.Endpoint)
}

func endpointFromConfig(cfg *config.Config, url string) (*graph.Endpoint, error) {
	ep, err := graph.NewEndpoint(url, graph.EndpointOptions{
		Timeout:           cfg.Endpoint.Timeout,
		RequestsPerSecond: cfg.Endpoint.RequestsPerSecond,
		Burst:             cfg.Endpoint.Burst,
		MaxFailures:       uint32(max(cfg.Endpoint.MaxFailures, 0)),
		BreakerTimeout:    cfg.Endpoint.BreakerTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	return ep, nil
}

// BuildInMemoryFromEndpoint indexes the configured remote endpoint into a
// transient in-memory index.
func BuildInMemoryFromEndpoint(ctx context.Context, cfg *config.Config) (*Retriever, error) {
	src, err := endpointFromConfig(cfg, cfg.Source.Endpoint)
	if err != nil {
		return nil, err
	}
	return buildInMemory(ctx, cfg, src)
}

// BuildInMemoryFromFile indexes the RDF file at path into a transient
// in-memory index.
func BuildInMemoryFromFile(ctx context.Context, cfg *config.Config, path string) (*Retriever, error) {
	m, err := graph.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	return buildInMemory(ctx, cfg, m)
}

func buildInMemory(ctx context.Context, cfg *config.Config, src graph.Source) (*Retriever, error) {
	idx, err := sqlite.Open("")
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	return Build(ctx, cfg, src, idx)
}

// BuildOnDisk indexes src into a persistent index and returns a retriever
// over it. With the sqlite engine indexDir is the index directory; the
// postgres engine uses the configured DSN and table instead.
func BuildOnDisk(ctx context.Context, cfg *config.Config, indexDir string, src graph.Source) (*Retriever, error) {
	var (
		idx index.Index
		err error
	)
	switch cfg.Index.Engine {
	case "postgres":
		idx, err = postgres.Open(ctx, cfg.Index.PostgresDSN, cfg.Index.PostgresTable)
	default:
		idx, err = sqlite.Open(indexDir)
	}
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	return Build(ctx, cfg, src, idx)
}

// OpenExisting opens a previously finalized persistent index for lookups.
func OpenExisting(ctx context.Context, cfg *config.Config, indexDir string) (*Retriever, error) {
	var (
		idx index.Index
		err error
	)
	switch cfg.Index.Engine {
	case "postgres":
		idx, err = postgres.OpenExisting(ctx, cfg.Index.PostgresDSN, cfg.Index.PostgresTable)
	default:
		idx, err = sqlite.OpenExisting(indexDir)
	}
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	r, err := newRetriever(cfg, idx)
	if err != nil {
		_ = idx.Close()
		return nil, err
	}
	return r, nil
}

// Build runs one pass of src into idx and wraps the finalized index. idx
// is closed if the pass fails.
func Build(ctx context.Context, cfg *config.Config, src graph.Source, idx index.Index) (*Retriever, error) {
	p := &Pipeline{
		Source:      instrument(src, sourceName(src)),
		Category:    cfg.Source.Category,
		Concurrency: cfg.Build.Concurrency,
	}
	stats, err := p.Build(ctx, idx)
	if err != nil {
		_ = idx.Close()
		return nil, err
	}
	stats.BuildID = idx.BuildID()

	r, err := newRetriever(cfg, idx, WithBuildStats(stats))
	if err != nil {
		_ = idx.Close()
		return nil, err
	}
	return r, nil
}

func newRetriever(cfg *config.Config, idx index.Index, opts ...RetrieverOption) (*Retriever, error) {
	field, err := index.ParseField(cfg.Retrieval.ContextField)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	opts = append(opts, WithContextField(field), WithCacheSize(cfg.Retrieval.CacheSize))
	return NewRetriever(idx, opts...)
}
