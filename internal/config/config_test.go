package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/nedindex/internal/config"
	"github.com/scrypster/nedindex/internal/vocab"
)

// clearEnv unsets every variable the tests touch so host settings do not leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"NEDINDEX_CONFIG", "NEDINDEX_ENDPOINT", "NEDINDEX_FILE", "NEDINDEX_CATEGORY",
		"NEDINDEX_INDEX_ENGINE", "NEDINDEX_INDEX_PATH", "NEDINDEX_POSTGRES_DSN",
		"NEDINDEX_BUILD_CONCURRENCY", "NEDINDEX_CONTEXT_FIELD", "NEDINDEX_DEBUG",
		"NEDINDEX_ENDPOINT_TIMEOUT", "NEDINDEX_DEFAULT_LIMIT", "NEDINDEX_CACHE_SIZE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, config.DefaultEndpoint, cfg.Source.Endpoint)
	assert.Equal(t, "http://lod.openlinksw.com/sparql", cfg.Source.Endpoint)
	assert.Equal(t, vocab.WordnetCompany, cfg.Source.Category)
	assert.Equal(t, "sqlite", cfg.Index.Engine)
	assert.Equal(t, 1, cfg.Build.Concurrency, "builds must be sequential by default")
	assert.Equal(t, 10, cfg.Retrieval.DefaultLimit)
	assert.Equal(t, "aliases", cfg.Retrieval.ContextField)
	assert.Equal(t, 60*time.Second, cfg.Endpoint.Timeout)
	assert.False(t, cfg.Log.Debug)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("NEDINDEX_FILE", "yago.ttl")
	t.Setenv("NEDINDEX_BUILD_CONCURRENCY", "4")
	t.Setenv("NEDINDEX_CONTEXT_FIELD", "context")
	t.Setenv("NEDINDEX_ENDPOINT_TIMEOUT", "5s")
	t.Setenv("NEDINDEX_DEBUG", "YES")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "yago.ttl", cfg.Source.File)
	assert.Equal(t, 4, cfg.Build.Concurrency)
	assert.Equal(t, "context", cfg.Retrieval.ContextField)
	assert.Equal(t, 5*time.Second, cfg.Endpoint.Timeout)
	assert.True(t, cfg.Log.Debug)
}

func TestLoadConfig_UnparsableEnvKeepsDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("NEDINDEX_DEFAULT_LIMIT", "ten")
	t.Setenv("NEDINDEX_ENDPOINT_TIMEOUT", "soon")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Retrieval.DefaultLimit)
	assert.Equal(t, 60*time.Second, cfg.Endpoint.Timeout)
}

func TestLoadConfig_YAMLFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nedindex.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
source:
  file: companies.nt
index:
  path: /tmp/companies-index
build:
  concurrency: 8
retrieval:
  default_limit: 25
endpoint:
  timeout: 2m
`), 0o600))
	t.Setenv("NEDINDEX_CONFIG", path)
	t.Setenv("NEDINDEX_BUILD_CONCURRENCY", "2")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "companies.nt", cfg.Source.File)
	assert.Equal(t, "/tmp/companies-index", cfg.Index.Path)
	assert.Equal(t, 25, cfg.Retrieval.DefaultLimit)
	assert.Equal(t, 2*time.Minute, cfg.Endpoint.Timeout)
	assert.Equal(t, 2, cfg.Build.Concurrency, "environment must override the file")
	assert.Equal(t, config.DefaultEndpoint, cfg.Source.Endpoint, "unset keys keep defaults")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("NEDINDEX_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := config.LoadConfig()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown engine", func(c *config.Config) { c.Index.Engine = "lucene" }},
		{"postgres without dsn", func(c *config.Config) { c.Index.Engine = "postgres" }},
		{"no source", func(c *config.Config) { c.Source.Endpoint = ""; c.Source.File = "" }},
		{"no category", func(c *config.Config) { c.Source.Category = "" }},
		{"zero concurrency", func(c *config.Config) { c.Build.Concurrency = 0 }},
		{"bad context field", func(c *config.Config) { c.Retrieval.ContextField = "name" }},
		{"negative cache", func(c *config.Config) { c.Retrieval.CacheSize = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), config.ErrInvalidConfig)
		})
	}

	assert.NoError(t, config.Default().Validate())
}
