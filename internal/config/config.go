// Package config provides configuration management for nedindex.
// It loads settings from environment variables with the NEDINDEX_ prefix
// and provides sensible defaults for all configuration options.
//
// A YAML file named by NEDINDEX_CONFIG may supply values too. Precedence,
// lowest first: defaults, the YAML file, environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/scrypster/nedindex/internal/vocab"
)

// DefaultEndpoint is the public SPARQL endpoint used when no graph source
// is configured.
const DefaultEndpoint = "http://lod.openlinksw.com/sparql"

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all configuration settings for nedindex.
type Config struct {
	Source    SourceConfig    `yaml:"source"`
	Endpoint  EndpointConfig  `yaml:"endpoint"`
	Index     IndexConfig     `yaml:"index"`
	Build     BuildConfig     `yaml:"build"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Log       LogConfig       `yaml:"log"`
}

// SourceConfig selects the knowledge graph to index.
type SourceConfig struct {
	Endpoint string `yaml:"endpoint"` // SPARQL endpoint URL (default: DefaultEndpoint)
	File     string `yaml:"file"`     // Local RDF file; takes precedence over Endpoint when set
	Category string `yaml:"category"` // Category IRI whose members are indexed (default: wordnet_company)
}

// EndpointConfig tunes the remote SPARQL client.
type EndpointConfig struct {
	Timeout           time.Duration `yaml:"timeout"`             // Per-request timeout (default: 60s)
	RequestsPerSecond float64       `yaml:"requests_per_second"` // Query throttle, 0 = unlimited (default: 0)
	Burst             int           `yaml:"burst"`               // Throttle burst (default: 1)
	MaxFailures       int           `yaml:"max_failures"`        // Consecutive failures that open the breaker (default: 3)
	BreakerTimeout    time.Duration `yaml:"breaker_timeout"`     // How long the breaker stays open (default: 30s)
}

// IndexConfig selects the index engine and its location.
type IndexConfig struct {
	Engine        string `yaml:"engine"`         // Index engine: sqlite, postgres (default: sqlite)
	Path          string `yaml:"path"`           // On-disk index directory for sqlite (default: ./index)
	PostgresDSN   string `yaml:"postgres_dsn"`   // PostgreSQL connection string
	PostgresTable string `yaml:"postgres_table"` // PostgreSQL document table (default: nedindex_candidates)
}

// BuildConfig tunes build passes.
type BuildConfig struct {
	// Concurrency bounds parallel per-entity aggregation. 1 keeps the
	// build strictly sequential. (default: 1)
	Concurrency int `yaml:"concurrency"`
}

// RetrievalConfig tunes candidate lookups.
type RetrievalConfig struct {
	DefaultLimit int    `yaml:"default_limit"` // Candidates returned when no k is given (default: 10)
	ContextField string `yaml:"context_field"` // Field searched by context lookups: aliases, context (default: aliases)
	CacheSize    int    `yaml:"cache_size"`    // LRU lookup cache entries, 0 disables (default: 1024)
}

// LogConfig controls logging.
type LogConfig struct {
	Debug bool `yaml:"debug"` // Enable debug logging (default: false)
}

// LoadConfig loads configuration from defaults, the optional YAML file
// named by NEDINDEX_CONFIG, and environment variables, then validates it.
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("NEDINDEX_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Endpoint: DefaultEndpoint,
			Category: vocab.WordnetCompany,
		},
		Endpoint: EndpointConfig{
			Timeout:        60 * time.Second,
			Burst:          1,
			MaxFailures:    3,
			BreakerTimeout: 30 * time.Second,
		},
		Index: IndexConfig{
			Engine:        "sqlite",
			Path:          "./index",
			PostgresTable: "nedindex_candidates",
		},
		Build: BuildConfig{
			Concurrency: 1,
		},
		Retrieval: RetrievalConfig{
			DefaultLimit: 10,
			ContextField: "aliases",
			CacheSize:    1024,
		},
	}
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Source.Endpoint = getEnv("NEDINDEX_ENDPOINT", c.Source.Endpoint)
	c.Source.File = getEnv("NEDINDEX_FILE", c.Source.File)
	c.Source.Category = getEnv("NEDINDEX_CATEGORY", c.Source.Category)

	c.Endpoint.Timeout = getEnvDuration("NEDINDEX_ENDPOINT_TIMEOUT", c.Endpoint.Timeout)
	c.Endpoint.RequestsPerSecond = getEnvFloat("NEDINDEX_ENDPOINT_RPS", c.Endpoint.RequestsPerSecond)
	c.Endpoint.Burst = getEnvInt("NEDINDEX_ENDPOINT_BURST", c.Endpoint.Burst)
	c.Endpoint.MaxFailures = getEnvInt("NEDINDEX_ENDPOINT_MAX_FAILURES", c.Endpoint.MaxFailures)
	c.Endpoint.BreakerTimeout = getEnvDuration("NEDINDEX_ENDPOINT_BREAKER_TIMEOUT", c.Endpoint.BreakerTimeout)

	c.Index.Engine = getEnv("NEDINDEX_INDEX_ENGINE", c.Index.Engine)
	c.Index.Path = getEnv("NEDINDEX_INDEX_PATH", c.Index.Path)
	c.Index.PostgresDSN = getEnv("NEDINDEX_POSTGRES_DSN", c.Index.PostgresDSN)
	c.Index.PostgresTable = getEnv("NEDINDEX_POSTGRES_TABLE", c.Index.PostgresTable)

	c.Build.Concurrency = getEnvInt("NEDINDEX_BUILD_CONCURRENCY", c.Build.Concurrency)

	c.Retrieval.DefaultLimit = getEnvInt("NEDINDEX_DEFAULT_LIMIT", c.Retrieval.DefaultLimit)
	c.Retrieval.ContextField = getEnv("NEDINDEX_CONTEXT_FIELD", c.Retrieval.ContextField)
	c.Retrieval.CacheSize = getEnvInt("NEDINDEX_CACHE_SIZE", c.Retrieval.CacheSize)

	c.Log.Debug = getEnvBool("NEDINDEX_DEBUG", c.Log.Debug)
}

// Validate rejects configurations no build or lookup can run with.
func (c *Config) Validate() error {
	var problems []string
	switch c.Index.Engine {
	case "sqlite":
	case "postgres":
		if c.Index.PostgresDSN == "" {
			problems = append(problems, "index.postgres_dsn is required for the postgres engine")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown index engine %q", c.Index.Engine))
	}
	if c.Source.File == "" && c.Source.Endpoint == "" {
		problems = append(problems, "one of source.file or source.endpoint is required")
	}
	if c.Source.Category == "" {
		problems = append(problems, "source.category is required")
	}
	if c.Build.Concurrency < 1 {
		problems = append(problems, "build.concurrency must be at least 1")
	}
	if c.Retrieval.DefaultLimit < 0 {
		problems = append(problems, "retrieval.default_limit must not be negative")
	}
	if c.Retrieval.CacheSize < 0 {
		problems = append(problems, "retrieval.cache_size must not be negative")
	}
	switch c.Retrieval.ContextField {
	case "aliases", "context":
	default:
		problems = append(problems, fmt.Sprintf("retrieval.context_field must be aliases or context, got %q", c.Retrieval.ContextField))
	}
	if c.Endpoint.Timeout <= 0 {
		problems = append(problems, "endpoint.timeout must be positive")
	}
	if c.Endpoint.RequestsPerSecond < 0 || c.Endpoint.MaxFailures < 0 {
		problems = append(problems, "endpoint limits must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: %w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as an integer,
// it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings such as "90s" or "2m".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value.
// It recognizes "true", "1", "yes" as true and "false", "0", "no" as false (case-insensitive).
// If the environment variable exists but cannot be parsed as a boolean,
// it returns the default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return defaultValue
}
