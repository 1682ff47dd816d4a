// Package postgres provides a PostgreSQL implementation of the candidate
// index using generated tsvector columns and ts_rank.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/scrypster/nedindex/internal/index"
	"github.com/scrypster/nedindex/internal/logger"
	"github.com/scrypster/nedindex/pkg/types"
)

// DefaultTable is the table used when none is configured.
const DefaultTable = "nedindex_candidates"

// syntaxErrorCode is the SQLSTATE of syntax_error.
const syntaxErrorCode = "42601"

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,50}$`)

// Ensure *Index implements index.Index at compile time.
var _ index.Index = (*Index)(nil)

// Index stores candidate documents in a PostgreSQL table.
type Index struct {
	db     *sql.DB
	schema index.Schema
	table  string

	mu        sync.RWMutex
	tx        *sql.Tx
	docs      int
	finalized bool
	buildID   string
}

// Open connects to dsn and recreates table as an empty, writable index.
func Open(ctx context.Context, dsn, table string) (*Index, error) {
	x, err := connect(ctx, dsn, table)
	if err != nil {
		return nil, err
	}
	if _, err := x.db.ExecContext(ctx, x.createSQL()); err != nil {
		_ = x.db.Close()
		return nil, fmt.Errorf("postgres: failed to apply schema: %w: %v", index.ErrIndexIO, err)
	}
	return x, nil
}

// OpenExisting connects to dsn and opens the finalized index in table.
func OpenExisting(ctx context.Context, dsn, table string) (*Index, error) {
	x, err := connect(ctx, dsn, table)
	if err != nil {
		return nil, err
	}

	meta := make(map[string]string)
	rows, err := x.db.QueryContext(ctx, fmt.Sprintf("SELECT key, value FROM %s_meta", x.table))
	if err != nil {
		_ = x.db.Close()
		return nil, fmt.Errorf("%w: table %s holds no index", index.ErrInvalidIndexPath, x.table)
	}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			_ = rows.Close()
			_ = x.db.Close()
			return nil, fmt.Errorf("postgres: read index metadata: %w: %v", index.ErrIndexIO, err)
		}
		meta[k] = v
	}
	_ = rows.Close()

	if meta["finalized_at"] == "" {
		_ = x.db.Close()
		return nil, fmt.Errorf("%w: table %s holds no finalized index", index.ErrInvalidIndexPath, x.table)
	}
	x.docs, _ = strconv.Atoi(meta["documents"])
	x.buildID = meta["build_id"]
	x.finalized = true
	return x, nil
}

func connect(ctx context.Context, dsn, table string) (*Index, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("%w: bad table name %q", index.ErrInvalidIndexPath, table)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to open database: %w: %v", index.ErrIndexIO, err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: failed to ping database: %w: %v", index.ErrIndexIO, err)
	}
	return &Index{db: db, schema: index.DefaultSchema(), table: table}, nil
}

func (x *Index) createSQL() string {
	var cols, indexes []string
	for _, fd := range x.schema.Fields {
		name := fd.Field.String()
		cols = append(cols, fmt.Sprintf("%s TEXT NOT NULL DEFAULT ''", name))
		if fd.Policy.Searchable() {
			cols = append(cols, fmt.Sprintf(
				"%[1]s_tsv tsvector GENERATED ALWAYS AS (to_tsvector('simple', %[1]s)) STORED", name))
			indexes = append(indexes, fmt.Sprintf(
				"CREATE INDEX %[1]s_%[2]s_tsv_idx ON %[1]s USING GIN (%[2]s_tsv);", x.table, name))
		}
	}
	return fmt.Sprintf(`
		DROP TABLE IF EXISTS %[1]s;
		DROP TABLE IF EXISTS %[1]s_meta;
		CREATE TABLE %[1]s (
			id BIGSERIAL PRIMARY KEY,
			%[2]s
		);
		%[3]s
		CREATE TABLE %[1]s_meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`, x.table, strings.Join(cols, ",\n\t\t\t"), strings.Join(indexes, "\n\t\t"))
}

// Schema returns the index field schema.
func (x *Index) Schema() index.Schema { return x.schema }

// Table returns the document table name.
func (x *Index) Table() string { return x.table }

// BuildID returns the id assigned at Finalize.
func (x *Index) BuildID() string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.buildID
}

// Count returns the number of documents added so far.
func (x *Index) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.docs
}

// AddDocument inserts rec inside the build transaction.
func (x *Index) AddDocument(ctx context.Context, rec types.EntityRecord) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.finalized {
		return fmt.Errorf("postgres: add %q: %w", rec.Name, index.ErrFinalized)
	}
	if err := x.begin(ctx); err != nil {
		return err
	}

	cols := make([]string, len(x.schema.Fields))
	marks := make([]string, len(x.schema.Fields))
	for i, fd := range x.schema.Fields {
		cols[i] = fd.Field.String()
		marks[i] = "$" + strconv.Itoa(i+1)
	}
	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		x.table, strings.Join(cols, ", "), strings.Join(marks, ", "))
	if _, err := x.tx.ExecContext(ctx, insertSQL, x.schema.Values(rec)...); err != nil {
		return fmt.Errorf("postgres: add %q: %w: %v", rec.Name, index.ErrIndexIO, err)
	}
	x.docs++
	return nil
}

func (x *Index) begin(ctx context.Context) error {
	if x.tx != nil {
		return nil
	}
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin build: %w: %v", index.ErrIndexIO, err)
	}
	x.tx = tx
	return nil
}

// Finalize commits the build, records its metadata and refreshes planner
// statistics.
func (x *Index) Finalize(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.finalized {
		return fmt.Errorf("postgres: finalize: %w", index.ErrFinalized)
	}
	if err := x.begin(ctx); err != nil {
		return err
	}

	buildID := uuid.New().String()
	meta := [][2]string{
		{"build_id", buildID},
		{"schema_version", strconv.Itoa(index.SchemaVersion)},
		{"documents", strconv.Itoa(x.docs)},
		{"finalized_at", time.Now().UTC().Format(time.RFC3339)},
	}
	upsert := fmt.Sprintf(`INSERT INTO %s_meta (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, x.table)
	for _, kv := range meta {
		if _, err := x.tx.ExecContext(ctx, upsert, kv[0], kv[1]); err != nil {
			_ = x.tx.Rollback()
			x.tx = nil
			return fmt.Errorf("postgres: write index metadata: %w: %v", index.ErrIndexIO, err)
		}
	}
	err := x.tx.Commit()
	x.tx = nil
	if err != nil {
		return fmt.Errorf("postgres: commit build: %w: %v", index.ErrIndexIO, err)
	}

	if _, err := x.db.ExecContext(ctx, "ANALYZE "+x.table); err != nil {
		logger.Warn("postgres analyze failed", "table", x.table, "error", err)
	}

	x.finalized = true
	x.buildID = buildID
	logger.Info("index finalized", "engine", "postgres", "table", x.table, "documents", x.docs, "build_id", buildID)
	return nil
}

// Search ranks documents whose field matches any term of queryText by
// ts_rank, best first.
func (x *Index) Search(ctx context.Context, field index.Field, queryText string, limit int) ([]types.Candidate, error) {
	if err := x.schema.CheckSearchable(field); err != nil {
		return nil, fmt.Errorf("postgres: search: %w", err)
	}
	x.mu.RLock()
	finalized := x.finalized
	x.mu.RUnlock()
	if !finalized {
		return nil, fmt.Errorf("postgres: search: %w", index.ErrNotFinalized)
	}
	if limit <= 0 {
		return []types.Candidate{}, nil
	}

	terms, err := index.ParseTerms(queryText)
	if err != nil {
		return nil, fmt.Errorf("postgres: search: %w", err)
	}

	querySQL := fmt.Sprintf(`
		SELECT name, ts_rank(%[2]s_tsv, q) AS score
		FROM %[1]s, to_tsquery('simple', $1) AS q
		WHERE %[2]s_tsv @@ q
		ORDER BY score DESC, id
		LIMIT $2
	`, x.table, field)

	rows, err := x.db.QueryContext(ctx, querySQL, tsQuery(terms), limit)
	if err != nil {
		return nil, classify(queryText, err)
	}
	defer func() { _ = rows.Close() }()

	candidates := make([]types.Candidate, 0, min(limit, 64))
	for rows.Next() {
		var c types.Candidate
		if err := rows.Scan(&c.Name, &c.Score); err != nil {
			return nil, fmt.Errorf("postgres: search scan: %w: %v", index.ErrIndexIO, err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(queryText, err)
	}
	return candidates, nil
}

// tsQuery ORs quoted lexemes together.
func tsQuery(terms []string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = "'" + strings.ReplaceAll(t, "'", "''") + "'"
	}
	return strings.Join(quoted, " | ")
}

func classify(queryText string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == syntaxErrorCode {
		return fmt.Errorf("postgres: search %q: %w: %v", queryText, index.ErrQuerySyntax, err)
	}
	return fmt.Errorf("postgres: search %q: %w: %v", queryText, index.ErrIndexIO, err)
}

// Close rolls back an unfinished build and closes the connection pool.
func (x *Index) Close() error {
	x.mu.Lock()
	if x.tx != nil {
		_ = x.tx.Rollback()
		x.tx = nil
	}
	x.mu.Unlock()
	return x.db.Close()
}

// DropForTest removes the index tables. It is intended for tests only.
func (x *Index) DropForTest(ctx context.Context) error {
	_, err := x.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %[1]s; DROP TABLE IF EXISTS %[1]s_meta", x.table))
	if err != nil {
		return fmt.Errorf("postgres: failed to drop index tables: %w", err)
	}
	return nil
}
