// Package sqlite implements the candidate index on SQLite FTS5 using the
// pure-Go modernc.org/sqlite driver.
//
// An index lives either in memory (empty path) or in a directory holding a
// single database file. Documents go into an FTS5 virtual table whose
// columns follow index.Schema: stored-only fields are declared UNINDEXED.
// Ranking uses FTS5's built-in bm25 rank, so lower rank is a better match
// and scores are reported negated.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/scrypster/nedindex/internal/index"
	"github.com/scrypster/nedindex/internal/logger"
	"github.com/scrypster/nedindex/pkg/types"
)

// DatabaseFile is the name of the database inside an index directory.
const DatabaseFile = "candidates.db"

const table = "candidates"

// Ensure *Index implements index.Index at compile time.
var _ index.Index = (*Index)(nil)

// Index is an FTS5-backed candidate index.
type Index struct {
	db     *sql.DB
	schema index.Schema
	path   string

	mu        sync.RWMutex
	tx        *sql.Tx
	insert    *sql.Stmt
	docs      int
	finalized bool
	buildID   string
}

// Open creates an empty, writable index. An empty path keeps the index in
// memory. Otherwise path names a directory, created if missing, and any
// index already stored there is replaced.
func Open(path string) (*Index, error) {
	dsn := ":memory:"
	if path != "" {
		dbPath, err := prepareDir(path)
		if err != nil {
			return nil, err
		}
		dsn = dbPath
	}

	db, err := openDB(dsn)
	if err != nil {
		return nil, err
	}

	schema := index.DefaultSchema()
	if _, err := db.Exec(createSQL(schema)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w: %v", index.ErrIndexIO, err)
	}

	return &Index{db: db, schema: schema, path: path}, nil
}

// OpenExisting opens the finalized index stored in directory path for
// searching. The returned index rejects further writes.
func OpenExisting(path string) (*Index, error) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not an index directory", index.ErrInvalidIndexPath, path)
	}
	dbPath := filepath.Join(path, DatabaseFile)
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("%w: no index in %s", index.ErrInvalidIndexPath, path)
	}

	db, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA query_only = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: set query_only: %w: %v", index.ErrIndexIO, err)
	}

	meta, err := readMeta(db)
	if err != nil || meta["finalized_at"] == "" {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %s holds no finalized index", index.ErrInvalidIndexPath, path)
	}
	if v := meta["schema_version"]; v != strconv.Itoa(index.SchemaVersion) {
		_ = db.Close()
		return nil, fmt.Errorf("%w: schema version %q, want %d", index.ErrInvalidIndexPath, v, index.SchemaVersion)
	}
	docs, _ := strconv.Atoi(meta["documents"])

	return &Index{
		db:        db,
		schema:    index.DefaultSchema(),
		path:      path,
		docs:      docs,
		finalized: true,
		buildID:   meta["build_id"],
	}, nil
}

// prepareDir makes sure path is a directory and clears any previous index
// inside it, returning the database file path.
func prepareDir(path string) (string, error) {
	info, err := os.Stat(path)
	switch {
	case err == nil && !info.IsDir():
		return "", fmt.Errorf("%w: %s exists and is not a directory", index.ErrInvalidIndexPath, path)
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(path, 0o755); err != nil {
			return "", fmt.Errorf("sqlite: create index directory: %w: %v", index.ErrIndexIO, err)
		}
	case err != nil:
		return "", fmt.Errorf("sqlite: stat index directory: %w: %v", index.ErrIndexIO, err)
	}

	dbPath := filepath.Join(path, DatabaseFile)
	for _, suffix := range []string{"", "-journal", "-wal", "-shm"} {
		if err := os.Remove(dbPath + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("sqlite: reset index directory: %w: %v", index.ErrIndexIO, err)
		}
	}
	return dbPath, nil
}

func openDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w: %v", index.ErrIndexIO, err)
	}

	// One connection: an in-memory database exists per connection, and the
	// build writes through a single transaction.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: set busy timeout: %w: %v", index.ErrIndexIO, err)
	}
	return db, nil
}

func createSQL(schema index.Schema) string {
	cols := make([]string, 0, len(schema.Fields))
	for _, fd := range schema.Fields {
		col := fd.Field.String()
		if !fd.Policy.Indexed {
			col += " UNINDEXED"
		}
		cols = append(cols, col)
	}
	return fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS %s USING fts5(%s, tokenize = 'unicode61');
		CREATE TABLE IF NOT EXISTS index_meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`, table, strings.Join(cols, ", "))
}

func readMeta(db *sql.DB) (map[string]string, error) {
	rows, err := db.Query("SELECT key, value FROM index_meta")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		meta[k] = v
	}
	return meta, rows.Err()
}

// Schema returns the index field schema.
func (x *Index) Schema() index.Schema { return x.schema }

// Path returns the index directory, or "" for an in-memory index.
func (x *Index) Path() string { return x.path }

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

// AddDocument inserts rec. The first call opens the build transaction.
func (x *Index) AddDocument(ctx context.Context, rec types.EntityRecord) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.finalized {
		return fmt.Errorf("sqlite: add %q: %w", rec.Name, index.ErrFinalized)
	}
	if err := x.begin(ctx); err != nil {
		return err
	}
	if _, err := x.insert.ExecContext(ctx, x.schema.Values(rec)...); err != nil {
		return fmt.Errorf("sqlite: add %q: %w: %v", rec.Name, index.ErrIndexIO, err)
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
		return fmt.Errorf("sqlite: begin build: %w: %v", index.ErrIndexIO, err)
	}

	cols := make([]string, len(x.schema.Fields))
	marks := make([]string, len(x.schema.Fields))
	for i, fd := range x.schema.Fields {
		cols[i] = fd.Field.String()
		marks[i] = "?"
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(marks, ", ")))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("sqlite: prepare insert: %w: %v", index.ErrIndexIO, err)
	}
	x.tx, x.insert = tx, stmt
	return nil
}

// Finalize commits the build transaction, records the build metadata and
// merges the FTS5 segments. It may be called once.
func (x *Index) Finalize(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.finalized {
		return fmt.Errorf("sqlite: finalize: %w", index.ErrFinalized)
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
	for _, kv := range meta {
		if _, err := x.tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO index_meta (key, value) VALUES (?, ?)", kv[0], kv[1]); err != nil {
			x.abort()
			return fmt.Errorf("sqlite: write index metadata: %w: %v", index.ErrIndexIO, err)
		}
	}

	_ = x.insert.Close()
	if err := x.tx.Commit(); err != nil {
		x.tx, x.insert = nil, nil
		return fmt.Errorf("sqlite: commit build: %w: %v", index.ErrIndexIO, err)
	}
	x.tx, x.insert = nil, nil

	if _, err := x.db.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (%s) VALUES ('optimize')", table, table)); err != nil {
		logger.Warn("fts5 optimize failed", "error", err)
	}

	x.finalized = true
	x.buildID = buildID
	logger.Info("index finalized", "engine", "sqlite", "path", x.path, "documents", x.docs, "build_id", buildID)
	return nil
}

func (x *Index) abort() {
	if x.insert != nil {
		_ = x.insert.Close()
	}
	if x.tx != nil {
		_ = x.tx.Rollback()
	}
	x.tx, x.insert = nil, nil
}

// Search returns up to limit documents whose field matches any term of
// queryText, best match first.
func (x *Index) Search(ctx context.Context, field index.Field, queryText string, limit int) ([]types.Candidate, error) {
	if err := x.schema.CheckSearchable(field); err != nil {
		return nil, fmt.Errorf("sqlite: search: %w", err)
	}
	x.mu.RLock()
	finalized := x.finalized
	x.mu.RUnlock()
	if !finalized {
		return nil, fmt.Errorf("sqlite: search: %w", index.ErrNotFinalized)
	}
	if limit <= 0 {
		return []types.Candidate{}, nil
	}

	terms, err := index.ParseTerms(queryText)
	if err != nil {
		return nil, fmt.Errorf("sqlite: search: %w", err)
	}

	querySQL := fmt.Sprintf(`
		SELECT name, rank
		FROM %s
		WHERE %s MATCH ?
		ORDER BY rank, rowid
		LIMIT ?
	`, table, table)

	rows, err := x.db.QueryContext(ctx, querySQL, matchExpr(field, terms), limit)
	if err != nil {
		return nil, classify(queryText, err)
	}
	defer func() { _ = rows.Close() }()

	candidates := make([]types.Candidate, 0, min(limit, 64))
	for rows.Next() {
		var c types.Candidate
		var rank float64
		if err := rows.Scan(&c.Name, &rank); err != nil {
			return nil, fmt.Errorf("sqlite: search scan: %w: %v", index.ErrIndexIO, err)
		}
		c.Score = -rank
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(queryText, err)
	}
	return candidates, nil
}

// matchExpr builds an FTS5 expression restricted to field that matches
// any of terms. Terms are quoted so FTS5 never sees operators.
func matchExpr(field index.Field, terms []string) string {
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return fmt.Sprintf("%s : (%s)", field, strings.Join(quoted, " OR "))
}

func classify(queryText string, err error) error {
	if strings.Contains(err.Error(), "syntax error") {
		return fmt.Errorf("sqlite: search %q: %w: %v", queryText, index.ErrQuerySyntax, err)
	}
	return fmt.Errorf("sqlite: search %q: %w: %v", queryText, index.ErrIndexIO, err)
}

// Close rolls back an unfinished build and closes the database.
func (x *Index) Close() error {
	x.mu.Lock()
	x.abort()
	x.mu.Unlock()

	if err := x.db.Close(); err != nil {
		return fmt.Errorf("sqlite: close: %w: %v", index.ErrIndexIO, err)
	}
	return nil
}
