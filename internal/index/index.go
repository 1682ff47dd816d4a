// Package index defines the contract between the build pipeline, the
// candidate retrieval engine and the full-text index engines that store
// entity records. Backends live in the sqlite and postgres subpackages.
//
// The index lifecycle is build-then-query: documents are added by a single
// writer, Finalize commits them once, and afterwards the index only
// answers searches.
package index

import (
	"context"
	"errors"

	"github.com/scrypster/nedindex/pkg/types"
)

var (
	// ErrQuerySyntax indicates that query text cannot be parsed into a
	// search expression. Candidate lookups recover from it by returning
	// no candidates.
	ErrQuerySyntax = errors.New("query syntax error")

	// ErrIndexIO indicates that the backing store could not be read or
	// written.
	ErrIndexIO = errors.New("index I/O error")

	// ErrInvalidIndexPath indicates that an on-disk index location exists
	// but is not a directory, or holds no finalized index.
	ErrInvalidIndexPath = errors.New("invalid index path")

	// ErrFinalized indicates a write after Finalize, or a second Finalize.
	ErrFinalized = errors.New("index already finalized")

	// ErrNotFinalized indicates a search before Finalize.
	ErrNotFinalized = errors.New("index not finalized")

	// ErrNotSearchable indicates a search against a stored-only field.
	ErrNotSearchable = errors.New("field is not searchable")
)

// Writer ingests records during a build pass.
type Writer interface {
	// AddDocument appends one record. Field values are stored verbatim.
	AddDocument(ctx context.Context, rec types.EntityRecord) error

	// Finalize commits every added record and makes the index searchable.
	// It must be called exactly once, after the last AddDocument.
	Finalize(ctx context.Context) error
}

// Searcher answers ranked full-text queries against a finalized index.
type Searcher interface {
	// Search runs queryText against field and returns at most limit hits
	// in descending relevance order. Implementations must be safe for
	// concurrent use.
	Search(ctx context.Context, field Field, queryText string, limit int) ([]types.Candidate, error)
}

// Index is a full-text index engine handle.
type Index interface {
	Writer
	Searcher

	// Schema returns the field schema shared by all documents.
	Schema() Schema

	// BuildID identifies the finalized build, or is empty before Finalize.
	BuildID() string

	// Close releases the backing store.
	Close() error
}
