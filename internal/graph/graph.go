// Package graph provides the graph query adapter used by the build
// pipeline. A Source answers basic-graph-pattern SELECT queries either
// from an in-memory triple Model (loaded from a local RDF file) or from a
// remote SPARQL Endpoint, and yields rows of named bindings.
package graph

import (
	"context"
	"errors"
)

var (
	// ErrSourceUnavailable indicates that the graph source could not be
	// reached or failed to execute a query.
	ErrSourceUnavailable = errors.New("graph source unavailable")

	// ErrFileNotFound indicates that a local graph file could not be resolved.
	ErrFileNotFound = errors.New("graph file not found")

	// ErrUnsupportedFormat indicates that a graph file's serialization is
	// not one of RDF/XML, Turtle or N-Triples.
	ErrUnsupportedFormat = errors.New("unsupported graph format")

	// ErrMalformedQuery indicates that a query is not well formed.
	ErrMalformedQuery = errors.New("malformed graph query")
)

// Source runs a SELECT query and returns its solutions.
//
// Implementations release every per-query resource (HTTP responses,
// iterators) before returning, on success and failure alike.
type Source interface {
	Select(ctx context.Context, q Query) ([]Row, error)
}

// Row is one query solution: variable name to bound value. Variables left
// unbound by the solution are absent.
type Row map[string]Value

// ValueKind distinguishes the kinds of RDF terms a binding can hold.
type ValueKind int

const (
	KindIRI ValueKind = iota
	KindLiteral
	KindBlank
)

// Value is a bound RDF term.
type Value struct {
	Kind ValueKind

	// Lexical is the IRI, the literal's lexical form, or the blank node label.
	Lexical string

	// Datatype is the literal's datatype IRI, if any.
	Datatype string

	// Lang is the literal's language tag, if any.
	Lang string
}

// IRIValue returns a resource value.
func IRIValue(iri string) Value {
	return Value{Kind: KindIRI, Lexical: iri}
}

// LiteralValue returns a literal value with an optional datatype.
func LiteralValue(lexical, datatype string) Value {
	return Value{Kind: KindLiteral, Lexical: lexical, Datatype: datatype}
}

// LangLiteralValue returns a language-tagged literal value.
func LangLiteralValue(lexical, lang string) Value {
	return Value{Kind: KindLiteral, Lexical: lexical, Lang: lang}
}

// BlankValue returns a blank node value.
func BlankValue(label string) Value {
	return Value{Kind: KindBlank, Lexical: label}
}

// IsLiteral reports whether v is a literal.
func (v Value) IsLiteral() bool { return v.Kind == KindLiteral }

// IsIRI reports whether v is a resource.
func (v Value) IsIRI() bool { return v.Kind == KindIRI }

// String renders v in its raw annotated form: typed literals as
// lexical^^datatype, tagged literals as lexical@lang, resources as the
// bare IRI and blank nodes as _:label.
func (v Value) String() string {
	switch v.Kind {
	case KindLiteral:
		if v.Lang != "" {
			return v.Lexical + "@" + v.Lang
		}
		if v.Datatype != "" {
			return v.Lexical + "^^" + v.Datatype
		}
		return v.Lexical
	case KindBlank:
		return "_:" + v.Lexical
	default:
		return v.Lexical
	}
}
