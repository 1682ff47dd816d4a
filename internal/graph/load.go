package graph

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/knakk/rdf"
)

// FormatForPath picks the RDF serialization from a file extension.
// .rdf, .rdfs, .owl and .xml are RDF/XML, .ttl is Turtle and .nt is
// N-Triples.
func FormatForPath(path string) (rdf.Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".rdf", ".rdfs", ".owl", ".xml":
		return rdf.RDFXML, nil
	case ".ttl":
		return rdf.Turtle, nil
	case ".nt":
		return rdf.NTriples, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// LoadFile parses the graph file at path into a new Model.
func LoadFile(path string) (*Model, error) {
	m := NewModel()
	if err := m.LoadFile(path); err != nil {
		return nil, err
	}
	return m, nil
}

// LoadFile parses the graph file at path and appends its triples.
func (m *Model) LoadFile(path string) error {
	format, err := FormatForPath(path)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("graph: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if err := m.Load(f, format); err != nil {
		return fmt.Errorf("graph: load %s: %w", path, err)
	}
	return nil
}

// Load decodes triples from r in the given format and appends them. The
// whole input is decoded before any triple is added, so a parse error
// leaves the model unchanged.
func (m *Model) Load(r io.Reader, format rdf.Format) error {
	dec := rdf.NewTripleDecoder(r, format)
	var stmts []Statement
	for {
		t, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("decode triple %d: %w", len(stmts)+1, err)
		}
		stmts = append(stmts, Statement{
			S: valueOf(t.Subj),
			P: valueOf(t.Pred),
			O: valueOf(t.Obj),
		})
	}
	m.AddAll(stmts)
	return nil
}

func valueOf(t rdf.Term) Value {
	switch v := t.(type) {
	case rdf.IRI:
		return IRIValue(v.String())
	case rdf.Blank:
		return BlankValue(strings.TrimPrefix(v.String(), "_:"))
	case rdf.Literal:
		if lang := v.Lang(); lang != "" {
			return LangLiteralValue(v.String(), lang)
		}
		return LiteralValue(v.String(), v.DataType.String())
	default:
		return IRIValue(t.String())
	}
}
