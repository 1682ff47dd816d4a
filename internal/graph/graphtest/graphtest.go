// Package graphtest provides a small YAGO-shaped company graph for tests.
package graphtest

import (
	"fmt"
	"strings"

	"github.com/scrypster/nedindex/internal/graph"
	"github.com/scrypster/nedindex/internal/vocab"
)

// IRIs of the fixture's resources.
const (
	Apple      = vocab.Yago + "Apple_Inc."
	Microsoft  = vocab.Yago + "Microsoft"
	Banana     = vocab.Yago + "Banana_Republic"
	Paris      = vocab.Yago + "Paris"
	SteveJobs  = vocab.Yago + "Steve_Jobs"
	IPhone     = vocab.Yago + "IPhone"
	TechCo     = vocab.Yago + "wordnet_technology_company"
	ClothingCo = vocab.Yago + "wordnet_clothing_company"
	City       = vocab.Yago + "wordnet_city"
)

func iri(s string) graph.Value { return graph.IRIValue(s) }

func str(s string) graph.Value { return graph.LiteralValue(s, vocab.XSDString) }

func fact(id int, s graph.Value, p string, o graph.Value) []graph.Statement {
	f := iri(fmt.Sprintf("%sfact_%d", vocab.Yago, id))
	return []graph.Statement{
		{S: f, P: iri(vocab.RDFSubject), O: s},
		{S: f, P: iri(vocab.RDFPredicate), O: iri(p)},
		{S: f, P: iri(vocab.RDFObject), O: o},
	}
}

// Statements returns the fixture triples in load order.
//
// Discovering wordnet_company yields Apple Inc., Microsoft and then
// Banana Republic. Apple is typed both directly and through a subclass.
// Paris belongs to another category.
func Statements() []graph.Statement {
	company := iri(vocab.WordnetCompany)
	typ := vocab.RDFType

	stmts := []graph.Statement{
		{S: iri(Apple), P: iri(typ), O: company},
		{S: iri(Microsoft), P: iri(typ), O: company},
		{S: iri(TechCo), P: iri(vocab.RDFSSubClassOf), O: company},
		{S: iri(ClothingCo), P: iri(vocab.RDFSSubClassOf), O: company},
		{S: iri(Apple), P: iri(typ), O: iri(TechCo)},
		{S: iri(Banana), P: iri(typ), O: iri(ClothingCo)},
		{S: iri(Paris), P: iri(typ), O: iri(City)},

		{S: iri(Apple), P: iri(vocab.RDFSLabel), O: graph.LangLiteralValue("Apple", "en")},
		{S: iri(Banana), P: iri(vocab.RDFSLabel), O: graph.LangLiteralValue("BR", "en")},
	}
	stmts = append(stmts, fact(1, iri(Apple), vocab.YagoIsCalled, str("AAPL"))...)
	stmts = append(stmts, fact(2, iri(Apple), vocab.YagoIsCalled, str("Apple Computer"))...)
	stmts = append(stmts, fact(3, iri(SteveJobs), vocab.YagoOwns, iri(Apple))...)
	stmts = append(stmts, fact(4, iri(Apple), vocab.YagoCreated, iri(IPhone))...)
	stmts = append(stmts, fact(5, iri(Banana), vocab.YagoIsCalled, str("Banana Republic"))...)
	stmts = append(stmts, fact(6, iri(Microsoft), vocab.YagoIsCalled, str("MSFT"))...)
	stmts = append(stmts, fact(7, iri(Microsoft), vocab.YagoCreated, str("Windows"))...)
	stmts = append(stmts, fact(8, iri(Paris), vocab.YagoIsCalled, str("Paris"))...)
	return stmts
}

// Companies returns a Model loaded with Statements.
func Companies() *graph.Model {
	m := graph.NewModel()
	m.AddAll(Statements())
	return m
}

// NTriples renders Statements as an N-Triples document.
func NTriples() string {
	var b strings.Builder
	for _, st := range Statements() {
		fmt.Fprintf(&b, "%s %s %s .\n", term(st.S), term(st.P), term(st.O))
	}
	return b.String()
}

func term(v graph.Value) string {
	switch {
	case v.IsIRI():
		return "<" + v.Lexical + ">"
	case v.Lang != "":
		return fmt.Sprintf("%q@%s", v.Lexical, v.Lang)
	case v.Datatype != "":
		return fmt.Sprintf("%q^^<%s>", v.Lexical, v.Datatype)
	default:
		return fmt.Sprintf("%q", v.Lexical)
	}
}
