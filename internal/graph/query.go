package graph

import (
	"fmt"
	"strings"
)

// TermKind distinguishes variables from constants in a triple pattern.
type TermKind int

const (
	TermVar TermKind = iota
	TermIRI
	TermLiteral
)

// Term is one position of a triple pattern.
type Term struct {
	Kind     TermKind
	Value    string
	Datatype string
}

// Var returns a variable term. The leading '?' is optional.
func Var(name string) Term {
	return Term{Kind: TermVar, Value: strings.TrimPrefix(name, "?")}
}

// IRI returns a resource term.
func IRI(iri string) Term {
	return Term{Kind: TermIRI, Value: iri}
}

// Literal returns a literal term with an optional datatype.
func Literal(lexical, datatype string) Term {
	return Term{Kind: TermLiteral, Value: lexical, Datatype: datatype}
}

// IsVar reports whether t is a variable.
func (t Term) IsVar() bool { return t.Kind == TermVar }

// String renders t in SPARQL syntax.
func (t Term) String() string {
	switch t.Kind {
	case TermVar:
		return "?" + t.Value
	case TermIRI:
		return "<" + t.Value + ">"
	default:
		lit := `"` + escapeLiteral(t.Value) + `"`
		if t.Datatype != "" {
			lit += "^^<" + t.Datatype + ">"
		}
		return lit
	}
}

// matches reports whether the constant term t denotes v.
func (t Term) matches(v Value) bool {
	switch t.Kind {
	case TermIRI:
		return v.Kind == KindIRI && v.Lexical == t.Value
	case TermLiteral:
		if v.Kind != KindLiteral || v.Lexical != t.Value {
			return false
		}
		return t.Datatype == "" || t.Datatype == v.Datatype
	default:
		return false
	}
}

// Pattern is a triple pattern.
type Pattern struct {
	S, P, O Term
}

// Triple builds a pattern from its three positions.
func Triple(s, p, o Term) Pattern {
	return Pattern{S: s, P: p, O: o}
}

func (p Pattern) terms() [3]Term { return [3]Term{p.S, p.P, p.O} }

// Query is a SELECT over a basic graph pattern.
type Query struct {
	Select []string
	Where  []Pattern
}

// Bind returns a copy of q with every occurrence of variable name replaced
// by the constant term t. A bound variable is also dropped from the
// projection.
func (q Query) Bind(name string, t Term) Query {
	name = strings.TrimPrefix(name, "?")
	out := Query{
		Select: make([]string, 0, len(q.Select)),
		Where:  make([]Pattern, len(q.Where)),
	}
	for _, v := range q.Select {
		if v != name {
			out.Select = append(out.Select, v)
		}
	}
	replace := func(x Term) Term {
		if x.IsVar() && x.Value == name {
			return t
		}
		return x
	}
	for i, p := range q.Where {
		out.Where[i] = Pattern{S: replace(p.S), P: replace(p.P), O: replace(p.O)}
	}
	return out
}

// Validate checks that q projects at least one variable, that every
// projected variable occurs in the pattern, and that no term is empty.
func (q Query) Validate() error {
	if len(q.Select) == 0 {
		return fmt.Errorf("%w: no projected variables", ErrMalformedQuery)
	}
	if len(q.Where) == 0 {
		return fmt.Errorf("%w: empty graph pattern", ErrMalformedQuery)
	}
	seen := make(map[string]bool)
	for _, p := range q.Where {
		for _, t := range p.terms() {
			if t.Value == "" && t.Kind != TermLiteral {
				return fmt.Errorf("%w: empty term in pattern", ErrMalformedQuery)
			}
			if t.IsVar() {
				seen[t.Value] = true
			}
		}
		if p.S.Kind == TermLiteral || p.P.Kind == TermLiteral {
			return fmt.Errorf("%w: literal in subject or predicate position", ErrMalformedQuery)
		}
	}
	for _, v := range q.Select {
		if !seen[v] {
			return fmt.Errorf("%w: projected variable ?%s not in pattern", ErrMalformedQuery, v)
		}
	}
	return nil
}

// String renders q as SPARQL 1.1 SELECT text.
func (q Query) String() string {
	var b strings.Builder
	b.WriteString("SELECT")
	for _, v := range q.Select {
		b.WriteString(" ?")
		b.WriteString(v)
	}
	b.WriteString(" WHERE {")
	for _, p := range q.Where {
		fmt.Fprintf(&b, " %s %s %s .", p.S, p.P, p.O)
	}
	b.WriteString(" }")
	return b.String()
}

func escapeLiteral(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"\n", `\n`,
		"\r", `\r`,
		"\t", `\t`,
	)
	return r.Replace(s)
}
