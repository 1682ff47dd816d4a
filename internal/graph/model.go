package graph

import (
	"context"
	"sync"
)

// Statement is one stored triple.
type Statement struct {
	S, P, O Value
}

// Model is an in-memory triple store that evaluates basic graph patterns.
//
// Solutions are produced in statement insertion order, so results are
// deterministic for a given load order. Model is safe for concurrent use;
// loading takes the write lock and queries share the read lock.
type Model struct {
	mu     sync.RWMutex
	stmts  []Statement
	bySubj map[Value][]int
	byPred map[Value][]int
	byObj  map[Value][]int
}

// Ensure *Model implements Source at compile time.
var _ Source = (*Model)(nil)

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{
		bySubj: make(map[Value][]int),
		byPred: make(map[Value][]int),
		byObj:  make(map[Value][]int),
	}
}

// Add appends a statement.
func (m *Model) Add(st Statement) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.add(st)
}

// AddAll appends statements in order.
func (m *Model) AddAll(stmts []Statement) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, st := range stmts {
		m.add(st)
	}
}

func (m *Model) add(st Statement) {
	i := len(m.stmts)
	m.stmts = append(m.stmts, st)
	m.bySubj[st.S] = append(m.bySubj[st.S], i)
	m.byPred[st.P] = append(m.byPred[st.P], i)
	m.byObj[st.O] = append(m.byObj[st.O], i)
}

// Len returns the number of stored statements.
func (m *Model) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.stmts)
}

// Select evaluates q with a left-to-right nested-loop join.
func (m *Model) Select(ctx context.Context, q Query) ([]Row, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	solutions := []Row{{}}
	for _, p := range q.Where {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var next []Row
		for _, sol := range solutions {
			for _, i := range m.candidates(p, sol) {
				if ext, ok := extend(sol, p, m.stmts[i]); ok {
					next = append(next, ext)
				}
			}
		}
		if len(next) == 0 {
			return []Row{}, nil
		}
		solutions = next
	}

	rows := make([]Row, 0, len(solutions))
	for _, sol := range solutions {
		row := make(Row, len(q.Select))
		for _, name := range q.Select {
			if v, ok := sol[name]; ok {
				row[name] = v
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// candidates returns the smallest statement index list consistent with
// the positions of p that are constant or already bound in sol.
func (m *Model) candidates(p Pattern, sol Row) []int {
	var best []int
	found := false
	try := func(t Term, index map[Value][]int) {
		v, ok := resolve(t, sol)
		if !ok {
			return
		}
		list := index[v]
		if !found || len(list) < len(best) {
			best, found = list, true
		}
	}
	try(p.S, m.bySubj)
	try(p.P, m.byPred)
	try(p.O, m.byObj)
	if found {
		return best
	}
	all := make([]int, len(m.stmts))
	for i := range all {
		all[i] = i
	}
	return all
}

// resolve turns a term into the exact value it must match, if it is known.
// Literal constants without a datatype are left unresolved because they
// match any datatype.
func resolve(t Term, sol Row) (Value, bool) {
	switch t.Kind {
	case TermVar:
		v, ok := sol[t.Value]
		return v, ok
	case TermIRI:
		return IRIValue(t.Value), true
	default:
		if t.Datatype == "" {
			return Value{}, false
		}
		return LiteralValue(t.Value, t.Datatype), true
	}
}

func extend(sol Row, p Pattern, st Statement) (Row, bool) {
	var ext Row
	bind := func(t Term, v Value) bool {
		if !t.IsVar() {
			return t.matches(v)
		}
		if cur, ok := sol[t.Value]; ok {
			return cur == v
		}
		if ext != nil {
			if cur, ok := ext[t.Value]; ok {
				return cur == v
			}
		} else {
			ext = make(Row, len(sol)+3)
			for k, val := range sol {
				ext[k] = val
			}
		}
		ext[t.Value] = v
		return true
	}
	if !bind(p.S, st.S) || !bind(p.P, st.P) || !bind(p.O, st.O) {
		return nil, false
	}
	if ext == nil {
		return sol, true
	}
	return ext, true
}
