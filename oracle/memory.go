package oracle

import (
	"fmt"
	"strings"
	"sync"
)

// Rule is one derivation step of an in-memory program.  get returns the
// current rows of any relation (empty when unfilled) and emit appends a row
// to an output relation, dropping exact duplicates.  Rules run in
// registration order, so later rules observe earlier emissions.
type Rule func(get func(relation string) []Row, emit func(relation string, row Row))

// MemoryProgram evaluates Go-native rules over filled relations.  It serves
// as the embedded evaluator and as the server-side program behind the remote
// backend.
type MemoryProgram struct {
	mu       sync.Mutex
	rules    []Rule
	declared map[string]struct{}
	rows     map[string][]Row
	seen     map[string]map[string]struct{}
	ran      bool
}

// NewMemoryProgram builds a program from its rules.  Input relations are
// declared up front; output relations come into existence when a rule emits
// into them or declares them with Declare.
func NewMemoryProgram(rules ...Rule) *MemoryProgram {
	p := &MemoryProgram{
		rules:    rules,
		declared: make(map[string]struct{}),
		rows:     make(map[string][]Row),
		seen:     make(map[string]map[string]struct{}),
	}
	for _, name := range InputRelations {
		p.declared[name] = struct{}{}
		p.declared[TargetPrefix+name] = struct{}{}
	}
	return p
}

// Declare registers a relation that may stay empty, so Rows finds it instead
// of failing with ErrUnknownRelation.
func (p *MemoryProgram) Declare(relations ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, name := range relations {
		p.declared[name] = struct{}{}
	}
}

// Fill implements Program.
func (p *MemoryProgram) Fill(relation string, rows []Row) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.declared[relation] = struct{}{}
	for _, row := range rows {
		p.insert(relation, row)
	}
	return nil
}

// Run implements Program.
func (p *MemoryProgram) Run() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	get := func(relation string) []Row {
		return p.rows[relation]
	}
	emit := func(relation string, row Row) {
		p.declared[relation] = struct{}{}
		p.insert(relation, row)
	}
	for _, rule := range p.rules {
		rule(get, emit)
	}
	p.ran = true
	return nil
}

// Rows implements Program.
func (p *MemoryProgram) Rows(relation string) ([]Row, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.declared[relation]; !ok {
		return nil, fmt.Errorf("relation %s: %w", relation, ErrUnknownRelation)
	}
	rows := p.rows[relation]
	out := make([]Row, len(rows))
	copy(out, rows)
	return out, nil
}

// Purge implements Program.  Rules and declared input relations survive;
// every row and every rule-created relation is dropped.
func (p *MemoryProgram) Purge() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rows = make(map[string][]Row)
	p.seen = make(map[string]map[string]struct{})
	p.declared = make(map[string]struct{})
	for _, name := range InputRelations {
		p.declared[name] = struct{}{}
		p.declared[TargetPrefix+name] = struct{}{}
	}
	p.ran = false
	return nil
}

// Close implements Program.
func (p *MemoryProgram) Close() error {
	return nil
}

func (p *MemoryProgram) insert(relation string, row Row) {
	key := rowKey(row)
	set := p.seen[relation]
	if set == nil {
		set = make(map[string]struct{})
		p.seen[relation] = set
	}
	if _, dup := set[key]; dup {
		return
	}
	set[key] = struct{}{}
	p.rows[relation] = append(p.rows[relation], row)
}

func rowKey(row Row) string {
	var b strings.Builder
	for _, t := range row {
		if t.TermKind == NumberTerm {
			fmt.Fprintf(&b, "n%d\x00", t.Num)
		} else {
			fmt.Fprintf(&b, "s%s\x00", t.Sym)
		}
	}
	return b.String()
}
