/*
	Package oracle marshals property graphs to and from an external
	declarative rule evaluator.  The evaluator is consumed as a black box
	through the Program interface: relations are filled with rows of terms,
	the program runs, and output relations are read back and decoded into
	operation batches.

	Backends only need the Program capabilities; the package ships an
	embedded in-memory backend and a TCP-based remote backend.
*/
package oracle

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrUnknownRelation is returned by Rows for a relation the evaluated program
// does not define.  Callers asking for an optional relation treat it as "no
// rows" rather than a failure.
var ErrUnknownRelation = errors.New("unknown relation")

// Input relations describing a graph.  When a comparison target is supplied
// its copy of each relation is prefixed with TargetPrefix.
const (
	RelVertex          = "Vertex"
	RelVertexName      = "VertexName"
	RelVertexLabel     = "VertexLabel"
	RelVertexLabelName = "VertexLabelName"
	RelVertexHasLabel  = "VertexHasLabel"
	RelVertexProperty  = "VertexProperty"
	RelEdge            = "Edge"
	RelEdgeName        = "EdgeName"
	RelEdgeLabel       = "EdgeLabel"
	RelEdgeLabelName   = "EdgeLabelName"
	RelEdgeHasLabel    = "EdgeHasLabel"
	RelEdgeProperty    = "EdgeProperty"

	// RelTransformation enumerates every (transformation name, batch id)
	// pair a program derives.
	RelTransformation = "Transformation"

	TargetPrefix = "Target"
)

// InputRelations lists every relation EncodeGraph fills, in fill order.
var InputRelations = [...]string{
	RelVertexLabel,
	RelVertexLabelName,
	RelVertex,
	RelVertexName,
	RelVertexHasLabel,
	RelVertexProperty,
	RelEdgeLabel,
	RelEdgeLabelName,
	RelEdge,
	RelEdgeName,
	RelEdgeHasLabel,
	RelEdgeProperty,
}

// TermKind distinguishes the two value shapes a relation column can carry.
type TermKind uint8

const (
	NumberTerm TermKind = iota
	SymbolTerm
)

// Term is one column of a relation row: a 32-bit number or a symbol.
type Term struct {
	TermKind TermKind
	Num      uint32
	Sym      string
}

// Number returns a numeric term.
func Number(n uint32) Term {
	return Term{TermKind: NumberTerm, Num: n}
}

// Symbol returns a symbol term.
func Symbol(s string) Term {
	return Term{TermKind: SymbolTerm, Sym: s}
}

// AsNumber reads the term as a number.
func (t Term) AsNumber() (uint32, error) {
	if t.TermKind != NumberTerm {
		return 0, fmt.Errorf("expected number term, have symbol %q", t.Sym)
	}
	return t.Num, nil
}

// AsSymbol reads the term as a symbol.  Symbols crossing the evaluator
// boundary must be valid UTF-8; anything else means the wire protocol broke.
func (t Term) AsSymbol() (string, error) {
	if t.TermKind != SymbolTerm {
		return "", fmt.Errorf("expected symbol term, have number %d", t.Num)
	}
	if !utf8.ValidString(t.Sym) {
		return "", fmt.Errorf("symbol %q is not valid UTF-8", t.Sym)
	}
	return t.Sym, nil
}

func (t Term) String() string {
	if t.TermKind == SymbolTerm {
		return fmt.Sprintf("%q", t.Sym)
	}
	return fmt.Sprintf("%d", t.Num)
}

// Row is one tuple of a relation.
type Row []Term

// Program is the capability surface of one evaluator instance.  Instances are
// not safe for concurrent use; concurrent callers hold one instance each.
type Program interface {
	// Fill adds rows to an input relation before a run.
	Fill(relation string, rows []Row) error

	// Run evaluates the program against the filled relations.
	Run() error

	// Rows reads an output (or input) relation after a run.  Asking for a
	// relation the program does not define returns ErrUnknownRelation.
	Rows(relation string) ([]Row, error)

	// Purge clears all relation state so the instance can be reused.
	Purge() error

	// Close releases the instance.
	Close() error
}
