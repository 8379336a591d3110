package oracle

import (
	"errors"
	"fmt"

	"github.com/gmorph/gmorph/edit"
	"github.com/gmorph/gmorph/graph"
)

// Batch is one decoded unit of edits.  Operations inside a batch keep the
// assembly order of edit.KindOrder.
type Batch struct {
	ID  uint32
	Ops []edit.Operation
}

// opArity gives the payload column count of each operation relation.  Every
// relation additionally carries a trailing transformation name symbol and a
// batch id number.
var opArity = [...]int{
	edit.KindCreateVertexLabel:    2,
	edit.KindAddVertexLabel:       2,
	edit.KindRemoveVertexLabel:    2,
	edit.KindCreateEdgeLabel:      2,
	edit.KindAddEdgeLabel:         2,
	edit.KindRemoveEdgeLabel:      2,
	edit.KindAddVertex:            1,
	edit.KindRemoveVertex:         1,
	edit.KindAddEdge:              3,
	edit.KindRemoveEdge:           1,
	edit.KindAddVertexProperty:    3,
	edit.KindRemoveVertexProperty: 2,
	edit.KindAddEdgeProperty:      3,
	edit.KindRemoveEdgeProperty:   2,
	edit.KindRenameVertex:         2,
	edit.KindRenameEdge:           2,
	edit.KindMoveEdgeSource:       2,
	edit.KindMoveEdgeTarget:       2,
}

// OperationRelation names the output relation carrying payload rows for one
// operation kind.
func OperationRelation(kind edit.Kind) string {
	return kind.String() + "_"
}

// DecodeBatches reads the evaluated batches of one transformation.  The
// transformation relation itself lists the batch ids; each operation kind
// contributes payload rows from its own relation, filtered to rows naming
// this transformation.  A missing transformation relation surfaces as
// ErrUnknownRelation; missing operation relations simply mean no operations
// of that kind.
func DecodeBatches(p Program, transformation string) ([]Batch, error) {
	idRows, err := p.Rows(transformation)
	if err != nil {
		return nil, err
	}

	index := make(map[uint32]int, len(idRows))
	batches := make([]Batch, 0, len(idRows))
	for _, row := range idRows {
		if len(row) != 1 {
			return nil, fmt.Errorf("transformation %s: expected 1 column, have %d", transformation, len(row))
		}
		id, err := row[0].AsNumber()
		if err != nil {
			return nil, fmt.Errorf("transformation %s: %w", transformation, err)
		}
		if _, dup := index[id]; dup {
			continue
		}
		index[id] = len(batches)
		batches = append(batches, Batch{ID: id})
	}

	for _, kind := range edit.KindOrder {
		rows, err := p.Rows(OperationRelation(kind))
		if errors.Is(err, ErrUnknownRelation) {
			continue
		}
		if err != nil {
			return nil, err
		}
		arity := opArity[kind]
		for _, row := range rows {
			if len(row) != arity+2 {
				return nil, fmt.Errorf("%s: expected %d columns, have %d", OperationRelation(kind), arity+2, len(row))
			}
			name, err := row[arity].AsSymbol()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", OperationRelation(kind), err)
			}
			if name != transformation {
				continue
			}
			batchID, err := row[arity+1].AsNumber()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", OperationRelation(kind), err)
			}
			at, tracked := index[batchID]
			if !tracked {
				return nil, fmt.Errorf("%s: row for batch %d missing from %s", OperationRelation(kind), batchID, transformation)
			}
			op, err := buildOperation(kind, row[:arity])
			if err != nil {
				return nil, err
			}
			batches[at].Ops = append(batches[at].Ops, op)
		}
	}
	return batches, nil
}

// rowReader pulls typed columns out of a payload row, keeping the first
// error.
type rowReader struct {
	row Row
	err error
}

func (r *rowReader) num(i int) uint32 {
	if r.err != nil {
		return 0
	}
	n, err := r.row[i].AsNumber()
	if err != nil {
		r.err = err
	}
	return n
}

func (r *rowReader) sym(i int) string {
	if r.err != nil {
		return ""
	}
	s, err := r.row[i].AsSymbol()
	if err != nil {
		r.err = err
	}
	return s
}

func buildOperation(kind edit.Kind, payload Row) (edit.Operation, error) {
	r := rowReader{row: payload}
	var op edit.Operation
	switch kind {
	case edit.KindCreateVertexLabel:
		op = edit.CreateVertexLabel{Label: graph.LabelID(r.num(0)), Name: r.sym(1)}
	case edit.KindAddVertexLabel:
		op = edit.AddVertexLabel{Vertex: graph.VertexID(r.num(0)), Label: graph.LabelID(r.num(1))}
	case edit.KindRemoveVertexLabel:
		op = edit.RemoveVertexLabel{Vertex: graph.VertexID(r.num(0)), Label: graph.LabelID(r.num(1))}
	case edit.KindCreateEdgeLabel:
		op = edit.CreateEdgeLabel{Label: graph.LabelID(r.num(0)), Name: r.sym(1)}
	case edit.KindAddEdgeLabel:
		op = edit.AddEdgeLabel{Edge: graph.EdgeID(r.num(0)), Label: graph.LabelID(r.num(1))}
	case edit.KindRemoveEdgeLabel:
		op = edit.RemoveEdgeLabel{Edge: graph.EdgeID(r.num(0)), Label: graph.LabelID(r.num(1))}
	case edit.KindAddVertex:
		op = edit.AddVertex{Vertex: graph.VertexID(r.num(0))}
	case edit.KindRemoveVertex:
		op = edit.RemoveVertex{Vertex: graph.VertexID(r.num(0))}
	case edit.KindAddEdge:
		op = edit.AddEdge{Edge: graph.EdgeID(r.num(0)), From: graph.VertexID(r.num(1)), To: graph.VertexID(r.num(2))}
	case edit.KindRemoveEdge:
		op = edit.RemoveEdge{Edge: graph.EdgeID(r.num(0))}
	case edit.KindAddVertexProperty:
		op = edit.AddVertexProperty{Vertex: graph.VertexID(r.num(0)), Key: r.sym(1), Value: r.sym(2)}
	case edit.KindRemoveVertexProperty:
		op = edit.RemoveVertexProperty{Vertex: graph.VertexID(r.num(0)), Key: r.sym(1)}
	case edit.KindAddEdgeProperty:
		op = edit.AddEdgeProperty{Edge: graph.EdgeID(r.num(0)), Key: r.sym(1), Value: r.sym(2)}
	case edit.KindRemoveEdgeProperty:
		op = edit.RemoveEdgeProperty{Edge: graph.EdgeID(r.num(0)), Key: r.sym(1)}
	case edit.KindRenameVertex:
		op = edit.RenameVertex{Vertex: graph.VertexID(r.num(0)), Name: r.sym(1)}
	case edit.KindRenameEdge:
		op = edit.RenameEdge{Edge: graph.EdgeID(r.num(0)), Name: r.sym(1)}
	case edit.KindMoveEdgeSource:
		op = edit.MoveEdgeSource{Edge: graph.EdgeID(r.num(0)), Vertex: graph.VertexID(r.num(1))}
	case edit.KindMoveEdgeTarget:
		op = edit.MoveEdgeTarget{Edge: graph.EdgeID(r.num(0)), Vertex: graph.VertexID(r.num(1))}
	default:
		return nil, fmt.Errorf("unhandled operation kind %d", kind)
	}
	if r.err != nil {
		return nil, fmt.Errorf("decoding %s row: %w", OperationRelation(kind), r.err)
	}
	return op, nil
}

// ListTransformations reads the Transformation relation into name keyed batch
// id sets.  Programs without the relation derive nothing.
func ListTransformations(p Program) (map[string][]uint32, error) {
	rows, err := p.Rows(RelTransformation)
	if errors.Is(err, ErrUnknownRelation) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make(map[string][]uint32)
	for _, row := range rows {
		if len(row) != 2 {
			return nil, fmt.Errorf("%s: expected 2 columns, have %d", RelTransformation, len(row))
		}
		name, err := row[0].AsSymbol()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", RelTransformation, err)
		}
		id, err := row[1].AsNumber()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", RelTransformation, err)
		}
		out[name] = append(out[name], id)
	}
	return out, nil
}
