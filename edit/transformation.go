package edit

import (
	"fmt"

	"github.com/gmorph/gmorph/graph"
)

// GraphTransformation materializes one batch of operations against a snapshot.
// Init is never mutated; Result starts as a clone of Init and accumulates the
// edits.  Ids minted by creations inside the batch are tracked in scratch
// tables so later operations in the same batch can reference them; the tables
// are only meaningful while the batch is being applied.
//
// Operations referencing elements that do not exist, or creating the same
// batch-local id twice, violate the producer contract and panic.  Callers that
// consume untrusted batches recover at a boundary of their choosing.
type GraphTransformation struct {
	Init   *graph.PropertyGraph
	Result *graph.PropertyGraph

	// Log records one human-readable line per applied operation, with ids
	// resolved to element names where they exist.
	Log []string

	vertexIDs      map[graph.VertexID]graph.VertexID
	edgeIDs        map[graph.EdgeID]graph.EdgeID
	vertexLabelIDs map[graph.LabelID]graph.LabelID
	edgeLabelIDs   map[graph.LabelID]graph.LabelID
}

// NewGraphTransformation starts a transformation of init.  The snapshot is
// cloned; init itself stays untouched.
func NewGraphTransformation(init *graph.PropertyGraph) *GraphTransformation {
	return &GraphTransformation{
		Init:           init,
		Result:         init.Clone(),
		vertexIDs:      make(map[graph.VertexID]graph.VertexID),
		edgeIDs:        make(map[graph.EdgeID]graph.EdgeID),
		vertexLabelIDs: make(map[graph.LabelID]graph.LabelID),
		edgeLabelIDs:   make(map[graph.LabelID]graph.LabelID),
	}
}

// ApplyAll applies a batch in order.
func (t *GraphTransformation) ApplyAll(ops []Operation) {
	for _, op := range ops {
		t.Apply(op)
	}
}

// Valid reports whether the accumulated Result still satisfies the unique
// element-name requirement.  Batches that leave the graph invalid are
// discarded by callers rather than treated as errors.
func (t *GraphTransformation) Valid() bool {
	return t.Result.CheckUniqueNames()
}

// resolution: a batch-local id maps through the scratch table; an id with no
// binding is taken to already be a real id in Result.

func (t *GraphTransformation) vertex(id graph.VertexID) graph.VertexID {
	if real, bound := t.vertexIDs[id]; bound {
		return real
	}
	return id
}

func (t *GraphTransformation) edge(id graph.EdgeID) graph.EdgeID {
	if real, bound := t.edgeIDs[id]; bound {
		return real
	}
	return id
}

func (t *GraphTransformation) vertexLabel(id graph.LabelID) graph.LabelID {
	if real, bound := t.vertexLabelIDs[id]; bound {
		return real
	}
	return id
}

func (t *GraphTransformation) edgeLabel(id graph.LabelID) graph.LabelID {
	if real, bound := t.edgeLabelIDs[id]; bound {
		return real
	}
	return id
}

func (t *GraphTransformation) vertexData(id graph.VertexID, kind Kind) *graph.Properties {
	data, found := t.Result.Vertex(id)
	if !found {
		panic(fmt.Sprintf("%v references missing vertex %d", kind, id))
	}
	return data
}

func (t *GraphTransformation) edgeData(id graph.EdgeID, kind Kind) *graph.Edge {
	edge, found := t.Result.Edge(id)
	if !found {
		panic(fmt.Sprintf("%v references missing edge %d", kind, id))
	}
	return edge
}

func (t *GraphTransformation) vertexLabelName(id graph.LabelID, kind Kind) string {
	name, found := t.Result.VertexLabels.Name(id)
	if !found {
		panic(fmt.Sprintf("%v references missing vertex label %d", kind, id))
	}
	return name
}

func (t *GraphTransformation) edgeLabelName(id graph.LabelID, kind Kind) string {
	name, found := t.Result.EdgeLabels.Name(id)
	if !found {
		panic(fmt.Sprintf("%v references missing edge label %d", kind, id))
	}
	return name
}

func (t *GraphTransformation) logf(format string, args ...interface{}) {
	t.Log = append(t.Log, fmt.Sprintf(format, args...))
}

// Apply executes a single operation against Result and appends its log line.
func (t *GraphTransformation) Apply(op Operation) {
	switch op := op.(type) {
	case CreateVertexLabel:
		if _, bound := t.vertexLabelIDs[op.Label]; bound {
			panic(fmt.Sprintf("duplicate creation of batch vertex label %d", op.Label))
		}
		real := t.Result.VertexLabels.AddLabel(op.Name)
		t.vertexLabelIDs[op.Label] = real
		t.logf("CreateVertexLabel(%s)", op.Name)

	case AddVertexLabel:
		v := t.vertex(op.Vertex)
		l := t.vertexLabel(op.Label)
		data := t.vertexData(v, op.Kind())
		name := t.vertexLabelName(l, op.Kind())
		if err := t.Result.VertexLabels.AddMapping(v, l); err != nil {
			panic(fmt.Sprintf("AddVertexLabel: %v", err))
		}
		t.logf("AddVertexLabel(%s,%s)", data.Name, name)

	case RemoveVertexLabel:
		v := t.vertex(op.Vertex)
		l := t.vertexLabel(op.Label)
		data := t.vertexData(v, op.Kind())
		name := t.vertexLabelName(l, op.Kind())
		if err := t.Result.VertexLabels.RemoveMapping(v, l); err != nil {
			panic(fmt.Sprintf("RemoveVertexLabel: %v", err))
		}
		t.logf("RemoveVertexLabel(%s,%s)", data.Name, name)

	case CreateEdgeLabel:
		if _, bound := t.edgeLabelIDs[op.Label]; bound {
			panic(fmt.Sprintf("duplicate creation of batch edge label %d", op.Label))
		}
		real := t.Result.EdgeLabels.AddLabel(op.Name)
		t.edgeLabelIDs[op.Label] = real
		t.logf("CreateEdgeLabel(%s)", op.Name)

	case AddEdgeLabel:
		e := t.edge(op.Edge)
		l := t.edgeLabel(op.Label)
		edge := t.edgeData(e, op.Kind())
		name := t.edgeLabelName(l, op.Kind())
		if err := t.Result.EdgeLabels.AddMapping(e, l); err != nil {
			panic(fmt.Sprintf("AddEdgeLabel: %v", err))
		}
		t.logf("AddEdgeLabel(%s,%s)", edge.Data.Name, name)

	case RemoveEdgeLabel:
		e := t.edge(op.Edge)
		l := t.edgeLabel(op.Label)
		edge := t.edgeData(e, op.Kind())
		name := t.edgeLabelName(l, op.Kind())
		if err := t.Result.EdgeLabels.RemoveMapping(e, l); err != nil {
			panic(fmt.Sprintf("RemoveEdgeLabel: %v", err))
		}
		t.logf("RemoveEdgeLabel(%s,%s)", edge.Data.Name, name)

	case AddVertex:
		if _, bound := t.vertexIDs[op.Vertex]; bound {
			panic(fmt.Sprintf("duplicate creation of batch vertex %d", op.Vertex))
		}
		real := t.Result.AddVertex(graph.NewProperties(""))
		t.vertexIDs[op.Vertex] = real
		t.logf("AddVertex(%d)", real)

	case RemoveVertex:
		v := t.vertex(op.Vertex)
		data := t.vertexData(v, op.Kind())
		name := data.Name
		if _, err := t.Result.RemoveVertex(v); err != nil {
			panic(fmt.Sprintf("RemoveVertex: %v", err))
		}
		delete(t.vertexIDs, op.Vertex)
		t.logf("RemoveVertex(%s)", name)

	case AddEdge:
		if _, bound := t.edgeIDs[op.Edge]; bound {
			panic(fmt.Sprintf("duplicate creation of batch edge %d", op.Edge))
		}
		from := t.vertex(op.From)
		to := t.vertex(op.To)
		real, err := t.Result.AddEdge(from, to, graph.NewProperties(""))
		if err != nil {
			panic(fmt.Sprintf("AddEdge: %v", err))
		}
		t.edgeIDs[op.Edge] = real
		t.logf("AddEdge(%d,%s,%s)", real, t.vertexData(from, op.Kind()).Name, t.vertexData(to, op.Kind()).Name)

	case RemoveEdge:
		e := t.edge(op.Edge)
		edge := t.edgeData(e, op.Kind())
		name := edge.Data.Name
		if err := t.Result.RemoveEdge(e); err != nil {
			panic(fmt.Sprintf("RemoveEdge: %v", err))
		}
		delete(t.edgeIDs, op.Edge)
		t.logf("RemoveEdge(%s)", name)

	case AddVertexProperty:
		v := t.vertex(op.Vertex)
		data := t.vertexData(v, op.Kind())
		data.Attrs[op.Key] = op.Value
		t.logf("AddVertexProperty(%s,%s,%s)", data.Name, op.Key, op.Value)

	case RemoveVertexProperty:
		v := t.vertex(op.Vertex)
		data := t.vertexData(v, op.Kind())
		delete(data.Attrs, op.Key)
		t.logf("RemoveVertexProperty(%s,%s)", data.Name, op.Key)

	case AddEdgeProperty:
		e := t.edge(op.Edge)
		edge := t.edgeData(e, op.Kind())
		edge.Data.Attrs[op.Key] = op.Value
		t.logf("AddEdgeProperty(%s,%s,%s)", edge.Data.Name, op.Key, op.Value)

	case RemoveEdgeProperty:
		e := t.edge(op.Edge)
		edge := t.edgeData(e, op.Kind())
		delete(edge.Data.Attrs, op.Key)
		t.logf("RemoveEdgeProperty(%s,%s)", edge.Data.Name, op.Key)

	case RenameVertex:
		v := t.vertex(op.Vertex)
		data := t.vertexData(v, op.Kind())
		old := data.Name
		data.Name = op.Name
		t.logf("RenameVertex(%s,%s)", old, op.Name)

	case RenameEdge:
		e := t.edge(op.Edge)
		edge := t.edgeData(e, op.Kind())
		old := edge.Data.Name
		edge.Data.Name = op.Name
		t.logf("RenameEdge(%s,%s)", old, op.Name)

	case MoveEdgeSource:
		e := t.edge(op.Edge)
		v := t.vertex(op.Vertex)
		edge := t.edgeData(e, op.Kind())
		name := edge.Data.Name
		dest := t.vertexData(v, op.Kind()).Name
		moved, err := t.Result.MoveEdgeSource(e, v)
		if err != nil {
			panic(fmt.Sprintf("MoveEdgeSource: %v", err))
		}
		t.rebindEdge(op.Edge, moved)
		t.logf("MoveEdgeSource(%s,%s)", name, dest)

	case MoveEdgeTarget:
		e := t.edge(op.Edge)
		v := t.vertex(op.Vertex)
		edge := t.edgeData(e, op.Kind())
		name := edge.Data.Name
		dest := t.vertexData(v, op.Kind()).Name
		moved, err := t.Result.MoveEdgeTarget(e, v)
		if err != nil {
			panic(fmt.Sprintf("MoveEdgeTarget: %v", err))
		}
		t.rebindEdge(op.Edge, moved)
		t.logf("MoveEdgeTarget(%s,%s)", name, dest)

	default:
		panic(fmt.Sprintf("unhandled operation %T", op))
	}
}

func (t *GraphTransformation) rebindEdge(batchID, real graph.EdgeID) {
	if _, bound := t.edgeIDs[batchID]; bound {
		t.edgeIDs[batchID] = real
	}
}
