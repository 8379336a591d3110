/*
	Package edit defines the vocabulary of graph edits and the transformation
	that materializes a batch of edits into a new graph snapshot.

	Operations reference elements either by an id already present in the graph
	or by a batch-local id minted by an earlier creation in the same batch.
	Resolution happens at application time through the transformation's scratch
	tables.
*/
package edit

import "github.com/gmorph/gmorph/graph"

// Kind enumerates every edit operation.
type Kind uint8

const (
	KindCreateVertexLabel Kind = iota
	KindAddVertexLabel
	KindRemoveVertexLabel
	KindCreateEdgeLabel
	KindAddEdgeLabel
	KindRemoveEdgeLabel
	KindAddVertex
	KindRemoveVertex
	KindAddEdge
	KindRemoveEdge
	KindAddVertexProperty
	KindRemoveVertexProperty
	KindAddEdgeProperty
	KindRemoveEdgeProperty
	KindRenameVertex
	KindRenameEdge
	KindMoveEdgeSource
	KindMoveEdgeTarget

	numKinds = int(KindMoveEdgeTarget) + 1
)

var kindNames = [numKinds]string{
	KindCreateVertexLabel:    "CreateVertexLabel",
	KindAddVertexLabel:       "AddVertexLabel",
	KindRemoveVertexLabel:    "RemoveVertexLabel",
	KindCreateEdgeLabel:      "CreateEdgeLabel",
	KindAddEdgeLabel:         "AddEdgeLabel",
	KindRemoveEdgeLabel:      "RemoveEdgeLabel",
	KindAddVertex:            "AddVertex",
	KindRemoveVertex:         "RemoveVertex",
	KindAddEdge:              "AddEdge",
	KindRemoveEdge:           "RemoveEdge",
	KindAddVertexProperty:    "AddVertexProperty",
	KindRemoveVertexProperty: "RemoveVertexProperty",
	KindAddEdgeProperty:      "AddEdgeProperty",
	KindRemoveEdgeProperty:   "RemoveEdgeProperty",
	KindRenameVertex:         "RenameVertex",
	KindRenameEdge:           "RenameEdge",
	KindMoveEdgeSource:       "MoveEdgeSource",
	KindMoveEdgeTarget:       "MoveEdgeTarget",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "UnknownKind"
}

// KindOrder lists every kind in the order decoded batches assemble their
// operations: removals first, then creations and attachments, renames, and
// finally endpoint moves.
var KindOrder = [numKinds]Kind{
	KindRemoveEdgeProperty,
	KindRemoveEdgeLabel,
	KindRemoveEdge,
	KindRemoveVertexProperty,
	KindRemoveVertexLabel,
	KindRemoveVertex,
	KindAddVertex,
	KindCreateVertexLabel,
	KindAddVertexLabel,
	KindAddVertexProperty,
	KindAddEdge,
	KindCreateEdgeLabel,
	KindAddEdgeLabel,
	KindAddEdgeProperty,
	KindRenameVertex,
	KindRenameEdge,
	KindMoveEdgeSource,
	KindMoveEdgeTarget,
}

// Operation is one graph edit.  The set of implementations is closed; every
// operation is one of the Kind* structs in this package.
type Operation interface {
	Kind() Kind
	isOperation()
}

// CreateVertexLabel registers a new vertex label and binds the batch-local
// label id to the id the graph assigns.
type CreateVertexLabel struct {
	Label graph.LabelID
	Name  string
}

// AddVertexLabel attaches a vertex label to a vertex.
type AddVertexLabel struct {
	Vertex graph.VertexID
	Label  graph.LabelID
}

// RemoveVertexLabel detaches a vertex label from a vertex.
type RemoveVertexLabel struct {
	Vertex graph.VertexID
	Label  graph.LabelID
}

// CreateEdgeLabel registers a new edge label and binds the batch-local label
// id to the id the graph assigns.
type CreateEdgeLabel struct {
	Label graph.LabelID
	Name  string
}

// AddEdgeLabel attaches an edge label to an edge.
type AddEdgeLabel struct {
	Edge  graph.EdgeID
	Label graph.LabelID
}

// RemoveEdgeLabel detaches an edge label from an edge.
type RemoveEdgeLabel struct {
	Edge  graph.EdgeID
	Label graph.LabelID
}

// AddVertex inserts an unnamed vertex under a batch-local id.
type AddVertex struct {
	Vertex graph.VertexID
}

// RemoveVertex deletes a vertex along with its incident edges.
type RemoveVertex struct {
	Vertex graph.VertexID
}

// AddEdge inserts an unnamed edge under a batch-local id.  Its endpoints may
// themselves be batch-local.
type AddEdge struct {
	Edge graph.EdgeID
	From graph.VertexID
	To   graph.VertexID
}

// RemoveEdge deletes an edge.
type RemoveEdge struct {
	Edge graph.EdgeID
}

// AddVertexProperty sets a key/value attribute on a vertex.
type AddVertexProperty struct {
	Vertex graph.VertexID
	Key    string
	Value  string
}

// RemoveVertexProperty clears a vertex attribute.  Clearing an absent key is a
// no-op.
type RemoveVertexProperty struct {
	Vertex graph.VertexID
	Key    string
}

// AddEdgeProperty sets a key/value attribute on an edge.
type AddEdgeProperty struct {
	Edge  graph.EdgeID
	Key   string
	Value string
}

// RemoveEdgeProperty clears an edge attribute.  Clearing an absent key is a
// no-op.
type RemoveEdgeProperty struct {
	Edge graph.EdgeID
	Key  string
}

// RenameVertex overwrites a vertex's name.
type RenameVertex struct {
	Vertex graph.VertexID
	Name   string
}

// RenameEdge overwrites an edge's name.
type RenameEdge struct {
	Edge graph.EdgeID
	Name string
}

// MoveEdgeSource reattaches an edge to a new source vertex.
type MoveEdgeSource struct {
	Edge   graph.EdgeID
	Vertex graph.VertexID
}

// MoveEdgeTarget reattaches an edge to a new target vertex.
type MoveEdgeTarget struct {
	Edge   graph.EdgeID
	Vertex graph.VertexID
}

func (CreateVertexLabel) Kind() Kind    { return KindCreateVertexLabel }
func (AddVertexLabel) Kind() Kind       { return KindAddVertexLabel }
func (RemoveVertexLabel) Kind() Kind    { return KindRemoveVertexLabel }
func (CreateEdgeLabel) Kind() Kind      { return KindCreateEdgeLabel }
func (AddEdgeLabel) Kind() Kind         { return KindAddEdgeLabel }
func (RemoveEdgeLabel) Kind() Kind      { return KindRemoveEdgeLabel }
func (AddVertex) Kind() Kind            { return KindAddVertex }
func (RemoveVertex) Kind() Kind         { return KindRemoveVertex }
func (AddEdge) Kind() Kind              { return KindAddEdge }
func (RemoveEdge) Kind() Kind           { return KindRemoveEdge }
func (AddVertexProperty) Kind() Kind    { return KindAddVertexProperty }
func (RemoveVertexProperty) Kind() Kind { return KindRemoveVertexProperty }
func (AddEdgeProperty) Kind() Kind      { return KindAddEdgeProperty }
func (RemoveEdgeProperty) Kind() Kind   { return KindRemoveEdgeProperty }
func (RenameVertex) Kind() Kind         { return KindRenameVertex }
func (RenameEdge) Kind() Kind           { return KindRenameEdge }
func (MoveEdgeSource) Kind() Kind       { return KindMoveEdgeSource }
func (MoveEdgeTarget) Kind() Kind       { return KindMoveEdgeTarget }

func (CreateVertexLabel) isOperation()    {}
func (AddVertexLabel) isOperation()       {}
func (RemoveVertexLabel) isOperation()    {}
func (CreateEdgeLabel) isOperation()      {}
func (AddEdgeLabel) isOperation()         {}
func (RemoveEdgeLabel) isOperation()      {}
func (AddVertex) isOperation()            {}
func (RemoveVertex) isOperation()         {}
func (AddEdge) isOperation()              {}
func (RemoveEdge) isOperation()           {}
func (AddVertexProperty) isOperation()    {}
func (RemoveVertexProperty) isOperation() {}
func (AddEdgeProperty) isOperation()      {}
func (RemoveEdgeProperty) isOperation()   {}
func (RenameVertex) isOperation()         {}
func (RenameEdge) isOperation()           {}
func (MoveEdgeSource) isOperation()       {}
func (MoveEdgeTarget) isOperation()       {}
