package graph

import (
	"errors"
	"fmt"
	"iter"
	"sort"
	"strings"
)

var (
	// ErrUnknownVertex is returned when an operation references a vertex id that
	// is not in the graph.
	ErrUnknownVertex = errors.New("unknown vertex")

	// ErrUnknownEdge is returned when an operation references an edge id that is
	// not in the graph.
	ErrUnknownEdge = errors.New("unknown edge")
)

// VertexID identifies a vertex.  Ids are recycled after removal, so they are
// stable only for the lifetime of the element.
type VertexID uint32

// EdgeID identifies an edge.  Like vertex ids, edge ids are recycled.
type EdgeID uint32

// Properties is the payload carried by every vertex and edge: a name plus
// arbitrary string attributes.
type Properties struct {
	Name  string
	Attrs map[string]string
}

// NewProperties returns a named payload with an empty attribute map.
func NewProperties(name string) Properties {
	return Properties{Name: name, Attrs: make(map[string]string)}
}

// Clone returns a copy sharing no state with the original.
func (p Properties) Clone() Properties {
	attrs := make(map[string]string, len(p.Attrs))
	for k, v := range p.Attrs {
		attrs[k] = v
	}
	return Properties{Name: p.Name, Attrs: attrs}
}

// Edge is a directed connection between two vertices with its own payload.
type Edge struct {
	From VertexID
	To   VertexID
	Data *Properties
}

// PropertyGraph is a directed multigraph of Properties-bearing vertices and
// edges with one label index per element kind.  It is not safe for concurrent
// mutation.
type PropertyGraph struct {
	vertexPool idPool
	edgePool   idPool
	vertices   map[VertexID]*Properties
	edges      map[EdgeID]*Edge
	out        map[VertexID]map[EdgeID]struct{}
	in         map[VertexID]map[EdgeID]struct{}

	VertexLabels *LabelMap[VertexID]
	EdgeLabels   *LabelMap[EdgeID]
}

// NewPropertyGraph returns an empty graph.
func NewPropertyGraph() *PropertyGraph {
	return &PropertyGraph{
		vertices:     make(map[VertexID]*Properties),
		edges:        make(map[EdgeID]*Edge),
		out:          make(map[VertexID]map[EdgeID]struct{}),
		in:           make(map[VertexID]map[EdgeID]struct{}),
		VertexLabels: NewLabelMap[VertexID](),
		EdgeLabels:   NewLabelMap[EdgeID](),
	}
}

// AddVertex inserts a vertex and returns its id.
func (g *PropertyGraph) AddVertex(data Properties) VertexID {
	if data.Attrs == nil {
		data.Attrs = make(map[string]string)
	}
	id := VertexID(g.vertexPool.get())
	g.vertices[id] = &data
	g.out[id] = make(map[EdgeID]struct{})
	g.in[id] = make(map[EdgeID]struct{})
	return id
}

// RemoveVertex deletes the vertex, its label rows, and every incident edge
// along with the incident edges' label rows.  The removed edge ids are
// returned.
func (g *PropertyGraph) RemoveVertex(id VertexID) ([]EdgeID, error) {
	if _, found := g.vertices[id]; !found {
		return nil, fmt.Errorf("remove of vertex %d: %w", id, ErrUnknownVertex)
	}
	var removed []EdgeID
	for e := range g.out[id] {
		removed = append(removed, e)
	}
	for e := range g.in[id] {
		if edge := g.edges[e]; edge.From != id { // self-loops only counted once
			removed = append(removed, e)
		}
	}
	for _, e := range removed {
		g.removeEdge(e)
	}
	g.VertexLabels.RemoveElement(id)
	delete(g.vertices, id)
	delete(g.out, id)
	delete(g.in, id)
	g.vertexPool.put(uint32(id))
	return removed, nil
}

// AddEdge inserts a directed edge between existing vertices and returns its id.
func (g *PropertyGraph) AddEdge(from, to VertexID, data Properties) (EdgeID, error) {
	if _, found := g.vertices[from]; !found {
		return 0, fmt.Errorf("edge source %d: %w", from, ErrUnknownVertex)
	}
	if _, found := g.vertices[to]; !found {
		return 0, fmt.Errorf("edge target %d: %w", to, ErrUnknownVertex)
	}
	if data.Attrs == nil {
		data.Attrs = make(map[string]string)
	}
	id := EdgeID(g.edgePool.get())
	g.edges[id] = &Edge{From: from, To: to, Data: &data}
	g.out[from][id] = struct{}{}
	g.in[to][id] = struct{}{}
	return id, nil
}

// RemoveEdge deletes the edge and its label rows.
func (g *PropertyGraph) RemoveEdge(id EdgeID) error {
	if _, found := g.edges[id]; !found {
		return fmt.Errorf("remove of edge %d: %w", id, ErrUnknownEdge)
	}
	g.removeEdge(id)
	return nil
}

func (g *PropertyGraph) removeEdge(id EdgeID) {
	edge := g.edges[id]
	g.EdgeLabels.RemoveElement(id)
	delete(g.out[edge.From], id)
	delete(g.in[edge.To], id)
	delete(g.edges, id)
	g.edgePool.put(uint32(id))
}

// MoveEdgeSource reattaches the edge so it originates at newFrom, preserving
// its payload and labels.  The freed id is reused immediately, so the edge
// keeps its id.
func (g *PropertyGraph) MoveEdgeSource(id EdgeID, newFrom VertexID) (EdgeID, error) {
	edge, found := g.edges[id]
	if !found {
		return 0, fmt.Errorf("move source of edge %d: %w", id, ErrUnknownEdge)
	}
	return g.moveEdge(id, newFrom, edge.To)
}

// MoveEdgeTarget reattaches the edge so it points at newTo, preserving its
// payload and labels.
func (g *PropertyGraph) MoveEdgeTarget(id EdgeID, newTo VertexID) (EdgeID, error) {
	edge, found := g.edges[id]
	if !found {
		return 0, fmt.Errorf("move target of edge %d: %w", id, ErrUnknownEdge)
	}
	return g.moveEdge(id, edge.From, newTo)
}

func (g *PropertyGraph) moveEdge(id EdgeID, from, to VertexID) (EdgeID, error) {
	edge := g.edges[id]
	var labels []LabelID
	for l := range g.EdgeLabels.ElementLabels(id) {
		labels = append(labels, l)
	}
	data := edge.Data.Clone()
	g.removeEdge(id)
	newID, err := g.AddEdge(from, to, data)
	if err != nil {
		return 0, err
	}
	for _, l := range labels {
		if err := g.EdgeLabels.AddMapping(newID, l); err != nil {
			return 0, err
		}
	}
	return newID, nil
}

// Vertex returns the payload of a vertex.
func (g *PropertyGraph) Vertex(id VertexID) (*Properties, bool) {
	data, found := g.vertices[id]
	return data, found
}

// Edge returns an edge with its endpoints and payload.
func (g *PropertyGraph) Edge(id EdgeID) (*Edge, bool) {
	edge, found := g.edges[id]
	return edge, found
}

func (g *PropertyGraph) NumVertices() int {
	return len(g.vertices)
}

func (g *PropertyGraph) NumEdges() int {
	return len(g.edges)
}

// Vertices iterates over all (id, payload) pairs in no particular order.
func (g *PropertyGraph) Vertices() iter.Seq2[VertexID, *Properties] {
	return func(yield func(VertexID, *Properties) bool) {
		for id, data := range g.vertices {
			if !yield(id, data) {
				return
			}
		}
	}
}

// Edges iterates over all (id, edge) pairs in no particular order.
func (g *PropertyGraph) Edges() iter.Seq2[EdgeID, *Edge] {
	return func(yield func(EdgeID, *Edge) bool) {
		for id, edge := range g.edges {
			if !yield(id, edge) {
				return
			}
		}
	}
}

// OutEdges iterates over the ids of edges leaving v.
func (g *PropertyGraph) OutEdges(v VertexID) iter.Seq[EdgeID] {
	return func(yield func(EdgeID) bool) {
		for id := range g.out[v] {
			if !yield(id) {
				return
			}
		}
	}
}

// InEdges iterates over the ids of edges arriving at v.
func (g *PropertyGraph) InEdges(v VertexID) iter.Seq[EdgeID] {
	return func(yield func(EdgeID) bool) {
		for id := range g.in[v] {
			if !yield(id) {
				return
			}
		}
	}
}

// CheckUniqueNames reports whether vertex names are pairwise distinct and edge
// names are pairwise distinct.  The two namespaces are independent.
func (g *PropertyGraph) CheckUniqueNames() bool {
	vertexNames := make(map[string]struct{}, len(g.vertices))
	for _, data := range g.vertices {
		vertexNames[data.Name] = struct{}{}
	}
	if len(vertexNames) != len(g.vertices) {
		return false
	}
	edgeNames := make(map[string]struct{}, len(g.edges))
	for _, edge := range g.edges {
		edgeNames[edge.Data.Name] = struct{}{}
	}
	return len(edgeNames) == len(g.edges)
}

// Clone returns a deep copy, including id pool state so the copy allocates
// the same ids the original would.
func (g *PropertyGraph) Clone() *PropertyGraph {
	c := &PropertyGraph{
		vertexPool:   g.vertexPool.clone(),
		edgePool:     g.edgePool.clone(),
		vertices:     make(map[VertexID]*Properties, len(g.vertices)),
		edges:        make(map[EdgeID]*Edge, len(g.edges)),
		out:          make(map[VertexID]map[EdgeID]struct{}, len(g.out)),
		in:           make(map[VertexID]map[EdgeID]struct{}, len(g.in)),
		VertexLabels: g.VertexLabels.Clone(),
		EdgeLabels:   g.EdgeLabels.Clone(),
	}
	for id, data := range g.vertices {
		clone := data.Clone()
		c.vertices[id] = &clone
	}
	for id, edge := range g.edges {
		data := edge.Data.Clone()
		c.edges[id] = &Edge{From: edge.From, To: edge.To, Data: &data}
	}
	for v, set := range g.out {
		clone := make(map[EdgeID]struct{}, len(set))
		for e := range set {
			clone[e] = struct{}{}
		}
		c.out[v] = clone
	}
	for v, set := range g.in {
		clone := make(map[EdgeID]struct{}, len(set))
		for e := range set {
			clone[e] = struct{}{}
		}
		c.in[v] = clone
	}
	return c
}

// String renders a deterministic multi-line listing, sorted by element id.
func (g *PropertyGraph) String() string {
	var b strings.Builder
	vertexIDs := make([]VertexID, 0, len(g.vertices))
	for id := range g.vertices {
		vertexIDs = append(vertexIDs, id)
	}
	sort.Slice(vertexIDs, func(i, j int) bool { return vertexIDs[i] < vertexIDs[j] })
	for _, id := range vertexIDs {
		fmt.Fprintf(&b, "vertex %d: %s\n", id, describe(g.vertices[id], labelNamesOf(g.VertexLabels, id)))
	}
	edgeIDs := make([]EdgeID, 0, len(g.edges))
	for id := range g.edges {
		edgeIDs = append(edgeIDs, id)
	}
	sort.Slice(edgeIDs, func(i, j int) bool { return edgeIDs[i] < edgeIDs[j] })
	for _, id := range edgeIDs {
		edge := g.edges[id]
		fmt.Fprintf(&b, "edge %d: %d -> %d %s\n", id, edge.From, edge.To,
			describe(edge.Data, labelNamesOf(g.EdgeLabels, id)))
	}
	return b.String()
}

func labelNamesOf[E comparable](m *LabelMap[E], e E) []string {
	var names []string
	for id := range m.ElementLabels(e) {
		if name, found := m.Name(id); found {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func describe(data *Properties, labels []string) string {
	keys := make([]string, 0, len(data.Attrs))
	for k := range data.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	fmt.Fprintf(&b, "%q", data.Name)
	if len(labels) > 0 {
		fmt.Fprintf(&b, " labels=%v", labels)
	}
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%q", k, data.Attrs[k])
	}
	return b.String()
}
