package graph

import (
	"maps"
	"slices"
	"sort"
	"strings"
)

// normNode is one node of the normalized comparison graph.  Every edge of the
// original graph is replaced by a synthetic node carrying the edge's payload,
// so the normalized graph is a simple digraph even when the original has
// parallel edges.  The synthetic flag keeps an edge payload from ever matching
// a vertex with identical content.
type normNode struct {
	synthetic bool
	name      string
	attrs     map[string]string
	labels    []string
}

func (n *normNode) equal(o *normNode) bool {
	return n.synthetic == o.synthetic &&
		n.name == o.name &&
		maps.Equal(n.attrs, o.attrs) &&
		slices.Equal(n.labels, o.labels)
}

func (n *normNode) fingerprint() string {
	var b strings.Builder
	if n.synthetic {
		b.WriteByte('s')
	} else {
		b.WriteByte('v')
	}
	b.WriteString(n.name)
	b.WriteByte(0)
	keys := make([]string, 0, len(n.attrs))
	for k := range n.attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte(1)
		b.WriteString(n.attrs[k])
		b.WriteByte(0)
	}
	for _, label := range n.labels {
		b.WriteString(label)
		b.WriteByte(2)
	}
	return b.String()
}

type normGraph struct {
	nodes []normNode
	out   []map[int]struct{}
	in    []map[int]struct{}
}

func (ng *normGraph) addNode(n normNode) int {
	ng.nodes = append(ng.nodes, n)
	ng.out = append(ng.out, make(map[int]struct{}))
	ng.in = append(ng.in, make(map[int]struct{}))
	return len(ng.nodes) - 1
}

func (ng *normGraph) addArc(from, to int) {
	ng.out[from][to] = struct{}{}
	ng.in[to][from] = struct{}{}
}

func (ng *normGraph) hasArc(from, to int) bool {
	_, found := ng.out[from][to]
	return found
}

func normalize(g *PropertyGraph) *normGraph {
	ng := &normGraph{}
	index := make(map[VertexID]int, len(g.vertices))
	for id, data := range g.vertices {
		index[id] = ng.addNode(normNode{
			name:   data.Name,
			attrs:  data.Attrs,
			labels: labelNamesOf(g.VertexLabels, id),
		})
	}
	for id, edge := range g.edges {
		mid := ng.addNode(normNode{
			synthetic: true,
			name:      edge.Data.Name,
			attrs:     edge.Data.Attrs,
			labels:    labelNamesOf(g.EdgeLabels, id),
		})
		ng.addArc(index[edge.From], mid)
		ng.addArc(mid, index[edge.To])
	}
	return ng
}

// IsIsomorphic reports whether the two graphs have the same shape and content:
// there is a bijection between their vertices and between their edges that
// preserves endpoints, names, attributes, and label names.  Internal ids play
// no role.
func IsIsomorphic(a, b *PropertyGraph) bool {
	if a.NumVertices() != b.NumVertices() || a.NumEdges() != b.NumEdges() {
		return false
	}
	na, nb := normalize(a), normalize(b)

	// Cheap screen: the payload multisets must agree before any mapping can.
	fa := make([]string, len(na.nodes))
	fb := make([]string, len(nb.nodes))
	for i := range na.nodes {
		fa[i] = na.nodes[i].fingerprint()
		fb[i] = nb.nodes[i].fingerprint()
	}
	sort.Strings(fa)
	sort.Strings(fb)
	if !slices.Equal(fa, fb) {
		return false
	}

	m := &matcher{a: na, b: nb, aToB: make([]int, len(na.nodes)), used: make([]bool, len(nb.nodes))}
	for i := range m.aToB {
		m.aToB[i] = -1
	}
	return m.extend(0)
}

type matcher struct {
	a, b *normGraph
	aToB []int
	used []bool
}

func (m *matcher) extend(i int) bool {
	if i == len(m.a.nodes) {
		return true
	}
	an := &m.a.nodes[i]
	for j := range m.b.nodes {
		if m.used[j] {
			continue
		}
		bn := &m.b.nodes[j]
		if !an.equal(bn) {
			continue
		}
		if len(m.a.out[i]) != len(m.b.out[j]) || len(m.a.in[i]) != len(m.b.in[j]) {
			continue
		}
		if !m.consistent(i, j) {
			continue
		}
		m.aToB[i] = j
		m.used[j] = true
		if m.extend(i + 1) {
			return true
		}
		m.aToB[i] = -1
		m.used[j] = false
	}
	return false
}

// consistent checks that pairing (i, j) preserves arcs to and from every node
// already mapped.
func (m *matcher) consistent(i, j int) bool {
	for u, mu := range m.aToB {
		if mu < 0 {
			continue
		}
		if m.a.hasArc(i, u) != m.b.hasArc(j, mu) {
			return false
		}
		if m.a.hasArc(u, i) != m.b.hasArc(mu, j) {
			return false
		}
	}
	return true
}
