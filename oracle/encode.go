package oracle

import (
	"sort"

	"github.com/gmorph/gmorph/graph"
)

// EncodeGraph fills the input relations describing g.
func EncodeGraph(p Program, g *graph.PropertyGraph) error {
	return encodeGraph(p, g, "")
}

// EncodeTarget fills the Target-prefixed copies of the input relations
// describing the comparison target.
func EncodeTarget(p Program, g *graph.PropertyGraph) error {
	return encodeGraph(p, g, TargetPrefix)
}

func encodeGraph(p Program, g *graph.PropertyGraph, prefix string) error {
	rel := make(map[string][]Row, len(InputRelations))

	for id, name := range g.VertexLabels.Labels() {
		rel[RelVertexLabel] = append(rel[RelVertexLabel], Row{Number(uint32(id))})
		rel[RelVertexLabelName] = append(rel[RelVertexLabelName], Row{Number(uint32(id)), Symbol(name)})
	}
	for id, name := range g.EdgeLabels.Labels() {
		rel[RelEdgeLabel] = append(rel[RelEdgeLabel], Row{Number(uint32(id))})
		rel[RelEdgeLabelName] = append(rel[RelEdgeLabelName], Row{Number(uint32(id)), Symbol(name)})
	}

	for id, data := range g.Vertices() {
		v := Number(uint32(id))
		rel[RelVertex] = append(rel[RelVertex], Row{v})
		rel[RelVertexName] = append(rel[RelVertexName], Row{v, Symbol(data.Name)})
		for label := range g.VertexLabels.ElementLabels(id) {
			rel[RelVertexHasLabel] = append(rel[RelVertexHasLabel], Row{v, Number(uint32(label))})
		}
		for key, value := range data.Attrs {
			rel[RelVertexProperty] = append(rel[RelVertexProperty], Row{v, Symbol(key), Symbol(value)})
		}
	}

	for id, edge := range g.Edges() {
		e := Number(uint32(id))
		rel[RelEdge] = append(rel[RelEdge], Row{e, Number(uint32(edge.From)), Number(uint32(edge.To))})
		rel[RelEdgeName] = append(rel[RelEdgeName], Row{e, Symbol(edge.Data.Name)})
		for label := range g.EdgeLabels.ElementLabels(id) {
			rel[RelEdgeHasLabel] = append(rel[RelEdgeHasLabel], Row{e, Number(uint32(label))})
		}
		for key, value := range edge.Data.Attrs {
			rel[RelEdgeProperty] = append(rel[RelEdgeProperty], Row{e, Symbol(key), Symbol(value)})
		}
	}

	// Map iteration above is unordered; sort each relation so fills are
	// reproducible across runs.
	for _, name := range InputRelations {
		rows := rel[name]
		sort.Slice(rows, func(i, j int) bool { return lessRow(rows[i], rows[j]) })
		if err := p.Fill(prefix+name, rows); err != nil {
			return err
		}
	}
	return nil
}

func lessRow(a, b Row) bool {
	for i := range a {
		if i >= len(b) {
			return false
		}
		if a[i].TermKind != b[i].TermKind {
			return a[i].TermKind < b[i].TermKind
		}
		if a[i].TermKind == NumberTerm {
			if a[i].Num != b[i].Num {
				return a[i].Num < b[i].Num
			}
		} else if a[i].Sym != b[i].Sym {
			return a[i].Sym < b[i].Sym
		}
	}
	return len(a) < len(b)
}
