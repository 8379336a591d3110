/*
	Package similarity scores how alike two property graphs are.  A graph is
	flattened into a weighted multiset of structural features, the multiset is
	sketched into a fixed-width minhash signature, and similarity is the
	Jaccard estimate between signatures.
*/
package similarity

import "github.com/gmorph/gmorph/graph"

// Features is a weighted multiset of structural features.  Weights count how
// often a feature occurs.
type Features map[string]float64

func (f Features) bump(feature string) {
	f[feature]++
}

// vertexBase lists the flat features of one vertex: its name, each property
// pair, and each attached label.
func vertexBase(g *graph.PropertyGraph, id graph.VertexID, data *graph.Properties) []string {
	return elementBase("node:", data, labelNames(g.VertexLabels, id))
}

// edgeBase does the same for an edge payload.
func edgeBase(g *graph.PropertyGraph, id graph.EdgeID, data *graph.Properties) []string {
	return elementBase("edge:", data, labelNames(g.EdgeLabels, id))
}

func elementBase(prefix string, data *graph.Properties, labels []string) []string {
	base := make([]string, 0, 1+len(data.Attrs)+len(labels))
	base = append(base, prefix+"name:"+data.Name)
	for key, value := range data.Attrs {
		base = append(base, prefix+"prop:"+key+":"+value)
	}
	for _, label := range labels {
		base = append(base, prefix+"label:"+label)
	}
	return base
}

func labelNames[E comparable](m *graph.LabelMap[E], element E) []string {
	var names []string
	for id := range m.ElementLabels(element) {
		if name, ok := m.Name(id); ok {
			names = append(names, name)
		}
	}
	return names
}

// innerFeatures folds an element's base features into the multiset: the base
// features themselves plus every ordered pairing, which captures co-occurrence
// of name, properties, and labels on one element.
func innerFeatures(f Features, base []string) {
	for i, a := range base {
		f.bump(a)
		for j, b := range base {
			if i == j {
				continue
			}
			f.bump("inner:" + a + ";" + b)
		}
	}
}

// pairFeatures crosses two base sets.
func pairFeatures(f Features, as, bs []string, prefix string) {
	for _, a := range as {
		for _, b := range bs {
			f.bump(prefix + a + ";" + b)
		}
	}
}

// adjacencyFeatures ties an edge to its endpoints: source crossed with target
// under the adjacency prefix, and each endpoint crossed with the edge itself.
func adjacencyFeatures(f Features, from, to, edge []string) {
	pairFeatures(f, from, to, "adj:")
	pairFeatures(f, from, edge, "")
	pairFeatures(f, edge, to, "")
}

// GraphFeatures flattens a graph into its feature multiset.
func GraphFeatures(g *graph.PropertyGraph) Features {
	f := make(Features)

	vertexBases := make(map[graph.VertexID][]string, g.NumVertices())
	for id, data := range g.Vertices() {
		base := vertexBase(g, id, data)
		vertexBases[id] = base
		innerFeatures(f, base)
	}

	for id, e := range g.Edges() {
		base := edgeBase(g, id, e.Data)
		innerFeatures(f, base)
		adjacencyFeatures(f, vertexBases[e.From], vertexBases[e.To], base)
	}
	return f
}
