package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmorph/gmorph/graph"
)

func TestVertexFeatures(t *testing.T) {
	g := graph.NewPropertyGraph()
	person := g.VertexLabels.AddLabel("Person")
	data := graph.NewProperties("alice")
	data.Attrs["age"] = "34"
	alice := g.AddVertex(data)
	require.NoError(t, g.VertexLabels.AddMapping(alice, person))

	f := GraphFeatures(g)

	for _, feature := range []string{
		"node:name:alice",
		"node:prop:age:34",
		"node:label:Person",
	} {
		assert.Equal(t, 1.0, f[feature], feature)
	}

	// Co-occurrence pairs run in both directions.
	assert.Equal(t, 1.0, f["inner:node:name:alice;node:label:Person"])
	assert.Equal(t, 1.0, f["inner:node:label:Person;node:name:alice"])
	assert.Equal(t, 1.0, f["inner:node:prop:age:34;node:label:Person"])

	// Three base features plus six ordered pairs.
	assert.Len(t, f, 9)
}

func TestEdgeAdjacencyFeatures(t *testing.T) {
	g := graph.NewPropertyGraph()
	alice := g.AddVertex(graph.NewProperties("alice"))
	bob := g.AddVertex(graph.NewProperties("bob"))
	_, err := g.AddEdge(alice, bob, graph.NewProperties("knows"))
	require.NoError(t, err)

	f := GraphFeatures(g)

	assert.Equal(t, 1.0, f["edge:name:knows"])
	assert.Equal(t, 1.0, f["adj:node:name:alice;node:name:bob"])
	assert.Equal(t, 1.0, f["node:name:alice;edge:name:knows"])
	assert.Equal(t, 1.0, f["edge:name:knows;node:name:bob"])

	// Single-feature elements contribute no inner pairs, so the set is the
	// three bases plus the three crossings above.
	assert.Len(t, f, 6)
}

func TestFeatureWeightsAccumulate(t *testing.T) {
	g := graph.NewPropertyGraph()
	g.AddVertex(graph.NewProperties("x"))
	g.AddVertex(graph.NewProperties("x"))

	f := GraphFeatures(g)
	assert.Equal(t, 2.0, f["node:name:x"])
}

func chainGraph(t *testing.T, names ...string) *graph.PropertyGraph {
	t.Helper()
	g := graph.NewPropertyGraph()
	ids := make([]graph.VertexID, len(names))
	for i, name := range names {
		ids[i] = g.AddVertex(graph.NewProperties(name))
	}
	for i := 1; i < len(ids); i++ {
		_, err := g.AddEdge(ids[i-1], ids[i], graph.NewProperties(names[i-1]+"-"+names[i]))
		require.NoError(t, err)
	}
	return g
}

func TestSignatureIdenticalContent(t *testing.T) {
	g := chainGraph(t, "a", "b", "c", "d")
	assert.Equal(t, 1.0, GraphSignature(g).Jaccard(GraphSignature(g.Clone())))
}

func TestSignatureEmptyGraphs(t *testing.T) {
	a := graph.NewPropertyGraph()
	b := graph.NewPropertyGraph()
	assert.Equal(t, 1.0, GraphSignature(a).Jaccard(GraphSignature(b)))
}

func TestSignatureDiscriminates(t *testing.T) {
	base := chainGraph(t, "a", "b", "c", "d")

	tweaked := base.Clone()
	for _, data := range tweaked.Vertices() {
		if data.Name == "d" {
			data.Attrs["flag"] = "true"
		}
	}

	unrelated := chainGraph(t, "p", "q", "r", "s")

	near := GraphSignature(base).Jaccard(GraphSignature(tweaked))
	far := GraphSignature(base).Jaccard(GraphSignature(unrelated))

	assert.Less(t, near, 1.0)
	assert.Greater(t, near, far, "a small edit should stay closer than a disjoint graph")
}

func TestSignatureDeterministic(t *testing.T) {
	g := chainGraph(t, "a", "b", "c")
	assert.Equal(t, GraphSignature(g), GraphSignature(g))
}
