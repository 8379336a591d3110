package graph

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleGraphJSON = `{
  "vertices": [
    {"name": "personType"},
    {"name": "customerType", "labels": ["Account"], "properties": {"since": "2019"}},
    {"name": "suspiciousType", "labels": ["Flagged"]}
  ],
  "edges": [
    {"name": "friendType", "from": "customerType", "to": "personType"},
    {"name": "aliasType", "from": "customerType", "to": "suspiciousType", "labels": ["Weak"], "properties": {"conf": "0.8"}}
  ]
}`

func TestFromJSON(t *testing.T) {
	g, err := FromJSON([]byte(sampleGraphJSON))
	require.NoError(t, err)
	assert.Equal(t, 3, g.NumVertices())
	assert.Equal(t, 2, g.NumEdges())
	assert.Equal(t, "customerType:aliasType,friendType;personType;suspiciousType;", g.GenerateKey())

	id, found := g.VertexLabels.ID("Account")
	require.True(t, found)
	elements := slices.Collect(g.VertexLabels.LabelElements(id))
	require.Len(t, elements, 1)
	data, found := g.Vertex(elements[0])
	require.True(t, found)
	assert.Equal(t, "customerType", data.Name)
	assert.Equal(t, "2019", data.Attrs["since"])
}

func TestJSONRoundTrip(t *testing.T) {
	g1, err := FromJSON([]byte(sampleGraphJSON))
	require.NoError(t, err)
	out, err := g1.ToJSON()
	require.NoError(t, err)
	g2, err := FromJSON(out)
	require.NoError(t, err)
	assert.True(t, IsIsomorphic(g1, g2))
	assert.Equal(t, g1.ContentHash(), g2.ContentHash())
}

func TestFromJSONRejectsBadDocuments(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"not json", `{"vertices": [`},
		{"missing edges", `{"vertices": []}`},
		{"vertex without name", `{"vertices": [{"labels": []}], "edges": []}`},
		{"edge without endpoints", `{"vertices": [{"name": "a"}], "edges": [{"name": "e"}]}`},
		{"non-string property", `{"vertices": [{"name": "a", "properties": {"k": 3}}], "edges": []}`},
		{"unknown endpoint", `{"vertices": [{"name": "a"}], "edges": [{"name": "e", "from": "a", "to": "zzz"}]}`},
		{"duplicate vertex name", `{"vertices": [{"name": "a"}, {"name": "a"}], "edges": []}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromJSON([]byte(tc.doc))
			assert.Error(t, err)
		})
	}
}
