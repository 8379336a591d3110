package graph

import (
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// GenerateKey builds a canonical string over the graph's shape: vertex names in
// sorted order, each followed by the sorted names of its outgoing edges.  Two
// graphs with the same vertex names and name-level connectivity produce the
// same key regardless of insertion order or internal ids.
func (g *PropertyGraph) GenerateKey() string {
	type entry struct {
		name string
		out  []string
	}
	entries := make([]entry, 0, len(g.vertices))
	for id, data := range g.vertices {
		e := entry{name: data.Name}
		for edgeID := range g.out[id] {
			e.out = append(e.out, g.edges[edgeID].Data.Name)
		}
		sort.Strings(e.out)
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.name)
		if len(e.out) > 0 {
			b.WriteByte(':')
			b.WriteString(strings.Join(e.out, ","))
		}
		b.WriteByte(';')
	}
	return b.String()
}

// ContentHash digests the full element content (names, attributes, labels, and
// name-level connectivity) in a sorted traversal, so any two graphs with equal
// content hash to the same value regardless of id assignment.
func (g *PropertyGraph) ContentHash() uint64 {
	digest := xxhash.New()

	vertexIDs := make([]VertexID, 0, len(g.vertices))
	for id := range g.vertices {
		vertexIDs = append(vertexIDs, id)
	}
	sort.Slice(vertexIDs, func(i, j int) bool {
		return g.vertices[vertexIDs[i]].Name < g.vertices[vertexIDs[j]].Name
	})
	for _, id := range vertexIDs {
		hashElement(digest, "v", g.vertices[id], labelNamesOf(g.VertexLabels, id))
	}

	edgeIDs := make([]EdgeID, 0, len(g.edges))
	for id := range g.edges {
		edgeIDs = append(edgeIDs, id)
	}
	sort.Slice(edgeIDs, func(i, j int) bool {
		a, b := g.edges[edgeIDs[i]], g.edges[edgeIDs[j]]
		if a.Data.Name != b.Data.Name {
			return a.Data.Name < b.Data.Name
		}
		if an, bn := g.vertices[a.From].Name, g.vertices[b.From].Name; an != bn {
			return an < bn
		}
		return g.vertices[a.To].Name < g.vertices[b.To].Name
	})
	for _, id := range edgeIDs {
		edge := g.edges[id]
		digest.WriteString("e")
		digest.WriteString(g.vertices[edge.From].Name)
		digest.WriteString("\x00")
		digest.WriteString(g.vertices[edge.To].Name)
		digest.WriteString("\x00")
		hashElement(digest, "", edge.Data, labelNamesOf(g.EdgeLabels, id))
	}
	return digest.Sum64()
}

func hashElement(digest *xxhash.Digest, tag string, data *Properties, labels []string) {
	digest.WriteString(tag)
	digest.WriteString(data.Name)
	digest.WriteString("\x00")
	keys := make([]string, 0, len(data.Attrs))
	for k := range data.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		digest.WriteString(k)
		digest.WriteString("\x01")
		digest.WriteString(data.Attrs[k])
		digest.WriteString("\x00")
	}
	for _, label := range labels {
		digest.WriteString(label)
		digest.WriteString("\x02")
	}
}
