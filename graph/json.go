package graph

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const graphSchema = `
{ "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "Representation for a labeled property graph.  Vertices are listed with their labels and properties; edges reference their endpoints by vertex name.",
  "type": "object",
  "definitions": {
    "vertex": {
      "description": "Describes a vertex in a graph",
      "type": "object",
      "properties": {
        "name": { "type": "string", "description": "Unique vertex name" },
        "labels": { "type": "array", "items": { "type": "string" } },
        "properties": { "type": "object", "additionalProperties": { "type": "string" } }
      },
      "required": ["name"]
    },
    "edge": {
      "description": "Describes a directed edge in a graph",
      "type": "object",
      "properties": {
        "name": { "type": "string", "description": "Unique edge name" },
        "from": { "type": "string", "description": "Name of the source vertex" },
        "to": { "type": "string", "description": "Name of the target vertex" },
        "labels": { "type": "array", "items": { "type": "string" } },
        "properties": { "type": "object", "additionalProperties": { "type": "string" } }
      },
      "required": ["name", "from", "to"]
    }
  },
  "properties": {
    "vertices": {
      "description": "array of vertices",
      "type": "array",
      "items": {"$ref": "#/definitions/vertex"}
    },
    "edges": {
      "description": "array of edges",
      "type": "array",
      "items": {"$ref": "#/definitions/edge"}
    }
  },
  "required": ["vertices", "edges"]
}
`

var compiledGraphSchema = jsonschema.MustCompileString("graph.json", graphSchema)

type jsonVertex struct {
	Name       string            `json:"name"`
	Labels     []string          `json:"labels,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

type jsonEdge struct {
	Name       string            `json:"name"`
	From       string            `json:"from"`
	To         string            `json:"to"`
	Labels     []string          `json:"labels,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

type jsonGraph struct {
	Vertices []jsonVertex `json:"vertices"`
	Edges    []jsonEdge   `json:"edges"`
}

// FromJSON validates a JSON graph document against the embedded schema and
// decodes it.  Edge endpoints are resolved through vertex names, so the
// document's vertex names must be unique.
func FromJSON(data []byte) (*PropertyGraph, error) {
	var anyDoc interface{}
	if err := json.Unmarshal(data, &anyDoc); err != nil {
		return nil, fmt.Errorf("parsing graph document: %v", err)
	}
	if err := compiledGraphSchema.Validate(anyDoc); err != nil {
		return nil, fmt.Errorf("validating graph document: %v", err)
	}
	var doc jsonGraph
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	g := NewPropertyGraph()
	byName := make(map[string]VertexID, len(doc.Vertices))
	for _, v := range doc.Vertices {
		if _, dup := byName[v.Name]; dup {
			return nil, fmt.Errorf("duplicate vertex name %q", v.Name)
		}
		id := g.AddVertex(Properties{Name: v.Name, Attrs: copyAttrs(v.Properties)})
		byName[v.Name] = id
		for _, label := range v.Labels {
			labelID := g.VertexLabels.AddLabel(label)
			if err := g.VertexLabels.AddMapping(id, labelID); err != nil {
				return nil, err
			}
		}
	}
	for _, e := range doc.Edges {
		from, found := byName[e.From]
		if !found {
			return nil, fmt.Errorf("edge %q references unknown vertex %q", e.Name, e.From)
		}
		to, found := byName[e.To]
		if !found {
			return nil, fmt.Errorf("edge %q references unknown vertex %q", e.Name, e.To)
		}
		id, err := g.AddEdge(from, to, Properties{Name: e.Name, Attrs: copyAttrs(e.Properties)})
		if err != nil {
			return nil, err
		}
		for _, label := range e.Labels {
			labelID := g.EdgeLabels.AddLabel(label)
			if err := g.EdgeLabels.AddMapping(id, labelID); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}

// ToJSON renders the graph as a document FromJSON accepts.  Vertices and edges
// are sorted by name so output is deterministic.
func (g *PropertyGraph) ToJSON() ([]byte, error) {
	doc := jsonGraph{Vertices: []jsonVertex{}, Edges: []jsonEdge{}}
	for id, data := range g.vertices {
		doc.Vertices = append(doc.Vertices, jsonVertex{
			Name:       data.Name,
			Labels:     labelNamesOf(g.VertexLabels, id),
			Properties: data.Attrs,
		})
	}
	sort.Slice(doc.Vertices, func(i, j int) bool { return doc.Vertices[i].Name < doc.Vertices[j].Name })
	for id, edge := range g.edges {
		doc.Edges = append(doc.Edges, jsonEdge{
			Name:       edge.Data.Name,
			From:       g.vertices[edge.From].Name,
			To:         g.vertices[edge.To].Name,
			Labels:     labelNamesOf(g.EdgeLabels, id),
			Properties: edge.Data.Attrs,
		})
	}
	sort.Slice(doc.Edges, func(i, j int) bool { return doc.Edges[i].Name < doc.Edges[j].Name })
	return json.MarshalIndent(doc, "", "  ")
}

func copyAttrs(attrs map[string]string) map[string]string {
	c := make(map[string]string, len(attrs))
	for k, v := range attrs {
		c[k] = v
	}
	return c
}
