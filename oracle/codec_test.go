package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmorph/gmorph/edit"
	"github.com/gmorph/gmorph/graph"
)

func socialGraph(t *testing.T) *graph.PropertyGraph {
	t.Helper()
	g := graph.NewPropertyGraph()

	person := g.VertexLabels.AddLabel("Person")
	friendship := g.EdgeLabels.AddLabel("Friendship")

	aliceData := graph.NewProperties("alice")
	aliceData.Attrs["age"] = "34"
	alice := g.AddVertex(aliceData)
	bob := g.AddVertex(graph.NewProperties("bob"))

	knowsData := graph.NewProperties("knows")
	knowsData.Attrs["since"] = "2019"
	knows, err := g.AddEdge(alice, bob, knowsData)
	require.NoError(t, err)

	require.NoError(t, g.VertexLabels.AddMapping(alice, person))
	require.NoError(t, g.EdgeLabels.AddMapping(knows, friendship))
	return g
}

func relationRows(t *testing.T, p Program, relation string) []Row {
	t.Helper()
	rows, err := p.Rows(relation)
	require.NoError(t, err)
	return rows
}

func TestEncodeGraph(t *testing.T) {
	g := socialGraph(t)
	p := NewMemoryProgram()
	require.NoError(t, EncodeGraph(p, g))

	assert.Equal(t, []Row{{Number(0)}}, relationRows(t, p, RelVertexLabel))
	assert.Equal(t, []Row{{Number(0), Symbol("Person")}}, relationRows(t, p, RelVertexLabelName))
	assert.Equal(t, []Row{{Number(0)}, {Number(1)}}, relationRows(t, p, RelVertex))
	assert.Equal(t, []Row{{Number(0), Symbol("alice")}, {Number(1), Symbol("bob")}},
		relationRows(t, p, RelVertexName))
	assert.Equal(t, []Row{{Number(0), Number(0)}}, relationRows(t, p, RelVertexHasLabel))
	assert.Equal(t, []Row{{Number(0), Symbol("age"), Symbol("34")}},
		relationRows(t, p, RelVertexProperty))

	assert.Equal(t, []Row{{Number(0), Number(0), Number(1)}}, relationRows(t, p, RelEdge))
	assert.Equal(t, []Row{{Number(0), Symbol("knows")}}, relationRows(t, p, RelEdgeName))
	assert.Equal(t, []Row{{Number(0), Number(0)}}, relationRows(t, p, RelEdgeHasLabel))
	assert.Equal(t, []Row{{Number(0), Symbol("since"), Symbol("2019")}},
		relationRows(t, p, RelEdgeProperty))

	// No target was encoded, so its relations stay empty.
	assert.Empty(t, relationRows(t, p, TargetPrefix+RelVertex))
}

func TestEncodeTarget(t *testing.T) {
	g := socialGraph(t)
	p := NewMemoryProgram()
	require.NoError(t, EncodeTarget(p, g))

	assert.Empty(t, relationRows(t, p, RelVertex))
	assert.Equal(t, []Row{{Number(0)}, {Number(1)}}, relationRows(t, p, TargetPrefix+RelVertex))
	assert.Equal(t, []Row{{Number(0), Symbol("alice")}, {Number(1), Symbol("bob")}},
		relationRows(t, p, TargetPrefix+RelVertexName))
}

// markSuspicious derives one batch per vertex carrying the "age" property,
// attaching a freshly created label.
func markSuspicious(get func(string) []Row, emit func(string, Row)) {
	name := "MarkSuspicious"
	for _, row := range get(RelVertexProperty) {
		if row[1].Sym != "age" {
			continue
		}
		batch := row[0] // one batch per vertex keeps ids distinct
		emit(RelTransformation, Row{Symbol(name), batch})
		emit(name, Row{batch})
		emit(OperationRelation(edit.KindCreateVertexLabel), Row{Number(7), Symbol("Suspicious"), Symbol(name), batch})
		emit(OperationRelation(edit.KindAddVertexLabel), Row{row[0], Number(7), Symbol(name), batch})
	}
}

func TestDecodeBatches(t *testing.T) {
	g := socialGraph(t)
	p := NewMemoryProgram(markSuspicious)
	require.NoError(t, EncodeGraph(p, g))
	require.NoError(t, p.Run())

	batches, err := DecodeBatches(p, "MarkSuspicious")
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, uint32(0), batches[0].ID)

	// Assembly follows the kind scan order, so the label creation precedes
	// its attachment no matter the emission order.
	require.Len(t, batches[0].Ops, 2)
	assert.Equal(t, edit.CreateVertexLabel{Label: 7, Name: "Suspicious"}, batches[0].Ops[0])
	assert.Equal(t, edit.AddVertexLabel{Vertex: 0, Label: 7}, batches[0].Ops[1])
}

func TestDecodeBatchOrderFollowsRelation(t *testing.T) {
	p := NewMemoryProgram(func(get func(string) []Row, emit func(string, Row)) {
		emit("Renumber", Row{Number(2)})
		emit("Renumber", Row{Number(0)})
		emit("Renumber", Row{Number(2)}) // duplicate id collapses
		emit(OperationRelation(edit.KindRenameVertex), Row{Number(1), Symbol("x"), Symbol("Renumber"), Number(0)})
	})
	require.NoError(t, p.Run())

	batches, err := DecodeBatches(p, "Renumber")
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, uint32(2), batches[0].ID)
	assert.Equal(t, uint32(0), batches[1].ID)
	assert.Empty(t, batches[0].Ops)
	assert.Equal(t, []edit.Operation{edit.RenameVertex{Vertex: 1, Name: "x"}}, batches[1].Ops)
}

func TestDecodeFiltersOtherTransformations(t *testing.T) {
	p := NewMemoryProgram(func(get func(string) []Row, emit func(string, Row)) {
		emit("Grow", Row{Number(0)})
		emit("Shrink", Row{Number(0)})
		emit(OperationRelation(edit.KindAddVertex), Row{Number(5), Symbol("Grow"), Number(0)})
		emit(OperationRelation(edit.KindRemoveVertex), Row{Number(1), Symbol("Shrink"), Number(0)})
	})
	require.NoError(t, p.Run())

	batches, err := DecodeBatches(p, "Grow")
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, []edit.Operation{edit.AddVertex{Vertex: 5}}, batches[0].Ops)
}

func TestDecodeUnknownTransformation(t *testing.T) {
	p := NewMemoryProgram()
	require.NoError(t, p.Run())

	_, err := DecodeBatches(p, "NoSuchRule")
	assert.ErrorIs(t, err, ErrUnknownRelation)
}

func TestDecodeRejectsMalformedRows(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
		want string
	}{
		{
			name: "transformation arity",
			rule: func(get func(string) []Row, emit func(string, Row)) {
				emit("Bad", Row{Number(0), Number(1)})
			},
			want: "expected 1 column",
		},
		{
			name: "transformation id is a symbol",
			rule: func(get func(string) []Row, emit func(string, Row)) {
				emit("Bad", Row{Symbol("zero")})
			},
			want: "expected number term",
		},
		{
			name: "operation arity",
			rule: func(get func(string) []Row, emit func(string, Row)) {
				emit("Bad", Row{Number(0)})
				emit(OperationRelation(edit.KindAddVertex), Row{Number(1), Number(2), Symbol("Bad"), Number(0)})
			},
			want: "expected 3 columns",
		},
		{
			name: "payload kind mismatch",
			rule: func(get func(string) []Row, emit func(string, Row)) {
				emit("Bad", Row{Number(0)})
				emit(OperationRelation(edit.KindRenameVertex), Row{Number(1), Number(2), Symbol("Bad"), Number(0)})
			},
			want: "expected symbol term",
		},
		{
			name: "symbol is not UTF-8",
			rule: func(get func(string) []Row, emit func(string, Row)) {
				emit("Bad", Row{Number(0)})
				emit(OperationRelation(edit.KindRenameVertex), Row{Number(1), Symbol("\xff\xfe"), Symbol("Bad"), Number(0)})
			},
			want: "not valid UTF-8",
		},
		{
			name: "batch id never announced",
			rule: func(get func(string) []Row, emit func(string, Row)) {
				emit("Bad", Row{Number(0)})
				emit(OperationRelation(edit.KindAddVertex), Row{Number(1), Symbol("Bad"), Number(9)})
			},
			want: "missing from",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := NewMemoryProgram(tc.rule)
			require.NoError(t, p.Run())
			_, err := DecodeBatches(p, "Bad")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestListTransformations(t *testing.T) {
	p := NewMemoryProgram(func(get func(string) []Row, emit func(string, Row)) {
		emit(RelTransformation, Row{Symbol("Grow"), Number(0)})
		emit(RelTransformation, Row{Symbol("Grow"), Number(1)})
		emit(RelTransformation, Row{Symbol("Shrink"), Number(0)})
	})
	require.NoError(t, p.Run())

	names, err := ListTransformations(p)
	require.NoError(t, err)
	assert.Equal(t, map[string][]uint32{
		"Grow":   {0, 1},
		"Shrink": {0},
	}, names)
}

func TestListTransformationsWithoutRelation(t *testing.T) {
	p := NewMemoryProgram()
	require.NoError(t, p.Run())

	names, err := ListTransformations(p)
	require.NoError(t, err)
	assert.Empty(t, names)
}
