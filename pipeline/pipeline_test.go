package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmorph/gmorph/graph"
	"github.com/gmorph/gmorph/oracle"
	"github.com/gmorph/gmorph/similarity"
)

type captureSink struct {
	records []*Record
	closed  int
	delay   time.Duration
	failOn  int
}

func (s *captureSink) Consume(rec *Record) error {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.failOn > 0 && len(s.records)+1 == s.failOn {
		return fmt.Errorf("sink rejected record %d", s.failOn)
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *captureSink) Close() error {
	s.closed++
	return nil
}

func singleVertexGraph(name string) *graph.PropertyGraph {
	g := graph.NewPropertyGraph()
	g.AddVertex(graph.NewProperties(name))
	return g
}

func memoryFactory(rules ...oracle.Rule) oracle.Factory {
	return func() (oracle.Program, error) {
		return oracle.NewMemoryProgram(rules...), nil
	}
}

// reviewRule adds a reviewed property to every named vertex, one batch per
// vertex.
func reviewRule(name string) oracle.Rule {
	return func(get func(string) []oracle.Row, emit func(string, oracle.Row)) {
		for i, row := range get(oracle.RelVertexName) {
			batch := oracle.Number(uint32(i))
			emit(name, oracle.Row{batch})
			emit(oracle.RelTransformation, oracle.Row{oracle.Symbol(name), batch})
			emit("AddVertexProperty_",
				oracle.Row{row[0], oracle.Symbol("reviewed"), oracle.Symbol("yes"), oracle.Symbol(name), batch})
		}
	}
}

// renameRule renames vertex 0 to each candidate name, one batch per
// candidate.
func renameRule(name string, candidates ...string) oracle.Rule {
	return func(get func(string) []oracle.Row, emit func(string, oracle.Row)) {
		if len(get(oracle.RelVertex)) == 0 {
			return
		}
		for i, candidate := range candidates {
			batch := oracle.Number(uint32(i))
			emit(name, oracle.Row{batch})
			emit("RenameVertex_",
				oracle.Row{oracle.Number(0), oracle.Symbol(candidate), oracle.Symbol(name), batch})
		}
	}
}

func TestRunUnranked(t *testing.T) {
	in := graph.NewPropertyGraph()
	in.AddVertex(graph.NewProperties("alice"))
	in.AddVertex(graph.NewProperties("bob"))

	sink := &captureSink{}
	err := Run(context.Background(), []*graph.PropertyGraph{in}, Options{
		Workers:         1,
		Transformations: []string{"Review"},
		Factory:         memoryFactory(reviewRule("Review")),
		Sink:            sink,
	})
	require.NoError(t, err)
	require.Len(t, sink.records, 2)
	assert.Equal(t, 1, sink.closed)

	for _, rec := range sink.records {
		assert.False(t, rec.Ranked)
		assert.Equal(t, "Review", rec.Transformation)
		assert.Same(t, in, rec.Init)
		assert.Len(t, rec.Log, 1)

		reviewed := 0
		for _, data := range rec.Result.Vertices() {
			if data.Attrs["reviewed"] == "yes" {
				reviewed++
			}
		}
		assert.Equal(t, 1, reviewed, "each batch touches exactly one vertex")
	}
}

func TestRunRankedAgainstTarget(t *testing.T) {
	in := singleVertexGraph("start")
	target := singleVertexGraph("goal")

	sink := &captureSink{}
	err := Run(context.Background(), []*graph.PropertyGraph{in}, Options{
		Workers:         2,
		Queue:           4,
		Transformations: []string{"Rename"},
		Keep:            2,
		Factory:         memoryFactory(renameRule("Rename", "goal", "alpha", "beta")),
		Target:          target,
		Sink:            sink,
	})
	require.NoError(t, err)
	require.Len(t, sink.records, 2, "keep bounds ranked output")

	// Ranked records drain ascending, best last.
	best := sink.records[len(sink.records)-1]
	assert.True(t, best.Ranked)
	assert.Equal(t, 1.0, best.Score)
	data, found := best.Result.Vertex(0)
	require.True(t, found)
	assert.Equal(t, "goal", data.Name)
	assert.LessOrEqual(t, sink.records[0].Score, best.Score)
}

func TestRunDeduplicatesIdenticalResults(t *testing.T) {
	in := singleVertexGraph("start")
	target := singleVertexGraph("goal")

	sink := &captureSink{}
	err := Run(context.Background(), []*graph.PropertyGraph{in}, Options{
		Workers:         1,
		Transformations: []string{"Rename"},
		Factory:         memoryFactory(renameRule("Rename", "same", "same", "same")),
		Target:          target,
		Sink:            sink,
	})
	require.NoError(t, err)
	assert.Len(t, sink.records, 1, "identical result content collapses")
}

func TestRunDiscardsInvalidResults(t *testing.T) {
	in := graph.NewPropertyGraph()
	in.AddVertex(graph.NewProperties("a"))
	in.AddVertex(graph.NewProperties("b"))

	sink := &captureSink{}
	err := Run(context.Background(), []*graph.PropertyGraph{in}, Options{
		Workers:         1,
		Transformations: []string{"Clash"},
		Factory: memoryFactory(func(get func(string) []oracle.Row, emit func(string, oracle.Row)) {
			emit("Clash", oracle.Row{oracle.Number(0)})
			emit("RenameVertex_",
				oracle.Row{oracle.Number(0), oracle.Symbol("b"), oracle.Symbol("Clash"), oracle.Number(0)})
		}),
		Sink: sink,
	})
	require.NoError(t, err)
	assert.Empty(t, sink.records, "duplicate names never reach the sink")
	assert.Equal(t, 1, sink.closed)
}

func TestRunAbortsOnBatchPanic(t *testing.T) {
	in := singleVertexGraph("start")

	sink := &captureSink{}
	err := Run(context.Background(), []*graph.PropertyGraph{in}, Options{
		Workers:         1,
		Transformations: []string{"Boom"},
		Factory: memoryFactory(func(get func(string) []oracle.Row, emit func(string, oracle.Row)) {
			emit("Boom", oracle.Row{oracle.Number(0)})
			emit("RenameVertex_",
				oracle.Row{oracle.Number(99), oracle.Symbol("x"), oracle.Symbol("Boom"), oracle.Number(0)})
		}),
		Sink: sink,
	})
	require.Error(t, err)
	var bp BatchPanic
	require.ErrorAs(t, err, &bp)
	assert.Equal(t, "Boom", bp.Transformation)
	assert.Equal(t, uint32(0), bp.Batch)
}

func TestRunSkipsUnknownTransformation(t *testing.T) {
	in := singleVertexGraph("start")

	sink := &captureSink{}
	err := Run(context.Background(), []*graph.PropertyGraph{in}, Options{
		Workers:         1,
		Transformations: []string{"Missing", "Review"},
		Factory:         memoryFactory(reviewRule("Review")),
		Sink:            sink,
	})
	require.NoError(t, err)
	assert.Len(t, sink.records, 1, "the known transformation still runs")
}

func TestRunPurgesBetweenGraphs(t *testing.T) {
	first := singleVertexGraph("one")
	second := singleVertexGraph("two")

	sink := &captureSink{}
	err := Run(context.Background(), []*graph.PropertyGraph{first, second}, Options{
		Workers:         1, // one program instance sees both graphs
		Transformations: []string{"Review"},
		Factory:         memoryFactory(reviewRule("Review")),
		Sink:            sink,
	})
	require.NoError(t, err)
	require.Len(t, sink.records, 2, "stale relations would derive extra batches")

	inits := map[*graph.PropertyGraph]int{}
	for _, rec := range sink.records {
		inits[rec.Init]++
	}
	assert.Equal(t, map[*graph.PropertyGraph]int{first: 1, second: 1}, inits)
}

func TestRunBoundedQueueBackpressure(t *testing.T) {
	in := graph.NewPropertyGraph()
	for i := 0; i < 8; i++ {
		in.AddVertex(graph.NewProperties(fmt.Sprintf("v%d", i)))
	}

	sink := &captureSink{delay: time.Millisecond}
	err := Run(context.Background(), []*graph.PropertyGraph{in}, Options{
		Workers:         4,
		Queue:           1,
		Transformations: []string{"Review"},
		Factory:         memoryFactory(reviewRule("Review")),
		Sink:            sink,
	})
	require.NoError(t, err)
	assert.Len(t, sink.records, 8)
}

func TestRunSinkFailureDoesNotDeadlock(t *testing.T) {
	in := graph.NewPropertyGraph()
	for i := 0; i < 16; i++ {
		in.AddVertex(graph.NewProperties(fmt.Sprintf("v%d", i)))
	}

	sink := &captureSink{failOn: 1}
	err := Run(context.Background(), []*graph.PropertyGraph{in}, Options{
		Workers:         2,
		Queue:           1,
		Transformations: []string{"Review"},
		Factory:         memoryFactory(reviewRule("Review")),
		Sink:            sink,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink rejected")
}

func TestRunUsesSignatureCache(t *testing.T) {
	in := singleVertexGraph("start")
	target := singleVertexGraph("goal")
	cache := similarity.NewSignatureCache(1 << 20)

	sink := &captureSink{}
	err := Run(context.Background(), []*graph.PropertyGraph{in}, Options{
		Workers:         1,
		Transformations: []string{"Rename"},
		Factory:         memoryFactory(renameRule("Rename", "goal", "alpha")),
		Target:          target,
		Sink:            sink,
		Cache:           cache,
	})
	require.NoError(t, err)
	require.Len(t, sink.records, 2)
	// The goal rename shares content with the target, so its signature is a
	// cache hit; only the target and the alpha rename insert.
	assert.EqualValues(t, 2, cache.EntryCount())
}

func TestRecordQueueUnbounded(t *testing.T) {
	send, recv := recordQueue(0)
	const n = 100
	for i := 0; i < n; i++ {
		send <- &Record{Batch: uint32(i)}
	}
	close(send)

	var got []uint32
	for rec := range recv {
		got = append(got, rec.Batch)
	}
	require.Len(t, got, n)
	for i, batch := range got {
		assert.Equal(t, uint32(i), batch, "pump preserves order")
	}
}

func TestRunValidatesOptions(t *testing.T) {
	in := singleVertexGraph("x")
	sink := &captureSink{}

	err := Run(context.Background(), []*graph.PropertyGraph{in}, Options{
		Transformations: []string{"T"},
		Sink:            sink,
	})
	assert.ErrorContains(t, err, "factory")

	err = Run(context.Background(), []*graph.PropertyGraph{in}, Options{
		Transformations: []string{"T"},
		Factory:         memoryFactory(),
	})
	assert.ErrorContains(t, err, "sink")

	err = Run(context.Background(), []*graph.PropertyGraph{in}, Options{
		Factory: memoryFactory(),
		Sink:    sink,
	})
	assert.ErrorContains(t, err, "no transformations")
}
