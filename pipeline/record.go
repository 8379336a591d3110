/*
	Package pipeline drives rewriting runs: input graphs fan out to a worker
	pool, each worker consults an oracle program for edit batches, materializes
	and validates them, and accepted results flow to a sink either as ranked
	top candidates against a target or unranked as they arrive.
*/
package pipeline

import (
	"fmt"
	"strings"

	"github.com/gmorph/gmorph/edit"
	"github.com/gmorph/gmorph/graph"
)

// Record is one accepted rewriting outcome.
type Record struct {
	// Transformation and Batch identify the oracle derivation.
	Transformation string
	Batch          uint32

	// Init is the untouched input graph; Result the materialized rewrite.
	Init   *graph.PropertyGraph
	Result *graph.PropertyGraph

	// Log holds one line per applied operation, names resolved.
	Log []string

	// Key is the result's content hash, the identity used for
	// deduplication.
	Key uint64

	// Score is the similarity to the target; meaningful only when Ranked.
	Score  float64
	Ranked bool
}

// String frames the before and after graphs.
func (r *Record) String() string {
	var b strings.Builder
	b.WriteString("===\n")
	b.WriteString(r.Init.String())
	b.WriteString("---\n")
	b.WriteString(r.Result.String())
	b.WriteString("===\n")
	return b.String()
}

func newRecord(transformation string, batchID uint32, t *edit.GraphTransformation) *Record {
	return &Record{
		Transformation: transformation,
		Batch:          batchID,
		Init:           t.Init,
		Result:         t.Result,
		Log:            t.Log,
		Key:            t.Result.ContentHash(),
	}
}

// BatchPanic is the recovered failure of a batch whose operations broke the
// materialization contract, such as referencing an element that does not
// exist.
type BatchPanic struct {
	Transformation string
	Batch          uint32
	Value          interface{}
}

func (e BatchPanic) Error() string {
	return fmt.Sprintf("batch %d of %s panicked: %v", e.Batch, e.Transformation, e.Value)
}
