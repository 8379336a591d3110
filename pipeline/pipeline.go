package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/gmorph/gmorph/edit"
	"github.com/gmorph/gmorph/gmorph"
	"github.com/gmorph/gmorph/graph"
	"github.com/gmorph/gmorph/oracle"
	"github.com/gmorph/gmorph/similarity"
)

// Options configures one Run.
type Options struct {
	// Workers sets the pool size; zero or less means one per CPU.
	Workers int

	// Queue bounds the in-flight result stream; zero means unbounded.
	Queue int

	// Transformations names the oracle relations decoded per input graph.
	Transformations []string

	// Keep bounds ranked output, similarity.DefaultKeep when zero.  Ignored
	// without a target.
	Keep int

	// Factory builds one oracle program per worker.
	Factory oracle.Factory

	// Target, when set, turns on deduplication and similarity ranking
	// against it.  Without a target every valid result reaches the sink
	// unranked, in arrival order.
	Target *graph.PropertyGraph

	// Sink receives accepted records.
	Sink Sink

	// Cache, optional, memoizes signatures across identical result content.
	Cache *similarity.SignatureCache
}

// Run rewrites every input graph and routes accepted results to the sink.
// It returns after the sink is closed.  A batch that violates the
// materialization contract aborts the run with a BatchPanic.
func Run(ctx context.Context, graphs []*graph.PropertyGraph, opts Options) error {
	if opts.Factory == nil {
		return fmt.Errorf("pipeline needs an oracle program factory")
	}
	if opts.Sink == nil {
		return fmt.Errorf("pipeline needs a sink")
	}
	if len(opts.Transformations) == 0 {
		return fmt.Errorf("no transformations requested")
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var targetSig *similarity.Signature
	if opts.Target != nil {
		targetSig = cachedSignature(opts.Cache, opts.Target)
	}

	tlog := gmorph.NewTimeLog()
	gmorph.Infof("Starting rewriting run: %d graph(s), %d worker(s), %d transformation(s)\n",
		len(graphs), workers, len(opts.Transformations))

	jobs := make(chan *graph.PropertyGraph)
	send, recv := recordQueue(opts.Queue)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		defer close(jobs)
		for _, in := range graphs {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case jobs <- in:
			}
		}
		return nil
	})
	for i := 0; i < workers; i++ {
		eg.Go(func() error {
			w, err := newWorker(&opts, targetSig, send)
			if err != nil {
				return err
			}
			defer w.close()
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case in, ok := <-jobs:
					if !ok {
						return nil
					}
					if err := w.process(in); err != nil {
						return err
					}
				}
			}
		})
	}

	collectDone := make(chan error, 1)
	go func() {
		collectDone <- collect(recv, &opts)
	}()

	workErr := eg.Wait()
	close(send)
	collectErr := <-collectDone

	if workErr != nil {
		return workErr
	}
	if collectErr != nil {
		return collectErr
	}
	tlog.Infof("Finished rewriting run over %d graph(s)", len(graphs))
	return nil
}

// collect owns the sink and, with a target, the ranker.  It must drain the
// stream completely even after a sink failure so workers never block on a
// dead receiver.
func collect(recv <-chan *Record, opts *Options) error {
	var firstErr error
	consume := func(rec *Record) {
		if firstErr != nil {
			return
		}
		if err := opts.Sink.Consume(rec); err != nil {
			firstErr = err
		}
	}

	if opts.Target == nil {
		for rec := range recv {
			consume(rec)
		}
	} else {
		ranker := similarity.NewRanker[*Record](opts.Keep)
		duplicates := 0
		for rec := range recv {
			if !ranker.Add(rec.Key, rec.Score, rec) {
				duplicates++
			}
		}
		if duplicates > 0 {
			gmorph.Debugf("Dropped %d duplicate result(s)\n", duplicates)
		}
		for _, rk := range ranker.Drain() {
			consume(rk.Item)
		}
	}

	if err := opts.Sink.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// recordQueue returns the two ends of the result stream.  A positive size
// gives a bounded channel whose backpressure throttles workers; zero buffers
// without bound through a pump goroutine.
func recordQueue(size int) (chan<- *Record, <-chan *Record) {
	if size > 0 {
		ch := make(chan *Record, size)
		return ch, ch
	}
	in := make(chan *Record)
	out := make(chan *Record)
	go func() {
		defer close(out)
		var pending []*Record
		for {
			if len(pending) == 0 {
				rec, ok := <-in
				if !ok {
					return
				}
				pending = append(pending, rec)
			}
			select {
			case rec, ok := <-in:
				if !ok {
					for _, r := range pending {
						out <- r
					}
					return
				}
				pending = append(pending, rec)
			case out <- pending[0]:
				pending = pending[1:]
			}
		}
	}()
	return in, out
}

type worker struct {
	opts      *Options
	program   oracle.Program
	targetSig *similarity.Signature
	send      chan<- *Record
}

func newWorker(opts *Options, targetSig *similarity.Signature, send chan<- *Record) (*worker, error) {
	p, err := opts.Factory()
	if err != nil {
		return nil, fmt.Errorf("oracle program factory: %v", err)
	}
	return &worker{opts: opts, program: p, targetSig: targetSig, send: send}, nil
}

func (w *worker) close() {
	if err := w.program.Close(); err != nil {
		gmorph.Errorf("Error closing oracle program: %v\n", err)
	}
}

// process runs one input graph through the oracle and emits its accepted
// records.  The program's relations are purged afterwards so the instance can
// take the next graph.
func (w *worker) process(in *graph.PropertyGraph) error {
	if err := oracle.EncodeGraph(w.program, in); err != nil {
		return err
	}
	if w.opts.Target != nil {
		if err := oracle.EncodeTarget(w.program, w.opts.Target); err != nil {
			return err
		}
	}
	if err := w.program.Run(); err != nil {
		return err
	}

	for _, name := range w.opts.Transformations {
		batches, err := oracle.DecodeBatches(w.program, name)
		if errors.Is(err, oracle.ErrUnknownRelation) {
			gmorph.Warningf("Transformation %s is not derived by the oracle program\n", name)
			continue
		}
		if err != nil {
			return err
		}
		for _, batch := range batches {
			rec, err := w.materialize(in, name, batch)
			if err != nil {
				return err
			}
			if rec == nil {
				continue
			}
			w.send <- rec
		}
	}
	return w.program.Purge()
}

// materialize applies one batch, returning nil for results discarded by the
// unique-name check.  Contract violations inside the batch surface as a
// BatchPanic error.
func (w *worker) materialize(in *graph.PropertyGraph, name string, batch oracle.Batch) (rec *Record, err error) {
	defer func() {
		if v := recover(); v != nil {
			rec = nil
			err = BatchPanic{Transformation: name, Batch: batch.ID, Value: v}
		}
	}()

	t := edit.NewGraphTransformation(in)
	t.ApplyAll(batch.Ops)
	if !t.Valid() {
		gmorph.Debugf("Discarding batch %d of %s: result names are not unique\n", batch.ID, name)
		return nil, nil
	}

	rec = newRecord(name, batch.ID, t)
	if w.targetSig != nil {
		rec.Ranked = true
		rec.Score = w.targetSig.Jaccard(w.resultSignature(rec))
	}
	return rec, nil
}

func (w *worker) resultSignature(rec *Record) *similarity.Signature {
	if w.opts.Cache != nil {
		if sig, found := w.opts.Cache.Get(rec.Key); found {
			return sig
		}
	}
	sig := similarity.GraphSignature(rec.Result)
	if w.opts.Cache != nil {
		w.opts.Cache.Set(rec.Key, sig)
	}
	return sig
}

func cachedSignature(cache *similarity.SignatureCache, g *graph.PropertyGraph) *similarity.Signature {
	key := g.ContentHash()
	if cache != nil {
		if sig, found := cache.Get(key); found {
			return sig
		}
	}
	sig := similarity.GraphSignature(g)
	if cache != nil {
		cache.Set(key, sig)
	}
	return sig
}
