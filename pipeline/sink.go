package pipeline

import (
	"fmt"
	"io"

	"github.com/gmorph/gmorph/gmorph"
	"github.com/gmorph/gmorph/storage"
)

// Sink consumes accepted records.  The pipeline calls Consume from a single
// collector goroutine and Close exactly once after the last record.
type Sink interface {
	Consume(*Record) error
	Close() error
}

// WriterSink renders records to a writer and logs a run summary on close.
type WriterSink struct {
	w       io.Writer
	tlog    gmorph.TimeLog
	count   int
	best    *Record
	verbose bool
}

// NewWriterSink returns a sink rendering to w.  Verbose adds the operation
// log under each record.
func NewWriterSink(w io.Writer, verbose bool) *WriterSink {
	return &WriterSink{w: w, tlog: gmorph.NewTimeLog(), verbose: verbose}
}

// Consume implements Sink.
func (s *WriterSink) Consume(rec *Record) error {
	if _, err := io.WriteString(s.w, rec.String()); err != nil {
		return err
	}
	if s.verbose {
		for _, line := range rec.Log {
			if _, err := fmt.Fprintf(s.w, "%s\n", line); err != nil {
				return err
			}
		}
	}
	if rec.Ranked {
		if _, err := fmt.Fprintf(s.w, "similarity: %.6f\n", rec.Score); err != nil {
			return err
		}
	}
	s.count++
	// Ranked records drain ascending, so the last one seen is the best.
	if rec.Ranked {
		s.best = rec
	}
	return nil
}

// Close implements Sink.
func (s *WriterSink) Close() error {
	if s.best != nil {
		gmorph.Infof("Best result: similarity %.6f, key %016x\n", s.best.Score, s.best.Key)
	}
	s.tlog.Infof("Done : %d transformation(s)", s.count)
	return nil
}

// StoreSink persists records to a local result store under one run id.
type StoreSink struct {
	runID string
	store *storage.ResultStore
	count int
}

// NewStoreSink wraps an open store.  The store stays open after Close so the
// caller can read the run back.
func NewStoreSink(store *storage.ResultStore, runID string) *StoreSink {
	return &StoreSink{runID: runID, store: store}
}

// Consume implements Sink.
func (s *StoreSink) Consume(rec *Record) error {
	s.count++
	return s.store.Save(storage.Result{
		RunID:          s.runID,
		Transformation: rec.Transformation,
		Batch:          rec.Batch,
		Key:            rec.Key,
		Score:          rec.Score,
		Ranked:         rec.Ranked,
		Before:         rec.Init.String(),
		After:          rec.Result.String(),
		Log:            rec.Log,
	})
}

// Close implements Sink.
func (s *StoreSink) Close() error {
	gmorph.Infof("Stored %d result(s) under run %s\n", s.count, s.runID)
	return nil
}

// KafkaSink publishes records to a kafka topic.
type KafkaSink struct {
	runID     string
	publisher *storage.KafkaPublisher
}

// NewKafkaSink wraps a connected publisher.
func NewKafkaSink(publisher *storage.KafkaPublisher, runID string) *KafkaSink {
	return &KafkaSink{runID: runID, publisher: publisher}
}

// Consume implements Sink.
func (s *KafkaSink) Consume(rec *Record) error {
	return s.publisher.Publish(storage.Result{
		RunID:          s.runID,
		Transformation: rec.Transformation,
		Batch:          rec.Batch,
		Key:            rec.Key,
		Score:          rec.Score,
		Ranked:         rec.Ranked,
		Before:         rec.Init.String(),
		After:          rec.Result.String(),
		Log:            rec.Log,
	})
}

// Close implements Sink.  The publisher itself is closed by its owner.
func (s *KafkaSink) Close() error {
	return nil
}

// MultiSink fans records out to several sinks in order.
type MultiSink []Sink

// Consume implements Sink.
func (m MultiSink) Consume(rec *Record) error {
	for _, s := range m {
		if err := s.Consume(rec); err != nil {
			return err
		}
	}
	return nil
}

// Close implements Sink, closing every member and returning the first error.
func (m MultiSink) Close() error {
	var firstErr error
	for _, s := range m {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
