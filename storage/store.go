/*
	Package storage persists accepted rewriting results and streams them to
	downstream consumers.  The local store is a Badger key-value database;
	Kafka publishing is optional and configured separately.
*/
package storage

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/dustin/go-humanize"
	"github.com/twinj/uuid"

	"github.com/gmorph/gmorph/gmorph"
)

// Result is one accepted rewriting outcome in storable form.
type Result struct {
	RunID          string
	Transformation string
	Batch          uint32
	Key            uint64
	Score          float64
	Ranked         bool
	Before         string
	After          string
	Log            []string
}

// StoreConfig configures the local result store.
type StoreConfig struct {
	Path           string `toml:"path"`
	ValueThreshold int    `toml:"value_threshold"`
	Compression    string `toml:"compression"`
}

// ResultStore keeps results in a Badger database, one key per result ordered
// by arrival within a run.
type ResultStore struct {
	directory  string
	db         *badger.DB
	compress   gmorph.Compression
	seq        uint64
	stopSyncCh chan struct{}
}

// NewRunID mints the identifier grouping one pipeline invocation's results.
func NewRunID() string {
	return uuid.NewV4().String()
}

// OpenResultStore opens (creating if needed) the store at config.Path.
func OpenResultStore(config StoreConfig) (*ResultStore, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("result store needs a path")
	}
	compress, err := parseCompression(config.Compression)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(config.Path); os.IsNotExist(err) {
		gmorph.Infof("Creating result store directory %s\n", config.Path)
		if err := os.MkdirAll(config.Path, 0744); err != nil {
			return nil, fmt.Errorf("can't make directory at %s: %v", config.Path, err)
		}
	}

	opts := badger.DefaultOptions(config.Path)
	opts = opts.WithNumVersionsToKeep(1)
	opts = opts.WithSyncWrites(false)
	opts = opts.WithLogger(nil)
	if config.ValueThreshold > 0 {
		gmorph.Infof("Result store value threshold: %s\n", humanize.Bytes(uint64(config.ValueThreshold)))
		opts = opts.WithValueThreshold(int64(config.ValueThreshold))
	}

	gmorph.Infof("Opening result store @ %s\n", config.Path)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	s := &ResultStore{
		directory:  config.Path,
		db:         db,
		compress:   compress,
		stopSyncCh: make(chan struct{}),
	}
	go s.syncPeriodically()
	return s, nil
}

// Periodically sync to prevent too many writes from being buffered if the
// process crashes.
func (s *ResultStore) syncPeriodically() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopSyncCh:
			gmorph.Infof("Stopping sync goroutine for result store @ %s\n", s.directory)
			return
		case <-ticker.C:
			s.db.Sync()
		}
	}
}

// Save appends a result to its run.
func (s *ResultStore) Save(res Result) error {
	value, err := gmorph.Serialize(res, s.compress, gmorph.CRC32)
	if err != nil {
		return err
	}
	key := runKey(res.RunID, atomic.AddUint64(&s.seq, 1))
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// ForEach visits a run's results in arrival order.
func (s *ResultStore) ForEach(runID string, fn func(Result) error) error {
	prefix := runPrefix(runID)
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var res Result
				if err := gmorph.Deserialize(value, &res); err != nil {
					return err
				}
				return fn(res)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Results loads a run's results in arrival order.
func (s *ResultStore) Results(runID string) ([]Result, error) {
	var out []Result
	err := s.ForEach(runID, func(res Result) error {
		out = append(out, res)
		return nil
	})
	return out, err
}

// Close syncs and closes the store.
func (s *ResultStore) Close() {
	if s == nil || s.db == nil {
		return
	}
	close(s.stopSyncCh)
	if err := s.db.Close(); err != nil {
		gmorph.Errorf("Error closing result store @ %s: %v\n", s.directory, err)
	} else {
		gmorph.Infof("Closed result store @ %s\n", s.directory)
	}
	s.db = nil
}

func runPrefix(runID string) []byte {
	return append([]byte(runID), 0x00)
}

func runKey(runID string, seq uint64) []byte {
	key := runPrefix(runID)
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], seq)
	return append(key, b[:]...)
}

func parseCompression(name string) (gmorph.Compression, error) {
	switch name {
	case "", "snappy":
		return gmorph.Snappy, nil
	case "gzip":
		return gmorph.Gzip, nil
	case "none":
		return gmorph.Uncompressed, nil
	default:
		return gmorph.Uncompressed, fmt.Errorf("unknown compression %q", name)
	}
}
