package pipeline

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/gmorph/gmorph/gmorph"
	"github.com/gmorph/gmorph/storage"
)

// Config is the TOML-configurable surface of a rewriting run.
type Config struct {
	Pipeline DriverConfig        `toml:"pipeline"`
	Oracle   OracleConfig        `toml:"oracle"`
	Logging  gmorph.LogConfig    `toml:"logging"`
	Store    storage.StoreConfig `toml:"store"`
	Kafka    storage.KafkaConfig `toml:"kafka"`
	Cache    CacheConfig         `toml:"cache"`
}

// DriverConfig tunes the worker pool and ranking.
type DriverConfig struct {
	// Workers sets the pool size; zero or less means one per CPU.
	Workers int `toml:"workers"`

	// Queue bounds the result channel; zero means unbounded.
	Queue int `toml:"queue"`

	// Transformations names the oracle relations to decode.
	Transformations []string `toml:"transformations"`

	// Keep is how many ranked results survive; zero means the default.
	Keep int `toml:"keep"`
}

// OracleConfig selects the evaluator backend.  An address points at a remote
// oracle server; empty means the embedded evaluator supplied in code.
type OracleConfig struct {
	Address string `toml:"address"`
}

// CacheConfig sizes the signature cache.  Zero disables caching.
type CacheConfig struct {
	SignatureBytes int `toml:"signature_bytes"`
}

// LoadConfig reads a TOML configuration file.
func LoadConfig(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("no configuration file given")
	}
	var c Config
	if _, err := toml.DecodeFile(filename, &c); err != nil {
		return nil, fmt.Errorf("could not decode TOML config: %v", err)
	}
	return &c, nil
}
