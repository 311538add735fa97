// Package config implements the coordinator and adapter processes'
// file-based configuration (spec.md §6's "(ADD) Config file"),
// grounded on the teacher's node.Config: a flat struct with defaults,
// validation, and data-directory helpers, loaded from YAML with CLI
// flag overrides layered on top in cmd/nexus and cmd/nexus-adapter.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// NexusConfig holds all configuration for the coordinator process
// (cmd/nexus): data directory, HTTP API listen address, DA relayer
// endpoint, and prover/logging settings.
type NexusConfig struct {
	// DataDir is the root directory the coordinator's store and logs
	// live under.
	DataDir string `yaml:"data_dir"`

	// APIAddr is the listen address of the coordinator's HTTP API
	// (POST /tx, GET /header, GET /account, GET /range).
	APIAddr string `yaml:"api_addr"`

	// DAEndpoint is the RPC endpoint of the Data-Availability chain the
	// relayer subscribes to and submits proofs against. Left empty in
	// --dev mode, where no concrete relayer.Client implementation is
	// wired (spec.md §1: a DA RPC client is out of scope).
	DAEndpoint string `yaml:"da_endpoint"`

	// ElfPath is the path to the recursion guest program binary the
	// prover binds to; a fixed placeholder is used when it is empty. It
	// is read in every mode (prover.MockProof derives a deterministic
	// mock image id from whatever bytes are given it).
	ElfPath string `yaml:"elf_path"`

	// LogLevel controls log verbosity (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// LogPath, if non-empty, rotates JSON logs to this file via
	// log.NewWithRotation instead of writing to stderr.
	LogPath string `yaml:"log_path"`

	// LogFormat selects the console encoding when LogPath is empty:
	// "json" (default), "text", or "color". Ignored once LogPath is
	// set, since rotated file output is always JSON.
	LogFormat string `yaml:"log_format"`

	// Dev selects store.MemDB in place of cockroachdb/pebble and the
	// synthetic dev relayer in place of a DA RPC client, matching the
	// --dev CLI flag. The prover is prover.MockProof in every mode.
	Dev bool `yaml:"dev"`
}

// AdapterConfig holds all configuration for one per-rollup adapter
// process (cmd/nexus-adapter <kind>).
type AdapterConfig struct {
	// DataDir is the root directory the adapter's own proof-chain store
	// lives under, independent of any coordinator data directory
	// (spec.md §4.7: the adapter's proof chain is a store of its own).
	DataDir string `yaml:"data_dir"`

	// AppId is the DA chain's application id this adapter proves
	// batches for.
	AppId uint32 `yaml:"app_id"`

	// CoordinatorAddr is the base URL of the coordinator's HTTP API
	// this adapter talks to (api.HTTPClient).
	CoordinatorAddr string `yaml:"coordinator_addr"`

	// RollupUpstream is the URL of the rollup node this adapter reads
	// batches from, set here or with the --rollup-upstream flag (the
	// binary's positional argument is the rollup kind, not this URL).
	// It reaches the RollupSource through its registered factory.
	RollupUpstream string `yaml:"rollup_upstream"`

	// ElfPath is the guest program binary this adapter's prover binds
	// to; a fixed placeholder is used when it is empty. It is read in
	// every mode.
	ElfPath string `yaml:"elf_path"`

	// PollIntervalMS is the polling interval, in milliseconds, between
	// RunOnce attempts.
	PollIntervalMS int `yaml:"poll_interval_ms"`

	// MaxRetries, InitialBackoffMS, MaxBackoffMS, and BackoffMultiplier
	// configure the bounded exponential-backoff retry every external
	// RPC call uses.
	MaxRetries        int     `yaml:"max_retries"`
	InitialBackoffMS  int     `yaml:"initial_backoff_ms"`
	MaxBackoffMS      int     `yaml:"max_backoff_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`

	// LogLevel, LogPath, and LogFormat mirror NexusConfig's logging knobs.
	LogLevel  string `yaml:"log_level"`
	LogPath   string `yaml:"log_path"`
	LogFormat string `yaml:"log_format"`

	// Dev selects an in-memory proof-chain store in place of pebble.
	// The prover is prover.MockProof in every mode.
	Dev bool `yaml:"dev"`
}

func defaultDataDir(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + name
	}
	return filepath.Join(home, "."+name)
}

// DefaultNexusConfig returns a NexusConfig with sensible defaults.
func DefaultNexusConfig() NexusConfig {
	return NexusConfig{
		DataDir:   defaultDataDir("nexus"),
		APIAddr:   "127.0.0.1:8090",
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// DefaultAdapterConfig returns an AdapterConfig with sensible defaults.
func DefaultAdapterConfig() AdapterConfig {
	return AdapterConfig{
		DataDir:           defaultDataDir("nexus-adapter"),
		CoordinatorAddr:   "http://127.0.0.1:8090",
		PollIntervalMS:    5000,
		MaxRetries:        5,
		InitialBackoffMS:  1000,
		MaxBackoffMS:      30000,
		BackoffMultiplier: 2.0,
		LogLevel:          "info",
		LogFormat:         "json",
	}
}

// LoadNexusConfig reads and parses a YAML file into a NexusConfig,
// starting from DefaultNexusConfig so a partial file only overrides
// the fields it sets.
func LoadNexusConfig(path string) (NexusConfig, error) {
	cfg := DefaultNexusConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadAdapterConfig reads and parses a YAML file into an AdapterConfig.
func LoadAdapterConfig(path string) (AdapterConfig, error) {
	cfg := DefaultAdapterConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks a NexusConfig's values for correctness.
func (c *NexusConfig) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("config: data_dir must not be empty")
	}
	if c.APIAddr == "" {
		return fmt.Errorf("config: api_addr must not be empty")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "", "json", "text", "color":
	default:
		return fmt.Errorf("config: unknown log format %q", c.LogFormat)
	}
	return nil
}

// Validate checks an AdapterConfig's values for correctness.
func (c *AdapterConfig) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("config: data_dir must not be empty")
	}
	if c.CoordinatorAddr == "" {
		return fmt.Errorf("config: coordinator_addr must not be empty")
	}
	if c.PollIntervalMS <= 0 {
		return fmt.Errorf("config: invalid poll_interval_ms: %d", c.PollIntervalMS)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("config: invalid max_retries: %d", c.MaxRetries)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "", "json", "text", "color":
	default:
		return fmt.Errorf("config: unknown log format %q", c.LogFormat)
	}
	return nil
}

// InitDataDir creates DataDir if it does not already exist.
func (c *NexusConfig) InitDataDir() error {
	return os.MkdirAll(c.DataDir, 0700)
}

// InitDataDir creates DataDir if it does not already exist.
func (c *AdapterConfig) InitDataDir() error {
	return os.MkdirAll(c.DataDir, 0700)
}

// ResolvePath resolves path relative to DataDir, unless it is already
// absolute.
func (c *NexusConfig) ResolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.DataDir, path)
}

// ResolvePath resolves path relative to DataDir, unless it is already
// absolute.
func (c *AdapterConfig) ResolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.DataDir, path)
}
