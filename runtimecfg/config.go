// Package runtimecfg collects the tunables spec.md §9 asks not to be
// guessed at or hard-coded: the async-refcount table size, the SharedDict
// read-only promotion threshold, the Tick interval, and the MonitorSpace
// deadlock-detection delay. It follows eventloop/options.go's
// functional-options-plus-defaults shape, but exposes the result as a
// plain struct that can additionally be loaded from YAML, since these are
// operator-tunable values rather than call-site options.
package runtimecfg

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable named or implied by spec.md.
type Config struct {
	// AsyncRefcountTableSize is the fixed power-of-two size of each
	// ThreadState's async-refcount table (spec.md §3, Py_ASYNCREFCOUNT_TABLE).
	AsyncRefcountTableSize int `yaml:"asyncRefcountTableSize"`

	// TickInterval is how often the evaluator-equivalent calls
	// ThreadState.Tick (spec.md §4.2). go-freethread does not own an
	// evaluator loop, and no component reads this value: Validate checks
	// that it is positive, and freethread.New does not pass it on.
	TickInterval time.Duration `yaml:"tickInterval"`

	// SharedDictReadOnlyThreshold is the number of consecutive reads
	// after which a SharedDict is promoted to read-only mode (spec.md
	// §4.9, Open Question (c) in §9). The original hard-codes 10000 and
	// notes the feature was disabled; go-freethread treats it as a live,
	// tunable default (SPEC_FULL §10(c)).
	SharedDictReadOnlyThreshold int `yaml:"sharedDictReadOnlyThreshold"`

	// MonitorDeadlockDelay is the deadlock delay freethread.New stores on
	// its MonitorSpace via SetDeadlockDelay (SPEC_FULL §5.1, grounded on
	// PyMonitorSpace_SetDeadlockDelay). MonitorSpace.Enter does not act on
	// it; GetDeadlockDelay reports it back.
	MonitorDeadlockDelay time.Duration `yaml:"monitorDeadlockDelay"`

	// SizeClassCount and SizeClassCacheDepth size ThreadState's per-size-
	// class small-allocation caches (SPEC_FULL §5.3), matching the
	// original's PYGC_CACHE_SIZECLASSES / PYGC_CACHE_COUNT constants.
	SizeClassCount     int `yaml:"sizeClassCount"`
	SizeClassCacheDepth int `yaml:"sizeClassCacheDepth"`
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		AsyncRefcountTableSize:      2048,
		TickInterval:                10 * time.Millisecond,
		SharedDictReadOnlyThreshold: 256,
		MonitorDeadlockDelay:        2 * time.Second,
		SizeClassCount:              13,
		SizeClassCacheDepth:         32,
	}
}

// LoadConfig parses a YAML document into a Config seeded with
// DefaultConfig, so a document only needs to override the fields it cares
// about.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("runtimecfg: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the invariants the rest of the package relies on.
func (c Config) Validate() error {
	if c.AsyncRefcountTableSize <= 0 || c.AsyncRefcountTableSize&(c.AsyncRefcountTableSize-1) != 0 {
		return fmt.Errorf("runtimecfg: AsyncRefcountTableSize must be a positive power of two, got %d", c.AsyncRefcountTableSize)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("runtimecfg: TickInterval must be positive")
	}
	if c.SharedDictReadOnlyThreshold <= 0 {
		return fmt.Errorf("runtimecfg: SharedDictReadOnlyThreshold must be positive")
	}
	if c.SizeClassCount <= 0 || c.SizeClassCacheDepth <= 0 {
		return fmt.Errorf("runtimecfg: size class cache dimensions must be positive")
	}
	return nil
}
