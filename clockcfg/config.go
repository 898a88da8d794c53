// Package clockcfg loads the tunables a Clock is constructed with from TOML,
// the way the source engine's regions load their parameters, but through the
// ecosystem BurntSushi/toml decoder rather than a hand-rolled one.
package clockcfg

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds every Clock tunable that is reasonable to externalize.
type Config struct {
	// StepTimeout bounds a synchronous Step call's wait for its reply.
	StepTimeout time.Duration `toml:"step_timeout"`
	// RunTimeout bounds a synchronous Run call's wait for its reply.
	RunTimeout time.Duration `toml:"run_timeout"`
	// CommandBuffer sizes the Clock's inbound command channel.
	CommandBuffer int `toml:"command_buffer"`
	// MaxBatchWorkers caps the goroutines errgroup fans a single due-event
	// batch out to; 0 means unbounded (errgroup.SetLimit is not called).
	MaxBatchWorkers int `toml:"max_batch_workers"`
}

// Default returns the tunables a Clock uses when no config file is supplied.
func Default() Config {
	return Config{
		StepTimeout:     5 * time.Second,
		RunTimeout:      10 * time.Second,
		CommandBuffer:   16,
		MaxBatchWorkers: 0,
	}
}

// Load decodes a TOML file at path over the defaults, so a partial file only
// overrides the fields it names.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("clockcfg: decode %s: %w", path, err)
	}
	return cfg, nil
}
