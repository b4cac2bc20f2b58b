// SPDX-License-Identifier: Apache-2.0

// Package config holds the settings of the primefactor host and loads them
// from TOML files.
package config

import (
	"io"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"

	arena "github.com/wundergraph/go-region-arena"
)

const (
	BackingHeap = "heap"
	BackingMmap = "mmap"

	DefaultPrimeFile = "prime_numbers.bin"
)

// Config is the host configuration. The zero value is not usable, start
// from Default.
type Config struct {
	Memory           Memory `toml:"memory"`
	Verbose          bool   `toml:"verbose"`
	WorkingDirectory string `toml:"working_directory,omitempty"`
	PrimeFile        string `toml:"prime_file"`
	// TraceEndpoint is the jaeger collector cycles are traced to. Tracing is
	// off when empty.
	TraceEndpoint string `toml:"trace_endpoint,omitempty"`
}

// Memory sizes and configures the arena.
type Memory struct {
	Permanent uint64 `toml:"permanent"`
	Transient uint64 `toml:"transient"`
	ZeroFill  bool   `toml:"zero_fill"`
	Alignment uint64 `toml:"alignment"`
	Backing   string `toml:"backing"`
}

// Default returns the built-in configuration: 2 MiB per region, cleared on
// initialisation, backed by the Go heap.
func Default() *Config {
	return &Config{
		Memory: Memory{
			Permanent: 2 << 20,
			Transient: 2 << 20,
			ZeroFill:  true,
			Alignment: uint64(arena.WordSize),
			Backing:   BackingHeap,
		},
		PrimeFile: DefaultPrimeFile,
	}
}

// Load reads path over the defaults. Keys the file sets replace the default
// values, everything else is kept. Unknown keys are an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "loading config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.Newf("config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Validate checks the values an arena cannot be built from.
func (c *Config) Validate() error {
	a := c.Memory.Alignment
	if a < uint64(arena.WordSize) || a > uint64(arena.MaxAlignment) || a&(a-1) != 0 {
		return errors.Newf("memory.alignment %d must be a power of two between %d and %d",
			a, arena.WordSize, arena.MaxAlignment)
	}
	switch c.Memory.Backing {
	case BackingHeap, BackingMmap:
	default:
		return errors.Newf("memory.backing %q must be %q or %q", c.Memory.Backing, BackingHeap, BackingMmap)
	}
	if c.PrimeFile == "" {
		return errors.New("prime_file must not be empty")
	}
	return nil
}

// ArenaOptions translates the memory settings into arena options.
func (c *Config) ArenaOptions(logger *slog.Logger) []arena.Option {
	opts := []arena.Option{
		arena.WithAlignment(uintptr(c.Memory.Alignment)),
		arena.WithLogger(logger),
	}
	if c.Memory.ZeroFill {
		opts = append(opts, arena.WithZeroFill())
	}
	if c.Memory.Backing == BackingMmap {
		opts = append(opts, arena.WithBacking(arena.MmapBacking{}))
	}
	return opts
}

// Encode writes c as TOML.
func (c *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}
