// SPDX-License-Identifier: Apache-2.0

package arena

import (
	"golang.org/x/exp/slog"
)

type config struct {
	zeroFill  bool
	alignment uintptr
	backing   Backing
	logger    *slog.Logger
}

// Option configures an arena created with New.
type Option func(*config)

// WithZeroFill clears both regions once their storage is obtained.
func WithZeroFill() Option {
	return func(c *config) {
		c.zeroFill = true
	}
}

// WithAlignment sets the alignment region sizes are rounded to.
// It must be a power of two between WordSize and MaxAlignment.
func WithAlignment(alignment uintptr) Option {
	return func(c *config) {
		c.alignment = alignment
	}
}

// WithBacking sets where region storage comes from. Defaults to HeapBacking.
func WithBacking(b Backing) Option {
	return func(c *config) {
		c.backing = b
	}
}

// WithLogger sets the logger used for diagnostics. Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}
