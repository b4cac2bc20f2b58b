// SPDX-License-Identifier: Apache-2.0

package arena

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slog"
)

// Arena owns a permanent and a transient region carved from one backing
// allocation, or from two when a single allocation of the combined size
// could not be obtained.
//
// Permanent memory lives until Free. Transient memory is handed out during a
// processing cycle and reclaimed all at once by Reset, which the owner calls
// once per cycle. Within the transient region the most recent allocation can
// be grown, shrunk or freed in place; anything below it stays put until the
// next Reset.
//
// An Arena has a single owner and is not safe for concurrent use. Wrap it in
// a ConcurrentArena or give each goroutine its own arena from a Pool.
type Arena struct {
	permanent   region
	transient   region
	storage     backingLayout
	source      Backing
	logger      *slog.Logger
	cycles      uint64
	initialised bool
}

// New creates and initialises an arena with the given region sizes.
// By default regions are 8 byte aligned, backed by the Go heap and not
// explicitly cleared.
func New(permanentSize, transientSize uintptr, opts ...Option) (*Arena, error) {
	cfg := config{alignment: WordSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	a := &Arena{source: cfg.backing, logger: cfg.logger}
	if err := a.Initialise(permanentSize, transientSize, cfg.zeroFill, cfg.alignment); err != nil {
		return nil, err
	}
	return a, nil
}

// Initialise allocates backing storage for both regions. Sizes below the
// region minimums are raised to them and every size is rounded up to a
// multiple of alignment. An arena that is already initialised is freed
// first. On failure the arena is left uninitialised.
func (a *Arena) Initialise(permanentSize, transientSize uintptr, zeroFill bool, alignment uintptr) error {
	assertAlignment(alignment)

	permanentSize = alignUp(max(permanentSize, MinPermanentSize), alignment)
	transientSize = alignUp(max(transientSize, MinTransientSize), alignment)

	if a.initialised {
		if err := a.Free(); err != nil {
			return err
		}
	}

	src, log := a.backing(), a.log()
	// Rounding up wraps to zero when a size is within alignment of the top.
	if permanentSize == 0 || transientSize == 0 || permanentSize > ^uintptr(0)-transientSize {
		err := errors.Mark(
			errors.New("arena: region sizes overflow the address space"),
			ErrBackingAllocation)
		log.Error("failed to initialise memory arena", "err", err)
		return err
	}
	total := permanentSize + transientSize

	var permanent, transient []byte
	if mem, err := src.Allocate(total, alignment); err == nil {
		permanent = mem[:permanentSize:permanentSize]
		transient = mem[permanentSize:total:total]
		a.storage = singleBacking{mem: mem}
	} else {
		log.Debug("combined backing allocation failed, allocating regions separately",
			"bytes", total, "err", err)

		p, perr := src.Allocate(permanentSize, alignment)
		t, terr := src.Allocate(transientSize, alignment)
		if perr != nil || terr != nil {
			var rerr error
			if perr == nil {
				rerr = src.Release(p)
			}
			if terr == nil {
				rerr = src.Release(t)
			}
			err = errors.Mark(
				errors.Wrapf(errors.CombineErrors(errors.CombineErrors(perr, terr), rerr),
					"arena: allocating %d bytes", total),
				ErrBackingAllocation)
			log.Error("failed to initialise memory arena", "bytes", total, "err", err)
			return err
		}
		permanent, transient = p, t
		a.storage = splitBacking{permanent: p, transient: t}
	}

	if zeroFill {
		clear(permanent)
		clear(transient)
	}

	a.permanent = newRegion(permanentRegion, permanent)
	a.transient = newRegion(transientRegion, transient)
	a.cycles = 0
	a.initialised = true

	_, split := a.storage.(splitBacking)
	log.Debug("memory arena initialised",
		"permanent", permanentSize, "transient", transientSize, "alignment", alignment, "split", split)
	return nil
}

// Free releases the backing storage and returns the arena to its
// uninitialised state. Every slice handed out by the arena becomes invalid.
// The configured backing source and logger are kept for a later Initialise.
func (a *Arena) Free() error {
	if !a.initialised {
		return nil
	}

	var err error
	switch s := a.storage.(type) {
	case singleBacking:
		err = s.release(a.source)
	case splitBacking:
		err = s.release(a.source)
	default:
		panic(errors.AssertionFailedf("arena: unknown backing layout %T", s))
	}

	src, logger := a.source, a.logger
	*a = Arena{source: src, logger: logger}

	if err != nil {
		err = errors.Wrap(err, "arena: releasing backing storage")
		a.log().Error("failed to free memory arena", "err", err)
		return err
	}
	a.log().Debug("memory arena freed")
	return nil
}

// Reset reclaims the whole transient region in constant time. All transient
// slices become invalid. Permanent allocations are untouched.
func (a *Arena) Reset() {
	if !a.initialised {
		return
	}
	a.transient.reset()
	a.cycles++
}

// Initialised reports whether the arena can serve allocations.
func (a *Arena) Initialised() bool {
	return a.initialised
}

// PermanentAllocate returns size bytes from the permanent region aligned to
// alignment. Permanent memory is never reclaimed before Free, so an
// ErrOutOfMemory here usually means the arena was sized too small.
func (a *Arena) PermanentAllocate(size uintptr, zeroFill bool, alignment uintptr) ([]byte, error) {
	if !a.initialised {
		return nil, errors.Wrap(ErrNotInitialised, "permanent allocate")
	}
	b, err := a.permanent.alloc(size, zeroFill, alignment)
	if err != nil {
		a.log().Error("failed to allocate permanent memory",
			"size", size, "available", a.permanent.available, "err", err)
		return nil, err
	}
	return b, nil
}

// PermanentReallocate is not supported and always returns ErrNotSupported.
func (a *Arena) PermanentReallocate(b []byte, size uintptr) ([]byte, error) {
	err := errors.Wrapf(ErrNotSupported, "permanent reallocate to %d bytes", size)
	a.log().Error("permanent reallocation is not implemented", "size", size)
	return nil, err
}

// PermanentFree is not supported and always returns ErrNotSupported.
// Permanent memory is reclaimed only by Free.
func (a *Arena) PermanentFree(b []byte) error {
	a.log().Error("permanent free is not implemented", "size", len(b))
	return errors.Wrap(ErrNotSupported, "permanent free")
}

// TransientAllocate returns size bytes from the transient region aligned to
// alignment. The slice stays valid until the next Reset.
func (a *Arena) TransientAllocate(size uintptr, zeroFill bool, alignment uintptr) ([]byte, error) {
	if !a.initialised {
		return nil, errors.Wrap(ErrNotInitialised, "transient allocate")
	}
	b, err := a.transient.alloc(size, zeroFill, alignment)
	if err != nil {
		a.log().Warn("failed to allocate transient memory",
			"size", size, "available", a.transient.available, "err", err)
		return nil, err
	}
	return b, nil
}

// TransientReallocate resizes a transient allocation to size bytes. A nil b
// allocates. The top of the allocation stack is resized in place; a buried
// allocation is copied to a new block and the returned slice differs from b.
// On failure b is left valid and unchanged.
func (a *Arena) TransientReallocate(b []byte, size uintptr) ([]byte, error) {
	if !a.initialised {
		return nil, errors.Wrap(ErrNotInitialised, "transient reallocate")
	}
	nb, err := a.transient.realloc(b, size)
	if err != nil {
		a.log().Warn("failed to reallocate transient memory",
			"size", size, "available", a.transient.available, "err", err)
		return nil, err
	}
	return nb, nil
}

// TransientFree returns b to the transient region if it is the most recent
// live allocation. Freeing anything else does nothing.
func (a *Arena) TransientFree(b []byte) {
	if !a.initialised {
		return
	}
	a.transient.free(b)
}

func (a *Arena) backing() Backing {
	if a.source == nil {
		a.source = HeapBacking{}
	}
	return a.source
}

func (a *Arena) log() *slog.Logger {
	if a.logger == nil {
		return slog.Default()
	}
	return a.logger
}
