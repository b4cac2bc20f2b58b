// SPDX-License-Identifier: Apache-2.0

package arena

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrOutOfMemory is returned when a region has fewer available bytes than
	// an allocation or growth needs. The arena never grows, so for the
	// permanent region this is effectively fatal.
	ErrOutOfMemory = errors.New("arena: out of memory")

	// ErrNotSupported is returned by operations the arena deliberately does
	// not implement, such as reallocating or freeing permanent memory.
	ErrNotSupported = errors.New("arena: operation not supported")

	// ErrNotInitialised is returned when allocating from an arena that has not
	// been initialised or has already been freed.
	ErrNotInitialised = errors.New("arena: not initialised")

	// ErrBackingAllocation is returned when the backing storage for the
	// regions could not be obtained.
	ErrBackingAllocation = errors.New("arena: backing allocation failed")
)

func assertAlignment(alignment uintptr) {
	if alignment < WordSize || alignment > MaxAlignment || alignment&(alignment-1) != 0 {
		panic(errors.AssertionFailedf(
			"arena: alignment %d must be a power of two between %d and %d",
			alignment, WordSize, MaxAlignment))
	}
}

func assertSize(size uintptr) {
	if size == 0 {
		panic(errors.AssertionFailedf("arena: zero sized allocation"))
	}
}
