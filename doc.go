// SPDX-License-Identifier: Apache-2.0

// Package arena implements a two-region bump allocator.
//
// An Arena is sized once and never grows. Its permanent region serves
// allocations that live until the arena is freed; its transient region
// serves scratch memory for one processing cycle and is reclaimed in O(1)
// by Reset.
//
// Every allocation is preceded by a small header recording its size,
// alignment and padding, and the allocation that was on top before it.
// That turns the live allocations of a region into a stack: the top can be
// grown, shrunk or freed in place, everything below it stays where it is.
//
//	a, err := arena.New(2<<20, 2<<20, arena.WithZeroFill())
//	if err != nil {
//		return err
//	}
//	defer a.Free()
//
//	for cycle := range work {
//		buf, err := a.TransientAllocate(4096, false, arena.WordSize)
//		...
//		a.Reset()
//	}
//
// Exhausting a region yields ErrOutOfMemory. Permanent memory cannot be
// reallocated or freed individually; those calls yield ErrNotSupported.
// Invalid alignments and zero sized requests are programming errors and
// panic.
package arena
