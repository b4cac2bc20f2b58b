// SPDX-License-Identifier: Apache-2.0

package arena

import (
	"unsafe"
)

// Allocator is one region of an arena seen as a plain allocator.
type Allocator interface {
	// Allocate returns size bytes aligned to alignment.
	Allocate(size uintptr, zeroFill bool, alignment uintptr) ([]byte, error)

	// Reallocate resizes b, which must have been returned by this allocator,
	// to size bytes. The contents up to the smaller of both sizes are kept.
	Reallocate(b []byte, size uintptr) ([]byte, error)

	// Free releases b if the allocator supports it.
	Free(b []byte) error
}

// Permanent returns the arena's permanent region as an Allocator.
// Its Reallocate and Free return ErrNotSupported.
func (a *Arena) Permanent() Allocator {
	return permanentAllocator{a: a}
}

// Transient returns the arena's transient region as an Allocator.
func (a *Arena) Transient() Allocator {
	return transientAllocator{a: a}
}

type permanentAllocator struct {
	a *Arena
}

func (p permanentAllocator) Allocate(size uintptr, zeroFill bool, alignment uintptr) ([]byte, error) {
	return p.a.PermanentAllocate(size, zeroFill, alignment)
}

func (p permanentAllocator) Reallocate(b []byte, size uintptr) ([]byte, error) {
	return p.a.PermanentReallocate(b, size)
}

func (p permanentAllocator) Free(b []byte) error {
	return p.a.PermanentFree(b)
}

type transientAllocator struct {
	a *Arena
}

func (t transientAllocator) Allocate(size uintptr, zeroFill bool, alignment uintptr) ([]byte, error) {
	return t.a.TransientAllocate(size, zeroFill, alignment)
}

func (t transientAllocator) Reallocate(b []byte, size uintptr) ([]byte, error) {
	return t.a.TransientReallocate(b, size)
}

func (t transientAllocator) Free(b []byte) error {
	t.a.TransientFree(b)
	return nil
}

// Allocate allocates a zeroed value of type T from al.
// If al is nil, or T has no size, it falls back to Go's built-in new.
//
// The arena's memory is not scanned by the garbage collector, so T must not
// hold Go pointers that are the only reference to their target.
func Allocate[T any](al Allocator) (*T, error) {
	var x T
	size := unsafe.Sizeof(x)
	if al == nil || size == 0 {
		return new(T), nil
	}
	b, err := al.Allocate(size, true, max(unsafe.Alignof(x), WordSize))
	if err != nil {
		return nil, err
	}
	return (*T)(unsafe.Pointer(unsafe.SliceData(b))), nil
}
