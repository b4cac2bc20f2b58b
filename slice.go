// SPDX-License-Identifier: Apache-2.0

package arena

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slices"
)

const growThreshold = 256

// AllocateSlice creates a zeroed slice of type T with the given length and
// capacity, using al for memory allocation.
// If al is nil it returns a slice made with Go's built-in make function.
func AllocateSlice[T any](al Allocator, len, cap int) ([]T, error) {
	var x T
	bufSize := unsafe.Sizeof(x) * uintptr(cap)
	if al == nil || bufSize == 0 {
		return make([]T, len, cap), nil
	}
	b, err := al.Allocate(bufSize, true, max(unsafe.Alignof(x), WordSize))
	if err != nil {
		return nil, err
	}
	s := unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), cap)
	return s[:len], nil
}

// SliceAppend appends data to s, growing it through al when the capacity is
// exhausted. s must be nil or have been allocated by al.
//
// Growth goes through Reallocate, so a slice on top of the transient stack
// grows in place. Allocators that cannot reallocate get a fresh block and a
// copy. On error s is returned unchanged.
func SliceAppend[T any](al Allocator, s []T, data ...T) ([]T, error) {
	if al == nil {
		return append(s, data...), nil
	}
	grown, err := growSlice(al, s, len(data))
	if err != nil {
		return s, err
	}
	return append(grown, data...), nil
}

func growSlice[T any](al Allocator, s []T, dataLen int) ([]T, error) {
	if al == nil {
		return slices.Grow(s, dataLen), nil
	}

	newLen := len(s) + dataLen
	newCap := cap(s)

	if newCap > 0 {
		for newLen > newCap {
			if newCap < growThreshold {
				newCap *= 2
			} else {
				newCap += newCap / 4
			}
		}
	} else {
		newCap = dataLen
	}
	if newCap == cap(s) {
		return s, nil
	}

	var x T
	elemSize := unsafe.Sizeof(x)
	if elemSize == 0 {
		return s, nil
	}
	if cap(s) == 0 {
		return AllocateSlice[T](al, len(s), newCap)
	}

	// Permanent memory cannot be resized, skip straight to the copy.
	if resizable(al) {
		old := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), uintptr(cap(s))*elemSize)
		b, err := al.Reallocate(old, uintptr(newCap)*elemSize)
		if err == nil {
			return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), newCap)[:len(s)], nil
		}
		if !errors.Is(err, ErrNotSupported) {
			return nil, err
		}
	}

	s2, err := AllocateSlice[T](al, len(s), newCap)
	if err != nil {
		return nil, err
	}
	copy(s2, s)
	return s2, nil
}

// resizable reports whether al may grow an allocation in place.
func resizable(al Allocator) bool {
	switch al := al.(type) {
	case permanentAllocator:
		return false
	case lockedAllocator:
		return resizable(al.al)
	}
	return true
}
