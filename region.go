// SPDX-License-Identifier: Apache-2.0

package arena

import (
	"unsafe"

	"github.com/cockroachdb/errors"
)

const (
	// WordSize is the platform word size and the smallest accepted alignment.
	WordSize = unsafe.Sizeof(uint64(0))

	// HeaderSize is the number of bytes of bookkeeping stored in front of
	// every allocation.
	HeaderSize = unsafe.Sizeof(header{})

	// MaxAlignment is the largest alignment an allocation may request.
	// Padding is recorded in 16 bits, so it has to stay below this.
	MaxAlignment uintptr = 1 << 15

	// regionDescriptorSize mirrors the four word sized fields that describe a
	// region: capacity, available, buffer and last allocation.
	regionDescriptorSize = 4 * WordSize

	// MinPermanentSize and MinTransientSize are the smallest capacities a
	// region is created with. Smaller requests, including zero, are raised
	// to these values.
	MinPermanentSize = regionDescriptorSize + HeaderSize
	MinTransientSize = regionDescriptorSize + HeaderSize
)

// noAllocation marks an empty allocation stack.
const noAllocation = ^uint64(0)

// header precedes the user bytes of every allocation. previous holds the
// buffer offset of the allocation that was on top of the stack before this
// one, which chains the live allocations of a region into a stack.
type header struct {
	previous  uint64
	requested uint64 // padding + HeaderSize + user
	user      uint64
	alignment uint16
	padding   uint16
	_         uint32
}

var _ [32 - HeaderSize]byte
var _ [HeaderSize - 32]byte
var _ [0]struct{} = [HeaderSize % WordSize]struct{}{}

func (h *header) valid() bool {
	return h.requested == uint64(h.padding)+uint64(HeaderSize)+h.user &&
		h.alignment != 0 && h.alignment&(h.alignment-1) == 0 &&
		uint64(h.padding) < uint64(h.alignment)
}

type regionKind uint8

const (
	permanentRegion regionKind = iota
	transientRegion
)

func (k regionKind) String() string {
	switch k {
	case permanentRegion:
		return "permanent"
	case transientRegion:
		return "transient"
	default:
		return "unknown"
	}
}

// region is a bump allocator over a fixed buffer. The cursor is derived from
// capacity - available. Only the allocation on top of the stack can be
// resized or freed in place.
type region struct {
	kind      regionKind
	buf       []byte
	capacity  uintptr
	available uintptr
	last      uint64 // offset of the most recent user bytes
	peak      uintptr
	allocs    uint64
}

func newRegion(kind regionKind, buf []byte) region {
	return region{
		kind:      kind,
		buf:       buf,
		capacity:  uintptr(len(buf)),
		available: uintptr(len(buf)),
		last:      noAllocation,
	}
}

func (r *region) used() uintptr {
	return r.capacity - r.available
}

func (r *region) base() uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(r.buf)))
}

// headerAt returns the header in front of the user bytes at off. The slice
// expression keeps the access inside the buffer.
func (r *region) headerAt(off uint64) *header {
	end := uintptr(off)
	h := r.buf[end-HeaderSize : end]
	return (*header)(unsafe.Pointer(unsafe.SliceData(h)))
}

// offsetOf reports where b starts inside the region buffer.
func (r *region) offsetOf(b []byte) (uint64, bool) {
	if cap(b) == 0 || r.capacity == 0 {
		return 0, false
	}
	base := r.base()
	p := uintptr(unsafe.Pointer(unsafe.SliceData(b)))
	if p < base+HeaderSize || p >= base+r.capacity {
		return 0, false
	}
	return uint64(p - base), true
}

func (r *region) slice(off uint64, size uintptr) []byte {
	start := uintptr(off)
	return r.buf[start : start+size : start+size]
}

func (r *region) track() {
	if used := r.used(); used > r.peak {
		r.peak = used
	}
}

func (r *region) alloc(size uintptr, zeroFill bool, alignment uintptr) ([]byte, error) {
	assertSize(size)
	assertAlignment(alignment)

	cursor := r.capacity - r.available
	next := r.base() + cursor + HeaderSize
	padding := alignUp(next, alignment) - next

	if size > r.available || padding+HeaderSize > r.available-size {
		return nil, errors.Wrapf(ErrOutOfMemory,
			"%s region: %d bytes needed, %d available", r.kind, padding+HeaderSize+size, r.available)
	}
	requested := padding + HeaderSize + size

	off := uint64(cursor + HeaderSize + padding)
	*r.headerAt(off) = header{
		previous:  r.last,
		requested: uint64(requested),
		user:      uint64(size),
		alignment: uint16(alignment),
		padding:   uint16(padding),
	}
	r.available -= requested
	r.last = off
	r.allocs++
	r.track()

	b := r.slice(off, size)
	if zeroFill {
		clear(b)
	}
	return b, nil
}

func (r *region) realloc(b []byte, size uintptr) ([]byte, error) {
	if b == nil {
		return r.alloc(size, false, WordSize)
	}
	assertSize(size)

	off, ok := r.offsetOf(b)
	if !ok {
		panic(errors.AssertionFailedf("arena: reallocated slice does not belong to the %s region", r.kind))
	}
	h := r.headerAt(off)
	if !h.valid() {
		panic(errors.AssertionFailedf("arena: reallocated slice at offset %d is not an allocation start", off))
	}

	oldSize := uintptr(h.user)
	if size == oldSize {
		return r.slice(off, size), nil
	}

	if off == r.last {
		oldRequested := uintptr(h.requested)
		requested := uintptr(h.padding) + HeaderSize + size

		if size < oldSize || requested == oldRequested {
			h.requested = uint64(requested)
			h.user = uint64(size)
			r.available += oldRequested - requested
			return r.slice(off, size), nil
		}

		extra := requested - oldRequested
		if extra > r.available {
			return nil, errors.Wrapf(ErrOutOfMemory,
				"%s region: growing by %d bytes, %d available", r.kind, extra, r.available)
		}
		h.requested = uint64(requested)
		h.user = uint64(size)
		r.available -= extra
		r.track()
		return r.slice(off, size), nil
	}

	// Buried under later allocations: move it to the top.
	moved, err := r.alloc(size, false, uintptr(h.alignment))
	if err != nil {
		return nil, err
	}
	copy(moved, r.buf[off:uintptr(off)+min(oldSize, size)])
	r.free(b)
	return moved, nil
}

// free pops b off the allocation stack. Anything other than the top of the
// stack is left alone.
func (r *region) free(b []byte) {
	off, ok := r.offsetOf(b)
	if !ok || off != r.last {
		return
	}
	h := r.headerAt(off)
	r.available += uintptr(h.requested)
	r.last = h.previous
}

func (r *region) reset() {
	r.available = r.capacity
	r.last = noAllocation
}

func alignUp(n, alignment uintptr) uintptr {
	return (n + alignment - 1) &^ (alignment - 1)
}
