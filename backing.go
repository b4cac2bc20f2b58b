// SPDX-License-Identifier: Apache-2.0

package arena

import (
	"math"
	"unsafe"

	"github.com/cockroachdb/errors"
)

// Backing supplies the raw storage the arena carves its regions from.
// Allocate must return a slice of exactly size bytes whose first byte is
// aligned to alignment. Release receives the same slice back at teardown.
type Backing interface {
	Allocate(size, alignment uintptr) ([]byte, error)
	Release(mem []byte) error
}

// HeapBacking allocates region storage on the Go heap. A non-zero Limit
// rejects any single request above it, which caps how much memory one
// backing allocation may take.
type HeapBacking struct {
	Limit uintptr
}

// Allocate satisfies the Backing interface.
func (h HeapBacking) Allocate(size, alignment uintptr) (mem []byte, err error) {
	if h.Limit > 0 && size > h.Limit {
		return nil, errors.Newf("heap backing: %d bytes exceeds the limit of %d", size, h.Limit)
	}
	if size > math.MaxInt-alignment {
		return nil, errors.Newf("heap backing: %d bytes is too large", size)
	}

	defer func() {
		if r := recover(); r != nil {
			mem, err = nil, errors.Newf("heap backing: %v", r)
		}
	}()

	// Over-allocate so the start can be moved up to the requested alignment.
	raw := make([]byte, size+alignment)
	base := uintptr(unsafe.Pointer(unsafe.SliceData(raw)))
	start := alignUp(base, alignment) - base
	return raw[start : start+size : start+size], nil
}

// Release satisfies the Backing interface. Heap memory is left to the
// garbage collector.
func (HeapBacking) Release([]byte) error {
	return nil
}

// backingLayout records how the regions' storage was obtained, so teardown
// releases exactly what initialisation allocated.
type backingLayout interface {
	release(src Backing) error
}

// singleBacking is one allocation holding the permanent region followed by
// the transient region.
type singleBacking struct {
	mem []byte
}

func (s singleBacking) release(src Backing) error {
	return src.Release(s.mem)
}

// splitBacking is used when the combined allocation failed and each region
// got its own block.
type splitBacking struct {
	permanent []byte
	transient []byte
}

func (s splitBacking) release(src Backing) error {
	return errors.CombineErrors(src.Release(s.permanent), src.Release(s.transient))
}
