// SPDX-License-Identifier: Apache-2.0

package arena

import (
	"sync"
)

// ConcurrentArena serialises every operation on a shared Arena with a mutex.
// The stack discipline of the transient region still applies: with several
// goroutines allocating, whichever allocated last owns the top of the stack.
type ConcurrentArena struct {
	mtx sync.Mutex
	a   *Arena
}

// NewConcurrentArena returns an arena that is safe to be accessed concurrently
// from multiple goroutines.
func NewConcurrentArena(a *Arena) *ConcurrentArena {
	return &ConcurrentArena{a: a}
}

// PermanentAllocate is the serialised form of Arena.PermanentAllocate.
func (c *ConcurrentArena) PermanentAllocate(size uintptr, zeroFill bool, alignment uintptr) ([]byte, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.a.PermanentAllocate(size, zeroFill, alignment)
}

// TransientAllocate is the serialised form of Arena.TransientAllocate.
func (c *ConcurrentArena) TransientAllocate(size uintptr, zeroFill bool, alignment uintptr) ([]byte, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.a.TransientAllocate(size, zeroFill, alignment)
}

// TransientReallocate is the serialised form of Arena.TransientReallocate.
func (c *ConcurrentArena) TransientReallocate(b []byte, size uintptr) ([]byte, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.a.TransientReallocate(b, size)
}

// TransientFree is the serialised form of Arena.TransientFree.
func (c *ConcurrentArena) TransientFree(b []byte) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.a.TransientFree(b)
}

// Reset is the serialised form of Arena.Reset.
func (c *ConcurrentArena) Reset() {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.a.Reset()
}

// Free is the serialised form of Arena.Free.
func (c *ConcurrentArena) Free() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.a.Free()
}

// Stats is the serialised form of Arena.Stats.
func (c *ConcurrentArena) Stats() Stats {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.a.Stats()
}

// Permanent returns the permanent region as an Allocator that takes the
// arena's lock for every call.
func (c *ConcurrentArena) Permanent() Allocator {
	return lockedAllocator{mtx: &c.mtx, al: c.a.Permanent()}
}

// Transient returns the transient region as an Allocator that takes the
// arena's lock for every call.
func (c *ConcurrentArena) Transient() Allocator {
	return lockedAllocator{mtx: &c.mtx, al: c.a.Transient()}
}

type lockedAllocator struct {
	mtx *sync.Mutex
	al  Allocator
}

func (l lockedAllocator) Allocate(size uintptr, zeroFill bool, alignment uintptr) ([]byte, error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.al.Allocate(size, zeroFill, alignment)
}

func (l lockedAllocator) Reallocate(b []byte, size uintptr) ([]byte, error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.al.Reallocate(b, size)
}

func (l lockedAllocator) Free(b []byte) error {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return l.al.Free(b)
}
