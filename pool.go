// SPDX-License-Identifier: Apache-2.0

package arena

import (
	"runtime"
	"sync"
	"weak"
)

// defaultTransientSize is the transient capacity for keys without history.
const defaultTransientSize = 1024 * 1024

// sizeWindow is how many releases are averaged per key before the history is
// folded into a single sample.
const sizeWindow = 50

// Pool hands out independent arenas so each goroutine allocates from its own
// Arena without locking.
//
// Idle arenas are held through weak pointers, so the GC can collect them at
// any time. Acquire turns a weak pointer back into a strong one while popping
// it off the pool; Release resets the arena and turns it back into a weak
// pointer. A cleanup frees the backing storage of arenas the GC collected.
// This lets the GC size the pool according to memory pressure.
type Pool struct {
	pool  []weak.Pointer[PoolItem]
	sizes map[uint64]*poolItemSize
	mu    sync.Mutex

	permanentSize uintptr
	opts          []Option
}

// poolItemSize tracks the transient peaks observed for one key.
type poolItemSize struct {
	count      int
	totalBytes int
}

// PoolItem wraps an Arena for use in the pool.
type PoolItem struct {
	Arena *Arena
	Key   uint64
}

// NewArenaPool creates a pool whose arenas get permanentSize bytes of
// permanent memory and are built with opts.
func NewArenaPool(permanentSize uintptr, opts ...Option) *Pool {
	return &Pool{
		sizes:         make(map[uint64]*poolItemSize),
		permanentSize: permanentSize,
		opts:          opts,
	}
}

// Acquire gets an arena from the pool or creates a new one if none are
// available. key identifies the use case; new arenas get a transient region
// sized from the peaks previously recorded for it.
func (p *Pool) Acquire(key uint64) (*PoolItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.pool) > 0 {
		lastIdx := len(p.pool) - 1
		wp := p.pool[lastIdx]
		p.pool = p.pool[:lastIdx]

		if v := wp.Value(); v != nil {
			v.Key = key
			return v, nil
		}
	}

	a, err := New(p.permanentSize, uintptr(p.transientSize(key)), p.opts...)
	if err != nil {
		return nil, err
	}
	item := &PoolItem{Arena: a, Key: key}
	runtime.AddCleanup(item, func(a *Arena) { _ = a.Free() }, a)
	return item, nil
}

// Release resets the item's transient region and returns it to the pool.
// The transient peak is recorded to size future arenas for the same key.
func (p *Pool) Release(item *PoolItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.release(item)
}

// ReleaseMany returns several items under a single lock.
func (p *Pool) ReleaseMany(items []*PoolItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, item := range items {
		p.release(item)
	}
}

func (p *Pool) release(item *PoolItem) {
	peak := item.Arena.Stats().Transient.Peak
	item.Arena.Reset()

	if size, ok := p.sizes[item.Key]; ok {
		if size.count == sizeWindow {
			size.count = 1
			size.totalBytes = size.totalBytes / sizeWindow
		}
		size.count++
		size.totalBytes += peak
	} else {
		p.sizes[item.Key] = &poolItemSize{count: 1, totalBytes: peak}
	}

	item.Key = 0
	p.pool = append(p.pool, weak.Make(item))
}

// transientSize returns the average recorded transient peak for key.
func (p *Pool) transientSize(key uint64) int {
	if size, ok := p.sizes[key]; ok && size.totalBytes > 0 {
		return size.totalBytes / size.count
	}
	return defaultTransientSize
}
