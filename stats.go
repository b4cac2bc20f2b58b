// SPDX-License-Identifier: Apache-2.0

package arena

// RegionStats is a snapshot of one region's usage. All sizes are in bytes
// and include headers and alignment padding.
type RegionStats struct {
	Capacity  int
	Available int
	Used      int
	// Peak is the high-water mark of Used. It survives Reset.
	Peak        int
	Allocations uint64
}

// Stats is a snapshot of an arena's usage.
type Stats struct {
	Permanent RegionStats
	Transient RegionStats
	// Cycles counts calls to Reset since the arena was initialised.
	Cycles uint64
	// Split reports whether the regions live in two separate backing
	// allocations.
	Split bool
}

// Stats returns a snapshot of the arena's usage. An uninitialised arena
// reports all zeroes.
func (a *Arena) Stats() Stats {
	_, split := a.storage.(splitBacking)
	return Stats{
		Permanent: a.permanent.stats(),
		Transient: a.transient.stats(),
		Cycles:    a.cycles,
		Split:     split,
	}
}

func (r *region) stats() RegionStats {
	return RegionStats{
		Capacity:    int(r.capacity),
		Available:   int(r.available),
		Used:        int(r.used()),
		Peak:        int(r.peak),
		Allocations: r.allocs,
	}
}
