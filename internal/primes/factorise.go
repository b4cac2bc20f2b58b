// SPDX-License-Identifier: Apache-2.0

package primes

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/exp/slices"

	arena "github.com/wundergraph/go-region-arena"
)

// ErrOutOfRange is returned for numbers a table cannot factorise.
var ErrOutOfRange = errors.New("primes: number out of range")

// maxFactors bounds the prime factors of any uint64, counted with
// multiplicity.
const maxFactors = 64

// Factorisation describes the prime factors of N. Its slices live in the
// allocator passed to Factorise.
type Factorisation struct {
	N uint64
	// Primes are the distinct primes dividing N in ascending order.
	Primes []uint64
	// Factors is every prime factor with multiplicity in the order they were
	// found: each pass divides once by every prime that still divides.
	Factors []uint64
	// Sorted holds Factors in ascending order.
	Sorted []uint64
	// Occurrences[i] is N / Primes[i], the position of N among the multiples
	// of that prime.
	Occurrences []uint64
	// Combined is N divided by the product of Primes.
	Combined uint64
}

// Even reports whether N is even.
func (f *Factorisation) Even() bool { return f.N&1 == 0 }

// Single reports whether N is a power of a single prime.
func (f *Factorisation) Single() bool { return len(f.Primes) == 1 }

// Factorise splits n into prime factors using table, which must start with 2
// and be ascending. n must be between 2 and Limit(table).
func Factorise(al arena.Allocator, table []uint64, n uint64) (Factorisation, error) {
	if len(table) == 0 || table[0] != 2 {
		return Factorisation{}, errors.Wrap(ErrCorrupt, "factorise: empty table")
	}
	if limit := Limit(table); n < 2 || n > limit {
		return Factorisation{}, errors.Wrapf(ErrOutOfRange, "%d is not between 2 and %d", n, limit)
	}

	f := Factorisation{N: n}

	var err error
	rem := n
	for _, p := range table {
		if p > rem/p {
			break
		}
		if rem%p != 0 {
			continue
		}
		if f.Primes, err = arena.SliceAppend(al, f.Primes, p); err != nil {
			return Factorisation{}, err
		}
		for rem%p == 0 {
			rem /= p
		}
	}
	// Whatever is left has no factor up to its square root.
	if rem > 1 {
		if f.Primes, err = arena.SliceAppend(al, f.Primes, rem); err != nil {
			return Factorisation{}, err
		}
	}

	layer, err := arena.AllocateSlice[uint64](al, len(f.Primes), len(f.Primes))
	if err != nil {
		return Factorisation{}, err
	}
	copy(layer, f.Primes)

	if f.Factors, err = arena.AllocateSlice[uint64](al, 0, maxFactors); err != nil {
		return Factorisation{}, err
	}
	rem = n
	for rem > 1 {
		next := layer[:0]
		for _, p := range layer {
			if rem%p == 0 {
				rem /= p
				f.Factors = append(f.Factors, p)
				next = append(next, p)
			}
		}
		layer = next
	}

	if f.Sorted, err = arena.AllocateSlice[uint64](al, len(f.Factors), len(f.Factors)); err != nil {
		return Factorisation{}, err
	}
	copy(f.Sorted, f.Factors)
	slices.Sort(f.Sorted)

	if f.Occurrences, err = arena.AllocateSlice[uint64](al, len(f.Primes), len(f.Primes)); err != nil {
		return Factorisation{}, err
	}
	product := uint64(1)
	for i, p := range f.Primes {
		f.Occurrences[i] = n / p
		product *= p
	}
	f.Combined = n / product

	return f, nil
}

// Ordinal returns the English ordinal suffix for v: "st", "nd", "rd" or "th".
func Ordinal(v uint64) string {
	if v%100 >= 11 && v%100 <= 13 {
		return "th"
	}
	switch v % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	}
	return "th"
}
