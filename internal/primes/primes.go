// SPDX-License-Identifier: Apache-2.0

// Package primes generates prime tables, stores them on disk and factorises
// numbers against them. Working memory comes from an arena allocator.
//
// A table file holds a little-endian uint64 count followed by that many
// little-endian uint64 primes in ascending order, starting with 2.
package primes

import (
	"encoding/binary"
	"io"
	"math"
	"math/bits"
	"os"
	"unsafe"

	"github.com/cockroachdb/errors"

	arena "github.com/wundergraph/go-region-arena"
)

// ErrCorrupt is returned for table files that do not match their header.
var ErrCorrupt = errors.New("primes: table file corrupt")

// flushSize is how much Generate buffers before writing to the file.
const flushSize = 64 * 1024

// IsPrime reports whether n is prime.
func IsPrime(n uint64) bool {
	switch {
	case n < 2:
		return false
	case n < 4:
		return true
	case n%2 == 0 || n%3 == 0:
		return false
	}
	for i := uint64(5); i <= n/i; i += 6 {
		if n%i == 0 || n%(i+2) == 0 {
			return false
		}
	}
	return true
}

// Generate writes every prime below to into a table file at path and
// returns how many were written. Output is staged in a buffer obtained from
// al, which is released again before returning.
func Generate(al arena.Allocator, path string, to uint64) (count uint64, err error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, errors.Wrap(err, "creating prime table")
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = errors.Wrap(cerr, "closing prime table")
		}
	}()

	buf := arena.NewArenaBuffer(al)
	defer buf.Free()

	var word [8]byte
	// The count is patched in once it is known.
	if _, err := buf.Write(word[:]); err != nil {
		return 0, err
	}

	emit := func(p uint64) error {
		binary.LittleEndian.PutUint64(word[:], p)
		if _, err := buf.Write(word[:]); err != nil {
			return err
		}
		count++
		if buf.Len() >= flushSize {
			if _, err := buf.WriteTo(f); err != nil {
				return errors.Wrap(err, "writing prime table")
			}
			buf.Reset()
		}
		return nil
	}

	if to > 2 {
		if err := emit(2); err != nil {
			return 0, err
		}
	}
	for i := uint64(3); i < to && i > 2; i += 2 {
		if IsPrime(i) {
			if err := emit(i); err != nil {
				return 0, err
			}
		}
	}

	if _, err := buf.WriteTo(f); err != nil {
		return 0, errors.Wrap(err, "writing prime table")
	}
	binary.LittleEndian.PutUint64(word[:], count)
	if _, err := f.WriteAt(word[:], 0); err != nil {
		return 0, errors.Wrap(err, "writing prime table header")
	}
	return count, nil
}

// ReadFile loads the table at path into memory obtained from al.
func ReadFile(al arena.Allocator, path string) ([]uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening prime table")
	}
	defer f.Close()

	var word [8]byte
	if _, err := io.ReadFull(f, word[:]); err != nil {
		return nil, errors.Wrapf(ErrCorrupt, "%s: reading header: %v", path, err)
	}
	count := binary.LittleEndian.Uint64(word[:])

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "opening prime table")
	}
	size := uint64(info.Size())
	if count == 0 || count > math.MaxInt/8 || size-8 != count*8 {
		return nil, errors.Wrapf(ErrCorrupt, "%s: header says %d primes, file has %d bytes", path, count, size)
	}

	table, err := arena.AllocateSlice[uint64](al, int(count), int(count))
	if err != nil {
		return nil, err
	}
	raw := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(table))), len(table)*8)
	if _, err := io.ReadFull(f, raw); err != nil {
		return nil, errors.Wrapf(ErrCorrupt, "%s: reading primes: %v", path, err)
	}
	for i := range table {
		table[i] = binary.LittleEndian.Uint64(raw[i*8:])
	}
	if table[0] != 2 {
		return nil, errors.Wrapf(ErrCorrupt, "%s: first prime is %d", path, table[0])
	}
	return table, nil
}

// Limit is the largest number table can fully factorise: the square of its
// largest prime, saturating at the uint64 range.
func Limit(table []uint64) uint64 {
	if len(table) == 0 {
		return 0
	}
	largest := table[len(table)-1]
	hi, lo := bits.Mul64(largest, largest)
	if hi != 0 {
		return math.MaxUint64
	}
	return lo
}
