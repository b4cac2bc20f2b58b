// SPDX-License-Identifier: Apache-2.0

package primes

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	arena "github.com/wundergraph/go-region-arena"
)

func newArena(t *testing.T, transient uintptr) *arena.Arena {
	t.Helper()
	a, err := arena.New(1024, transient, arena.WithLogger(slog.New(slog.NewTextHandler(discard{}, nil))))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Free()) })
	return a
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestIsPrime(t *testing.T) {
	var found []uint64
	for i := uint64(0); i < 50; i++ {
		if IsPrime(i) {
			found = append(found, i)
		}
	}
	require.Equal(t, []uint64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47}, found)

	require.True(t, IsPrime(7919))
	require.False(t, IsPrime(7917))
	require.True(t, IsPrime(4294967291))
	require.False(t, IsPrime(4294967291*3))
}

func TestGenerateAndReadFile(t *testing.T) {
	a := newArena(t, 1<<20)
	path := filepath.Join(t.TempDir(), "primes.bin")

	count, err := Generate(a.Transient(), path, 50)
	require.NoError(t, err)
	require.Equal(t, uint64(15), count)
	require.Zero(t, a.Stats().Transient.Used)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, raw, 8+15*8)
	require.Equal(t, uint64(15), binary.LittleEndian.Uint64(raw))
	require.Equal(t, uint64(2), binary.LittleEndian.Uint64(raw[8:]))

	table, err := ReadFile(a.Transient(), path)
	require.NoError(t, err)
	require.Equal(t, []uint64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47}, table)
	require.Equal(t, uint64(47*47), Limit(table))
}

func TestGenerateFlushes(t *testing.T) {
	a := newArena(t, 1<<20)
	path := filepath.Join(t.TempDir(), "primes.bin")

	// 9592 primes below 100000 need more than one flush.
	count, err := Generate(a.Transient(), path, 100000)
	require.NoError(t, err)
	require.Equal(t, uint64(9592), count)

	a.Reset()
	table, err := ReadFile(a.Transient(), path)
	require.NoError(t, err)
	require.Len(t, table, 9592)
	require.Equal(t, uint64(99991), table[len(table)-1])
}

func TestGenerateNothing(t *testing.T) {
	a := newArena(t, 4096)
	path := filepath.Join(t.TempDir(), "primes.bin")

	count, err := Generate(a.Transient(), path, 2)
	require.NoError(t, err)
	require.Zero(t, count)

	_, err = ReadFile(a.Transient(), path)
	require.True(t, errors.Is(err, ErrCorrupt))
}

func TestReadFileErrors(t *testing.T) {
	a := newArena(t, 4096)
	dir := t.TempDir()

	_, err := ReadFile(a.Transient(), filepath.Join(dir, "missing.bin"))
	require.ErrorIs(t, err, os.ErrNotExist)

	write := func(name string, words ...uint64) string {
		b := make([]byte, 8*len(words))
		for i, w := range words {
			binary.LittleEndian.PutUint64(b[i*8:], w)
		}
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, b, 0o600))
		return path
	}

	for name, path := range map[string]string{
		"short header": func() string {
			p := filepath.Join(dir, "short.bin")
			require.NoError(t, os.WriteFile(p, []byte{1, 2, 3}, 0o600))
			return p
		}(),
		"truncated":   write("truncated.bin", 3, 2, 3),
		"trailing":    write("trailing.bin", 1, 2, 3),
		"not two":     write("nottwo.bin", 2, 3, 5),
		"huge header": write("huge.bin", math.MaxUint64, 2),
	} {
		_, err := ReadFile(a.Transient(), path)
		require.True(t, errors.Is(err, ErrCorrupt), "%s: %v", name, err)
	}
}

func TestReadFileOutOfMemory(t *testing.T) {
	a := newArena(t, 1<<20)
	path := filepath.Join(t.TempDir(), "primes.bin")
	_, err := Generate(a.Transient(), path, 10000)
	require.NoError(t, err)

	small := newArena(t, 256)
	_, err = ReadFile(small.Transient(), path)
	require.True(t, errors.Is(err, arena.ErrOutOfMemory))
}

func TestLimit(t *testing.T) {
	require.Zero(t, Limit(nil))
	require.Equal(t, uint64(4), Limit([]uint64{2}))
	require.Equal(t, uint64(math.MaxUint64), Limit([]uint64{2, 1 << 32}))
}
