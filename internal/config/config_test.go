// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	arena "github.com/wundergraph/go-region-arena"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "primefactor.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.Equal(t, uint64(2<<20), cfg.Memory.Permanent)
	require.Equal(t, uint64(2<<20), cfg.Memory.Transient)
	require.True(t, cfg.Memory.ZeroFill)
	require.Equal(t, BackingHeap, cfg.Memory.Backing)
	require.Equal(t, DefaultPrimeFile, cfg.PrimeFile)
	require.NoError(t, cfg.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
verbose = true
prime_file = "table.bin"
trace_endpoint = "http://localhost:14268/api/traces"

[memory]
transient = 65536
alignment = 64
backing = "mmap"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.True(t, cfg.Verbose)
	require.Equal(t, "table.bin", cfg.PrimeFile)
	require.Equal(t, "http://localhost:14268/api/traces", cfg.TraceEndpoint)
	require.Equal(t, uint64(2<<20), cfg.Memory.Permanent)
	require.Equal(t, uint64(65536), cfg.Memory.Transient)
	require.Equal(t, uint64(64), cfg.Memory.Alignment)
	require.Equal(t, BackingMmap, cfg.Memory.Backing)
	require.True(t, cfg.Memory.ZeroFill)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown key", "[memory]\nsize = 10\n", "unknown keys memory.size"},
		{"bad alignment", "[memory]\nalignment = 12\n", "memory.alignment 12"},
		{"small alignment", "[memory]\nalignment = 4\n", "memory.alignment 4"},
		{"bad backing", "[memory]\nbacking = \"disk\"\n", `memory.backing "disk"`},
		{"empty prime file", "prime_file = \"\"\n", "prime_file must not be empty"},
		{"syntax", "[memory\n", "loading config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Memory.Transient = 1 << 16

	var buf bytes.Buffer
	require.NoError(t, cfg.Encode(&buf))
	require.Contains(t, buf.String(), "[memory]")

	var decoded Config
	_, err := toml.Decode(buf.String(), &decoded)
	require.NoError(t, err)
	require.Equal(t, *cfg, decoded)
}

func TestArenaOptions(t *testing.T) {
	cfg := Default()
	cfg.Memory.Permanent = 4096
	cfg.Memory.Transient = 8192
	cfg.Memory.Alignment = 1024

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	a, err := arena.New(uintptr(cfg.Memory.Permanent), uintptr(cfg.Memory.Transient), cfg.ArenaOptions(logger)...)
	require.NoError(t, err)
	defer a.Free()

	b, err := a.TransientAllocate(8, false, arena.WordSize)
	require.NoError(t, err)
	require.Equal(t, 0, int(b[0]))
	require.Equal(t, 8192, a.Stats().Transient.Capacity)
}
