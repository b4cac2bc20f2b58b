// SPDX-License-Identifier: Apache-2.0

//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package arena

import (
	"github.com/cockroachdb/errors"
)

// MmapBacking is unavailable on this platform; every allocation fails with
// ErrNotSupported.
type MmapBacking struct{}

// Allocate satisfies the Backing interface.
func (MmapBacking) Allocate(size, _ uintptr) ([]byte, error) {
	return nil, errors.Wrapf(ErrNotSupported, "mmap backing: mapping %d bytes", size)
}

// Release satisfies the Backing interface.
func (MmapBacking) Release([]byte) error {
	return nil
}
