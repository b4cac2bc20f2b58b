// SPDX-License-Identifier: Apache-2.0

//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package arena

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

// MmapBacking maps anonymous private memory for the regions. The pages live
// outside the Go heap and are returned to the operating system on Release.
type MmapBacking struct{}

// Allocate satisfies the Backing interface. Mappings are page aligned, so
// alignments above the page size are rejected.
func (MmapBacking) Allocate(size, alignment uintptr) ([]byte, error) {
	if pageSize := uintptr(unix.Getpagesize()); alignment > pageSize {
		return nil, errors.Newf("mmap backing: alignment %d exceeds the page size %d", alignment, pageSize)
	}
	mem, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, errors.Wrapf(err, "mmap backing: mapping %d bytes", size)
	}
	return mem, nil
}

// Release satisfies the Backing interface.
func (MmapBacking) Release(mem []byte) error {
	return errors.Wrap(unix.Munmap(mem), "mmap backing: unmapping")
}
