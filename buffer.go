// SPDX-License-Identifier: Apache-2.0

package arena

import (
	"io"
)

// minRead is the spare capacity ReadFrom makes room for before each Read.
const minRead = 512

// Buffer is a bytes.Buffer-like struct backed by an arena allocator.
// It implements io.Writer, io.Reader, io.ReaderFrom and io.WriterTo.
//
// Growth goes through Reallocate. On the transient allocator a buffer that is
// the most recent allocation grows in place, which makes it a cheap way to
// read whole files or build output during a cycle. Allocating something else
// while the buffer is still growing buries it and every later growth copies.
type Buffer struct {
	al  Allocator
	buf []byte
	off int // read offset
}

// NewArenaBuffer creates a new Buffer backed by al.
// If al is nil it falls back to standard Go allocation.
func NewArenaBuffer(al Allocator) *Buffer {
	return &Buffer{al: al}
}

// Grow makes room for at least n more bytes without another allocation.
func (b *Buffer) Grow(n int) error {
	if n <= 0 || cap(b.buf)-len(b.buf) >= n {
		return nil
	}
	grown, err := growSlice(b.al, b.buf, n)
	if err != nil {
		return err
	}
	b.buf = grown
	return nil
}

// Write implements io.Writer. It fails with ErrOutOfMemory when the
// allocator cannot make room for p.
func (b *Buffer) Write(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	buf, err := SliceAppend(b.al, b.buf, p...)
	if err != nil {
		return 0, err
	}
	b.buf = buf
	return len(p), nil
}

// WriteByte writes a single byte to the buffer.
func (b *Buffer) WriteByte(c byte) error {
	buf, err := SliceAppend(b.al, b.buf, c)
	if err != nil {
		return err
	}
	b.buf = buf
	return nil
}

// WriteString writes a string to the buffer.
func (b *Buffer) WriteString(s string) (n int, err error) {
	return b.Write([]byte(s))
}

// WriteTo implements io.WriterTo. It drains the unread portion into w.
func (b *Buffer) WriteTo(w io.Writer) (n int64, err error) {
	if b.Len() == 0 {
		return 0, nil
	}
	data := b.buf[b.off:]
	m, err := w.Write(data)
	b.off += m
	if err == nil && m < len(data) {
		err = io.ErrShortWrite
	}
	return int64(m), err
}

// Read reads up to len(p) bytes from the buffer into p.
// It returns io.EOF once the buffer is drained.
func (b *Buffer) Read(p []byte) (n int, err error) {
	if b.Len() == 0 {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n = copy(p, b.buf[b.off:])
	b.off += n
	return n, nil
}

// ReadByte reads and returns the next byte from the buffer.
func (b *Buffer) ReadByte() (byte, error) {
	if b.Len() == 0 {
		return 0, io.EOF
	}
	c := b.buf[b.off]
	b.off++
	return c, nil
}

// Next returns a slice containing the next n bytes from the buffer,
// advancing the buffer as if the bytes had been returned by Read.
// The slice is only valid until the next buffer modification.
func (b *Buffer) Next(n int) []byte {
	n = max(0, min(n, b.Len()))
	data := b.buf[b.off : b.off+n]
	b.off += n
	return data
}

// ReadFrom implements io.ReaderFrom. It reads from r until EOF straight into
// the buffer's spare capacity.
func (b *Buffer) ReadFrom(r io.Reader) (n int64, err error) {
	for {
		if err := b.Grow(minRead); err != nil {
			return n, err
		}
		m, er := r.Read(b.buf[len(b.buf):cap(b.buf)])
		if m < 0 {
			panic("arena: reader returned negative count from Read")
		}
		b.buf = b.buf[:len(b.buf)+m]
		n += int64(m)
		if er == io.EOF {
			return n, nil
		}
		if er != nil {
			return n, er
		}
	}
}

// Bytes returns the unread portion of the buffer.
// The slice is only valid until the next buffer modification.
func (b *Buffer) Bytes() []byte {
	return b.buf[b.off:]
}

// String returns the unread portion of the buffer as a string.
func (b *Buffer) String() string {
	return string(b.buf[b.off:])
}

// Len returns the number of unread bytes.
func (b *Buffer) Len() int {
	return len(b.buf) - b.off
}

// Cap returns the capacity of the buffer's underlying byte slice.
func (b *Buffer) Cap() int {
	return cap(b.buf)
}

// Reset empties the buffer but keeps its storage.
func (b *Buffer) Reset() {
	b.buf = b.buf[:0]
	b.off = 0
}

// Truncate discards all but the first n unread bytes from the buffer.
// It panics if n is negative or greater than the length of the buffer.
func (b *Buffer) Truncate(n int) {
	if n < 0 || n > b.Len() {
		panic("arena: truncation out of range")
	}
	b.buf = b.buf[:b.off+n]
}

// Free hands the buffer's storage back to the allocator and empties it.
// On the transient allocator this only reclaims memory while the buffer is
// the most recent allocation.
func (b *Buffer) Free() error {
	var err error
	if b.al != nil && cap(b.buf) > 0 {
		err = b.al.Free(b.buf[:cap(b.buf)])
	}
	b.buf = nil
	b.off = 0
	return err
}
