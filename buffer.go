// SPDX-License-Identifier: Apache-2.0

package alloc

import (
	"io"
)

// Buffer is a bytes.Buffer-like struct whose storage comes from an Allocator.
// It implements io.Writer, io.Reader, io.ReaderFrom and io.WriterTo.
// Storage grows through Reallocate; call Release to give it back.
type Buffer struct {
	a       Allocator
	buf     []byte // unread bytes
	readBuf []byte // intermediate buffer for ReadFrom
}

// NewBuffer creates a new Buffer backed by the given allocator.
func NewBuffer(a Allocator) *Buffer {
	return &Buffer{a: a}
}

// Write implements io.Writer interface.
// It writes len(p) bytes from p to the buffer.
func (b *Buffer) Write(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	buf, err := SliceAppend(b.a, b.buf, p...)
	if err != nil {
		return 0, err
	}
	b.buf = buf
	return len(p), nil
}

// WriteByte writes a single byte to the buffer.
func (b *Buffer) WriteByte(c byte) error {
	buf, err := SliceAppend(b.a, b.buf, c)
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

// WriteTo implements io.WriterTo interface.
func (b *Buffer) WriteTo(w io.Writer) (n int64, err error) {
	if len(b.buf) == 0 {
		return 0, nil
	}

	m, err := w.Write(b.buf)
	if m > 0 {
		n += int64(m)
		b.consume(m)
	}
	return n, err
}

// Read reads up to len(p) bytes from the buffer into p.
// It returns io.EOF once the buffer is drained.
func (b *Buffer) Read(p []byte) (n int, err error) {
	if len(b.buf) == 0 {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n = copy(p, b.buf)
	b.consume(n)
	return n, nil
}

// ReadByte reads and returns the next byte from the buffer.
func (b *Buffer) ReadByte() (byte, error) {
	if len(b.buf) == 0 {
		return 0, io.EOF
	}
	c := b.buf[0]
	b.consume(1)
	return c, nil
}

// consume drops the first n unread bytes, keeping the storage in place.
func (b *Buffer) consume(n int) {
	copy(b.buf, b.buf[n:])
	b.buf = b.buf[:len(b.buf)-n]
}

// Bytes returns a slice of length b.Len() holding the unread portion of the buffer.
// The slice is valid for use only until the next buffer modification.
func (b *Buffer) Bytes() []byte {
	if len(b.buf) == 0 {
		return []byte{}
	}
	return b.buf
}

// String returns the contents of the unread portion of the buffer as a string.
func (b *Buffer) String() string {
	return string(b.buf)
}

// Len returns the number of bytes of the unread portion of the buffer.
func (b *Buffer) Len() int {
	return len(b.buf)
}

// Cap returns the capacity of the buffer's storage.
func (b *Buffer) Cap() int {
	return cap(b.buf)
}

// Reset resets the buffer to be empty but keeps its storage.
func (b *Buffer) Reset() {
	b.buf = b.buf[:0]
}

// Truncate discards all but the first n unread bytes from the buffer.
// It panics if n is negative or greater than the length of the buffer.
func (b *Buffer) Truncate(n int) {
	if n < 0 || n > len(b.buf) {
		panic("alloc: truncation out of range")
	}
	b.buf = b.buf[:n]
}

// Next returns a slice containing the next n bytes from the buffer,
// advancing the buffer as if the bytes had been returned by Read.
// The returned slice is a copy owned by the caller.
func (b *Buffer) Next(n int) []byte {
	n = min(max(n, 0), len(b.buf))
	if n == 0 {
		return []byte{}
	}
	result := make([]byte, n)
	copy(result, b.buf[:n])
	b.consume(n)
	return result
}

// ReadFrom implements io.ReaderFrom interface.
// It reads data from r until EOF or error, writing it to the buffer.
// The intermediate read buffer is allocated from the allocator.
func (b *Buffer) ReadFrom(r io.Reader) (n int64, err error) {
	if b.readBuf == nil {
		const readBufferSize = 4 * 1024 // 4KB read buffer
		if b.readBuf, err = MakeSlice[byte](b.a, readBufferSize, readBufferSize); err != nil {
			return 0, err
		}
	}

	for {
		nr, er := r.Read(b.readBuf)
		if nr > 0 {
			if _, ew := b.Write(b.readBuf[:nr]); ew != nil {
				return n, ew
			}
			n += int64(nr)
		}
		if er != nil {
			if er == io.EOF {
				return n, nil
			}
			return n, er
		}
	}
}

// Release returns the buffer's storage to the allocator and empties it.
func (b *Buffer) Release() {
	FreeSlice(b.a, b.buf)
	FreeSlice(b.a, b.readBuf)
	b.buf = nil
	b.readBuf = nil
}
