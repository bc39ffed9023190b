// SPDX-License-Identifier: Apache-2.0

package alloc

import (
	"unsafe"
)

// System is the underlying memory source, the equivalent of malloc, realloc and free.
// Every method reports failure by returning nil; a failed Realloc leaves the
// original block untouched.
type System interface {
	// Malloc returns size bytes of memory or nil.
	Malloc(size uintptr) unsafe.Pointer

	// Realloc resizes the block at ptr from oldSize to newSize bytes, keeping
	// the first min(oldSize, newSize) bytes. It returns the (possibly moved)
	// block or nil.
	Realloc(ptr unsafe.Pointer, oldSize, newSize uintptr) unsafe.Pointer

	// Free releases a block previously returned by Malloc or Realloc.
	// size must be the size the block was obtained with.
	Free(ptr unsafe.Pointer, size uintptr)
}

// HeapSystem obtains memory from the Go heap.
// Blocks are kept alive by the pointers referencing them and reclaimed by the
// garbage collector once unreachable, so Free only drops the reference.
// Memory is byte-typed: values stored in it must not hold Go pointers.
type HeapSystem struct {
	alignment uintptr
}

// NewHeapSystem returns a HeapSystem whose blocks are aligned to DefaultAlignment.
func NewHeapSystem() *HeapSystem {
	return &HeapSystem{alignment: DefaultAlignment}
}

// Malloc satisfies the System interface.
func (s *HeapSystem) Malloc(size uintptr) unsafe.Pointer {
	if size == 0 {
		return nil
	}
	align := s.alignment
	if align == 0 {
		align = DefaultAlignment
	}
	buf := make([]byte, size+align-1) // padding for alignment
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	shift := (align - addr%align) % align
	return unsafe.Pointer(&buf[shift])
}

// Realloc satisfies the System interface.
func (s *HeapSystem) Realloc(ptr unsafe.Pointer, oldSize, newSize uintptr) unsafe.Pointer {
	p := s.Malloc(newSize)
	if p == nil {
		return nil
	}
	copyBytes(p, ptr, min(oldSize, newSize))
	return p
}

// Free satisfies the System interface.
func (s *HeapSystem) Free(unsafe.Pointer, uintptr) {}

func copyBytes(dst, src unsafe.Pointer, n uintptr) {
	if n == 0 {
		return
	}
	copy(unsafe.Slice((*byte)(dst), n), unsafe.Slice((*byte)(src), n))
}
