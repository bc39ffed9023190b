// SPDX-License-Identifier: Apache-2.0

// Package alloc provides a two-tier allocator for small, frequently
// allocated and freed objects.
//
// Direct forwards requests to a System memory source and retries failed
// requests through an out-of-memory handler. Pool caches freed blocks in
// per-size-class free lists and carves new blocks from a bump arena, falling
// back to Direct for blocks above its threshold.
package alloc

import (
	"unsafe"
)

// Allocator is an interface that describes a sized allocator.
// Callers must remember the size of every block: it is passed back on
// Deallocate and Reallocate.
type Allocator interface {
	// Allocate returns a block of at least size bytes.
	// A zero size returns a nil pointer and no error.
	Allocate(size uintptr) (unsafe.Pointer, error)

	// Deallocate returns a block obtained with the given size.
	Deallocate(ptr unsafe.Pointer, size uintptr)

	// Reallocate resizes a block, preserving its first min(oldSize, newSize) bytes.
	// On error the original block is still valid.
	Reallocate(ptr unsafe.Pointer, oldSize, newSize uintptr) (unsafe.Pointer, error)
}

// New allocates memory for a value of type T using the provided Allocator.
// The memory is zeroed. T must not contain Go pointers: the collector does not
// scan allocator memory. Zero-size types are allocated with Go's new function.
func New[T any](a Allocator) (*T, error) {
	var x T
	size := unsafe.Sizeof(x)
	if size == 0 {
		return new(T), nil
	}
	ptr, err := a.Allocate(size)
	if err != nil {
		return nil, err
	}
	clear(unsafe.Slice((*byte)(ptr), size))
	return (*T)(ptr), nil
}

// Delete returns the memory of a value obtained with New.
func Delete[T any](a Allocator, p *T) {
	var x T
	if p == nil || unsafe.Sizeof(x) == 0 {
		return
	}
	a.Deallocate(unsafe.Pointer(p), unsafe.Sizeof(x))
}
