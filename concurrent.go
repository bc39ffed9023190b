// SPDX-License-Identifier: Apache-2.0

package alloc

import (
	"sync"
	"unsafe"
)

type concurrentAllocator struct {
	mtx sync.Mutex
	a   Allocator
}

// NewConcurrentAllocator returns an allocator that is safe to be accessed
// concurrently from multiple goroutines. A single lock serializes every call.
//
// The lock is not reentrant. An out-of-memory handler installed on the
// wrapped allocator runs with the lock held and must not call back through
// the returned allocator, or it deadlocks.
func NewConcurrentAllocator(a Allocator) Allocator {
	return &concurrentAllocator{a: a}
}

// Allocate satisfies the Allocator interface.
func (a *concurrentAllocator) Allocate(size uintptr) (unsafe.Pointer, error) {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	if a.a == nil {
		return nil, ErrOutOfMemory
	}
	return a.a.Allocate(size)
}

// Deallocate satisfies the Allocator interface.
func (a *concurrentAllocator) Deallocate(ptr unsafe.Pointer, size uintptr) {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	if a.a == nil {
		return
	}
	a.a.Deallocate(ptr, size)
}

// Reallocate satisfies the Allocator interface.
func (a *concurrentAllocator) Reallocate(ptr unsafe.Pointer, oldSize, newSize uintptr) (unsafe.Pointer, error) {
	a.mtx.Lock()
	defer a.mtx.Unlock()
	if a.a == nil {
		return nil, ErrOutOfMemory
	}
	return a.a.Reallocate(ptr, oldSize, newSize)
}
