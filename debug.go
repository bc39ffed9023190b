// SPDX-License-Identifier: Apache-2.0

package alloc

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// debugState records every block handed out so misuse can be reported instead
// of silently corrupting a free list. All methods accept a nil receiver.
type debugState struct {
	busy atomic.Bool
	live map[unsafe.Pointer]uintptr // block -> requested size
}

func newDebugState() *debugState {
	return &debugState{live: make(map[unsafe.Pointer]uintptr)}
}

// acquire marks the pool as owned by the calling goroutine for the duration
// of one operation.
func (d *debugState) acquire() {
	if !d.busy.CompareAndSwap(false, true) {
		panic(ErrConcurrentUse)
	}
}

func (d *debugState) release() {
	d.busy.Store(false)
}

// unguarded wraps an out-of-memory handler so the pool is released while it
// runs and reacquired once it returns.
func (d *debugState) unguarded(handler OOMHandler) OOMHandler {
	return func() error {
		d.release()
		defer d.acquire()
		return handler()
	}
}

func (d *debugState) track(ptr unsafe.Pointer, size uintptr) {
	if d == nil {
		return
	}
	d.live[ptr] = size
}

func (d *debugState) untrack(ptr unsafe.Pointer) {
	if d == nil {
		return
	}
	delete(d.live, ptr)
}

// verify panics unless ptr is live and size maps to the block it was allocated as.
func (d *debugState) verify(op string, ptr unsafe.Pointer, size uintptr, classes sizeClasses) {
	if d == nil {
		return
	}
	allocated, ok := d.live[ptr]
	if !ok {
		panic(fmt.Errorf("%w: %s of %p (%d bytes): block is not allocated or was already freed",
			ErrMisuse, op, ptr, size))
	}
	var same bool
	switch {
	case classes.small(allocated) && classes.small(size):
		same = classes.classOf(allocated) == classes.classOf(size)
	default:
		same = allocated == size
	}
	if !same {
		panic(fmt.Errorf("%w: %s of %p with %d bytes, allocated with %d bytes",
			ErrMisuse, op, ptr, size, allocated))
	}
}

// reset forgets the blocks that lived in arena memory.
func (d *debugState) reset(classes sizeClasses) {
	if d == nil {
		return
	}
	for ptr, size := range d.live {
		if classes.small(size) {
			delete(d.live, ptr)
		}
	}
}
