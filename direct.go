// SPDX-License-Identifier: Apache-2.0

package alloc

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"unsafe"
)

// OOMHandler is invoked when the system memory source fails. Its job is to
// create headroom, typically by freeing memory held elsewhere. Returning an
// error aborts the allocation and the error is propagated to the caller.
type OOMHandler func() error

// Direct forwards every request to the System. When the System fails, the
// installed OOMHandler is called and the request retried until it succeeds,
// the handler fails, or no handler is installed.
type Direct struct {
	system  System
	handler atomic.Pointer[OOMHandler]
	logger  *slog.Logger
}

// NewDirect returns a direct allocator. Only WithSystem, WithOOMHandler and
// WithLogger are relevant to it.
func NewDirect(opts ...Option) *Direct {
	c := newConfig(opts)
	return newDirect(c)
}

func newDirect(c config) *Direct {
	d := &Direct{
		system: c.system,
		logger: c.logger,
	}
	if c.oom != nil {
		d.SetOOMHandler(c.oom)
	}
	return d
}

// SetOOMHandler installs handler and returns the one it replaced.
// A nil handler makes the next system failure fatal to the request.
func (d *Direct) SetOOMHandler(handler OOMHandler) OOMHandler {
	var next *OOMHandler
	if handler != nil {
		next = &handler
	}
	if prev := d.handler.Swap(next); prev != nil {
		return *prev
	}
	return nil
}

// Allocate satisfies the Allocator interface.
func (d *Direct) Allocate(size uintptr) (unsafe.Pointer, error) {
	if size == 0 {
		return nil, nil
	}
	if p := d.system.Malloc(size); p != nil {
		return p, nil
	}
	return d.retry(size, func() unsafe.Pointer {
		return d.system.Malloc(size)
	})
}

// Deallocate satisfies the Allocator interface.
func (d *Direct) Deallocate(ptr unsafe.Pointer, size uintptr) {
	if ptr == nil || size == 0 {
		return
	}
	d.system.Free(ptr, size)
}

// Reallocate satisfies the Allocator interface.
// On failure the original block is left untouched.
func (d *Direct) Reallocate(ptr unsafe.Pointer, oldSize, newSize uintptr) (unsafe.Pointer, error) {
	if ptr == nil || oldSize == 0 {
		return d.Allocate(newSize)
	}
	if newSize == 0 {
		d.Deallocate(ptr, oldSize)
		return nil, nil
	}
	if p := d.system.Realloc(ptr, oldSize, newSize); p != nil {
		return p, nil
	}
	return d.retry(newSize, func() unsafe.Pointer {
		return d.system.Realloc(ptr, oldSize, newSize)
	})
}

// retry runs the out-of-memory protocol. The handler is re-read on every
// iteration so a replacement takes effect on the next attempt.
func (d *Direct) retry(size uintptr, attempt func() unsafe.Pointer) (unsafe.Pointer, error) {
	for n := 1; ; n++ {
		h := d.handler.Load()
		if h == nil {
			d.logger.Warn("system allocation failed, no out-of-memory handler installed", "size", size)
			return nil, fmt.Errorf("%w: %d bytes", ErrOutOfMemory, size)
		}
		d.logger.Warn("system allocation failed, invoking out-of-memory handler", "size", size, "attempt", n)
		if err := (*h)(); err != nil {
			return nil, fmt.Errorf("alloc: out-of-memory handler: %w", err)
		}
		if p := attempt(); p != nil {
			return p, nil
		}
	}
}
