// SPDX-License-Identifier: Apache-2.0

package alloc

import (
	"log/slog"
	"sync/atomic"
	"unsafe"
)

// Pool is a segregated free-list allocator for small blocks.
//
// Requests up to MaxBytes are rounded up to a multiple of the alignment and
// served from a per-size-class free list. Empty lists are refilled with a batch
// of blocks carved from a bump arena, which is grown from the System in
// increasingly large chunks. Larger requests are forwarded to a Direct allocator.
//
// Freed blocks are cached, never coalesced and never returned to the System
// until Release is called. The caller must pass the same size to Deallocate
// that was used to allocate the block; a wrong size or a double free corrupts
// the free lists unless debug mode is enabled.
//
// A Pool is not safe for concurrent use. Wrap it with NewConcurrentAllocator
// when it has to be shared between goroutines.
type Pool struct {
	classes sizeClasses
	batch   int
	system  System
	direct  *Direct
	handler atomic.Pointer[OOMHandler] // as installed by the caller
	logger  *slog.Logger

	lists    []freeList
	arena    arena
	heapSize uintptr // bytes ever obtained from the System for the arena
	chunks   []chunk

	debug *debugState
}

// NewPool creates a pool. Without options it uses 8-byte size classes up to
// 128 bytes, refills 20 blocks at a time and takes memory from the Go heap.
// It panics if the configuration is invalid.
func NewPool(opts ...Option) *Pool {
	c := newConfig(opts)
	c.validate()
	p := &Pool{
		classes: sizeClasses{alignment: c.alignment, maxBytes: c.maxBytes},
		batch:   c.batch,
		system:  c.system,
		logger:  c.logger,
	}
	oom := c.oom
	c.oom = nil
	p.direct = newDirect(c)
	p.lists = make([]freeList, p.classes.count())
	if c.debug {
		p.debug = newDebugState()
	}
	if oom != nil {
		p.SetOOMHandler(oom)
	}
	return p
}

// SetOOMHandler installs the handler used for blocks above MaxBytes and
// returns the one it replaced. Arena growth never invokes the handler.
//
// The handler runs while the pool is between operations, so it may free
// cached blocks back to the pool or allocate from it.
func (p *Pool) SetOOMHandler(handler OOMHandler) OOMHandler {
	var next *OOMHandler
	installed := handler
	if handler != nil {
		next = &handler
		if p.debug != nil {
			installed = p.debug.unguarded(handler)
		}
	}
	p.direct.SetOOMHandler(installed)
	if prev := p.handler.Swap(next); prev != nil {
		return *prev
	}
	return nil
}

// Allocate satisfies the Allocator interface.
// Allocate(0) returns nil without touching the pool.
func (p *Pool) Allocate(size uintptr) (unsafe.Pointer, error) {
	if p.debug != nil {
		p.debug.acquire()
		defer p.debug.release()
	}
	return p.allocate(size)
}

// Deallocate satisfies the Allocator interface.
func (p *Pool) Deallocate(ptr unsafe.Pointer, size uintptr) {
	if p.debug != nil {
		p.debug.acquire()
		defer p.debug.release()
	}
	p.deallocate(ptr, size)
}

// Reallocate satisfies the Allocator interface.
// Sizes of the same class keep the block in place. Otherwise a new block is
// allocated, min(oldSize, newSize) bytes are copied and the old block is freed.
// If the new block cannot be allocated, ptr is left valid and untouched.
func (p *Pool) Reallocate(ptr unsafe.Pointer, oldSize, newSize uintptr) (unsafe.Pointer, error) {
	if p.debug != nil {
		p.debug.acquire()
		defer p.debug.release()
	}
	return p.reallocate(ptr, oldSize, newSize)
}

func (p *Pool) allocate(size uintptr) (unsafe.Pointer, error) {
	if size == 0 {
		return nil, nil
	}
	var (
		ptr unsafe.Pointer
		err error
	)
	if !p.classes.small(size) {
		ptr, err = p.direct.Allocate(size)
	} else if ptr = p.lists[p.classes.classOf(size)].pop(); ptr == nil {
		ptr, err = p.refill(p.classes.roundUp(size))
	}
	if err != nil {
		return nil, err
	}
	p.debug.track(ptr, size)
	return ptr, nil
}

func (p *Pool) deallocate(ptr unsafe.Pointer, size uintptr) {
	if ptr == nil || size == 0 {
		return
	}
	p.debug.verify("deallocate", ptr, size, p.classes)
	p.debug.untrack(ptr)
	if !p.classes.small(size) {
		p.direct.Deallocate(ptr, size)
		return
	}
	p.lists[p.classes.classOf(size)].push(ptr)
}

func (p *Pool) reallocate(ptr unsafe.Pointer, oldSize, newSize uintptr) (unsafe.Pointer, error) {
	if ptr == nil || oldSize == 0 {
		return p.allocate(newSize)
	}
	if newSize == 0 {
		p.deallocate(ptr, oldSize)
		return nil, nil
	}
	p.debug.verify("reallocate", ptr, oldSize, p.classes)

	oldSmall, newSmall := p.classes.small(oldSize), p.classes.small(newSize)
	switch {
	case !oldSmall && !newSmall:
		np, err := p.direct.Reallocate(ptr, oldSize, newSize)
		if err != nil {
			return nil, err
		}
		p.debug.untrack(ptr)
		p.debug.track(np, newSize)
		return np, nil
	case oldSmall && newSmall && p.classes.classOf(oldSize) == p.classes.classOf(newSize):
		p.debug.track(ptr, newSize)
		return ptr, nil
	}

	np, err := p.allocate(newSize)
	if err != nil {
		return nil, err
	}
	copyBytes(np, ptr, min(oldSize, newSize))
	p.deallocate(ptr, oldSize)
	return np, nil
}

// refill carves a batch of size-byte blocks, keeps the first for the caller
// and threads the rest onto the class free list in address order.
func (p *Pool) refill(size uintptr) (unsafe.Pointer, error) {
	block, n, err := p.carve(size, p.batch)
	if err != nil {
		return nil, err
	}
	if n == 1 {
		return block, nil
	}
	list := &p.lists[p.classes.classOf(size)]
	for i := n - 1; i >= 1; i-- {
		list.push(unsafe.Add(block, uintptr(i)*size))
	}
	return block, nil
}

// Release returns every arena chunk to the System and resets the pool.
// Any block obtained from the free lists becomes invalid. Blocks above
// MaxBytes are owned by their callers and are not affected.
func (p *Pool) Release() {
	if p.debug != nil {
		p.debug.acquire()
		defer p.debug.release()
	}
	for _, c := range p.chunks {
		p.system.Free(c.ptr, c.size)
	}
	p.logger.Debug("pool released", "chunks", len(p.chunks), "heap_size", p.heapSize)
	p.chunks = nil
	p.lists = make([]freeList, p.classes.count())
	p.arena = arena{}
	p.heapSize = 0
	p.debug.reset(p.classes)
}

// MaxBytes returns the bucket threshold.
func (p *Pool) MaxBytes() int {
	return int(p.classes.maxBytes)
}

// Alignment returns the size-class granularity.
func (p *Pool) Alignment() int {
	return int(p.classes.alignment)
}

// NumClasses returns the number of size classes.
func (p *Pool) NumClasses() int {
	return p.classes.count()
}

// ClassOf returns the size class serving size, or -1 if size is zero or
// above MaxBytes.
func (p *Pool) ClassOf(size int) int {
	if size <= 0 || !p.classes.small(uintptr(size)) {
		return -1
	}
	return p.classes.classOf(uintptr(size))
}

// ClassSize returns the block size of a size class, or -1 if class is not in
// [0, NumClasses()).
func (p *Pool) ClassSize(class int) int {
	if class < 0 || class >= p.classes.count() {
		return -1
	}
	return int(p.classes.classSize(class))
}
