// SPDX-License-Identifier: Apache-2.0

package alloc

import (
	"fmt"
	"unsafe"
)

// arena is the bump region blocks are carved from: [ptr+offset, ptr+size).
type arena struct {
	ptr    unsafe.Pointer
	offset uintptr
	size   uintptr
}

func (a *arena) availableBytes() uintptr {
	return a.size - a.offset
}

// alloc bumps the arena by n bytes. n must be in (0, availableBytes()].
func (a *arena) alloc(n uintptr) unsafe.Pointer {
	p := unsafe.Add(a.ptr, a.offset)
	a.offset += n
	return p
}

// chunk is a region obtained from the System for the arena.
type chunk struct {
	ptr  unsafe.Pointer
	size uintptr
}

// carve takes up to want contiguous blocks of blockSize bytes from the arena.
// It returns the first block and the number of blocks carved, at least one.
// When the arena holds less than one block it is regrown from the System,
// or, if the System fails, from a free block of blockSize's class or larger.
func (p *Pool) carve(blockSize uintptr, want int) (unsafe.Pointer, int, error) {
	for {
		needed := blockSize * uintptr(want)
		left := p.arena.availableBytes()
		switch {
		case left >= needed:
			return p.arena.alloc(needed), want, nil
		case left >= blockSize:
			n := int(left / blockSize)
			return p.arena.alloc(blockSize * uintptr(n)), n, nil
		}
		if p.grow(needed) || p.scavenge(blockSize) {
			continue
		}
		p.arena = arena{}
		p.logger.Error("allocator exhausted", "block_size", blockSize, "heap_size", p.heapSize)
		return nil, 0, fmt.Errorf("%w: no system memory and no free block to scavenge for a %d-byte block",
			ErrOutOfMemory, blockSize)
	}
}

// grow replaces the arena with a fresh chunk of twice the needed bytes plus
// 1/16 of everything obtained so far. The old remainder goes to its own free list.
func (p *Pool) grow(needed uintptr) bool {
	size := 2*needed + p.classes.roundUp(p.heapSize>>4)
	if left := p.arena.availableBytes(); left > 0 {
		p.lists[p.classes.classOf(left)].push(p.arena.alloc(left))
	}
	mem := p.system.Malloc(size)
	if mem == nil {
		p.logger.Warn("system allocation failed, scavenging free lists", "size", size, "heap_size", p.heapSize)
		return false
	}
	p.heapSize += size
	p.chunks = append(p.chunks, chunk{ptr: mem, size: size})
	p.arena = arena{ptr: mem, size: size}
	p.logger.Debug("arena grown", "size", size, "heap_size", p.heapSize)
	return true
}

// scavenge turns the first free block of blockSize's class or larger into the arena.
func (p *Pool) scavenge(blockSize uintptr) bool {
	for c := p.classes.classOf(blockSize); c < len(p.lists); c++ {
		if p.lists[c].empty() {
			continue
		}
		p.arena = arena{ptr: p.lists[c].pop(), size: p.classes.classSize(c)}
		p.logger.Warn("scavenged free block as arena", "class", c, "size", p.arena.size)
		return true
	}
	return false
}
