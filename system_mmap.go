// SPDX-License-Identifier: Apache-2.0

//go:build linux || darwin

package alloc

import (
	"log/slog"
	"unsafe"

	"golang.org/x/sys/unix"
)

// MmapSystem obtains memory from anonymous private mappings, outside the Go heap.
// Freed blocks are unmapped and returned to the operating system.
type MmapSystem struct {
	logger *slog.Logger
}

// NewMmapSystem returns a System backed by mmap. Only WithLogger is relevant to it.
func NewMmapSystem(opts ...Option) (*MmapSystem, error) {
	c := newConfig(opts)
	return &MmapSystem{logger: c.logger}, nil
}

// Malloc satisfies the System interface.
func (s *MmapSystem) Malloc(size uintptr) unsafe.Pointer {
	if size == 0 {
		return nil
	}
	data, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		s.logger.Debug("mmap failed", "size", size, "error", err)
		return nil
	}
	return unsafe.Pointer(unsafe.SliceData(data))
}

// Realloc satisfies the System interface.
func (s *MmapSystem) Realloc(ptr unsafe.Pointer, oldSize, newSize uintptr) unsafe.Pointer {
	p := s.Malloc(newSize)
	if p == nil {
		return nil
	}
	copyBytes(p, ptr, min(oldSize, newSize))
	s.Free(ptr, oldSize)
	return p
}

// Free satisfies the System interface.
// The mapping is looked up by its exact extent, so size must match Malloc.
func (s *MmapSystem) Free(ptr unsafe.Pointer, size uintptr) {
	if ptr == nil || size == 0 {
		return
	}
	if err := unix.Munmap(unsafe.Slice((*byte)(ptr), size)); err != nil {
		s.logger.Error("munmap failed, mapping leaked", "ptr", ptr, "size", size, "error", err)
	}
}
