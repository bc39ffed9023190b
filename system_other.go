// SPDX-License-Identifier: Apache-2.0

//go:build !linux && !darwin

package alloc

import "unsafe"

// MmapSystem is unavailable on this platform.
type MmapSystem struct{}

// NewMmapSystem always fails with ErrNotSupported on this platform.
func NewMmapSystem(...Option) (*MmapSystem, error) {
	return nil, ErrNotSupported
}

// Malloc satisfies the System interface. It always fails.
func (s *MmapSystem) Malloc(uintptr) unsafe.Pointer { return nil }

// Realloc satisfies the System interface. It always fails.
func (s *MmapSystem) Realloc(unsafe.Pointer, uintptr, uintptr) unsafe.Pointer { return nil }

// Free satisfies the System interface.
func (s *MmapSystem) Free(unsafe.Pointer, uintptr) {}
