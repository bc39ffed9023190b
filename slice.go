// SPDX-License-Identifier: Apache-2.0

package alloc

import (
	"unsafe"
)

const growThreshold = 256

// MakeSlice creates a slice of type T with a given length and capacity,
// using the provided Allocator for memory allocation.
// The backing array is zeroed. A zero capacity returns a nil slice.
func MakeSlice[T any](a Allocator, len, cap int) ([]T, error) {
	if len < 0 || len > cap {
		panic("alloc: slice length out of range")
	}
	size := elemSize[T]() * uintptr(cap)
	if size == 0 {
		return make([]T, len, cap), nil
	}
	ptr, err := a.Allocate(size)
	if err != nil {
		return nil, err
	}
	clear(unsafe.Slice((*byte)(ptr), size))
	return unsafe.Slice((*T)(ptr), cap)[:len], nil
}

// FreeSlice returns the backing array of a slice obtained with MakeSlice or
// SliceAppend. The slice's capacity determines the block size.
func FreeSlice[T any](a Allocator, s []T) {
	size := elemSize[T]() * uintptr(cap(s))
	if size == 0 {
		return
	}
	a.Deallocate(unsafe.Pointer(unsafe.SliceData(s)), size)
}

// SliceAppend appends elements to a slice of type T, growing its backing
// array through the Allocator's Reallocate. s must be nil or come from
// MakeSlice or SliceAppend on the same Allocator.
func SliceAppend[T any](a Allocator, s []T, data ...T) ([]T, error) {
	s, err := growSlice(a, s, len(data))
	if err != nil {
		return s, err
	}
	return append(s, data...), nil
}

func growSlice[T any](a Allocator, s []T, dataLen int) ([]T, error) {
	newLen := len(s) + dataLen
	newCap := cap(s)

	if newCap > 0 {
		for newLen > newCap {
			if newCap < growThreshold {
				newCap *= 2
			} else {
				newCap += newCap / 4
			}
		}
	} else {
		newCap = dataLen
	}
	if newCap == cap(s) {
		return s, nil
	}

	es := elemSize[T]()
	if es == 0 {
		return s, nil
	}
	var old unsafe.Pointer
	if cap(s) > 0 {
		old = unsafe.Pointer(unsafe.SliceData(s))
	}
	ptr, err := a.Reallocate(old, es*uintptr(cap(s)), es*uintptr(newCap))
	if err != nil {
		return s, err
	}
	return unsafe.Slice((*T)(ptr), newCap)[:len(s)], nil
}

func elemSize[T any]() uintptr {
	var x T
	return unsafe.Sizeof(x)
}
