// SPDX-License-Identifier: Apache-2.0

package alloc

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

// mockSystem is an instrumented System backed by the Go heap.
// It records every call and can be told to fail.
type mockSystem struct {
	heap *HeapSystem

	fail     bool // fail every call while set
	failures int  // fail this many upcoming calls

	mallocs  []uintptr // requested sizes, including failed requests
	reallocs int
	frees    int
	granted  []chunk // successful Malloc results
}

func newMockSystem() *mockSystem {
	return &mockSystem{heap: NewHeapSystem()}
}

func (s *mockSystem) failing() bool {
	if s.fail {
		return true
	}
	if s.failures > 0 {
		s.failures--
		return true
	}
	return false
}

func (s *mockSystem) Malloc(size uintptr) unsafe.Pointer {
	s.mallocs = append(s.mallocs, size)
	if s.failing() {
		return nil
	}
	p := s.heap.Malloc(size)
	s.granted = append(s.granted, chunk{ptr: p, size: size})
	return p
}

func (s *mockSystem) Realloc(ptr unsafe.Pointer, oldSize, newSize uintptr) unsafe.Pointer {
	s.reallocs++
	if s.failing() {
		return nil
	}
	return s.heap.Realloc(ptr, oldSize, newSize)
}

func (s *mockSystem) Free(ptr unsafe.Pointer, size uintptr) {
	s.frees++
	s.heap.Free(ptr, size)
}

// within reports whether [p, p+size) lies inside c.
func within(p unsafe.Pointer, size uintptr, c chunk) bool {
	start, base := uintptr(p), uintptr(c.ptr)
	return start >= base && start+size <= base+c.size
}

// fill writes a pattern derived from seed into the first n bytes at p.
func fill(p unsafe.Pointer, n uintptr, seed byte) {
	b := unsafe.Slice((*byte)(p), n)
	for i := range b {
		b[i] = seed + byte(i)
	}
}

// requirePattern checks the pattern written by fill.
func requirePattern(t *testing.T, p unsafe.Pointer, n uintptr, seed byte) {
	t.Helper()
	b := unsafe.Slice((*byte)(p), n)
	for i := range b {
		require.Equal(t, seed+byte(i), b[i], "byte %d", i)
	}
}

// requirePanicsWithErrorIs runs f and requires it to panic with an error
// matching target.
func requirePanicsWithErrorIs(t *testing.T, target error, f func()) {
	t.Helper()
	var recovered any
	func() {
		defer func() { recovered = recover() }()
		f()
	}()
	require.NotNil(t, recovered, "expected a panic")
	err, ok := recovered.(error)
	require.True(t, ok, "panic value %v is not an error", recovered)
	require.ErrorIs(t, err, target)
}

// contains walks the list looking for p.
func (l *freeList) contains(p unsafe.Pointer) bool {
	for q := l.head; q != nil; q = *(*unsafe.Pointer)(q) {
		if q == p {
			return true
		}
	}
	return false
}
