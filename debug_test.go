// SPDX-License-Identifier: Apache-2.0

package alloc

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestDebugDetectsDoubleFree(t *testing.T) {
	pool := NewPool(WithDebug(true))

	p, err := pool.Allocate(16)
	require.NoError(t, err)
	pool.Deallocate(p, 16)

	requirePanicsWithErrorIs(t, ErrMisuse, func() {
		pool.Deallocate(p, 16)
	})
	// The list was not corrupted by the rejected free.
	require.Equal(t, 1, countBlock(pool, p))
}

func TestDebugDetectsWrongSize(t *testing.T) {
	pool := NewPool(WithDebug(true))

	p, err := pool.Allocate(16)
	require.NoError(t, err)

	requirePanicsWithErrorIs(t, ErrMisuse, func() {
		pool.Deallocate(p, 64)
	})
	requirePanicsWithErrorIs(t, ErrMisuse, func() {
		_, _ = pool.Reallocate(p, 200, 300)
	})

	// A size of the same class is accepted.
	pool.Deallocate(p, 11)
}

func TestDebugDetectsForeignPointer(t *testing.T) {
	pool := NewPool(WithDebug(true))

	var x [4]uint64
	requirePanicsWithErrorIs(t, ErrMisuse, func() {
		pool.Deallocate(unsafe.Pointer(&x), 32)
	})
}

func TestDebugTracksLargeBlocksAndReallocation(t *testing.T) {
	pool := NewPool(WithDebug(true))

	p, err := pool.Allocate(500)
	require.NoError(t, err)
	requirePanicsWithErrorIs(t, ErrMisuse, func() {
		pool.Deallocate(p, 501)
	})

	q, err := pool.Reallocate(p, 500, 40)
	require.NoError(t, err)
	requirePanicsWithErrorIs(t, ErrMisuse, func() {
		pool.Deallocate(p, 500)
	})

	r, err := pool.Reallocate(q, 40, 33)
	require.NoError(t, err)
	require.Equal(t, q, r)
	pool.Deallocate(r, 33)
}

func TestDebugAllowsPoolCallsFromOOMHandler(t *testing.T) {
	sys := newMockSystem()
	pool := NewPool(WithSystem(sys), WithDebug(true))

	cached, err := pool.Allocate(64)
	require.NoError(t, err)

	calls := 0
	handler := func() error {
		calls++
		// Give a cached block back and take a fresh one.
		pool.Deallocate(cached, 64)
		p, err := pool.Allocate(8)
		if err != nil {
			return err
		}
		pool.Deallocate(p, 8)
		return nil
	}
	require.Nil(t, pool.SetOOMHandler(handler))

	sys.failures = 1
	large, err := pool.Allocate(1024)
	require.NoError(t, err)
	require.NotNil(t, large)
	require.Equal(t, 1, calls)
	require.Equal(t, 1, countBlock(pool, cached))

	// The pool is owned by nobody once the call returns.
	pool.Deallocate(large, 1024)

	// The caller's handler is handed back, not the debug wrapper.
	prev := pool.SetOOMHandler(nil)
	require.NotNil(t, prev)
	cached, err = pool.Allocate(64)
	require.NoError(t, err)
	require.NoError(t, prev())
	require.Equal(t, 2, calls)
}

func TestDebugOOMHandlerFromOption(t *testing.T) {
	sys := newMockSystem()
	var pool *Pool
	var cached unsafe.Pointer
	pool = NewPool(WithSystem(sys), WithDebug(true), WithOOMHandler(func() error {
		pool.Deallocate(cached, 16)
		return nil
	}))

	var err error
	cached, err = pool.Allocate(16)
	require.NoError(t, err)

	sys.failures = 1
	_, err = pool.Allocate(4096)
	require.NoError(t, err)
	require.Equal(t, 1, countBlock(pool, cached))
}

// gatedSystem blocks large Malloc calls until proceed is closed.
type gatedSystem struct {
	*mockSystem
	entered chan struct{}
	proceed chan struct{}
}

func (s *gatedSystem) Malloc(size uintptr) unsafe.Pointer {
	if size > 512 {
		s.entered <- struct{}{}
		<-s.proceed
	}
	return s.mockSystem.Malloc(size)
}

func TestDebugDetectsConcurrentUse(t *testing.T) {
	sys := &gatedSystem{
		mockSystem: newMockSystem(),
		entered:    make(chan struct{}),
		proceed:    make(chan struct{}),
	}
	pool := NewPool(WithSystem(sys), WithDebug(true))

	done := make(chan error)
	go func() {
		_, err := pool.Allocate(1024)
		done <- err
	}()

	<-sys.entered
	require.PanicsWithValue(t, ErrConcurrentUse, func() {
		_, _ = pool.Allocate(8)
	})
	close(sys.proceed)
	require.NoError(t, <-done)

	// The rejected call did not release the other goroutine's ownership,
	// and the pool is usable once that call has returned.
	_, err := pool.Allocate(8)
	require.NoError(t, err)
}

func TestDebugReleaseForgetsArenaBlocks(t *testing.T) {
	pool := NewPool(WithDebug(true))

	small, err := pool.Allocate(8)
	require.NoError(t, err)
	large, err := pool.Allocate(1000)
	require.NoError(t, err)

	pool.Release()
	requirePanicsWithErrorIs(t, ErrMisuse, func() {
		pool.Deallocate(small, 8)
	})
	pool.Deallocate(large, 1000)
}

func countBlock(pool *Pool, p unsafe.Pointer) int {
	n := 0
	for i := range pool.lists {
		if pool.lists[i].contains(p) {
			n++
		}
	}
	return n
}
