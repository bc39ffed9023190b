// SPDX-License-Identifier: Apache-2.0

package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMakeSlice(t *testing.T) {
	pool := NewPool()

	s, err := MakeSlice[int](pool, 3, 8)
	require.NoError(t, err)
	require.Len(t, s, 3)
	require.Equal(t, 8, cap(s))
	require.Equal(t, []int{0, 0, 0}, s)

	empty, err := MakeSlice[int](pool, 0, 0)
	require.NoError(t, err)
	require.Empty(t, empty)

	require.Panics(t, func() { _, _ = MakeSlice[int](pool, 4, 2) })
}

func TestSliceAppendWithPool(t *testing.T) {
	rec := &recordingAllocator{Pool: NewPool()}

	s, err := MakeSlice[int](rec, 3, 3)
	require.NoError(t, err)
	s[0] = 1
	s[1] = 2
	s[2] = 3

	result, err := SliceAppend(rec, s, 4, 5)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3, 4, 5}, result)
	require.Equal(t, 6, cap(result))
	require.Equal(t, 1, rec.reallocs)

	// Fits in the current capacity: no allocator call.
	result, err = SliceAppend(rec, result, 6)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3, 4, 5, 6}, result)
	require.Equal(t, 1, rec.reallocs)

	FreeSlice(rec, result)
	require.Equal(t, 1, rec.deallocs)
}

func TestSliceAppendFromNil(t *testing.T) {
	pool := NewPool()

	var s []uint32
	s, err := SliceAppend(pool, s, 7, 8, 9)
	require.NoError(t, err)
	require.Equal(t, []uint32{7, 8, 9}, s)
	require.Equal(t, 3, cap(s))

	s, err = SliceAppend[uint32](pool, nil)
	require.NoError(t, err)
	require.Nil(t, s)
}

func TestSliceAppendCrossesThreshold(t *testing.T) {
	sys := newMockSystem()
	pool := NewPool(WithSystem(sys))

	var s []int64
	var err error
	for i := int64(0); i < 1000; i++ {
		s, err = SliceAppend(pool, s, i)
		require.NoError(t, err)
	}
	for i, v := range s {
		require.Equal(t, int64(i), v)
	}
	require.Positive(t, sys.reallocs)
	FreeSlice(pool, s)
}

func TestSliceAppendKeepsSliceOnFailure(t *testing.T) {
	sys := newMockSystem()
	pool := NewPool(WithSystem(sys))

	s, err := MakeSlice[int64](pool, 16, 16)
	require.NoError(t, err)
	for i := range s {
		s[i] = int64(i)
	}

	sys.fail = true
	grown, err := SliceAppend(pool, s, 16)
	require.ErrorIs(t, err, ErrOutOfMemory)
	require.Equal(t, s, grown)
	for i := range s {
		require.Equal(t, int64(i), s[i])
	}
}
