// SPDX-License-Identifier: Apache-2.0

package alloc

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestFreeListLIFO(t *testing.T) {
	backing := make([]uint64, 8)
	blocks := []unsafe.Pointer{
		unsafe.Pointer(&backing[0]),
		unsafe.Pointer(&backing[2]),
		unsafe.Pointer(&backing[4]),
	}

	var l freeList
	require.True(t, l.empty())
	require.Nil(t, l.pop())

	for _, b := range blocks {
		l.push(b)
	}
	require.Equal(t, 3, l.len())
	require.True(t, l.contains(blocks[1]))
	require.False(t, l.contains(unsafe.Pointer(&backing[6])))

	require.Equal(t, blocks[2], l.pop())
	require.Equal(t, blocks[1], l.pop())
	require.Equal(t, blocks[0], l.pop())
	require.True(t, l.empty())
	require.Zero(t, l.len())
}

func TestFreeListLinkLivesInBlock(t *testing.T) {
	backing := make([]uint64, 4)
	a, b := unsafe.Pointer(&backing[0]), unsafe.Pointer(&backing[2])

	var l freeList
	l.push(a)
	require.Zero(t, backing[0])
	l.push(b)
	require.Equal(t, uint64(uintptr(a)), backing[2])
}
