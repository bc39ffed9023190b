// SPDX-License-Identifier: Apache-2.0

package alloc

import (
	"unsafe"
)

const ptrSize = unsafe.Sizeof(uintptr(0))

// freeList is an intrusive LIFO list of free blocks of one size class.
// The first word of a free block holds the address of the next one, 0 ends
// the list. This file is the only place that reinterprets block memory.
//
// Every block handed to push must be at least ptrSize bytes, aligned to
// ptrSize, belong to memory the pool keeps alive, and not be in use.
type freeList struct {
	head unsafe.Pointer
	n    int
}

func (l *freeList) empty() bool {
	return l.head == nil
}

func (l *freeList) push(p unsafe.Pointer) {
	// Block memory is not scanned by the GC and may hold arbitrary bytes:
	// never write a pointer-typed value into it.
	*(*uintptr)(p) = uintptr(l.head)
	l.head = p
	l.n++
}

func (l *freeList) pop() unsafe.Pointer {
	p := l.head
	if p == nil {
		return nil
	}
	l.head = *(*unsafe.Pointer)(p)
	l.n--
	return p
}

func (l *freeList) len() int {
	return l.n
}
