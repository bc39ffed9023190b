// SPDX-License-Identifier: Apache-2.0

package alloc

// Stats is a snapshot of a Pool's bookkeeping.
type Stats struct {
	// HeapSize is the total number of bytes ever obtained from the System for
	// the arena. It only grows until Release.
	HeapSize int `json:"heap_size"`

	// ArenaFree is the number of bytes left in the current arena.
	ArenaFree int `json:"arena_free"`

	// Chunks is the number of arena chunks obtained from the System.
	Chunks int `json:"chunks"`

	// FreeBlocks holds the number of cached blocks per size class.
	FreeBlocks []int `json:"free_blocks"`
}

// FreeBytes returns the number of bytes cached in the free lists.
// alignment must be the pool's alignment.
func (s Stats) FreeBytes(alignment int) int {
	total := 0
	for class, n := range s.FreeBlocks {
		total += n * (class + 1) * alignment
	}
	return total
}

// Stats returns a snapshot of the pool's bookkeeping.
func (p *Pool) Stats() Stats {
	s := Stats{
		HeapSize:   int(p.heapSize),
		ArenaFree:  int(p.arena.availableBytes()),
		Chunks:     len(p.chunks),
		FreeBlocks: make([]int, len(p.lists)),
	}
	for i := range p.lists {
		s.FreeBlocks[i] = p.lists[i].len()
	}
	return s
}
