// SPDX-License-Identifier: Apache-2.0

package alloc

import "errors"

var (
	// ErrOutOfMemory indicates that neither the system memory source nor any
	// recovery path (out-of-memory handler, free-list scavenging) could produce
	// the requested memory.
	ErrOutOfMemory = errors.New("alloc: out of memory")

	// ErrMisuse is raised (as a panic) in debug mode when a block is freed twice,
	// freed with a size of a different class, or was never allocated by the pool.
	ErrMisuse = errors.New("alloc: allocator misuse")

	// ErrConcurrentUse is raised (as a panic) in debug mode when two calls overlap
	// on a Pool that has no concurrency policy.
	ErrConcurrentUse = errors.New("alloc: concurrent use of single-threaded pool")

	// ErrNotSupported indicates that a system memory source is not available on
	// this platform.
	ErrNotSupported = errors.New("alloc: not supported on this platform")
)
