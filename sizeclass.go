// SPDX-License-Identifier: Apache-2.0

package alloc

// sizeClasses maps request sizes in [1, maxBytes] to buckets of fixed
// (class+1)*alignment byte blocks.
type sizeClasses struct {
	alignment uintptr
	maxBytes  uintptr
}

// roundUp rounds n up to a multiple of the alignment.
func (s sizeClasses) roundUp(n uintptr) uintptr {
	return (n + s.alignment - 1) &^ (s.alignment - 1)
}

// classOf returns the bucket index for n. n must be in [1, maxBytes].
func (s sizeClasses) classOf(n uintptr) int {
	return int((n+s.alignment-1)/s.alignment) - 1
}

func (s sizeClasses) classSize(class int) uintptr {
	return uintptr(class+1) * s.alignment
}

func (s sizeClasses) count() int {
	return int(s.maxBytes / s.alignment)
}

// small reports whether n is served from the free lists.
func (s sizeClasses) small(n uintptr) bool {
	return n <= s.maxBytes
}
