// SPDX-License-Identifier: Apache-2.0

// Command allocbench drives a pool allocator with a synthetic workload and
// reports how it behaved.
package main

func main() {
	execute()
}
