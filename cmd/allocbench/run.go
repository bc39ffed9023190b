// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
	"unsafe"

	"github.com/spf13/cobra"

	alloc "github.com/wundergraph/go-alloc"
)

var (
	runOps     int
	runMaxSize int
	runSeed    uint64
)

func init() {
	cmd := newRunCmd()
	cmd.Flags().IntVar(&runOps, "ops", 100000, "Number of operations")
	cmd.Flags().IntVar(&runMaxSize, "max-size", 256, "Largest request size in bytes")
	cmd.Flags().Uint64Var(&runSeed, "seed", 1, "Workload seed")
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run a random allocate/free/reallocate workload",
		Long: `The run command performs a seeded mix of allocations, frees and
reallocations. Every block is filled with a pattern that is verified when the
block is reallocated or freed, so a corrupted free list shows up as a
corruption count instead of going unnoticed.

Example:
  allocbench run --ops 1000000 --max-size 128
  allocbench run --system mmap --batch 64 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if runOps < 0 || runMaxSize < 1 {
				return fmt.Errorf("--ops must be >= 0 and --max-size >= 1")
			}
			pool, err := newPool()
			if err != nil {
				return err
			}
			defer pool.Release()

			report, err := runWorkload(pool, runOps, runMaxSize, runSeed)
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(cmd.OutOrStdout(), report)
			}
			return writeReport(cmd, pool, report)
		},
	}
}

type runReport struct {
	Ops         int           `json:"ops"`
	Allocs      int           `json:"allocs"`
	Frees       int           `json:"frees"`
	Reallocs    int           `json:"reallocs"`
	Failures    int           `json:"failures"`
	Corruptions int           `json:"corruptions"`
	PeakLive    int           `json:"peak_live"`
	Duration    time.Duration `json:"duration_ns"`
	Stats       alloc.Stats   `json:"stats"`
}

type liveBlock struct {
	ptr  unsafe.Pointer
	size uintptr
	tag  byte
}

// runWorkload drives the pool and frees everything it allocated before returning.
func runWorkload(pool *alloc.Pool, ops, maxSize int, seed uint64) (runReport, error) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	report := runReport{Ops: ops}
	var live []liveBlock

	start := time.Now()
	for i := 0; i < ops; i++ {
		switch op := rng.IntN(10); {
		case op < 5 || len(live) == 0:
			size := uintptr(rng.IntN(maxSize) + 1)
			ptr, err := pool.Allocate(size)
			if err != nil {
				if errors.Is(err, alloc.ErrOutOfMemory) {
					report.Failures++
					continue
				}
				return report, err
			}
			b := liveBlock{ptr: ptr, size: size, tag: byte(i)}
			b.fill()
			live = append(live, b)
			report.Allocs++
			report.PeakLive = max(report.PeakLive, len(live))
		case op < 8:
			j := rng.IntN(len(live))
			b := live[j]
			live[j] = live[len(live)-1]
			live = live[:len(live)-1]
			if !b.verify(b.size) {
				report.Corruptions++
			}
			pool.Deallocate(b.ptr, b.size)
			report.Frees++
		default:
			j := rng.IntN(len(live))
			b := live[j]
			size := uintptr(rng.IntN(maxSize) + 1)
			ptr, err := pool.Reallocate(b.ptr, b.size, size)
			if err != nil {
				if errors.Is(err, alloc.ErrOutOfMemory) {
					report.Failures++
					continue
				}
				return report, err
			}
			moved := liveBlock{ptr: ptr, size: size, tag: b.tag}
			if !moved.verify(min(b.size, size)) {
				report.Corruptions++
			}
			moved.tag = byte(i)
			moved.fill()
			live[j] = moved
			report.Reallocs++
		}
	}
	report.Duration = time.Since(start)

	for _, b := range live {
		if !b.verify(b.size) {
			report.Corruptions++
		}
		pool.Deallocate(b.ptr, b.size)
		report.Frees++
	}
	report.Stats = pool.Stats()
	return report, nil
}

func (b liveBlock) bytes(n uintptr) []byte {
	return unsafe.Slice((*byte)(b.ptr), n)
}

func (b liveBlock) fill() {
	for i, p := 0, b.bytes(b.size); i < len(p); i++ {
		p[i] = b.tag + byte(i)
	}
}

func (b liveBlock) verify(n uintptr) bool {
	for i, c := range b.bytes(n) {
		if c != b.tag+byte(i) {
			return false
		}
	}
	return true
}

// writeReport renders the report into a pool-backed buffer and flushes it.
func writeReport(cmd *cobra.Command, pool *alloc.Pool, r runReport) error {
	buf := alloc.NewBuffer(pool)
	defer buf.Release()

	fmt.Fprintf(buf, "ops:          %d (%d allocs, %d frees, %d reallocs)\n", r.Ops, r.Allocs, r.Frees, r.Reallocs)
	fmt.Fprintf(buf, "duration:     %s\n", r.Duration)
	fmt.Fprintf(buf, "failures:     %d\n", r.Failures)
	fmt.Fprintf(buf, "corruptions:  %d\n", r.Corruptions)
	fmt.Fprintf(buf, "peak live:    %d blocks\n", r.PeakLive)
	fmt.Fprintf(buf, "heap size:    %d bytes in %d chunks\n", r.Stats.HeapSize, r.Stats.Chunks)
	fmt.Fprintf(buf, "arena free:   %d bytes\n", r.Stats.ArenaFree)
	fmt.Fprintf(buf, "cached:       %d bytes\n", r.Stats.FreeBytes(pool.Alignment()))
	for c, n := range r.Stats.FreeBlocks {
		if n > 0 {
			fmt.Fprintf(buf, "  class %3d (%4d bytes): %d free\n", c, pool.ClassSize(c), n)
		}
	}

	_, err := buf.WriteTo(cmd.OutOrStdout())
	if err == nil && r.Corruptions > 0 {
		err = fmt.Errorf("%d corrupted blocks detected", r.Corruptions)
	}
	return err
}
