// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	alloc "github.com/wundergraph/go-alloc"
)

var (
	// Global flags
	verbose    bool
	jsonOut    bool
	alignment  int
	maxBytes   int
	batchSize  int
	systemName string
	debugMode  bool
)

var rootCmd = &cobra.Command{
	Use:   "allocbench",
	Short: "Exercise and inspect the size-class pool allocator",
	Long: `allocbench runs seeded allocation workloads against a pool allocator,
checks that block contents survive until they are freed, and reports the
pool's arena and free-list statistics.`,
	Version:      "0.1.0",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log allocator events to stderr")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().IntVar(&alignment, "align", alloc.DefaultAlignment, "Size-class alignment in bytes")
	rootCmd.PersistentFlags().IntVar(&maxBytes, "max-bytes", alloc.DefaultMaxBytes, "Largest request served from the free lists")
	rootCmd.PersistentFlags().IntVar(&batchSize, "batch", alloc.DefaultBatchSize, "Blocks carved per refill")
	rootCmd.PersistentFlags().StringVar(&systemName, "system", "heap", "Memory source: heap or mmap")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Detect double frees and size mismatches")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newPool builds a pool from the global flags.
func newPool() (*alloc.Pool, error) {
	if alignment < 8 || alignment&(alignment-1) != 0 {
		return nil, fmt.Errorf("--align must be a power of two >= 8, got %d", alignment)
	}
	if maxBytes <= 0 || maxBytes%alignment != 0 {
		return nil, fmt.Errorf("--max-bytes must be a positive multiple of %d, got %d", alignment, maxBytes)
	}
	if batchSize < 1 {
		return nil, fmt.Errorf("--batch must be at least 1, got %d", batchSize)
	}

	logger := newLogger(os.Stderr)
	opts := []alloc.Option{
		alloc.WithAlignment(alignment),
		alloc.WithMaxBytes(maxBytes),
		alloc.WithBatchSize(batchSize),
		alloc.WithDebug(debugMode),
		alloc.WithLogger(logger),
	}
	switch systemName {
	case "heap":
	case "mmap":
		sys, err := alloc.NewMmapSystem(alloc.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("mmap system: %w", err)
		}
		opts = append(opts, alloc.WithSystem(sys))
	default:
		return nil, fmt.Errorf("unknown --system %q (want heap or mmap)", systemName)
	}
	return alloc.NewPool(opts...), nil
}

func newLogger(w io.Writer) *slog.Logger {
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// printJSON outputs data as JSON
func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
