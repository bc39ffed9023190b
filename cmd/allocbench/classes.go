// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	alloc "github.com/wundergraph/go-alloc"
)

func init() {
	rootCmd.AddCommand(newClassesCmd())
}

func newClassesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classes",
		Short: "Print the size-class table",
		Long: `The classes command prints every size class of the configured pool
together with the range of request sizes it serves.

Example:
  allocbench classes
  allocbench classes --align 16 --max-bytes 256 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := newPool()
			if err != nil {
				return err
			}
			table := classTable(pool)
			if jsonOut {
				return printJSON(cmd.OutOrStdout(), table)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-6s %-10s %s\n", "CLASS", "BLOCK", "REQUESTS")
			for _, c := range table {
				fmt.Fprintf(out, "%-6d %-10d %d-%d\n", c.Class, c.BlockSize, c.MinRequest, c.MaxRequest)
			}
			fmt.Fprintf(out, "requests above %d bytes bypass the free lists\n", pool.MaxBytes())
			return nil
		},
	}
}

type sizeClass struct {
	Class      int `json:"class"`
	BlockSize  int `json:"block_size"`
	MinRequest int `json:"min_request"`
	MaxRequest int `json:"max_request"`
}

func classTable(pool *alloc.Pool) []sizeClass {
	table := make([]sizeClass, 0, pool.NumClasses())
	lo := 1
	for c := 0; c < pool.NumClasses(); c++ {
		size := pool.ClassSize(c)
		table = append(table, sizeClass{Class: c, BlockSize: size, MinRequest: lo, MaxRequest: size})
		lo = size + 1
	}
	return table
}
