// SPDX-License-Identifier: Apache-2.0

package alloc

import (
	"io"
	"log/slog"
)

const (
	// DefaultAlignment is the granularity of size classes.
	DefaultAlignment = 8
	// DefaultMaxBytes is the largest request served from the free lists.
	// Anything above is forwarded to the direct allocator.
	DefaultMaxBytes = 128
	// DefaultBatchSize is the number of blocks carved per refill.
	DefaultBatchSize = 20
)

type config struct {
	alignment uintptr
	maxBytes  uintptr
	batch     int
	system    System
	oom       OOMHandler
	logger    *slog.Logger
	debug     bool
}

func newConfig(opts []Option) config {
	c := config{
		alignment: DefaultAlignment,
		maxBytes:  DefaultMaxBytes,
		batch:     DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.system == nil {
		c.system = &HeapSystem{alignment: c.alignment}
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

func (c *config) validate() {
	if c.alignment < ptrSize || c.alignment&(c.alignment-1) != 0 {
		panic("alloc: alignment must be a power of two no smaller than a pointer")
	}
	if c.maxBytes == 0 || c.maxBytes%c.alignment != 0 {
		panic("alloc: max bytes must be a positive multiple of the alignment")
	}
	if c.batch < 1 {
		panic("alloc: batch size must be at least 1")
	}
}

// Option configures a Pool or a Direct allocator.
type Option func(*config)

// WithAlignment sets the size-class granularity. It must be a power of two and
// large enough to hold a free-list link.
func WithAlignment(alignment int) Option {
	return func(c *config) {
		c.alignment = uintptr(alignment)
	}
}

// WithMaxBytes sets the bucket threshold. Requests above it bypass the free lists.
func WithMaxBytes(maxBytes int) Option {
	return func(c *config) {
		c.maxBytes = uintptr(maxBytes)
	}
}

// WithBatchSize sets how many blocks a refill tries to carve at once.
func WithBatchSize(batch int) Option {
	return func(c *config) {
		c.batch = batch
	}
}

// WithSystem sets the memory source used for large blocks and arena growth.
func WithSystem(system System) Option {
	return func(c *config) {
		c.system = system
	}
}

// WithOOMHandler installs the initial out-of-memory handler.
func WithOOMHandler(handler OOMHandler) Option {
	return func(c *config) {
		c.oom = handler
	}
}

// WithLogger sets the logger. By default all output is discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithDebug enables live-block tracking and the single-owner check.
// Misuse that would otherwise corrupt the free lists panics with ErrMisuse,
// overlapping calls panic with ErrConcurrentUse.
func WithDebug(enabled bool) Option {
	return func(c *config) {
		c.debug = enabled
	}
}
