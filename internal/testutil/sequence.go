// Package testutil holds deterministic stand-ins for tests and the
// scenario harness.
package testutil

import (
	"fmt"
	"sync"
)

// counter is a mutex-guarded monotonic counter starting at 0.
type counter struct {
	mu sync.Mutex
	n  int64
}

func (c *counter) next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return c.n
}

func (c *counter) current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func (c *counter) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n = 0
}

// SequenceTokenGenerator returns correlation tokens "<prefix>-1",
// "<prefix>-2", ... so serialized documents are byte-identical across runs.
//
// Implements records.TokenGenerator. Safe for concurrent use.
type SequenceTokenGenerator struct {
	prefix string
	c      counter
}

// NewSequenceTokenGenerator creates a generator. An empty prefix means "token".
func NewSequenceTokenGenerator(prefix string) *SequenceTokenGenerator {
	if prefix == "" {
		prefix = "token"
	}
	return &SequenceTokenGenerator{prefix: prefix}
}

// Generate returns the next token.
func (g *SequenceTokenGenerator) Generate() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.c.next())
}

// Issued returns how many tokens have been generated.
func (g *SequenceTokenGenerator) Issued() int64 {
	return g.c.current()
}

// Reset restarts the sequence at 1.
func (g *SequenceTokenGenerator) Reset() {
	g.c.reset()
}

// DeterministicClock is a logical clock for journal sequence numbers.
// The first call to Next returns 1. Safe for concurrent use.
type DeterministicClock struct {
	c counter
}

// NewDeterministicClock creates a clock at 0.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next increments and returns the sequence number.
func (c *DeterministicClock) Next() int64 {
	return c.c.next()
}

// Current returns the sequence number without incrementing.
func (c *DeterministicClock) Current() int64 {
	return c.c.current()
}

// Reset sets the clock back to 0.
func (c *DeterministicClock) Reset() {
	c.c.reset()
}
