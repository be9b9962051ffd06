package testfixtures

import (
	"fmt"
	"sync/atomic"
)

// IDGenerator yields "prefix-1", "prefix-2", ... for tests that inject
// an ID generator into the services.
type IDGenerator struct {
	prefix  string
	counter atomic.Uint64
}

// NewIDGenerator constructs a generator with the given prefix, "id"
// when empty.
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

// Next returns the next identifier in the sequence.
func (g *IDGenerator) Next() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.counter.Add(1))
}

// NextFunc adapts the generator to the function signature the services
// accept.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

// Reset restarts the sequence from one.
func (g *IDGenerator) Reset() {
	g.counter.Store(0)
}
