package testutil

import (
	"fmt"
	"sync"
)

// FixedIDGenerator returns predetermined ids in order.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedIDGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedIDGenerator creates a generator that returns ids in order and
// panics once they are exhausted.
func NewFixedIDGenerator(ids ...string) *FixedIDGenerator {
	return &FixedIDGenerator{ids: ids}
}

func (g *FixedIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic(fmt.Sprintf("FixedIDGenerator: all %d ids exhausted", len(g.ids)))
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}

// CountingIDGenerator returns prefix0, prefix1, ... and never runs out.
type CountingIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

func NewCountingIDGenerator(prefix string) *CountingIDGenerator {
	return &CountingIDGenerator{prefix: prefix}
}

func (g *CountingIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := fmt.Sprintf("%s%d", g.prefix, g.n)
	g.n++
	return id
}
