package testutil

import (
	"fmt"
	"sync"
)

// FixedIDGenerator returns predetermined run IDs in order so that recorded
// history is stable across test runs.
type FixedIDGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedIDGenerator returns a generator yielding ids in order.
func NewFixedIDGenerator(ids ...string) *FixedIDGenerator {
	return &FixedIDGenerator{ids: ids}
}

// SequentialIDs returns a generator yielding "<prefix>-001" through
// "<prefix>-<n>".
func SequentialIDs(prefix string, n int) *FixedIDGenerator {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s-%03d", prefix, i+1)
	}
	return NewFixedIDGenerator(ids...)
}

// Generate returns the next ID. It panics once the IDs are exhausted, which
// means the test recorded more runs than it planned for.
func (g *FixedIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.ids) {
		panic("FixedIDGenerator: all IDs exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
