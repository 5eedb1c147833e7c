package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedIDGenerator_ReturnsIDsInOrder(t *testing.T) {
	gen := NewFixedIDGenerator("a", "b")
	assert.Equal(t, "a", gen.Generate())
	assert.Equal(t, "b", gen.Generate())
	assert.PanicsWithValue(t, "FixedIDGenerator: all IDs exhausted", func() { gen.Generate() })
}

func TestSequentialIDs(t *testing.T) {
	gen := SequentialIDs("run", 3)
	assert.Equal(t, "run-001", gen.Generate())
	assert.Equal(t, "run-002", gen.Generate())
	assert.Equal(t, "run-003", gen.Generate())
}
