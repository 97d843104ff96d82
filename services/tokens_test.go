package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestTiktokenEstimator_Empty(t *testing.T) {
	e := NewTiktokenEstimator(zap.NewNop())
	assert.Equal(t, 0, e.Estimate(""))
}

func TestTiktokenEstimator_NonEmpty(t *testing.T) {
	e := NewTiktokenEstimator(zap.NewNop())
	// Exact counts depend on whether the encoding loaded, but any
	// non-trivial text must cost at least one token.
	assert.Greater(t, e.Estimate("hello world"), 0)
}

func TestTiktokenEstimator_Heuristic(t *testing.T) {
	e := &TiktokenEstimator{} // no encoding loaded
	assert.Equal(t, 1, e.Estimate("abc"))
	assert.Equal(t, 1, e.Estimate("abcd"))
	assert.Equal(t, 2, e.Estimate("abcdefgh"))
	assert.Equal(t, 3, e.Estimate("abcdefghi"))
}
