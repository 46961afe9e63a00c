package contextbuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTokensEmptyIsZero(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
}

func TestEstimateTokensScalesWithWordCount(t *testing.T) {
	short := EstimateTokens("hello world")
	long := EstimateTokens("hello world this is a much longer piece of text with many more words")
	assert.Greater(t, long, short)
}

func TestEstimateTokensCountsPunctuation(t *testing.T) {
	plain := EstimateTokens("hello world")
	punctuated := EstimateTokens("hello, world!!!")
	assert.Greater(t, punctuated, plain)
}

func TestEstimateTokensNonEmptyIsAtLeastOne(t *testing.T) {
	assert.GreaterOrEqual(t, EstimateTokens("a"), 1)
}
