package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeUsage_FirstTurn(t *testing.T) {
	current := &TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}
	got := MergeUsage(current, nil)
	assert.Equal(t, current, got)
}

func TestMergeUsage_NilCurrentCopiesPrior(t *testing.T) {
	prior := &TokenUsage{PromptTokens: 7, CompletionTokens: 3, TotalTokens: 10}
	got := MergeUsage(nil, prior)
	assert.Equal(t, *prior, *got)
	// Must be a copy, not an alias.
	got.PromptTokens = 99
	assert.Equal(t, 7, prior.PromptTokens)
}

func TestMergeUsage_DoesNotMutateInputs(t *testing.T) {
	current := &TokenUsage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3}
	prior := &TokenUsage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30}
	got := MergeUsage(current, prior)
	assert.Equal(t, &TokenUsage{PromptTokens: 11, CompletionTokens: 22, TotalTokens: 33}, got)
	assert.Equal(t, &TokenUsage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3}, current)
	assert.Equal(t, &TokenUsage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30}, prior)
}

func TestMergeUsage_Associativity(t *testing.T) {
	a := &TokenUsage{PromptTokens: 3, CompletionTokens: 1, TotalTokens: 4}
	b := &TokenUsage{PromptTokens: 5, CompletionTokens: 9, TotalTokens: 14}
	c := &TokenUsage{PromptTokens: 2, CompletionTokens: 6, TotalTokens: 8}

	left := MergeUsage(c, MergeUsage(b, a))
	right := MergeUsage(MergeUsage(c, b), a)
	assert.Equal(t, left, right)
	assert.Equal(t, &TokenUsage{PromptTokens: 10, CompletionTokens: 16, TotalTokens: 26}, left)
}

func TestMergeUsage_MonotonicAcrossTurns(t *testing.T) {
	turns := []*TokenUsage{
		{PromptTokens: 4, CompletionTokens: 2, TotalTokens: 6},
		{PromptTokens: 0, CompletionTokens: 0, TotalTokens: 0},
		{PromptTokens: 8, CompletionTokens: 1, TotalTokens: 9},
		{PromptTokens: 3, CompletionTokens: 3, TotalTokens: 6},
	}

	var running *TokenUsage
	for _, turn := range turns {
		next := MergeUsage(turn, running)
		if running != nil {
			assert.GreaterOrEqual(t, next.PromptTokens, running.PromptTokens)
			assert.GreaterOrEqual(t, next.CompletionTokens, running.CompletionTokens)
			assert.GreaterOrEqual(t, next.TotalTokens, running.TotalTokens)
		}
		running = next
	}
	assert.Equal(t, &TokenUsage{PromptTokens: 15, CompletionTokens: 6, TotalTokens: 21}, running)
}

func TestTokenUsage_IsZero(t *testing.T) {
	assert.True(t, TokenUsage{}.IsZero())
	assert.False(t, TokenUsage{PromptTokens: 1}.IsZero())
}
