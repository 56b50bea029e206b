package chat

// TokenUsage captures token usage statistics for a single model turn or a
// running total across turns. For any single turn TotalTokens equals
// PromptTokens+CompletionTokens; accumulated totals are the pairwise sums of
// the folded turns.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// IsZero reports whether no counter carries a value. Providers that emit
// usage out-of-band send content chunks with zero usage first.
func (u TokenUsage) IsZero() bool {
	return u.PromptTokens == 0 && u.CompletionTokens == 0 && u.TotalTokens == 0
}

// MergeUsage folds a turn's usage into the running total from prior turns.
// Neither input is mutated. A nil prior returns current unchanged (first
// turn); a nil current returns a copy of prior, so trailing chunks without
// usage still surface the running total. The merge is associative and
// commutative, so folding any grouping of turns yields the same totals.
func MergeUsage(current, prior *TokenUsage) *TokenUsage {
	if prior == nil {
		return current
	}
	if current == nil {
		cp := *prior
		return &cp
	}
	return &TokenUsage{
		PromptTokens:     current.PromptTokens + prior.PromptTokens,
		CompletionTokens: current.CompletionTokens + prior.CompletionTokens,
		TotalTokens:      current.TotalTokens + prior.TotalTokens,
	}
}
