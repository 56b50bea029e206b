package chat

// Response is the reconciled result of one provider call: a blocking call
// normalized directly, or a fully aggregated streaming window. Usage carries
// the session's running total, accumulated across all turns up to and
// including this one.
type Response struct {
	Message      Message     `json:"message"`
	FinishReason string      `json:"finish_reason,omitempty"`
	Usage        *TokenUsage `json:"usage,omitempty"`
}
