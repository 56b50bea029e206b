package chat

// ToolCallDelta is one streamed fragment of an in-flight tool call. Providers
// key fragments by index within the response; ID and Name arrive on the first
// fragment, Arguments accumulate across fragments.
type ToolCallDelta struct {
	Index     int    `json:"index"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// Chunk is one incremental unit of a streaming provider call. The terminal
// chunk for a response id carries Done=true; some providers attach the
// authoritative usage counters only on that terminal chunk (or a trailing
// content-free chunk), which the aggregator reconciles.
type Chunk struct {
	ID             string          `json:"id"`
	Role           Role            `json:"role,omitempty"` // usually set on the first chunk only
	ContentDelta   string          `json:"content_delta,omitempty"`
	ToolCallDeltas []ToolCallDelta `json:"tool_call_deltas,omitempty"`
	Done           bool            `json:"done"`
	FinishReason   string          `json:"finish_reason,omitempty"`
	Usage          *TokenUsage     `json:"usage,omitempty"`
}

// HasContent reports whether the chunk carries any text or tool-call payload.
// Content-free terminal chunks exist solely to deliver usage or a finish
// reason and are folded into the preceding chunk on emission.
func (c Chunk) HasContent() bool {
	return c.ContentDelta != "" || len(c.ToolCallDeltas) > 0
}
