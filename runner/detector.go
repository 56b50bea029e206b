package runner

import (
	"github.com/modelmux/modelmux/chat"
)

// RequiresToolExecution reports whether a response must be routed to the tool
// executor instead of being returned to the caller. It is a pure predicate
// over the resolved options and the response: tool execution must be enabled,
// the assistant message must carry at least one tool call, and the finish
// reason must be in the configured stop-for-tools set. Responses without a
// finish reason (partial streamed content) never trigger execution.
func RequiresToolExecution(opts chat.Options, resp *chat.Response) bool {
	if resp == nil || !opts.InternalToolExecutionEnabled() {
		return false
	}
	if !resp.Message.HasToolCalls() {
		return false
	}
	if resp.FinishReason == "" {
		return false
	}
	for _, reason := range opts.EffectiveStopReasons() {
		if resp.FinishReason == reason {
			return true
		}
	}
	return false
}
