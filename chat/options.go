package chat

// DefaultStopReasonsTriggeringTools lists the finish reasons that gate tool
// execution when the caller does not configure an explicit set. Providers
// differ: OpenAI reports "tool_calls" (or "stop" for some proxies), Anthropic
// reports "tool_use".
var DefaultStopReasonsTriggeringTools = []string{"tool_calls", "tool_use", "stop"}

// Options is the canonical, resolved option set the orchestration loop
// depends on. Callers merge per-call overrides over runner defaults with
// Merge; the loop itself never inspects provider-specific knobs.
type Options struct {
	// Model selects the provider model id. Empty means the adapter default.
	Model string

	// InternalToolExecution controls whether the loop executes tool calls
	// itself. nil means enabled; when disabled, responses carrying tool
	// calls are returned to the caller untouched.
	InternalToolExecution *bool

	// ToolNames restricts the tool definitions sent to the provider to the
	// named subset of the registry. Empty means all registered tools.
	ToolNames []string

	// StopReasonsTriggeringTools gates tool execution on the response finish
	// reason. Empty means DefaultStopReasonsTriggeringTools.
	StopReasonsTriggeringTools []string

	// MaxTurns caps the number of provider calls in one session. 0 means
	// unlimited, matching the reference behavior; a model that always
	// requests tools then loops until cancelled.
	MaxTurns int
}

// InternalToolExecutionEnabled reports the effective tool execution setting.
func (o Options) InternalToolExecutionEnabled() bool {
	return o.InternalToolExecution == nil || *o.InternalToolExecution
}

// EffectiveStopReasons returns the configured stop-for-tools set or the default.
func (o Options) EffectiveStopReasons() []string {
	if len(o.StopReasonsTriggeringTools) > 0 {
		return o.StopReasonsTriggeringTools
	}
	return DefaultStopReasonsTriggeringTools
}

// Merge returns a copy of o with every non-zero field of override applied.
// The merge is explicit and field-by-field; neither input is mutated.
func (o Options) Merge(override Options) Options {
	merged := o
	if override.Model != "" {
		merged.Model = override.Model
	}
	if override.InternalToolExecution != nil {
		v := *override.InternalToolExecution
		merged.InternalToolExecution = &v
	}
	if len(override.ToolNames) > 0 {
		merged.ToolNames = append([]string(nil), override.ToolNames...)
	}
	if len(override.StopReasonsTriggeringTools) > 0 {
		merged.StopReasonsTriggeringTools = append([]string(nil), override.StopReasonsTriggeringTools...)
	}
	if override.MaxTurns != 0 {
		merged.MaxTurns = override.MaxTurns
	}
	return merged
}

// WithModel sets the provider model id.
func WithModel(model string) func(o *Options) {
	return func(o *Options) { o.Model = model }
}

// WithInternalToolExecution enables or disables loop-internal tool execution.
func WithInternalToolExecution(enabled bool) func(o *Options) {
	return func(o *Options) { o.InternalToolExecution = &enabled }
}

// WithToolNames restricts the tools exposed to the provider.
func WithToolNames(names ...string) func(o *Options) {
	return func(o *Options) { o.ToolNames = names }
}

// WithStopReasonsTriggeringTools overrides the stop-for-tools finish reasons.
func WithStopReasonsTriggeringTools(reasons ...string) func(o *Options) {
	return func(o *Options) { o.StopReasonsTriggeringTools = reasons }
}

// WithMaxTurns caps the number of provider calls per session (0 = unlimited).
func WithMaxTurns(n int) func(o *Options) {
	return func(o *Options) { o.MaxTurns = n }
}
