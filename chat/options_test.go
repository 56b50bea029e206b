package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptions_DefaultToolExecutionEnabled(t *testing.T) {
	var o Options
	assert.True(t, o.InternalToolExecutionEnabled())

	disabled := false
	o.InternalToolExecution = &disabled
	assert.False(t, o.InternalToolExecutionEnabled())
}

func TestOptions_Merge(t *testing.T) {
	base := Options{
		Model:                      "base-model",
		ToolNames:                  []string{"weather"},
		StopReasonsTriggeringTools: []string{"tool_calls"},
		MaxTurns:                   3,
	}

	disabled := false
	merged := base.Merge(Options{
		Model:                 "override-model",
		InternalToolExecution: &disabled,
	})

	assert.Equal(t, "override-model", merged.Model)
	assert.False(t, merged.InternalToolExecutionEnabled())
	assert.Equal(t, []string{"weather"}, merged.ToolNames)
	assert.Equal(t, 3, merged.MaxTurns)

	// Zero override leaves base untouched.
	same := base.Merge(Options{})
	assert.Equal(t, base.Model, same.Model)
	assert.True(t, same.InternalToolExecutionEnabled())
}

func TestOptions_EffectiveStopReasons(t *testing.T) {
	var o Options
	assert.Equal(t, DefaultStopReasonsTriggeringTools, o.EffectiveStopReasons())

	o.StopReasonsTriggeringTools = []string{"tool_use"}
	assert.Equal(t, []string{"tool_use"}, o.EffectiveStopReasons())
}

func TestMessage_Constructors(t *testing.T) {
	user := NewUserMessage("hi")
	assert.Equal(t, RoleUser, user.Role)

	call := ToolCall{ID: "call_1", Name: "weather", Arguments: `{"city":"Berlin"}`}
	asst := NewAssistantMessage("", call)
	assert.True(t, asst.HasToolCalls())

	toolMsg := NewToolMessage("call_1", "sunny")
	assert.Equal(t, RoleTool, toolMsg.Role)
	assert.Equal(t, "call_1", toolMsg.ToolCallID)

	args, err := call.ArgumentMap()
	assert.NoError(t, err)
	assert.Equal(t, "Berlin", args["city"])
}
