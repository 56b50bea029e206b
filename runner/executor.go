package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelmux/modelmux/chat"
	"github.com/modelmux/modelmux/logging"
	"github.com/modelmux/modelmux/tool"
)

// ExecutionResult is the outcome of executing every tool call of one
// assistant response.
type ExecutionResult struct {
	// ConversationHistory is the input conversation extended with the
	// assistant message and one tool message per executed call, in call order.
	ConversationHistory []chat.Message

	// ToolMessages are the tool-response messages appended this turn.
	ToolMessages []chat.Message

	// ReturnDirect is true when every executed tool is marked return-direct;
	// the session then surfaces the tool output as its final answer instead of
	// sending it back to the model.
	ReturnDirect bool
}

// Executor resolves and invokes the tools an assistant response requests and
// extends the conversation with their results.
type Executor struct {
	registry *tool.Registry
	logger   logging.Logger
}

// NewExecutor constructs an Executor over the given registry.
func NewExecutor(registry *tool.Registry, logger logging.Logger) *Executor {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Executor{registry: registry, logger: logger}
}

// Execute runs every tool call in resp in order. Resolution and argument
// failures abort the session immediately; a tool that fails while executing
// has its error serialized as the tool result so the model can recover.
func (e *Executor) Execute(ctx context.Context, conversation []chat.Message, resp *chat.Response) (*ExecutionResult, error) {
	if !resp.Message.HasToolCalls() {
		return nil, errors.New("response carries no tool calls to execute")
	}

	result := &ExecutionResult{
		ConversationHistory: append(append([]chat.Message(nil), conversation...), resp.Message),
		ReturnDirect:        true,
	}

	for _, call := range resp.Message.ToolCalls {
		t, err := e.registry.Resolve(call.Name)
		if err != nil {
			return nil, err
		}

		args, err := call.ArgumentMap()
		if err != nil {
			return nil, &tool.ArgumentError{Tool: call.Name, Err: err}
		}

		output, err := t.Call(ctx, args)
		if err != nil {
			var te *tool.ToolError
			if errors.As(err, &te) && te.Code == "VALIDATION_ERROR" {
				return nil, &tool.ArgumentError{Tool: call.Name, Err: err}
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Runtime failures are fed back to the model as the tool result.
			e.logger.Warn("runner.tool.failed", "tool", call.Name, "tool_call_id", call.ID, "error", err.Error())
			output = fmt.Sprintf("tool execution failed: %v", err)
		} else {
			e.logger.Debug("runner.tool.executed", "tool", call.Name, "tool_call_id", call.ID)
		}

		content, err := serializeResult(output)
		if err != nil {
			return nil, fmt.Errorf("serialize result of tool %s: %w", call.Name, err)
		}

		msg := chat.NewToolMessage(call.ID, content)
		result.ToolMessages = append(result.ToolMessages, msg)
		result.ConversationHistory = append(result.ConversationHistory, msg)
		result.ReturnDirect = result.ReturnDirect && tool.ReturnsDirect(t)
	}

	return result, nil
}

// DirectResponse builds the final response for a return-direct turn: the tool
// output becomes the assistant's answer without another provider call.
func (r *ExecutionResult) DirectResponse(usage *chat.TokenUsage) *chat.Response {
	contents := make([]string, 0, len(r.ToolMessages))
	for _, msg := range r.ToolMessages {
		contents = append(contents, msg.Content)
	}
	return &chat.Response{
		Message:      chat.NewAssistantMessage(strings.Join(contents, "\n")),
		FinishReason: "return_direct",
		Usage:        usage,
	}
}

// serializeResult renders a tool's return value as message content. Strings
// pass through untouched; everything else is JSON encoded.
func serializeResult(output any) (string, error) {
	switch v := output.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}
