// Package tool implements the function / tool calling subsystem that lets the
// orchestration loop invoke structured capabilities (APIs, computations,
// side-effects) with schema validated arguments, consistent error handling and
// rich metadata for LLM guidance.
package tool

import (
	"context"
	"fmt"

	"github.com/modelmux/modelmux/internal/schema"
)

// Tool defines the interface for capabilities a model may invoke.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define proper JSON schema for parameters
//   - Handle errors gracefully
//   - Be thread-safe if used concurrently
type Tool interface {
	// Name returns the unique identifier for this tool.
	// Names should be descriptive and follow function naming conventions (snake_case recommended).
	Name() string

	// Description returns a human-readable description of what this tool does.
	// This description is provided to the LLM to help it understand when and how to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	// This schema is used for parameter validation and LLM function calling.
	Parameters() map[string]any

	// Call executes the tool with already-validated structured arguments.
	// The context carries cancellation from the orchestration session.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// DirectTool marks a tool whose output is surfaced as the session's final
// answer instead of being sent back to the model for further reasoning.
type DirectTool interface {
	Tool
	ReturnDirect() bool
}

// ReturnsDirect reports whether a tool is marked return-direct.
func ReturnsDirect(t Tool) bool {
	dt, ok := t.(DirectTool)
	return ok && dt.ReturnDirect()
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = schema.ValidationError

// ResolutionError is returned when a tool call names a tool that is not
// registered. A misconfigured tool is a programming error, not a transient
// condition; sessions fail immediately without retry.
type ResolutionError struct {
	Name string `json:"name"`
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("no tool registered for name %q", e.Name)
}

// ArgumentError is returned when a tool call's argument payload cannot be
// deserialized or does not satisfy the tool's declared schema. Not retried.
type ArgumentError struct {
	Tool string `json:"tool"`
	Err  error  `json:"-"`
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid arguments for tool %s: %v", e.Tool, e.Err)
}

func (e *ArgumentError) Unwrap() error { return e.Err }

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}
