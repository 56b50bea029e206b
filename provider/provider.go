package provider

import (
	"context"

	"github.com/modelmux/modelmux/chat"
)

// Request captures the fully-formed provider input built by the orchestration
// loop from the current conversation and resolved options.
type Request struct {
	Model    string                `json:"model,omitempty"` // empty means the adapter default
	Messages []chat.Message        `json:"messages"`
	Tools    []chat.ToolDefinition `json:"tools,omitempty"`
}

// Info contains metadata about a client implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "gemini", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Client is the minimal interface required to drive generation against a
// remote model endpoint. Both entry points may return the error taxonomy in
// errors.go; InvokeStreaming delivers chunks in order, at most once, and
// closes both channels when the call completes or fails.
type Client interface {
	// Invoke performs one blocking call and returns the normalized response.
	Invoke(ctx context.Context, req *Request) (*chat.Response, error)

	// InvokeStreaming performs one streaming call. Chunks arrive on the first
	// channel in order; a terminal error (if any) arrives on the second.
	InvokeStreaming(ctx context.Context, req *Request) (<-chan chat.Chunk, <-chan error)

	// Info returns information about the client implementation.
	Info() Info
}
