// Package gemini adapts the Google Gemini API (google.golang.org/genai) to
// the generic provider.Client interface. Gemini has no separate tool call id,
// so the function name doubles as the correlation id, and tool responses are
// sent back as function response parts inside user content.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/modelmux/modelmux/chat"
	"github.com/modelmux/modelmux/provider"
	"google.golang.org/genai"
)

// Options configures the Gemini adapter.
type Options struct {
	Model       string
	Temperature float32
	MaxTokens   int32
	APIKey      string
}

// Client wraps the Gemini API behind provider.Client.
type Client struct {
	client *genai.Client
	opts   Options
}

var _ provider.Client = (*Client)(nil)

// New creates a Gemini client. Client construction needs a context because
// the SDK may resolve credentials eagerly.
func New(ctx context.Context, optFns ...func(o *Options)) (*Client, error) {
	opts := Options{
		Model:       "gemini-2.0-flash",
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: initialize client: %w", err)
	}
	return &Client{client: client, opts: opts}, nil
}

// NewFromClient creates a Gemini adapter from an existing SDK client.
func NewFromClient(client *genai.Client, optFns ...func(o *Options)) *Client {
	opts := Options{
		Model:       "gemini-2.0-flash",
		Temperature: 0.7,
		MaxTokens:   4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{client: client, opts: opts}
}

// Info implements provider.Client.
func (c *Client) Info() provider.Info {
	return provider.Info{Name: c.opts.Model, Provider: "gemini", SupportsTools: true}
}

// Invoke implements the blocking call path.
func (c *Client) Invoke(ctx context.Context, req *provider.Request) (*chat.Response, error) {
	contents, config := c.buildRequest(req)
	model := c.opts.Model
	if req.Model != "" {
		model = req.Model
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, &provider.NonTransientError{Err: errors.New("gemini: no candidates returned")}
	}

	candidate := resp.Candidates[0]
	msg := chat.Message{Role: chat.RoleAssistant}
	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			msg.Content += part.Text
		}
		if part.FunctionCall != nil {
			args, _ := json.Marshal(part.FunctionCall.Args)
			msg.ToolCalls = append(msg.ToolCalls, chat.ToolCall{
				// Gemini has no call id; the function name correlates the response.
				ID:        part.FunctionCall.Name,
				Name:      part.FunctionCall.Name,
				Arguments: string(args),
			})
		}
	}

	finishReason := string(candidate.FinishReason)
	if msg.HasToolCalls() {
		finishReason = "tool_calls"
	}
	return &chat.Response{
		Message:      msg,
		FinishReason: finishReason,
		Usage:        usageFrom(resp.UsageMetadata),
	}, nil
}

// InvokeStreaming implements the streaming call path. The SDK yields complete
// partial responses; text is forwarded as content deltas and function calls
// as whole tool-call fragments. Usage metadata from the last partial is
// carried on the content-free terminal chunk.
func (c *Client) InvokeStreaming(ctx context.Context, req *provider.Request) (<-chan chat.Chunk, <-chan error) {
	out := make(chan chat.Chunk, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		contents, config := c.buildRequest(req)
		model := c.opts.Model
		if req.Model != "" {
			model = req.Model
		}

		var (
			id           = uuid.NewString()
			roleSent     bool
			sawToolCall  bool
			callIndex    int
			finishReason string
			usage        *chat.TokenUsage
		)
		send := func(ck chat.Chunk) bool {
			ck.ID = id
			if !roleSent {
				ck.Role = chat.RoleAssistant
				roleSent = true
			}
			select {
			case out <- ck:
				return true
			case <-ctx.Done():
				errCh <- ctx.Err()
				return false
			}
		}

		for resp, err := range c.client.Models.GenerateContentStream(ctx, model, contents, config) {
			if err != nil {
				errCh <- classify(err)
				return
			}
			if u := usageFrom(resp.UsageMetadata); u != nil {
				usage = u
			}
			if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
				continue
			}
			candidate := resp.Candidates[0]
			if candidate.FinishReason != "" {
				finishReason = string(candidate.FinishReason)
			}
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					if !send(chat.Chunk{ContentDelta: part.Text}) {
						return
					}
				}
				if part.FunctionCall != nil {
					args, _ := json.Marshal(part.FunctionCall.Args)
					sawToolCall = true
					if !send(chat.Chunk{ToolCallDeltas: []chat.ToolCallDelta{{
						Index:     callIndex,
						ID:        part.FunctionCall.Name,
						Name:      part.FunctionCall.Name,
						Arguments: string(args),
					}}}) {
						return
					}
					callIndex++
				}
			}
		}

		if sawToolCall {
			finishReason = "tool_calls"
		}
		send(chat.Chunk{Done: true, FinishReason: finishReason, Usage: usage})
	}()

	return out, errCh
}

// buildRequest converts the normalized request into Gemini contents + config.
func (c *Client) buildRequest(req *provider.Request) ([]*genai.Content, *genai.GenerateContentConfig) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(c.opts.Temperature),
		MaxOutputTokens: c.opts.MaxTokens,
	}

	var contents []*genai.Content
	for _, m := range req.Messages {
		switch m.Role {
		case chat.RoleSystem:
			config.SystemInstruction = genai.NewContentFromText(m.Content, genai.RoleUser)
		case chat.RoleUser:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		case chat.RoleAssistant:
			if !m.HasToolCalls() {
				contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
				continue
			}
			content := &genai.Content{Role: genai.RoleModel}
			if m.Content != "" {
				content.Parts = append(content.Parts, &genai.Part{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				var args map[string]any
				_ = json.Unmarshal([]byte(tc.Arguments), &args)
				content.Parts = append(content.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{Name: tc.Name, Args: args},
				})
			}
			contents = append(contents, content)
		case chat.RoleTool:
			var result map[string]any
			_ = json.Unmarshal([]byte(m.Content), &result)
			if result == nil {
				result = map[string]any{"result": m.Content}
			}
			contents = append(contents, &genai.Content{
				Role: genai.RoleUser,
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						Name:     m.ToolCallID,
						Response: result,
					},
				}},
			})
		}
	}

	if len(req.Tools) > 0 {
		config.Tools = buildTools(req.Tools)
	}
	return contents, config
}

func buildTools(defs []chat.ToolDefinition) []*genai.Tool {
	declarations := make([]*genai.FunctionDeclaration, 0, len(defs))
	for _, def := range defs {
		declarations = append(declarations, &genai.FunctionDeclaration{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  schemaFrom(def.Parameters),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

// schemaFrom converts a JSON-schema-style parameter map to the SDK's typed
// schema. Gemini requires 'items' for arrays, defaulted to string items.
func schemaFrom(params map[string]any) *genai.Schema {
	schema := &genai.Schema{Type: genai.TypeObject}
	if params == nil {
		return schema
	}
	if t, ok := params["type"].(string); ok {
		schema.Type = geminiType(t)
	}
	schema.Required = requiredNames(params["required"])
	if props, ok := params["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema, len(props))
		for name, prop := range props {
			propMap, ok := prop.(map[string]any)
			if !ok {
				continue
			}
			schema.Properties[name] = propertySchema(propMap)
		}
	}
	return schema
}

func propertySchema(prop map[string]any) *genai.Schema {
	schema := &genai.Schema{}
	if t, ok := prop["type"].(string); ok {
		schema.Type = geminiType(t)
	}
	if d, ok := prop["description"].(string); ok {
		schema.Description = d
	}
	if schema.Type == genai.TypeArray {
		if items, ok := prop["items"].(map[string]any); ok {
			schema.Items = propertySchema(items)
		} else {
			schema.Items = &genai.Schema{Type: genai.TypeString}
		}
	}
	if schema.Type == genai.TypeObject {
		if props, ok := prop["properties"].(map[string]any); ok {
			schema.Properties = make(map[string]*genai.Schema, len(props))
			for name, p := range props {
				if pMap, ok := p.(map[string]any); ok {
					schema.Properties[name] = propertySchema(pMap)
				}
			}
		}
	}
	return schema
}

func geminiType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

func requiredNames(v any) []string {
	switch req := v.(type) {
	case []string:
		return req
	case []any:
		names := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				names = append(names, s)
			}
		}
		return names
	default:
		return nil
	}
}

func usageFrom(meta *genai.GenerateContentResponseUsageMetadata) *chat.TokenUsage {
	if meta == nil {
		return nil
	}
	return &chat.TokenUsage{
		PromptTokens:     int(meta.PromptTokenCount),
		CompletionTokens: int(meta.CandidatesTokenCount),
		TotalTokens:      int(meta.TotalTokenCount),
	}
}

// classify maps SDK errors onto the provider error taxonomy.
func classify(err error) error {
	var apierr genai.APIError
	if errors.As(err, &apierr) {
		return provider.ClassifyStatus(apierr.Code, fmt.Errorf("gemini: %w", err))
	}
	return provider.ClassifyStatus(0, fmt.Errorf("gemini: %w", err))
}
