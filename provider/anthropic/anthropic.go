// Package anthropic adapts the Anthropic Messages API to the generic
// provider.Client interface. Tool calls map onto tool_use content blocks and
// tool responses onto tool_result blocks; streamed tool arguments arrive as
// partial JSON deltas keyed by content block index.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"
	"github.com/modelmux/modelmux/chat"
	"github.com/modelmux/modelmux/provider"
)

// Options configures the Anthropic adapter (model id, temperature, max
// tokens, API key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Client wraps the Anthropic Messages API behind provider.Client.
type Client struct {
	client *anthropic.Client
	opts   Options
}

var _ provider.Client = (*Client)(nil)

// New creates an Anthropic client using the official SDK.
func New(optFns ...func(o *Options)) *Client {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)
	return &Client{client: &client, opts: opts}
}

// NewFromClient creates an Anthropic adapter from an existing SDK client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Client {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
}

// Info implements provider.Client.
func (c *Client) Info() provider.Info {
	return provider.Info{Name: string(c.opts.Model), Provider: "anthropic", SupportsTools: true}
}

// Invoke implements the blocking call path.
func (c *Client) Invoke(ctx context.Context, req *provider.Request) (*chat.Response, error) {
	resp, err := c.client.Messages.New(ctx, c.buildParams(req))
	if err != nil {
		return nil, classify(err)
	}

	msg := chat.Message{Role: chat.RoleAssistant}
	for _, block := range resp.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			msg.Content += variant.Text
		case anthropic.ToolUseBlock:
			msg.ToolCalls = append(msg.ToolCalls, chat.ToolCall{
				ID:        variant.ID,
				Name:      variant.Name,
				Arguments: rawInput(variant.Input),
			})
		}
	}

	return &chat.Response{
		Message:      msg,
		FinishReason: string(resp.StopReason),
		Usage: &chat.TokenUsage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}, nil
}

// InvokeStreaming implements the streaming call path. Text deltas and partial
// tool-call JSON are forwarded as they arrive; input tokens come from the
// message_start event and output tokens from the message_delta event, so the
// complete usage is carried on the content-free terminal chunk.
func (c *Client) InvokeStreaming(ctx context.Context, req *provider.Request) (<-chan chat.Chunk, <-chan error) {
	out := make(chan chat.Chunk, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		stream := c.client.Messages.NewStreaming(ctx, c.buildParams(req))

		var (
			id         = uuid.NewString()
			roleSent   bool
			stopReason string
			usage      chat.TokenUsage
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

		for stream.Next() {
			event := stream.Current()
			switch variant := event.AsAny().(type) {
			case anthropic.MessageStartEvent:
				if variant.Message.ID != "" {
					id = variant.Message.ID
				}
				usage.PromptTokens = int(variant.Message.Usage.InputTokens)
			case anthropic.ContentBlockStartEvent:
				if block, ok := variant.ContentBlock.AsAny().(anthropic.ToolUseBlock); ok {
					if !send(chat.Chunk{ToolCallDeltas: []chat.ToolCallDelta{{
						Index: int(variant.Index),
						ID:    block.ID,
						Name:  block.Name,
					}}}) {
						return
					}
				}
			case anthropic.ContentBlockDeltaEvent:
				switch delta := variant.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					if delta.Text != "" {
						if !send(chat.Chunk{ContentDelta: delta.Text}) {
							return
						}
					}
				case anthropic.InputJSONDelta:
					if delta.PartialJSON != "" {
						if !send(chat.Chunk{ToolCallDeltas: []chat.ToolCallDelta{{
							Index:     int(variant.Index),
							Arguments: delta.PartialJSON,
						}}}) {
							return
						}
					}
				}
			case anthropic.MessageDeltaEvent:
				if variant.Delta.StopReason != "" {
					stopReason = string(variant.Delta.StopReason)
				}
				if variant.Usage.OutputTokens > 0 {
					usage.CompletionTokens = int(variant.Usage.OutputTokens)
				}
			}
		}
		if err := stream.Err(); err != nil {
			errCh <- classify(err)
			return
		}

		usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
		send(chat.Chunk{Done: true, FinishReason: stopReason, Usage: &usage})
	}()

	return out, errCh
}

// buildParams assembles the Messages API parameters. System messages are
// extracted into the dedicated system field; tool responses become
// tool_result blocks inside user messages, as the API requires.
func (c *Client) buildParams(req *provider.Request) anthropic.MessageNewParams {
	model := c.opts.Model
	if req.Model != "" {
		model = anthropic.Model(req.Model)
	}
	params := anthropic.MessageNewParams{
		Model:       model,
		MaxTokens:   c.opts.MaxTokens,
		Temperature: anthropic.Float(c.opts.Temperature),
		Messages:    buildMessages(req.Messages),
	}
	if system := extractSystem(req.Messages); len(system) > 0 {
		params.System = system
	}
	if len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
	}
	return params
}

func extractSystem(msgs []chat.Message) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	for _, m := range msgs {
		if m.Role == chat.RoleSystem && m.Content != "" {
			blocks = append(blocks, anthropic.TextBlockParam{Text: m.Content})
		}
	}
	return blocks
}

func buildMessages(msgs []chat.Message) []anthropic.MessageParam {
	var messages []anthropic.MessageParam
	for _, m := range msgs {
		switch m.Role {
		case chat.RoleSystem:
			continue
		case chat.RoleUser:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case chat.RoleAssistant:
			if !m.HasToolCalls() {
				messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
				continue
			}
			assistant := anthropic.MessageParam{Role: anthropic.MessageParamRoleAssistant}
			if m.Content != "" {
				assistant.Content = append(assistant.Content, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				var input map[string]any
				if err := json.Unmarshal([]byte(tc.Arguments), &input); err != nil {
					input = map[string]any{}
				}
				assistant.Content = append(assistant.Content, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    tc.ID,
						Name:  tc.Name,
						Input: input,
					},
				})
			}
			messages = append(messages, assistant)
		case chat.RoleTool:
			messages = append(messages, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false),
			))
		}
	}
	return messages
}

func buildTools(defs []chat.ToolDefinition) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, len(defs))
	for i, def := range defs {
		properties, _ := def.Parameters["properties"].(map[string]any)
		required := requiredNames(def.Parameters["required"])
		tools[i] = anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        def.Name,
			Description: anthropic.String(def.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: properties,
				Required:   required,
			},
		}}
	}
	return tools
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

// rawInput renders a tool_use input as its JSON argument string.
func rawInput(input any) string {
	switch v := input.(type) {
	case json.RawMessage:
		return string(v)
	case []byte:
		return string(v)
	case string:
		return v
	case nil:
		return ""
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// classify maps SDK errors onto the provider error taxonomy.
func classify(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return provider.ClassifyStatus(apierr.StatusCode, fmt.Errorf("anthropic: %w", err))
	}
	return provider.ClassifyStatus(0, fmt.Errorf("anthropic: %w", err))
}
