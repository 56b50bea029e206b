// Package openai adapts the OpenAI Chat Completions API (including streaming
// and function/tool calling) to the generic provider.Client interface. It
// converts the normalized conversation into the SDK's message format and maps
// SDK failures onto the transient / non-transient error taxonomy.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelmux/modelmux/chat"
	"github.com/modelmux/modelmux/provider"
	"github.com/openai/openai-go"
)

// Options configure the OpenAI adapter. Fields mirror a subset of Chat
// Completion parameters intentionally kept minimal; extend via functional
// options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Client wraps the OpenAI Chat Completions API behind provider.Client.
type Client struct {
	client *openai.Client
	opts   Options
}

var _ provider.Client = (*Client)(nil)

// New creates an OpenAI client using the official SDK's default
// configuration (OPENAI_API_KEY from the environment).
func New(optFns ...func(o *Options)) *Client {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates an OpenAI adapter from an existing SDK client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Client {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{client: client, opts: opts}
}

// Info implements provider.Client.
func (c *Client) Info() provider.Info {
	return provider.Info{Name: c.opts.Model, Provider: "openai", SupportsTools: true}
}

// Invoke implements the blocking call path.
func (c *Client) Invoke(ctx context.Context, req *provider.Request) (*chat.Response, error) {
	resp, err := c.client.Chat.Completions.New(ctx, c.buildParams(req))
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &provider.NonTransientError{Err: errors.New("openai: no choices returned")}
	}

	choice := resp.Choices[0]
	msg := chat.Message{Role: chat.RoleAssistant, Content: choice.Message.Content}
	for _, tc := range choice.Message.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, chat.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return &chat.Response{
		Message:      msg,
		FinishReason: choice.FinishReason,
		Usage: &chat.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

// InvokeStreaming implements the streaming call path. Content and tool-call
// deltas are forwarded as they arrive; the finish reason and the usage
// counters (delivered by the API on a trailing empty chunk) are carried on a
// single content-free terminal chunk.
func (c *Client) InvokeStreaming(ctx context.Context, req *provider.Request) (<-chan chat.Chunk, <-chan error) {
	out := make(chan chat.Chunk, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		params := c.buildParams(req)
		params.StreamOptions = openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: openai.Bool(true),
		}
		stream := c.client.Chat.Completions.NewStreaming(ctx, params)

		var (
			id           string
			roleSent     bool
			finishReason string
			usage        *chat.TokenUsage
		)
		for stream.Next() {
			sck := stream.Current()
			if id == "" {
				id = sck.ID
			}
			if sck.Usage.TotalTokens > 0 {
				usage = &chat.TokenUsage{
					PromptTokens:     int(sck.Usage.PromptTokens),
					CompletionTokens: int(sck.Usage.CompletionTokens),
					TotalTokens:      int(sck.Usage.TotalTokens),
				}
			}
			for _, choice := range sck.Choices {
				if choice.FinishReason != "" {
					finishReason = choice.FinishReason
				}
				ck := chat.Chunk{ID: id, ContentDelta: choice.Delta.Content}
				for _, tc := range choice.Delta.ToolCalls {
					ck.ToolCallDeltas = append(ck.ToolCallDeltas, chat.ToolCallDelta{
						Index:     int(tc.Index),
						ID:        tc.ID,
						Name:      tc.Function.Name,
						Arguments: tc.Function.Arguments,
					})
				}
				if !ck.HasContent() {
					continue
				}
				if !roleSent {
					ck.Role = chat.RoleAssistant
					roleSent = true
				}
				select {
				case out <- ck:
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				}
			}
		}
		if err := stream.Err(); err != nil {
			errCh <- classify(err)
			return
		}
		if id == "" {
			return
		}

		terminal := chat.Chunk{ID: id, Done: true, FinishReason: finishReason, Usage: usage}
		if !roleSent {
			terminal.Role = chat.RoleAssistant
		}
		select {
		case out <- terminal:
		case <-ctx.Done():
			errCh <- ctx.Err()
		}
	}()

	return out, errCh
}

// buildParams assembles the request parameters including tool definitions.
func (c *Client) buildParams(req *provider.Request) openai.ChatCompletionNewParams {
	model := c.opts.Model
	if req.Model != "" {
		model = req.Model
	}
	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(req.Messages),
		Model:               model,
		Temperature:         openai.Float(c.opts.Temperature),
		MaxCompletionTokens: openai.Int(c.opts.MaxCompletionTokens),
	}
	if len(req.Tools) == 0 {
		return params
	}
	tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
	for i, def := range req.Tools {
		tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        def.Name,
				Description: openai.String(def.Description),
				Parameters:  openai.FunctionParameters(def.Parameters),
			},
		}
	}
	params.Tools = tools
	return params
}

// buildMessages converts the normalized conversation into OpenAI chat messages.
func buildMessages(msgs []chat.Message) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	for _, m := range msgs {
		switch m.Role {
		case chat.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case chat.RoleUser:
			messages = append(messages, openai.UserMessage(m.Content))
		case chat.RoleAssistant:
			if !m.HasToolCalls() {
				messages = append(messages, openai.AssistantMessage(m.Content))
				continue
			}
			assistant := openai.ChatCompletionAssistantMessageParam{Role: "assistant"}
			if m.Content != "" {
				assistant.Content.OfString = openai.String(m.Content)
			}
			for _, tc := range m.ToolCalls {
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID:   tc.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
			messages = append(messages, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		case chat.RoleTool:
			messages = append(messages, openai.ToolMessage(m.Content, m.ToolCallID))
		default:
			if m.Content != "" {
				messages = append(messages, openai.UserMessage(m.Content))
			}
		}
	}
	return messages
}

// classify maps SDK errors onto the provider error taxonomy.
func classify(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return provider.ClassifyStatus(apierr.StatusCode, fmt.Errorf("openai: %w", err))
	}
	return provider.ClassifyStatus(0, fmt.Errorf("openai: %w", err))
}
