package modelmux

import (
	"context"
	"testing"

	"github.com/modelmux/modelmux/chat"
	"github.com/modelmux/modelmux/provider"
	"github.com/modelmux/modelmux/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMux_ChatPersistsHistory(t *testing.T) {
	mock := provider.NewMockClient()
	mux := New(mock)
	ctx := context.Background()

	resp, err := mux.Chat(ctx, "s1", "hello there")
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: hello there", resp.Message.Content)

	history, err := mux.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, chat.RoleUser, history[0].Role)
	assert.Equal(t, chat.RoleAssistant, history[1].Role)

	// Second turn sees the stored history.
	_, err = mux.Chat(ctx, "s1", "and again")
	require.NoError(t, err)
	reqs := mock.Requests()
	require.Len(t, reqs, 2)
	assert.Len(t, reqs[1].Messages, 3)
}

func TestMux_ChatWithTools(t *testing.T) {
	registry := tool.MustNewRegistry(tool.NewFunctionTool(
		"weather", "Current weather", map[string]any{
			"type":       "object",
			"properties": map[string]any{"city": map[string]any{"type": "string"}},
			"required":   []string{"city"},
		},
		func(ctx context.Context, args map[string]any) (any, error) {
			return "Sunny in " + args["city"].(string), nil
		},
	))

	mock := provider.NewMockClient()
	mock.EnqueueResponse(&chat.Response{
		Message: chat.NewAssistantMessage("",
			chat.ToolCall{ID: "call_1", Name: "weather", Arguments: `{"city":"Berlin"}`}),
		FinishReason: "tool_calls",
	})
	mock.EnqueueResponse(&chat.Response{
		Message:      chat.NewAssistantMessage("It is sunny in Berlin."),
		FinishReason: "stop",
	})

	mux := New(mock, func(o *Options) { o.Registry = registry })
	resp, err := mux.Chat(context.Background(), "s1", "weather in Berlin?")
	require.NoError(t, err)
	assert.Equal(t, "It is sunny in Berlin.", resp.Message.Content)

	// Only the visible exchange is persisted, not the tool plumbing.
	history, err := mux.History(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, history, 2)
}

func TestMux_ChatStream(t *testing.T) {
	mock := provider.NewMockClient()
	mock.EnqueueChunks(
		chat.Chunk{ID: "r1", Role: chat.RoleAssistant, ContentDelta: "Hel"},
		chat.Chunk{ID: "r1", ContentDelta: "lo"},
		chat.Chunk{ID: "r1", Done: true, FinishReason: "stop"},
	)

	mux := New(mock)
	responses, errCh := mux.ChatStream(context.Background(), "s1", "hi")

	var text string
	for resp := range responses {
		text += resp.Message.Content
	}
	require.NoError(t, <-errCh)
	assert.Equal(t, "Hello", text)

	history, err := mux.History(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Hello", history[1].Content)
}
