package runner

import (
	"testing"

	"github.com/modelmux/modelmux/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregator_HoldsBackMostRecentChunk(t *testing.T) {
	agg := newAggregator(newSessionState(), nil)

	released, err := agg.Push(chat.Chunk{ID: "r1", Role: chat.RoleAssistant, ContentDelta: "Hel"})
	require.NoError(t, err)
	assert.Nil(t, released, "first chunk must be held back")

	released, err = agg.Push(chat.Chunk{ID: "r1", ContentDelta: "lo"})
	require.NoError(t, err)
	require.NotNil(t, released)
	assert.Equal(t, "Hel", released.Message.Content)
}

func TestAggregator_FoldsContentFreeTrailerIntoHeldChunk(t *testing.T) {
	agg := newAggregator(newSessionState(), nil)

	_, err := agg.Push(chat.Chunk{ID: "r1", Role: chat.RoleAssistant, ContentDelta: "Hello"})
	require.NoError(t, err)

	released, err := agg.Push(chat.Chunk{
		ID: "r1", Done: true, FinishReason: "stop",
		Usage: &chat.TokenUsage{PromptTokens: 10, CompletionTokens: 2, TotalTokens: 12},
	})
	require.NoError(t, err)
	assert.Nil(t, released, "trailer must fold, not release an empty response")

	tail := agg.Flush()
	require.NotNil(t, tail)
	assert.Equal(t, "Hello", tail.Message.Content)
	assert.Equal(t, "stop", tail.FinishReason)
	require.NotNil(t, tail.Usage)
	assert.Equal(t, 12, tail.Usage.TotalTokens)
}

func TestAggregator_RolePinnedByFirstChunk(t *testing.T) {
	session := newSessionState()
	agg := newAggregator(session, nil)

	_, err := agg.Push(chat.Chunk{ID: "r1", Role: chat.RoleAssistant, ContentDelta: "a"})
	require.NoError(t, err)
	released, err := agg.Push(chat.Chunk{ID: "r1", ContentDelta: "b"})
	require.NoError(t, err)
	require.NotNil(t, released)
	assert.Equal(t, chat.RoleAssistant, released.Message.Role)

	released, err = agg.Push(chat.Chunk{ID: "r1", Done: true, FinishReason: "stop", ContentDelta: "c"})
	require.NoError(t, err)
	require.NotNil(t, released)
	assert.Equal(t, chat.RoleAssistant, released.Message.Role, "later chunks inherit the pinned role")
}

func TestAggregator_AccumulatesToolCallFragments(t *testing.T) {
	agg := newAggregator(newSessionState(), nil)

	_, err := agg.Push(chat.Chunk{ID: "r1", Role: chat.RoleAssistant, ToolCallDeltas: []chat.ToolCallDelta{
		{Index: 0, ID: "call_1", Name: "weather", Arguments: `{"city":`},
	}})
	require.NoError(t, err)
	_, err = agg.Push(chat.Chunk{ID: "r1", Done: true, FinishReason: "tool_calls", ToolCallDeltas: []chat.ToolCallDelta{
		{Index: 0, Arguments: `"Berlin"}`},
	}})
	require.NoError(t, err)

	final, err := agg.Final()
	require.NoError(t, err)
	require.Len(t, final.Message.ToolCalls, 1)
	call := final.Message.ToolCalls[0]
	assert.Equal(t, "call_1", call.ID)
	assert.Equal(t, "weather", call.Name)
	assert.Equal(t, `{"city":"Berlin"}`, call.Arguments)
	assert.Equal(t, "tool_calls", final.FinishReason)
}

func TestAggregator_ChunkAfterTerminalFails(t *testing.T) {
	agg := newAggregator(newSessionState(), nil)

	_, err := agg.Push(chat.Chunk{ID: "r1", ContentDelta: "done", Done: true, FinishReason: "stop"})
	require.NoError(t, err)

	_, err = agg.Push(chat.Chunk{ID: "r1", ContentDelta: "late"})
	var aggErr *AggregationError
	require.ErrorAs(t, err, &aggErr)
	assert.Equal(t, "r1", aggErr.ID)
}

func TestAggregator_UnterminatedStreamFails(t *testing.T) {
	agg := newAggregator(newSessionState(), nil)

	_, err := agg.Push(chat.Chunk{ID: "r1", ContentDelta: "partial"})
	require.NoError(t, err)

	_, err = agg.Final()
	var aggErr *AggregationError
	require.ErrorAs(t, err, &aggErr)
}

func TestAggregator_EmptyStreamFails(t *testing.T) {
	agg := newAggregator(newSessionState(), nil)
	_, err := agg.Final()
	var aggErr *AggregationError
	require.ErrorAs(t, err, &aggErr)
}

func TestAggregator_MergesPriorUsageIntoEveryRelease(t *testing.T) {
	prior := &chat.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}
	agg := newAggregator(newSessionState(), prior)

	_, err := agg.Push(chat.Chunk{ID: "r2", Role: chat.RoleAssistant, ContentDelta: "Sun"})
	require.NoError(t, err)
	released, err := agg.Push(chat.Chunk{ID: "r2", ContentDelta: "ny", Done: true, FinishReason: "stop",
		Usage: &chat.TokenUsage{PromptTokens: 20, CompletionTokens: 7, TotalTokens: 27}})
	require.NoError(t, err)

	require.NotNil(t, released)
	require.NotNil(t, released.Usage)
	assert.Equal(t, 15, released.Usage.TotalTokens, "mid-stream release carries the prior total")

	final, err := agg.Final()
	require.NoError(t, err)
	require.NotNil(t, final.Usage)
	assert.Equal(t, 30, final.Usage.PromptTokens)
	assert.Equal(t, 12, final.Usage.CompletionTokens)
	assert.Equal(t, 42, final.Usage.TotalTokens)
	assert.Equal(t, 15, prior.TotalTokens, "prior accumulator must not be mutated")
}
