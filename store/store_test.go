package store

import (
	"context"
	"testing"

	"github.com/modelmux/modelmux/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleHistory() []chat.Message {
	return []chat.Message{
		chat.NewSystemMessage("You are a helpful assistant."),
		chat.NewUserMessage("What's the weather in Berlin?"),
		chat.NewAssistantMessage("", chat.ToolCall{ID: "call_1", Name: "weather", Arguments: `{"city":"Berlin"}`}),
		chat.NewToolMessage("call_1", "Sunny, 22°C"),
		chat.NewAssistantMessage("It is sunny in Berlin, 22°C."),
	}
}

func testStore(t *testing.T, s ConversationStore) {
	t.Helper()
	ctx := context.Background()

	loaded, err := s.Load(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, loaded, "unknown session loads as empty history")

	history := sampleHistory()
	require.NoError(t, s.Save(ctx, "s1", history))

	loaded, err = s.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, loaded, len(history))
	assert.Equal(t, history, loaded, "tool exchange survives the round trip")

	// Saving again replaces, not appends.
	require.NoError(t, s.Save(ctx, "s1", history[:2]))
	loaded, err = s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, loaded, 2)

	require.NoError(t, s.Save(ctx, "s2", history[:1]))
	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s1", "s2"}, sessions)

	require.NoError(t, s.Delete(ctx, "s1"))
	loaded, err = s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, loaded)
	sessions, err = s.ListSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, sessions)
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestMemoryStore_ClonesOnLoad(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "s1", sampleHistory()))

	loaded, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	loaded[0].Content = "mutated"
	loaded[2].ToolCalls[0].Name = "mutated"

	fresh, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "You are a helpful assistant.", fresh[0].Content)
	assert.Equal(t, "weather", fresh[2].ToolCalls[0].Name)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteInMemory()
	require.NoError(t, err)
	defer s.Close()
	testStore(t, s)
}

func TestSQLiteStore_OpensFileAndPersists(t *testing.T) {
	path := t.TempDir() + "/conversations/history.db"
	ctx := context.Background()

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "s1", sampleHistory()))
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, sampleHistory(), loaded)
}
