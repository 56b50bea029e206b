package store

import (
	"context"
	"sync"

	"github.com/modelmux/modelmux/chat"
)

// MemoryStore is a volatile ConversationStore keeping histories in a process
// local map. It is safe for concurrent access and best suited for tests or
// ephemeral demo sessions. Histories are cloned on both save and load to
// prevent external mutation of internal state.
type MemoryStore struct {
	mu        sync.RWMutex
	histories map[string][]chat.Message
	order     []string
}

var _ ConversationStore = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{histories: make(map[string][]chat.Message)}
}

// Save implements ConversationStore.
func (s *MemoryStore) Save(_ context.Context, sessionID string, history []chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.histories[sessionID]; !exists {
		s.order = append(s.order, sessionID)
	}
	s.histories[sessionID] = cloneHistory(history)
	return nil
}

// Load implements ConversationStore.
func (s *MemoryStore) Load(_ context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history, ok := s.histories[sessionID]
	if !ok {
		return []chat.Message{}, nil
	}
	return cloneHistory(history), nil
}

// Delete implements ConversationStore.
func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.histories, sessionID)
	for i, id := range s.order {
		if id == sessionID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// ListSessions implements ConversationStore. Most recently created last-write
// order is approximated by insertion order, newest first.
func (s *MemoryStore) ListSessions(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessions := make([]string, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		sessions = append(sessions, s.order[i])
	}
	return sessions, nil
}

func cloneHistory(history []chat.Message) []chat.Message {
	cloned := make([]chat.Message, len(history))
	for i, msg := range history {
		cloned[i] = msg
		if len(msg.ToolCalls) > 0 {
			cloned[i].ToolCalls = append([]chat.ToolCall(nil), msg.ToolCalls...)
		}
	}
	return cloned
}
