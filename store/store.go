// Package store persists conversation histories between sessions, letting a
// caller resume a tool-calling conversation where it left off. Two
// implementations are provided: a volatile in-memory store for tests and
// ephemeral use, and a SQLite-backed store for durable histories.
package store

import (
	"context"

	"github.com/modelmux/modelmux/chat"
)

// ConversationStore saves and restores conversation histories keyed by
// session id. Save replaces the stored history wholesale; histories are
// treated as immutable snapshots, not append logs.
type ConversationStore interface {
	Save(ctx context.Context, sessionID string, history []chat.Message) error

	// Load returns the stored history, or an empty slice for an unknown session.
	Load(ctx context.Context, sessionID string) ([]chat.Message, error)

	Delete(ctx context.Context, sessionID string) error

	// ListSessions returns known session ids, most recently updated first.
	ListSessions(ctx context.Context) ([]string, error)
}
