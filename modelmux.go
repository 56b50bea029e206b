// Package modelmux provides a high-level façade over the orchestration
// runner, tool registry and conversation store, enabling rapid construction
// of tool-calling LLM applications. Most applications interact with this
// package by:
//  1. Creating a Mux via New() around a provider client (OpenAI, Anthropic,
//     Gemini, or a mock), optionally with tools and a durable store
//  2. Driving sessions with Chat (blocking) or ChatStream (incremental)
//
// The façade delegates orchestration to runner.Runner while keeping setup
// and usage ergonomics concise. All defaults are safe for local development
// and testing; production deployments typically supply a SQLite-backed store
// and a structured logger.
package modelmux

import (
	"context"
	"strings"

	"github.com/modelmux/modelmux/chat"
	"github.com/modelmux/modelmux/logging"
	"github.com/modelmux/modelmux/provider"
	"github.com/modelmux/modelmux/runner"
	"github.com/modelmux/modelmux/store"
	"github.com/modelmux/modelmux/tool"
)

// Options configures the Mux instance.
type Options struct {
	// Registry supplies the tools exposed to the model. nil disables tool
	// execution.
	Registry *tool.Registry

	// Store persists conversation histories across Chat calls. Defaults to
	// an in-memory store.
	Store store.ConversationStore

	// Defaults are the session options per-call overrides merge over.
	Defaults chat.Options

	// Logger defaults to a NoOp logger if nil.
	Logger logging.Logger
}

// Mux is the high-level façade aggregating the runner and conversation store.
type Mux struct {
	runner *runner.Runner
	store  store.ConversationStore
}

// New creates a Mux over the given provider client. Any unset service is
// initialized with an in-memory implementation.
func New(client provider.Client, optFns ...func(o *Options)) *Mux {
	opts := Options{
		Store:  store.NewMemoryStore(),
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	r := runner.New(client, func(o *runner.Options) {
		o.Registry = opts.Registry
		o.Defaults = opts.Defaults
		o.Logger = opts.Logger
	})
	return &Mux{runner: r, store: opts.Store}
}

// Runner exposes the underlying orchestration runner for callers that manage
// conversation state themselves.
func (m *Mux) Runner() *runner.Runner { return m.runner }

// History returns the stored conversation for a session.
func (m *Mux) History(ctx context.Context, sessionID string) ([]chat.Message, error) {
	return m.store.Load(ctx, sessionID)
}

// Chat appends the user input to the session's stored history, runs the
// blocking orchestration loop, persists the updated history and returns the
// final response.
func (m *Mux) Chat(ctx context.Context, sessionID, input string, optFns ...func(o *chat.Options)) (*chat.Response, error) {
	history, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	history = append(history, chat.NewUserMessage(input))

	resp, err := m.runner.Run(ctx, history, optFns...)
	if err != nil {
		return nil, err
	}

	history = append(history, resp.Message)
	if err := m.store.Save(ctx, sessionID, history); err != nil {
		return nil, err
	}
	return resp, nil
}

// ChatStream is the streaming counterpart of Chat. Incremental responses are
// forwarded on the returned channel; once the stream completes successfully
// the assembled assistant answer is persisted to the session history.
func (m *Mux) ChatStream(ctx context.Context, sessionID, input string, optFns ...func(o *chat.Options)) (<-chan chat.Response, <-chan error) {
	out := make(chan chat.Response, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		history, err := m.store.Load(ctx, sessionID)
		if err != nil {
			errCh <- err
			return
		}
		history = append(history, chat.NewUserMessage(input))

		responses, runErrs := m.runner.RunStream(ctx, history, optFns...)

		var content strings.Builder
		for resp := range responses {
			content.WriteString(resp.Message.Content)
			select {
			case out <- resp:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
		if err := <-runErrs; err != nil {
			errCh <- err
			return
		}

		history = append(history, chat.NewAssistantMessage(content.String()))
		if err := m.store.Save(ctx, sessionID, history); err != nil {
			errCh <- err
		}
	}()

	return out, errCh
}
