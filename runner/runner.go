package runner

import (
	"context"

	"github.com/google/uuid"
	"github.com/modelmux/modelmux/chat"
	"github.com/modelmux/modelmux/logging"
	"github.com/modelmux/modelmux/provider"
	"github.com/modelmux/modelmux/tool"
)

// Options configures a Runner.
type Options struct {
	// Registry supplies the tools exposed to the model. nil disables
	// loop-internal tool execution entirely; tool-calling responses are then
	// returned to the caller as-is.
	Registry *tool.Registry

	// Defaults are the session options per-call overrides merge over.
	Defaults chat.Options

	Logger logging.Logger
}

// Runner drives tool-calling sessions against one provider client. A Runner
// is immutable after construction and safe for concurrent sessions; all
// per-session state lives in the Run / RunStream call frames.
type Runner struct {
	client   provider.Client
	registry *tool.Registry
	executor *Executor
	defaults chat.Options
	logger   logging.Logger
}

// New constructs a Runner over the given provider client.
func New(client provider.Client, optFns ...func(o *Options)) *Runner {
	opts := Options{Logger: logging.NewDefaultSlogLogger()}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	r := &Runner{
		client:   client,
		registry: opts.Registry,
		defaults: opts.Defaults,
		logger:   opts.Logger,
	}
	if opts.Registry != nil {
		r.executor = NewExecutor(opts.Registry, opts.Logger)
	}
	return r
}

// WithRegistry sets the tool registry.
func WithRegistry(registry *tool.Registry) func(o *Options) {
	return func(o *Options) { o.Registry = registry }
}

// WithDefaults sets the default session options.
func WithDefaults(optFns ...func(o *chat.Options)) func(o *Options) {
	return func(o *Options) {
		for _, fn := range optFns {
			fn(&o.Defaults)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = logger }
}

// Run executes a blocking session: provider calls and tool executions
// alternate until the model answers without requesting tools, a tool marked
// return-direct short-circuits, an error occurs, or the turn limit is hit.
// The returned response's usage is the total accumulated across all turns.
func (r *Runner) Run(ctx context.Context, messages []chat.Message, optFns ...func(o *chat.Options)) (*chat.Response, error) {
	opts := r.resolveOptions(optFns)
	sessionID := uuid.NewString()
	conversation := append([]chat.Message(nil), messages...)
	limiter := NewTurnLimiter(opts.MaxTurns)
	var prior *chat.TokenUsage

	for {
		if err := limiter.Take(); err != nil {
			return nil, err
		}
		r.logger.Debug("runner.turn.start", "session_id", sessionID, "turn", limiter.Count(), "messages", len(conversation))

		resp, err := r.client.Invoke(ctx, r.buildRequest(conversation, opts))
		if err != nil {
			return nil, err
		}
		resp.Usage = chat.MergeUsage(resp.Usage, prior)

		if !RequiresToolExecution(opts, resp) || r.executor == nil {
			r.logger.Info("runner.session.complete", "session_id", sessionID, "turns", limiter.Count(), "finish_reason", resp.FinishReason)
			return resp, nil
		}

		result, err := r.executor.Execute(ctx, conversation, resp)
		if err != nil {
			return nil, err
		}
		if result.ReturnDirect {
			r.logger.Info("runner.session.return_direct", "session_id", sessionID, "turns", limiter.Count())
			return result.DirectResponse(resp.Usage), nil
		}
		conversation = result.ConversationHistory
		prior = resp.Usage
	}
}

// RunStream executes a streaming session. Incremental responses are delivered
// on the returned channel as the provider streams them; tool-calling turns are
// consumed internally (their tool-bearing terminal response is not emitted)
// and the loop continues with a new provider stream. Each emitted response
// carries the usage accumulated so far; the final element carries the
// session total. The error channel delivers at most one terminal error;
// both channels are closed when the session ends.
func (r *Runner) RunStream(ctx context.Context, messages []chat.Message, optFns ...func(o *chat.Options)) (<-chan chat.Response, <-chan error) {
	out := make(chan chat.Response, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		opts := r.resolveOptions(optFns)
		sessionID := uuid.NewString()
		conversation := append([]chat.Message(nil), messages...)
		limiter := NewTurnLimiter(opts.MaxTurns)
		session := newSessionState()
		var prior *chat.TokenUsage

		emit := func(resp *chat.Response) bool {
			select {
			case out <- *resp:
				return true
			case <-ctx.Done():
				errCh <- ctx.Err()
				return false
			}
		}

		for {
			if err := limiter.Take(); err != nil {
				errCh <- err
				return
			}
			r.logger.Debug("runner.turn.start", "session_id", sessionID, "turn", limiter.Count(), "messages", len(conversation))

			chunks, provErrs := r.client.InvokeStreaming(ctx, r.buildRequest(conversation, opts))
			agg := newAggregator(session, prior)

			for chunks != nil || provErrs != nil {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case ck, ok := <-chunks:
					if !ok {
						chunks = nil
						continue
					}
					released, err := agg.Push(ck)
					if err != nil {
						errCh <- err
						return
					}
					if released != nil && emittable(released) && !RequiresToolExecution(opts, released) {
						if !emit(released) {
							return
						}
					}
				case err, ok := <-provErrs:
					if !ok {
						provErrs = nil
						continue
					}
					errCh <- err
					return
				}
			}

			final, err := agg.Final()
			if err != nil {
				errCh <- err
				return
			}

			if !RequiresToolExecution(opts, final) || r.executor == nil {
				if tail := agg.Flush(); tail != nil {
					if !emit(tail) {
						return
					}
				}
				r.logger.Info("runner.session.complete", "session_id", sessionID, "turns", limiter.Count(), "finish_reason", final.FinishReason)
				return
			}

			// Tool-calling turn: the held tail chunk belongs to the consumed
			// response and is not emitted.
			agg.Flush()
			result, err := r.executor.Execute(ctx, conversation, final)
			if err != nil {
				errCh <- err
				return
			}
			if result.ReturnDirect {
				r.logger.Info("runner.session.return_direct", "session_id", sessionID, "turns", limiter.Count())
				emit(result.DirectResponse(final.Usage))
				return
			}
			conversation = result.ConversationHistory
			prior = final.Usage
		}
	}()

	return out, errCh
}

// emittable filters out responses with nothing to say: chunks that carried
// only a role announcement or tool-call fragments release empty responses.
func emittable(resp *chat.Response) bool {
	return resp.Message.Content != "" || resp.FinishReason != ""
}

func (r *Runner) resolveOptions(optFns []func(o *chat.Options)) chat.Options {
	var override chat.Options
	for _, fn := range optFns {
		fn(&override)
	}
	return r.defaults.Merge(override)
}

func (r *Runner) buildRequest(conversation []chat.Message, opts chat.Options) *provider.Request {
	req := &provider.Request{
		Model:    opts.Model,
		Messages: conversation,
	}
	// Tools are exposed whenever a registry exists; with internal execution
	// disabled the caller handles any calls the model makes.
	if r.registry != nil {
		req.Tools = r.registry.DefinitionsFor(opts.ToolNames)
	}
	return req
}
