package runner

import (
	"fmt"
	"strings"

	"github.com/modelmux/modelmux/chat"
)

// AggregationError indicates a malformed chunk stream: a chunk arriving after
// its response was already terminated, a stream closing with an unterminated
// response, or a stream that delivered no chunks at all.
type AggregationError struct {
	ID     string
	Reason string
}

func (e *AggregationError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("stream aggregation failed for response %s: %s", e.ID, e.Reason)
	}
	return fmt.Sprintf("stream aggregation failed: %s", e.Reason)
}

// sessionState carries aggregation context that outlives a single turn. The
// role map pins each response id to the role announced by its first chunk so
// later chunks of the same response inherit it. Owned by one session goroutine,
// no locking required.
type sessionState struct {
	roles map[string]chat.Role
}

func newSessionState() *sessionState {
	return &sessionState{roles: make(map[string]chat.Role)}
}

func (s *sessionState) roleFor(id string) chat.Role {
	if role, ok := s.roles[id]; ok {
		return role
	}
	return chat.RoleAssistant
}

// partial accumulates the full state of one streamed response id.
type partial struct {
	text         strings.Builder
	calls        map[int]*chat.ToolCall
	callOrder    []int
	finishReason string
	usage        *chat.TokenUsage
	done         bool
}

// aggregator reconciles one streaming provider call into emittable responses.
// It holds back the most recent content chunk so that a trailing content-free
// chunk carrying only usage or a finish reason can be folded into it: the
// consumer then sees a single response with content and authoritative usage
// rather than a content chunk followed by an empty one.
//
// Every emitted response carries the session's running usage total, merged
// from the prior turns' accumulator.
type aggregator struct {
	session *sessionState
	prior   *chat.TokenUsage

	pending  *chat.Chunk
	partials map[string]*partial
	firstID  string
}

func newAggregator(session *sessionState, prior *chat.TokenUsage) *aggregator {
	return &aggregator{
		session:  session,
		prior:    prior,
		partials: make(map[string]*partial),
	}
}

// Push feeds the next chunk through the two-element window. It returns the
// response released by the window, or nil when the chunk was held back or
// folded into the held chunk.
func (a *aggregator) Push(ck chat.Chunk) (*chat.Response, error) {
	if err := a.absorb(ck); err != nil {
		return nil, err
	}

	if a.pending == nil {
		a.pending = &ck
		return nil, nil
	}

	// A content-free trailer for the held chunk's response delivers usage and
	// finish metadata for content already held; fold instead of emitting an
	// empty response.
	if !ck.HasContent() && ck.ID == a.pending.ID {
		if ck.Usage != nil {
			a.pending.Usage = ck.Usage
		}
		if ck.FinishReason != "" {
			a.pending.FinishReason = ck.FinishReason
		}
		if ck.Done {
			a.pending.Done = true
		}
		return nil, nil
	}

	released := a.responseFrom(*a.pending)
	a.pending = &ck
	return released, nil
}

// Flush releases the held chunk at end of stream.
func (a *aggregator) Flush() *chat.Response {
	if a.pending == nil {
		return nil
	}
	resp := a.responseFrom(*a.pending)
	a.pending = nil
	return resp
}

// Final returns the complete turn response assembled from every chunk of the
// primary response id. It fails when the stream closed without terminating a
// response or delivered nothing at all.
func (a *aggregator) Final() (*chat.Response, error) {
	if len(a.partials) == 0 {
		return nil, &AggregationError{Reason: "stream closed without delivering any chunks"}
	}
	for id, p := range a.partials {
		if !p.done {
			return nil, &AggregationError{ID: id, Reason: "stream closed before the response was terminated"}
		}
	}

	p := a.partials[a.firstID]
	msg := chat.Message{
		Role:      a.session.roleFor(a.firstID),
		Content:   p.text.String(),
		ToolCalls: a.callSnapshot(a.firstID),
	}
	return &chat.Response{
		Message:      msg,
		FinishReason: p.finishReason,
		Usage:        chat.MergeUsage(p.usage, a.prior),
	}, nil
}

// absorb folds a chunk into the per-id accumulation independent of windowing.
func (a *aggregator) absorb(ck chat.Chunk) error {
	p, ok := a.partials[ck.ID]
	if !ok {
		p = &partial{calls: make(map[int]*chat.ToolCall)}
		a.partials[ck.ID] = p
		if a.firstID == "" {
			a.firstID = ck.ID
		}
	} else if p.done {
		return &AggregationError{ID: ck.ID, Reason: "chunk received after the terminal chunk"}
	}

	if ck.Role != "" {
		if _, pinned := a.session.roles[ck.ID]; !pinned {
			a.session.roles[ck.ID] = ck.Role
		}
	}

	p.text.WriteString(ck.ContentDelta)
	for _, delta := range ck.ToolCallDeltas {
		call, ok := p.calls[delta.Index]
		if !ok {
			call = &chat.ToolCall{}
			p.calls[delta.Index] = call
			p.callOrder = append(p.callOrder, delta.Index)
		}
		if delta.ID != "" {
			call.ID = delta.ID
		}
		if delta.Name != "" {
			call.Name = delta.Name
		}
		call.Arguments += delta.Arguments
	}
	if ck.Usage != nil {
		p.usage = ck.Usage
	}
	if ck.FinishReason != "" {
		p.finishReason = ck.FinishReason
	}
	if ck.Done {
		p.done = true
	}
	return nil
}

// responseFrom turns one released chunk into an incremental response. The
// terminal chunk carries the fully accumulated tool calls so downstream
// detection sees complete arguments rather than the last fragment.
func (a *aggregator) responseFrom(ck chat.Chunk) *chat.Response {
	msg := chat.Message{
		Role:    a.session.roleFor(ck.ID),
		Content: ck.ContentDelta,
	}
	if ck.Done {
		msg.ToolCalls = a.callSnapshot(ck.ID)
	}
	return &chat.Response{
		Message:      msg,
		FinishReason: ck.FinishReason,
		Usage:        chat.MergeUsage(ck.Usage, a.prior),
	}
}

func (a *aggregator) callSnapshot(id string) []chat.ToolCall {
	p, ok := a.partials[id]
	if !ok || len(p.callOrder) == 0 {
		return nil
	}
	calls := make([]chat.ToolCall, 0, len(p.callOrder))
	for _, idx := range p.callOrder {
		calls = append(calls, *p.calls[idx])
	}
	return calls
}
