package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/modelmux/modelmux/chat"
)

// mockOutcome is one scripted result popped per call, in FIFO order.
type mockOutcome struct {
	response *chat.Response
	chunks   []chat.Chunk
	err      error
}

// MockClient is a lightweight in-memory Client useful for tests & examples.
// Outcomes are scripted with the Enqueue helpers and consumed one per call;
// with an empty queue it echoes the last user message, streaming it as
// per-character chunks on the streaming path.
type MockClient struct {
	mu       sync.Mutex
	info     Info
	queue    []mockOutcome
	calls    int
	requests []*Request
}

// NewMockClient constructs a MockClient with basic tool support enabled.
func NewMockClient() *MockClient {
	return &MockClient{
		info: Info{Name: "mock-model", Provider: "mock", SupportsTools: true},
	}
}

// EnqueueResponse scripts a blocking response (streamed as one terminal chunk
// on the streaming path).
func (m *MockClient) EnqueueResponse(resp *chat.Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, mockOutcome{response: resp})
}

// EnqueueChunks scripts an exact chunk sequence for a streaming call.
func (m *MockClient) EnqueueChunks(chunks ...chat.Chunk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, mockOutcome{chunks: chunks})
}

// EnqueueError scripts a failed call.
func (m *MockClient) EnqueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, mockOutcome{err: err})
}

// Calls returns how many provider calls were issued (blocking + streaming).
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Requests returns the requests received so far, in call order.
func (m *MockClient) Requests() []*Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Request(nil), m.requests...)
}

// Info implements Client.
func (m *MockClient) Info() Info { return m.info }

func (m *MockClient) pop(req *Request) mockOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.requests = append(m.requests, req)
	if len(m.queue) > 0 {
		next := m.queue[0]
		m.queue = m.queue[1:]
		return next
	}
	return mockOutcome{response: echoResponse(req)}
}

// echoResponse mirrors the last user input, the default when nothing is scripted.
func echoResponse(req *Request) *chat.Response {
	var inputText string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == chat.RoleUser {
			inputText = req.Messages[i].Content
			break
		}
	}
	return &chat.Response{
		Message:      chat.NewAssistantMessage(fmt.Sprintf("Mock response to: %s", inputText)),
		FinishReason: "stop",
		Usage: &chat.TokenUsage{
			PromptTokens:     len(strings.Fields(inputText)),
			CompletionTokens: 4,
			TotalTokens:      len(strings.Fields(inputText)) + 4,
		},
	}
}

// Invoke implements Client.
func (m *MockClient) Invoke(ctx context.Context, req *Request) (*chat.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	outcome := m.pop(req)
	if outcome.err != nil {
		return nil, outcome.err
	}
	if outcome.response != nil {
		return outcome.response, nil
	}
	// A chunk script invoked on the blocking path is collapsed into one response.
	return collapseChunks(outcome.chunks), nil
}

// InvokeStreaming implements Client.
func (m *MockClient) InvokeStreaming(ctx context.Context, req *Request) (<-chan chat.Chunk, <-chan error) {
	out := make(chan chat.Chunk, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		outcome := m.pop(req)
		if outcome.err != nil {
			errCh <- outcome.err
			return
		}

		chunks := outcome.chunks
		if chunks == nil {
			chunks = chunksFromResponse(outcome.response)
		}
		for _, ck := range chunks {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case out <- ck:
			}
		}
	}()

	return out, errCh
}

// chunksFromResponse splits a scripted response into per-character content
// chunks followed by a terminal chunk carrying finish reason and usage.
func chunksFromResponse(resp *chat.Response) []chat.Chunk {
	id := uuid.NewString()
	var chunks []chat.Chunk
	for i, r := range resp.Message.Content {
		ck := chat.Chunk{ID: id, ContentDelta: string(r)}
		if i == 0 {
			ck.Role = chat.RoleAssistant
		}
		chunks = append(chunks, ck)
	}
	terminal := chat.Chunk{ID: id, Done: true, FinishReason: resp.FinishReason, Usage: resp.Usage}
	if len(chunks) == 0 {
		terminal.Role = chat.RoleAssistant
	}
	for i, tc := range resp.Message.ToolCalls {
		terminal.ToolCallDeltas = append(terminal.ToolCallDeltas, chat.ToolCallDelta{
			Index:     i,
			ID:        tc.ID,
			Name:      tc.Name,
			Arguments: tc.Arguments,
		})
	}
	return append(chunks, terminal)
}

// collapseChunks reassembles a chunk script into a single response.
func collapseChunks(chunks []chat.Chunk) *chat.Response {
	var (
		text   strings.Builder
		resp   chat.Response
		byIdx  = map[int]*chat.ToolCall{}
		idxSeq []int
	)
	resp.Message.Role = chat.RoleAssistant
	for _, ck := range chunks {
		text.WriteString(ck.ContentDelta)
		if ck.Role != "" {
			resp.Message.Role = ck.Role
		}
		if ck.FinishReason != "" {
			resp.FinishReason = ck.FinishReason
		}
		if ck.Usage != nil {
			resp.Usage = ck.Usage
		}
		for _, delta := range ck.ToolCallDeltas {
			call, ok := byIdx[delta.Index]
			if !ok {
				call = &chat.ToolCall{}
				byIdx[delta.Index] = call
				idxSeq = append(idxSeq, delta.Index)
			}
			if delta.ID != "" {
				call.ID = delta.ID
			}
			if delta.Name != "" {
				call.Name = delta.Name
			}
			call.Arguments += delta.Arguments
		}
	}
	resp.Message.Content = text.String()
	for _, idx := range idxSeq {
		resp.Message.ToolCalls = append(resp.Message.ToolCalls, *byIdx[idx])
	}
	return &resp
}
