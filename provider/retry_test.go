package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/modelmux/modelmux/chat"
	"github.com/modelmux/modelmux/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(inner Client, maxAttempts int) *RetryClient {
	return WithRetry(inner, func(o *RetryOptions) {
		o.MaxAttempts = maxAttempts
		o.InitialBackoff = time.Millisecond
		o.MaxBackoff = 2 * time.Millisecond
		o.Logger = logging.NoOpLogger{}
	})
}

func TestRetryClient_TransientThenSuccess(t *testing.T) {
	mock := NewMockClient()
	mock.EnqueueError(&TransientError{Err: errors.New("rate limited"), StatusCode: 429})
	mock.EnqueueError(&TransientError{Err: errors.New("rate limited"), StatusCode: 429})
	mock.EnqueueResponse(&chat.Response{
		Message:      chat.NewAssistantMessage("recovered"),
		FinishReason: "stop",
	})

	client := fastRetry(mock, 3)
	resp, err := client.Invoke(context.Background(), &Request{Messages: []chat.Message{chat.NewUserMessage("hi")}})
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Message.Content)
	assert.EqualValues(t, 2, client.Retries())
	assert.Equal(t, 3, mock.Calls())
}

func TestRetryClient_NonTransientNotRetried(t *testing.T) {
	mock := NewMockClient()
	mock.EnqueueError(&NonTransientError{Err: errors.New("invalid model"), StatusCode: 404})

	client := fastRetry(mock, 3)
	_, err := client.Invoke(context.Background(), &Request{})
	require.Error(t, err)
	var nte *NonTransientError
	assert.True(t, errors.As(err, &nte))
	assert.Equal(t, 1, mock.Calls())
	assert.EqualValues(t, 0, client.Retries())
}

func TestRetryClient_AttemptsExhausted(t *testing.T) {
	mock := NewMockClient()
	for i := 0; i < 3; i++ {
		mock.EnqueueError(&TransientError{Err: errors.New("timeout")})
	}

	client := fastRetry(mock, 3)
	_, err := client.Invoke(context.Background(), &Request{})
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Equal(t, 3, mock.Calls())
}

func TestRetryClient_StreamingRetriesBeforeFirstChunk(t *testing.T) {
	mock := NewMockClient()
	mock.EnqueueError(&TransientError{Err: errors.New("connection reset")})
	mock.EnqueueChunks(
		chat.Chunk{ID: "r1", Role: chat.RoleAssistant, ContentDelta: "ok"},
		chat.Chunk{ID: "r1", Done: true, FinishReason: "stop"},
	)

	client := fastRetry(mock, 3)
	chunks, errCh := client.InvokeStreaming(context.Background(), &Request{})

	var collected []chat.Chunk
	for ck := range chunks {
		collected = append(collected, ck)
	}
	require.NoError(t, <-errCh)
	require.Len(t, collected, 2)
	assert.Equal(t, "ok", collected[0].ContentDelta)
	assert.EqualValues(t, 1, client.Retries())
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(&TransientError{Err: errors.New("x")}))
	assert.False(t, IsTransient(&NonTransientError{Err: errors.New("x")}))
	assert.False(t, IsTransient(context.Canceled))
	assert.False(t, IsTransient(errors.New("plain")))
}

func TestClassifyStatus(t *testing.T) {
	assert.True(t, IsTransient(ClassifyStatus(429, errors.New("rate limit"))))
	assert.True(t, IsTransient(ClassifyStatus(503, errors.New("unavailable"))))
	assert.True(t, IsTransient(ClassifyStatus(0, errors.New("reset"))))
	assert.False(t, IsTransient(ClassifyStatus(401, errors.New("auth"))))
	assert.False(t, IsTransient(ClassifyStatus(400, errors.New("bad request"))))
}
