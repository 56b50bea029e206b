package provider

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/modelmux/modelmux/chat"
	"github.com/modelmux/modelmux/logging"
)

// RetryOptions configures the bounded-attempt backoff of RetryClient.
type RetryOptions struct {
	MaxAttempts    int           // total attempts including the first (default 3)
	InitialBackoff time.Duration // delay before the first retry (default 500ms)
	MaxBackoff     time.Duration // backoff ceiling (default 10s)
	Multiplier     float64       // exponential growth factor (default 2.0)
	Logger         logging.Logger
}

// RetryClient decorates a Client with a retry policy for transient errors.
// Retries are invisible to callers beyond the Retries counter: a wrapped call
// yields exactly one final success or one final failure. Non-transient errors
// and context cancellation are never retried.
type RetryClient struct {
	inner   Client
	opts    RetryOptions
	retries atomic.Int64
}

// WithRetry wraps a client with the retry policy.
func WithRetry(inner Client, optFns ...func(o *RetryOptions)) *RetryClient {
	opts := RetryOptions{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2.0,
		Logger:         logging.NewDefaultSlogLogger(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &RetryClient{inner: inner, opts: opts}
}

// Retries returns the total number of retry attempts performed so far.
// Observability side channel; callers never see individual attempts.
func (c *RetryClient) Retries() int64 { return c.retries.Load() }

// Info returns the wrapped client's metadata.
func (c *RetryClient) Info() Info { return c.inner.Info() }

// Invoke performs a blocking call, retrying transient failures with
// exponential backoff until MaxAttempts is exhausted.
func (c *RetryClient) Invoke(ctx context.Context, req *Request) (*chat.Response, error) {
	var lastErr error
	backoff := c.opts.InitialBackoff
	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		resp, err := c.inner.Invoke(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !IsTransient(err) || attempt == c.opts.MaxAttempts {
			return nil, err
		}
		c.retries.Add(1)
		c.opts.Logger.Warn("provider.retry", "attempt", attempt, "backoff_ms", backoff.Milliseconds(), "error", err.Error())
		if err := sleep(ctx, backoff); err != nil {
			return nil, err
		}
		backoff = c.nextBackoff(backoff)
	}
	return nil, lastErr
}

// InvokeStreaming establishes a streaming call, retrying transient failures
// that occur before the first chunk is delivered. Once a chunk has reached
// the consumer the stream cannot be transparently restarted, so later
// failures propagate as-is.
func (c *RetryClient) InvokeStreaming(ctx context.Context, req *Request) (<-chan chat.Chunk, <-chan error) {
	out := make(chan chat.Chunk, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		backoff := c.opts.InitialBackoff
		for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
			chunks, innerErrs := c.inner.InvokeStreaming(ctx, req)

			delivered := false
			var failure error
		consume:
			for {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case ck, ok := <-chunks:
					if !ok {
						chunks = nil
						if innerErrs == nil {
							break consume
						}
						continue
					}
					delivered = true
					select {
					case out <- ck:
					case <-ctx.Done():
						errCh <- ctx.Err()
						return
					}
				case err, ok := <-innerErrs:
					if !ok {
						innerErrs = nil
						if chunks == nil {
							break consume
						}
						continue
					}
					failure = err
				}
				if chunks == nil && innerErrs == nil {
					break consume
				}
			}

			if failure == nil {
				return
			}
			if delivered || !IsTransient(failure) || attempt == c.opts.MaxAttempts {
				errCh <- failure
				return
			}
			c.retries.Add(1)
			c.opts.Logger.Warn("provider.stream.retry", "attempt", attempt, "backoff_ms", backoff.Milliseconds(), "error", failure.Error())
			if err := sleep(ctx, backoff); err != nil {
				errCh <- err
				return
			}
			backoff = c.nextBackoff(backoff)
		}
	}()

	return out, errCh
}

func (c *RetryClient) nextBackoff(current time.Duration) time.Duration {
	next := time.Duration(float64(current) * c.opts.Multiplier)
	if next > c.opts.MaxBackoff {
		next = c.opts.MaxBackoff
	}
	return next
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
