package llm

import (
	"context"
	"fmt"
	"time"
)

// backoffUnit scales the exponential backoff between attempts.
var backoffUnit = time.Second

type completeFunc func(ctx context.Context, systemPrompt string, messages []Message, opts *RequestOptions) (*Response, error)

// completeWithRetry attempts completion with retries on failure
func completeWithRetry(ctx context.Context, complete completeFunc, systemPrompt string, messages []Message, maxRetries int, opts *RequestOptions) (*Response, error) {
	if maxRetries < 1 {
		maxRetries = 1
	}
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		resp, err := complete(ctx, systemPrompt, messages, opts)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		// Don't retry on context cancellation
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if i == maxRetries-1 {
			break
		}

		// Exponential backoff
		backoff := time.Duration(1<<uint(i)) * backoffUnit
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}
