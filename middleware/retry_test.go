package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hupe1980/agentware/core"
	"github.com/hupe1980/agentware/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry(maxRetries int, retryable func(error) bool) *Middleware {
	return ModelRetry(maxRetries, func(o *RetryOptions) {
		o.BaseDelay = time.Millisecond
		o.Jitter = false
		o.Retryable = retryable
	})
}

func TestModelRetryEventuallySucceeds(t *testing.T) {
	attempts := 0
	terminal := func(ctx context.Context, req *model.Request) (*model.Response, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("rate limited")
		}
		return &model.Response{Message: core.NewAssistantMessage("ok"), FinishReason: "stop"}, nil
	}

	chain := Compose([]ModelMiddleware{fastRetry(3, nil).WrapModel}, terminal)
	resp, err := chain(context.Background(), &model.Request{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Message.Content)
	assert.Equal(t, 3, attempts)
}

func TestModelRetryExhausted(t *testing.T) {
	terminal := func(ctx context.Context, req *model.Request) (*model.Response, error) {
		return nil, errors.New("still failing")
	}

	chain := Compose([]ModelMiddleware{fastRetry(2, nil).WrapModel}, terminal)
	_, err := chain(context.Background(), &model.Request{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExceedMaxRetries)

	var exhausted *RetryExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Contains(t, exhausted.LastErr.Error(), "still failing")
}

func TestModelRetryNonRetryableError(t *testing.T) {
	permanent := errors.New("invalid request")
	attempts := 0
	terminal := func(ctx context.Context, req *model.Request) (*model.Response, error) {
		attempts++
		return nil, permanent
	}

	chain := Compose([]ModelMiddleware{
		fastRetry(5, func(err error) bool { return !errors.Is(err, permanent) }).WrapModel,
	}, terminal)

	_, err := chain(context.Background(), &model.Request{})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts)
}

func TestModelRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	terminal := func(ctx context.Context, req *model.Request) (*model.Response, error) {
		cancel()
		return nil, errors.New("transient")
	}

	chain := Compose([]ModelMiddleware{fastRetry(10, nil).WrapModel}, terminal)
	_, err := chain(ctx, &model.Request{})
	assert.ErrorIs(t, err, context.Canceled)
}
