package middleware

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func traceWrapper(name string, trace *[]string) Wrapper[string, string] {
	return func(next Handler[string, string]) Handler[string, string] {
		return func(ctx context.Context, req string) (string, error) {
			*trace = append(*trace, name+"-pre")
			out, err := next(ctx, req)
			*trace = append(*trace, name+"-post")
			return out, err
		}
	}
}

func TestComposeOnionOrder(t *testing.T) {
	var trace []string
	terminal := func(ctx context.Context, req string) (string, error) {
		trace = append(trace, "H")
		return "result:" + req, nil
	}

	h := Compose([]Wrapper[string, string]{
		traceWrapper("A", &trace),
		traceWrapper("B", &trace),
		traceWrapper("C", &trace),
	}, terminal)

	out, err := h(context.Background(), "req")
	require.NoError(t, err)
	assert.Equal(t, "result:req", out)
	assert.Equal(t, []string{"A-pre", "B-pre", "C-pre", "H", "C-post", "B-post", "A-post"}, trace)
}

func TestComposeShortCircuit(t *testing.T) {
	var trace []string
	terminal := func(ctx context.Context, req string) (string, error) {
		trace = append(trace, "H")
		return "terminal", nil
	}
	shortCircuit := func(next Handler[string, string]) Handler[string, string] {
		return func(ctx context.Context, req string) (string, error) {
			trace = append(trace, "B-short")
			return "cached", nil
		}
	}

	h := Compose([]Wrapper[string, string]{
		traceWrapper("A", &trace),
		shortCircuit,
		traceWrapper("C", &trace),
	}, terminal)

	out, err := h(context.Background(), "req")
	require.NoError(t, err)
	assert.Equal(t, "cached", out, "A observes B's result")
	assert.Equal(t, []string{"A-pre", "B-short", "A-post"}, trace, "C and H never execute")
}

func TestComposeRetryInvokesInnerTwice(t *testing.T) {
	attempts := 0
	terminal := func(ctx context.Context, req string) (string, error) {
		attempts++
		if attempts == 1 {
			return "", errors.New("transient")
		}
		return "ok", nil
	}
	retry := func(next Handler[string, string]) Handler[string, string] {
		return func(ctx context.Context, req string) (string, error) {
			out, err := next(ctx, req)
			if err != nil {
				return next(ctx, req)
			}
			return out, nil
		}
	}

	out, err := Compose([]Wrapper[string, string]{retry}, terminal)(context.Background(), "r")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 2, attempts)
}

func TestComposeErrorTranslation(t *testing.T) {
	terminal := func(ctx context.Context, req string) (string, error) {
		return "", errors.New("inner boom")
	}
	translate := func(next Handler[string, string]) Handler[string, string] {
		return func(ctx context.Context, req string) (string, error) {
			out, err := next(ctx, req)
			if err != nil {
				return out, fmt.Errorf("translated: %w", err)
			}
			return out, nil
		}
	}
	passThrough := traceWrapper("outer", new([]string))

	_, err := Compose([]Wrapper[string, string]{passThrough, translate}, terminal)(context.Background(), "r")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "translated: inner boom")
}

func TestComposeSkipsNilWrappers(t *testing.T) {
	var trace []string
	terminal := func(ctx context.Context, req string) (string, error) {
		trace = append(trace, "H")
		return "ok", nil
	}

	h := Compose([]Wrapper[string, string]{nil, traceWrapper("A", &trace), nil}, terminal)
	_, err := h(context.Background(), "r")
	require.NoError(t, err)
	assert.Equal(t, []string{"A-pre", "H", "A-post"}, trace)
}
