package middleware

import "context"

// Handler is an invocation function over one axis, generic over the request
// and result types. The model-call and tool-call chains are both built from
// this shape.
type Handler[R, T any] func(ctx context.Context, req R) (T, error)

// Wrapper decorates a handler. The returned handler fully controls whether,
// when and with what (possibly derived) request the next handler runs: it
// may short-circuit without calling next, call it exactly once, or call it
// several times to retry. Errors from next propagate outward unless the
// wrapper intercepts them.
type Wrapper[R, T any] func(next Handler[R, T]) Handler[R, T]

// Compose folds the wrappers around terminal from last to first so that
// wrappers[0] is outermost: it executes first on entry and last on exit.
// Nil wrappers are pass-through.
func Compose[R, T any](wrappers []Wrapper[R, T], terminal Handler[R, T]) Handler[R, T] {
	h := terminal
	for i := len(wrappers) - 1; i >= 0; i-- {
		if wrappers[i] == nil {
			continue
		}
		h = wrappers[i](h)
	}
	return h
}
