package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/agentware/tool"
)

// ToolTimeout returns a middleware that races every tool call against the
// given deadline. On timeout it returns a synthetic failure result carrying
// the tool name and the configured duration, as a normal result rather than
// an error, so the agent loop continues without special-casing it.
//
// The inner handler's context is cancelled on timeout, but cancellation of
// the running tool is best-effort only: the wrapper does not block waiting
// for a tool that ignores its context. Such a tool keeps running in the
// background until it returns on its own; its late result is discarded.
func ToolTimeout(limit time.Duration) *Middleware {
	return &Middleware{
		Name: "tool_timeout",
		WrapTool: func(next ToolHandler) ToolHandler {
			return func(ctx context.Context, req *tool.Request) (*tool.Result, error) {
				type outcome struct {
					res *tool.Result
					err error
				}

				innerCtx, cancel := context.WithCancel(ctx)
				done := make(chan outcome, 1)
				go func() {
					defer func() {
						if rec := recover(); rec != nil {
							done <- outcome{err: fmt.Errorf("tool %q panicked: %v", req.Name, rec)}
						}
					}()
					res, err := next(innerCtx, req)
					done <- outcome{res: res, err: err}
				}()

				timer := time.NewTimer(limit)
				defer timer.Stop()

				select {
				case o := <-done:
					cancel()
					return o.res, o.err
				case <-timer.C:
					cancel()
					return tool.NewTimeoutResult(req.CallID, req.Name, limit), nil
				case <-ctx.Done():
					cancel()
					return nil, ctx.Err()
				}
			}
		},
	}
}
