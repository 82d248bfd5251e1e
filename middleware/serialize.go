package middleware

import (
	"context"

	"github.com/hupe1980/agentware/tool"
)

// ToolSerialization returns a middleware that serializes sibling tool calls
// per tool name: two concurrent calls to the same tool never overlap, while
// calls to different tools still run in parallel. With no names given every
// tool is serialized; otherwise only the listed ones are.
//
// The per-name lock is acquired before the inner handler runs and released
// on every exit path, success or failure.
func ToolSerialization(names ...string) *Middleware {
	serialize := make(map[string]bool, len(names))
	for _, n := range names {
		serialize[n] = true
	}
	table := NewLockTable()

	return &Middleware{
		Name: "tool_serialization",
		WrapTool: func(next ToolHandler) ToolHandler {
			return func(ctx context.Context, req *tool.Request) (*tool.Result, error) {
				if len(serialize) > 0 && !serialize[req.Name] {
					return next(ctx, req)
				}
				mu := table.Get(req.Name)
				mu.Lock()
				defer mu.Unlock()
				return next(ctx, req)
			}
		},
	}
}
