package compression

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentware/core"
	"github.com/hupe1980/agentware/logging"
	"github.com/hupe1980/agentware/middleware"
)

// New wraps the engine as agent middleware. Before every model call it
// checks the trigger and, when compression fires, replaces the messages
// field outright with the compressed conversation. The update uses the
// full-replace marker so the append policy of the messages field does not
// apply.
func New(engine *Engine) *middleware.Middleware {
	return &middleware.Middleware{
		Name: "compression",
		BeforeModel: func(ctx context.Context, state core.State, rt *middleware.Runtime) (core.StateUpdate, error) {
			msgs := state.Messages()
			usage := engine.EstimateUsage(msgs)
			if !engine.shouldCompressUsage(usage) {
				return nil, nil
			}

			res, err := engine.Compress(ctx, msgs)
			if err != nil {
				return nil, fmt.Errorf("compress context: %w", err)
			}
			if res == nil {
				return nil, nil
			}

			replacement := res.Messages()
			if el, ok := rt.Logger.(*logging.EngineLogger); ok {
				el.WithInvocation(rt.InvocationID).LogCompression(len(msgs), len(replacement), usage, engine.ContextLimit())
			} else {
				rt.Logger.Info("context compressed",
					"invocation_id", rt.InvocationID,
					"messages_before", len(msgs),
					"messages_after", len(replacement),
					"usage_estimate", usage,
					"context_limit", engine.ContextLimit(),
				)
			}
			return core.StateUpdate{
				core.StateKeyMessages: core.ReplaceWith(replacement),
			}, nil
		},
	}
}
