package middleware

import (
	"context"
	"time"

	"github.com/hupe1980/agentware/core"
	"github.com/hupe1980/agentware/logging"
	"github.com/hupe1980/agentware/model"
	"github.com/hupe1980/agentware/tool"
)

// Observability returns a middleware that logs every lifecycle phase and
// wraps both axes with latency and outcome logging. It contributes no state
// fields and never modifies requests or results. Register it first so its
// wrap hooks observe the full chain.
func Observability(logger logging.Logger) *Middleware {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	phaseHook := func(phase Phase) Hook {
		return func(ctx context.Context, state core.State, rt *Runtime) (core.StateUpdate, error) {
			logger.Debug("lifecycle phase", "phase", string(phase), "invocation_id", rt.InvocationID, "messages", len(state.Messages()))
			return nil, nil
		}
	}

	return &Middleware{
		Name:        "observability",
		BeforeAgent: phaseHook(PhaseBeforeAgent),
		AfterAgent:  phaseHook(PhaseAfterAgent),
		BeforeModel: phaseHook(PhaseBeforeModel),
		AfterModel:  phaseHook(PhaseAfterModel),
		WrapModel: func(next ModelHandler) ModelHandler {
			return func(ctx context.Context, req *model.Request) (*model.Response, error) {
				start := time.Now()
				resp, err := next(ctx, req)
				dur := time.Since(start)
				if err != nil {
					logger.Error("model call failed", "duration", dur, "error", err.Error())
					return nil, err
				}
				tokens := 0
				if resp.Message.Usage != nil {
					tokens = resp.Message.Usage.TotalTokens
				}
				logger.Info("model call completed", "duration", dur, "finish_reason", resp.FinishReason, "tokens", tokens)
				return resp, nil
			}
		},
		WrapTool: func(next ToolHandler) ToolHandler {
			return func(ctx context.Context, req *tool.Request) (*tool.Result, error) {
				start := time.Now()
				res, err := next(ctx, req)
				dur := time.Since(start)
				if err != nil {
					logger.Error("tool call failed", "tool", req.Name, "duration", dur, "error", err.Error())
					return nil, err
				}
				if res != nil && res.Timeout != nil {
					logger.Warn("tool call timed out", "tool", res.Timeout.Tool, "limit", res.Timeout.Limit)
				} else {
					logger.Info("tool call completed", "tool", req.Name, "duration", dur)
				}
				return res, nil
			}
		},
	}
}
