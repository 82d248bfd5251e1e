package middleware

import (
	"context"

	"github.com/hupe1980/agentware/core"
	"github.com/hupe1980/agentware/logging"
	"github.com/hupe1980/agentware/model"
	"github.com/hupe1980/agentware/tool"
)

// Phase identifies a fixed point in the agent turn at which lifecycle hooks
// run. Agent phases execute once per run; model phases execute once per
// model-call iteration of the loop.
type Phase string

const (
	// PhaseBeforeAgent runs once before the agent loop starts.
	PhaseBeforeAgent Phase = "before_agent"
	// PhaseAfterAgent runs once after the agent loop finishes.
	PhaseAfterAgent Phase = "after_agent"
	// PhaseBeforeModel runs before every model call.
	PhaseBeforeModel Phase = "before_model"
	// PhaseAfterModel runs after every model call.
	PhaseAfterModel Phase = "after_model"
)

// Runtime carries per-invocation context into hooks: correlation identifiers
// and the logger. It never carries mutable engine state.
type Runtime struct {
	InvocationID string
	Logger       logging.Logger
}

// NewRuntime builds a runtime with a fresh invocation ID, substituting a
// NoOpLogger when logger is nil.
func NewRuntime(logger logging.Logger) *Runtime {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Runtime{InvocationID: core.NewID(), Logger: logger}
}

// Hook is a lifecycle callback. It receives the current state, reflecting
// all merges from earlier hooks in the same phase, and returns a partial
// state update or nil when it has nothing to contribute. A hook error aborts
// the current turn and propagates to the driver; the engine never retries
// lifecycle hooks.
type Hook func(ctx context.Context, state core.State, rt *Runtime) (core.StateUpdate, error)

// ModelHandler is the composed model-call axis handler.
type ModelHandler = Handler[*model.Request, *model.Response]

// ToolHandler is the composed tool-call axis handler.
type ToolHandler = Handler[*tool.Request, *tool.Result]

// ModelMiddleware wraps the model-call axis.
type ModelMiddleware = Wrapper[*model.Request, *model.Response]

// ToolMiddleware wraps the tool-call axis.
type ToolMiddleware = Wrapper[*tool.Request, *tool.Result]

// Middleware bundles optional hook implementations plus declared state
// fields and contributed tools. Nil slots are skipped by the dispatcher and
// the composer. A middleware instance is owned by exactly one registry for
// the lifetime of one agent and must not keep per-turn state beyond
// explicitly synchronized internals (e.g. a lock table).
type Middleware struct {
	// Name identifies the middleware in logs and error messages.
	Name string

	// StateFields declares additional state fields with their merge policy.
	StateFields []core.FieldSpec

	// Tools contributed to the agent's tool registry.
	Tools []tool.Tool

	BeforeAgent Hook
	AfterAgent  Hook
	BeforeModel Hook
	AfterModel  Hook

	WrapModel ModelMiddleware
	WrapTool  ToolMiddleware
}

// hook selects the lifecycle hook for a phase, nil when not implemented.
func (m *Middleware) hook(phase Phase) Hook {
	switch phase {
	case PhaseBeforeAgent:
		return m.BeforeAgent
	case PhaseAfterAgent:
		return m.AfterAgent
	case PhaseBeforeModel:
		return m.BeforeModel
	case PhaseAfterModel:
		return m.AfterModel
	default:
		return nil
	}
}
