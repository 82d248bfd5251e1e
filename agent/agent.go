// Package agent drives the tool-calling loop on top of the middleware
// engine: lifecycle phases around every model call, parallel sibling tool
// execution, and loop termination. The agent is the only component that
// interprets the stop flag; the engine merely transports it.
package agent

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentware/core"
	"github.com/hupe1980/agentware/engine"
	"github.com/hupe1980/agentware/internal/util"
	"github.com/hupe1980/agentware/logging"
	"github.com/hupe1980/agentware/middleware"
	"github.com/hupe1980/agentware/model"
)

// DefaultMaxModelCalls bounds the loop when no explicit limit is set.
const DefaultMaxModelCalls = 25

// Options configures agent construction.
type Options struct {
	// Logger used for run diagnostics and hook runtimes.
	Logger logging.Logger

	// System is the system prompt sent with every model request. It may
	// contain Go template markers rendered against the current state
	// before each call. Wrap hooks may still override it per call.
	System string

	// MaxModelCalls caps model calls per run. Defaults to
	// DefaultMaxModelCalls; negative means unlimited.
	MaxModelCalls int
}

// Agent runs the linear agent loop:
//
//	before_agent → { before_model → model → after_model → tools } → after_agent
//
// The loop iterates while the model keeps requesting tools, the stop flag
// stays unset and the model-call limit is not exceeded.
type Agent struct {
	engine        *engine.Engine
	system        string
	maxModelCalls int
	logger        logging.Logger
}

// New builds an agent around a composed engine.
func New(eng *engine.Engine, optFns ...func(o *Options)) *Agent {
	opts := Options{
		Logger:        eng.Registry().Logger(),
		MaxModelCalls: DefaultMaxModelCalls,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.MaxModelCalls < 0 {
		opts.MaxModelCalls = 0
	}
	return &Agent{
		engine:        eng,
		system:        opts.System,
		maxModelCalls: opts.MaxModelCalls,
		logger:        opts.Logger,
	}
}

// Result is the outcome of one agent run.
type Result struct {
	// State is the final merged state, including the full conversation.
	State core.State

	// Output is the content of the last assistant message.
	Output string

	// ModelCalls is the number of model invocations the run used.
	ModelCalls int
}

// Run starts a fresh conversation from one user input.
func (a *Agent) Run(ctx context.Context, input string) (*Result, error) {
	return a.RunState(ctx, core.State{
		core.StateKeyMessages: []core.Message{core.NewUserMessage(input)},
	})
}

// RunState executes the agent loop starting from an explicit initial state.
// The state is seeded with the declared field defaults first.
func (a *Agent) RunState(ctx context.Context, initial core.State) (*Result, error) {
	reg := a.engine.Registry()
	rt := middleware.NewRuntime(a.logger)
	limiter := newModelCallLimiter(a.maxModelCalls)

	state := reg.Merger().Seed(initial)

	state, err := a.runPhase(ctx, middleware.PhaseBeforeAgent, state, rt)
	if err != nil {
		return nil, err
	}

	for !state.StopRequested() {
		state, err = a.runPhase(ctx, middleware.PhaseBeforeModel, state, rt)
		if err != nil {
			return nil, err
		}
		if state.StopRequested() {
			break
		}

		if err := limiter.increment(); err != nil {
			return nil, fmt.Errorf("run %s: %w", rt.InvocationID, err)
		}

		system, err := util.RenderTemplate(a.system, state)
		if err != nil {
			return nil, fmt.Errorf("run %s: render system prompt: %w", rt.InvocationID, err)
		}
		req := &model.Request{
			Messages: state.Messages(),
			System:   system,
			Tools:    reg.Tools().Definitions(),
			State:    state,
		}
		resp, err := a.engine.InvokeModel(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", rt.InvocationID, err)
		}

		state, err = reg.Merger().Apply(state, core.StateUpdate{
			core.StateKeyMessages: []core.Message{resp.Message},
		})
		if err != nil {
			return nil, fmt.Errorf("run %s: append assistant message: %w", rt.InvocationID, err)
		}

		state, err = a.runPhase(ctx, middleware.PhaseAfterModel, state, rt)
		if err != nil {
			return nil, err
		}

		if !resp.Message.HasToolCalls() {
			break
		}
		if state.StopRequested() {
			break
		}

		results := a.engine.ExecuteToolCalls(ctx, state, resp.Message.ToolCalls)
		state, _, err = a.engine.ApplyToolResults(state, results)
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", rt.InvocationID, err)
		}
	}

	state, err = a.runPhase(ctx, middleware.PhaseAfterAgent, state, rt)
	if err != nil {
		return nil, err
	}

	return &Result{
		State:      state,
		Output:     lastAssistantContent(state.Messages()),
		ModelCalls: limiter.calls(),
	}, nil
}

func (a *Agent) runPhase(ctx context.Context, phase middleware.Phase, state core.State, rt *middleware.Runtime) (core.State, error) {
	next, _, err := a.engine.RunLifecycleHook(ctx, phase, state, rt)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", rt.InvocationID, err)
	}
	return next, nil
}

func lastAssistantContent(msgs []core.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == core.RoleAssistant && msgs[i].Content != "" {
			return msgs[i].Content
		}
	}
	return ""
}
