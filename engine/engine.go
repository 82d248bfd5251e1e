// Package engine executes the composed middleware machinery for an agent
// turn: lifecycle phase dispatch, the model and tool wrap chains, and
// parallel execution of sibling tool calls. The engine never decides loop
// continuation; that is the driver's job.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/agentware/core"
	"github.com/hupe1980/agentware/logging"
	"github.com/hupe1980/agentware/middleware"
	"github.com/hupe1980/agentware/model"
	"github.com/hupe1980/agentware/tool"
)

// Options configures engine construction.
type Options struct {
	// Logger used for engine-level diagnostics; NoOpLogger when nil.
	Logger logging.Logger

	// MaxParallelTools bounds concurrent sibling tool calls.
	// 0 or negative means no explicit limit.
	MaxParallelTools int
}

// Engine binds a composed middleware registry to a default model and the
// terminal handlers. Both wrap chains are composed once here; after
// construction the engine is immutable and safe for concurrent use.
type Engine struct {
	reg          *middleware.Registry
	defaultModel model.Model
	modelChain   middleware.ModelHandler
	toolChain    middleware.ToolHandler
	logger       logging.Logger
	maxParallel  int
}

// New composes the engine. defaultModel serves model requests that do not
// carry their own model reference; it may be nil when every request does.
func New(reg *middleware.Registry, defaultModel model.Model, optFns ...func(o *Options)) *Engine {
	opts := Options{Logger: reg.Logger()}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	e := &Engine{
		reg:          reg,
		defaultModel: defaultModel,
		logger:       opts.Logger,
		maxParallel:  opts.MaxParallelTools,
	}
	e.modelChain = reg.ModelChain(e.terminalModel)
	e.toolChain = reg.ToolChain(e.terminalTool)
	return e
}

// Registry returns the composed middleware registry.
func (e *Engine) Registry() *middleware.Registry { return e.reg }

// terminalModel is the innermost model handler: it resolves the effective
// model and performs the provider call.
func (e *Engine) terminalModel(ctx context.Context, req *model.Request) (*model.Response, error) {
	m := req.Model
	if m == nil {
		m = e.defaultModel
	}
	if m == nil {
		return nil, fmt.Errorf("no model configured for request")
	}
	start := time.Now()
	resp, err := m.Generate(ctx, req)
	if el, ok := e.logger.(*logging.EngineLogger); ok {
		tokens := 0
		if err == nil && resp.Message.Usage != nil {
			tokens = resp.Message.Usage.TotalTokens
		}
		el.LogModelCall(m.Info().Name, tokens, time.Since(start), err == nil, err)
	}
	if err != nil {
		return nil, fmt.Errorf("model %q: %w", m.Info().Name, err)
	}
	return resp, nil
}

// terminalTool is the innermost tool handler: it routes the call to the
// registered tool implementation.
func (e *Engine) terminalTool(ctx context.Context, req *tool.Request) (*tool.Result, error) {
	impl, ok := e.reg.Tools().Get(req.Name)
	if !ok {
		return nil, fmt.Errorf("tool %q not found", req.Name)
	}
	return impl.Call(ctx, req)
}

// RunLifecycleHook dispatches one lifecycle phase across all registered
// middleware. It returns the merged state and the accumulated partial
// update of the phase.
func (e *Engine) RunLifecycleHook(ctx context.Context, phase middleware.Phase, state core.State, rt *middleware.Runtime) (core.State, core.StateUpdate, error) {
	return e.reg.RunPhase(ctx, phase, state, rt)
}

// InvokeModel runs one request through the composed model wrap chain.
func (e *Engine) InvokeModel(ctx context.Context, req *model.Request) (*model.Response, error) {
	return e.modelChain(ctx, req)
}

// InvokeTool runs one request through the composed tool wrap chain.
func (e *Engine) InvokeTool(ctx context.Context, req *tool.Request) (*tool.Result, error) {
	return e.toolChain(ctx, req)
}
