package middleware

import (
	"fmt"

	"github.com/hupe1980/agentware/core"
	"github.com/hupe1980/agentware/logging"
	"github.com/hupe1980/agentware/tool"
)

// RegistryOptions configures registry composition.
type RegistryOptions struct {
	// Logger used by RunPhase; NoOpLogger when nil.
	Logger logging.Logger

	// Tools registered in addition to the middleware-contributed ones
	// (the agent's base tool set).
	Tools []tool.Tool

	// StateFields declared in addition to the base fields and the
	// middleware-contributed ones.
	StateFields []core.FieldSpec
}

// Registry owns the ordered middleware list for one agent instance. It is
// composed once at construction: the state policy table and the tool table
// are resolved here and misconfiguration fails fast, before any turn
// executes. After composition the registry is immutable and safe for
// concurrent use.
type Registry struct {
	entries []*Middleware
	merger  *core.Merger
	tools   *tool.Registry
	logger  logging.Logger
}

// baseFields are always part of the state schema: the conversation history
// and the driver-interpreted stop flag.
func baseFields() []core.FieldSpec {
	return []core.FieldSpec{
		{Name: core.StateKeyMessages, Policy: core.PolicyAppend, Default: []core.Message{}},
		{Name: core.StateKeyStopAgent, Policy: core.PolicyReplace},
	}
}

// NewRegistry composes the ordered middleware list. It returns an error for
// conflicting state field declarations or duplicate tool names.
func NewRegistry(mws []*Middleware, optFns ...func(o *RegistryOptions)) (*Registry, error) {
	opts := RegistryOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	specs := baseFields()
	specs = append(specs, opts.StateFields...)
	for _, mw := range mws {
		if mw == nil {
			return nil, fmt.Errorf("nil middleware in registry")
		}
		specs = append(specs, mw.StateFields...)
	}
	merger, err := core.NewMerger(specs...)
	if err != nil {
		return nil, fmt.Errorf("compose state schema: %w", err)
	}

	tools, err := tool.NewRegistry(opts.Tools...)
	if err != nil {
		return nil, fmt.Errorf("compose tool registry: %w", err)
	}
	for _, mw := range mws {
		for _, t := range mw.Tools {
			if err := tools.Register(t); err != nil {
				return nil, fmt.Errorf("middleware %q: %w", mw.name(), err)
			}
		}
	}

	return &Registry{
		entries: append([]*Middleware{}, mws...),
		merger:  merger,
		tools:   tools,
		logger:  opts.Logger,
	}, nil
}

func (m *Middleware) name() string {
	if m.Name != "" {
		return m.Name
	}
	return "anonymous"
}

// Merger returns the composed state policy table.
func (r *Registry) Merger() *core.Merger { return r.merger }

// Tools returns the composed tool registry.
func (r *Registry) Tools() *tool.Registry { return r.tools }

// Logger returns the registry logger.
func (r *Registry) Logger() logging.Logger { return r.logger }

// Middleware returns the ordered middleware list.
func (r *Registry) Middleware() []*Middleware {
	return append([]*Middleware{}, r.entries...)
}

// ModelChain composes the model-call onion around terminal. Middleware
// without a WrapModel hook are pass-through.
func (r *Registry) ModelChain(terminal ModelHandler) ModelHandler {
	wrappers := make([]ModelMiddleware, 0, len(r.entries))
	for _, mw := range r.entries {
		wrappers = append(wrappers, mw.WrapModel)
	}
	return Compose(wrappers, terminal)
}

// ToolChain composes the tool-call onion around terminal. Middleware
// without a WrapTool hook are pass-through.
func (r *Registry) ToolChain(terminal ToolHandler) ToolHandler {
	wrappers := make([]ToolMiddleware, 0, len(r.entries))
	for _, mw := range r.entries {
		wrappers = append(wrappers, mw.WrapTool)
	}
	return Compose(wrappers, terminal)
}
