// Package agentware provides a high-level façade over the middleware
// machinery: an ordered middleware list is composed once into a registry
// (state policy table + tool table + both wrap chains), bound to a model by
// the engine and driven by the agent loop. Most applications interact with
// this package by:
//  1. Creating an agent via New() with a model and a middleware list
//  2. Running conversations via Run()
//
// Misconfiguration (conflicting state field declarations, duplicate tool
// names) surfaces here, before any turn executes. All defaults are safe for
// local development; production deployments typically supply a structured
// logger and provider model adapters.
package agentware

import (
	"github.com/hupe1980/agentware/agent"
	"github.com/hupe1980/agentware/core"
	"github.com/hupe1980/agentware/engine"
	"github.com/hupe1980/agentware/logging"
	"github.com/hupe1980/agentware/middleware"
	"github.com/hupe1980/agentware/model"
	"github.com/hupe1980/agentware/tool"
)

// Options configures the assembled agent.
type Options struct {
	// System is the system prompt sent with every model request.
	System string

	// Middleware is the ordered middleware list. First-registered is
	// outermost on both wrap chains and first in before phases.
	Middleware []*middleware.Middleware

	// Tools is the agent's base tool set, merged with the
	// middleware-contributed tools.
	Tools []tool.Tool

	// StateFields declares extra state fields beyond the base schema and
	// the middleware declarations.
	StateFields []core.FieldSpec

	// Logger defaults to NoOpLogger.
	Logger logging.Logger

	// MaxModelCalls caps model calls per run; 0 picks the default,
	// negative means unlimited.
	MaxModelCalls int

	// MaxParallelTools bounds concurrent sibling tool calls; 0 means no
	// explicit limit.
	MaxParallelTools int
}

// New composes registry, engine and agent in one step.
func New(m model.Model, optFns ...func(o *Options)) (*agent.Agent, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	reg, err := middleware.NewRegistry(opts.Middleware, func(o *middleware.RegistryOptions) {
		o.Logger = opts.Logger
		o.Tools = opts.Tools
		o.StateFields = opts.StateFields
	})
	if err != nil {
		return nil, err
	}

	eng := engine.New(reg, m, func(o *engine.Options) {
		o.Logger = opts.Logger
		o.MaxParallelTools = opts.MaxParallelTools
	})

	return agent.New(eng, func(o *agent.Options) {
		o.Logger = opts.Logger
		o.System = opts.System
		if opts.MaxModelCalls != 0 {
			o.MaxModelCalls = opts.MaxModelCalls
		}
	}), nil
}
