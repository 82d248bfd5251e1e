package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/agentware/core"
	"github.com/hupe1980/agentware/logging"
)

// RunPhase executes all hooks registered for phase. Before phases run in
// registry order, after phases in reverse registry order. Each returned
// update is merged immediately, so later hooks in the same phase observe
// earlier contributions. Hooks are never skipped because of an earlier
// hook's update; loop-control signals such as the stop flag are merged and
// passed through untouched for the driver to interpret.
//
// RunPhase returns the merged state plus the accumulated partial update of
// the whole phase (the policy-aware fold of all hook updates), so drivers
// can either adopt the state or persist the delta. A hook error aborts the
// phase and propagates.
func (r *Registry) RunPhase(ctx context.Context, phase Phase, state core.State, rt *Runtime) (core.State, core.StateUpdate, error) {
	if rt == nil {
		rt = NewRuntime(r.logger)
	}

	working := state
	acc := core.StateUpdate{}
	hooks := 0
	start := time.Now()

	logPhase := func(err error) {
		if el, ok := rt.Logger.(*logging.EngineLogger); ok {
			el.WithInvocation(rt.InvocationID).LogPhase(string(phase), hooks, time.Since(start), err)
		}
	}

	run := func(mw *Middleware) error {
		hook := mw.hook(phase)
		if hook == nil {
			return nil
		}
		hooks++
		update, err := hook(ctx, working, rt)
		if err != nil {
			return fmt.Errorf("middleware %q %s hook: %w", mw.name(), phase, err)
		}
		if len(update) == 0 {
			return nil
		}
		working, err = r.merger.Apply(working, update)
		if err != nil {
			return fmt.Errorf("middleware %q %s hook: %w", mw.name(), phase, err)
		}
		acc, err = r.merger.Fold(acc, update)
		if err != nil {
			return fmt.Errorf("middleware %q %s hook: %w", mw.name(), phase, err)
		}
		return nil
	}

	switch phase {
	case PhaseBeforeAgent, PhaseBeforeModel:
		for _, mw := range r.entries {
			if err := run(mw); err != nil {
				logPhase(err)
				return nil, nil, err
			}
		}
	case PhaseAfterAgent, PhaseAfterModel:
		for i := len(r.entries) - 1; i >= 0; i-- {
			if err := run(r.entries[i]); err != nil {
				logPhase(err)
				return nil, nil, err
			}
		}
	default:
		return nil, nil, fmt.Errorf("unknown lifecycle phase %q", phase)
	}

	logPhase(nil)
	return working, acc, nil
}
