package engine

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/hupe1980/agentware/core"
	"github.com/hupe1980/agentware/logging"
	"github.com/hupe1980/agentware/tool"
)

// ExecuteToolCalls runs all sibling tool calls of one model turn, each
// through its own instantiation of the tool wrap chain, possibly in
// parallel. Every sibling receives the same read-only state snapshot;
// updates become visible only after the whole batch completes, via
// ApplyToolResults.
//
// Exactly one result is returned per call, in the order the calls were
// issued. A failing, panicking or timed-out sibling never cancels the
// others: failures are converted to error-message results the model can
// observe.
func (e *Engine) ExecuteToolCalls(ctx context.Context, state core.State, calls []core.ToolCall) []*tool.Result {
	n := len(calls)
	if n == 0 {
		return nil
	}

	if n == 1 {
		return []*tool.Result{e.executeOne(ctx, state, calls[0])}
	}

	maxPar := e.maxParallel
	if maxPar <= 0 || maxPar > n {
		maxPar = n
	}

	results := make([]*tool.Result, n)
	var wg sync.WaitGroup
	sem := make(chan struct{}, maxPar)

	batchStart := time.Now()
	for i := range calls {
		if ctx.Err() != nil {
			results[i] = tool.NewErrorResult(calls[i].ID, ctx.Err())
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, call core.ToolCall) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = e.executeOne(ctx, state, call)
		}(i, calls[i])
	}
	wg.Wait()

	e.logger.Debug("tool call batch complete",
		"count", n,
		"parallelism", maxPar,
		"duration", time.Since(batchStart),
	)
	return results
}

// executeOne runs a single call through the tool chain with panic safety.
func (e *Engine) executeOne(ctx context.Context, state core.State, call core.ToolCall) *tool.Result {
	args, err := tool.ParseArguments(call.Arguments)
	if err != nil {
		return tool.NewErrorResult(call.ID, err)
	}
	req := &tool.Request{
		CallID:    call.ID,
		Name:      call.Name,
		Arguments: args,
		State:     state,
	}

	start := time.Now()
	var res *tool.Result
	func() {
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("tool call panicked", "tool", call.Name, "recover", fmt.Sprint(r), "stack", string(debug.Stack()))
				res = tool.NewErrorResult(call.ID, fmt.Errorf("tool %q panicked: %v", call.Name, r))
				err = nil
			}
		}()
		res, err = e.toolChain(ctx, req)
	}()
	dur := time.Since(start)

	if el, ok := e.logger.(*logging.EngineLogger); ok {
		el.LogToolCall(call.Name, dur, err == nil, err)
	} else if err != nil {
		e.logger.Warn("tool call failed", "tool", call.Name, "duration", dur, "error", err.Error())
	} else {
		e.logger.Debug("tool call executed", "tool", call.Name, "duration", dur)
	}
	if err != nil {
		return tool.NewErrorResult(call.ID, err)
	}
	if res == nil {
		return tool.NewErrorResult(call.ID, fmt.Errorf("tool %q returned no result", call.Name))
	}
	return res
}

// ApplyToolResults merges a completed batch into state: every answering
// tool message is appended in call order, then each result's state update
// is applied under the declared merge policies. It returns the merged state
// plus the accumulated partial update of the whole batch.
func (e *Engine) ApplyToolResults(state core.State, results []*tool.Result) (core.State, core.StateUpdate, error) {
	merger := e.reg.Merger()
	working := state
	acc := core.StateUpdate{}

	apply := func(update core.StateUpdate) error {
		var err error
		working, err = merger.Apply(working, update)
		if err != nil {
			return err
		}
		acc, err = merger.Fold(acc, update)
		return err
	}

	for _, res := range results {
		if res == nil {
			continue
		}
		if res.Message != nil {
			if err := apply(core.StateUpdate{core.StateKeyMessages: []core.Message{*res.Message}}); err != nil {
				return nil, nil, fmt.Errorf("apply tool message: %w", err)
			}
		}
		if len(res.Update) > 0 {
			if err := apply(res.Update); err != nil {
				return nil, nil, fmt.Errorf("apply tool update: %w", err)
			}
		}
	}
	return working, acc, nil
}
