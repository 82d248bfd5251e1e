package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/hupe1980/agentware/core"
	"github.com/hupe1980/agentware/middleware"
	"github.com/hupe1980/agentware/model"
	"github.com/hupe1980/agentware/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, defaultModel model.Model, mws []*middleware.Middleware, tools ...tool.Tool) *Engine {
	t.Helper()
	reg, err := middleware.NewRegistry(mws, func(o *middleware.RegistryOptions) {
		o.Tools = tools
	})
	require.NoError(t, err)
	return New(reg, defaultModel)
}

func fnTool(name string, fn func(ctx context.Context, req *tool.Request) (any, error)) tool.Tool {
	return tool.NewFunctionTool(name, "test tool", map[string]any{"type": "object"}, fn)
}

func TestInvokeModelDefaultsToEngineModel(t *testing.T) {
	mock := model.NewMockModel("default")
	mock.Enqueue(&model.Response{Message: core.NewAssistantMessage("from default"), FinishReason: "stop"})
	e := newTestEngine(t, mock, nil)

	resp, err := e.InvokeModel(context.Background(), &model.Request{
		Messages: []core.Message{core.NewUserMessage("hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, "from default", resp.Message.Content)
}

func TestInvokeModelRequestModelWins(t *testing.T) {
	fallback := model.NewMockModel("fallback")
	override := model.NewMockModel("override")
	override.Enqueue(&model.Response{Message: core.NewAssistantMessage("from override"), FinishReason: "stop"})
	e := newTestEngine(t, fallback, nil)

	resp, err := e.InvokeModel(context.Background(), &model.Request{
		Messages: []core.Message{core.NewUserMessage("hi")},
		Model:    override,
	})
	require.NoError(t, err)
	assert.Equal(t, "from override", resp.Message.Content)
	assert.Empty(t, fallback.Calls())
}

func TestInvokeModelWithoutAnyModel(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	_, err := e.InvokeModel(context.Background(), &model.Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no model configured")
}

func TestInvokeToolUnknownTool(t *testing.T) {
	e := newTestEngine(t, nil, nil)
	_, err := e.InvokeTool(context.Background(), &tool.Request{CallID: "c1", Name: "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestInvokeToolRunsWrapChain(t *testing.T) {
	var order []string
	mw := &middleware.Middleware{
		Name: "trace",
		WrapTool: func(next middleware.ToolHandler) middleware.ToolHandler {
			return func(ctx context.Context, req *tool.Request) (*tool.Result, error) {
				order = append(order, "wrap-pre")
				res, err := next(ctx, req)
				order = append(order, "wrap-post")
				return res, err
			}
		},
	}
	echo := fnTool("echo", func(ctx context.Context, req *tool.Request) (any, error) {
		order = append(order, "tool")
		return "done", nil
	})
	e := newTestEngine(t, nil, []*middleware.Middleware{mw}, echo)

	res, err := e.InvokeTool(context.Background(), &tool.Request{CallID: "c1", Name: "echo", Arguments: map[string]any{}})
	require.NoError(t, err)
	require.NotNil(t, res.Message)
	assert.Equal(t, []string{"wrap-pre", "tool", "wrap-post"}, order)
}

func TestExecuteToolCallsResultsInCallOrder(t *testing.T) {
	slow := fnTool("slow", func(ctx context.Context, req *tool.Request) (any, error) {
		time.Sleep(30 * time.Millisecond)
		return "slow done", nil
	})
	fast := fnTool("fast", func(ctx context.Context, req *tool.Request) (any, error) {
		return "fast done", nil
	})
	e := newTestEngine(t, nil, nil, slow, fast)

	calls := []core.ToolCall{
		{ID: "c1", Name: "slow", Arguments: json.RawMessage(`{}`)},
		{ID: "c2", Name: "fast", Arguments: json.RawMessage(`{}`)},
	}
	results := e.ExecuteToolCalls(context.Background(), core.State{}, calls)
	require.Len(t, results, 2)
	assert.Equal(t, "c1", results[0].Message.ToolCallID)
	assert.Contains(t, results[0].Message.Content, "slow done")
	assert.Equal(t, "c2", results[1].Message.ToolCallID)
}

func TestExecuteToolCallsSiblingIsolation(t *testing.T) {
	initial := core.State{core.StateKeyMessages: []core.Message{core.NewUserMessage("hi")}}

	snapshots := make(chan int, 2)
	observe := func(ctx context.Context, req *tool.Request) (any, error) {
		snapshots <- len(req.State.Messages())
		return &tool.Result{Update: core.StateUpdate{core.StateKeyMessages: []core.Message{core.NewUserMessage("extra")}}}, nil
	}
	e := newTestEngine(t, nil, nil, fnTool("a", observe), fnTool("b", observe))

	calls := []core.ToolCall{
		{ID: "c1", Name: "a", Arguments: json.RawMessage(`{}`)},
		{ID: "c2", Name: "b", Arguments: json.RawMessage(`{}`)},
	}
	results := e.ExecuteToolCalls(context.Background(), initial, calls)
	require.Len(t, results, 2)

	// Both siblings saw the pre-batch snapshot; neither observed the
	// other's pending update.
	assert.Equal(t, 1, <-snapshots)
	assert.Equal(t, 1, <-snapshots)
	assert.Len(t, initial.Messages(), 1, "snapshot untouched until ApplyToolResults")
}

func TestExecuteToolCallsFailureDoesNotAffectSiblings(t *testing.T) {
	boom := fnTool("boom", func(ctx context.Context, req *tool.Request) (any, error) {
		panic("kaboom")
	})
	ok := fnTool("ok", func(ctx context.Context, req *tool.Request) (any, error) {
		return "fine", nil
	})
	e := newTestEngine(t, nil, nil, boom, ok)

	calls := []core.ToolCall{
		{ID: "c1", Name: "boom", Arguments: json.RawMessage(`{}`)},
		{ID: "c2", Name: "ok", Arguments: json.RawMessage(`{}`)},
	}
	results := e.ExecuteToolCalls(context.Background(), core.State{}, calls)
	require.Len(t, results, 2)

	require.NotNil(t, results[0].Message)
	assert.Contains(t, results[0].Message.Content, "panicked")
	assert.Contains(t, results[1].Message.Content, "fine")
}

func TestExecuteToolCallsBadArguments(t *testing.T) {
	echo := fnTool("echo", func(ctx context.Context, req *tool.Request) (any, error) {
		return "never", nil
	})
	e := newTestEngine(t, nil, nil, echo)

	results := e.ExecuteToolCalls(context.Background(), core.State{}, []core.ToolCall{
		{ID: "c1", Name: "echo", Arguments: json.RawMessage(`not json`)},
	})
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Message.Content, "Error")
}

func TestApplyToolResultsMergesAfterBatch(t *testing.T) {
	mw := &middleware.Middleware{
		Name:        "counter",
		StateFields: []core.FieldSpec{{Name: "count", Policy: core.PolicyAccumulate}},
	}
	reg, err := middleware.NewRegistry([]*middleware.Middleware{mw})
	require.NoError(t, err)
	e := New(reg, nil)

	state := core.State{
		core.StateKeyMessages: []core.Message{core.NewUserMessage("hi")},
		"count":               1,
	}
	results := []*tool.Result{
		tool.NewUpdateResult("c1", core.StateUpdate{"count": 2}),
		tool.NewMessageResult("c2", "second"),
		nil,
	}

	after, acc, err := e.ApplyToolResults(state, results)
	require.NoError(t, err)

	assert.Equal(t, 3, after["count"])
	msgs := after.Messages()
	require.Len(t, msgs, 3, "both answering messages appended in call order")
	assert.Equal(t, "c1", msgs[1].ToolCallID)
	assert.Equal(t, "c2", msgs[2].ToolCallID)

	// The accumulated update replays to the same state.
	replay, err := reg.Merger().Apply(state, acc)
	require.NoError(t, err)
	assert.Equal(t, after, replay)
}
