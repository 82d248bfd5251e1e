package tool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hupe1980/agentware/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sumTool() *FunctionTool {
	return NewFunctionTool(
		"calculate_sum",
		"Calculate the sum of two numbers",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"a": map[string]any{"type": "number"},
				"b": map[string]any{"type": "number"},
			},
			"required": []string{"a", "b"},
		},
		func(ctx context.Context, req *Request) (any, error) {
			return req.Arguments["a"].(float64) + req.Arguments["b"].(float64), nil
		},
	)
}

func TestFunctionToolCall(t *testing.T) {
	res, err := sumTool().Call(context.Background(), &Request{
		CallID:    core.NewID(),
		Name:      "calculate_sum",
		Arguments: map[string]any{"a": 2.0, "b": 3.0},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Message)
	assert.Equal(t, "5", res.Message.Content)
	assert.Equal(t, core.RoleTool, res.Message.Role)
}

func TestFunctionToolValidation(t *testing.T) {
	_, err := sumTool().Call(context.Background(), &Request{
		CallID:    core.NewID(),
		Name:      "calculate_sum",
		Arguments: map[string]any{"a": 2.0},
	})
	require.Error(t, err)

	var te *ToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "VALIDATION_ERROR", te.Code)
}

func TestFunctionToolExecutionError(t *testing.T) {
	failing := NewFunctionTool("boom", "always fails", map[string]any{"type": "object"},
		func(ctx context.Context, req *Request) (any, error) {
			return nil, errors.New("broken pipe")
		},
	)

	_, err := failing.Call(context.Background(), &Request{CallID: core.NewID(), Name: "boom", Arguments: map[string]any{}})
	var te *ToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "EXECUTION_ERROR", te.Code)
	assert.Contains(t, te.Message, "broken pipe")
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(sumTool(), sumTool())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate tool")
}

func TestRegistryDefinitions(t *testing.T) {
	reg, err := NewRegistry(sumTool())
	require.NoError(t, err)

	defs := reg.Definitions()
	require.Len(t, defs, 1)
	assert.Equal(t, "calculate_sum", defs[0].Name)
	assert.NotEmpty(t, defs[0].Parameters)

	_, ok := reg.Get("calculate_sum")
	assert.True(t, ok)
	_, ok = reg.Get("missing")
	assert.False(t, ok)
}

func TestTimeoutResultCarriesToolAndLimit(t *testing.T) {
	res := NewTimeoutResult("call-1", "write_file", 2*time.Second)
	require.NotNil(t, res.Timeout)
	assert.Equal(t, "write_file", res.Timeout.Tool)
	assert.Equal(t, 2*time.Second, res.Timeout.Limit)
	require.NotNil(t, res.Message)
	assert.Contains(t, res.Message.Content, "timed out")
}

func TestParseArguments(t *testing.T) {
	args, err := ParseArguments([]byte(`{"q":"go"}`))
	require.NoError(t, err)
	assert.Equal(t, "go", args["q"])

	args, err = ParseArguments(nil)
	require.NoError(t, err)
	assert.Empty(t, args)

	_, err = ParseArguments([]byte(`{`))
	require.Error(t, err)
}
