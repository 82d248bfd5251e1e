package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hupe1980/agentware/internal/util"
)

// FunctionTool is a generic adapter that exposes a plain Go function as a tool.
//
// Responsibilities:
//   - Holds a lightweight JSON-Schema-like parameter specification
//   - Validates model supplied arguments against that schema before execution
//   - Normalizes error handling so callers receive *ToolError with consistent codes:
//     VALIDATION_ERROR -> schema / argument mismatch
//     EXECUTION_ERROR  -> underlying function returned an error (non-ToolError)
//     (custom codes preserved if the function returns *ToolError directly)
//
// A FunctionTool has no internal mutable state after construction and is
// safe for concurrent use by multiple goroutines.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	fn          func(ctx context.Context, req *Request) (any, error)
}

// NewFunctionTool constructs a FunctionTool from explicit schema and function.
//
// Example:
//
//	sumTool := NewFunctionTool(
//	  "calculate_sum",
//	  "Calculate the sum of two numbers",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "a": map[string]any{"type": "number"},
//	      "b": map[string]any{"type": "number"},
//	    },
//	    "required": []string{"a", "b"},
//	  },
//	  func(ctx context.Context, req *Request) (any, error) {
//	    return req.Arguments["a"].(float64) + req.Arguments["b"].(float64), nil
//	  },
//	)
func NewFunctionTool(
	name, description string,
	parameters map[string]any,
	fn func(ctx context.Context, req *Request) (any, error),
) *FunctionTool {
	return &FunctionTool{name: name, description: description, parameters: parameters, fn: fn}
}

// NewFunctionToolFromStruct derives the parameter schema from a struct using
// reflection. It is a convenience for simple argument containers.
func NewFunctionToolFromStruct(
	name, description string,
	structType any,
	fn func(ctx context.Context, req *Request) (any, error),
) *FunctionTool {
	return NewFunctionTool(name, description, util.CreateSchema(structType), fn)
}

// Name returns the unique tool name used in function call declarations and routing.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the tool description shown to models.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the JSON schema for the accepted arguments.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Call validates the arguments, invokes the wrapped function and normalizes
// the result into a tool Result.
func (t *FunctionTool) Call(ctx context.Context, req *Request) (*Result, error) {
	if err := util.ValidateParameters(req.Arguments, t.parameters); err != nil {
		return nil, &ToolError{Tool: t.name, Message: err.Error(), Code: "VALIDATION_ERROR"}
	}

	out, err := t.fn(ctx, req)
	if err != nil {
		if te, ok := err.(*ToolError); ok {
			return nil, te
		}
		return nil, &ToolError{Tool: t.name, Message: err.Error(), Code: "EXECUTION_ERROR"}
	}

	switch v := out.(type) {
	case *Result:
		return v, nil
	case string:
		return NewMessageResult(req.CallID, v), nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, &ToolError{
				Tool:    t.name,
				Message: fmt.Sprintf("encode result: %v", err),
				Code:    "EXECUTION_ERROR",
			}
		}
		return NewMessageResult(req.CallID, string(encoded)), nil
	}
}
