// Package tool implements the function / tool calling subsystem: the Tool
// interface, the normalized Request / Result pair that flows through the
// tool wrap chain, schema validated FunctionTool adapters and an explicit
// Registry value (there is no process-global tool registry).
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hupe1980/agentware/core"
	"github.com/hupe1980/agentware/internal/util"
)

// Tool defines the interface for extending agents with external functions.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define proper JSON schema for parameters
//   - Handle errors gracefully
//   - Be thread-safe; sibling tool calls may run concurrently
type Tool interface {
	// Name returns the unique identifier for this tool.
	// Names should follow function naming conventions (snake_case recommended).
	Name() string

	// Description returns a human-readable description of what this tool does.
	// It is provided to the LLM to help it decide when and how to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	Parameters() map[string]any

	// Call executes the tool. Arguments are parsed from the model-supplied
	// JSON and validated against the tool's schema before this is invoked.
	Call(ctx context.Context, req *Request) (*Result, error)
}

// Request describes a single tool invocation travelling through the tool
// wrap chain. The state snapshot is read-only; tools publish changes through
// a Result update, never by mutating the snapshot.
type Request struct {
	CallID    string         `json:"call_id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	State     core.State     `json:"-"` // read-only snapshot
}

// TimeoutInfo records a tool call that was cut off at its configured deadline.
type TimeoutInfo struct {
	Tool  string        `json:"tool"`
	Limit time.Duration `json:"limit"`
}

// Result is the outcome of one tool call: a message answering the call, an
// optional state-update command, or both. The engine treats the content as
// opaque beyond that distinction.
type Result struct {
	Message *core.Message    `json:"message,omitempty"`
	Update  core.StateUpdate `json:"update,omitempty"`
	Timeout *TimeoutInfo     `json:"timeout,omitempty"`
}

// NewMessageResult builds a plain message result answering callID.
func NewMessageResult(callID, content string) *Result {
	msg := core.NewToolMessage(callID, content)
	return &Result{Message: &msg}
}

// NewUpdateResult builds a state-update command result. The answering
// message confirms execution so the conversation stays well-formed.
func NewUpdateResult(callID string, update core.StateUpdate) *Result {
	msg := core.NewToolMessage(callID, "ok")
	return &Result{Message: &msg, Update: update}
}

// NewErrorResult converts a tool failure into a message result so the model
// can observe and react to it.
func NewErrorResult(callID string, err error) *Result {
	msg := core.NewToolMessage(callID, fmt.Sprintf("Error: %v", err))
	return &Result{Message: &msg}
}

// NewTimeoutResult builds the synthetic result for a call that exceeded its
// deadline. It is a normal result, not an error, so the agent loop can
// continue without special-casing timeouts.
func NewTimeoutResult(callID, name string, limit time.Duration) *Result {
	msg := core.NewToolMessage(callID, fmt.Sprintf("Error: tool %q timed out after %s", name, limit))
	return &Result{Message: &msg, Timeout: &TimeoutInfo{Tool: name, Limit: limit}}
}

// ParseArguments decodes the raw JSON arguments of a tool call. An empty
// payload yields an empty map.
func ParseArguments(raw json.RawMessage) (map[string]any, error) {
	args := map[string]any{}
	if len(raw) == 0 {
		return args, nil
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("parse tool arguments: %w", err)
	}
	return args, nil
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}
