package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agentware/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// Request captures the normalized model input for one invocation.
//
// A Request is logically immutable: wrap hooks that want to modify it derive
// a copy via Override instead of mutating fields in place. Only the model
// reference, the tool set and the system prompt are replaceable; messages
// and the state snapshot travel unchanged through the chain.
type Request struct {
	Messages []core.Message   `json:"messages"`
	System   string           `json:"system,omitempty"`
	Tools    []ToolDefinition `json:"tools,omitempty"`
	Model    Model            `json:"-"`
	State    core.State       `json:"-"` // read-only snapshot
}

// Overrides selects replacement values for the derivable request fields.
// Nil fields keep the original value.
type Overrides struct {
	Model  Model
	Tools  []ToolDefinition
	System *string
}

// Override returns a copy of the request with the given overrides applied.
// The original request is left untouched.
func (r *Request) Override(o Overrides) *Request {
	out := *r
	if o.Model != nil {
		out.Model = o.Model
	}
	if o.Tools != nil {
		out.Tools = o.Tools
	}
	if o.System != nil {
		out.System = *o.System
	}
	return &out
}

// Response is the opaque result of a model invocation, treated as a value
// type by the engine. The assistant message carries any tool call requests
// and provider-reported token usage.
type Response struct {
	Message      core.Message `json:"message"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required to drive generation. Generate is
// single-shot: the engine treats the response as a value and leaves
// streaming to provider adapters.
type Model interface {
	Generate(ctx context.Context, req *Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
// Scripted responses are served in order; when the script is exhausted it
// echoes the last user message.
type MockModel struct {
	mu        sync.Mutex
	info      Info
	script    []*Response
	responses map[string]string
	calls     []*Request
}

// NewMockModel constructs a MockModel with basic tool support enabled.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: "mock", SupportsTools: true},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// Enqueue appends a scripted response served before any canned completions.
func (m *MockModel) Enqueue(resp *Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, resp)
}

// Calls returns the requests seen so far, in order.
func (m *MockModel) Calls() []*Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Request{}, m.calls...)
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)

	if len(m.script) > 0 {
		resp := m.script[0]
		m.script = m.script[1:]
		return resp, nil
	}

	var lastUser string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == core.RoleUser {
			lastUser = req.Messages[i].Content
			break
		}
	}
	if canned, ok := m.responses[lastUser]; ok {
		return &Response{Message: core.NewAssistantMessage(canned), FinishReason: "stop"}, nil
	}
	return &Response{
		Message:      core.NewAssistantMessage(fmt.Sprintf("Mock response to: %s", lastUser)),
		FinishReason: "stop",
	}, nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
