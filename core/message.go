package core

import "encoding/json"

// Role identifies the author of a message.
type Role string

const (
	// RoleSystem marks the instruction message placed at the start of a conversation.
	RoleSystem Role = "system"
	// RoleUser marks end-user input.
	RoleUser Role = "user"
	// RoleAssistant marks model output, including tool call requests.
	RoleAssistant Role = "assistant"
	// RoleTool marks the result of an executed tool call.
	RoleTool Role = "tool"
)

// TokenUsage captures provider-reported token statistics for a model response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ToolCall is a function call request surfaced by a model. Unified across
// providers so downstream logic does not need per-provider branching.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"` // JSON object of arguments
}

// Message is one entry of the conversation history. After construction it
// should be treated as immutable; derive new messages instead of mutating.
//
// Field usage by role:
//   - assistant: Content and/or ToolCalls, optionally Usage
//   - tool: Content plus ToolCallID referencing the answered call
//   - system/user: Content only
type Message struct {
	ID         string      `json:"id"`
	Role       Role        `json:"role"`
	Content    string      `json:"content,omitempty"`
	ToolCalls  []ToolCall  `json:"tool_calls,omitempty"`
	ToolCallID string      `json:"tool_call_id,omitempty"`
	Usage      *TokenUsage `json:"usage,omitempty"`
}

// NewSystemMessage creates a system instruction message.
func NewSystemMessage(content string) Message {
	return Message{ID: NewID(), Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user input message.
func NewUserMessage(content string) Message {
	return Message{ID: NewID(), Role: RoleUser, Content: content}
}

// NewAssistantMessage creates a plain text assistant message.
func NewAssistantMessage(content string) Message {
	return Message{ID: NewID(), Role: RoleAssistant, Content: content}
}

// NewToolCallMessage creates an assistant message requesting tool execution.
func NewToolCallMessage(calls ...ToolCall) Message {
	return Message{ID: NewID(), Role: RoleAssistant, ToolCalls: calls}
}

// NewToolMessage creates a tool result message answering the given call ID.
func NewToolMessage(toolCallID, content string) Message {
	return Message{ID: NewID(), Role: RoleTool, Content: content, ToolCallID: toolCallID}
}

// HasToolCalls reports whether the message is an assistant message that
// requests at least one tool execution.
func (m Message) HasToolCalls() bool {
	return m.Role == RoleAssistant && len(m.ToolCalls) > 0
}

// ToolCallIDs returns the IDs of all tool calls requested by the message.
func (m Message) ToolCallIDs() []string {
	if len(m.ToolCalls) == 0 {
		return nil
	}
	ids := make([]string, 0, len(m.ToolCalls))
	for _, tc := range m.ToolCalls {
		if tc.ID != "" {
			ids = append(ids, tc.ID)
		}
	}
	return ids
}
