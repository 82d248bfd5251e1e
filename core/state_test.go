package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateCloneIsIndependent(t *testing.T) {
	state := State{StateKeyMessages: []Message{NewUserMessage("hi")}, "count": 1}
	cp := state.Clone()
	cp["count"] = 2

	assert.Equal(t, 1, state["count"])
	assert.Equal(t, 2, cp["count"])
}

func TestStateMessagesAccessor(t *testing.T) {
	assert.Nil(t, State{}.Messages())

	state := State{StateKeyMessages: []Message{NewUserMessage("hi")}}
	require.Len(t, state.Messages(), 1)
}

func TestStateStopRequested(t *testing.T) {
	assert.False(t, State{}.StopRequested())
	assert.True(t, State{StateKeyStopAgent: true}.StopRequested())
}

func TestMessageHelpers(t *testing.T) {
	call := ToolCall{ID: NewID(), Name: "search", Arguments: []byte(`{"q":"go"}`)}
	msg := NewToolCallMessage(call)

	assert.True(t, msg.HasToolCalls())
	assert.Equal(t, []string{call.ID}, msg.ToolCallIDs())
	assert.False(t, NewAssistantMessage("plain").HasToolCalls())
}
