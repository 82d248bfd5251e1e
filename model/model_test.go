package model

import (
	"context"
	"testing"

	"github.com/hupe1980/agentware/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestOverrideDerivesCopy(t *testing.T) {
	base := &Request{
		Messages: []core.Message{core.NewUserMessage("hi")},
		System:   "original",
		Tools:    []ToolDefinition{{Name: "search"}},
	}

	system := "rewritten"
	derived := base.Override(Overrides{
		System: &system,
		Tools:  []ToolDefinition{{Name: "search"}, {Name: "write_file"}},
	})

	assert.Equal(t, "original", base.System)
	require.Len(t, base.Tools, 1)
	assert.Equal(t, "rewritten", derived.System)
	assert.Len(t, derived.Tools, 2)
	assert.Equal(t, base.Messages, derived.Messages)
}

func TestRequestOverrideKeepsUnsetFields(t *testing.T) {
	mock := NewMockModel("m")
	base := &Request{System: "keep", Model: mock}

	derived := base.Override(Overrides{})
	assert.Equal(t, "keep", derived.System)
	assert.Equal(t, Model(mock), derived.Model)
}

func TestMockModelScriptThenEcho(t *testing.T) {
	mock := NewMockModel("m")
	mock.Enqueue(&Response{Message: core.NewAssistantMessage("scripted"), FinishReason: "stop"})

	resp, err := mock.Generate(context.Background(), &Request{Messages: []core.Message{core.NewUserMessage("first")}})
	require.NoError(t, err)
	assert.Equal(t, "scripted", resp.Message.Content)

	resp, err = mock.Generate(context.Background(), &Request{Messages: []core.Message{core.NewUserMessage("second")}})
	require.NoError(t, err)
	assert.Contains(t, resp.Message.Content, "second")
	assert.Len(t, mock.Calls(), 2)
}
