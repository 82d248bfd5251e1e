package compression

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/hupe1980/agentware/core"
	"github.com/hupe1980/agentware/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareReplacesMessagesOnTrigger(t *testing.T) {
	eng, _ := newTestEngine(t, Config{
		ContextLimit:         100,
		ReservedOutputTokens: 20,
		KeepRecent:           2,
	})

	reg, err := middleware.NewRegistry([]*middleware.Middleware{New(eng)})
	require.NoError(t, err)

	var msgs []core.Message
	for i := 0; i < 10; i++ {
		msgs = append(msgs, core.NewUserMessage(fmt.Sprintf("turn %d: %s", i, strings.Repeat("x", 40))))
	}
	state := reg.Merger().Seed(core.State{core.StateKeyMessages: msgs})

	after, update, err := reg.RunPhase(context.Background(), middleware.PhaseBeforeModel, state, nil)
	require.NoError(t, err)

	got := after.Messages()
	require.Len(t, got, 3, "summary plus two kept messages")
	assert.True(t, strings.HasPrefix(got[0].Content, SummaryPrefix))
	assert.Equal(t, msgs[8:], got[1:])

	// The update carries a full-replace marker so the append policy of
	// the messages field does not re-append the old history.
	marker, ok := update[core.StateKeyMessages].(core.Replace)
	require.True(t, ok)
	assert.Equal(t, got, marker.Value)
}

func TestMiddlewareNoOpBelowThreshold(t *testing.T) {
	eng, sum := newTestEngine(t, Config{
		ContextLimit:         100,
		ReservedOutputTokens: 20,
		KeepRecent:           2,
	})

	reg, err := middleware.NewRegistry([]*middleware.Middleware{New(eng)})
	require.NoError(t, err)

	msgs := []core.Message{
		core.NewUserMessage("hi"),
		assistantWithUsage("hello", 10),
	}
	state := reg.Merger().Seed(core.State{core.StateKeyMessages: msgs})

	after, update, err := reg.RunPhase(context.Background(), middleware.PhaseBeforeModel, state, nil)
	require.NoError(t, err)
	assert.Equal(t, msgs, after.Messages())
	assert.Empty(t, update)
	assert.Empty(t, sum.inputs)
}
