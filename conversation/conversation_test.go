package conversation

import (
	"testing"

	"github.com/poiesic/ragchat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	conv := New("Be brief.")
	assert.Equal(t, 1, conv.Len())
	assert.Equal(t, []core.Message{core.SystemMessage("Be brief.")}, conv.Messages())
	assert.NotEmpty(t, conv.ID())

	empty := New("")
	assert.Zero(t, empty.Len())
	assert.NotEqual(t, conv.ID(), empty.ID())
}

func TestConversation_MessagesIsCopy(t *testing.T) {
	conv := New("Be brief.")
	msgs := conv.Messages()
	msgs[0].Content = "changed"
	assert.Equal(t, "Be brief.", conv.Messages()[0].Content)
}

func TestConversation_Acquire(t *testing.T) {
	conv := New("")
	require.NoError(t, conv.acquire())
	assert.ErrorIs(t, conv.acquire(), ErrTurnInProgress)
	conv.release()
	assert.NoError(t, conv.acquire())
}

func TestView_Build(t *testing.T) {
	history := []core.Message{core.SystemMessage("sys"), core.UserMessage("q1"), core.AssistantMessage("a1")}

	built := NewView(history).
		WithContext(core.SystemMessage("ctx")).
		WithUser(core.UserMessage("q2")).
		Build()
	assert.Equal(t, []core.Message{
		core.SystemMessage("sys"),
		core.UserMessage("q1"),
		core.AssistantMessage("a1"),
		core.SystemMessage("ctx"),
		core.UserMessage("q2"),
	}, built)
	assert.Len(t, history, 3)

	plain := NewView(history).WithUser(core.UserMessage("q2")).Build()
	assert.Len(t, plain, 4)
	assert.Equal(t, core.UserMessage("q2"), plain[3])
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "idle", PhaseIdle.String())
	assert.Equal(t, "context-injected", PhaseContextInjected.String())
	assert.Equal(t, "context-removed", PhaseContextRemoved.String())
	assert.Equal(t, "unknown", Phase(42).String())
}
