package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luna/internal/conversation"
	"luna/internal/domain"
	"luna/internal/playbook"
	"luna/internal/resolver"
)

func newTestModel(t *testing.T) Model {
	t.Helper()
	lib := playbook.NewLibrary()
	sess, err := conversation.NewSession(conversation.Options{
		Role:      "member",
		Resolver:  resolver.NewKeyword(lib),
		Domain:    domain.NewMemory(),
		Playbooks: lib,
	})
	require.NoError(t, err)
	return New(sess, "member")
}

func TestLatestPendingFindsNewestPreview(t *testing.T) {
	m := newTestModel(t)
	require.Nil(t, m.latestPending())

	require.NoError(t, m.session.SendMessage(context.Background(), `create a task called "Ship it"`))

	p := m.latestPending()
	require.NotNil(t, p)
	assert.Equal(t, conversation.ActionPending, p.Status)
}

func TestQuickPromptBounds(t *testing.T) {
	m := newTestModel(t)

	prompt, ok := m.quickPrompt(1)
	require.True(t, ok)
	assert.NotEmpty(t, prompt)

	_, ok = m.quickPrompt(0)
	assert.False(t, ok)
	_, ok = m.quickPrompt(len(m.quick) + 1)
	assert.False(t, ok)
}

func TestStatusLabelCoversEveryState(t *testing.T) {
	states := []conversation.ActionStatus{
		conversation.ActionPending,
		conversation.ActionConfirming,
		conversation.ActionConfirmed,
		conversation.ActionCancelled,
		conversation.ActionError,
	}
	for _, st := range states {
		assert.NotEmpty(t, statusLabel(st))
	}
}

func TestPlaybookLineFormatting(t *testing.T) {
	line := playbookLine(&conversation.PlaybookProgress{
		Playbook: "Weekly review", Current: 1, Total: 3,
		Completed: []int{0}, Skipped: nil,
	})
	assert.Contains(t, line, "Weekly review")
	assert.Contains(t, line, "step 2/3")
	assert.Contains(t, line, "1 done")
}

func TestRenderHistoryShowsCardsAndProgress(t *testing.T) {
	m := newTestModel(t)
	require.NoError(t, m.session.SendMessage(context.Background(), "start the weekly review"))

	out := m.renderHistory()
	assert.Contains(t, out, "Weekly review")
	assert.Contains(t, out, "pending")
}
