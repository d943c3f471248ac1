// Package chat is the interactive terminal front-end for a Luna session. It
// renders the message log, action preview cards and playbook progress, and
// maps keys onto the session operations. All conversation logic lives in the
// conversation package; this model only displays state and dispatches.
package chat

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"luna/internal/conversation"
	"luna/internal/quickactions"
)

// =============================================================================
// MODEL
// =============================================================================

// Model is the bubbletea model for the chat UI.
type Model struct {
	session *conversation.Session
	quick   []quickactions.QuickAction

	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	width  int
	height int
	ready  bool

	isLoading bool
	err       error
}

// sessionUpdatedMsg signals that a session operation finished.
type sessionUpdatedMsg struct {
	err error
}

// New builds the chat model for an existing session.
func New(sess *conversation.Session, role string) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask Luna, or describe what to do..."
	ta.Focus()
	ta.Prompt = "> "
	ta.SetHeight(1)
	ta.ShowLineNumbers = false
	ta.CharLimit = 2000

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)

	return Model{
		session:  sess,
		quick:    quickactions.ForRole(quickactions.Role(role)),
		textarea: ta,
		spinner:  sp,
		renderer: renderer,
	}
}

// Run starts the UI and blocks until the user quits.
func Run(sess *conversation.Session, role string) error {
	p := tea.NewProgram(New(sess, role), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

// =============================================================================
// SESSION COMMANDS
// =============================================================================

func (m Model) sendCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return sessionUpdatedMsg{err: m.session.SendMessage(context.Background(), text)}
	}
}

func (m Model) confirmCmd(actionID string) tea.Cmd {
	return func() tea.Msg {
		return sessionUpdatedMsg{err: m.session.ConfirmAction(context.Background(), actionID)}
	}
}

func (m Model) cancelCmd(actionID string) tea.Cmd {
	return func() tea.Msg {
		return sessionUpdatedMsg{err: m.session.CancelAction(actionID)}
	}
}

func (m Model) retryCmd(messageID int) tea.Cmd {
	return func() tea.Msg {
		return sessionUpdatedMsg{err: m.session.RetryMessage(context.Background(), messageID)}
	}
}

func (m Model) cancelPlaybookCmd() tea.Cmd {
	return func() tea.Msg {
		return sessionUpdatedMsg{err: m.session.CancelPlaybook()}
	}
}

// latestPending returns the newest pending preview, if any.
func (m Model) latestPending() *conversation.ActionPreview {
	msgs := m.session.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if a := msgs[i].Action; a != nil && a.Status == conversation.ActionPending {
			return a
		}
	}
	return nil
}

// latestRetryable returns the newest retryable failure message id.
func (m Model) latestRetryable() (int, bool) {
	msgs := m.session.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Retryable() {
			return msgs[i].ID, true
		}
	}
	return 0, false
}

func (m Model) quickPrompt(n int) (string, bool) {
	if n < 1 || n > len(m.quick) {
		return "", false
	}
	return m.quick[n-1].Prompt, true
}

// =============================================================================
// STYLES
// =============================================================================

var (
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	spinnerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	chipStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	supersededStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Strikethrough(true)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	cardConfirmedStyle = cardStyle.BorderForeground(lipgloss.Color("10"))
	cardCancelledStyle = cardStyle.BorderForeground(lipgloss.Color("240"))
	cardErrorStyle     = cardStyle.BorderForeground(lipgloss.Color("9"))

	progressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

func cardStyleFor(status conversation.ActionStatus) lipgloss.Style {
	switch status {
	case conversation.ActionConfirmed:
		return cardConfirmedStyle
	case conversation.ActionCancelled:
		return cardCancelledStyle
	case conversation.ActionError:
		return cardErrorStyle
	}
	return cardStyle
}

func statusLabel(status conversation.ActionStatus) string {
	switch status {
	case conversation.ActionPending:
		return "pending — y to confirm, n to cancel"
	case conversation.ActionConfirming:
		return "confirming..."
	case conversation.ActionConfirmed:
		return "confirmed"
	case conversation.ActionCancelled:
		return "cancelled"
	case conversation.ActionError:
		return "failed — r to retry"
	}
	return string(status)
}

func playbookLine(p *conversation.PlaybookProgress) string {
	return fmt.Sprintf("%s — step %d/%d (%d done, %d skipped)",
		p.Playbook, p.Current+1, p.Total, len(p.Completed), len(p.Skipped))
}
