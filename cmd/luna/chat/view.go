package chat

import (
	"fmt"
	"strings"

	"luna/internal/conversation"
)

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Starting Luna..."
	}

	var b strings.Builder
	b.WriteString(assistantStyle.Render("Luna"))
	b.WriteString(statusStyle.Render("  esc to quit, ctrl+p to stop a playbook"))
	b.WriteString("\n\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.quickLine())
	b.WriteString("\n")
	b.WriteString(m.textarea.View())
	return b.String()
}

func (m Model) statusLine() string {
	if m.err != nil {
		return errorStyle.Render("✗ " + m.err.Error())
	}
	if m.isLoading {
		return m.spinner.View() + statusStyle.Render(" Luna is thinking...")
	}
	if c := m.session.Clarify(); c != nil {
		hint := fmt.Sprintf("Waiting for: %s", c.WaitingFor)
		if c.Example != "" {
			hint += fmt.Sprintf(" (e.g. %q)", c.Example)
		}
		return progressStyle.Render(hint)
	}
	return ""
}

func (m Model) quickLine() string {
	if len(m.quick) == 0 {
		return ""
	}
	parts := make([]string, 0, len(m.quick))
	for i, qa := range m.quick {
		parts = append(parts, fmt.Sprintf("[%d] %s", i+1, qa.Label))
	}
	return chipStyle.Render(strings.Join(parts, "  "))
}

// renderHistory turns the session log into the viewport body.
func (m Model) renderHistory() string {
	var b strings.Builder
	for _, msg := range m.session.Messages() {
		switch msg.Role {
		case conversation.RoleUser:
			b.WriteString(userStyle.Render("You: "))
			b.WriteString(msg.Content)
		case conversation.RoleAssistant:
			b.WriteString(assistantStyle.Render("Luna: "))
			b.WriteString(m.renderAssistant(msg))
		}
		b.WriteString("\n")

		if msg.Playbook != nil {
			b.WriteString(progressStyle.Render("  ▸ " + playbookLine(msg.Playbook)))
			b.WriteString("\n")
		}
		if msg.Action != nil {
			b.WriteString(m.renderCard(msg.Action))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderAssistant(msg conversation.Message) string {
	content := msg.Content
	if msg.Superseded {
		return supersededStyle.Render(content)
	}
	if len(msg.Items) > 0 {
		var sb strings.Builder
		sb.WriteString(content)
		for _, it := range msg.Items {
			sb.WriteString(fmt.Sprintf("\n- [%s](%s)", it.Label, it.Href))
			if it.Detail != "" {
				sb.WriteString(" — " + it.Detail)
			}
		}
		content = sb.String()
	}
	if m.renderer != nil && (len(msg.Items) > 0 || strings.Contains(content, "`")) {
		if rendered, err := m.renderer.Render(content); err == nil {
			return strings.TrimSpace(rendered)
		}
	}
	if msg.Retryable() {
		content += errorStyle.Render("  (r to retry)")
	}
	return content
}

func (m Model) renderCard(a *conversation.ActionPreview) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s  %s", a.Title, statusStyle.Render(statusLabel(a.Status))))
	for _, f := range a.Fields {
		b.WriteString(fmt.Sprintf("\n%s: %s", statusStyle.Render(f.Label), f.Value))
	}
	if a.Status == conversation.ActionConfirmed {
		if a.ResultMessage != "" {
			b.WriteString("\n" + a.ResultMessage)
		}
		if a.ResultHref != "" {
			b.WriteString("  " + chipStyle.Render(a.ResultHref))
		}
	}
	return cardStyleFor(a.Status).Render(b.String())
}
