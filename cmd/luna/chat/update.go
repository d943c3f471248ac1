package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		taCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyEnter:
			text := strings.TrimSpace(m.textarea.Value())
			if text == "" || m.isLoading {
				return m, nil
			}
			m.textarea.Reset()
			m.isLoading = true
			m.err = nil
			return m, tea.Batch(m.sendCmd(text), m.spinner.Tick)

		case tea.KeyCtrlP:
			if m.session.PlaybookActive() {
				return m, m.cancelPlaybookCmd()
			}
			return m, nil
		}

		// Single-key shortcuts apply only when the input is empty, so
		// typing "yes, do it" never triggers them.
		if m.textarea.Value() == "" && !m.isLoading {
			switch msg.String() {
			case "y":
				if p := m.latestPending(); p != nil {
					m.isLoading = true
					return m, tea.Batch(m.confirmCmd(p.ID), m.spinner.Tick)
				}
			case "n":
				if p := m.latestPending(); p != nil {
					return m, m.cancelCmd(p.ID)
				}
			case "r":
				if id, ok := m.latestRetryable(); ok {
					m.isLoading = true
					return m, tea.Batch(m.retryCmd(id), m.spinner.Tick)
				}
			case "1", "2", "3", "4", "5", "6", "7", "8", "9":
				if prompt, ok := m.quickPrompt(int(msg.String()[0] - '0')); ok {
					m.isLoading = true
					return m, tea.Batch(m.sendCmd(prompt), m.spinner.Tick)
				}
			}
		}

		m.textarea, taCmd = m.textarea.Update(msg)
		m.viewport, vpCmd = m.viewport.Update(msg)
		return m, tea.Batch(taCmd, vpCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		chrome := 7 // header, status, chips, input, spacing
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-chrome)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - chrome
		}
		m.textarea.SetWidth(msg.Width - 4)
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()
		return m, nil

	case sessionUpdatedMsg:
		m.isLoading = m.session.Typing()
		m.err = msg.err
		m.viewport.SetContent(m.renderHistory())
		m.viewport.GotoBottom()
		return m, nil

	case spinner.TickMsg:
		if m.isLoading {
			m.spinner, spCmd = m.spinner.Update(msg)
			return m, spCmd
		}
		return m, nil
	}

	m.textarea, taCmd = m.textarea.Update(msg)
	return m, tea.Batch(taCmd, textarea.Blink)
}
