// Package conversation implements the assistant's session controller: the
// single authority over what happens next given user input. It owns the
// message log, the clarification slot-filler, and playbook progression, and
// it is the only component that mutates conversation state. Hosts (TUI,
// HTTP server, tests) hold a *Session and dispatch the four operations:
// SendMessage, ConfirmAction, CancelAction, RetryMessage.
package conversation

import (
	"time"

	"luna/internal/action"
	"luna/internal/resolver"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ActionStatus is the preview state machine. Transitions are one-way:
// pending -> confirming -> confirmed|error, or pending -> cancelled. A new
// preview is created fresh per command; cancelled and error previews are
// never resurrected.
type ActionStatus string

const (
	ActionPending    ActionStatus = "pending"
	ActionConfirming ActionStatus = "confirming"
	ActionConfirmed  ActionStatus = "confirmed"
	ActionCancelled  ActionStatus = "cancelled"
	ActionError      ActionStatus = "error"
)

// ActionPreview is a proposed write operation awaiting confirmation. A
// pending preview always carries every required field non-empty; clarify
// mode exists to guarantee that before a preview is ever created.
type ActionPreview struct {
	ID            string         `json:"id"`
	Type          action.Type    `json:"type"`
	Title         string         `json:"title"`
	Fields        []action.Field `json:"fields"`
	Status        ActionStatus   `json:"status"`
	ResultHref    string         `json:"result_href,omitempty"`
	ResultMessage string         `json:"result_message,omitempty"`
}

// PlaybookProgress describes where a playbook stands, attached to messages
// that carry one of its step previews.
type PlaybookProgress struct {
	Playbook  string `json:"playbook"`
	StepTitle string `json:"step_title"`
	Current   int    `json:"current"`
	Total     int    `json:"total"`
	Completed []int  `json:"completed"`
	Skipped   []int  `json:"skipped"`
}

// ClarifyInfo is the single outstanding request for a missing field. While
// it is live, the next user message is taken as the value for WaitingFor,
// not as a new command, unless it is the cancellation keyword.
type ClarifyInfo struct {
	WaitingFor string `json:"waiting_for"`
	Example    string `json:"example,omitempty"`
}

// Message is one turn in the conversation. Messages are immutable once
// appended, except that a retryable failure message is marked superseded
// when retried.
type Message struct {
	ID           int             `json:"id"`
	Role         Role            `json:"role"`
	Content      string          `json:"content"`
	Items        []resolver.Item `json:"items,omitempty"`
	Action       *ActionPreview  `json:"action,omitempty"`
	Playbook     *PlaybookProgress `json:"playbook,omitempty"`
	RetryContent string          `json:"retry_content,omitempty"`
	Superseded   bool            `json:"superseded,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`

	// retryStep is 1 + the playbook step index to replay when this message
	// represents a failed step, and 0 for everything else. A failed step is
	// re-attempted with the same fields; text retries go through
	// RetryContent instead.
	retryStep int
}

// Retryable reports whether RetryMessage accepts this message.
func (m Message) Retryable() bool {
	return !m.Superseded && (m.RetryContent != "" || m.retryStep > 0)
}

func (m Message) clone() Message {
	out := m
	if m.Items != nil {
		out.Items = append([]resolver.Item(nil), m.Items...)
	}
	if m.Action != nil {
		a := *m.Action
		a.Fields = append([]action.Field(nil), m.Action.Fields...)
		out.Action = &a
	}
	if m.Playbook != nil {
		p := *m.Playbook
		p.Completed = append([]int(nil), m.Playbook.Completed...)
		p.Skipped = append([]int(nil), m.Playbook.Skipped...)
		out.Playbook = &p
	}
	return out
}
