package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"luna/internal/action"
	"luna/internal/domain"
	"luna/internal/logging"
	"luna/internal/playbook"
	"luna/internal/resolver"
)

// CancelKeyword aborts the current clarify request or pending step.
const CancelKeyword = "cancel"

var (
	// ErrBusy is returned when an operation arrives while a resolution or
	// confirmation is in flight. Busy calls are rejected, never queued.
	ErrBusy = errors.New("conversation: a request is already in flight")
	// ErrEmptyMessage is returned for whitespace-only input.
	ErrEmptyMessage = errors.New("conversation: empty message")
	// ErrUnknownAction is returned when no preview carries the given id.
	ErrUnknownAction = errors.New("conversation: unknown action id")
	// ErrNotPending is returned when confirming or cancelling a preview
	// that already left the pending state.
	ErrNotPending = errors.New("conversation: action is not pending")
	// ErrNotRetryable is returned by RetryMessage for messages without a
	// retry affordance, or ones already retried.
	ErrNotRetryable = errors.New("conversation: message is not retryable")
	// ErrNoPlaybook is returned when no playbook is active.
	ErrNoPlaybook = errors.New("conversation: no active playbook")
)

// Observer is notified after a message is appended to the log. Hosts use it
// to persist history. Observers run under the session lock and must not call
// back into the session.
type Observer interface {
	MessageAppended(sessionID string, m Message)
}

// Options configures a session.
type Options struct {
	ID        string // defaults to a fresh UUID
	Role      string // used only to contextualize resolution
	Resolver  resolver.Resolver
	Domain    domain.API
	Playbooks *playbook.Library // nil disables playbook launches
	Observers []Observer
}

// Session is one conversation. All state is owned here; the resolver and
// domain calls are the only asynchronous boundaries, and the typing flag is
// the mutex that keeps them one-in-flight.
type Session struct {
	mu sync.Mutex

	id        string
	role      string
	res       resolver.Resolver
	dom       domain.API
	playbooks *playbook.Library
	observers []Observer
	log       *zap.SugaredLogger

	messages []Message
	nextID   int
	typing   bool

	clarify        *ClarifyInfo
	pending        *action.Candidate
	pendingTrigger string // user text that produced the pending candidate

	runner *playbook.Runner

	previews    map[string]*ActionPreview
	triggers    map[string]string // preview id -> originating user text
	previewStep map[string]int    // preview id -> playbook step index
}

// NewSession creates a session.
func NewSession(opts Options) (*Session, error) {
	if opts.Resolver == nil {
		return nil, fmt.Errorf("conversation: resolver is required")
	}
	if opts.Domain == nil {
		return nil, fmt.Errorf("conversation: domain API is required")
	}
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	return &Session{
		id:          id,
		role:        opts.Role,
		res:         opts.Resolver,
		dom:         opts.Domain,
		playbooks:   opts.Playbooks,
		observers:   opts.Observers,
		log:         logging.Get(logging.CategorySession).With("session", id),
		previews:    make(map[string]*ActionPreview),
		triggers:    make(map[string]string),
		previewStep: make(map[string]int),
	}, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Role returns the role the session was created with.
func (s *Session) Role() string { return s.role }

// Typing reports whether a resolution or confirmation is in flight. Hosts
// disable inputs and quick actions while true.
func (s *Session) Typing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typing
}

// Clarify returns the live clarification request, if any.
func (s *Session) Clarify() *ClarifyInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clarify == nil {
		return nil
	}
	c := *s.clarify
	return &c
}

// Messages returns a snapshot of the log.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	for i, m := range s.messages {
		out[i] = m.clone()
	}
	return out
}

// Restore seeds the log with previously persisted turns. Only valid before
// any live traffic; restored messages carry no action state.
func (s *Session) Restore(msgs []Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) > 0 {
		return
	}
	for _, m := range msgs {
		m.retryStep = 0
		m.ID = s.nextID
		s.nextID++
		s.messages = append(s.messages, m)
	}
}

// SendMessage receives one user turn and appends exactly one user and one
// assistant message, deciding between clarify handling, cancellation, and
// resolver dispatch. Returns ErrBusy without touching the log while a
// request is in flight.
func (s *Session) SendMessage(ctx context.Context, text string) error {
	s.mu.Lock()
	if s.typing {
		s.mu.Unlock()
		return ErrBusy
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		s.mu.Unlock()
		return ErrEmptyMessage
	}

	s.appendLocked(Message{Role: RoleUser, Content: trimmed})

	// Clarify mode: the next utterance is the value for the missing field,
	// taken literally, unless it is the cancellation keyword.
	if s.clarify != nil && !isCancel(trimmed) {
		label := s.clarify.WaitingFor
		s.clarify = nil
		s.pending.SetField(label, trimmed)
		s.log.Debugw("clarify slot filled", "field", label)
		s.continueCandidateLocked()
		s.mu.Unlock()
		return nil
	}

	if isCancel(trimmed) {
		s.handleCancelKeywordLocked()
		s.mu.Unlock()
		return nil
	}

	// Resolver dispatch. The typing flag stays up across the call so a
	// second send cannot interleave.
	s.typing = true
	s.mu.Unlock()

	out, err := s.res.Resolve(ctx, trimmed, resolver.Context{Role: s.role})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.typing = false

	if err != nil {
		s.log.Warnw("resolution failed", "error", err)
		s.appendLocked(Message{
			Role:         RoleAssistant,
			Content:      "I couldn't process that right now. Tap retry to try again.",
			RetryContent: trimmed,
		})
		return nil
	}

	switch out.Kind {
	case resolver.KindInformational:
		s.appendLocked(Message{Role: RoleAssistant, Content: out.Answer, Items: out.Items})

	case resolver.KindAction:
		s.pending = out.Candidate
		s.pendingTrigger = trimmed
		s.continueCandidateLocked()

	case resolver.KindPlaybook:
		s.startPlaybookLocked(out.Playbook, trimmed)
	}
	return nil
}

// continueCandidateLocked advances the slot-fill loop: ask for the next
// missing field, or emit a pending preview once the candidate is complete.
func (s *Session) continueCandidateLocked() {
	missing := s.pending.MissingFields()
	if len(missing) > 0 {
		fs := missing[0]
		s.clarify = &ClarifyInfo{WaitingFor: fs.Label, Example: fs.Example}
		content := fmt.Sprintf("What should the %s be?", strings.ToLower(fs.Label))
		if fs.Example != "" {
			content += fmt.Sprintf(" (e.g. %q)", fs.Example)
		}
		s.appendLocked(Message{Role: RoleAssistant, Content: content})
		return
	}

	preview := s.newPreviewLocked(s.pending, s.pendingTrigger, -1)
	s.pending = nil
	s.pendingTrigger = ""
	s.appendLocked(Message{
		Role:    RoleAssistant,
		Content: "Here's what I'll do. Confirm to proceed, or cancel.",
		Action:  preview,
	})
}

func (s *Session) startPlaybookLocked(name, trigger string) {
	if s.playbooks == nil {
		s.appendLocked(Message{Role: RoleAssistant, Content: "Playbooks aren't available here."})
		return
	}
	if s.runner != nil && !s.runner.Done() {
		s.appendLocked(Message{
			Role:    RoleAssistant,
			Content: fmt.Sprintf("The %q playbook is still in progress. Finish or cancel it before starting another.", s.runner.Definition().Name),
		})
		return
	}
	def, ok := s.playbooks.Get(name)
	if !ok {
		s.appendLocked(Message{Role: RoleAssistant, Content: fmt.Sprintf("I couldn't find a playbook named %q.", name)})
		return
	}
	runner, err := playbook.NewRunner(def)
	if err != nil {
		s.log.Warnw("playbook failed validation", "playbook", name, "error", err)
		s.appendLocked(Message{Role: RoleAssistant, Content: fmt.Sprintf("The %q playbook is misconfigured: %v", name, err)})
		return
	}
	s.runner = runner
	s.log.Infow("playbook started", "playbook", def.Name, "steps", len(def.Steps))
	s.emitStepLocked(fmt.Sprintf("Starting %q (%d steps).", def.Name, len(def.Steps)), trigger)
}

// emitStepLocked appends one assistant message carrying the current step's
// preview, prefixed with the given text.
func (s *Session) emitStepLocked(prefix, trigger string) {
	step, idx, ok := s.runner.Current()
	if !ok {
		return
	}
	candidate, err := s.runner.Definition().Candidate(idx)
	if err != nil {
		s.log.Errorw("step candidate build failed", "step", idx, "error", err)
		s.appendLocked(Message{Role: RoleAssistant, Content: fmt.Sprintf("Step %d is misconfigured: %v", idx+1, err)})
		return
	}
	preview := s.newPreviewLocked(candidate, trigger, idx)
	snap := s.runner.Snapshot()
	content := strings.TrimSpace(prefix + " " + fmt.Sprintf("Step %d of %d: %s.", idx+1, snap.Total, step.Title))
	s.appendLocked(Message{
		Role:     RoleAssistant,
		Content:  content,
		Action:   preview,
		Playbook: progressFromSnapshot(snap),
	})
}

func (s *Session) newPreviewLocked(c *action.Candidate, trigger string, stepIdx int) *ActionPreview {
	p := &ActionPreview{
		ID:     uuid.NewString(),
		Type:   c.Type,
		Title:  c.Title,
		Fields: c.OrderedFields(),
		Status: ActionPending,
	}
	s.previews[p.ID] = p
	if trigger != "" {
		s.triggers[p.ID] = trigger
	}
	if stepIdx >= 0 {
		s.previewStep[p.ID] = stepIdx
	}
	return p
}

// handleCancelKeywordLocked cancels the live clarify request or the current
// pending step, current step only: a playbook's later steps are unaffected.
func (s *Session) handleCancelKeywordLocked() {
	if s.clarify != nil {
		s.clarify = nil
		s.pending = nil
		s.pendingTrigger = ""
		s.appendLocked(Message{Role: RoleAssistant, Content: "Okay, I've cancelled that."})
		return
	}

	if p := s.latestPendingLocked(); p != nil {
		p.Status = ActionCancelled
		if idx, isStep := s.previewStep[p.ID]; isStep && s.runner != nil && !s.runner.Done() {
			_ = s.runner.Skip(idx)
			s.appendAfterStepLocked("Okay, skipping that step.")
			return
		}
		s.appendLocked(Message{Role: RoleAssistant, Content: "Okay, I've cancelled that."})
		return
	}

	s.appendLocked(Message{Role: RoleAssistant, Content: "Nothing to cancel right now."})
}

// latestPendingLocked finds the most recent pending preview, if any.
func (s *Session) latestPendingLocked() *ActionPreview {
	for i := len(s.messages) - 1; i >= 0; i-- {
		if a := s.messages[i].Action; a != nil && a.Status == ActionPending {
			return a
		}
	}
	return nil
}

// ConfirmAction executes a pending preview. Success moves it to confirmed
// and, for playbook steps, advances the playbook and emits the next step
// without a new user message. Failure moves it to error and appends a
// retryable message; a failed step remains current.
func (s *Session) ConfirmAction(ctx context.Context, actionID string) error {
	s.mu.Lock()
	if s.typing {
		s.mu.Unlock()
		return ErrBusy
	}
	p, ok := s.previews[actionID]
	if !ok {
		s.mu.Unlock()
		return ErrUnknownAction
	}
	if p.Status != ActionPending {
		s.mu.Unlock()
		return ErrNotPending
	}

	p.Status = ActionConfirming
	typ := p.Type
	fields := append([]action.Field(nil), p.Fields...)
	s.typing = true
	s.mu.Unlock()

	result, err := s.dom.Execute(ctx, typ, fields)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.typing = false

	if err != nil {
		s.log.Warnw("execution failed", "action", typ, "error", err)
		p.Status = ActionError
		msg := Message{
			Role:    RoleAssistant,
			Content: "That didn't go through. Tap retry to try again.",
		}
		if idx, isStep := s.previewStep[p.ID]; isStep {
			msg.retryStep = idx + 1
		} else {
			msg.RetryContent = s.triggers[p.ID]
		}
		s.appendLocked(msg)
		return nil
	}

	p.Status = ActionConfirmed
	p.ResultHref = result.Href
	p.ResultMessage = result.Message
	s.log.Infow("action confirmed", "action", typ, "href", result.Href)

	if idx, isStep := s.previewStep[p.ID]; isStep && s.runner != nil && !s.runner.Done() {
		_ = s.runner.Complete(idx)
		s.appendAfterStepLocked("Done.")
	}
	return nil
}

// appendAfterStepLocked appends the follow-up after a step resolves: the
// next step's preview, or the completion notice when none remain.
func (s *Session) appendAfterStepLocked(prefix string) {
	if !s.runner.Done() {
		trigger := ""
		s.emitStepLocked(prefix, trigger)
		return
	}
	snap := s.runner.Snapshot()
	s.runner = nil
	s.appendLocked(Message{
		Role: RoleAssistant,
		Content: fmt.Sprintf("%s That wraps up %q: %d completed, %d skipped.",
			prefix, snap.Playbook, len(snap.Completed), len(snap.Skipped)),
	})
}

// CancelAction cancels a pending preview. Cancelling an already-cancelled
// preview is a no-op, not an error. For playbook steps, cancel means skip:
// the step is recorded skipped and the playbook advances.
func (s *Session) CancelAction(actionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.previews[actionID]
	if !ok {
		return ErrUnknownAction
	}
	switch p.Status {
	case ActionCancelled:
		return nil
	case ActionPending:
	default:
		return ErrNotPending
	}
	if s.typing {
		return ErrBusy
	}

	p.Status = ActionCancelled
	s.log.Debugw("action cancelled", "action", p.Type)

	if idx, isStep := s.previewStep[p.ID]; isStep && s.runner != nil && !s.runner.Done() {
		_ = s.runner.Skip(idx)
		s.appendAfterStepLocked("Skipped.")
	}
	return nil
}

// CancelPlaybook aborts the entire active playbook. Distinct from skipping a
// step: nothing advances, and already-confirmed steps stay confirmed as a
// partial audit trail.
func (s *Session) CancelPlaybook() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runner == nil || s.runner.Done() {
		return ErrNoPlaybook
	}
	if s.typing {
		return ErrBusy
	}

	if p := s.latestPendingLocked(); p != nil {
		if _, isStep := s.previewStep[p.ID]; isStep {
			p.Status = ActionCancelled
		}
	}

	s.runner.Abort()
	snap := s.runner.Snapshot()
	s.runner = nil
	s.log.Infow("playbook aborted", "playbook", snap.Playbook,
		"completed", len(snap.Completed), "skipped", len(snap.Skipped))
	s.appendLocked(Message{
		Role: RoleAssistant,
		Content: fmt.Sprintf("Stopped %q. %d step(s) were completed and stay as they are.",
			snap.Playbook, len(snap.Completed)),
	})
	return nil
}

// RetryMessage re-runs the command behind a retryable failure message. Text
// failures re-resolve the original user text end to end; failed playbook
// steps are re-attempted with the same fields. A successful retry marks the
// original message superseded so it cannot be retried twice; an error return
// leaves the message, and the session, untouched.
func (s *Session) RetryMessage(ctx context.Context, messageID int) error {
	s.mu.Lock()
	idx := -1
	for i := range s.messages {
		if s.messages[i].ID == messageID {
			idx = i
			break
		}
	}
	if idx < 0 || !s.messages[idx].Retryable() {
		s.mu.Unlock()
		return ErrNotRetryable
	}
	if s.typing {
		s.mu.Unlock()
		return ErrBusy
	}

	msg := &s.messages[idx]

	if msg.RetryContent != "" {
		text := msg.RetryContent
		msg.Superseded = true
		s.mu.Unlock()
		if err := s.SendMessage(ctx, text); err != nil {
			// The send lost to a concurrent request between unlock and
			// re-entry; restore the retry affordance.
			s.mu.Lock()
			s.messages[idx].Superseded = false
			s.mu.Unlock()
			return err
		}
		return nil
	}

	// Step replay: only valid while that step is still current.
	step := msg.retryStep - 1
	if s.runner == nil || s.runner.Done() {
		s.mu.Unlock()
		return ErrNoPlaybook
	}
	if _, current, ok := s.runner.Current(); !ok || current != step {
		s.mu.Unlock()
		return ErrNotRetryable
	}
	msg.Superseded = true
	s.emitStepLocked("Let's try that again.", "")
	s.mu.Unlock()
	return nil
}

// PlaybookActive reports whether a playbook has unresolved steps.
func (s *Session) PlaybookActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runner != nil && !s.runner.Done()
}

func (s *Session) appendLocked(m Message) {
	m.ID = s.nextID
	s.nextID++
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	s.messages = append(s.messages, m)
	for _, o := range s.observers {
		o.MessageAppended(s.id, m.clone())
	}
}

func isCancel(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), CancelKeyword)
}

func progressFromSnapshot(snap playbook.Snapshot) *PlaybookProgress {
	return &PlaybookProgress{
		Playbook:  snap.Playbook,
		StepTitle: snap.StepTitle,
		Current:   snap.Current,
		Total:     snap.Total,
		Completed: snap.Completed,
		Skipped:   snap.Skipped,
	}
}
