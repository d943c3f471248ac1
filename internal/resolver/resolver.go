// Package resolver turns free-form user text into a resolved outcome: an
// informational answer, an action candidate, or a playbook launch. The
// session controller never interprets raw text itself; it only dispatches on
// the outcome kind. Ambiguous input is the resolver's problem and must come
// back as an informational answer, never as an error.
package resolver

import (
	"context"

	"luna/internal/action"
)

// Kind discriminates resolver outcomes.
type Kind int

const (
	// KindInformational answers without proposing a write. Items carry
	// optional deep links; Answer carries the assistant text.
	KindInformational Kind = iota
	// KindAction proposes a write operation. The candidate may be missing
	// required fields; the session controller enters clarify mode in that
	// case.
	KindAction
	// KindPlaybook starts the named guided flow.
	KindPlaybook
)

// Item is one deep-link result in an informational answer.
type Item struct {
	Label  string `json:"label"`
	Detail string `json:"detail,omitempty"`
	Href   string `json:"href,omitempty"`
}

// Outcome is the resolver verdict for one utterance.
type Outcome struct {
	Kind      Kind
	Answer    string            // assistant text for informational outcomes
	Items     []Item            // deep links for informational outcomes
	Candidate *action.Candidate // set for KindAction
	Playbook  string            // playbook name for KindPlaybook
}

// Context carries session knowledge into a resolution.
type Context struct {
	Role string
	// Pending is the partially-filled candidate while the session is in
	// clarify mode. Resolvers may use it to bias extraction; the session
	// controller does not re-resolve clarify answers, so it is informational
	// for most implementations.
	Pending *action.Candidate
}

// Resolver is the external natural-language boundary of the engine.
type Resolver interface {
	Resolve(ctx context.Context, text string, rctx Context) (Outcome, error)
}
