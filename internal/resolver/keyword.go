package resolver

import (
	"context"
	"fmt"
	"strings"

	"luna/internal/action"
	"luna/internal/logging"
	"luna/internal/playbook"
)

// Keyword is a deterministic, rule-based resolver. It derives the outcome
// from a leading-verb table plus naive field extraction, which makes it
// usable offline, in tests, and as a fallback when no LLM is configured.
type Keyword struct {
	playbooks *playbook.Library
}

// NewKeyword builds a keyword resolver. lib may be nil when playbooks are
// disabled; launch phrases then resolve informationally.
func NewKeyword(lib *playbook.Library) *Keyword {
	return &Keyword{playbooks: lib}
}

// Resolve implements Resolver.
func (k *Keyword) Resolve(_ context.Context, text string, rctx Context) (Outcome, error) {
	log := logging.Get(logging.CategoryResolver)

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return informational("Say what you'd like to do, for example \"create a task\".", nil), nil
	}

	verb, remainder := splitFirstToken(trimmed)
	lowerVerb := strings.ToLower(verb)

	switch lowerVerb {
	case "start", "run", "begin", "launch":
		if k.playbooks != nil {
			if def, ok := k.playbooks.Match(trimmed); ok {
				log.Debugw("resolved playbook launch", "playbook", def.Name)
				return Outcome{Kind: KindPlaybook, Playbook: def.Name}, nil
			}
		}
		return informational(k.unknownPlaybookAnswer(), nil), nil

	case "create", "add", "new", "make":
		return k.resolveCreate(trimmed, remainder)

	case "mark", "set", "move", "update", "change":
		return k.resolveStatusUpdate(remainder)

	case "complete", "finish", "close":
		return k.resolveCompletion(remainder)

	case "show", "list", "what", "which", "display", "find":
		return k.resolveInformational(trimmed, rctx.Role), nil

	case "help":
		return informational(k.helpAnswer(), nil), nil
	}

	log.Debugw("no verb matched", "text", trimmed)
	return informational("I didn't catch an action there. Try \"create a task\", \"show my tasks\", or \"help\".", nil), nil
}

func (k *Keyword) resolveCreate(full, remainder string) (Outcome, error) {
	lower := strings.ToLower(full)

	if strings.Contains(lower, "programme") || strings.Contains(lower, "program") {
		c, err := action.NewCandidate(action.TypeCreateProgramme)
		if err != nil {
			return Outcome{}, err
		}
		if name := extractSubject(remainder, "programme", "program"); name != "" {
			c.SetField("Programme name", name)
		}
		return Outcome{Kind: KindAction, Candidate: c}, nil
	}

	c, err := action.NewCandidate(action.TypeCreateTask)
	if err != nil {
		return Outcome{}, err
	}
	if title := extractSubject(remainder, "task"); title != "" {
		c.SetField("Task title", title)
	}
	return Outcome{Kind: KindAction, Candidate: c}, nil
}

// resolveStatusUpdate parses "<ref> to <status>" / "<ref> as <status>".
func (k *Keyword) resolveStatusUpdate(remainder string) (Outcome, error) {
	typ := action.TypeUpdateTaskStatus
	refLabel := "Task"
	lower := strings.ToLower(remainder)
	if strings.Contains(lower, "programme") || strings.Contains(lower, "program") {
		typ = action.TypeUpdateProgrammeStatus
		refLabel = "Programme"
	}

	c, err := action.NewCandidate(typ)
	if err != nil {
		return Outcome{}, err
	}

	ref, status := splitOnSeparator(remainder, " to ", " as ")
	if ref = cleanReference(ref, refLabel); ref != "" {
		c.SetField(refLabel, ref)
	}
	if status = strings.TrimSpace(status); status != "" {
		c.SetField("New status", status)
	}
	return Outcome{Kind: KindAction, Candidate: c}, nil
}

// resolveCompletion treats "complete X" as a status update to done.
func (k *Keyword) resolveCompletion(remainder string) (Outcome, error) {
	c, err := action.NewCandidate(action.TypeUpdateTaskStatus)
	if err != nil {
		return Outcome{}, err
	}
	if ref := cleanReference(remainder, "Task"); ref != "" {
		c.SetField("Task", ref)
	}
	c.SetField("New status", "done")
	return Outcome{Kind: KindAction, Candidate: c}, nil
}

func (k *Keyword) resolveInformational(text, role string) Outcome {
	lower := strings.ToLower(text)
	manager := role != "" && role != "member"

	switch {
	case strings.Contains(lower, "overdue") && strings.Contains(lower, "team") && manager:
		return informational("Here are your team's overdue tasks:", []Item{
			{Label: "Team overdue tasks", Detail: "All overdue tasks across your team", Href: "/tasks?scope=team&filter=overdue"},
		})
	case strings.Contains(lower, "overdue"):
		return informational("Here are your overdue tasks:", []Item{
			{Label: "My overdue tasks", Detail: "Tasks past their due date", Href: "/tasks?assignee=me&filter=overdue"},
		})
	case strings.Contains(lower, "team") && manager:
		return informational("Here's your team's task board:", []Item{
			{Label: "Team tasks", Href: "/tasks?scope=team"},
		})
	case strings.Contains(lower, "programme") || strings.Contains(lower, "program"):
		return informational("Here are the programmes you can see:", []Item{
			{Label: "Programmes", Href: "/programmes"},
		})
	case strings.Contains(lower, "today"):
		return informational("Here's what's due today:", []Item{
			{Label: "Due today", Href: "/tasks?assignee=me&filter=today"},
		})
	default:
		return informational("Here are your tasks:", []Item{
			{Label: "My tasks", Href: "/tasks?assignee=me"},
		})
	}
}

func (k *Keyword) helpAnswer() string {
	var b strings.Builder
	b.WriteString("I can create tasks and programmes, update their status, and show your work. ")
	if k.playbooks != nil {
		if names := k.playbooks.Names(); len(names) > 0 {
			b.WriteString(fmt.Sprintf("You can also start a playbook: %s.", strings.Join(names, ", ")))
		}
	}
	return b.String()
}

func (k *Keyword) unknownPlaybookAnswer() string {
	if k.playbooks == nil {
		return "Playbooks aren't available here."
	}
	names := k.playbooks.Names()
	if len(names) == 0 {
		return "No playbooks are defined yet."
	}
	return fmt.Sprintf("I couldn't find that playbook. Available: %s.", strings.Join(names, ", "))
}

func informational(answer string, items []Item) Outcome {
	return Outcome{Kind: KindInformational, Answer: answer, Items: items}
}

// splitFirstToken splits the leading whitespace-delimited token from the
// rest.
func splitFirstToken(s string) (string, string) {
	s = strings.TrimSpace(s)
	for i, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			return s[:i], strings.TrimSpace(s[i:])
		}
	}
	return s, ""
}

// extractSubject pulls the free-text subject out of a create phrase. Quoted
// text wins; otherwise everything after the last marker word, minus filler.
func extractSubject(remainder string, markers ...string) string {
	if q := firstQuoted(remainder); q != "" {
		return q
	}

	rest := remainder
	lower := strings.ToLower(remainder)
	for _, m := range markers {
		if idx := strings.LastIndex(lower, m); idx >= 0 {
			rest = remainder[idx+len(m):]
			break
		}
	}

	rest = strings.TrimSpace(rest)
	for _, filler := range []string{"called", "titled", "named", "for", "to", ":"} {
		if strings.HasPrefix(strings.ToLower(rest), filler+" ") {
			rest = strings.TrimSpace(rest[len(filler):])
			break
		}
	}
	rest = strings.Trim(rest, " .:")
	// A bare article left over means no subject was given.
	switch strings.ToLower(rest) {
	case "", "a", "an", "the":
		return ""
	}
	return rest
}

func firstQuoted(s string) string {
	for _, q := range []string{`"`, "'", "“"} {
		start := strings.Index(s, q)
		if start < 0 {
			continue
		}
		end := q
		if q == "“" {
			end = "”"
		}
		if stop := strings.Index(s[start+len(q):], end); stop >= 0 {
			return strings.TrimSpace(s[start+len(q) : start+len(q)+stop])
		}
	}
	return ""
}

func splitOnSeparator(s string, seps ...string) (string, string) {
	lower := strings.ToLower(s)
	for _, sep := range seps {
		if idx := strings.LastIndex(lower, sep); idx >= 0 {
			return s[:idx], s[idx+len(sep):]
		}
	}
	return s, ""
}

// cleanReference strips articles and the entity word from a task/programme
// reference.
func cleanReference(s, entity string) string {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	for _, prefix := range []string{"the ", "my ", "a ", "an "} {
		if strings.HasPrefix(lower, prefix) {
			s = s[len(prefix):]
			lower = strings.ToLower(s)
			break
		}
	}
	entityLower := strings.ToLower(entity)
	if strings.HasPrefix(lower, entityLower+" ") {
		s = s[len(entityLower)+1:]
	} else if lower == entityLower {
		s = ""
	}
	if q := firstQuoted(s); q != "" {
		return q
	}
	return strings.Trim(strings.TrimSpace(s), `"'.`)
}
