package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"luna/internal/action"
	"luna/internal/logging"
)

// GenAI resolves intents with Google's Gemini API. The model is instructed
// to emit a strict JSON verdict which is decoded into the same Outcome type
// the keyword resolver produces, so the session controller cannot tell the
// two apart.
type GenAI struct {
	client        *genai.Client
	model         string
	playbookNames func() []string
}

// NewGenAI creates a Gemini-backed resolver. playbookNames supplies the
// currently loadable playbooks for the prompt; nil disables playbook
// launches.
func NewGenAI(ctx context.Context, apiKey, model string, playbookNames func() []string) (*GenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resolver: GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("resolver: create GenAI client: %w", err)
	}
	return &GenAI{client: client, model: model, playbookNames: playbookNames}, nil
}

// verdict is the JSON schema the model is asked to fill.
type verdict struct {
	Kind   string `json:"kind"` // "informational" | "action" | "playbook"
	Answer string `json:"answer,omitempty"`
	Items  []Item `json:"items,omitempty"`
	Action *struct {
		Type   string         `json:"type"`
		Fields []action.Field `json:"fields"`
	} `json:"action,omitempty"`
	Playbook string `json:"playbook,omitempty"`
}

// Resolve implements Resolver.
func (g *GenAI) Resolve(ctx context.Context, text string, rctx Context) (Outcome, error) {
	log := logging.Get(logging.CategoryResolver)

	prompt := g.buildPrompt(text, rctx)
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return Outcome{}, fmt.Errorf("resolver: GenAI request failed: %w", err)
	}

	raw := strings.TrimSpace(resp.Text())
	var v verdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		log.Warnw("GenAI returned unparsable verdict", "raw", raw, "error", err)
		return Outcome{}, fmt.Errorf("resolver: decode GenAI verdict: %w", err)
	}
	return g.outcomeFromVerdict(v)
}

func (g *GenAI) outcomeFromVerdict(v verdict) (Outcome, error) {
	switch v.Kind {
	case "informational":
		answer := v.Answer
		if answer == "" {
			answer = "Here's what I found."
		}
		return Outcome{Kind: KindInformational, Answer: answer, Items: v.Items}, nil

	case "action":
		if v.Action == nil {
			return Outcome{}, fmt.Errorf("resolver: action verdict without action body")
		}
		c, err := action.NewCandidate(action.Type(v.Action.Type))
		if err != nil {
			return Outcome{}, err
		}
		for _, f := range v.Action.Fields {
			if strings.TrimSpace(f.Value) != "" {
				c.SetField(f.Label, f.Value)
			}
		}
		return Outcome{Kind: KindAction, Candidate: c}, nil

	case "playbook":
		if v.Playbook == "" {
			return Outcome{}, fmt.Errorf("resolver: playbook verdict without a name")
		}
		return Outcome{Kind: KindPlaybook, Playbook: v.Playbook}, nil
	}
	return Outcome{}, fmt.Errorf("resolver: unknown verdict kind %q", v.Kind)
}

func (g *GenAI) buildPrompt(text string, rctx Context) string {
	var b strings.Builder
	b.WriteString("You classify requests for an organisational dashboard assistant.\n")
	b.WriteString("Reply with a single JSON object:\n")
	b.WriteString(`{"kind":"informational"|"action"|"playbook","answer":string,` +
		`"items":[{"label","detail","href"}],` +
		`"action":{"type":string,"fields":[{"label","value"}]},"playbook":string}` + "\n\n")

	b.WriteString("Known action types and their required field labels:\n")
	for _, t := range action.Types() {
		if t == action.TypePlaybookStep {
			continue
		}
		spec, _ := action.Lookup(t)
		labels := make([]string, 0, len(spec.Required))
		for _, fs := range spec.Required {
			labels = append(labels, fs.Label)
		}
		fmt.Fprintf(&b, "- %s: %s\n", t, strings.Join(labels, ", "))
	}

	if g.playbookNames != nil {
		if names := g.playbookNames(); len(names) > 0 {
			fmt.Fprintf(&b, "\nAvailable playbooks: %s\n", strings.Join(names, ", "))
		}
	}

	fmt.Fprintf(&b, "\nUser role: %s\n", rctx.Role)
	if rctx.Pending != nil {
		data, _ := json.Marshal(rctx.Pending.Fields)
		fmt.Fprintf(&b, "Partially filled %s: %s\n", rctx.Pending.Type, data)
	}
	b.WriteString("Omit fields you cannot extract from the request; never invent values.\n")
	fmt.Fprintf(&b, "\nRequest: %s\n", text)
	return b.String()
}
