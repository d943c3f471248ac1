// Package playbook implements named, ordered guided flows. A playbook is a
// fixed sequence of step definitions; each step proposes one fully-specified
// action that the user confirms or skips. The runner tracks per-step progress
// independently of the linear message log.
package playbook

import (
	"fmt"
	"strings"

	"luna/internal/action"
)

// Step is one entry in a playbook definition. Fields are preset so the
// emitted preview never needs clarification.
type Step struct {
	Title  string         `yaml:"title"`
	Action action.Type    `yaml:"action"`
	Fields []action.Field `yaml:"fields"`
}

// Definition is a named, ordered guided flow.
type Definition struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Validate checks a definition is runnable: non-empty name, at least one
// step, only known action types, and every step's preset fields covering the
// action's required fields. The pending-preview invariant (no empty required
// field) is enforced here, at load time, not at emit time.
func (d Definition) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("playbook: definition has no name")
	}
	if len(d.Steps) == 0 {
		return fmt.Errorf("playbook %q: no steps", d.Name)
	}
	for i, s := range d.Steps {
		if strings.TrimSpace(s.Title) == "" {
			return fmt.Errorf("playbook %q: step %d has no title", d.Name, i)
		}
		spec, ok := action.Lookup(s.Action)
		if !ok {
			return fmt.Errorf("playbook %q: step %d uses unknown action %q", d.Name, i, s.Action)
		}
		for _, fs := range spec.Required {
			if !stepHasField(s, fs.Label) {
				return fmt.Errorf("playbook %q: step %d (%s) is missing required field %q",
					d.Name, i, s.Title, fs.Label)
			}
		}
	}
	return nil
}

func stepHasField(s Step, label string) bool {
	for _, f := range s.Fields {
		if f.Label == label && strings.TrimSpace(f.Value) != "" {
			return true
		}
	}
	return false
}

// Candidate builds the action candidate for step i, ready to be previewed.
func (d Definition) Candidate(i int) (*action.Candidate, error) {
	if i < 0 || i >= len(d.Steps) {
		return nil, fmt.Errorf("playbook %q: step %d out of range", d.Name, i)
	}
	s := d.Steps[i]
	c, err := action.NewCandidate(s.Action)
	if err != nil {
		return nil, err
	}
	c.Title = s.Title
	for _, f := range s.Fields {
		c.SetField(f.Label, f.Value)
	}
	return c, nil
}
