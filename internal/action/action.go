// Package action defines the closed catalog of write operations the assistant
// can propose, and the candidate type that accumulates parameters for one of
// them before a preview is shown.
//
// The catalog is the single source of truth for which fields an action type
// requires and in which order they are asked for during clarify mode. Nothing
// outside this package hardcodes a required-field list.
package action

import (
	"fmt"
	"sort"
)

// Type tags one kind of proposable operation. The set is closed per
// deployment: the session controller and playbook runner switch over it
// exhaustively.
type Type string

const (
	TypeCreateTask            Type = "create_task"
	TypeUpdateTaskStatus      Type = "update_task_status"
	TypeCreateProgramme       Type = "create_programme"
	TypeUpdateProgrammeStatus Type = "update_programme_status"
	TypePlaybookStep          Type = "playbook_step"
)

// FieldSpec declares one required parameter of an action type.
type FieldSpec struct {
	Name    string // machine key, stable across renames ("title")
	Label   string // display label, also the clarify prompt subject ("Task title")
	Example string // hint shown alongside a clarify prompt
}

// Spec describes one catalog entry.
type Spec struct {
	Type     Type
	Title    string // one-line display verb ("Create task")
	Required []FieldSpec
}

// Field is a resolved parameter carried by a candidate or preview.
type Field struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// catalog maps every known action type to its spec. playbook_step has no
// catalog-level required fields: each playbook step definition declares its
// own preset fields and is validated at load time.
var catalog = map[Type]Spec{
	TypeCreateTask: {
		Type:  TypeCreateTask,
		Title: "Create task",
		Required: []FieldSpec{
			{Name: "title", Label: "Task title", Example: "Fix login bug"},
		},
	},
	TypeUpdateTaskStatus: {
		Type:  TypeUpdateTaskStatus,
		Title: "Update task status",
		Required: []FieldSpec{
			{Name: "task", Label: "Task", Example: "Fix login bug"},
			{Name: "status", Label: "New status", Example: "done"},
		},
	},
	TypeCreateProgramme: {
		Type:  TypeCreateProgramme,
		Title: "Create programme",
		Required: []FieldSpec{
			{Name: "name", Label: "Programme name", Example: "Q3 onboarding"},
		},
	},
	TypeUpdateProgrammeStatus: {
		Type:  TypeUpdateProgrammeStatus,
		Title: "Update programme status",
		Required: []FieldSpec{
			{Name: "programme", Label: "Programme", Example: "Q3 onboarding"},
			{Name: "status", Label: "New status", Example: "active"},
		},
	},
	TypePlaybookStep: {
		Type:     TypePlaybookStep,
		Title:    "Playbook step",
		Required: nil,
	},
}

// Lookup returns the spec for a type.
func Lookup(t Type) (Spec, bool) {
	s, ok := catalog[t]
	return s, ok
}

// Known reports whether t is in the catalog.
func Known(t Type) bool {
	_, ok := catalog[t]
	return ok
}

// Types returns all catalog types in stable order.
func Types() []Type {
	out := make([]Type, 0, len(catalog))
	for t := range catalog {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Candidate is a proposed operation that may still be missing required
// fields. The slot-filler merges clarify answers into it until MissingFields
// returns empty, at which point it is eligible to become a pending preview.
type Candidate struct {
	Type   Type
	Title  string
	Fields []Field
}

// NewCandidate builds a candidate for a known type, seeding the display title
// from the catalog.
func NewCandidate(t Type) (*Candidate, error) {
	spec, ok := catalog[t]
	if !ok {
		return nil, fmt.Errorf("action: unknown type %q", t)
	}
	return &Candidate{Type: t, Title: spec.Title}, nil
}

// FieldValue returns the value for a label, if present and non-empty.
func (c *Candidate) FieldValue(label string) (string, bool) {
	for _, f := range c.Fields {
		if f.Label == label && f.Value != "" {
			return f.Value, true
		}
	}
	return "", false
}

// SetField sets the value for a label, appending the field if it is new.
// Declared order is preserved for fields already present.
func (c *Candidate) SetField(label, value string) {
	for i := range c.Fields {
		if c.Fields[i].Label == label {
			c.Fields[i].Value = value
			return
		}
	}
	c.Fields = append(c.Fields, Field{Label: label, Value: value})
}

// MissingFields returns the required fields that are absent or empty, in the
// catalog's declared order. The first entry is the next clarify subject.
func (c *Candidate) MissingFields() []FieldSpec {
	spec, ok := catalog[c.Type]
	if !ok {
		return nil
	}
	var missing []FieldSpec
	for _, fs := range spec.Required {
		if _, ok := c.FieldValue(fs.Label); !ok {
			missing = append(missing, fs)
		}
	}
	return missing
}

// Complete reports whether every required field is present and non-empty.
func (c *Candidate) Complete() bool {
	return len(c.MissingFields()) == 0
}

// OrderedFields returns the candidate's fields with required fields first in
// catalog order, followed by any extras in insertion order. Previews render
// exactly this ordering.
func (c *Candidate) OrderedFields() []Field {
	spec, ok := catalog[c.Type]
	if !ok {
		return append([]Field(nil), c.Fields...)
	}
	seen := make(map[string]bool, len(spec.Required))
	out := make([]Field, 0, len(c.Fields))
	for _, fs := range spec.Required {
		if v, ok := c.FieldValue(fs.Label); ok {
			out = append(out, Field{Label: fs.Label, Value: v})
			seen[fs.Label] = true
		}
	}
	for _, f := range c.Fields {
		if !seen[f.Label] {
			out = append(out, f)
		}
	}
	return out
}
