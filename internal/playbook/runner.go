package playbook

import (
	"fmt"
	"sort"
)

// Runner drives one playbook instance. Step states progress
// not-yet-reached -> current -> completed|skipped; the runner finishes when
// every index is resolved, or aborts when the user cancels the whole
// playbook. Confirmed steps are never undone by an abort.
type Runner struct {
	def       Definition
	current   int
	completed map[int]struct{}
	skipped   map[int]struct{}
	aborted   bool
}

// Snapshot is an immutable view of runner progress for display and for
// attaching to messages.
type Snapshot struct {
	Playbook  string
	StepTitle string
	Current   int
	Total     int
	Completed []int
	Skipped   []int
	Finished  bool
	Aborted   bool
}

// NewRunner validates the definition and positions the runner at step 0.
func NewRunner(def Definition) (*Runner, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &Runner{
		def:       def,
		completed: make(map[int]struct{}),
		skipped:   make(map[int]struct{}),
	}, nil
}

// Definition returns the definition being run.
func (r *Runner) Definition() Definition { return r.def }

// Current returns the current step and its index. ok is false once the
// runner has finished or aborted.
func (r *Runner) Current() (Step, int, bool) {
	if r.Done() {
		return Step{}, -1, false
	}
	return r.def.Steps[r.current], r.current, true
}

// Done reports whether no step remains current.
func (r *Runner) Done() bool {
	return r.aborted || r.current >= len(r.def.Steps)
}

// Finished reports whether every step was resolved (completed or skipped).
func (r *Runner) Finished() bool {
	return !r.aborted && len(r.completed)+len(r.skipped) == len(r.def.Steps)
}

// Aborted reports whether the whole playbook was cancelled.
func (r *Runner) Aborted() bool { return r.aborted }

// Complete marks step i completed and advances. i must be the current step.
func (r *Runner) Complete(i int) error {
	return r.resolve(i, r.completed)
}

// Skip marks step i skipped and advances. Skipping is a valid way to leave a
// step; it is not an abort.
func (r *Runner) Skip(i int) error {
	return r.resolve(i, r.skipped)
}

func (r *Runner) resolve(i int, into map[int]struct{}) error {
	if r.Done() {
		return fmt.Errorf("playbook %q: already finished", r.def.Name)
	}
	if i != r.current {
		return fmt.Errorf("playbook %q: step %d is not current (current=%d)", r.def.Name, i, r.current)
	}
	into[i] = struct{}{}
	r.advance()
	return nil
}

// advance moves current to the lowest index not yet resolved.
func (r *Runner) advance() {
	for r.current < len(r.def.Steps) {
		if _, done := r.completed[r.current]; done {
			r.current++
			continue
		}
		if _, done := r.skipped[r.current]; done {
			r.current++
			continue
		}
		return
	}
}

// Abort cancels the remainder of the playbook. Completed and skipped sets are
// kept as a partial audit trail.
func (r *Runner) Abort() { r.aborted = true }

// Snapshot captures current progress.
func (r *Runner) Snapshot() Snapshot {
	s := Snapshot{
		Playbook:  r.def.Name,
		Current:   r.current,
		Total:     len(r.def.Steps),
		Completed: sortedKeys(r.completed),
		Skipped:   sortedKeys(r.skipped),
		Finished:  r.Finished(),
		Aborted:   r.aborted,
	}
	if step, _, ok := r.Current(); ok {
		s.StepTitle = step.Title
	}
	return s
}

func sortedKeys(m map[int]struct{}) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
