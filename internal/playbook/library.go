package playbook

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"luna/internal/action"
	"luna/internal/logging"
)

// Library holds the loadable playbook definitions. It is safe for concurrent
// use; the watcher reloads it in place when definition files change.
type Library struct {
	mu   sync.RWMutex
	defs map[string]Definition // keyed by lowercased name
}

// NewLibrary returns a library seeded with the built-in definitions.
func NewLibrary() *Library {
	lib := &Library{defs: make(map[string]Definition)}
	for _, d := range Builtins() {
		lib.defs[strings.ToLower(d.Name)] = d
	}
	return lib
}

// Builtins are the definitions that ship in code so a fresh workspace can run
// playbooks with zero configuration.
func Builtins() []Definition {
	return []Definition{
		{
			Name: "Weekly review",
			Steps: []Step{
				{
					Title:  "Create review task",
					Action: action.TypeCreateTask,
					Fields: []action.Field{{Label: "Task title", Value: "Weekly review: collect updates"}},
				},
				{
					Title:  "Create follow-up task",
					Action: action.TypeCreateTask,
					Fields: []action.Field{{Label: "Task title", Value: "Weekly review: send summary"}},
				},
				{
					Title:  "Close out last week's review",
					Action: action.TypeUpdateTaskStatus,
					Fields: []action.Field{
						{Label: "Task", Value: "Weekly review: send summary (previous)"},
						{Label: "New status", Value: "done"},
					},
				},
			},
		},
		{
			Name: "Project kickoff",
			Steps: []Step{
				{
					Title:  "Create the programme",
					Action: action.TypeCreateProgramme,
					Fields: []action.Field{{Label: "Programme name", Value: "New project"}},
				},
				{
					Title:  "Create kickoff task",
					Action: action.TypeCreateTask,
					Fields: []action.Field{{Label: "Task title", Value: "Schedule kickoff meeting"}},
				},
			},
		},
	}
}

// LoadDir loads every *.yaml / *.yml definition in dir on top of the current
// contents, replacing same-named entries. Invalid files are skipped with a
// log line rather than failing the whole load, so one bad edit does not take
// the library down.
func (l *Library) LoadDir(dir string) error {
	log := logging.Get(logging.CategoryPlaybook)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("playbook: read dir %s: %w", dir, err)
	}

	loaded := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		def, err := loadFile(path)
		if err != nil {
			log.Warnw("skipping playbook file", "path", path, "error", err)
			continue
		}
		l.mu.Lock()
		l.defs[strings.ToLower(def.Name)] = def
		l.mu.Unlock()
		loaded++
	}

	log.Debugw("playbook library loaded", "dir", dir, "loaded", loaded)
	return nil
}

func loadFile(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, err
	}
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, fmt.Errorf("parse: %w", err)
	}
	if err := def.Validate(); err != nil {
		return Definition{}, err
	}
	return def, nil
}

// Get looks up a definition by name, case-insensitively.
func (l *Library) Get(name string) (Definition, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.defs[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}

// Match finds the definition whose name appears in the given text, if any.
// Longest name wins so "weekly review extended" prefers the more specific
// definition.
func (l *Library) Match(text string) (Definition, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	lower := strings.ToLower(text)
	var best Definition
	found := false
	for key, d := range l.defs {
		if strings.Contains(lower, key) {
			if !found || len(d.Name) > len(best.Name) {
				best = d
				found = true
			}
		}
	}
	return best, found
}

// Names returns all definition names, sorted.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.defs))
	for _, d := range l.defs {
		out = append(out, d.Name)
	}
	sort.Strings(out)
	return out
}
