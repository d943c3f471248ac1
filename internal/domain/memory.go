package domain

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"luna/internal/action"
)

// Memory is an in-memory domain API for the offline demo and for tests. It
// assigns sequential ids per entity and can be told to fail on demand.
type Memory struct {
	mu       sync.Mutex
	nextID   map[string]int
	failNext error
}

// NewMemory returns an empty in-memory domain.
func NewMemory() *Memory {
	return &Memory{nextID: make(map[string]int)}
}

// FailNext makes the next Execute call return err.
func (m *Memory) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

// Execute implements API.
func (m *Memory) Execute(_ context.Context, t action.Type, fields []action.Field) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return Result{}, err
	}

	entity := "tasks"
	noun := "Task"
	switch t {
	case action.TypeCreateProgramme, action.TypeUpdateProgrammeStatus:
		entity = "programmes"
		noun = "Programme"
	}

	m.nextID[entity]++
	id := m.nextID[entity]

	subject := firstValue(fields)
	switch t {
	case action.TypeCreateTask, action.TypeCreateProgramme:
		return Result{
			Href:    fmt.Sprintf("/%s/%d", entity, id),
			Message: fmt.Sprintf("%s %q created.", noun, subject),
		}, nil
	case action.TypeUpdateTaskStatus, action.TypeUpdateProgrammeStatus:
		return Result{
			Href:    fmt.Sprintf("/%s/%d", entity, id),
			Message: fmt.Sprintf("%s %q updated.", noun, subject),
		}, nil
	case action.TypePlaybookStep:
		return Result{Message: "Step completed."}, nil
	}
	return Result{}, fmt.Errorf("domain: unsupported action type %q", t)
}

func firstValue(fields []action.Field) string {
	for _, f := range fields {
		if strings.TrimSpace(f.Value) != "" {
			return f.Value
		}
	}
	return ""
}
