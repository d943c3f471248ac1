package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogCoversAllTypes(t *testing.T) {
	for _, typ := range Types() {
		spec, ok := Lookup(typ)
		require.True(t, ok, "type %s missing from catalog", typ)
		assert.Equal(t, typ, spec.Type)
		assert.NotEmpty(t, spec.Title)
	}
}

func TestRequiredFieldSpecsAreWellFormed(t *testing.T) {
	for _, typ := range Types() {
		spec, _ := Lookup(typ)
		seen := map[string]bool{}
		for _, fs := range spec.Required {
			assert.NotEmpty(t, fs.Name, "%s: field name", typ)
			assert.NotEmpty(t, fs.Label, "%s: field label", typ)
			assert.False(t, seen[fs.Label], "%s: duplicate label %s", typ, fs.Label)
			seen[fs.Label] = true
		}
	}
}

func TestNewCandidateUnknownType(t *testing.T) {
	_, err := NewCandidate(Type("drop_database"))
	require.Error(t, err)
}

func TestCandidateSlotFillOrder(t *testing.T) {
	c, err := NewCandidate(TypeUpdateTaskStatus)
	require.NoError(t, err)

	missing := c.MissingFields()
	require.Len(t, missing, 2)
	assert.Equal(t, "Task", missing[0].Label)
	assert.Equal(t, "New status", missing[1].Label)

	// Filling out of declared order still reports the lowest unfilled slot.
	c.SetField("New status", "done")
	missing = c.MissingFields()
	require.Len(t, missing, 1)
	assert.Equal(t, "Task", missing[0].Label)

	c.SetField("Task", "Fix login bug")
	assert.True(t, c.Complete())
	assert.Empty(t, c.MissingFields())
}

func TestCandidateSetFieldOverwrites(t *testing.T) {
	c, _ := NewCandidate(TypeCreateTask)
	c.SetField("Task title", "first")
	c.SetField("Task title", "second")

	v, ok := c.FieldValue("Task title")
	require.True(t, ok)
	assert.Equal(t, "second", v)
	assert.Len(t, c.Fields, 1)
}

func TestEmptyValueCountsAsMissing(t *testing.T) {
	c, _ := NewCandidate(TypeCreateTask)
	c.SetField("Task title", "")
	assert.False(t, c.Complete())
}

func TestOrderedFieldsRequiredFirst(t *testing.T) {
	c, _ := NewCandidate(TypeUpdateTaskStatus)
	c.SetField("Note", "from chat")
	c.SetField("New status", "done")
	c.SetField("Task", "Fix login bug")

	got := c.OrderedFields()
	require.Len(t, got, 3)
	assert.Equal(t, "Task", got[0].Label)
	assert.Equal(t, "New status", got[1].Label)
	assert.Equal(t, "Note", got[2].Label)
}

func TestPlaybookStepHasNoCatalogRequirements(t *testing.T) {
	c, err := NewCandidate(TypePlaybookStep)
	require.NoError(t, err)
	assert.True(t, c.Complete())
}
