package quickactions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForRoleFiltersByRank(t *testing.T) {
	member := ForRole(RoleMember)
	manager := ForRole(RoleManager)
	admin := ForRole(RoleAdmin)

	require.NotEmpty(t, member)
	assert.Greater(t, len(manager), len(member))
	assert.Equal(t, len(manager), len(admin))

	for _, qa := range member {
		assert.Equal(t, RoleMember, qa.MinRole)
	}
	// The member set is a prefix-preserving subset of the manager set.
	seen := make(map[string]bool)
	for _, qa := range manager {
		seen[qa.Label] = true
	}
	for _, qa := range member {
		assert.True(t, seen[qa.Label])
	}
}

func TestUnknownRoleDegradesToMemberSet(t *testing.T) {
	got := ForRole(Role("intern"))
	assert.Equal(t, ForRole(RoleMember), got)
}

func TestEveryQuickActionHasLabelAndPrompt(t *testing.T) {
	for _, qa := range Defaults() {
		assert.NotEmpty(t, qa.Label)
		assert.NotEmpty(t, qa.Prompt)
		assert.NotEmpty(t, qa.MinRole)
	}
}
