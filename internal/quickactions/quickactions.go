// Package quickactions defines the role-filtered shortcut chips shown
// alongside the conversation. A quick action is nothing but a canned prompt:
// tapping one goes through SendMessage like typed input, so previews and
// confirmation behave identically either way.
package quickactions

// Role orders the dashboard roles by capability. Comparison is by rank, so a
// manager sees everything a member sees plus the manager set.
type Role string

const (
	RoleMember  Role = "member"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

var roleRank = map[Role]int{
	RoleMember:  0,
	RoleManager: 1,
	RoleAdmin:   2,
}

// Allows reports whether r covers the minimum role min. Unknown roles rank
// lowest, so a bad config degrades to the member set instead of leaking
// manager shortcuts.
func (r Role) Allows(min Role) bool {
	return roleRank[r] >= roleRank[min]
}

// QuickAction is one shortcut chip.
type QuickAction struct {
	Label   string `json:"label"`
	Prompt  string `json:"prompt"`
	MinRole Role   `json:"min_role"`
}

// Defaults is the built-in chip set, in display order.
func Defaults() []QuickAction {
	return []QuickAction{
		{Label: "My overdue tasks", Prompt: "show my overdue tasks", MinRole: RoleMember},
		{Label: "Create a task", Prompt: "create a task", MinRole: RoleMember},
		{Label: "Start weekly review", Prompt: "start the weekly review", MinRole: RoleMember},
		{Label: "Team workload", Prompt: "show the team workload", MinRole: RoleManager},
		{Label: "Programme status", Prompt: "show programme status", MinRole: RoleManager},
		{Label: "Project kickoff", Prompt: "start the project kickoff", MinRole: RoleManager},
	}
}

// ForRole filters the default set down to what the given role may see,
// preserving display order.
func ForRole(r Role) []QuickAction {
	var out []QuickAction
	for _, qa := range Defaults() {
		if r.Allows(qa.MinRole) {
			out = append(out, qa)
		}
	}
	return out
}
