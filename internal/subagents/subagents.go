// Package subagents is the Subagent Catalog (spec.md §4.4): named roles
// whose tool access is strictly narrower than the full catalog, enforced by
// the LLM runtime's allowed-tool mechanism ahead of the hook pipeline.
//
// Shape grounded on batalabs-muxd/internal/tools/task.go's
// AllToolsForSubAgent/IsSubAgentTool role-scoping, generalized from a single
// generic "task" sub-agent to spec.md's four named roles with fixed tool
// lists and model tiers.
package subagents

import "github.com/turboagent/turbo-agent/internal/catalog"

// ModelTier is an opaque label forwarded to the LLM runtime (spec.md §4.4:
// "Tier names are opaque labels").
type ModelTier string

const (
	TierSonnet ModelTier = "sonnet"
	TierHaiku  ModelTier = "haiku"
)

// Role is one named subagent: its tool allow-list, role prompt, and model
// tier.
type Role struct {
	Name        string
	Tools       []string
	RolePrompt  string
	ModelTier   ModelTier
}

const (
	RoleTriager  = "triager"
	RolePlanner  = "planner"
	RoleReporter = "reporter"
	RoleWorker   = "worker"
)

func namespaced(names ...string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = catalog.Namespace + n
	}
	return out
}

// Catalog is the fixed set of four canonical roles (spec.md §4.4's table).
var Catalog = map[string]Role{
	RoleTriager: {
		Name: RoleTriager,
		Tools: namespaced(
			"list_projects", "get_project", "get_project_issues",
			"list_issues", "get_issue", "project_status_summary",
		),
		RolePrompt: "You triage incoming issues. You only read state and summarize it; " +
			"you never create, modify, or close anything. Flag anything that needs a human decision.",
		// Triage weighs priority, impact, urgency, and dependencies against
		// each other — reasoning-heavy despite being read-only.
		ModelTier: TierSonnet,
	},
	RolePlanner: {
		Name: RolePlanner,
		Tools: namespaced(
			"list_projects", "get_project", "list_issues", "get_issue",
			"list_initiatives", "create_issue", "create_decision",
		),
		RolePrompt: "You plan work. You may seed new issues and record decisions, but you never " +
			"modify an issue that already exists. Write acceptance criteria into every issue you create.",
		ModelTier: TierSonnet,
	},
	RoleReporter: {
		Name: RoleReporter,
		Tools: namespaced(
			"list_projects", "get_project", "get_issue", "project_status_summary", "add_comment",
		),
		RolePrompt: "You produce status reports. You only read state and post your findings as " +
			"comments; you never create issues, decisions, or modify anything directly.",
		ModelTier: TierHaiku,
	},
	RoleWorker: {
		Name: RoleWorker,
		Tools: namespaced(
			"get_work_queue", "get_next_issue", "get_issue",
			"start_issue_work", "update_issue", "log_work",
		),
		RolePrompt: "You execute queued work. Claim the next ready issue, advance its status as you " +
			"make progress, and log the time you spend. You never create new issues or decisions.",
		ModelTier: TierSonnet,
	},
}

// Get looks up a role by name.
func Get(name string) (Role, bool) {
	r, ok := Catalog[name]
	return r, ok
}

// All returns every role, in a stable, deterministic order matching
// spec.md §4.4's table.
func All() []Role {
	order := []string{RoleTriager, RolePlanner, RoleReporter, RoleWorker}
	roles := make([]Role, len(order))
	for i, name := range order {
		roles[i] = Catalog[name]
	}
	return roles
}
