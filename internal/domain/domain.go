// Package domain holds the entity shapes the core control plane reasons
// about. The core owns none of this data durably — every value here is
// decoded from, or about to be sent to, the backing project-management
// service (spec.md §3). Types are intentionally thin: just enough structure
// for the scope enforcer, the tool catalog, and the audit log to agree on
// field names.
package domain

import "time"

// Project is the backing service's project entity, as seen at the tool
// boundary. The scope enforcer only ever inspects ID.
type Project struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Status   string `json:"status,omitempty"`
	Priority string `json:"priority,omitempty"`
}

// Issue is the backing service's issue entity, identified by either an
// opaque ID or a human key such as "TURBO-42".
type Issue struct {
	ID          string `json:"id"`
	Key         string `json:"key,omitempty"`
	ProjectID   string `json:"project_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	Type        string `json:"type,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
}

// Decision is a recorded project decision. It has no direct project
// reference in the backing service (spec.md §9 open question), so the scope
// enforcer cannot gate create_decision.
type Decision struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
	Rationale   string `json:"rationale,omitempty"`
	Status      string `json:"status,omitempty"`
}

// Initiative groups related issues under a larger goal.
type Initiative struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}

// Comment attaches free text to an issue, project, initiative, or decision.
type Comment struct {
	ID         string `json:"id"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Content    string `json:"content"`
}

// WorkLogEntry records time spent on an issue.
type WorkLogEntry struct {
	ID      string  `json:"id"`
	IssueID string  `json:"issue_id"`
	Summary string  `json:"summary"`
	Hours   float64 `json:"hours,omitempty"`
}

// ToolPriority enumerates the issue/create_issue priority values (spec.md
// §4.2 create_issue/update_issue/list_issues).
const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
	PriorityLow      = "low"
)

// ToolIssueType enumerates the create_issue type values.
const (
	IssueTypeTask        = "task"
	IssueTypeBug         = "bug"
	IssueTypeFeature     = "feature"
	IssueTypeImprovement = "improvement"
)

// ClosedStatuses lists the statuses that exclude an issue from
// project_status_summary's high_priority_open bucket (spec.md §4.2).
var ClosedStatuses = map[string]bool{
	"closed": true,
	"done":   true,
}

// IsHighPriorityOpen reports whether an issue counts toward
// project_status_summary's high_priority_open list.
func (i Issue) IsHighPriorityOpen() bool {
	switch i.Priority {
	case PriorityCritical, PriorityHigh:
	default:
		return false
	}
	return !ClosedStatuses[i.Status]
}
