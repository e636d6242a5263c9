package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is a single shared validator instance; grounded on
// go-playground/validator's documented usage (a package-level Validate is
// safe for concurrent use once struct tags are registered, and there are
// none to register here beyond the built-ins).
var validate = validator.New(validator.WithRequiredStructEnabled())

// decode re-marshals raw into a typed struct and runs its validator tags.
// Every request struct's tags are expressed in terms of the wire field
// names (not Go field names), so this is the single place input validation
// happens for every tool (spec.md §4.2: "self-validating ... rejects
// malformed input without network I/O").
func decode[T any](raw map[string]any) (any, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encoding input: %w", err)
	}
	var v T
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if err := validate.Struct(v); err != nil {
		return nil, err
	}
	return v, nil
}

// ListProjectsInput backs list_projects.
type ListProjectsInput struct {
	Status string `json:"status,omitempty"`
	Limit  int    `json:"limit,omitempty" validate:"omitempty,min=1,max=100"`
}

// GetProjectInput backs get_project.
type GetProjectInput struct {
	ProjectID string `json:"project_id" validate:"required"`
}

// GetProjectIssuesInput backs get_project_issues.
type GetProjectIssuesInput struct {
	ProjectID string `json:"project_id" validate:"required"`
	Status    string `json:"status,omitempty"`
}

// ListIssuesInput backs list_issues.
type ListIssuesInput struct {
	Status    string `json:"status,omitempty"`
	Priority  string `json:"priority,omitempty" validate:"omitempty,oneof=critical high medium low"`
	ProjectID string `json:"project_id,omitempty"`
	Limit     int    `json:"limit,omitempty" validate:"omitempty,min=1,max=100"`
}

// GetIssueInput backs get_issue, and the issue-scoped input shape shared by
// update_issue/start_issue_work/log_work's issue_id field.
type GetIssueInput struct {
	IssueID string `json:"issue_id" validate:"required"`
}

// CreateIssueInput backs create_issue.
type CreateIssueInput struct {
	ProjectID   string `json:"project_id" validate:"required"`
	Title       string `json:"title" validate:"required,min=1,max=500"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty" validate:"omitempty,oneof=task bug feature improvement"`
	Priority    string `json:"priority,omitempty" validate:"omitempty,oneof=critical high medium low"`
}

// UpdateIssueInput backs update_issue. All mutable fields are optional;
// spec.md §4.2 allows "any of" status/priority/title/description.
type UpdateIssueInput struct {
	IssueID     string  `json:"issue_id" validate:"required"`
	Status      *string `json:"status,omitempty"`
	Priority    *string `json:"priority,omitempty" validate:"omitempty,oneof=critical high medium low"`
	Title       *string `json:"title,omitempty" validate:"omitempty,max=500"`
	Description *string `json:"description,omitempty"`
}

// PatchBody renders only the mutable fields set on req, keeping issue_id out
// of the request body — the original's
// `validated.model_dump(exclude_none=True, exclude={"issue_id"})`.
func (req UpdateIssueInput) PatchBody() map[string]any {
	body := map[string]any{}
	if req.Status != nil {
		body["status"] = *req.Status
	}
	if req.Priority != nil {
		body["priority"] = *req.Priority
	}
	if req.Title != nil {
		body["title"] = *req.Title
	}
	if req.Description != nil {
		body["description"] = *req.Description
	}
	return body
}

// StartIssueWorkInput backs start_issue_work.
type StartIssueWorkInput struct {
	IssueID string `json:"issue_id" validate:"required"`
}

// GetWorkQueueInput backs get_work_queue.
type GetWorkQueueInput struct {
	ProjectID string `json:"project_id,omitempty"`
}

// GetNextIssueInput backs get_next_issue.
type GetNextIssueInput struct {
	ProjectID string `json:"project_id,omitempty"`
}

// LogWorkInput backs log_work.
type LogWorkInput struct {
	IssueID string   `json:"issue_id" validate:"required"`
	Summary string   `json:"summary" validate:"required"`
	Hours   *float64 `json:"hours,omitempty" validate:"omitempty,min=0"`
}

// ListInitiativesInput backs list_initiatives.
type ListInitiativesInput struct {
	Status string `json:"status,omitempty"`
}

// ListDecisionsInput backs list_decisions.
type ListDecisionsInput struct {
	Status string `json:"status,omitempty"`
}

// CreateDecisionInput backs create_decision.
type CreateDecisionInput struct {
	Title       string `json:"title" validate:"required,min=1,max=500"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty" validate:"omitempty,oneof=strategic tactical"`
	Rationale   string `json:"rationale,omitempty"`
}

// AddCommentInput backs add_comment.
type AddCommentInput struct {
	EntityType string `json:"entity_type" validate:"required,oneof=issue project initiative decision"`
	EntityID   string `json:"entity_id" validate:"required"`
	Content    string `json:"content" validate:"required"`
}

// ProjectStatusSummaryInput backs project_status_summary.
type ProjectStatusSummaryInput struct {
	ProjectID string `json:"project_id" validate:"required"`
}
