package catalog

import (
	"context"
	"fmt"

	"github.com/turboagent/turbo-agent/internal/domain"
	"github.com/turboagent/turbo-agent/internal/toolerrors"
)

// Backend is the subset of turboclient.Client every tool handler needs.
// Declaring it here (rather than importing turboclient directly) keeps the
// catalog testable with a fake and avoids a dependency cycle, the way
// batalabs-muxd/internal/tools/tools.go's ToolContext abstracts the agent
// runtime behind a narrow interface.
type Backend interface {
	Get(ctx context.Context, path string, query map[string]string, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Patch(ctx context.Context, path string, body, out any) error
}

// toolErr renders any error returned by a Backend call as an error-flagged
// Result. Per spec.md §7, a *toolerrors.Error's Message is already the
// agent-facing repair text; any other error (should not occur in practice,
// since Backend implementations only ever return *toolerrors.Error) is
// wrapped as unexpected.
func toolErr(err error) Result {
	if te, ok := err.(*toolerrors.Error); ok {
		return ErrorResult(te.Message)
	}
	return ErrorResult(toolerrors.Unexpected("", err).Message)
}

// Default builds the fixed tool catalog of spec.md §4.2 against backend.
func Default(backend Backend) *Catalog {
	return New([]Tool{
		listProjectsTool(backend),
		getProjectTool(backend),
		getProjectIssuesTool(backend),
		listIssuesTool(backend),
		getIssueTool(backend),
		createIssueTool(backend),
		updateIssueTool(backend),
		startIssueWorkTool(backend),
		getWorkQueueTool(backend),
		getNextIssueTool(backend),
		logWorkTool(backend),
		listInitiativesTool(backend),
		listDecisionsTool(backend),
		createDecisionTool(backend),
		addCommentTool(backend),
		projectStatusSummaryTool(backend),
	})
}

func listProjectsTool(b Backend) Tool {
	return Tool{
		Name:        "list_projects",
		Description: "List projects, optionally filtered by status and capped to a limit.",
		Kind:        KindRead,
		Validate:    decode[ListProjectsInput],
		Handler: func(ctx context.Context, input map[string]any) (Result, error) {
			v, err := decode[ListProjectsInput](input)
			if err != nil {
				return ErrorResult(toolerrors.Validation(err.Error()).Message), nil
			}
			req := v.(ListProjectsInput)
			query := map[string]string{}
			if req.Status != "" {
				query["status"] = req.Status
			}
			if req.Limit > 0 {
				query["limit"] = fmt.Sprintf("%d", req.Limit)
			}
			var projects []domain.Project
			if err := b.Get(ctx, "/projects", query, &projects); err != nil {
				return toolErr(err), nil
			}
			return mustJSON(projects)
		},
	}
}

func getProjectTool(b Backend) Tool {
	return Tool{
		Name:        "get_project",
		Description: "Fetch one project by id.",
		Kind:        KindRead,
		Validate:    decode[GetProjectInput],
		Handler: func(ctx context.Context, input map[string]any) (Result, error) {
			v, err := decode[GetProjectInput](input)
			if err != nil {
				return ErrorResult(toolerrors.Validation(err.Error()).Message), nil
			}
			req := v.(GetProjectInput)
			var project domain.Project
			if err := b.Get(ctx, "/projects/"+req.ProjectID, nil, &project); err != nil {
				return toolErr(err), nil
			}
			return mustJSON(project)
		},
	}
}

func getProjectIssuesTool(b Backend) Tool {
	return Tool{
		Name:        "get_project_issues",
		Description: "List a project's issues, optionally filtered by status.",
		Kind:        KindRead,
		Validate:    decode[GetProjectIssuesInput],
		Handler: func(ctx context.Context, input map[string]any) (Result, error) {
			v, err := decode[GetProjectIssuesInput](input)
			if err != nil {
				return ErrorResult(toolerrors.Validation(err.Error()).Message), nil
			}
			req := v.(GetProjectIssuesInput)
			query := map[string]string{}
			if req.Status != "" {
				query["status"] = req.Status
			}
			var issues []domain.Issue
			if err := b.Get(ctx, "/projects/"+req.ProjectID+"/issues", query, &issues); err != nil {
				return toolErr(err), nil
			}
			return mustJSON(issues)
		},
	}
}

func listIssuesTool(b Backend) Tool {
	return Tool{
		Name:        "list_issues",
		Description: "List issues across projects, optionally filtered by status, priority, and project.",
		Kind:        KindRead,
		Validate:    decode[ListIssuesInput],
		Handler: func(ctx context.Context, input map[string]any) (Result, error) {
			v, err := decode[ListIssuesInput](input)
			if err != nil {
				return ErrorResult(toolerrors.Validation(err.Error()).Message), nil
			}
			req := v.(ListIssuesInput)
			query := listIssuesQuery(req)
			var issues []domain.Issue
			if err := b.Get(ctx, "/issues", query, &issues); err != nil {
				return toolErr(err), nil
			}
			return mustJSON(issues)
		},
	}
}

func listIssuesQuery(req ListIssuesInput) map[string]string {
	query := map[string]string{}
	if req.Status != "" {
		query["status"] = req.Status
	}
	if req.Priority != "" {
		query["priority"] = req.Priority
	}
	if req.ProjectID != "" {
		query["project_id"] = req.ProjectID
	}
	if req.Limit > 0 {
		query["limit"] = fmt.Sprintf("%d", req.Limit)
	}
	return query
}

func getIssueTool(b Backend) Tool {
	return Tool{
		Name:        "get_issue",
		Description: "Fetch one issue by id or key.",
		Kind:        KindRead,
		Validate:    decode[GetIssueInput],
		Handler: func(ctx context.Context, input map[string]any) (Result, error) {
			v, err := decode[GetIssueInput](input)
			if err != nil {
				return ErrorResult(toolerrors.Validation(err.Error()).Message), nil
			}
			req := v.(GetIssueInput)
			var issue domain.Issue
			if err := b.Get(ctx, "/issues/"+req.IssueID, nil, &issue); err != nil {
				return toolErr(err), nil
			}
			return mustJSON(issue)
		},
	}
}

func createIssueTool(b Backend) Tool {
	return Tool{
		Name:        "create_issue",
		Description: "Create a new issue in a project.",
		Kind:        KindWrite,
		Validate:    decode[CreateIssueInput],
		Handler: func(ctx context.Context, input map[string]any) (Result, error) {
			v, err := decode[CreateIssueInput](input)
			if err != nil {
				return ErrorResult(toolerrors.Validation(err.Error()).Message), nil
			}
			req := v.(CreateIssueInput)
			var issue domain.Issue
			if err := b.Post(ctx, "/issues", req, &issue); err != nil {
				return toolErr(err), nil
			}
			return mustJSON(issue)
		},
	}
}

func updateIssueTool(b Backend) Tool {
	return Tool{
		Name:        "update_issue",
		Description: "Update an issue's status, priority, title, or description.",
		Kind:        KindWrite,
		Validate:    decode[UpdateIssueInput],
		Handler: func(ctx context.Context, input map[string]any) (Result, error) {
			v, err := decode[UpdateIssueInput](input)
			if err != nil {
				return ErrorResult(toolerrors.Validation(err.Error()).Message), nil
			}
			req := v.(UpdateIssueInput)
			var issue domain.Issue
			if err := b.Patch(ctx, "/issues/"+req.IssueID, req.PatchBody(), &issue); err != nil {
				return toolErr(err), nil
			}
			return mustJSON(issue)
		},
	}
}

func startIssueWorkTool(b Backend) Tool {
	return Tool{
		Name:        "start_issue_work",
		Description: "Claim an issue and mark it in progress.",
		Kind:        KindWrite,
		Validate:    decode[StartIssueWorkInput],
		Handler: func(ctx context.Context, input map[string]any) (Result, error) {
			v, err := decode[StartIssueWorkInput](input)
			if err != nil {
				return ErrorResult(toolerrors.Validation(err.Error()).Message), nil
			}
			req := v.(StartIssueWorkInput)
			var issue domain.Issue
			if err := b.Post(ctx, "/issues/"+req.IssueID+"/work", nil, &issue); err != nil {
				return toolErr(err), nil
			}
			return mustJSON(issue)
		},
	}
}

func getWorkQueueTool(b Backend) Tool {
	return Tool{
		Name:        "get_work_queue",
		Description: "List issues currently queued for work, optionally scoped to a project.",
		Kind:        KindRead,
		Validate:    decode[GetWorkQueueInput],
		Handler: func(ctx context.Context, input map[string]any) (Result, error) {
			v, err := decode[GetWorkQueueInput](input)
			if err != nil {
				return ErrorResult(toolerrors.Validation(err.Error()).Message), nil
			}
			req := v.(GetWorkQueueInput)
			query := map[string]string{"status": "queued"}
			if req.ProjectID != "" {
				query["project_id"] = req.ProjectID
			}
			var issues []domain.Issue
			if err := b.Get(ctx, "/issues", query, &issues); err != nil {
				return toolErr(err), nil
			}
			return mustJSON(issues)
		},
	}
}

func getNextIssueTool(b Backend) Tool {
	return Tool{
		Name:        "get_next_issue",
		Description: "Fetch the single next-ready issue to work on, optionally scoped to a project.",
		Kind:        KindRead,
		Validate:    decode[GetNextIssueInput],
		Handler: func(ctx context.Context, input map[string]any) (Result, error) {
			v, err := decode[GetNextIssueInput](input)
			if err != nil {
				return ErrorResult(toolerrors.Validation(err.Error()).Message), nil
			}
			req := v.(GetNextIssueInput)
			query := map[string]string{"status": "ready", "limit": "1"}
			if req.ProjectID != "" {
				query["project_id"] = req.ProjectID
			}
			var issues []domain.Issue
			if err := b.Get(ctx, "/issues", query, &issues); err != nil {
				return toolErr(err), nil
			}
			return mustJSON(issues)
		},
	}
}

func logWorkTool(b Backend) Tool {
	return Tool{
		Name:        "log_work",
		Description: "Record time spent on an issue.",
		Kind:        KindWrite,
		Validate:    decode[LogWorkInput],
		Handler: func(ctx context.Context, input map[string]any) (Result, error) {
			v, err := decode[LogWorkInput](input)
			if err != nil {
				return ErrorResult(toolerrors.Validation(err.Error()).Message), nil
			}
			req := v.(LogWorkInput)
			var entry domain.WorkLogEntry
			if err := b.Post(ctx, "/issues/"+req.IssueID+"/work-logs", req, &entry); err != nil {
				return toolErr(err), nil
			}
			return mustJSON(entry)
		},
	}
}

func listInitiativesTool(b Backend) Tool {
	return Tool{
		Name:        "list_initiatives",
		Description: "List initiatives, optionally filtered by status.",
		Kind:        KindRead,
		Validate:    decode[ListInitiativesInput],
		Handler: func(ctx context.Context, input map[string]any) (Result, error) {
			v, err := decode[ListInitiativesInput](input)
			if err != nil {
				return ErrorResult(toolerrors.Validation(err.Error()).Message), nil
			}
			req := v.(ListInitiativesInput)
			query := map[string]string{}
			if req.Status != "" {
				query["status"] = req.Status
			}
			var initiatives []domain.Initiative
			if err := b.Get(ctx, "/initiatives", query, &initiatives); err != nil {
				return toolErr(err), nil
			}
			return mustJSON(initiatives)
		},
	}
}

func listDecisionsTool(b Backend) Tool {
	return Tool{
		Name:        "list_decisions",
		Description: "List recorded decisions, optionally filtered by status.",
		Kind:        KindRead,
		Validate:    decode[ListDecisionsInput],
		Handler: func(ctx context.Context, input map[string]any) (Result, error) {
			v, err := decode[ListDecisionsInput](input)
			if err != nil {
				return ErrorResult(toolerrors.Validation(err.Error()).Message), nil
			}
			req := v.(ListDecisionsInput)
			query := map[string]string{}
			if req.Status != "" {
				query["status"] = req.Status
			}
			var decisions []domain.Decision
			if err := b.Get(ctx, "/decisions", query, &decisions); err != nil {
				return toolErr(err), nil
			}
			return mustJSON(decisions)
		},
	}
}

func createDecisionTool(b Backend) Tool {
	return Tool{
		Name:        "create_decision",
		Description: "Record a new project decision.",
		Kind:        KindWrite,
		Validate:    decode[CreateDecisionInput],
		Handler: func(ctx context.Context, input map[string]any) (Result, error) {
			v, err := decode[CreateDecisionInput](input)
			if err != nil {
				return ErrorResult(toolerrors.Validation(err.Error()).Message), nil
			}
			req := v.(CreateDecisionInput)
			var decision domain.Decision
			if err := b.Post(ctx, "/decisions", req, &decision); err != nil {
				return toolErr(err), nil
			}
			return mustJSON(decision)
		},
	}
}

func addCommentTool(b Backend) Tool {
	return Tool{
		Name:        "add_comment",
		Description: "Attach a comment to an issue, project, initiative, or decision.",
		Kind:        KindWrite,
		Validate:    decode[AddCommentInput],
		Handler: func(ctx context.Context, input map[string]any) (Result, error) {
			v, err := decode[AddCommentInput](input)
			if err != nil {
				return ErrorResult(toolerrors.Validation(err.Error()).Message), nil
			}
			req := v.(AddCommentInput)
			var comment domain.Comment
			if err := b.Post(ctx, "/comments", req, &comment); err != nil {
				return toolErr(err), nil
			}
			return mustJSON(comment)
		},
	}
}

// statusSummary is the computed payload project_status_summary returns,
// per spec.md §4.2.
type statusSummary struct {
	Project          string            `json:"project"`
	TotalIssues      int               `json:"total_issues"`
	ByStatus         map[string]int    `json:"by_status"`
	HighPriorityOpen []summaryIssueRef `json:"high_priority_open"`
}

type summaryIssueRef struct {
	Key      string `json:"key"`
	Title    string `json:"title"`
	Priority string `json:"priority"`
	Status   string `json:"status"`
}

func projectStatusSummaryTool(b Backend) Tool {
	return Tool{
		Name:        "project_status_summary",
		Description: "Compute a project's issue status breakdown and high-priority open issues.",
		Kind:        KindRead,
		Validate:    decode[ProjectStatusSummaryInput],
		Handler: func(ctx context.Context, input map[string]any) (Result, error) {
			v, err := decode[ProjectStatusSummaryInput](input)
			if err != nil {
				return ErrorResult(toolerrors.Validation(err.Error()).Message), nil
			}
			req := v.(ProjectStatusSummaryInput)

			var project domain.Project
			if err := b.Get(ctx, "/projects/"+req.ProjectID, nil, &project); err != nil {
				return toolErr(err), nil
			}
			var issues []domain.Issue
			if err := b.Get(ctx, "/projects/"+req.ProjectID+"/issues", map[string]string{"limit": "100"}, &issues); err != nil {
				return toolErr(err), nil
			}

			summary := statusSummary{
				Project:  project.Name,
				ByStatus: map[string]int{},
			}
			for _, issue := range issues {
				summary.TotalIssues++
				summary.ByStatus[issue.Status]++
				if issue.IsHighPriorityOpen() {
					summary.HighPriorityOpen = append(summary.HighPriorityOpen, summaryIssueRef{
						Key:      issue.Key,
						Title:    issue.Title,
						Priority: issue.Priority,
						Status:   issue.Status,
					})
				}
			}
			return mustJSON(summary)
		},
	}
}

func mustJSON(v any) (Result, error) {
	res, err := JSONResult(v)
	if err != nil {
		return ErrorResult(toolerrors.Unexpected("encoding result", err).Message), nil
	}
	return res, nil
}
