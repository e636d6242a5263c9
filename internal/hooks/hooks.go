// Package hooks implements the Hook Pipeline (spec.md §4.3): the ordered
// pre-call gate chain (audit, rate limit, project-scope enforcement,
// destructive-shell filter) and the post-call audit hook. A deny outcome
// from any pre-call gate short-circuits the chain.
//
// Shape grounded on batalabs-muxd/internal/agent/tools.go's isWriteTool
// pre-dispatch check, generalized from a single boolean gate to an ordered
// chain of named gates each returning a continue/deny Decision.
package hooks

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/turboagent/turbo-agent/internal/audit"
	"github.com/turboagent/turbo-agent/internal/catalog"
	"github.com/turboagent/turbo-agent/internal/domain"
	"github.com/turboagent/turbo-agent/internal/metrics"
	"github.com/turboagent/turbo-agent/internal/ratelimit"
)

// ShellToolName is the external shell-execution tool the destructive-shell
// filter matches (spec.md §4.3 gate 4), grounded on
// batalabs-muxd/internal/tools/tools.go's "bash" tool.
const ShellToolName = "bash"

// Decision is a gate's outcome: either continue (the zero value) or deny
// with a reason, per spec.md §4.3's "Deny outcome shape":
// {decision: "deny", reason, event-name}.
type Decision struct {
	Denied bool
	Reason string
	Gate   string
}

// Continue is the neutral outcome.
func Continue() Decision { return Decision{} }

// Deny builds a deny outcome naming the gate and the human-readable reason.
func Deny(gate, reason string) Decision {
	return Decision{Denied: true, Reason: reason, Gate: gate}
}

// IssueFetcher resolves an issue's owning project, used only by the
// project-scope gate's issue_id branch. turboclient.Client satisfies this.
type IssueFetcher interface {
	Get(ctx context.Context, path string, query map[string]string, out any) error
}

// AllowedProjectsFunc returns the current project allow-list. It is called
// on every scope-gate evaluation (spec.md §4.6: "re-read by the scope
// enforcer on every call"), not cached at Pipeline construction.
type AllowedProjectsFunc func() []string

// cross-project read tools, direct-project-id tools, and issue-scoped tools
// classify the scope gate's behaviour (spec.md §4.3 gate 3). Any tool not
// named in one of these three sets passes unconditionally.
var (
	crossProjectReadTools = map[string]bool{
		"list_projects":     true,
		"list_issues":       true,
		"list_initiatives":  true,
		"list_decisions":    true,
		"get_work_queue":    true,
		"get_next_issue":    true,
	}
	directProjectTools = map[string]bool{
		"get_project":             true,
		"get_project_issues":      true,
		"create_issue":            true,
		"project_status_summary": true,
	}
	issueScopedTools = map[string]bool{
		"get_issue":         true,
		"update_issue":      true,
		"start_issue_work":  true,
		"log_work":          true,
	}
)

// destructivePatterns is the fixed, case-insensitive substring list the
// shell-filter gate matches against (spec.md §4.3 gate 4).
var destructivePatterns = []string{
	"rm -rf",
	"rm -r /",
	"git push --force",
	"git push -f",
	"git reset --hard",
	"drop table",
	"drop database",
	"delete from",
	"truncate table",
	"git branch -d main",
	"git branch -d master",
	"git branch -d",
	"chmod -r 777",
	"chmod 777 -r",
	":(){ :|:& };:",
}

// Pipeline wires the four pre-call gates and the post-call audit hook.
type Pipeline struct {
	auditLog  *audit.Writer
	limiter   *ratelimit.Limiter
	allowed   AllowedProjectsFunc
	fetcher   IssueFetcher
	metrics   *metrics.Recorder

	cacheMu sync.RWMutex
	cache   map[string]string // issue id -> project id

	scopeMu       sync.RWMutex
	scopeOverride string // non-empty pins the scope gate to exactly one project id
}

// New builds a Pipeline. allowed may be nil, in which case scope enforcement
// is always skipped (equivalent to an always-empty allow-list).
func New(auditLog *audit.Writer, limiter *ratelimit.Limiter, allowed AllowedProjectsFunc, fetcher IssueFetcher, rec *metrics.Recorder) *Pipeline {
	if allowed == nil {
		allowed = func() []string { return nil }
	}
	return &Pipeline{
		auditLog: auditLog,
		limiter:  limiter,
		allowed:  allowed,
		fetcher:  fetcher,
		metrics:  rec,
		cache:    make(map[string]string),
	}
}

// PreCall runs the ordered pre-call chain for one tool invocation, in the
// order audit -> rate limit -> project scope -> destructive shell. The
// first deny short-circuits the remaining gates.
func (p *Pipeline) PreCall(ctx context.Context, name, toolUseID string, input map[string]any) Decision {
	now := time.Now()
	if p.auditLog != nil {
		_ = p.auditLog.ToolCall(name, toolUseID, input, now)
	}

	if d := p.rateLimitGate(name); d.Denied {
		p.metrics.ToolDenied(name, d.Gate)
		return d
	}
	if d := p.scopeGate(ctx, name, input); d.Denied {
		p.metrics.ToolDenied(name, d.Gate)
		return d
	}
	if d := p.shellGate(name, input); d.Denied {
		p.metrics.ToolDenied(name, d.Gate)
		return d
	}
	p.metrics.ToolCall(name)
	return Continue()
}

// SetProjectScope pins every subsequent scope-gate evaluation to exactly
// one project id, overriding the allow-list func entirely. This is how a
// Driver constructed with a single-project Config.ProjectScope gets real
// enforcement, not just prompt text — the original sets
// TURBO_ALLOWED_PROJECT_IDS to a single id for the same reason
// (original_source/turbo/agent/client.py's "if project_id:
// os.environ[...] = project_id"). An empty id clears the override, falling
// back to allowed().
func (p *Pipeline) SetProjectScope(projectID string) {
	p.scopeMu.Lock()
	p.scopeOverride = projectID
	p.scopeMu.Unlock()
}

// PostCall runs the single post-call audit hook.
func (p *Pipeline) PostCall(name, toolUseID string, isError bool) {
	if p.auditLog != nil {
		_ = p.auditLog.ToolResult(name, toolUseID, isError, time.Now())
	}
}

func (p *Pipeline) rateLimitGate(name string) Decision {
	if p.limiter == nil {
		return Continue()
	}
	if p.limiter.Allow(name) {
		return Continue()
	}
	p.metrics.RateLimited(name)
	return Deny("rate_limit", fmt.Sprintf(
		"rate limit exceeded for tool %q: more than %d calls in the last 60s", name, p.limiter.Count(name)))
}

func bareName(name string) (string, bool) {
	if !strings.HasPrefix(name, catalog.Namespace) {
		return "", false
	}
	return strings.TrimPrefix(name, catalog.Namespace), true
}

func (p *Pipeline) scopeGate(ctx context.Context, name string, input map[string]any) Decision {
	bare, ok := bareName(name)
	if !ok {
		return Continue()
	}
	p.scopeMu.RLock()
	override := p.scopeOverride
	p.scopeMu.RUnlock()

	allowed := p.allowed()
	if override != "" {
		allowed = []string{override}
	}
	if len(allowed) == 0 {
		return Continue()
	}
	allowSet := make(map[string]bool, len(allowed))
	for _, id := range allowed {
		allowSet[id] = true
	}

	switch {
	case crossProjectReadTools[bare]:
		if pid, ok := stringField(input, "project_id"); ok && pid != "" && !allowSet[pid] {
			return Deny("scope", fmt.Sprintf("project %q is outside the configured allow-list", pid))
		}
		return Continue()

	case directProjectTools[bare]:
		pid, _ := stringField(input, "project_id")
		if !allowSet[pid] {
			return Deny("scope", fmt.Sprintf("project %q is outside the configured allow-list", pid))
		}
		return Continue()

	case issueScopedTools[bare]:
		issueID, _ := stringField(input, "issue_id")
		if issueID == "" {
			return Deny("scope", "issue_id is required to enforce project scope, denying for safety")
		}
		projectID, err := p.resolveProject(ctx, issueID)
		if err != nil {
			return Deny("scope", fmt.Sprintf(
				"could not resolve owning project for issue %q, denying for safety: %v", issueID, err))
		}
		if !allowSet[projectID] {
			return Deny("scope", fmt.Sprintf("project %q is outside the configured allow-list", projectID))
		}
		return Continue()

	default:
		return Continue()
	}
}

func (p *Pipeline) resolveProject(ctx context.Context, issueID string) (string, error) {
	p.cacheMu.RLock()
	if pid, ok := p.cache[issueID]; ok {
		p.cacheMu.RUnlock()
		return pid, nil
	}
	p.cacheMu.RUnlock()

	var issue domain.Issue
	if err := p.fetcher.Get(ctx, "/issues/"+issueID, nil, &issue); err != nil {
		return "", err
	}

	p.cacheMu.Lock()
	// Last-write-wins under a race (spec.md §5): do not special-case a
	// concurrent winner, just overwrite with this resolution.
	p.cache[issueID] = issue.ProjectID
	size := len(p.cache)
	p.cacheMu.Unlock()
	p.metrics.SetIssueCacheSize(size)

	return issue.ProjectID, nil
}

func (p *Pipeline) shellGate(name string, input map[string]any) Decision {
	if name != ShellToolName {
		return Continue()
	}
	command, _ := stringField(input, "command")
	lower := strings.ToLower(command)
	for _, pattern := range destructivePatterns {
		if strings.Contains(lower, pattern) {
			return Deny("destructive_shell", fmt.Sprintf(
				"Destructive command blocked: contains '%s'. Turbo agents cannot execute destructive shell commands.", pattern))
		}
	}
	return Continue()
}

func stringField(input map[string]any, key string) (string, bool) {
	v, ok := input[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
