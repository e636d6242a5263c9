package hooks

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turboagent/turbo-agent/internal/audit"
	"github.com/turboagent/turbo-agent/internal/ratelimit"
)

type fakeFetcher struct {
	issues map[string]string // issue id -> project id
	err    error
	calls  int
}

func (f *fakeFetcher) Get(ctx context.Context, path string, query map[string]string, out any) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	id := path[len("/issues/"):]
	pid, ok := f.issues[id]
	if !ok {
		return errors.New("not found")
	}
	b, _ := json.Marshal(map[string]string{"id": id, "project_id": pid})
	return json.Unmarshal(b, out)
}

func newPipeline(t *testing.T, allowed []string, fetcher IssueFetcher) *Pipeline {
	t.Helper()
	w := audit.New(filepath.Join(t.TempDir(), "audit.jsonl"))
	t.Cleanup(func() { _ = w.Close() })
	limiter := ratelimit.New(30, time.Minute)
	return New(w, limiter, func() []string { return allowed }, fetcher, nil)
}

func TestPreCall_NoAllowListPassesEverything(t *testing.T) {
	p := newPipeline(t, nil, nil)
	d := p.PreCall(context.Background(), "mcp__turbo__get_project", "tu1", map[string]any{"project_id": "anything"})
	assert.False(t, d.Denied)
}

func TestPreCall_DirectProjectToolDeniedOutsideAllowList(t *testing.T) {
	p := newPipeline(t, []string{"p1"}, nil)
	d := p.PreCall(context.Background(), "mcp__turbo__get_project", "tu1", map[string]any{"project_id": "p2"})
	require.True(t, d.Denied)
	assert.Equal(t, "scope", d.Gate)
}

func TestPreCall_DirectProjectToolAllowedInAllowList(t *testing.T) {
	p := newPipeline(t, []string{"p1"}, nil)
	d := p.PreCall(context.Background(), "mcp__turbo__get_project", "tu1", map[string]any{"project_id": "p1"})
	assert.False(t, d.Denied)
}

func TestPreCall_CrossProjectReadPassesWithoutProjectID(t *testing.T) {
	p := newPipeline(t, []string{"p1"}, nil)
	d := p.PreCall(context.Background(), "mcp__turbo__list_issues", "tu1", map[string]any{})
	assert.False(t, d.Denied)
}

func TestPreCall_CrossProjectReadDeniedWithOutOfScopeProjectID(t *testing.T) {
	p := newPipeline(t, []string{"p1"}, nil)
	d := p.PreCall(context.Background(), "mcp__turbo__list_issues", "tu1", map[string]any{"project_id": "p2"})
	require.True(t, d.Denied)
	assert.Equal(t, "scope", d.Gate)
}

func TestPreCall_IssueScopedResolvesViaFetcherAndCaches(t *testing.T) {
	fetcher := &fakeFetcher{issues: map[string]string{"t-1": "p1"}}
	p := newPipeline(t, []string{"p1"}, fetcher)

	d := p.PreCall(context.Background(), "mcp__turbo__get_issue", "tu1", map[string]any{"issue_id": "t-1"})
	assert.False(t, d.Denied)
	d = p.PreCall(context.Background(), "mcp__turbo__get_issue", "tu2", map[string]any{"issue_id": "t-1"})
	assert.False(t, d.Denied)
	assert.Equal(t, 1, fetcher.calls, "second call should hit the cache, not the fetcher")
}

func TestPreCall_IssueScopedDeniedWhenProjectOutsideAllowList(t *testing.T) {
	fetcher := &fakeFetcher{issues: map[string]string{"t-1": "p2"}}
	p := newPipeline(t, []string{"p1"}, fetcher)

	d := p.PreCall(context.Background(), "mcp__turbo__update_issue", "tu1", map[string]any{"issue_id": "t-1"})
	require.True(t, d.Denied)
	assert.Equal(t, "scope", d.Gate)
}

func TestPreCall_IssueScopedFailsClosedOnResolutionError(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("backend down")}
	p := newPipeline(t, []string{"p1"}, fetcher)

	d := p.PreCall(context.Background(), "mcp__turbo__log_work", "tu1", map[string]any{"issue_id": "t-9"})
	require.True(t, d.Denied)
	assert.Contains(t, d.Reason, "safety")
}

func TestPreCall_NonNamespacedToolSkipsScopeGate(t *testing.T) {
	p := newPipeline(t, []string{"p1"}, nil)
	d := p.PreCall(context.Background(), "some_other_tool", "tu1", map[string]any{"project_id": "p9"})
	assert.False(t, d.Denied)
}

func TestPreCall_ShellGateBlocksDestructiveCommand(t *testing.T) {
	p := newPipeline(t, nil, nil)
	d := p.PreCall(context.Background(), ShellToolName, "tu1", map[string]any{"command": "sudo rm -rf /"})
	require.True(t, d.Denied)
	assert.Equal(t, "destructive_shell", d.Gate)
	assert.Contains(t, d.Reason, "rm -rf")
}

func TestPreCall_ShellGateAllowsSafeCommand(t *testing.T) {
	p := newPipeline(t, nil, nil)
	d := p.PreCall(context.Background(), ShellToolName, "tu1", map[string]any{"command": "ls -la"})
	assert.False(t, d.Denied)
}

func TestPreCall_ShellGateOnlyMatchesShellTool(t *testing.T) {
	p := newPipeline(t, nil, nil)
	d := p.PreCall(context.Background(), "mcp__turbo__create_issue", "tu1", map[string]any{"command": "rm -rf /"})
	assert.False(t, d.Denied, "non-shell tools are not subject to the destructive-shell filter")
}

func TestSetProjectScope_OverridesAllowList(t *testing.T) {
	p := newPipeline(t, []string{"p1", "p2"}, nil)
	p.SetProjectScope("p1")

	d := p.PreCall(context.Background(), "mcp__turbo__get_project", "tu1", map[string]any{"project_id": "p2"})
	require.True(t, d.Denied, "scope override should pin to p1 even though p2 is in the allow-list func")
	assert.Equal(t, "scope", d.Gate)

	d = p.PreCall(context.Background(), "mcp__turbo__get_project", "tu2", map[string]any{"project_id": "p1"})
	assert.False(t, d.Denied)
}

func TestSetProjectScope_ClearedByEmptyString(t *testing.T) {
	p := newPipeline(t, []string{"p1"}, nil)
	p.SetProjectScope("p2")
	p.SetProjectScope("")

	d := p.PreCall(context.Background(), "mcp__turbo__get_project", "tu1", map[string]any{"project_id": "p1"})
	assert.False(t, d.Denied, "clearing the override should fall back to the allow-list func")
}

func TestPreCall_ShellGateBlocksUnforcedAbsolutePathRecursiveDelete(t *testing.T) {
	p := newPipeline(t, nil, nil)
	d := p.PreCall(context.Background(), ShellToolName, "tu1", map[string]any{"command": "rm -r /important-dir"})
	require.True(t, d.Denied)
	assert.Equal(t, "destructive_shell", d.Gate)
}

func TestPreCall_ShellGateBlocksAnyBranchForceDelete(t *testing.T) {
	p := newPipeline(t, nil, nil)
	d := p.PreCall(context.Background(), ShellToolName, "tu1", map[string]any{"command": "git branch -D some-other-branch"})
	require.True(t, d.Denied, "the bare git branch -d/-D pattern must block deleting any branch, not just main/master")
	assert.Equal(t, "destructive_shell", d.Gate)
}

func TestPreCall_RateLimitDeniesAfterCeiling(t *testing.T) {
	w := audit.New(filepath.Join(t.TempDir(), "audit.jsonl"))
	t.Cleanup(func() { _ = w.Close() })
	limiter := ratelimit.New(2, time.Minute)
	p := New(w, limiter, nil, nil, nil)

	assert.False(t, p.PreCall(context.Background(), "mcp__turbo__get_issue", "tu1", map[string]any{"issue_id": "t-1"}).Denied)
	assert.False(t, p.PreCall(context.Background(), "mcp__turbo__get_issue", "tu2", map[string]any{"issue_id": "t-1"}).Denied)
	d := p.PreCall(context.Background(), "mcp__turbo__get_issue", "tu3", map[string]any{"issue_id": "t-1"})
	require.True(t, d.Denied)
	assert.Equal(t, "rate_limit", d.Gate)
}
