package driver

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turboagent/turbo-agent/internal/catalog"
)

type fakeRuntime struct {
	runResult   RunResult
	runErr      error
	streamEvts  []Event
	streamErr   error
	session     *fakeSession
	closeCalls  int
	lastCfg     RuntimeConfig
}

func (f *fakeRuntime) Run(ctx context.Context, cfg RuntimeConfig, prompt string) (RunResult, error) {
	f.lastCfg = cfg
	return f.runResult, f.runErr
}

func (f *fakeRuntime) Stream(ctx context.Context, cfg RuntimeConfig, prompt string, emit func(Event)) error {
	f.lastCfg = cfg
	for _, e := range f.streamEvts {
		emit(e)
	}
	return f.streamErr
}

func (f *fakeRuntime) OpenSession(ctx context.Context, cfg RuntimeConfig) (Session, error) {
	f.lastCfg = cfg
	return f.session, nil
}

func (f *fakeRuntime) Close() { f.closeCalls++ }

type fakeSession struct {
	replies   []string
	next      int
	closeCalls int
}

func (s *fakeSession) Send(ctx context.Context, message string) (string, error) {
	r := s.replies[s.next]
	s.next++
	return r, nil
}

func (s *fakeSession) Close() error {
	s.closeCalls++
	return nil
}

func validConfig() Config {
	return Config{ModelID: "claude-x", TurnCeiling: 10, CostCeiling: 1.0}
}

func TestNew_RejectsInvalidBounds(t *testing.T) {
	_, err := New(Config{ModelID: "m", TurnCeiling: 0, CostCeiling: 1}, &fakeRuntime{}, catalog.Default(nil), nil, zerolog.Nop())
	assert.Error(t, err)

	_, err = New(Config{ModelID: "m", TurnCeiling: 1, CostCeiling: 0}, &fakeRuntime{}, catalog.Default(nil), nil, zerolog.Nop())
	assert.Error(t, err)

	_, err = New(Config{ModelID: "", TurnCeiling: 1, CostCeiling: 1}, &fakeRuntime{}, catalog.Default(nil), nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestNew_AcceptsValidConfig(t *testing.T) {
	d, err := New(validConfig(), &fakeRuntime{}, catalog.Default(nil), nil, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, d)
}

func TestSystemPrompt_IncludesScopeBlockOnlyWhenSet(t *testing.T) {
	d, err := New(validConfig(), &fakeRuntime{}, catalog.Default(nil), nil, zerolog.Nop())
	require.NoError(t, err)
	assert.NotContains(t, d.SystemPrompt(), "restricted to project")

	cfg := validConfig()
	cfg.ProjectScope = "p1"
	d2, err := New(cfg, &fakeRuntime{}, catalog.Default(nil), nil, zerolog.Nop())
	require.NoError(t, err)
	prompt := d2.SystemPrompt()
	assert.Contains(t, prompt, "restricted to project")
	assert.Contains(t, prompt, "p1")
}

func TestSystemPrompt_ListsSubagentRoles(t *testing.T) {
	d, err := New(validConfig(), &fakeRuntime{}, catalog.Default(nil), nil, zerolog.Nop())
	require.NoError(t, err)
	prompt := d.SystemPrompt()
	for _, role := range []string{"triager", "planner", "reporter", "worker"} {
		assert.Contains(t, prompt, role)
	}
}

func TestRun_ReturnsFinalText(t *testing.T) {
	rt := &fakeRuntime{runResult: RunResult{Text: "done", Cost: 0.1, Turns: 3, SessionID: "s1"}}
	d, err := New(validConfig(), rt, catalog.Default(nil), nil, zerolog.Nop())
	require.NoError(t, err)

	text, err := d.Run(context.Background(), "do the thing")
	require.NoError(t, err)
	assert.Equal(t, "done", text)
}

func TestRun_LogsWarningAboveCostThreshold(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	cfg := validConfig()
	cfg.CostCeiling = 1.0
	rt := &fakeRuntime{runResult: RunResult{Text: "done", Cost: 0.9, Turns: 1, SessionID: "s1"}}
	d, err := New(cfg, rt, catalog.Default(nil), nil, logger)
	require.NoError(t, err)

	_, err = d.Run(context.Background(), "x")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "80%")
}

func TestRun_NoWarningBelowCostThreshold(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	cfg := validConfig()
	cfg.CostCeiling = 1.0
	rt := &fakeRuntime{runResult: RunResult{Text: "done", Cost: 0.1, Turns: 1, SessionID: "s1"}}
	d, err := New(cfg, rt, catalog.Default(nil), nil, logger)
	require.NoError(t, err)

	_, err = d.Run(context.Background(), "x")
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "warn")
}

func TestStream_YieldsEventsAndLogsOnTerminal(t *testing.T) {
	rt := &fakeRuntime{streamEvts: []Event{
		{Kind: EventText, Text: "thinking..."},
		{Kind: EventToolCall, ToolName: "mcp__turbo__get_issue", ToolInput: map[string]any{"issue_id": "t-1"}},
		{Kind: EventResult, Text: "done", Cost: 0.2, Turns: 2, SessionID: "s2"},
	}}
	d, err := New(validConfig(), rt, catalog.Default(nil), nil, zerolog.Nop())
	require.NoError(t, err)

	var got []Event
	err = d.Stream(context.Background(), "go", func(e Event) { got = append(got, e) })
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, EventText, got[0].Kind)
	assert.Equal(t, EventToolCall, got[1].Kind)
	assert.Equal(t, EventResult, got[2].Kind)
}

func TestSession_SendAndCloseIsIdempotent(t *testing.T) {
	fs := &fakeSession{replies: []string{"hi there"}}
	rt := &fakeRuntime{session: fs}
	d, err := New(validConfig(), rt, catalog.Default(nil), nil, zerolog.Nop())
	require.NoError(t, err)

	sess, err := d.OpenSession(context.Background())
	require.NoError(t, err)

	reply, err := sess.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi there", reply)

	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close())
	assert.Equal(t, 1, fs.closeCalls, "session close must be idempotent")
}

func TestDriverClose_IsIdempotent(t *testing.T) {
	rt := &fakeRuntime{}
	d, err := New(validConfig(), rt, catalog.Default(nil), nil, zerolog.Nop())
	require.NoError(t, err)

	d.Close()
	d.Close()
	assert.Equal(t, 1, rt.closeCalls)
}

func TestRuntimeConfig_CarriesNamespacedAllowedTools(t *testing.T) {
	rt := &fakeRuntime{runResult: RunResult{Text: "ok"}}
	d, err := New(validConfig(), rt, catalog.Default(nil), nil, zerolog.Nop())
	require.NoError(t, err)

	_, err = d.Run(context.Background(), "x")
	require.NoError(t, err)
	for _, name := range rt.lastCfg.AllowedTools {
		assert.True(t, strings.HasPrefix(name, catalog.Namespace))
	}
	assert.Equal(t, "accept_edits", rt.lastCfg.PermissionMode)
}
