// Command turbo-agent-demo wires the control plane together and runs one
// one-shot agent turn against a live backing service. It is a thin
// entrypoint, not a command-line surface: the agent loop itself is an
// external runtime collaborator (spec.md §9), and this binary exists only
// to exercise the wiring end to end the way batalabs-muxd's main.go wires
// its daemon, store, and provider before handing off to the TUI.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/turboagent/turbo-agent/internal/audit"
	"github.com/turboagent/turbo-agent/internal/catalog"
	"github.com/turboagent/turbo-agent/internal/driver"
	"github.com/turboagent/turbo-agent/internal/hooks"
	"github.com/turboagent/turbo-agent/internal/mcpserver"
	"github.com/turboagent/turbo-agent/internal/metrics"
	"github.com/turboagent/turbo-agent/internal/ratelimit"
	"github.com/turboagent/turbo-agent/internal/turboclient"
	"github.com/turboagent/turbo-agent/internal/turboconfig"
)

func main() {
	promptFlag := flag.String("prompt", "", "Prompt to hand the agent for a one-shot run")
	projectFlag := flag.String("project", "", "Restrict this run to a single project id")
	flag.Parse()

	logger := turboconfig.Logger()

	auditWriter := audit.New(turboconfig.AuditLogPath())
	defer auditWriter.Close()

	rec := metrics.New()

	client := turboclient.New(turboclient.Config{
		BaseURL:     turboconfig.APIURL(),
		BearerToken: turboconfig.APIKey(),
		Metrics:     rec,
		Logger:      logger,
		Name:        "turbo-api",
	})
	defer client.Close()

	limiter := ratelimit.New(turboconfig.RateLimit(), time.Minute)
	hookChain := hooks.New(auditWriter, limiter, turboconfig.AllowedProjectIDs, client, rec)

	cat := catalog.Default(client)
	_ = mcpserver.Build(cat) // exposed to the LLM runtime over MCP; unused by this demo's direct calls

	runID := uuid.New().String()
	logger.Info().Str("run_id", runID).Msg("turbo-agent-demo starting")

	runtime := &localRuntime{logger: logger}
	d, err := driver.New(driver.Config{
		ProjectScope: *projectFlag,
		ModelID:      "demo-runtime",
		TurnCeiling:  10,
		CostCeiling:  1.0,
	}, runtime, cat, hookChain, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "turbo-agent-demo: %v\n", err)
		os.Exit(1)
	}
	defer d.Close()

	prompt := *promptFlag
	if prompt == "" {
		prompt = "Summarize the current project status."
	}

	text, err := d.Run(context.Background(), prompt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "turbo-agent-demo: run failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(text)
}

// localRuntime is a placeholder driver.Runtime that calls project_status_summary
// directly through the catalog instead of delegating to an LLM, so this demo
// binary exercises the full control plane (hooks, audit, rate limit, metrics,
// catalog dispatch) without depending on an external model provider.
type localRuntime struct {
	logger zerolog.Logger
}

func (r *localRuntime) Run(ctx context.Context, cfg driver.RuntimeConfig, prompt string) (driver.RunResult, error) {
	tool, ok := cfg.Tools.Find("project_status_summary")
	if !ok {
		return driver.RunResult{Text: "no tools available"}, nil
	}

	if d := cfg.Hooks.PreCall(ctx, tool.NamespacedName(), uuid.New().String(), map[string]any{}); d.Denied {
		return driver.RunResult{Text: fmt.Sprintf("denied by %s: %s", d.Gate, d.Reason)}, nil
	}

	res, err := tool.Handler(ctx, map[string]any{})
	cfg.Hooks.PostCall(tool.NamespacedName(), "", err != nil || res.IsError)
	if err != nil {
		return driver.RunResult{}, err
	}
	text := ""
	if len(res.Content) > 0 {
		text = res.Content[0].Text
	}
	return driver.RunResult{Text: text, Turns: 1, SessionID: uuid.New().String()}, nil
}

func (r *localRuntime) Stream(ctx context.Context, cfg driver.RuntimeConfig, prompt string, emit func(driver.Event)) error {
	res, err := r.Run(ctx, cfg, prompt)
	if err != nil {
		return err
	}
	emit(driver.Event{Kind: driver.EventResult, Text: res.Text, Turns: res.Turns, SessionID: res.SessionID})
	return nil
}

func (r *localRuntime) OpenSession(ctx context.Context, cfg driver.RuntimeConfig) (driver.Session, error) {
	return &localSession{ctx: ctx, cfg: cfg, runtime: r}, nil
}

func (r *localRuntime) Close() {}

// localSession is a trivial multi-turn handle: every Send re-runs the same
// one-shot summary, which is enough to exercise AgentSession's lifecycle.
type localSession struct {
	ctx     context.Context
	cfg     driver.RuntimeConfig
	runtime *localRuntime
}

func (s *localSession) Send(ctx context.Context, message string) (string, error) {
	res, err := s.runtime.Run(ctx, s.cfg, message)
	return res.Text, err
}

func (s *localSession) Close() error { return nil }
