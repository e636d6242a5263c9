// Package driver is the Agent Driver (spec.md §4.5): it composes the system
// prompt, attaches the tool catalog, hook pipeline, and subagent set,
// enforces turn/cost bounds, and exposes one-shot, streaming, and
// multi-turn execution modes on top of an injected LLM runtime.
//
// The agent-loop itself is an external collaborator (spec.md §9: "the core
// only needs an interface"); Runtime is that interface, and its shape is
// grounded on batalabs-muxd/internal/agent's Service/Submit loop — a
// bounded, event-yielding driver around a provider client — generalized
// from a concrete multi-provider streaming client to an abstract
// collaborator the core only calls through.
package driver

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/turboagent/turbo-agent/internal/catalog"
	"github.com/turboagent/turbo-agent/internal/hooks"
	"github.com/turboagent/turbo-agent/internal/subagents"
)

// EventKind enumerates the three event shapes stream() yields (spec.md
// §4.5).
type EventKind string

const (
	EventText     EventKind = "text"
	EventToolCall EventKind = "tool_call"
	EventResult   EventKind = "result"
)

// Event is one item of a stream() sequence.
type Event struct {
	Kind EventKind
	Text string
	// Tool call fields, set only when Kind == EventToolCall.
	ToolName  string
	ToolInput map[string]any
	// Result fields, set only when Kind == EventResult.
	Cost      float64
	Turns     int
	SessionID string
}

// RunResult is what the LLM runtime yields once an interaction terminates.
type RunResult struct {
	Text      string
	Cost      float64
	Turns     int
	SessionID string
}

// RuntimeConfig is what the core hands the LLM runtime collaborator on
// every call: system prompt, tool set, hook pipeline, subagent catalog, and
// bounds (spec.md §6's "LLM runtime contract").
type RuntimeConfig struct {
	ModelID        string
	SystemPrompt   string
	Tools          *catalog.Catalog
	Hooks          *hooks.Pipeline
	Subagents      []subagents.Role
	AllowedTools   []string
	TurnCeiling    int
	CostCeiling    float64
	// PermissionMode is always "accept edits" per spec.md §6; carried as a
	// field so a Runtime implementation can assert it rather than assume it.
	PermissionMode string
}

// Runtime is the LLM agent-loop collaborator the driver delegates to. A
// production implementation lives outside this module; tests use a fake.
type Runtime interface {
	// Run executes prompt to completion and returns the terminal result.
	Run(ctx context.Context, cfg RuntimeConfig, prompt string) (RunResult, error)
	// Stream executes prompt, yielding events via emit until a terminal
	// EventResult is emitted or ctx is cancelled.
	Stream(ctx context.Context, cfg RuntimeConfig, prompt string, emit func(Event)) error
	// OpenSession starts a persistent multi-turn session and returns a
	// handle satisfying Session.
	OpenSession(ctx context.Context, cfg RuntimeConfig) (Session, error)
	// Close releases any resources shared across calls (e.g. a pooled HTTP
	// client), the way batalabs-muxd's provider clients share one
	// module-level transport (spec.md §9: "model this as an owned resource
	// held by the Agent Driver").
	Close()
}

// Session is a bound multi-turn conversation handle.
type Session interface {
	Send(ctx context.Context, message string) (string, error)
	Close() error
}

// Config are the Driver's construction parameters (spec.md §4.5).
type Config struct {
	// ProjectScope, if non-empty, restricts all operations to one project
	// id and is written into the allow-list the hook pipeline's scope gate
	// consults.
	ProjectScope string
	ModelID      string
	// TurnCeiling must be >= 1.
	TurnCeiling int
	// CostCeiling must be > 0.
	CostCeiling float64
}

func (c Config) validate() error {
	if c.ModelID == "" {
		return fmt.Errorf("model id must not be empty")
	}
	if c.TurnCeiling < 1 {
		return fmt.Errorf("turn ceiling must be >= 1, got %d", c.TurnCeiling)
	}
	if c.CostCeiling <= 0 {
		return fmt.Errorf("cost ceiling must be > 0, got %v", c.CostCeiling)
	}
	return nil
}

// Driver is the Agent Driver. Construct with New; Close releases the
// runtime's shared resources.
type Driver struct {
	cfg       Config
	runtime   Runtime
	tools     *catalog.Catalog
	hookChain *hooks.Pipeline
	roles     []subagents.Role
	logger    zerolog.Logger

	closeOnce sync.Once
}

// New validates cfg and constructs a Driver. Invalid bounds fail
// construction (spec.md §4.5).
func New(cfg Config, runtime Runtime, tools *catalog.Catalog, hookChain *hooks.Pipeline, logger zerolog.Logger) (*Driver, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.ProjectScope != "" && hookChain != nil {
		// The prompt text in SystemPrompt is a suggestion, not enforcement;
		// this is the actual allow-list restriction (spec.md §4.5: "sets the
		// allow-list environment variable for the hook pipeline").
		hookChain.SetProjectScope(cfg.ProjectScope)
	}
	return &Driver{
		cfg:       cfg,
		runtime:   runtime,
		tools:     tools,
		hookChain: hookChain,
		roles:     subagents.All(),
		logger:    logger,
	}, nil
}

// SystemPrompt renders the driver's templated system prompt (spec.md
// §4.5): role, tool-server namespace, subagent roles, operational
// guidelines, and — if a project scope is set — a final scope block.
func (d *Driver) SystemPrompt() string {
	var b strings.Builder
	b.WriteString("You are Turbo Agent, an autonomous project-management assistant.\n")
	b.WriteString("Tools are namespaced under \"" + catalog.Namespace + "\".\n\n")

	b.WriteString("Subagent roles available to you:\n")
	for _, r := range d.roles {
		b.WriteString(fmt.Sprintf("- %s (%s): %s\n", r.Name, r.ModelTier, r.RolePrompt))
	}
	b.WriteString("\n")

	b.WriteString("Operational guidelines:\n")
	b.WriteString("- Check current state before mutating it.\n")
	b.WriteString("- Prefer concise, bulleted responses.\n")
	b.WriteString("- Include acceptance criteria when creating issues.\n")
	b.WriteString("- Honour work-queue order; do not skip ahead arbitrarily.\n")
	b.WriteString("- Record decisions as they are made.\n")

	if d.cfg.ProjectScope != "" {
		b.WriteString(fmt.Sprintf(
			"\nAll operations in this session are restricted to project %q. "+
				"Never act on, or reveal information about, any other project.\n", d.cfg.ProjectScope))
	}
	return b.String()
}

func (d *Driver) runtimeConfig() RuntimeConfig {
	return RuntimeConfig{
		ModelID:        d.cfg.ModelID,
		SystemPrompt:   d.SystemPrompt(),
		Tools:          d.tools,
		Hooks:          d.hookChain,
		Subagents:      d.roles,
		AllowedTools:   namespacedToolNames(d.tools),
		TurnCeiling:    d.cfg.TurnCeiling,
		CostCeiling:    d.cfg.CostCeiling,
		PermissionMode: "accept_edits",
	}
}

func namespacedToolNames(c *catalog.Catalog) []string {
	if c == nil {
		return nil
	}
	names := c.Names()
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = catalog.Namespace + n
	}
	return out
}

// costWarningThreshold is the fraction of the cost ceiling past which
// completion logs a warning (spec.md §4.5: "if cost exceeds 80% of the
// ceiling, logs a warning").
const costWarningThreshold = 0.8

func (d *Driver) logCompletion(mode string, res RunResult) {
	evt := d.logger.Info().
		Str("mode", mode).
		Float64("cost", res.Cost).
		Int("turns", res.Turns).
		Str("session_id", res.SessionID)
	if d.cfg.ProjectScope != "" {
		evt = evt.Str("project_id", d.cfg.ProjectScope)
	}
	evt.Msg("agent run completed")
	if d.cfg.CostCeiling > 0 && res.Cost > costWarningThreshold*d.cfg.CostCeiling {
		d.logger.Warn().
			Float64("cost", res.Cost).
			Float64("ceiling", d.cfg.CostCeiling).
			Msg("agent run exceeded 80% of its cost ceiling")
	}
}

// Run is the one-shot execution mode: it wraps prompt in a one-element
// input stream, runs the agent loop to a terminal result, and returns the
// final assistant text.
func (d *Driver) Run(ctx context.Context, prompt string) (string, error) {
	res, err := d.runtime.Run(ctx, d.runtimeConfig(), prompt)
	if err != nil {
		return "", err
	}
	d.logCompletion("run", res)
	return res.Text, nil
}

// Stream is the streaming execution mode: it yields text, tool_call, and a
// terminal result event.
func (d *Driver) Stream(ctx context.Context, prompt string, emit func(Event)) error {
	var terminal *RunResult
	wrap := func(e Event) {
		if e.Kind == EventResult {
			r := RunResult{Text: e.Text, Cost: e.Cost, Turns: e.Turns, SessionID: e.SessionID}
			terminal = &r
		}
		emit(e)
	}
	if err := d.runtime.Stream(ctx, d.runtimeConfig(), prompt, wrap); err != nil {
		return err
	}
	if terminal != nil {
		d.logCompletion("stream", *terminal)
	}
	return nil
}

// AgentSession is the multi-turn execution mode's scoped object: entering
// opens the underlying runtime client exactly once, exiting (Close) closes
// it exactly once.
type AgentSession struct {
	underlying Session
	closeOnce  sync.Once
}

// OpenSession enters the multi-turn session scope.
func (d *Driver) OpenSession(ctx context.Context) (*AgentSession, error) {
	s, err := d.runtime.OpenSession(ctx, d.runtimeConfig())
	if err != nil {
		return nil, err
	}
	return &AgentSession{underlying: s}, nil
}

// Send sends one message in the session and returns the reply text.
func (s *AgentSession) Send(ctx context.Context, message string) (string, error) {
	return s.underlying.Send(ctx, message)
}

// Close idempotently closes the session's underlying runtime client.
func (s *AgentSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.underlying.Close()
	})
	return err
}

// Close releases the driver's shared runtime resources (spec.md §4.5:
// "Shutdown: a close operation closes the shared HTTP client"). Idempotent.
func (d *Driver) Close() {
	d.closeOnce.Do(func() {
		d.runtime.Close()
	})
}
