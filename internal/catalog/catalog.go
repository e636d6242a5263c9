// Package catalog is the Tool Catalog (spec.md §4.2): the fixed list of
// typed operations the control plane presents to the LLM runtime, each
// self-describing (name, description, JSON schema) and self-validating
// (rejects malformed input before any network I/O).
//
// Shape grounded on batalabs-muxd/internal/tools/tools.go's ToolDef/
// ToolSpec/ToolFunc/ToolContext/AllTools()/FindTool() registry, generalized
// from file/shell/web tools to the project-management operations of
// spec.md §4.2. JSON schema generation uses
// github.com/google/jsonschema-go (grounded on that registry's reliance on
// struct-tagged Go types) and input validation uses
// github.com/go-playground/validator/v10 tags on the same request structs.
package catalog

import (
	"context"
	"encoding/json"
)

// Kind partitions a tool into the read or write set (spec.md §4.2, §8
// invariant 1: every tool is in exactly one of these sets).
type Kind string

const (
	KindRead  Kind = "read"
	KindWrite Kind = "write"
)

// Namespace is the tool-server prefix every backing-service tool name
// carries once exposed to the LLM runtime (spec.md §4.3's "tool-server
// namespace", e.g. `mcp__turbo__list_projects`).
const Namespace = "mcp__turbo__"

// Content is one block of a tool result, mirroring the text-content array
// shape spec.md §4.2 requires ("Every handler returns a structured response
// with ... a text-content array").
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Result is a tool handler's structured response envelope.
type Result struct {
	Content []Content `json:"content"`
	IsError bool      `json:"is_error,omitempty"`
}

// TextResult builds a successful Result from a single text block.
func TextResult(text string) Result {
	return Result{Content: []Content{{Type: "text", Text: text}}}
}

// ErrorResult builds an error-flagged Result whose text is the agent-facing
// repair message (spec.md §7).
func ErrorResult(message string) Result {
	return Result{Content: []Content{{Type: "text", Text: message}}, IsError: true}
}

// JSONResult pretty-prints v as the text block of a successful Result
// (spec.md §4.2: "The body of a success is a pretty-printed JSON
// representation of the backing service's payload").
func JSONResult(v any) (Result, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return Result{}, err
	}
	return TextResult(string(b)), nil
}

// Handler executes one tool call. input has already passed schema
// validation by the time a Handler runs.
type Handler func(ctx context.Context, input map[string]any) (Result, error)

// Tool is one catalog entry: name, human description, read/write partition,
// input validation, and the bound handler. The tool's JSON Schema is not
// carried here: it is inferred by the LLM runtime's MCP exposition layer
// from the typed Go struct each Validate func decodes into, the same way
// github.com/modelcontextprotocol/go-sdk's mcp.AddTool infers a tool's
// input schema from its handler's typed parameter.
type Tool struct {
	// Name is the bare tool name, without the tool-server namespace (e.g.
	// "list_projects"). NamespacedName() renders the form the LLM runtime
	// sees.
	Name        string
	Description string
	Kind        Kind
	// Validate decodes raw into the tool's typed request struct and runs
	// struct validation (github.com/go-playground/validator/v10 tags). It
	// returns the decoded struct (as any) or a validation error whose
	// message is ready to wrap in toolerrors.Validation.
	Validate func(raw map[string]any) (any, error)
	Handler  Handler
}

// NamespacedName renders the tool's LLM-facing name.
func (t Tool) NamespacedName() string {
	return Namespace + t.Name
}

// Catalog is the full, fixed tool list plus convenience indexes.
type Catalog struct {
	tools   []Tool
	byName  map[string]*Tool
	readSet map[string]bool
}

// New builds a Catalog from tools. Panics on a duplicate name — the catalog
// is built once at process start from a fixed literal list, so a duplicate
// is a programming error, not a runtime condition.
func New(tools []Tool) *Catalog {
	c := &Catalog{
		tools:   tools,
		byName:  make(map[string]*Tool, len(tools)),
		readSet: make(map[string]bool, len(tools)),
	}
	for i := range tools {
		t := &tools[i]
		if _, dup := c.byName[t.Name]; dup {
			panic("catalog: duplicate tool name " + t.Name)
		}
		c.byName[t.Name] = t
		c.readSet[t.Name] = t.Kind == KindRead
	}
	return c
}

// Find looks up a tool by its bare name (without the Namespace prefix).
func (c *Catalog) Find(name string) (*Tool, bool) {
	t, ok := c.byName[name]
	return t, ok
}

// All returns every tool in catalog order.
func (c *Catalog) All() []Tool {
	return c.tools
}

// Names returns every bare tool name in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.tools))
	for i, t := range c.tools {
		names[i] = t.Name
	}
	return names
}

// IsRead reports whether name is in the read set. Used by the hook
// pipeline's cross-project-read classification (spec.md §4.3).
func (c *Catalog) IsRead(name string) bool {
	return c.readSet[name]
}

// IsWrite reports whether name is in the write set.
func (c *Catalog) IsWrite(name string) bool {
	t, ok := c.byName[name]
	return ok && t.Kind == KindWrite
}
