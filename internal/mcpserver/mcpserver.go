// Package mcpserver exposes the Tool Catalog (spec.md §4.2) to an LLM
// runtime as an in-process MCP tool server, using
// github.com/modelcontextprotocol/go-sdk/mcp's generic AddTool — the input
// schema for every tool is inferred from its typed Go request struct,
// exactly the way batalabs-muxd/internal/mcp/manager.go consumes an
// upstream server's tools, just running in the opposite direction: this
// package is the server, not the client.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/turboagent/turbo-agent/internal/catalog"
)

// Implementation identifies this server to the LLM runtime.
var Implementation = &mcp.Implementation{
	Name:    "turbo-agent",
	Version: "0.1.0",
}

// Build registers every tool in cat against a fresh *mcp.Server.
func Build(cat *catalog.Catalog) *mcp.Server {
	server := mcp.NewServer(Implementation, nil)

	register[catalog.ListProjectsInput](server, cat, "list_projects")
	register[catalog.GetProjectInput](server, cat, "get_project")
	register[catalog.GetProjectIssuesInput](server, cat, "get_project_issues")
	register[catalog.ListIssuesInput](server, cat, "list_issues")
	register[catalog.GetIssueInput](server, cat, "get_issue")
	register[catalog.CreateIssueInput](server, cat, "create_issue")
	register[catalog.UpdateIssueInput](server, cat, "update_issue")
	register[catalog.StartIssueWorkInput](server, cat, "start_issue_work")
	register[catalog.GetWorkQueueInput](server, cat, "get_work_queue")
	register[catalog.GetNextIssueInput](server, cat, "get_next_issue")
	register[catalog.LogWorkInput](server, cat, "log_work")
	register[catalog.ListInitiativesInput](server, cat, "list_initiatives")
	register[catalog.ListDecisionsInput](server, cat, "list_decisions")
	register[catalog.CreateDecisionInput](server, cat, "create_decision")
	register[catalog.AddCommentInput](server, cat, "add_comment")
	register[catalog.ProjectStatusSummaryInput](server, cat, "project_status_summary")

	return server
}

// register wires one catalog tool into server under its typed input T. The
// MCP SDK infers the tool's JSON Schema from T via reflection; our own
// validator-tag validation still runs inside tool.Handler by re-decoding
// the same input as a map, so a malformed call is rejected the same way
// whether it arrives via MCP or via a direct catalog.Tool.Handler call in
// tests.
func register[T any](server *mcp.Server, cat *catalog.Catalog, name string) {
	tool, ok := cat.Find(name)
	if !ok {
		return
	}
	mcp.AddTool(server, &mcp.Tool{
		Name:        tool.NamespacedName(),
		Description: tool.Description,
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input T) (*mcp.CallToolResult, any, error) {
		raw, err := toMap(input)
		if err != nil {
			return nil, nil, err
		}
		res, err := tool.Handler(ctx, raw)
		if err != nil {
			return nil, nil, err
		}
		return toCallToolResult(res), nil, nil
	})
}

func toMap(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func toCallToolResult(res catalog.Result) *mcp.CallToolResult {
	content := make([]mcp.Content, 0, len(res.Content))
	for _, c := range res.Content {
		content = append(content, &mcp.TextContent{Text: c.Text})
	}
	return &mcp.CallToolResult{Content: content, IsError: res.IsError}
}
