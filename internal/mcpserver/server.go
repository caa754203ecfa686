// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Othala tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/othala/internal/checklistservice"
)

// Server wraps the MCP server with Othala tools.
type Server struct {
	mcp *server.MCPServer
	svc *checklistservice.Service
}

// New creates a new MCP server with all Othala tools registered.
func New(svc *checklistservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Othala",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_checklists",
		mcp.WithDescription("Full-text search through a user's checklists (titles and item texts)."),
		mcp.WithString("owner", mcp.Required(), mcp.Description("Username whose checklists to search")),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchChecklists)

	s.mcp.AddTool(mcp.NewTool("read_checklist",
		mcp.WithDescription("Read one checklist as structured JSON (title, type, nested items with status and time tracking)."),
		mcp.WithString("owner", mcp.Required(), mcp.Description("Username owning the checklist")),
		mcp.WithString("category", mcp.Required(), mcp.Description("Category the checklist lives in")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Checklist identifier")),
	), s.readChecklist)

	s.mcp.AddTool(mcp.NewTool("list_checklists",
		mcp.WithDescription("List a user's checklists with progress counts, optionally filtered by category."),
		mcp.WithString("owner", mcp.Required(), mcp.Description("Username whose checklists to list")),
		mcp.WithString("category", mcp.Description("Optional category filter (empty for all)")),
	), s.listChecklists)

	s.mcp.AddTool(mcp.NewTool("checklist_history",
		mcp.WithDescription("Read the version history of a checklist: one entry per recorded change, newest first."),
		mcp.WithString("owner", mcp.Required(), mcp.Description("Username owning the checklist")),
		mcp.WithString("category", mcp.Required(), mcp.Description("Category the checklist lives in")),
		mcp.WithString("id", mcp.Required(), mcp.Description("Checklist identifier")),
		mcp.WithString("page", mcp.Description("1-based page number (default 1)")),
	), s.checklistHistory)

	s.mcp.AddTool(mcp.NewTool("get_document_contract",
		mcp.WithDescription("Returns the canonical Othala checklist document format. "+
			"Call this before hand-writing checklist markdown to ensure correct structure."),
	), s.getDocumentContract)

	// Resource: document format contract.
	s.mcp.AddResource(
		mcp.NewResource("othala://document-format", "Checklist Document Format",
			mcp.WithResourceDescription("Canonical Markdown checklist format that all documents follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDocumentFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchChecklists(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, err := req.RequireString("owner")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, owner, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readChecklist(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, category, id, errResult := docArgs(req)
	if errResult != nil {
		return errResult, nil
	}
	d, err := s.svc.Get(ctx, owner, category, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s/%s/%s", owner, category, id)), nil
	}
	out, _ := json.MarshalIndent(d, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listChecklists(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, err := req.RequireString("owner")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	category := ""
	if c, cerr := req.RequireString("category"); cerr == nil {
		category = c
	}

	items, total, err := s.svc.List(ctx, owner, category, 100, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(map[string]any{"checklists": items, "total": total}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) checklistHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	owner, category, id, errResult := docArgs(req)
	if errResult != nil {
		return errResult, nil
	}
	page := 1
	if p, perr := req.RequireString("page"); perr == nil {
		if n, aerr := strconv.Atoi(p); aerr == nil {
			page = n
		}
	}

	entries, hasMore, err := s.svc.History(ctx, owner, category, id, page, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(map[string]any{"entries": entries, "has_more": hasMore}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getDocumentContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(DocumentFormatContract), nil
}

func (s *Server) readDocumentFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "othala://document-format",
			MIMEType: "text/markdown",
			Text:     DocumentFormatContract,
		},
	}, nil
}

func docArgs(req mcp.CallToolRequest) (owner, category, id string, errResult *mcp.CallToolResult) {
	var err error
	if owner, err = req.RequireString("owner"); err != nil {
		return "", "", "", mcp.NewToolResultError(err.Error())
	}
	if category, err = req.RequireString("category"); err != nil {
		return "", "", "", mcp.NewToolResultError(err.Error())
	}
	if id, err = req.RequireString("id"); err != nil {
		return "", "", "", mcp.NewToolResultError(err.Error())
	}
	return owner, category, id, nil
}
