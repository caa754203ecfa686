package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/othala/internal/checklistservice"
	"github.com/starford/othala/internal/history"
	"github.com/starford/othala/internal/lockfile"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/testutil"
)

func testServer(t *testing.T) (*Server, *checklistservice.Service) {
	t.Helper()

	dataDir, store := testutil.TestDataDir(t)
	db := testutil.TestDB(t)

	locks := lockfile.NewManager(lockfile.Options{
		StaleAfter: time.Minute,
		Retries:    3,
		Backoff:    5 * time.Millisecond,
		MaxBackoff: 20 * time.Millisecond,
	})
	svc := checklistservice.NewService(store, db, history.NewStore(false, locks), nil, dataDir)
	return New(svc), svc
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go doesn't expose a direct "call tool" test helper, so we test
	// through the tool handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_checklists":
		result, err = srv.searchChecklists(ctx, req)
	case "read_checklist":
		result, err = srv.readChecklist(ctx, req)
	case "list_checklists":
		result, err = srv.listChecklists(ctx, req)
	case "checklist_history":
		result, err = srv.checklistHistory(ctx, req)
	case "get_document_contract":
		result, err = srv.getDocumentContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func seedChecklist(t *testing.T, svc *checklistservice.Service, owner, category, title string, texts ...string) string {
	t.Helper()
	c := &models.Checklist{Title: title}
	for i, txt := range texts {
		c.Items = append(c.Items, models.Item{Text: txt, Order: i})
	}
	d, err := svc.Create(context.Background(), owner, category, c)
	if err != nil {
		t.Fatal(err)
	}
	return d.Checklist.ID
}

func TestReadChecklist(t *testing.T) {
	srv, svc := testServer(t)
	id := seedChecklist(t, svc, "ana", "home", "Groceries", "Milk", "Eggs")

	r := callTool(t, srv, "read_checklist", map[string]interface{}{
		"owner": "ana", "category": "home", "id": id,
	})
	if r.IsError {
		t.Fatalf("read errored: %s", resultText(r))
	}
	var d checklistservice.Detail
	if err := json.Unmarshal([]byte(resultText(r)), &d); err != nil {
		t.Fatalf("result not JSON: %v", err)
	}
	if d.Checklist.Title != "Groceries" || len(d.Checklist.Items) != 2 {
		t.Errorf("detail = %+v", d.Checklist)
	}
}

func TestReadChecklist_Missing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_checklist", map[string]interface{}{
		"owner": "ana", "category": "home", "id": "nope",
	})
	if !r.IsError {
		t.Error("expected error for missing checklist")
	}
}

func TestListChecklists(t *testing.T) {
	srv, svc := testServer(t)
	seedChecklist(t, svc, "ana", "home", "A", "x")
	seedChecklist(t, svc, "ana", "work", "B", "y")

	r := callTool(t, srv, "list_checklists", map[string]interface{}{"owner": "ana"})
	text := resultText(r)
	if !strings.Contains(text, `"total": 2`) {
		t.Errorf("list = %q", text)
	}

	r = callTool(t, srv, "list_checklists", map[string]interface{}{"owner": "ana", "category": "work"})
	text = resultText(r)
	if !strings.Contains(text, `"total": 1`) || !strings.Contains(text, `"B"`) {
		t.Errorf("filtered list = %q", text)
	}
}

func TestSearchChecklists(t *testing.T) {
	srv, svc := testServer(t)
	seedChecklist(t, svc, "ana", "home", "Groceries", "buy cardamom")

	r := callTool(t, srv, "search_checklists", map[string]interface{}{
		"owner": "ana", "query": "cardamom",
	})
	if r.IsError {
		t.Fatalf("search errored: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "Groceries") {
		t.Errorf("search = %q", resultText(r))
	}
}

func TestChecklistHistory_JournalDisabled(t *testing.T) {
	srv, svc := testServer(t)
	id := seedChecklist(t, svc, "ana", "home", "Quiet", "x")

	r := callTool(t, srv, "checklist_history", map[string]interface{}{
		"owner": "ana", "category": "home", "id": id,
	})
	if r.IsError {
		t.Fatalf("history errored: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), `"entries"`) {
		t.Errorf("history = %q", resultText(r))
	}
}

func TestGetDocumentContract(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_document_contract", nil)
	text := resultText(r)
	if !strings.Contains(text, "type:task") || !strings.Contains(text, "status") {
		t.Errorf("contract missing expected sections: %q", text)
	}
}
