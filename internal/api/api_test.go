package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/othala/internal/checklistservice"
	"github.com/starford/othala/internal/history"
	"github.com/starford/othala/internal/index"
	"github.com/starford/othala/internal/lockfile"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/storage"
)

// testEnv sets up a temp data dir, SQLite DB, service, and router.
// authToken == "" means auth disabled. The journal is active only when the
// git binary is available and journaled is true.
func testEnv(t *testing.T, authToken string, journaled bool) (*checklistservice.Service, http.Handler, string) {
	t.Helper()

	dataDir := t.TempDir()
	store, err := storage.NewFS(dataDir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}

	dbFile, err := os.CreateTemp("", "othala-api-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	locks := lockfile.NewManager(lockfile.Options{
		StaleAfter: time.Minute,
		Retries:    3,
		Backoff:    5 * time.Millisecond,
		MaxBackoff: 20 * time.Millisecond,
	})
	journal := history.NewStore(journaled, locks)
	svc := checklistservice.NewService(store, db, journal, nil, dataDir)
	router := NewRouter(svc, authToken != "", authToken, nil, dataDir)
	return svc, router, dataDir
}

func do(t *testing.T, router http.Handler, method, target string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createChecklist(t *testing.T, router http.Handler, owner, category, title string, texts ...string) ChecklistDetail {
	t.Helper()
	c := models.Checklist{Title: title}
	for i, txt := range texts {
		c.Items = append(c.Items, models.Item{Text: txt, Order: i})
	}
	w := do(t, router, http.MethodPost, "/checklists/"+owner+"/"+category, c, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var d ChecklistDetail
	if err := json.Unmarshal(w.Body.Bytes(), &d); err != nil {
		t.Fatal(err)
	}
	return d
}

func TestCreateAndGetChecklist(t *testing.T) {
	_, router, _ := testEnv(t, "", false)

	d := createChecklist(t, router, "ana", "home", "Groceries", "Milk", "Eggs")
	if d.Checklist.ID == "" || d.Checksum == "" {
		t.Fatalf("detail incomplete: %+v", d)
	}

	w := do(t, router, http.MethodGet, "/checklists/ana/home/"+d.Checklist.ID, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var got ChecklistDetail
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Checklist.Title != "Groceries" || len(got.Checklist.Items) != 2 {
		t.Errorf("got %q with %d items", got.Checklist.Title, len(got.Checklist.Items))
	}
}

func TestGetChecklist_NotFound(t *testing.T) {
	_, router, _ := testEnv(t, "", false)
	w := do(t, router, http.MethodGet, "/checklists/ana/home/missing", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestCreateChecklist_Validation(t *testing.T) {
	_, router, _ := testEnv(t, "", false)
	w := do(t, router, http.MethodPost, "/checklists/ana/home", models.Checklist{}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing title status = %d, want 400", w.Code)
	}
}

func TestUpdateChecklist_IfMatch(t *testing.T) {
	_, router, _ := testEnv(t, "", false)
	d := createChecklist(t, router, "ana", "home", "Groceries", "Milk")
	id := d.Checklist.ID

	upd := *d.Checklist
	upd.Items[0].Completed = true

	w := do(t, router, http.MethodPut, "/checklists/ana/home/"+id, upd,
		map[string]string{"If-Match": `"wrong-checksum"`})
	if w.Code != http.StatusConflict {
		t.Fatalf("stale update status = %d, want 409", w.Code)
	}

	w = do(t, router, http.MethodPut, "/checklists/ana/home/"+id, upd,
		map[string]string{"If-Match": `"` + d.Checksum + `"`})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", w.Code, w.Body.String())
	}
	var updated ChecklistDetail
	_ = json.Unmarshal(w.Body.Bytes(), &updated)
	if !updated.Checklist.Items[0].Completed {
		t.Error("update not applied")
	}
}

func TestRenameAndMove(t *testing.T) {
	_, router, _ := testEnv(t, "", false)
	d := createChecklist(t, router, "ana", "home", "Old Name", "x")
	id := d.Checklist.ID

	w := do(t, router, http.MethodPost, "/checklists/ana/home/"+id+"/rename",
		RenameRequest{Title: "New Name"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("rename status = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodPost, "/checklists/ana/home/"+id+"/move",
		MoveRequest{Category: "errands"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("move status = %d, body = %s", w.Code, w.Body.String())
	}

	if w := do(t, router, http.MethodGet, "/checklists/ana/home/"+id, nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("old location status = %d, want 404", w.Code)
	}
	w = do(t, router, http.MethodGet, "/checklists/ana/errands/"+id, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("new location status = %d", w.Code)
	}
	var got ChecklistDetail
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Checklist.Title != "New Name" {
		t.Errorf("title = %q", got.Checklist.Title)
	}
}

func TestDeleteChecklist(t *testing.T) {
	_, router, _ := testEnv(t, "", false)
	d := createChecklist(t, router, "ana", "home", "Gone", "x")

	w := do(t, router, http.MethodDelete, "/checklists/ana/home/"+d.Checklist.ID, nil, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = do(t, router, http.MethodDelete, "/checklists/ana/home/"+d.Checklist.ID, nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}

func TestListChecklists(t *testing.T) {
	_, router, _ := testEnv(t, "", false)
	createChecklist(t, router, "ana", "home", "A", "x")
	createChecklist(t, router, "ana", "work", "B", "y")
	createChecklist(t, router, "bob", "home", "C", "z")

	w := do(t, router, http.MethodGet, "/checklists/ana", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var resp ChecklistListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 2 || len(resp.Checklists) != 2 {
		t.Errorf("list = %d rows, total %d; want 2, 2", len(resp.Checklists), resp.Total)
	}

	w = do(t, router, http.MethodGet, "/checklists/ana?category=work", nil, nil)
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 || resp.Checklists[0].Title != "B" {
		t.Errorf("filtered list = %+v", resp)
	}
}

func TestSearch(t *testing.T) {
	_, router, _ := testEnv(t, "", false)
	createChecklist(t, router, "ana", "home", "Groceries", "buy saffron")

	w := do(t, router, http.MethodGet, "/search?owner=ana&q=saffron", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search status = %d", w.Code)
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 {
		t.Errorf("results = %+v, want 1 hit", resp.Results)
	}

	if w := do(t, router, http.MethodGet, "/search?q=saffron", nil, nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing owner status = %d, want 400", w.Code)
	}
}

func TestHistory_JournalDisabled(t *testing.T) {
	_, router, _ := testEnv(t, "", false)
	d := createChecklist(t, router, "ana", "home", "Quiet", "x")

	w := do(t, router, http.MethodGet, "/checklists/ana/home/"+d.Checklist.ID+"/history", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("history status = %d", w.Code)
	}
	var resp HistoryResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Entries) != 0 || resp.HasMore {
		t.Errorf("disabled journal returned %+v", resp)
	}
}

func TestVersion_InvalidHash(t *testing.T) {
	_, router, _ := testEnv(t, "", false)
	w := do(t, router, http.MethodGet, "/checklists/ana/home/c1/versions/not-a-hash", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRestore_Forbidden(t *testing.T) {
	_, router, _ := testEnv(t, "", false)
	w := do(t, router, http.MethodPost, "/checklists/ana/home/c1/versions/abc1234/restore", nil,
		map[string]string{"X-Actor": "mallory"})
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestHistoryAndRestore_EndToEnd(t *testing.T) {
	if !history.Available() {
		t.Skip("git binary not installed")
	}
	_, router, _ := testEnv(t, "", true)

	d := createChecklist(t, router, "ana", "home", "Groceries", "Milk")
	id := d.Checklist.ID

	upd := *d.Checklist
	upd.Items[0].Completed = true
	if w := do(t, router, http.MethodPut, "/checklists/ana/home/"+id, upd, nil); w.Code != http.StatusOK {
		t.Fatalf("update status = %d", w.Code)
	}

	w := do(t, router, http.MethodGet, "/checklists/ana/home/"+id+"/history", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("history status = %d", w.Code)
	}
	var hist HistoryResponse
	_ = json.Unmarshal(w.Body.Bytes(), &hist)
	if len(hist.Entries) != 2 {
		t.Fatalf("history = %d entries, want 2", len(hist.Entries))
	}
	createHash := hist.Entries[1].CommitHash

	w = do(t, router, http.MethodGet, "/checklists/ana/home/"+id+"/versions/"+createHash, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("version status = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodPost, "/checklists/ana/home/"+id+"/versions/"+createHash+"/restore", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("restore status = %d, body = %s", w.Code, w.Body.String())
	}
	var restored ChecklistDetail
	_ = json.Unmarshal(w.Body.Bytes(), &restored)
	if restored.Checklist.Items[0].Completed {
		t.Error("restore did not revert the item")
	}
}

func TestAuthMiddleware(t *testing.T) {
	_, router, _ := testEnv(t, "secret-token", false)

	w := do(t, router, http.MethodGet, "/checklists/ana", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token status = %d, want 401", w.Code)
	}

	w = do(t, router, http.MethodGet, "/checklists/ana", nil,
		map[string]string{"Authorization": "Bearer wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token status = %d, want 401", w.Code)
	}

	w = do(t, router, http.MethodGet, "/checklists/ana", nil,
		map[string]string{"Authorization": "Bearer secret-token"})
	if w.Code != http.StatusOK {
		t.Fatalf("valid token status = %d, want 200", w.Code)
	}
}

func TestAttachmentUploadAndServe(t *testing.T) {
	_, router, dataDir := testEnv(t, "", false)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "receipt.txt")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = part.Write([]byte("total: 12.50"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/attachments/ana", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body = %s", w.Code, w.Body.String())
	}

	if _, err := os.Stat(filepath.Join(dataDir, "ana", "files", "receipt.txt")); err != nil {
		t.Fatalf("uploaded file missing: %v", err)
	}

	get := do(t, router, http.MethodGet, "/attachments/ana/receipt.txt", nil, nil)
	if get.Code != http.StatusOK || get.Body.String() != "total: 12.50" {
		t.Errorf("serve = %d %q", get.Code, get.Body.String())
	}
}

func TestAttachmentUpload_RejectsTraversal(t *testing.T) {
	_, router, _ := testEnv(t, "", false)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "../../escape.txt")
	_, _ = part.Write([]byte("nope"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/attachments/ana", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("traversal upload status = %d, want 400", w.Code)
	}
}
