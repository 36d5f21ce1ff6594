package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/scriptorium/internal/assets"
	"github.com/starford/scriptorium/internal/models"
	"github.com/starford/scriptorium/internal/testutil"
	"github.com/starford/scriptorium/internal/workspace"
)

// testEnv sets up an in-memory store, service and router for testing.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) http.Handler {
	t.Helper()
	router, _ := testEnvWithFiles(t, authToken != "", authToken)
	return router
}

func testEnvWithFiles(t *testing.T, authEnabled bool, authToken string) (http.Handler, *assets.Dir) {
	t.Helper()

	files := testutil.TestAssets(t)
	svc := workspace.NewService(testutil.TestStore(t), nil)
	return NewRouter(svc, authEnabled, authToken, nil, files), files
}

func do(t *testing.T, router http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeAs[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func TestCreateAndPatchSubject(t *testing.T) {
	router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/subjects", `{"title":"A","description":"B"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	subj := decodeAs[models.Subject](t, w)
	if subj.ID != 1 {
		t.Errorf("id = %d, want 1", subj.ID)
	}
	if subj.CoverColor != "#e2e8f0" || subj.Visibility != "private" {
		t.Errorf("defaults = %q %q", subj.CoverColor, subj.Visibility)
	}
	if subj.Tags == nil || len(subj.Tags) != 0 {
		t.Errorf("tags = %v, want []", subj.Tags)
	}
	if !strings.Contains(w.Body.String(), `"tags":[]`) {
		t.Errorf("tags should encode as []: %s", w.Body.String())
	}

	w = do(t, router, http.MethodPatch, "/subjects/1", `{"title":"Z"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body = %s", w.Code, w.Body.String())
	}
	patched := decodeAs[models.Subject](t, w)
	if patched.Title != "Z" || patched.Description != "B" {
		t.Errorf("patched = %q / %q", patched.Title, patched.Description)
	}
	if !patched.CreatedAt.Equal(subj.CreatedAt) {
		t.Error("createdAt changed on update")
	}
	if !patched.UpdatedAt.After(subj.UpdatedAt) {
		t.Error("updatedAt should increase")
	}
}

func TestGetSubject(t *testing.T) {
	router := testEnv(t, "")
	do(t, router, http.MethodPost, "/subjects", `{"title":"A","description":""}`)

	w := do(t, router, http.MethodGet, "/subjects/1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	if w.Header().Get("ETag") == "" {
		t.Error("missing ETag header")
	}

	w = do(t, router, http.MethodGet, "/subjects/999", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing subject = %d, want 404", w.Code)
	}
	if resp := decodeAs[errResponse](t, w); resp.Message != "Subject not found" {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestNonNumericIDs(t *testing.T) {
	router := testEnv(t, "")
	do(t, router, http.MethodPost, "/subjects", `{"title":"A","description":""}`)
	do(t, router, http.MethodPost, "/documents", `{"subjectId":1,"title":"d","description":"","fileName":"d.pdf"}`)

	if w := do(t, router, http.MethodGet, "/subjects/abc", ""); w.Code != http.StatusNotFound {
		t.Errorf("GET /subjects/abc = %d, want 404", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/reports/xyz", ""); w.Code != http.StatusNotFound {
		t.Errorf("GET /reports/xyz = %d, want 404", w.Code)
	}
	w := do(t, router, http.MethodGet, "/subjects/abc/documents", "")
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("list for bad id = %d %s, want 200 []", w.Code, w.Body.String())
	}
}

func TestCreateSubject_ValidationError(t *testing.T) {
	router := testEnv(t, "")

	cases := []struct {
		name  string
		body  string
		field string
	}{
		{"missing title", `{"description":"x"}`, "title"},
		{"title wrong type", `{"title":5,"description":"x"}`, "title"},
		{"bad visibility", `{"title":"a","description":"x","visibility":"secret"}`, "visibility"},
		{"bad color", `{"title":"a","description":"x","coverColor":"red"}`, "coverColor"},
		{"not an object", `[1,2]`, ""},
		{"malformed", `{"title":`, ""},
		{"empty", ``, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/subjects", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400, body = %s", w.Code, w.Body.String())
			}
			resp := decodeAs[errResponse](t, w)
			if resp.Field != tc.field {
				t.Errorf("field = %q, want %q", resp.Field, tc.field)
			}
			if resp.Message == "" {
				t.Error("empty message")
			}
		})
	}

	w := do(t, router, http.MethodGet, "/subjects", "")
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("rejected creates should store nothing: %s", w.Body.String())
	}
}

func TestPatchSubject_NotFound(t *testing.T) {
	router := testEnv(t, "")

	w := do(t, router, http.MethodPatch, "/subjects/42", `{"title":"x"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("patch missing = %d, want 404", w.Code)
	}
}

func TestPatchSubject_IfMatch(t *testing.T) {
	router := testEnv(t, "")
	w := do(t, router, http.MethodPost, "/subjects", `{"title":"A","description":""}`)
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("create should return ETag")
	}

	w = do(t, router, http.MethodPatch, "/subjects/1", `{"title":"B"}`, "If-Match", etag)
	if w.Code != http.StatusOK {
		t.Fatalf("matching If-Match = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodPatch, "/subjects/1", `{"title":"C"}`, "If-Match", etag)
	if w.Code != http.StatusConflict {
		t.Errorf("stale If-Match = %d, want 409", w.Code)
	}
}

func TestPatchSubject_IfMatchWildcard(t *testing.T) {
	router := testEnv(t, "")
	do(t, router, http.MethodPost, "/subjects", `{"title":"A","description":""}`)

	w := do(t, router, http.MethodPatch, "/subjects/1", `{"title":"B"}`, "If-Match", "*")
	if w.Code != http.StatusOK {
		t.Fatalf("If-Match * = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodPatch, "/subjects/2", `{"title":"B"}`, "If-Match", "*")
	if w.Code != http.StatusNotFound {
		t.Errorf("If-Match * on missing subject = %d, want 404", w.Code)
	}
}

func TestPatchReport_IfMatchWeakTag(t *testing.T) {
	router := testEnv(t, "")
	w := do(t, router, http.MethodPost, "/reports", `{"subjectId":1,"title":"Draft","content":""}`)
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("create should return ETag")
	}

	w = do(t, router, http.MethodPatch, "/reports/1", `{"content":"x"}`, "If-Match", "W/"+etag)
	if w.Code != http.StatusOK {
		t.Fatalf("weak If-Match = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodPatch, "/reports/1", `{"content":"y"}`, "If-Match", "W/"+etag)
	if w.Code != http.StatusConflict {
		t.Errorf("stale weak If-Match = %d, want 409", w.Code)
	}
}

func TestReportLifecycle(t *testing.T) {
	router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/reports", `{"subjectId":1,"title":"Draft","content":"# Notes"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create report = %d, body = %s", w.Code, w.Body.String())
	}
	rep := decodeAs[models.Report](t, w)
	if rep.Status != models.ReportDraft {
		t.Errorf("status = %q, want draft", rep.Status)
	}

	w = do(t, router, http.MethodPatch, "/reports/1", `{"status":"final"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("patch report = %d, body = %s", w.Code, w.Body.String())
	}
	if got := decodeAs[models.Report](t, w); got.Status != models.ReportFinal || got.Content != "# Notes" {
		t.Errorf("patched = %+v", got)
	}

	w = do(t, router, http.MethodPatch, "/reports/1", `{"status":"published"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad status = %d, want 400", w.Code)
	}

	w = do(t, router, http.MethodGet, "/reports/2", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing report = %d, want 404", w.Code)
	}
	if resp := decodeAs[errResponse](t, w); resp.Message != "Report not found" {
		t.Errorf("message = %q", resp.Message)
	}

	w = do(t, router, http.MethodGet, "/subjects/1/reports", "")
	if got := decodeAs[[]models.Report](t, w); len(got) != 1 {
		t.Errorf("reports = %d, want 1", len(got))
	}
}

func TestDocumentsAndTimeline(t *testing.T) {
	router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/documents", `{"subjectId":1,"title":"Paper","description":"","fileName":"p.pdf"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create document = %d, body = %s", w.Code, w.Body.String())
	}
	doc := decodeAs[models.Document](t, w)
	if doc.LinkedReportIDs == nil || len(doc.LinkedReportIDs) != 0 {
		t.Errorf("linkedReportIds = %v, want []", doc.LinkedReportIDs)
	}

	w = do(t, router, http.MethodPost, "/documents", `{"subjectId":1,"title":"No file","description":""}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing fileName = %d, want 400", w.Code)
	}
	if resp := decodeAs[errResponse](t, w); resp.Field != "fileName" {
		t.Errorf("field = %q, want fileName", resp.Field)
	}

	w = do(t, router, http.MethodGet, "/subjects/1/documents", "")
	if got := decodeAs[[]models.Document](t, w); len(got) != 1 {
		t.Errorf("documents = %d, want 1", len(got))
	}
	w = do(t, router, http.MethodGet, "/subjects/2/documents", "")
	if got := decodeAs[[]models.Document](t, w); len(got) != 0 {
		t.Errorf("documents for other subject = %d, want 0", len(got))
	}

	w = do(t, router, http.MethodGet, "/subjects/1/timeline", "")
	if w.Code != http.StatusOK {
		t.Fatalf("timeline = %d", w.Code)
	}
	events := decodeAs[[]models.TimelineEvent](t, w)
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].ID != "doc-1" || events[0].Type != models.EventDocumentUpload || events[0].ItemID != 1 {
		t.Errorf("event = %+v", events[0])
	}
	if events[0].Title != "Uploaded document: Paper" {
		t.Errorf("title = %q", events[0].Title)
	}
}

// Auth middleware tests.

func TestAuthMiddleware_ValidToken(t *testing.T) {
	router := testEnv(t, "secret123")

	w := do(t, router, http.MethodGet, "/subjects", "", "Authorization", "Bearer secret123")
	if w.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	router := testEnv(t, "secret123")

	w := do(t, router, http.MethodGet, "/subjects", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	router := testEnv(t, "secret123")

	w := do(t, router, http.MethodGet, "/subjects", "", "Authorization", "Bearer wrong")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/subjects", "")
	if w.Code != http.StatusOK {
		t.Errorf("disabled mode = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

// testEnvWithSSE creates a router with a stub SSE handler to test auth on /events.
func testEnvWithSSE(t *testing.T, authEnabled bool, token string) http.Handler {
	t.Helper()

	svc := workspace.NewService(testutil.TestStore(t), nil)

	sseHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})

	return NewRouter(svc, authEnabled, token, sseHandler, nil)
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	router := testEnvWithSSE(t, true, "secret")

	w := do(t, router, http.MethodGet, "/events", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router := testEnvWithSSE(t, true, "tok")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with valid token = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
}

// File tests.

func uploadFile(t *testing.T, router http.Handler, filename string, content []byte, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.Copy(part, bytes.NewReader(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUploadAndServeFile(t *testing.T) {
	router, files := testEnvWithFiles(t, false, "")

	w := uploadFile(t, router, "paper.pdf", []byte("%PDF-1.4 data"))
	if w.Code != http.StatusCreated {
		t.Fatalf("upload = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decodeAs[uploadResponse](t, w)
	if resp.FileName != "paper.pdf" || resp.URL != "/files/paper.pdf" || resp.Size != 13 {
		t.Errorf("upload response = %+v", resp)
	}

	data, err := os.ReadFile(filepath.Join(files.Root(), "paper.pdf"))
	if err != nil {
		t.Fatalf("file not on disk: %v", err)
	}
	if string(data) != "%PDF-1.4 data" {
		t.Error("content mismatch")
	}

	// Serve through a chi router the way the server mounts it.
	r := chi.NewRouter()
	r.Get("/files/{filename}", NewFileHandler(files).ServeFile)
	req := httptest.NewRequest(http.MethodGet, "/files/paper.pdf", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "%PDF-1.4 data" {
		t.Errorf("serve = %d %q", rec.Code, rec.Body.String())
	}
}

func TestUploadFile_DuplicateGetsNewName(t *testing.T) {
	router, _ := testEnvWithFiles(t, false, "")

	uploadFile(t, router, "scan.png", []byte("one"))
	w := uploadFile(t, router, "scan.png", []byte("two"))
	if w.Code != http.StatusCreated {
		t.Fatalf("second upload = %d", w.Code)
	}
	resp := decodeAs[uploadResponse](t, w)
	if resp.FileName == "scan.png" || !strings.HasSuffix(resp.FileName, ".png") {
		t.Errorf("duplicate name = %q", resp.FileName)
	}
}

func TestListFiles(t *testing.T) {
	router, _ := testEnvWithFiles(t, false, "")

	w := do(t, router, http.MethodGet, "/files", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list empty = %d, body = %s", w.Code, w.Body.String())
	}
	if got := decodeAs[[]fileEntry](t, w); len(got) != 0 {
		t.Errorf("empty dir listed %+v", got)
	}

	uploadFile(t, router, "b.txt", []byte("bb"))
	uploadFile(t, router, "a.txt", []byte("a"))

	w = do(t, router, http.MethodGet, "/files", "")
	got := decodeAs[[]fileEntry](t, w)
	if len(got) != 2 {
		t.Fatalf("listed %d files, want 2", len(got))
	}
	if got[0].FileName != "a.txt" || got[0].Size != 1 || got[0].URL != "/files/a.txt" {
		t.Errorf("first entry = %+v", got[0])
	}
	if got[1].FileName != "b.txt" || got[1].Size != 2 {
		t.Errorf("second entry = %+v", got[1])
	}
}

func TestServeFile_NotFound(t *testing.T) {
	_, files := testEnvWithFiles(t, false, "")
	r := chi.NewRouter()
	r.Get("/files/{filename}", NewFileHandler(files).ServeFile)

	req := httptest.NewRequest(http.MethodGet, "/files/nope.pdf", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing file = %d, want 404", w.Code)
	}
}

func TestServeFile_TraversalBlocked(t *testing.T) {
	_, files := testEnvWithFiles(t, false, "")
	r := chi.NewRouter()
	r.Get("/files/{filename}", NewFileHandler(files).ServeFile)

	for _, name := range []string{"../secret.md", "../../etc/passwd", ".hidden"} {
		req := httptest.NewRequest(http.MethodGet, "/files/"+name, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		// chi may not route the traversal paths at all (404), or the handler rejects (400).
		if w.Code == http.StatusOK {
			t.Errorf("traversal %q should not return 200", name)
		}
	}
}

func TestUploadFile_EscapeStaysInside(t *testing.T) {
	router, files := testEnvWithFiles(t, false, "")

	w := uploadFile(t, router, "../escape.txt", []byte("bad"))
	if w.Code == http.StatusCreated {
		if _, err := os.Stat(filepath.Join(files.Root(), "..", "escape.txt")); err == nil {
			t.Error("file escaped the files directory")
		}
	}
}

func TestUploadFile_AuthProtected(t *testing.T) {
	router, _ := testEnvWithFiles(t, true, "secret")

	w := uploadFile(t, router, "x.png", []byte("data"))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("upload no auth = %d, want 401", w.Code)
	}
	w = uploadFile(t, router, "x.png", []byte("data"), "Authorization", "Bearer secret")
	if w.Code != http.StatusCreated {
		t.Errorf("upload with token = %d, want 201", w.Code)
	}
}

func TestUploadFile_MissingFileField(t *testing.T) {
	router, _ := testEnvWithFiles(t, false, "")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("wrong", "data")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing field = %d, want 400", w.Code)
	}
}

func TestSQLiteBackedRouter(t *testing.T) {
	svc := workspace.NewService(testutil.TestSQLite(t), nil)
	router := NewRouter(svc, false, "", nil, nil)

	w := do(t, router, http.MethodPost, "/subjects", `{"title":"A","description":"B","tags":["x"]}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d, body = %s", w.Code, w.Body.String())
	}
	w = do(t, router, http.MethodPatch, "/subjects/1", `{"visibility":"public"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("patch = %d, body = %s", w.Code, w.Body.String())
	}
	got := decodeAs[models.Subject](t, w)
	if got.Visibility != models.VisibilityPublic || len(got.Tags) != 1 || got.Tags[0] != "x" {
		t.Errorf("subject = %+v", got)
	}
}
