package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/lantern/internal/assist"
	"github.com/dgallion1/lantern/internal/config"
	"github.com/dgallion1/lantern/internal/thoughttree"
	"github.com/dgallion1/lantern/internal/workspace"
)

const testKey = "test-key"

type stubLLM struct {
	reply string
}

func (s *stubLLM) Complete(context.Context, string, string) (string, error) {
	return s.reply, nil
}

func newTestServer(t *testing.T, llm assist.Completer) *Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := thoughttree.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	cfg := config.Config{
		LanternAPIKey:        testKey,
		AnthropicModel:       "test-model",
		LLMMaxOptions:        3,
		MaxUploadBytes:       1 << 20,
		LabelMaxLen:          50,
		PDFFallbackPdftotext: false,
	}
	var a *assist.Assistant
	if llm != nil {
		a = assist.New(llm, nil, assist.Options{MaxOptions: 3}, log)
	}
	return NewServer(workspace.NewRegistry(store, time.Hour, 50, log), a, log, cfg)
}

func do(t *testing.T, srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Authorization", "Bearer "+testKey)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func createSession(t *testing.T, srv http.Handler, html string) (string, string) {
	t.Helper()
	w := do(t, srv, http.MethodPost, "/api/sessions", map[string]string{"label": "Foxes", "html": html})
	if w.Code != http.StatusCreated {
		t.Fatalf("create session: %d %s", w.Code, w.Body.String())
	}
	resp := decodeBody[map[string]string](t, w)
	return resp["session_id"], resp["root_id"]
}

func TestHealth_Public(t *testing.T) {
	srv := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if resp := decodeBody[map[string]any](t, w); resp["status"] != "ok" || resp["assistant"] != false {
		t.Errorf("unexpected health %v", resp)
	}
}

func TestAuth_RejectsMissingAndWrongKey(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without header, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong key, got %d", w.Code)
	}
}

func TestSessionFlow(t *testing.T) {
	srv := newTestServer(t, nil)
	sid, root := createSession(t, srv, "<p>Foxes are clever.</p>")
	base := "/api/sessions/" + sid

	w := do(t, srv, http.MethodPost, base+"/nodes", map[string]string{
		"parent_id": root, "summary": "Urban foxes", "label": "Cities",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("add node: %d %s", w.Code, w.Body.String())
	}
	child := decodeBody[map[string]string](t, w)["node_id"]

	w = do(t, srv, http.MethodPost, base+"/navigate", map[string]string{
		"node_id": child, "draft_html": "<p>Foxes are very clever.</p>",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("navigate: %d %s", w.Code, w.Body.String())
	}
	nav := decodeBody[map[string]string](t, w)
	if nav["current"] != child || nav["html"] != "<p>Foxes are very clever.</p>" {
		t.Errorf("expected child to inherit the saved draft, got %v", nav)
	}

	w = do(t, srv, http.MethodPut, base+"/nodes/"+child+"/content", map[string]string{"html": "<p>Foxes live in cities.</p>"})
	if w.Code != http.StatusOK {
		t.Fatalf("put content: %d %s", w.Code, w.Body.String())
	}
	w = do(t, srv, http.MethodGet, base+"/nodes/"+child+"/content", nil)
	if got := decodeBody[map[string]string](t, w)["html"]; got != "<p>Foxes live in cities.</p>" {
		t.Errorf("unexpected content %q", got)
	}

	w = do(t, srv, http.MethodGet, base+"/nodes/"+child+"/changes", nil)
	if ch := decodeBody[thoughttree.Changes](t, w); !ch.OwnDraft || ch.Added == 0 {
		t.Errorf("expected own draft with additions, got %+v", ch)
	}

	w = do(t, srv, http.MethodGet, base+"/", nil)
	view := decodeBody[thoughttree.View](t, w)
	if view.Current != child || len(view.Nodes) != 2 || len(view.Pins) != 1 {
		t.Errorf("unexpected view %+v", view)
	}

	w = do(t, srv, http.MethodGet, base+"/map.dot", nil)
	if !strings.HasPrefix(w.Body.String(), "digraph") {
		t.Errorf("expected DOT output, got %q", w.Body.String())
	}

	w = do(t, srv, http.MethodPost, base+"/nodes/"+root+"/ban", nil)
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 banning root, got %d", w.Code)
	}
	w = do(t, srv, http.MethodPost, base+"/nodes/"+child+"/ban", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected ban ok, got %d %s", w.Code, w.Body.String())
	}
	w = do(t, srv, http.MethodGet, base+"/", nil)
	if view := decodeBody[thoughttree.View](t, w); len(view.Nodes) != 1 {
		t.Errorf("expected banned node hidden, got %d nodes", len(view.Nodes))
	}
}

func TestSession_NotFoundAndValidation(t *testing.T) {
	srv := newTestServer(t, nil)

	if w := do(t, srv, http.MethodGet, "/api/sessions/none", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 with nothing to recover, got %d", w.Code)
	}

	sid, _ := createSession(t, srv, "")
	base := "/api/sessions/" + sid
	w := do(t, srv, http.MethodPost, base+"/navigate", map[string]string{"draft_html": "x"})
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "nodeid is required") {
		t.Errorf("expected validation error, got %d %s", w.Code, w.Body.String())
	}
	if w := do(t, srv, http.MethodPost, base+"/navigate", map[string]string{"node_id": "missing"}); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown node, got %d", w.Code)
	}
	if w := do(t, srv, http.MethodPost, base+"/nodes", map[string]string{"parent_id": "missing", "summary": "x"}); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown parent, got %d", w.Code)
	}
	if w := do(t, srv, http.MethodDelete, base+"/pins/abc", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad index, got %d", w.Code)
	}

	// Sticky recovery adopts the latest snapshot.
	w = do(t, srv, http.MethodGet, "/api/sessions/gone", nil)
	if w.Code != http.StatusOK || decodeBody[thoughttree.View](t, w).SessionID != sid {
		t.Errorf("expected recovery to %s, got %d %s", sid, w.Code, w.Body.String())
	}
}

func TestPins(t *testing.T) {
	srv := newTestServer(t, nil)
	sid, _ := createSession(t, srv, "")
	base := "/api/sessions/" + sid

	w := do(t, srv, http.MethodPost, base+"/pins", map[string]string{"title": "Note", "text": "Remember this"})
	if w.Code != http.StatusOK {
		t.Fatalf("pin: %d %s", w.Code, w.Body.String())
	}
	pins := decodeBody[map[string][]thoughttree.Pin](t, w)["pinned_items"]
	if len(pins) != 1 || pins[0].Kind != "note" {
		t.Errorf("unexpected pins %+v", pins)
	}
	w = do(t, srv, http.MethodDelete, base+"/pins/0", nil)
	if pins := decodeBody[map[string][]thoughttree.Pin](t, w)["pinned_items"]; len(pins) != 0 {
		t.Errorf("expected pin removed, got %+v", pins)
	}
	if w := do(t, srv, http.MethodDelete, base+"/pins/3", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing pin, got %d", w.Code)
	}
}

func TestAction_DisabledWithoutModel(t *testing.T) {
	srv := newTestServer(t, nil)
	sid, _ := createSession(t, srv, "<p>Text.</p>")
	w := do(t, srv, http.MethodPost, "/api/sessions/"+sid+"/actions", map[string]string{"action": "critique"})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
	if w := do(t, srv, http.MethodGet, "/api/stats/llm", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 for stats, got %d", w.Code)
	}
}

func TestAction_CritiqueAndAcknowledge(t *testing.T) {
	srv := newTestServer(t, &stubLLM{reply: "Title: Weak claim\nModule: Rigor\nCritique: Needs a source."})
	sid, _ := createSession(t, srv, "<p>Foxes are clever.</p>")
	base := "/api/sessions/" + sid

	w := do(t, srv, http.MethodPost, base+"/actions", map[string]string{"action": "summarize"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown action, got %d", w.Code)
	}

	w = do(t, srv, http.MethodPost, base+"/actions", map[string]string{"action": "critique"})
	if w.Code != http.StatusOK {
		t.Fatalf("action: %d %s", w.Code, w.Body.String())
	}
	out := decodeBody[assist.Outcome](t, w)
	if out.Mode != "critique" || len(out.Critiques) != 1 || out.Critiques[0].Title != "Weak claim" {
		t.Fatalf("unexpected outcome %+v", out)
	}

	w = do(t, srv, http.MethodPost, base+"/critiques/0/acknowledge", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("acknowledge: %d %s", w.Code, w.Body.String())
	}
	ack := decodeBody[struct {
		Stats thoughttree.Stats `json:"stats"`
	}](t, w)
	if ack.Stats.Strength != 1 {
		t.Errorf("expected strength 1, got %+v", ack.Stats)
	}
	if w := do(t, srv, http.MethodPost, base+"/critiques/0/acknowledge", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 once the queue is empty, got %d", w.Code)
	}

	w = do(t, srv, http.MethodGet, "/api/stats/llm", nil)
	stats := decodeBody[struct {
		Model string               `json:"model"`
		Stats assist.StatsSnapshot `json:"stats"`
	}](t, w)
	if stats.Model != "test-model" || stats.Stats.Count != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestAction_RefineAndApply(t *testing.T) {
	reply := "Original: quick brown\nProposed: swift red\n\nOriginal: purple elephant\nProposed: grey"
	srv := newTestServer(t, &stubLLM{reply: reply})
	doc := "<p>The quick brown fox.</p>"
	sid, _ := createSession(t, srv, doc)
	base := "/api/sessions/" + sid

	w := do(t, srv, http.MethodPost, base+"/actions", map[string]string{"action": "refine"})
	out := decodeBody[assist.Outcome](t, w)
	if out.Mode != "refine_suggestions" || len(out.Edits) != 2 {
		t.Fatalf("unexpected outcome %d %+v", w.Code, out)
	}

	w = do(t, srv, http.MethodPost, base+"/edits/"+out.Edits[0].ID+"/apply", map[string]string{"html": doc})
	if w.Code != http.StatusOK {
		t.Fatalf("apply: %d %s", w.Code, w.Body.String())
	}
	if got := decodeBody[map[string]any](t, w)["html"]; got != "<p>The swift red fox.</p>" {
		t.Errorf("unexpected patched html %v", got)
	}

	w = do(t, srv, http.MethodPost, base+"/edits/"+out.Edits[1].ID+"/apply", map[string]string{"html": "<p>The swift red fox.</p>"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	if miss := decodeBody[map[string]string](t, w); miss["original"] != "purple elephant" || miss["proposed"] != "grey" {
		t.Errorf("expected edit text echoed, got %v", miss)
	}

	w = do(t, srv, http.MethodPost, base+"/edits/"+out.Edits[1].ID+"/dismiss", nil)
	if w.Code != http.StatusOK {
		t.Errorf("dismiss: %d %s", w.Code, w.Body.String())
	}
	w = do(t, srv, http.MethodGet, base+"/", nil)
	if view := decodeBody[thoughttree.View](t, w); len(view.Edits) != 0 {
		t.Errorf("expected no pending edits, got %+v", view.Edits)
	}
}

func TestStateless_PatchDiffSegmentParse(t *testing.T) {
	srv := newTestServer(t, nil)

	w := do(t, srv, http.MethodPost, "/api/patch", map[string]string{
		"html": "<p>First <b>bold</b> para.</p>", "original": "First bold para", "proposed": "Plain",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("patch: %d %s", w.Code, w.Body.String())
	}
	if got := decodeBody[map[string]any](t, w)["html"]; got != "<p>Plain.</p>" {
		t.Errorf("unexpected patch result %v", got)
	}
	w = do(t, srv, http.MethodPost, "/api/patch", map[string]string{"html": "<p>abc</p>", "original": "zzzzzz"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for a miss, got %d", w.Code)
	}

	w = do(t, srv, http.MethodPost, "/api/diff", map[string]string{"old": "a b", "new": "a c"})
	if html := decodeBody[map[string]string](t, w)["html"]; !strings.Contains(html, "line-through") {
		t.Errorf("expected deletion markup, got %q", html)
	}

	w = do(t, srv, http.MethodPost, "/api/segment", map[string]string{"html": "<h1>Title</h1><p>One.</p><p>Two.</p>"})
	seg := decodeBody[struct {
		Title      string   `json:"title"`
		Paragraphs []string `json:"paragraphs"`
	}](t, w)
	if seg.Title != "Title" || len(seg.Paragraphs) != 2 {
		t.Errorf("unexpected segmentation %+v", seg)
	}

	w = do(t, srv, http.MethodPost, "/api/parse/segments", map[string]string{"text": "Block 1: A.\nBlock 2: B."})
	if segs := decodeBody[map[string][]string](t, w)["segments"]; len(segs) != 2 {
		t.Errorf("unexpected segments %v", segs)
	}
	if w := do(t, srv, http.MethodPost, "/api/parse/poems", map[string]string{"text": "x"}); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown kind, got %d", w.Code)
	}
}

func TestImport_MarkdownIntoSession(t *testing.T) {
	srv := newTestServer(t, nil)
	sid, root := createSession(t, srv, "")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("session_id", sid)
	fw, err := mw.CreateFormFile("file", "../notes.md")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	fw.Write([]byte("# Notes\n\nFirst & foremost.\n"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/import", &body)
	req.Header.Set("Authorization", "Bearer "+testKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("import: %d %s", w.Code, w.Body.String())
	}
	resp := decodeBody[map[string]string](t, w)
	want := "<h1>Notes</h1>\n<p>First &amp; foremost.</p>\n"
	if resp["html"] != want || resp["filename"] != "notes.md" {
		t.Errorf("unexpected import %v", resp)
	}

	w = do(t, srv, http.MethodGet, "/api/sessions/"+sid+"/nodes/"+root+"/content", nil)
	if got := decodeBody[map[string]string](t, w)["html"]; got != want {
		t.Errorf("expected imported html as root content, got %q", got)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"../../etc/passwd": "passwd",
		`C:\docs\a.txt`:    "a.txt",
		"":                 "unnamed",
		"ok.md":            "ok.md",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q): expected %q, got %q", in, want, got)
		}
	}
}
