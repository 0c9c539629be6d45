package assist

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClaudeClient_Complete(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "key" {
			t.Errorf("expected api key header, got %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("expected anthropic-version header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{"content":[{"type":"text","text":"Hello "},{"type":"tool_use"},{"type":"text","text":"there"}]}`))
	}))
	defer srv.Close()

	c := NewClaudeClient("key", "model-x").WithEndpoint(srv.URL)
	defer c.Close()
	out, err := c.Complete(context.Background(), "be brief", "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Hello there" {
		t.Errorf("expected joined text blocks, got %q", out)
	}
	if got.Model != "model-x" || got.System != "be brief" || len(got.Messages) != 1 || got.Messages[0].Content != "hi" {
		t.Errorf("unexpected request %+v", got)
	}
}

func TestClaudeClient_RetryableStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClaudeClient("key", "m").WithEndpoint(srv.URL).Complete(context.Background(), "", "hi")
	if !IsRetryable(err) {
		t.Errorf("expected retryable error, got %v", err)
	}
}

func TestClaudeClient_ClientErrorNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"type":"invalid_request_error"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewClaudeClient("key", "m").WithEndpoint(srv.URL).Complete(context.Background(), "", "hi")
	if err == nil || IsRetryable(err) {
		t.Errorf("expected permanent error, got %v", err)
	}
}

func TestClaudeClient_EmptyReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":[]}`))
	}))
	defer srv.Close()

	if _, err := NewClaudeClient("key", "m").WithEndpoint(srv.URL).Complete(context.Background(), "", "hi"); err == nil {
		t.Error("expected error for empty reply")
	}
	if _, err := NewClaudeClient("key", "m").Complete(context.Background(), "", "  "); err == nil {
		t.Error("expected error for empty prompt")
	}
}

func TestBackoff_Bounds(t *testing.T) {
	for attempt, base := range []time.Duration{time.Second, 2 * time.Second, 4 * time.Second} {
		d := Backoff(attempt)
		if d < base || d >= base+base/2 {
			t.Errorf("attempt %d: expected [%v, %v), got %v", attempt, base, base+base/2, d)
		}
	}
	if d := Backoff(10); d < 30*time.Second || d >= 45*time.Second {
		t.Errorf("expected capped backoff, got %v", d)
	}
}

func TestLLMStats_SnapshotAndPrune(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewLLMStats(time.Minute)
	s.now = func() time.Time { return now }

	s.Record(ActionDiverge, 100*time.Millisecond, false)
	s.Record(ActionDiverge, 300*time.Millisecond, false)
	s.Record(ActionCritique, 50*time.Millisecond, true)

	snap := s.Snapshot()
	if snap.Count != 3 || snap.Failures != 1 {
		t.Errorf("expected 3 calls with 1 failure, got %+v", snap)
	}
	if snap.ByAction[ActionDiverge] != 2 || snap.ByAction[ActionCritique] != 1 {
		t.Errorf("unexpected per-action counts %v", snap.ByAction)
	}
	if snap.MinMs != 100 || snap.MaxMs != 300 || snap.AvgMs != 200 || snap.P50Ms != 200 {
		t.Errorf("expected latency over successful calls only, got %+v", snap)
	}

	now = now.Add(2 * time.Minute)
	if snap := s.Snapshot(); snap.Count != 0 {
		t.Errorf("expected samples pruned, got %d", snap.Count)
	}
}

func TestParseAction(t *testing.T) {
	if a, err := ParseAction(" Refine "); err != nil || a != ActionRefine {
		t.Errorf("expected refine, got %q, %v", a, err)
	}
	if _, err := ParseAction("summarize"); err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestPrinciples_For(t *testing.T) {
	p := ParsePrinciples([]byte("# Guide\nAlways cite.\n\n## Module 1 Ethics\nBe fair.\n\n## Module 4 Synthesis\nCombine.\n"))
	crit := p.For(ActionCritique)
	if crit != "# Guide\nAlways cite.\n\n## Module 1 Ethics\nBe fair." {
		t.Errorf("unexpected critique guide %q", crit)
	}
	div := p.For(ActionDiverge)
	if div != "# Guide\nAlways cite.\n\n## Module 4 Synthesis\nCombine." {
		t.Errorf("unexpected explore guide %q", div)
	}

	var none *Principles
	if none.For(ActionRefine) != "" {
		t.Error("expected nil guide to be empty")
	}
	if empty, err := LoadPrinciples(""); err != nil || empty.For(ActionRefine) != "" {
		t.Errorf("expected empty guide, got %v", err)
	}
}
