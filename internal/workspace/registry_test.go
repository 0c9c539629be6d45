package workspace

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dgallion1/lantern/internal/thoughttree"
)

func newRegistry(t *testing.T, ttl time.Duration) (*Registry, *thoughttree.Store) {
	t.Helper()
	st, err := thoughttree.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return NewRegistry(st, ttl, 0, slog.New(slog.NewTextHandler(io.Discard, nil))), st
}

func TestRegistry_CreateAndGet(t *testing.T) {
	r, st := newRegistry(t, time.Hour)
	s, err := r.Create("Urban foxes")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := st.Load(s.ID()); err != nil {
		t.Errorf("expected snapshot written on create, got %v", err)
	}
	got, err := r.Get(s.ID())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != s {
		t.Error("expected the open session to be returned")
	}
}

func TestRegistry_GetLoadsFromSnapshot(t *testing.T) {
	r, st := newRegistry(t, time.Hour)
	s, err := r.Create("Topic")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	root := s.View().Root
	if _, err := s.AddChild(root, "An idea", thoughttree.KindStandard, thoughttree.Metadata{}); err != nil {
		t.Fatalf("add child: %v", err)
	}

	fresh := NewRegistry(st, time.Hour, 0, r.log)
	loaded, err := fresh.Get(s.ID())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.ID() != s.ID() {
		t.Errorf("expected id %s, got %s", s.ID(), loaded.ID())
	}
	if n := len(loaded.View().Nodes); n != 2 {
		t.Errorf("expected 2 nodes restored, got %d", n)
	}
	if fresh.Len() != 1 {
		t.Errorf("expected 1 open session, got %d", fresh.Len())
	}
}

func TestRegistry_GetRecoversLatest(t *testing.T) {
	r, st := newRegistry(t, time.Hour)
	s, err := r.Create("Topic")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	fresh := NewRegistry(st, time.Hour, 0, r.log)
	got, err := fresh.Get("missing-id")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID() != s.ID() {
		t.Errorf("expected recovery to adopt %s, got %s", s.ID(), got.ID())
	}
	again, err := fresh.Get("missing-id")
	if err != nil || again != got {
		t.Errorf("expected the adopted session to be reused, got %v", err)
	}
}

func TestRegistry_GetNothingToRecover(t *testing.T) {
	r, _ := newRegistry(t, time.Hour)
	_, err := r.Get("nope")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	_, err = r.Get("../../etc/passwd")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound for invalid id, got %v", err)
	}
}

func TestRegistry_CleanupEvictsIdle(t *testing.T) {
	r, _ := newRegistry(t, time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	idle, err := r.Create("idle")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	now = now.Add(50 * time.Second)
	busy, err := r.Create("busy")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	now = now.Add(30 * time.Second)
	if n := r.Cleanup(); n != 1 {
		t.Fatalf("expected 1 eviction, got %d", n)
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 open session, got %d", r.Len())
	}

	// An evicted session comes back from its snapshot.
	back, err := r.Get(idle.ID())
	if err != nil {
		t.Fatalf("get evicted: %v", err)
	}
	if back == idle || back.ID() != idle.ID() {
		t.Error("expected evicted session reloaded as a new instance")
	}
	if got, _ := r.Get(busy.ID()); got != busy {
		t.Error("expected busy session still open")
	}
}

func TestRegistry_StartStop(t *testing.T) {
	r, _ := newRegistry(t, time.Nanosecond)
	if _, err := r.Create("x"); err != nil {
		t.Fatalf("create: %v", err)
	}
	r.Start(context.Background(), time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for r.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	r.Stop()
	if r.Len() != 0 {
		t.Errorf("expected background cleanup to evict, got %d open", r.Len())
	}
}
