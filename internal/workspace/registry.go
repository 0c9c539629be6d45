// Package workspace keeps the live sessions of the editor in memory,
// loading them from snapshots on demand and evicting idle ones.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/lantern/internal/thoughttree"
)

// ErrSessionNotFound is returned when a session has no snapshot and there is
// nothing to recover.
var ErrSessionNotFound = errors.New("session not found")

type entry struct {
	session  *thoughttree.Session
	lastUsed time.Time
}

// Registry is a thread-safe set of open sessions with idle eviction.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	store    *thoughttree.Store
	idleTTL  time.Duration
	labelLen int
	log      *slog.Logger
	now      func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRegistry(store *thoughttree.Store, idleTTL time.Duration, labelLen int, log *slog.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*entry),
		store:    store,
		idleTTL:  idleTTL,
		labelLen: labelLen,
		log:      log,
		now:      time.Now,
	}
}

// Create starts a session whose root holds topic and persists it.
func (r *Registry) Create(topic string) (*thoughttree.Session, error) {
	id := uuid.NewString()
	s := thoughttree.NewSession(id, thoughttree.New(topic), r.store, r.log, r.labelLen)
	if err := s.Save(); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	r.mu.Lock()
	r.sessions[id] = &entry{session: s, lastUsed: r.now()}
	r.mu.Unlock()

	r.log.Info("session created", "session_id", id)
	return s, nil
}

// Get returns session id. A session that is not open is loaded from its
// snapshot; when it has none, the most recently saved session is adopted
// instead, so the returned session's ID may differ from id.
func (r *Registry) Get(id string) (*thoughttree.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.sessions[id]; ok {
		e.lastUsed = r.now()
		return e.session, nil
	}

	loaded, tree, err := r.store.Recover(id)
	if errors.Is(err, thoughttree.ErrNoSnapshot) {
		return nil, fmt.Errorf("%s: %w", id, ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	if e, ok := r.sessions[loaded]; ok {
		e.lastUsed = r.now()
		return e.session, nil
	}
	if loaded != id {
		r.log.Warn("session recovered from latest snapshot", "requested", id, "session_id", loaded)
	}
	s := thoughttree.NewSession(loaded, tree, r.store, r.log, r.labelLen)
	r.sessions[loaded] = &entry{session: s, lastUsed: r.now()}
	return s, nil
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Cleanup saves and closes sessions idle for longer than the TTL. It
// returns how many were evicted.
func (r *Registry) Cleanup() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	evicted := 0
	for id, e := range r.sessions {
		if now.Sub(e.lastUsed) <= r.idleTTL {
			continue
		}
		if err := e.session.Save(); err != nil {
			r.log.Error("save idle session", "session_id", id, "error", err)
			continue
		}
		delete(r.sessions, id)
		evicted++
	}
	if evicted > 0 {
		r.log.Info("evicted idle sessions", "count", evicted, "open", len(r.sessions))
	}
	return evicted
}

// Start runs Cleanup every interval until ctx is done or Stop is called.
func (r *Registry) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Cleanup()
			}
		}
	}()
}

// Stop ends the cleanup loop and saves every open session.
func (r *Registry) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.sessions {
		if err := e.session.Save(); err != nil {
			r.log.Error("save session on shutdown", "session_id", id, "error", err)
		}
	}
}
