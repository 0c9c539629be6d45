package thoughttree

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/dgallion1/lantern/internal/proposal"
)

// ErrCorruptSnapshot is returned when a snapshot does not describe a
// single well-formed tree.
var ErrCorruptSnapshot = errors.New("corrupt snapshot")

// Snapshot is the persisted form of a Tree.
type Snapshot struct {
	Nodes                map[string]NodeRecord `json:"nodes"`
	Current              string                `json:"current"`
	PinnedItems          []Pin                 `json:"pinnedItems"`
	BannedIdeas          []string              `json:"bannedIdeas"`
	DismissedSuggestions []string              `json:"dismissedSuggestions"`
	BulletproofHistory   []string              `json:"bulletproofHistory"`
	CurrentCritiques     []proposal.Critique   `json:"currentCritiques"`
	PendingEdits         []proposal.Edit       `json:"pendingEdits"`
	Timestamp            time.Time             `json:"timestamp"`
}

// NodeRecord is the persisted form of a Node. The root has a null parent.
type NodeRecord struct {
	ID        string    `json:"id"`
	Parent    *string   `json:"parent"`
	Children  []string  `json:"children"`
	Summary   string    `json:"summary"`
	Kind      Kind      `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Metadata  Metadata  `json:"metadata"`
}

// Snapshot captures the full state of t.
func (t *Tree) Snapshot() Snapshot {
	s := Snapshot{
		Nodes:                make(map[string]NodeRecord, len(t.nodes)),
		Current:              t.current,
		PinnedItems:          append([]Pin{}, t.pins...),
		BannedIdeas:          []string{},
		DismissedSuggestions: []string{},
		BulletproofHistory:   append([]string{}, t.bulletproof...),
		CurrentCritiques:     append([]proposal.Critique{}, t.critiques...),
		PendingEdits:         append([]proposal.Edit{}, t.edits...),
		Timestamp:            t.now().UTC(),
	}
	for _, id := range t.order {
		n := copyNode(t.nodes[id])
		rec := NodeRecord{
			ID:        n.ID,
			Children:  n.Children,
			Summary:   n.Summary,
			Kind:      n.Kind,
			CreatedAt: n.CreatedAt,
			Metadata:  n.Metadata,
		}
		if rec.Children == nil {
			rec.Children = []string{}
		}
		if n.Parent != "" {
			p := n.Parent
			rec.Parent = &p
		}
		s.Nodes[id] = rec

		switch n.Status {
		case StatusBanned:
			s.BannedIdeas = append(s.BannedIdeas, id)
		case StatusDismissed:
			s.DismissedSuggestions = append(s.DismissedSuggestions, id)
		}
	}
	return s
}

// Restore rebuilds a tree from a snapshot, checking that it has exactly one
// root, that every parent exists and lists its child, and that every node
// reaches the root.
func Restore(s Snapshot) (*Tree, error) {
	t := &Tree{nodes: make(map[string]*Node, len(s.Nodes)), now: time.Now}
	for key, rec := range s.Nodes {
		if rec.ID == "" {
			rec.ID = key
		}
		if rec.ID != key {
			return nil, fmt.Errorf("node key %s holds id %s: %w", key, rec.ID, ErrCorruptSnapshot)
		}
		n := &Node{
			ID:        rec.ID,
			Summary:   rec.Summary,
			Kind:      rec.Kind,
			CreatedAt: rec.CreatedAt,
			Metadata:  rec.Metadata,
			Status:    StatusActive,
		}
		if rec.Parent != nil {
			n.Parent = *rec.Parent
		}
		if n.Parent == "" {
			if t.root != "" {
				return nil, fmt.Errorf("second root %s: %w", n.ID, ErrCorruptSnapshot)
			}
			t.root = n.ID
			n.Kind = KindRoot
		}
		t.nodes[n.ID] = n
	}
	if t.root == "" {
		return nil, fmt.Errorf("no root: %w", ErrCorruptSnapshot)
	}

	// Children are rebuilt from the stored lists, dropping unknown ids and
	// duplicates, then any child missing from its parent's list is appended.
	for _, rec := range s.Nodes {
		n := t.nodes[rec.ID]
		seen := make(map[string]bool)
		for _, cid := range rec.Children {
			c, ok := t.nodes[cid]
			if !ok || seen[cid] || c.Parent != n.ID {
				continue
			}
			seen[cid] = true
			n.Children = append(n.Children, cid)
		}
	}
	t.order = make([]string, 0, len(t.nodes))
	for id := range t.nodes {
		t.order = append(t.order, id)
	}
	sort.Slice(t.order, func(i, j int) bool {
		a, b := t.nodes[t.order[i]], t.nodes[t.order[j]]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	for _, id := range t.order {
		n := t.nodes[id]
		if n.Parent == "" {
			continue
		}
		p, ok := t.nodes[n.Parent]
		if !ok {
			return nil, fmt.Errorf("node %s has unknown parent %s: %w", id, n.Parent, ErrCorruptSnapshot)
		}
		if !slices.Contains(p.Children, id) {
			p.Children = append(p.Children, id)
		}
	}
	for _, id := range t.order {
		if !t.reachesRoot(id) {
			return nil, fmt.Errorf("node %s does not reach the root: %w", id, ErrCorruptSnapshot)
		}
	}

	t.current = s.Current
	if _, ok := t.nodes[t.current]; !ok {
		t.current = t.root
	}
	for _, id := range s.DismissedSuggestions {
		if n, ok := t.nodes[id]; ok && !n.IsRoot() {
			n.Status = StatusDismissed
		}
	}
	for _, id := range s.BannedIdeas {
		if n, ok := t.nodes[id]; ok && !n.IsRoot() {
			n.Status = StatusBanned
		}
	}
	t.pins = append([]Pin(nil), s.PinnedItems...)
	for _, k := range s.BulletproofHistory {
		t.Strengthen(k)
	}
	t.critiques = append([]proposal.Critique(nil), s.CurrentCritiques...)
	t.edits = append([]proposal.Edit(nil), s.PendingEdits...)
	return t, nil
}

func (t *Tree) reachesRoot(id string) bool {
	for steps := 0; steps <= len(t.nodes); steps++ {
		n, ok := t.nodes[id]
		if !ok {
			return false
		}
		if n.Parent == "" {
			return id == t.root
		}
		id = n.Parent
	}
	return false
}
