// Package thoughttree keeps the branching history of a draft: every idea,
// critique and edited version is a node, and the author moves between them.
//
// Nodes are never removed. Dismissing or banning a node only changes its
// Status, which hides it from suggestion lists or from every listing.
package thoughttree

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/lantern/internal/proposal"
)

var (
	// ErrNotFound is returned for an unknown node id or list index.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition is returned for a status change that would
	// reverse a tombstone or hide the root.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Kind classifies a node.
type Kind string

const (
	KindRoot     Kind = "root"
	KindStandard Kind = "standard"
	KindIdea     Kind = "idea"
	KindCritique Kind = "ai_critique"
)

// Status controls where a node is listed.
type Status string

const (
	StatusActive    Status = "active"
	StatusDismissed Status = "dismissed" // hidden from suggestions, still navigable
	StatusBanned    Status = "banned"    // hidden everywhere
)

// Metadata holds the optional payload of a node. Extra carries fields this
// version does not know about so they survive a load/save cycle.
type Metadata struct {
	HTML        string            `json:"html,omitempty"`
	Label       string            `json:"label,omitempty"`
	Explanation string            `json:"explanation,omitempty"`
	Module      string            `json:"module,omitempty"`
	Scope       string            `json:"scope,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// Node is one state in the tree.
type Node struct {
	ID        string
	Parent    string // empty for the root
	Children  []string
	Summary   string
	Kind      Kind
	CreatedAt time.Time
	Metadata  Metadata
	Status    Status
}

// IsRoot reports whether n has no parent.
func (n *Node) IsRoot() bool {
	return n.Parent == ""
}

// Pin is a copy of a node or critique kept as context for later requests.
type Pin struct {
	SourceID string `json:"id,omitempty"`
	Title    string `json:"title"`
	Text     string `json:"text"`
	Kind     string `json:"type"`
	Scope    string `json:"scope,omitempty"`
}

// Stats summarizes how far the author has explored.
type Stats struct {
	Paths    int `json:"paths"`
	Strength int `json:"strength"`
}

// Tree is the in-memory thought tree. It is not safe for concurrent use.
type Tree struct {
	nodes       map[string]*Node
	order       []string
	root        string
	current     string
	pins        []Pin
	bulletproof []string
	critiques   []proposal.Critique
	edits       []proposal.Edit

	now func() time.Time
}

// New creates a tree holding a single root node. An empty summary is
// replaced by a placeholder topic.
func New(summary string) *Tree {
	t := &Tree{nodes: make(map[string]*Node), now: time.Now}
	if summary == "" {
		summary = "[Main Topic]"
	}
	root := t.insert("", summary, KindRoot, Metadata{})
	t.root = root.ID
	t.current = root.ID
	return t
}

func (t *Tree) insert(parent, summary string, kind Kind, meta Metadata) *Node {
	n := &Node{
		ID:        uuid.NewString(),
		Parent:    parent,
		Summary:   summary,
		Kind:      kind,
		CreatedAt: t.now().UTC(),
		Metadata:  meta,
		Status:    StatusActive,
	}
	t.nodes[n.ID] = n
	t.order = append(t.order, n.ID)
	return n
}

// AddChild creates a node under parentID and returns its id.
func (t *Tree) AddChild(parentID, summary string, kind Kind, meta Metadata) (string, error) {
	parent, ok := t.nodes[parentID]
	if !ok {
		return "", fmt.Errorf("parent %s: %w", parentID, ErrNotFound)
	}
	if kind == "" || kind == KindRoot {
		kind = KindStandard
	}
	child := t.insert(parentID, summary, kind, meta)
	parent.Children = append(parent.Children, child.ID)
	return child.ID, nil
}

// Node returns a copy of the node with id.
func (t *Tree) Node(id string) (Node, error) {
	n, ok := t.nodes[id]
	if !ok {
		return Node{}, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	return copyNode(n), nil
}

func copyNode(n *Node) Node {
	c := *n
	c.Children = append([]string(nil), n.Children...)
	if n.Metadata.Extra != nil {
		c.Metadata.Extra = make(map[string]string, len(n.Metadata.Extra))
		for k, v := range n.Metadata.Extra {
			c.Metadata.Extra[k] = v
		}
	}
	return c
}

// Root returns the root node id.
func (t *Tree) Root() string { return t.root }

// Current returns the id of the node being edited.
func (t *Tree) Current() string { return t.current }

// Len returns the number of nodes, including tombstoned ones.
func (t *Tree) Len() int { return len(t.nodes) }

// Navigate makes id the current node.
func (t *Tree) Navigate(id string) error {
	if _, ok := t.nodes[id]; !ok {
		return fmt.Errorf("navigate to %s: %w", id, ErrNotFound)
	}
	t.current = id
	return nil
}

// SetContent stores a full document snapshot on node id.
func (t *Tree) SetContent(id, html string) error {
	n, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	n.Metadata.HTML = html
	return nil
}

// NearestContent returns the first non-empty HTML snapshot found walking
// from id towards the root, or "" when there is none. The walk stops on a
// repeated node so a corrupted parent chain cannot loop.
func (t *Tree) NearestContent(id string) string {
	seen := make(map[string]bool)
	for id != "" && !seen[id] {
		seen[id] = true
		n, ok := t.nodes[id]
		if !ok {
			return ""
		}
		if n.Metadata.HTML != "" {
			return n.Metadata.HTML
		}
		id = n.Parent
	}
	return ""
}

// Path returns the ids from the root down to id.
func (t *Tree) Path(id string) ([]string, error) {
	if _, ok := t.nodes[id]; !ok {
		return nil, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	var rev []string
	seen := make(map[string]bool)
	for cur := id; cur != "" && !seen[cur]; {
		seen[cur] = true
		rev = append(rev, cur)
		n, ok := t.nodes[cur]
		if !ok {
			break
		}
		cur = n.Parent
	}
	path := make([]string, len(rev))
	for i, v := range rev {
		path[len(rev)-1-i] = v
	}
	return path, nil
}

// Dismiss hides node id from suggestion lists.
func (t *Tree) Dismiss(id string) error {
	return t.transition(id, StatusDismissed)
}

// Ban hides node id from every listing.
func (t *Tree) Ban(id string) error {
	return t.transition(id, StatusBanned)
}

func (t *Tree) transition(id string, to Status) error {
	n, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	if n.IsRoot() {
		return fmt.Errorf("%s root: %w", to, ErrInvalidTransition)
	}
	switch {
	case n.Status == to:
		return nil
	case n.Status == StatusBanned:
		return fmt.Errorf("%s -> %s: %w", n.Status, to, ErrInvalidTransition)
	}
	n.Status = to
	return nil
}

// Suggestions returns the active children of the current node.
func (t *Tree) Suggestions() []Node {
	var out []Node
	for _, cid := range t.nodes[t.current].Children {
		if c, ok := t.nodes[cid]; ok && c.Status == StatusActive {
			out = append(out, copyNode(c))
		}
	}
	return out
}

// Visible returns every non-banned node in depth-first order from the root.
func (t *Tree) Visible() []Node {
	var out []Node
	seen := make(map[string]bool)
	stack := []string{t.root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		n, ok := t.nodes[id]
		if !ok {
			continue
		}
		if n.Status != StatusBanned {
			out = append(out, copyNode(n))
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return out
}

// Pins returns a copy of the pinned items.
func (t *Tree) Pins() []Pin {
	return append([]Pin(nil), t.pins...)
}

// Pin appends p to the pinned items.
func (t *Tree) Pin(p Pin) {
	t.pins = append(t.pins, p)
}

// PinNode pins node id unless it is the root or already pinned. It reports
// whether a pin was added.
func (t *Tree) PinNode(id string) (bool, error) {
	n, ok := t.nodes[id]
	if !ok {
		return false, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	if n.IsRoot() {
		return false, nil
	}
	for _, p := range t.pins {
		if p.SourceID == id {
			return false, nil
		}
	}
	title := n.Metadata.Label
	if title == "" {
		title = ShortLabel(n, 0)
	}
	text := n.Metadata.Explanation
	if text == "" {
		text = n.Summary
	}
	scope := n.Metadata.Scope
	if scope == "" {
		scope = proposal.WholeDocument
	}
	t.pins = append(t.pins, Pin{SourceID: id, Title: title, Text: text, Kind: string(KindIdea), Scope: scope})
	return true, nil
}

// Unpin removes the pinned item at index i.
func (t *Tree) Unpin(i int) error {
	if i < 0 || i >= len(t.pins) {
		return fmt.Errorf("pin %d: %w", i, ErrNotFound)
	}
	t.pins = append(t.pins[:i], t.pins[i+1:]...)
	return nil
}

// ClearPins removes every pinned item.
func (t *Tree) ClearPins() {
	t.pins = nil
}

// Critiques returns a copy of the critiques awaiting review.
func (t *Tree) Critiques() []proposal.Critique {
	return append([]proposal.Critique(nil), t.critiques...)
}

// SetCritiques replaces the critiques awaiting review.
func (t *Tree) SetCritiques(cs []proposal.Critique) {
	t.critiques = append([]proposal.Critique(nil), cs...)
}

// TakeCritique removes and returns critique i.
func (t *Tree) TakeCritique(i int) (proposal.Critique, error) {
	if i < 0 || i >= len(t.critiques) {
		return proposal.Critique{}, fmt.Errorf("critique %d: %w", i, ErrNotFound)
	}
	c := t.critiques[i]
	t.critiques = append(t.critiques[:i], t.critiques[i+1:]...)
	return c, nil
}

// Edits returns a copy of the edits awaiting review.
func (t *Tree) Edits() []proposal.Edit {
	return append([]proposal.Edit(nil), t.edits...)
}

// SetEdits replaces the edits awaiting review.
func (t *Tree) SetEdits(es []proposal.Edit) {
	t.edits = append([]proposal.Edit(nil), es...)
}

// Edit returns the edit with id.
func (t *Tree) Edit(id string) (proposal.Edit, error) {
	for _, e := range t.edits {
		if e.ID == id {
			return e, nil
		}
	}
	return proposal.Edit{}, fmt.Errorf("edit %s: %w", id, ErrNotFound)
}

// ResolveEdit records the outcome of a reviewed edit. Resolved edits leave
// the pending list.
func (t *Tree) ResolveEdit(id string, status proposal.EditStatus) (proposal.Edit, error) {
	for i, e := range t.edits {
		if e.ID != id {
			continue
		}
		e.Status = status
		if status != proposal.EditPending {
			t.edits = append(t.edits[:i], t.edits[i+1:]...)
		} else {
			t.edits[i] = e
		}
		return e, nil
	}
	return proposal.Edit{}, fmt.Errorf("edit %s: %w", id, ErrNotFound)
}

// Strengthen records an acknowledged critique. key identifies it; repeated
// keys count once.
func (t *Tree) Strengthen(key string) {
	if slices.Contains(t.bulletproof, key) {
		return
	}
	t.bulletproof = append(t.bulletproof, key)
}

// Stats reports explored paths and acknowledged critiques.
func (t *Tree) Stats() Stats {
	paths := len(t.nodes) - 1
	if paths < 0 {
		paths = 0
	}
	return Stats{Paths: paths, Strength: len(t.bulletproof)}
}
