package thoughttree

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/dgallion1/lantern/internal/patch"
	"github.com/dgallion1/lantern/internal/proposal"
)

// strengthKeyLen is how much of a critique identifies it in the
// acknowledged history.
const strengthKeyLen = 50

// Session is one author's editing session: a tree, where it is persisted,
// and a lock serializing every operation on it. Each mutation is saved
// before it returns; a failed save is logged and the in-memory tree stays
// authoritative.
type Session struct {
	mu       sync.Mutex
	id       string
	tree     *Tree
	store    *Store
	log      *slog.Logger
	labelLen int
}

// NewSession wraps tree. store may be nil for a session that is never
// persisted.
func NewSession(id string, tree *Tree, store *Store, log *slog.Logger, labelLen int) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		id:       id,
		tree:     tree,
		store:    store,
		log:      log.With("session_id", id),
		labelLen: labelLen,
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// persist saves the tree. Callers hold s.mu.
func (s *Session) persist() {
	if s.store == nil {
		return
	}
	if err := s.store.Save(s.id, s.tree.Snapshot()); err != nil {
		s.log.Error("persist session", "error", err)
	}
}

// Save persists the session and returns any error.
func (s *Session) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return nil
	}
	return s.store.Save(s.id, s.tree.Snapshot())
}

// NodeView is a node as listed to the editor shell.
type NodeView struct {
	ID         string   `json:"id"`
	Parent     string   `json:"parent,omitempty"`
	Label      string   `json:"label"`
	Summary    string   `json:"summary"`
	Kind       Kind     `json:"type"`
	Status     Status   `json:"status"`
	Scope      string   `json:"scope,omitempty"`
	Module     string   `json:"module,omitempty"`
	HasContent bool     `json:"has_content"`
	Children   []string `json:"children"`
}

func nodeView(n Node, label string) NodeView {
	return NodeView{
		ID:         n.ID,
		Parent:     n.Parent,
		Label:      label,
		Summary:    n.Summary,
		Kind:       n.Kind,
		Status:     n.Status,
		Scope:      n.Metadata.Scope,
		Module:     n.Metadata.Module,
		HasContent: n.Metadata.HTML != "",
		Children:   n.Children,
	}
}

// View is the read model of a session.
type View struct {
	SessionID string              `json:"session_id"`
	Root      string              `json:"root"`
	Current   string              `json:"current"`
	Nodes     []NodeView          `json:"nodes"`
	Pins      []Pin               `json:"pinned_items"`
	Critiques []proposal.Critique `json:"critiques"`
	Edits     []proposal.Edit     `json:"pending_edits"`
	Stats     Stats               `json:"stats"`
}

// View returns the visible nodes with their display labels and the review
// queues.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	labels := s.tree.UniqueLabels(s.labelLen)
	v := View{
		SessionID: s.id,
		Root:      s.tree.Root(),
		Current:   s.tree.Current(),
		Pins:      s.tree.Pins(),
		Critiques: s.tree.Critiques(),
		Edits:     s.tree.Edits(),
		Stats:     s.tree.Stats(),
	}
	for _, n := range s.tree.Visible() {
		v.Nodes = append(v.Nodes, nodeView(n, labels[n.ID]))
	}
	return v
}

// Focus is what an assistant request needs to know about the current node.
type Focus struct {
	NodeID   string
	IsRoot   bool
	Label    string
	Summary  string
	Explored []string // summaries of existing children
	Pins     []Pin
	HTML     string // nearest content
}

// Focus describes the current node.
func (s *Session) Focus() Focus {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.tree.nodes[s.tree.current]
	f := Focus{
		NodeID:  n.ID,
		IsRoot:  n.IsRoot(),
		Label:   n.Metadata.Label,
		Summary: n.Summary,
		Pins:    s.tree.Pins(),
		HTML:    s.tree.NearestContent(n.ID),
	}
	for _, cid := range n.Children {
		if c, ok := s.tree.nodes[cid]; ok {
			f.Explored = append(f.Explored, c.Summary)
		}
	}
	return f
}

// AddChild creates a node under parent.
func (s *Session) AddChild(parent, summary string, kind Kind, meta Metadata) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := s.tree.AddChild(parent, summary, kind, meta)
	if err != nil {
		return "", err
	}
	s.persist()
	return id, nil
}

// AddIdeas records model-proposed ideas as children of anchor.
func (s *Session) AddIdeas(anchor string, ideas []proposal.Idea) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, idea := range ideas {
		id, err := s.tree.AddChild(anchor, idea.Explanation, KindIdea, Metadata{
			Label:       idea.Title,
			Module:      idea.Module,
			Explanation: idea.Explanation,
			Scope:       idea.Scope,
		})
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	if len(ids) > 0 {
		s.persist()
	}
	return ids, nil
}

// Navigate moves to id without touching drafts or pins.
func (s *Session) Navigate(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.tree.Navigate(id); err != nil {
		return err
	}
	s.persist()
	return nil
}

// Select leaves the current node for id. A non-empty draft is first stored
// on the node being left; the target is pinned unless it is the root.
// It returns the content the editor should show.
func (s *Session) Select(id, draft string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tree.nodes[id]; !ok {
		return "", fmt.Errorf("select %s: %w", id, ErrNotFound)
	}
	old := s.tree.Current()
	if id == old {
		return s.tree.NearestContent(id), nil
	}
	if draft != "" {
		if err := s.tree.SetContent(old, draft); err != nil {
			return "", err
		}
	}
	if err := s.tree.Navigate(id); err != nil {
		return "", err
	}
	if pinned, err := s.tree.PinNode(id); err != nil {
		return "", err
	} else if pinned {
		s.log.Info("auto-pinned node", "node_id", id)
	}
	s.persist()

	content := s.tree.NearestContent(id)
	if content == "" {
		content = draft
	}
	return content, nil
}

// Adopt takes a suggested child as the new path: the current draft becomes
// its content, its siblings are dismissed, it is pinned and navigated to.
func (s *Session) Adopt(id, draft string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.tree.nodes[id]
	if !ok {
		return "", fmt.Errorf("adopt %s: %w", id, ErrNotFound)
	}
	if n.IsRoot() {
		return "", fmt.Errorf("adopt root: %w", ErrInvalidTransition)
	}
	if n.Metadata.Label == "" {
		n.Metadata.Label = ShortLabel(n, s.labelLen)
	}
	if n.Metadata.Explanation == "" {
		n.Metadata.Explanation = n.Summary
	}
	if draft != "" {
		n.Metadata.HTML = draft
	}
	if n.Metadata.Extra == nil {
		n.Metadata.Extra = make(map[string]string)
	}
	n.Metadata.Extra["selected_path"] = "true"

	for _, sib := range s.tree.nodes[n.Parent].Children {
		if sib == id {
			continue
		}
		if err := s.tree.Dismiss(sib); err != nil && !errors.Is(err, ErrInvalidTransition) {
			return "", err
		}
	}
	if _, err := s.tree.PinNode(id); err != nil {
		return "", err
	}
	if err := s.tree.Navigate(id); err != nil {
		return "", err
	}
	s.persist()
	return s.tree.NearestContent(id), nil
}

// Content returns the nearest content of id.
func (s *Session) Content(id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tree.nodes[id]; !ok {
		return "", fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	return s.tree.NearestContent(id), nil
}

// SetContent stores html on node id.
func (s *Session) SetContent(id, html string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.tree.SetContent(id, html); err != nil {
		return err
	}
	s.persist()
	return nil
}

// SaveDraft stores html on the current node unless it matches the content
// the node already shows. It reports whether anything was stored.
func (s *Session) SaveDraft(html string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveDraft(html)
}

func (s *Session) saveDraft(html string) (bool, error) {
	cur := s.tree.Current()
	if SameDraft(html, s.tree.NearestContent(cur)) {
		return false, nil
	}
	if err := s.tree.SetContent(cur, html); err != nil {
		return false, err
	}
	s.persist()
	return true, nil
}

// Dismiss hides id from suggestions.
func (s *Session) Dismiss(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.tree.Dismiss(id); err != nil {
		return err
	}
	s.persist()
	return nil
}

// DismissSuggestions dismisses every current suggestion.
func (s *Session) DismissSuggestions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.tree.Suggestions() {
		if s.tree.Dismiss(c.ID) == nil {
			n++
		}
	}
	if n > 0 {
		s.persist()
	}
	return n
}

// Ban hides id everywhere.
func (s *Session) Ban(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.tree.Ban(id); err != nil {
		return err
	}
	s.persist()
	return nil
}

// Suggestions lists the active children of the current node.
func (s *Session) Suggestions() []NodeView {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []NodeView
	for _, n := range s.tree.Suggestions() {
		out = append(out, nodeView(n, ShortLabel(&n, s.labelLen)))
	}
	return out
}

// Pin adds p to the pinned items.
func (s *Session) Pin(p Pin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.Pin(p)
	s.persist()
}

// Unpin removes pinned item i.
func (s *Session) Unpin(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.tree.Unpin(i); err != nil {
		return err
	}
	s.persist()
	return nil
}

// ClearPins removes all pinned items.
func (s *Session) ClearPins() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.ClearPins()
	s.persist()
}

// SetCritiques replaces the critiques awaiting review.
func (s *Session) SetCritiques(cs []proposal.Critique) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.SetCritiques(cs)
	s.persist()
}

// AcknowledgeCritique accepts critique i: it leaves the review queue, counts
// towards Strength and is pinned.
func (s *Session) AcknowledgeCritique(i int) (proposal.Critique, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.tree.TakeCritique(i)
	if err != nil {
		return proposal.Critique{}, err
	}
	key := c.Text
	if r := []rune(key); len(r) > strengthKeyLen {
		key = string(r[:strengthKeyLen])
	}
	s.tree.Strengthen(key)
	s.tree.Pin(critiquePin(c))
	s.persist()
	return c, nil
}

// PinCritique pins critique i and leaves it in the review queue.
func (s *Session) PinCritique(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs := s.tree.Critiques()
	if i < 0 || i >= len(cs) {
		return fmt.Errorf("critique %d: %w", i, ErrNotFound)
	}
	s.tree.Pin(critiquePin(cs[i]))
	s.persist()
	return nil
}

// DropCritique discards critique i.
func (s *Session) DropCritique(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.tree.TakeCritique(i); err != nil {
		return err
	}
	s.persist()
	return nil
}

func critiquePin(c proposal.Critique) Pin {
	return Pin{Title: c.Title, Text: c.Text, Kind: "critique", Scope: c.Scope}
}

// SetEdits replaces the edits awaiting review.
func (s *Session) SetEdits(es []proposal.Edit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.SetEdits(es)
	s.persist()
}

// ResolveEdit records the outcome of edit id.
func (s *Session) ResolveEdit(id string, status proposal.EditStatus) (proposal.Edit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.tree.ResolveEdit(id, status)
	if err != nil {
		return proposal.Edit{}, err
	}
	s.persist()
	return e, nil
}

// ApplyEdit places edit id into doc. On success the edit is accepted and
// the patched document becomes the current draft. When the edit cannot be
// placed it stays pending and the returned error wraps patch.ErrNotApplied;
// the edit is returned either way so its text can be shown to the author.
func (s *Session) ApplyEdit(id, doc string) (patch.Result, proposal.Edit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.tree.Edit(id)
	if err != nil {
		return patch.Result{}, proposal.Edit{}, err
	}
	res, err := patch.Apply(doc, e.Original, e.Proposed)
	if err != nil {
		s.log.Info("edit not applied", "edit_id", id, "reason", err)
		return patch.Result{}, e, err
	}
	e, err = s.tree.ResolveEdit(id, proposal.EditAccepted)
	if err != nil {
		return patch.Result{}, proposal.Edit{}, err
	}
	saved, err := s.saveDraft(res.HTML)
	if err != nil {
		return patch.Result{}, e, err
	}
	if !saved {
		s.persist()
	}
	return res, e, nil
}

// ApplyEdits places the pending edits named by ids into doc in order, each
// against the result of the previous one. Empty ids means every pending
// edit. Placed edits are accepted; misses stay pending. The patched
// document becomes the current draft when anything was placed.
func (s *Session) ApplyEdits(ids []string, doc string) (string, []patch.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var batch []patch.Edit
	for _, e := range s.tree.Edits() {
		if e.Status != proposal.EditPending {
			continue
		}
		if len(ids) > 0 && !slices.Contains(ids, e.ID) {
			continue
		}
		batch = append(batch, patch.Edit{ID: e.ID, Original: e.Original, Proposed: e.Proposed})
	}
	out, outcomes := patch.ApplyAll(doc, batch)

	applied := 0
	for _, o := range outcomes {
		if !o.Applied {
			s.log.Info("edit not applied", "edit_id", o.ID, "reason", o.Err)
			continue
		}
		if _, err := s.tree.ResolveEdit(o.ID, proposal.EditAccepted); err != nil {
			return doc, outcomes, err
		}
		applied++
	}
	if applied > 0 {
		saved, err := s.saveDraft(out)
		if err != nil {
			return out, outcomes, err
		}
		if !saved {
			s.persist()
		}
	}
	return out, outcomes, nil
}

// Stats reports explored paths and acknowledged critiques.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Stats()
}

// DOT renders the tree map.
func (s *Session) DOT() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.DOT(s.labelLen)
}

// Changes compares node id with the content it inherited.
func (s *Session) Changes(id string) (Changes, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Changes(id)
}

// Reset replaces the tree with a fresh one whose root holds html. Pins,
// critiques, edits and history are discarded.
func (s *Session) Reset(html string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree = New("")
	if html != "" {
		_ = s.tree.SetContent(s.tree.Root(), html)
	}
	s.persist()
	return s.tree.Root()
}
