package thoughttree

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew_PlaceholderSummary(t *testing.T) {
	tr := New("")
	root, err := tr.Node(tr.Root())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if root.Summary != "[Main Topic]" {
		t.Errorf("expected placeholder summary, got %q", root.Summary)
	}
	if root.Kind != KindRoot || !root.IsRoot() {
		t.Errorf("expected root kind, got %q", root.Kind)
	}
	if tr.Current() != tr.Root() {
		t.Error("expected current to start at root")
	}
}

func TestAddChild_UnknownParent(t *testing.T) {
	tr := New("topic")
	if _, err := tr.AddChild("nope", "x", KindIdea, Metadata{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if tr.Len() != 1 {
		t.Errorf("expected tree unchanged, got %d nodes", tr.Len())
	}
}

func TestAddChild_RootKindDemoted(t *testing.T) {
	tr := New("topic")
	id, _ := tr.AddChild(tr.Root(), "x", KindRoot, Metadata{})
	n, _ := tr.Node(id)
	if n.Kind != KindStandard {
		t.Errorf("expected standard kind, got %q", n.Kind)
	}
}

func TestNearestContent(t *testing.T) {
	tr := New("topic")
	a, _ := tr.AddChild(tr.Root(), "a", KindIdea, Metadata{})
	b, _ := tr.AddChild(a, "b", KindIdea, Metadata{})

	if got := tr.NearestContent(b); got != "" {
		t.Errorf("expected no content anywhere, got %q", got)
	}

	tr.SetContent(tr.Root(), "<p>root</p>")
	if got := tr.NearestContent(b); got != "<p>root</p>" {
		t.Errorf("expected inherited root content, got %q", got)
	}

	tr.SetContent(a, "<p>a</p>")
	if got := tr.NearestContent(b); got != "<p>a</p>" {
		t.Errorf("expected content of a, got %q", got)
	}
	if got := tr.NearestContent(tr.Root()); got != "<p>root</p>" {
		t.Errorf("expected root content unchanged, got %q", got)
	}
	if got := tr.NearestContent("missing"); got != "" {
		t.Errorf("expected empty for unknown id, got %q", got)
	}
}

func TestNearestContent_StopsOnCycle(t *testing.T) {
	tr := New("topic")
	a, _ := tr.AddChild(tr.Root(), "a", KindIdea, Metadata{})
	b, _ := tr.AddChild(a, "b", KindIdea, Metadata{})
	tr.nodes[a].Parent = b

	if got := tr.NearestContent(b); got != "" {
		t.Errorf("expected empty on a cycle, got %q", got)
	}
}

func TestPath(t *testing.T) {
	tr := New("topic")
	a, _ := tr.AddChild(tr.Root(), "a", KindIdea, Metadata{})
	b, _ := tr.AddChild(a, "b", KindIdea, Metadata{})

	path, err := tr.Path(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{tr.Root(), a, b}
	if strings.Join(path, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, path)
	}
}

func TestTransitions(t *testing.T) {
	tr := New("topic")
	a, _ := tr.AddChild(tr.Root(), "a", KindIdea, Metadata{})

	if err := tr.Dismiss(tr.Root()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected dismissing the root to fail, got %v", err)
	}
	if err := tr.Ban(tr.Root()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected banning the root to fail, got %v", err)
	}
	if err := tr.Dismiss(a); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	if err := tr.Dismiss(a); err != nil {
		t.Errorf("expected repeated dismiss to be a no-op, got %v", err)
	}
	if err := tr.Ban(a); err != nil {
		t.Fatalf("ban after dismiss: %v", err)
	}
	if err := tr.Dismiss(a); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected banned node to stay banned, got %v", err)
	}
	if err := tr.Ban("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if tr.Len() != 2 {
		t.Errorf("expected nodes never removed, got %d", tr.Len())
	}
}

func TestSuggestionsAndVisible(t *testing.T) {
	tr := New("topic")
	a, _ := tr.AddChild(tr.Root(), "a", KindIdea, Metadata{})
	b, _ := tr.AddChild(tr.Root(), "b", KindIdea, Metadata{})
	c, _ := tr.AddChild(tr.Root(), "c", KindIdea, Metadata{})
	tr.Dismiss(b)
	tr.Ban(c)

	sugg := tr.Suggestions()
	if len(sugg) != 1 || sugg[0].ID != a {
		t.Errorf("expected only %s suggested, got %+v", a, sugg)
	}

	var ids []string
	for _, n := range tr.Visible() {
		ids = append(ids, n.ID)
	}
	want := []string{tr.Root(), a, b}
	if strings.Join(ids, ",") != strings.Join(want, ",") {
		t.Errorf("expected visible %v, got %v", want, ids)
	}

	// A dismissed node can still be navigated to.
	if err := tr.Navigate(b); err != nil {
		t.Errorf("expected navigation to dismissed node, got %v", err)
	}
}

func TestPinNode(t *testing.T) {
	tr := New("topic")
	a, _ := tr.AddChild(tr.Root(), "first line\nmore", KindIdea, Metadata{Explanation: "why"})

	if ok, _ := tr.PinNode(tr.Root()); ok {
		t.Error("expected root never pinned")
	}
	ok, err := tr.PinNode(a)
	if err != nil || !ok {
		t.Fatalf("expected pin added, got %v %v", ok, err)
	}
	if ok, _ := tr.PinNode(a); ok {
		t.Error("expected duplicate pin skipped")
	}
	pins := tr.Pins()
	if len(pins) != 1 {
		t.Fatalf("expected 1 pin, got %d", len(pins))
	}
	p := pins[0]
	if p.Title != "first line" || p.Text != "why" || p.Scope != "Whole Document" || p.SourceID != a {
		t.Errorf("unexpected pin %+v", p)
	}
	if err := tr.Unpin(3); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := tr.Unpin(0); err != nil || len(tr.Pins()) != 0 {
		t.Errorf("expected pin removed, got %v", err)
	}
}

func TestStrengthen_CountsOnce(t *testing.T) {
	tr := New("topic")
	tr.AddChild(tr.Root(), "a", KindIdea, Metadata{})
	tr.Strengthen("weak intro")
	tr.Strengthen("weak intro")
	tr.Strengthen("no evidence")

	st := tr.Stats()
	if st.Paths != 1 || st.Strength != 2 {
		t.Errorf("expected paths=1 strength=2, got %+v", st)
	}
}

func TestAddChild_ParentWalkReachesRoot(t *testing.T) {
	tr := New("topic")
	ids := []string{tr.Root()}
	for i := 1; i <= 40; i++ {
		parent := ids[(i*7)%len(ids)]
		id, err := tr.AddChild(parent, fmt.Sprintf("node %d", i), KindStandard, Metadata{})
		if err != nil {
			t.Fatalf("add child %d: %v", i, err)
		}
		ids = append(ids, id)
	}

	for _, id := range ids {
		cur, steps := id, 0
		for cur != tr.Root() {
			if steps >= tr.Len() {
				t.Fatalf("parent walk from %s did not reach the root within %d steps", id, tr.Len())
			}
			cur = tr.nodes[cur].Parent
			steps++
		}
	}
}

func TestNearestContent_ThreeEmptyAncestors(t *testing.T) {
	tr := New("topic")
	tr.SetContent(tr.Root(), "<p>root</p>")
	a, _ := tr.AddChild(tr.Root(), "a", KindIdea, Metadata{})
	b, _ := tr.AddChild(a, "b", KindIdea, Metadata{})
	c, _ := tr.AddChild(b, "c", KindIdea, Metadata{})
	d, _ := tr.AddChild(c, "d", KindIdea, Metadata{})

	for _, id := range []string{a, b, c, d} {
		if got := tr.NearestContent(id); got != "<p>root</p>" {
			t.Errorf("expected root content for %s, got %q", id, got)
		}
	}
}

func TestNavigate_ChildInheritsParentContent(t *testing.T) {
	tr := New("topic")
	tr.SetContent(tr.Root(), "<p>The quick brown fox jumps.</p>")
	id, err := tr.AddChild(tr.Root(), "child", KindStandard, Metadata{})
	if err != nil {
		t.Fatalf("add child: %v", err)
	}
	if err := tr.Navigate(id); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if tr.Current() != id {
		t.Errorf("expected current %s, got %s", id, tr.Current())
	}
	if got := tr.NearestContent(tr.Current()); got != "<p>The quick brown fox jumps.</p>" {
		t.Errorf("expected parent content, got %q", got)
	}
	if err := tr.Navigate("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
