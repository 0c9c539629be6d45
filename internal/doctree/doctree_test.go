package doctree

import "testing"

func TestHTML_RendersOutline(t *testing.T) {
	tree := &DocTree{
		Title: "Fish & Chips",
		Children: []*DocNode{
			{Text: "Intro <b>para</b>.\n\nSecond line\nwrapped."},
			{Title: "History", Children: []*DocNode{{Title: "Origins", Text: "Long ago."}}},
		},
	}
	want := "<h1>Fish &amp; Chips</h1>\n" +
		"<p>Intro &lt;b&gt;para&lt;/b&gt;.</p>\n" +
		"<p>Second line<br>wrapped.</p>\n" +
		"<h2>History</h2>\n" +
		"<h3>Origins</h3>\n" +
		"<p>Long ago.</p>\n"
	if got := tree.HTML(); got != want {
		t.Errorf("expected\n%s\ngot\n%s", want, got)
	}
}

func TestHTML_DeepHeadingsCapped(t *testing.T) {
	n := &DocNode{Title: "L6"}
	for i := 0; i < 4; i++ {
		n = &DocNode{Title: "x", Children: []*DocNode{n}}
	}
	tree := &DocTree{Children: []*DocNode{{Title: "a", Children: []*DocNode{n}}}}
	got := tree.HTML()
	if want := "<h6>L6</h6>\n"; got[len(got)-len(want):] != want {
		t.Errorf("expected deepest heading capped at h6, got %q", got)
	}
}

func TestFromText(t *testing.T) {
	if tr := FromText("empty", "   "); len(tr.Children) != 0 {
		t.Errorf("expected no children for blank text, got %d", len(tr.Children))
	}
	if tr := FromText("notes", "body"); len(tr.Children) != 1 || tr.Children[0].Text != "body" {
		t.Errorf("unexpected tree %+v", tr)
	}
}
