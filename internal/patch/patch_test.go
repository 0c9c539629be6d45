package patch

import (
	"errors"
	"strings"
	"testing"
)

func TestApply_ReplacesPhrase(t *testing.T) {
	doc := "<p>The quick brown fox jumps.</p>"
	r, err := Apply(doc, "quick brown fox", "swift red fox")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "<p>The swift red fox jumps.</p>"; r.HTML != want {
		t.Errorf("expected %q, got %q", want, r.HTML)
	}
}

func TestApply_NotPresent(t *testing.T) {
	doc := "<p>The quick brown fox jumps.</p>"
	r, err := Apply(doc, "entirely different sentence here", "x")
	if !errors.Is(err, ErrNotApplied) {
		t.Fatalf("expected ErrNotApplied, got %v", err)
	}
	if r.HTML != "" {
		t.Errorf("expected empty result on miss, got %q", r.HTML)
	}
}

func TestApply_PreservesOutsideRegion(t *testing.T) {
	docs := []struct {
		doc, original string
	}{
		{`<h1 class="t">Title</h1><p>First <b>bold</b> para.</p><p>Second para here.</p>`, "Second para here"},
		{`<div><p>Alpha beta&nbsp;gamma</p><ul><li>delta</li></ul></div>`, "beta gamma"},
		{`<p>שלום <em>עולם</em> ומלואו</p>`, "עולם ומלואו"},
		{`<p>She said &ldquo;fine&rdquo; and left.</p>`, `she said "fine" and left`},
	}
	for _, tc := range docs {
		r, err := Apply(tc.doc, tc.original, "REPLACED")
		if err != nil {
			t.Errorf("%q: unexpected error: %v", tc.doc, err)
			continue
		}
		if r.HTML[:r.Start] != tc.doc[:r.Start] {
			t.Errorf("%q: prefix changed", tc.doc)
		}
		tail := r.HTML[r.Start+len("REPLACED"):]
		if tail != tc.doc[r.End:] {
			t.Errorf("%q: suffix changed: %q vs %q", tc.doc, tail, tc.doc[r.End:])
		}
	}
}

func TestApply_SpanAcrossInlineMarkup(t *testing.T) {
	doc := "<p>First <b>bold</b> para.</p>"
	r, err := Apply(doc, "First bold para", "Plain")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "<p>Plain.</p>"; r.HTML != want {
		t.Errorf("expected %q, got %q", want, r.HTML)
	}
}

func TestApply_DoesNotSwallowBlockTags(t *testing.T) {
	doc := "<p>One.</p><p>Two words here.</p>"
	r, err := Apply(doc, "two words here", "Three")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "<p>One.</p><p>Three.</p>"; r.HTML != want {
		t.Errorf("expected %q, got %q", want, r.HTML)
	}
}

func TestApply_StripsParagraphMarkers(t *testing.T) {
	doc := "<p>Alpha.</p><p>Beta gamma delta.</p>"
	r, err := Apply(doc, "[P2] Beta gamma delta", "Epsilon")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(r.HTML, "<p>Epsilon.</p>") {
		t.Errorf("unexpected result %q", r.HTML)
	}
}

func TestApplyAll_Sequential(t *testing.T) {
	doc := "<p>The quick brown fox jumps.</p>"
	out, outcomes := ApplyAll(doc, []Edit{
		{ID: "a", Original: "quick brown fox", Proposed: "swift red fox"},
		{ID: "b", Original: "zzzz qqqq xxxx", Proposed: "nope"},
		{ID: "c", Original: "swift red fox jumps", Proposed: "swift red fox leaps"},
	})
	if want := "<p>The swift red fox leaps.</p>"; out != want {
		t.Errorf("expected %q, got %q", want, out)
	}
	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}
	if !outcomes[0].Applied || outcomes[1].Applied || !outcomes[2].Applied {
		t.Errorf("unexpected outcomes %+v", outcomes)
	}
	if !errors.Is(outcomes[1].Err, ErrNotApplied) {
		t.Errorf("expected ErrNotApplied for miss, got %v", outcomes[1].Err)
	}
}

func TestApply_TakesClosingPunctuation(t *testing.T) {
	r, err := Apply("<p>First one. Second one.</p>", "First one. Second one.", "Merged.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "<p>Merged.</p>"; r.HTML != want {
		t.Errorf("expected %q, got %q", want, r.HTML)
	}
}
