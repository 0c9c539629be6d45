// Package patch splices LLM-proposed replacements into live HTML.
package patch

import (
	"errors"
	"fmt"

	"github.com/dgallion1/lantern/internal/fuzzy"
	"github.com/dgallion1/lantern/internal/htmltok"
)

// ErrNotApplied means the original fragment could not be placed in the
// document. The document is never modified when it is returned.
var ErrNotApplied = errors.New("suggestion could not be placed")

// Result describes a successful splice.
type Result struct {
	HTML  string
	Start int // byte offset of the replaced region in the input
	End   int // byte offset just past the replaced region in the input
	Match fuzzy.Match
}

// Apply replaces the region of doc whose text best matches original with
// proposed. Bytes outside [Start, End) are copied unchanged.
func Apply(doc, original, proposed string) (Result, error) {
	res := htmltok.Tokenize(doc)
	m, ok := fuzzy.Locate(res.Plain, original)
	if !ok {
		return Result{}, fmt.Errorf("locate %q: %w", preview(original), ErrNotApplied)
	}
	start, end, ok := res.Range(m.Start, m.End())
	if !ok || start > end || end > len(doc) {
		return Result{}, fmt.Errorf("map span [%d,%d]: %w", m.Start, m.End(), ErrNotApplied)
	}
	return Result{
		HTML:  doc[:start] + proposed + doc[end:],
		Start: start,
		End:   end,
		Match: m,
	}, nil
}

// Edit is one replacement to apply in a batch.
type Edit struct {
	ID       string
	Original string
	Proposed string
}

// Outcome reports what happened to one Edit in ApplyAll.
type Outcome struct {
	ID      string
	Applied bool
	Err     error
}

// ApplyAll applies edits in order, each against the output of the previous
// one. An edit that cannot be placed leaves the document as it was.
func ApplyAll(doc string, edits []Edit) (string, []Outcome) {
	outcomes := make([]Outcome, 0, len(edits))
	for _, e := range edits {
		r, err := Apply(doc, e.Original, e.Proposed)
		if err != nil {
			outcomes = append(outcomes, Outcome{ID: e.ID, Err: err})
			continue
		}
		doc = r.HTML
		outcomes = append(outcomes, Outcome{ID: e.ID, Applied: true})
	}
	return doc, outcomes
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= 40 {
		return s
	}
	return string(r[:37]) + "..."
}
