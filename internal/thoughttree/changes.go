package thoughttree

import (
	"fmt"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Changes counts how the visible text of a node differs from the content
// it inherited from its parent chain. Counts are in characters.
type Changes struct {
	Added     int  `json:"added"`
	Removed   int  `json:"removed"`
	Unchanged int  `json:"unchanged"`
	OwnDraft  bool `json:"own_draft"`
}

// Changes compares node id's nearest content with its parent's nearest
// content.
func (t *Tree) Changes(id string) (Changes, error) {
	n, ok := t.nodes[id]
	if !ok {
		return Changes{}, fmt.Errorf("node %s: %w", id, ErrNotFound)
	}
	var base string
	if !n.IsRoot() {
		base = plainText(t.NearestContent(n.Parent))
	}
	mine := plainText(t.NearestContent(id))

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(base, mine, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	ch := Changes{OwnDraft: n.Metadata.HTML != ""}
	for _, d := range diffs {
		size := utf8.RuneCountInString(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			ch.Added += size
		case diffmatchpatch.DiffDelete:
			ch.Removed += size
		case diffmatchpatch.DiffEqual:
			ch.Unchanged += size
		}
	}
	return ch, nil
}
