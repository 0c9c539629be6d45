package importer

import (
	"strings"

	"github.com/dgallion1/lantern/internal/doctree"
)

// outline builds a DocTree from a flat stream of headings and paragraphs.
// A heading nests under the closest preceding heading of a lower level.
type outline struct {
	root  *doctree.DocNode
	stack []openSection
	buf   []string
}

type openSection struct {
	node  *doctree.DocNode
	level int
}

func newOutline() *outline {
	root := &doctree.DocNode{}
	return &outline{root: root, stack: []openSection{{node: root}}}
}

func (o *outline) heading(level int, title string) {
	title = strings.TrimSpace(title)
	if title == "" {
		return
	}
	o.flush()
	n := &doctree.DocNode{Title: title}
	for len(o.stack) > 1 && o.stack[len(o.stack)-1].level >= level {
		o.stack = o.stack[:len(o.stack)-1]
	}
	parent := o.stack[len(o.stack)-1].node
	parent.Children = append(parent.Children, n)
	o.stack = append(o.stack, openSection{node: n, level: level})
}

func (o *outline) paragraph(text string) {
	if text = strings.TrimSpace(text); text != "" {
		o.buf = append(o.buf, text)
	}
}

func (o *outline) flush() {
	if len(o.buf) == 0 {
		return
	}
	top := o.stack[len(o.stack)-1].node
	text := strings.Join(o.buf, "\n\n")
	if top.Text != "" {
		top.Text += "\n\n" + text
	} else {
		top.Text = text
	}
	o.buf = nil
}

// tree finishes the outline. Text before the first heading becomes an
// untitled leading section. A document that is a single top heading uses
// it as the title.
func (o *outline) tree(title string) *doctree.DocTree {
	o.flush()
	t := &doctree.DocTree{Title: title}
	kids := o.root.Children
	if len(kids) == 1 && o.root.Text == "" {
		only := kids[0]
		t.Title = only.Title
		kids = only.Children
		if only.Text != "" {
			kids = append([]*doctree.DocNode{{Text: only.Text, Page: only.Page}}, kids...)
		}
	} else if o.root.Text != "" {
		kids = append([]*doctree.DocNode{{Text: o.root.Text}}, kids...)
	}
	t.Children = kids
	return t
}
