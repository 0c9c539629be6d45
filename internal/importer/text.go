package importer

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/lantern/internal/doctree"
)

// titleMaxRunes bounds a first line that is taken as the title of a plain
// text file.
const titleMaxRunes = 100

func parseText(_ context.Context, src []byte, title string, _ Options) (*doctree.DocTree, error) {
	scanner := bufio.NewScanner(bytes.NewReader(src))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paras []string
	var cur []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			if len(cur) > 0 {
				paras = append(paras, strings.Join(cur, "\n"))
				cur = nil
			}
			continue
		}
		cur = append(cur, line)
	}
	if len(cur) > 0 {
		paras = append(paras, strings.Join(cur, "\n"))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	tree := &doctree.DocTree{Title: title}
	if len(paras) > 1 && !strings.Contains(paras[0], "\n") && utf8.RuneCountInString(paras[0]) < titleMaxRunes {
		tree.Title = paras[0]
		paras = paras[1:]
	}
	for _, p := range paras {
		tree.Children = append(tree.Children, &doctree.DocNode{Text: p})
	}
	return tree, nil
}
