package importer

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/dgallion1/lantern/internal/doctree"
)

// parsePDF extracts text page by page with the PDF library, or with the
// pdftotext binary when that fails and the fallback is enabled.
func parsePDF(ctx context.Context, src []byte, title string, opts Options) (*doctree.DocTree, error) {
	pages, err := pdfPages(src)
	if err != nil && opts.PDFFallback {
		pages, err = pdftotext(ctx, src)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	tree := &doctree.DocTree{Title: title}
	for i, page := range pages {
		text := reflow(page)
		if text == "" {
			continue
		}
		tree.Children = append(tree.Children, &doctree.DocNode{Text: text, Page: i + 1})
	}
	return tree, nil
}

func pdfPages(src []byte) (pages []string, err error) {
	// The library panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader: %v", r)
		}
	}()
	reader, err := pdflib.NewReader(bytes.NewReader(src), int64(len(src)))
	if err != nil {
		return nil, err
	}
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}

func pdftotext(ctx context.Context, src []byte) ([]string, error) {
	cmd := exec.CommandContext(ctx, "pdftotext", "-layout", "-", "-")
	cmd.Stdin = bytes.NewReader(src)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	return strings.Split(string(out), "\f"), nil
}

// reflow trims each line of a page and keeps blank lines as paragraph
// breaks.
func reflow(page string) string {
	lines := strings.Split(page, "\n")
	var paras []string
	var cur []string
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			if len(cur) > 0 {
				paras = append(paras, strings.Join(cur, "\n"))
				cur = nil
			}
			continue
		}
		cur = append(cur, l)
	}
	if len(cur) > 0 {
		paras = append(paras, strings.Join(cur, "\n"))
	}
	return strings.Join(paras, "\n\n")
}
