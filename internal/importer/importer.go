// Package importer turns uploaded files into a DocTree that seeds a
// session's root document.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/lantern/internal/doctree"
)

var (
	ErrUnsupported = errors.New("unsupported file type")
	ErrTooLarge    = errors.New("file too large")
)

// Options controls an import.
type Options struct {
	MaxBytes    int64 // 0 for no limit
	PDFFallback bool  // try pdftotext when the PDF library fails
}

type parseFunc func(ctx context.Context, src []byte, title string, opts Options) (*doctree.DocTree, error)

var parsers = map[string]parseFunc{
	".txt":      parseText,
	".md":       parseMarkdown,
	".markdown": parseMarkdown,
	".html":     parseHTML,
	".htm":      parseHTML,
	".pdf":      parsePDF,
	".docx":     parseDOCX,
}

// Supported reports whether filename has an extension that can be imported.
func Supported(filename string) bool {
	_, ok := parsers[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Import reads r fully and parses it according to filename's extension.
// The file name without extension is the fallback title.
func Import(ctx context.Context, r io.Reader, filename string, opts Options) (*doctree.DocTree, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	parse, ok := parsers[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	if opts.MaxBytes > 0 {
		r = io.LimitReader(r, opts.MaxBytes+1)
	}
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if opts.MaxBytes > 0 && int64(len(src)) > opts.MaxBytes {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, opts.MaxBytes)
	}
	title := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	tree, err := parse(ctx, src, title, opts)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", ext, err)
	}
	return tree, nil
}
