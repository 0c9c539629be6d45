// Package chunker cuts reference documents into token-sized pieces so a
// prompt can carry as much of them as its budget allows.
package chunker

import (
	"strings"

	"github.com/dgallion1/lantern/internal/doctree"
)

// Config controls chunking behavior. Sizes are in estimated tokens.
type Config struct {
	ChunkSize    int // target chunk size
	ChunkOverlap int // text repeated at the start of the next chunk; 0 for none
	MinChunk     int // smaller chunks are dropped
}

// DefaultConfig suits reference files pasted into prompts: no overlap, and
// nothing is too short to keep.
func DefaultConfig() Config {
	return Config{ChunkSize: 400, ChunkOverlap: 0, MinChunk: 1}
}

func (c Config) withDefaults() Config {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 400
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		c.ChunkOverlap = 0
	}
	if c.MinChunk <= 0 {
		c.MinChunk = 1
	}
	return c
}

// ChunkTree walks a DocTree in document order and produces chunks that
// carry their heading path.
func ChunkTree(tree *doctree.DocTree, cfg Config) []doctree.Chunk {
	w := &walker{cfg: cfg.withDefaults()}
	for _, child := range tree.Children {
		w.visit(child, nil)
	}
	return w.chunks
}

type walker struct {
	cfg    Config
	chunks []doctree.Chunk
}

func (w *walker) visit(node *doctree.DocNode, parent []string) {
	bc := parent
	if node.Title != "" {
		bc = append(append([]string(nil), parent...), node.Title)
	}
	if node.Text != "" {
		if EstimateTokens(node.Text) <= w.cfg.ChunkSize {
			w.emit(node.Text, bc, node.Page)
		} else {
			for _, part := range splitText(node.Text, w.cfg.ChunkSize, w.cfg.ChunkOverlap) {
				w.emit(part, bc, node.Page)
			}
		}
	}
	for _, child := range node.Children {
		w.visit(child, bc)
	}
}

func (w *walker) emit(text string, bc []string, page int) {
	if EstimateTokens(text) < w.cfg.MinChunk {
		return
	}
	w.chunks = append(w.chunks, doctree.Chunk{
		Text:       text,
		Index:      len(w.chunks),
		Breadcrumb: append([]string(nil), bc...),
		Page:       page,
	})
}

// Fit returns the leading chunks whose combined size stays within budget
// tokens. The first chunk that would overflow is cut to the remaining
// budget on a word boundary and ends the selection.
func Fit(chunks []doctree.Chunk, budget int) []doctree.Chunk {
	var out []doctree.Chunk
	for _, c := range chunks {
		n := EstimateTokens(c.Text)
		if n <= budget {
			out = append(out, c)
			budget -= n
			continue
		}
		if cut := TrimToTokens(c.Text, budget); cut != "" {
			c.Text = cut
			out = append(out, c)
		}
		break
	}
	return out
}

// TrimToTokens keeps the leading words of text that fit in n tokens.
func TrimToTokens(text string, n int) string {
	words := strings.Fields(text)
	keep := int(float64(n) / tokensPerWord)
	if keep <= 0 {
		return ""
	}
	if keep >= len(words) {
		return text
	}
	return strings.Join(words[:keep], " ")
}

// splitText breaks an oversized section into chunks of about target
// tokens. Paragraphs are kept whole where possible; a paragraph that is
// itself too large is split on sentences.
func splitText(text string, target, overlap int) []string {
	var out, run []string
	flush := func() {
		if len(run) > 0 {
			out = append(out, pack(run, "\n\n", target, overlap)...)
			run = nil
		}
	}
	for _, p := range paragraphs(text) {
		if EstimateTokens(p) > target {
			flush()
			out = append(out, pack(sentences(p), " ", target, overlap)...)
			continue
		}
		run = append(run, p)
	}
	flush()
	return out
}

// pack greedily joins units with sep into chunks of about target tokens.
// Each new chunk starts with the last overlap tokens of the previous one.
func pack(units []string, sep string, target, overlap int) []string {
	var out []string
	var cur strings.Builder
	size := 0
	for _, u := range units {
		n := EstimateTokens(u)
		if size > 0 && size+n > target {
			out = append(out, cur.String())
			tail := overlapText(cur.String(), overlap)
			cur.Reset()
			size = 0
			if tail != "" {
				cur.WriteString(tail)
				size = EstimateTokens(tail)
			}
		}
		if cur.Len() > 0 {
			cur.WriteString(sep)
		}
		cur.WriteString(u)
		size += n
	}
	if size > 0 {
		out = append(out, cur.String())
	}
	return out
}

func paragraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// sentences splits after '.', '!' or '?' followed by a space.
func sentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i+1 < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			if text[i+1] == ' ' {
				if s := strings.TrimSpace(text[start : i+1]); s != "" {
					out = append(out, s)
				}
				start = i + 1
			}
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

// overlapText returns the last n tokens' worth of words of text, or "" when
// text is not longer than that.
func overlapText(text string, n int) string {
	words := strings.Fields(text)
	keep := int(float64(n) / tokensPerWord)
	if keep <= 0 || len(words) <= keep {
		return ""
	}
	return strings.Join(words[len(words)-keep:], " ")
}
