// Package htmltok lexes an HTML string into a flat token stream and derives
// the plain-text projection used to align LLM fragments with live markup.
//
// The lexer never builds a DOM and never fails. Anything it cannot
// recognize, such as an unterminated tag or a stray ampersand, is emitted as
// ordinary text, so the tokens always tile the whole input.
package htmltok

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Kind identifies what a Token was lexed from.
type Kind int

const (
	Text Kind = iota
	Tag
	Entity
)

func (k Kind) String() string {
	switch k {
	case Tag:
		return "tag"
	case Entity:
		return "entity"
	default:
		return "text"
	}
}

// Token is one lexical unit of the source document.
type Token struct {
	Kind    Kind
	Content string // exact source bytes
	Offset  int    // byte offset of Content in the source
}

// End returns the byte offset just past the token.
func (t Token) End() int {
	return t.Offset + len(t.Content)
}

// Result is a tokenized document and its plain-text projection.
// Plain and PlainToToken always have the same length.
type Result struct {
	Tokens       []Token
	Plain        []rune
	PlainToToken []int
}

// maxEntityLen bounds how far past '&' we look for the closing ';'.
const maxEntityLen = 10

var blockTags = map[string]bool{
	"p": true, "div": true, "li": true, "blockquote": true, "br": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// Tokenize lexes doc left to right and builds the projection.
func Tokenize(doc string) Result {
	var res Result
	for i := 0; i < len(doc); {
		switch doc[i] {
		case '<':
			if end := strings.IndexByte(doc[i:], '>'); end != -1 {
				res.Tokens = append(res.Tokens, Token{Kind: Tag, Content: doc[i : i+end+1], Offset: i})
				i += end + 1
				continue
			}
		case '&':
			if end := strings.IndexByte(doc[i:], ';'); end != -1 && end < maxEntityLen {
				res.Tokens = append(res.Tokens, Token{Kind: Entity, Content: doc[i : i+end+1], Offset: i})
				i += end + 1
				continue
			}
		}
		_, size := utf8.DecodeRuneInString(doc[i:])
		res.Tokens = append(res.Tokens, Token{Kind: Text, Content: doc[i : i+size], Offset: i})
		i += size
	}
	res.project()
	return res
}

func (r *Result) project() {
	r.Plain = make([]rune, 0, len(r.Tokens))
	r.PlainToToken = make([]int, 0, len(r.Tokens))
	for idx, tok := range r.Tokens {
		switch tok.Kind {
		case Text:
			ch, _ := utf8.DecodeRuneInString(tok.Content)
			r.Plain = append(r.Plain, ch)
		case Entity:
			r.Plain = append(r.Plain, decodeEntity(tok.Content))
		case Tag:
			if !blockTags[TagName(tok.Content)] {
				continue
			}
			r.Plain = append(r.Plain, '\n')
		}
		r.PlainToToken = append(r.PlainToToken, idx)
	}
}

// decodeEntity maps an entity to the single character it stands for.
// Unknown or multi-character entities project to a space.
func decodeEntity(ent string) rune {
	dec := html.UnescapeString(ent)
	if dec == ent || utf8.RuneCountInString(dec) != 1 {
		return ' '
	}
	ch, _ := utf8.DecodeRuneInString(dec)
	if ch == '\u00a0' {
		return ' '
	}
	return ch
}

// TagName returns the lowercased name of a tag token: the first run of
// ASCII letters and digits after "<" or "</".
func TagName(tag string) string {
	s := strings.TrimPrefix(tag, "<")
	s = strings.TrimPrefix(s, "/")
	end := 0
	for end < len(s) && isASCIIAlnum(s[end]) {
		end++
	}
	return strings.ToLower(s[:end])
}

func isASCIIAlnum(b byte) bool {
	return ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9')
}

// Range maps the inclusive projection interval [start, end] to a half-open
// byte range of the source document. ok is false when either index is
// outside the projection.
func (r Result) Range(start, end int) (htmlStart, htmlEnd int, ok bool) {
	if start < 0 || end < start || end >= len(r.PlainToToken) {
		return 0, 0, false
	}
	first, last := r.PlainToToken[start], r.PlainToToken[end]
	if first < 0 || last >= len(r.Tokens) {
		return 0, 0, false
	}
	return r.Tokens[first].Offset, r.Tokens[last].End(), true
}
