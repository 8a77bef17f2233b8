package diff

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

var (
	markupPattern = regexp.MustCompile(`^(?:</?[A-Za-z][^<>]*>|<!--.*?-->)`)
	entityPattern = regexp.MustCompile(`^&(?:#[0-9]+|#[xX][0-9a-fA-F]+|[A-Za-z][A-Za-z0-9]*);`)
)

// Words diffs two text values at word granularity and returns newText
// split into plain and added fragments. Text present only in oldText is
// dropped. Absent values are passed as empty strings.
func Words(oldText, newText string) Text {
	switch {
	case newText == "":
		return nil
	case oldText == newText:
		return PlainText(newText)
	case oldText == "":
		return AddedText(newText)
	}

	table := newTokenTable()
	a, okOld := table.encode(tokenize(oldText))
	b, okNew := table.encode(tokenize(newText))
	if !okOld || !okNew {
		// More distinct tokens than there are runes to stand in for them
		return AddedText(newText)
	}

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0

	var out Text
	for _, d := range dmp.DiffMainRunes(a, b, false) {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			out = out.append(Plain, table.decode(d.Text))
		case diffmatchpatch.DiffInsert:
			out = out.append(Added, table.decode(d.Text))
		}
	}
	return out
}

// tokenize splits s into word tokens: runs of letters and digits, runs
// of whitespace, HTML tags and entities, and single other characters.
// Concatenating the tokens gives back s.
func tokenize(s string) []string {
	var tokens []string
	for len(s) > 0 {
		n := tokenLen(s)
		tokens = append(tokens, s[:n])
		s = s[n:]
	}
	return tokens
}

func tokenLen(s string) int {
	r, size := utf8.DecodeRuneInString(s)
	switch {
	case r == '<':
		if loc := markupPattern.FindStringIndex(s); loc != nil {
			return loc[1]
		}
	case r == '&':
		if loc := entityPattern.FindStringIndex(s); loc != nil {
			return loc[1]
		}
	case unicode.IsSpace(r):
		return runLen(s, unicode.IsSpace)
	case isWordRune(r):
		return runLen(s, isWordRune)
	}
	return size
}

func runLen(s string, in func(rune) bool) int {
	end := strings.IndexFunc(s, func(r rune) bool { return !in(r) })
	if end < 0 {
		return len(s)
	}
	return end
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

// tokenTable maps each distinct token to a rune so the rune-level
// diff-match-patch engine can run over whole tokens.
type tokenTable struct {
	codes  map[string]rune
	tokens []string
}

// Stand-in runes skip the surrogate block, which does not survive a
// round trip through a Go string.
const (
	lowCodes  = 0xD800
	highStart = 0xE000
	highCodes = utf8.MaxRune + 1 - highStart
)

func newTokenTable() *tokenTable {
	return &tokenTable{codes: make(map[string]rune)}
}

func (t *tokenTable) encode(tokens []string) ([]rune, bool) {
	out := make([]rune, len(tokens))
	for i, tok := range tokens {
		code, ok := t.codes[tok]
		if !ok {
			n := len(t.tokens)
			if n >= lowCodes+highCodes {
				return nil, false
			}
			code = codeFor(n)
			t.codes[tok] = code
			t.tokens = append(t.tokens, tok)
		}
		out[i] = code
	}
	return out, true
}

func (t *tokenTable) decode(s string) string {
	var b strings.Builder
	for _, r := range s {
		b.WriteString(t.tokens[indexFor(r)])
	}
	return b.String()
}

func codeFor(i int) rune {
	if i < lowCodes {
		return rune(i)
	}
	return rune(highStart + i - lowCodes)
}

func indexFor(r rune) int {
	if r < lowCodes {
		return int(r)
	}
	return int(r) - highStart + lowCodes
}
