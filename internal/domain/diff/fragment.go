// Package diff computes what changed between two versions of a recipe.
//
// The engine works on text fragments that are either unchanged or newly
// added; removed text is never surfaced. Fragments are markup agnostic and
// are only turned into HTML (or anything else) by a Renderer.
package diff

import "strings"

// Kind tells whether a fragment was already present in the old text
type Kind int

const (
	// Plain text exists in both versions
	Plain Kind = iota
	// Added text exists only in the new version
	Added
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case Plain:
		return "plain"
	case Added:
		return "added"
	default:
		return "unknown"
	}
}

// Fragment is a run of text of a single kind
type Fragment struct {
	Kind Kind
	Text string
}

// Text is one diffed text field: the new value split into fragments.
// Adjacent fragments never share a kind and no fragment is empty.
type Text []Fragment

// PlainText returns a Text holding s unchanged
func PlainText(s string) Text {
	var t Text
	return t.append(Plain, s)
}

// AddedText returns a Text holding s as entirely new
func AddedText(s string) Text {
	var t Text
	return t.append(Added, s)
}

// String returns the new text with all markers stripped
func (t Text) String() string {
	var b strings.Builder
	for _, f := range t {
		b.WriteString(f.Text)
	}
	return b.String()
}

// HasAdditions reports whether any fragment is marked as added
func (t Text) HasAdditions() bool {
	return t.Additions() > 0
}

// Additions returns the number of added fragments
func (t Text) Additions() int {
	n := 0
	for _, f := range t {
		if f.Kind == Added {
			n++
		}
	}
	return n
}

// append adds s as kind k, merging with the previous fragment when the
// kinds match.
func (t Text) append(k Kind, s string) Text {
	if s == "" {
		return t
	}
	if last := len(t) - 1; last >= 0 && t[last].Kind == k {
		t[last].Text += s
		return t
	}
	return append(t, Fragment{Kind: k, Text: s})
}
