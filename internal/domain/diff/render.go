package diff

import (
	"html"
	"regexp"
	"strings"
)

// DefaultAddedClass is the CSS class put on spans wrapping added text
const DefaultAddedClass = "diff-added"

var tagPattern = regexp.MustCompile(`</?[A-Za-z][^<>]*>|<!--.*?-->`)

// Renderer turns diffed text into a presentation format
type Renderer interface {
	Render(t Text) string
}

// HTMLRenderer renders added fragments as <span class="diff-added">.
//
// Recipe text may already contain inline markup. Tags inside an added
// run are written outside the span, so a span never opens inside one
// element and closes inside another. With Escape set the text is
// treated as plain text and HTML-escaped instead.
type HTMLRenderer struct {
	AddedClass string
	Escape     bool
}

// Render renders one diffed text field
func (r HTMLRenderer) Render(t Text) string {
	var b strings.Builder
	for _, f := range t {
		switch {
		case f.Kind == Plain && r.Escape:
			b.WriteString(html.EscapeString(f.Text))
		case f.Kind == Plain:
			b.WriteString(f.Text)
		case r.Escape:
			r.writeSpan(&b, html.EscapeString(f.Text))
		default:
			r.writeAdded(&b, f.Text)
		}
	}
	return b.String()
}

func (r HTMLRenderer) writeAdded(b *strings.Builder, s string) {
	pos := 0
	for _, loc := range tagPattern.FindAllStringIndex(s, -1) {
		r.writeSpan(b, s[pos:loc[0]])
		b.WriteString(s[loc[0]:loc[1]])
		pos = loc[1]
	}
	r.writeSpan(b, s[pos:])
}

func (r HTMLRenderer) writeSpan(b *strings.Builder, s string) {
	if s == "" {
		return
	}
	class := r.AddedClass
	if class == "" {
		class = DefaultAddedClass
	}
	b.WriteString(`<span class="`)
	b.WriteString(html.EscapeString(class))
	b.WriteString(`">`)
	b.WriteString(s)
	b.WriteString(`</span>`)
}

// RenderList renders a diffed list. The result is never nil.
func RenderList(r Renderer, items []Text) []string {
	out := make([]string, len(items))
	for i, t := range items {
		out[i] = r.Render(t)
	}
	return out
}
