package security

import (
	"github.com/alchemorsel/recipediff/internal/domain/recipe"
	"github.com/alchemorsel/recipediff/internal/ports/outbound"
	"github.com/microcosm-cc/bluemonday"
)

// inlineTags are the elements generated recipes use for emphasis
var inlineTags = []string{"b", "strong", "i", "em", "u", "s", "sub", "sup", "small", "mark", "br", "span"}

// Sanitizer strips every element except inline formatting from recipe
// text, so the diff markup is the only active HTML in a rendered recipe
type Sanitizer struct {
	policy *bluemonday.Policy
}

var _ outbound.Sanitizer = (*Sanitizer)(nil)

// NewSanitizer creates a new Sanitizer with the inline-only policy
func NewSanitizer() *Sanitizer {
	p := bluemonday.NewPolicy()
	p.AllowElements(inlineTags...)
	p.AllowAttrs("class").OnElements("span")

	return &Sanitizer{policy: p}
}

// Sanitize sanitizes one text value
func (s *Sanitizer) Sanitize(text string) string {
	if text == "" {
		return text
	}
	return s.policy.Sanitize(text)
}

// SanitizeRecipe returns a sanitized copy of r. Fields that are not
// rendered as HTML (timings, macros, extra keys) are carried over.
func (s *Sanitizer) SanitizeRecipe(r *recipe.Recipe) *recipe.Recipe {
	if r == nil {
		return nil
	}

	out := r.Clone()
	out.Title = s.Sanitize(out.Title)
	out.Description = s.Sanitize(out.Description)
	s.sanitizeAll(out.Instructions)
	s.sanitizeAll(out.Notes)

	switch list := out.Ingredients.(type) {
	case recipe.FlatIngredients:
		s.sanitizeAll(list)
	case recipe.GroupedIngredients:
		for i := range list {
			list[i].GroupName = s.Sanitize(list[i].GroupName)
			s.sanitizeAll(list[i].Items)
		}
	}
	return out
}

func (s *Sanitizer) sanitizeAll(items []string) {
	for i, item := range items {
		items[i] = s.Sanitize(item)
	}
}
