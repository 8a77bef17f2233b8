// Package recipe contains the core domain model for generated recipes
// and the revisions an update service produces for them.
package recipe

import "encoding/json"

// Recipe represents a structured recipe as produced by the generation
// and update services. Text leaves may carry inline markup such as
// <strong>; the domain treats them as opaque text.
type Recipe struct {
	Title       string
	Description string

	// Timing and yield, free text as returned by the generator
	PrepTime string
	CookTime string
	Servings string

	Macros *Macros

	Ingredients  IngredientList
	Instructions []string
	Notes        []string

	// Extra holds any JSON keys the domain does not model. They are
	// carried through decoding, diffing and encoding untouched.
	Extra map[string]json.RawMessage
}

// Macros holds estimated macronutrients per serving
type Macros struct {
	Calories int `json:"calories"`
	Protein  int `json:"protein"`
	Carbs    int `json:"carbs"`
	Fat      int `json:"fat"`
}

// Clone returns a shallow copy of the recipe. Slices are re-sliced
// into new backing arrays so the copy can be edited independently;
// Macros and Extra are shared.
func (r *Recipe) Clone() *Recipe {
	if r == nil {
		return nil
	}
	c := *r
	c.Instructions = cloneStrings(r.Instructions)
	c.Notes = cloneStrings(r.Notes)
	if r.Ingredients != nil {
		c.Ingredients = r.Ingredients.clone()
	}
	return &c
}

// IsEmpty reports whether the recipe carries no content at all
func (r *Recipe) IsEmpty() bool {
	if r == nil {
		return true
	}
	return r.Title == "" &&
		r.Description == "" &&
		(r.Ingredients == nil || r.Ingredients.Len() == 0) &&
		len(r.Instructions) == 0 &&
		len(r.Notes) == 0
}

// FlatItems returns the ingredient items when the recipe uses a flat
// ingredient list, or nil otherwise.
func (r *Recipe) FlatItems() []string {
	if flat, ok := r.Ingredients.(FlatIngredients); ok {
		return flat
	}
	return nil
}

// Groups returns the ingredient groups when the recipe uses grouped
// ingredients, or nil otherwise.
func (r *Recipe) Groups() []IngredientGroup {
	if grouped, ok := r.Ingredients.(GroupedIngredients); ok {
		return grouped
	}
	return nil
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
