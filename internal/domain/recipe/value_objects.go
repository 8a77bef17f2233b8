package recipe

// Value Objects - Immutable objects that describe aspects of the domain

// IngredientList is the ingredients of a recipe. A recipe uses exactly
// one of the two shapes; which one is decided when the recipe is
// decoded and never re-inspected afterwards.
type IngredientList interface {
	// Len returns the number of top-level entries (items or groups)
	Len() int
	// Grouped reports whether the list is organised in named groups
	Grouped() bool

	clone() IngredientList
}

// FlatIngredients is an ordered list of ingredient lines
type FlatIngredients []string

// Len returns the number of ingredient lines
func (f FlatIngredients) Len() int { return len(f) }

// Grouped always returns false for a flat list
func (f FlatIngredients) Grouped() bool { return false }

func (f FlatIngredients) clone() IngredientList {
	return FlatIngredients(cloneStrings(f))
}

// GroupedIngredients is an ordered list of named ingredient groups
type GroupedIngredients []IngredientGroup

// Len returns the number of groups
func (g GroupedIngredients) Len() int { return len(g) }

// Grouped always returns true for grouped ingredients
func (g GroupedIngredients) Grouped() bool { return true }

func (g GroupedIngredients) clone() IngredientList {
	if g == nil {
		return GroupedIngredients(nil)
	}
	out := make(GroupedIngredients, len(g))
	for i, group := range g {
		out[i] = IngredientGroup{
			GroupName: group.GroupName,
			Items:     cloneStrings(group.Items),
		}
	}
	return out
}

// IngredientGroup is a named block of ingredients, e.g. "For the Marinade"
type IngredientGroup struct {
	GroupName string   `json:"group_name"`
	Items     []string `json:"items"`
}
