package diff

import "github.com/alchemorsel/recipediff/internal/domain/recipe"

// RecipeDiff is a recipe diffed field by field. Only the ingredient
// field matching the new recipe's shape is set.
type RecipeDiff struct {
	Title       Text
	Description Text

	// Grouped tells which of the two ingredient fields is in use
	Grouped          bool
	Ingredients      []Text
	IngredientGroups []Group

	Instructions []Text
	Notes        []Text
}

// Additions returns the number of added fragments across the recipe
func (d *RecipeDiff) Additions() int {
	if d == nil {
		return 0
	}
	n := d.Title.Additions() + d.Description.Additions()
	n += countList(d.Ingredients) + countList(d.Instructions) + countList(d.Notes)
	for _, g := range d.IngredientGroups {
		n += g.Name.Additions() + countList(g.Items)
	}
	return n
}

// Changed reports whether anything was added
func (d *RecipeDiff) Changed() bool {
	return d.Additions() > 0
}

func countList(items []Text) int {
	n := 0
	for _, t := range items {
		n += t.Additions()
	}
	return n
}

// Engine diffs whole recipes. It holds no per-call state and is safe for
// concurrent use.
type Engine struct {
	alignment Alignment
	renderer  Renderer
}

// Option configures an Engine
type Option func(*Engine)

// WithAlignment sets the list alignment strategy
func WithAlignment(a Alignment) Option {
	return func(e *Engine) { e.alignment = a }
}

// WithRenderer sets the renderer used by Render and RenderHTML
func WithRenderer(r Renderer) Option {
	return func(e *Engine) { e.renderer = r }
}

// NewEngine creates an engine using the greedy alignment and the HTML
// renderer unless overridden.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		alignment: AlignGreedy,
		renderer:  HTMLRenderer{AddedClass: DefaultAddedClass},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Alignment returns the configured list alignment
func (e *Engine) Alignment() Alignment {
	return e.alignment
}

// Compare diffs oldRecipe against newRecipe. It returns nil when either
// recipe is nil since there is nothing to compare against.
func (e *Engine) Compare(oldRecipe, newRecipe *recipe.Recipe) *RecipeDiff {
	if oldRecipe == nil || newRecipe == nil {
		return nil
	}

	d := &RecipeDiff{
		Title:        Words(oldRecipe.Title, newRecipe.Title),
		Description:  Words(oldRecipe.Description, newRecipe.Description),
		Instructions: e.alignment.List(oldRecipe.Instructions, newRecipe.Instructions),
		Notes:        e.alignment.List(oldRecipe.Notes, newRecipe.Notes),
	}

	// The new recipe decides the shape; an old list of the other shape
	// counts as empty.
	switch list := newRecipe.Ingredients.(type) {
	case recipe.GroupedIngredients:
		d.Grouped = true
		d.IngredientGroups = e.alignment.Groups(oldRecipe.Groups(), list)
	case recipe.FlatIngredients:
		d.Ingredients = e.alignment.List(oldRecipe.FlatItems(), list)
	}

	return d
}

// Render applies a diff to a shallow copy of newRecipe, replacing every
// diffed field with its rendered form. Fields the diff does not cover
// are carried over as they are.
func (e *Engine) Render(d *RecipeDiff, newRecipe *recipe.Recipe) *recipe.Recipe {
	if d == nil || newRecipe == nil {
		return newRecipe
	}

	out := *newRecipe
	out.Title = e.renderer.Render(d.Title)
	out.Description = e.renderer.Render(d.Description)
	out.Instructions = RenderList(e.renderer, d.Instructions)
	out.Notes = RenderList(e.renderer, d.Notes)

	switch {
	case d.Grouped:
		groups := make(recipe.GroupedIngredients, len(d.IngredientGroups))
		for i, g := range d.IngredientGroups {
			groups[i] = recipe.IngredientGroup{
				GroupName: e.renderer.Render(g.Name),
				Items:     RenderList(e.renderer, g.Items),
			}
		}
		out.Ingredients = groups
	case newRecipe.Ingredients != nil:
		out.Ingredients = recipe.FlatIngredients(RenderList(e.renderer, d.Ingredients))
	}

	return &out
}

// RenderHTML diffs the two recipes and renders the result. When either
// recipe is nil newRecipe is returned as is.
func (e *Engine) RenderHTML(oldRecipe, newRecipe *recipe.Recipe) *recipe.Recipe {
	return e.Render(e.Compare(oldRecipe, newRecipe), newRecipe)
}

var defaultEngine = NewEngine()

// RecipeHTML diffs two recipes with the default engine and returns the new
// recipe with added text wrapped in diff-added spans.
func RecipeHTML(oldRecipe, newRecipe *recipe.Recipe) *recipe.Recipe {
	return defaultEngine.RenderHTML(oldRecipe, newRecipe)
}
