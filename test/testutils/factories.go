// Package testutils provides test data factories for consistent test data generation
package testutils

import (
	"fmt"
	"strings"
	"time"

	"github.com/alchemorsel/recipediff/internal/domain/recipe"
	"github.com/brianvoe/gofakeit/v6"
)

var units = []string{"cup", "tbsp", "tsp", "g", "ml", "clove", "pinch"}

// RecipeFactory provides methods to create test recipes
type RecipeFactory struct {
	faker *gofakeit.Faker
}

// NewRecipeFactory creates a new recipe factory with seeded faker
func NewRecipeFactory(seed int64) *RecipeFactory {
	return &RecipeFactory{
		faker: gofakeit.New(seed),
	}
}

// Ingredient returns a random ingredient line such as "2 cup carrot"
func (rf *RecipeFactory) Ingredient() string {
	return fmt.Sprintf("%d %s %s",
		rf.faker.Number(1, 5),
		rf.faker.RandomString(units),
		strings.ToLower(rf.faker.Vegetable()),
	)
}

// Instruction returns a random instruction step
func (rf *RecipeFactory) Instruction() string {
	return rf.faker.Sentence(8)
}

// CreateFlatRecipe creates a recipe with a flat ingredient list
func (rf *RecipeFactory) CreateFlatRecipe() *recipe.Recipe {
	b := NewRecipeBuilder().
		WithTitle(rf.faker.Sentence(3)).
		WithDescription(rf.faker.Paragraph(1, 2, 8, " "))

	for i := 0; i < 4; i++ {
		b.WithIngredients(rf.Ingredient())
	}
	for i := 0; i < 3; i++ {
		b.WithInstructions(rf.Instruction())
	}
	return b.WithNotes(rf.faker.Sentence(6)).Build()
}

// CreateGroupedRecipe creates a recipe with two ingredient groups
func (rf *RecipeFactory) CreateGroupedRecipe() *recipe.Recipe {
	return NewRecipeBuilder().
		WithTitle(rf.faker.Sentence(3)).
		WithDescription(rf.faker.Sentence(10)).
		WithGroup("For the sauce", rf.Ingredient(), rf.Ingredient()).
		WithGroup("For the base", rf.Ingredient(), rf.Ingredient(), rf.Ingredient()).
		WithInstructions(rf.Instruction(), rf.Instruction()).
		Build()
}

// Modify returns a copy of r with one ingredient appended and one
// instruction inserted at the front, the kind of change an update makes
func (rf *RecipeFactory) Modify(r *recipe.Recipe) *recipe.Recipe {
	out := r.Clone()
	switch list := out.Ingredients.(type) {
	case recipe.FlatIngredients:
		out.Ingredients = append(list, rf.Ingredient())
	case recipe.GroupedIngredients:
		if len(list) > 0 {
			last := &list[len(list)-1]
			last.Items = append(last.Items, rf.Ingredient())
		}
	}
	out.Instructions = append([]string{rf.Instruction()}, out.Instructions...)
	return out
}

// RecipeBuilder provides a fluent interface for building test recipes
type RecipeBuilder struct {
	r      recipe.Recipe
	flat   recipe.FlatIngredients
	groups recipe.GroupedIngredients
}

// NewRecipeBuilder creates a new recipe builder with default values
func NewRecipeBuilder() *RecipeBuilder {
	faker := gofakeit.New(time.Now().UnixNano())

	return &RecipeBuilder{
		r: recipe.Recipe{
			Title:    faker.Sentence(3),
			PrepTime: "15 minutes",
			CookTime: "30 minutes",
			Servings: "4",
		},
	}
}

// WithTitle sets the recipe title
func (rb *RecipeBuilder) WithTitle(title string) *RecipeBuilder {
	rb.r.Title = title
	return rb
}

// WithDescription sets the recipe description
func (rb *RecipeBuilder) WithDescription(description string) *RecipeBuilder {
	rb.r.Description = description
	return rb
}

// WithIngredients appends flat ingredient items
func (rb *RecipeBuilder) WithIngredients(items ...string) *RecipeBuilder {
	rb.flat = append(rb.flat, items...)
	return rb
}

// WithGroup appends an ingredient group. Groups take precedence over
// flat ingredients.
func (rb *RecipeBuilder) WithGroup(name string, items ...string) *RecipeBuilder {
	rb.groups = append(rb.groups, recipe.IngredientGroup{GroupName: name, Items: items})
	return rb
}

// WithInstructions appends instruction steps
func (rb *RecipeBuilder) WithInstructions(steps ...string) *RecipeBuilder {
	rb.r.Instructions = append(rb.r.Instructions, steps...)
	return rb
}

// WithNotes appends notes
func (rb *RecipeBuilder) WithNotes(notes ...string) *RecipeBuilder {
	rb.r.Notes = append(rb.r.Notes, notes...)
	return rb
}

// WithMacros sets the macronutrients
func (rb *RecipeBuilder) WithMacros(calories, protein, carbs, fat int) *RecipeBuilder {
	rb.r.Macros = &recipe.Macros{Calories: calories, Protein: protein, Carbs: carbs, Fat: fat}
	return rb
}

// Build returns the recipe
func (rb *RecipeBuilder) Build() *recipe.Recipe {
	out := rb.r
	switch {
	case rb.groups != nil:
		out.Ingredients = rb.groups
	case rb.flat != nil:
		out.Ingredients = rb.flat
	}
	return out.Clone()
}

// RecipeID returns a random identifier accepted by revision commands
func RecipeID() string {
	return gofakeit.Password(true, true, true, false, false, 16)
}
