package diff

import (
	"sync"
	"testing"

	"github.com/alchemorsel/recipediff/internal/domain/recipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// EngineTestSuite exercises whole-recipe diffs
type EngineTestSuite struct {
	suite.Suite
	engine *Engine
}

func (suite *EngineTestSuite) SetupTest() {
	suite.engine = NewEngine()
}

func (suite *EngineTestSuite) TestSoupScenario() {
	oldRecipe := &recipe.Recipe{Title: "Soup", Instructions: []string{"Boil water", "Add salt"}}
	newRecipe := &recipe.Recipe{Title: "Soup", Instructions: []string{"Boil water", "Add salt", "Serve hot"}}

	got := suite.engine.RenderHTML(oldRecipe, newRecipe)

	require.NotNil(suite.T(), got)
	assert.Equal(suite.T(), "Soup", got.Title)
	assert.Equal(suite.T(), []string{
		"Boil water",
		"Add salt",
		`<span class="diff-added">Serve hot</span>`,
	}, got.Instructions)
	assert.Equal(suite.T(), []string{}, got.Notes)
}

func (suite *EngineTestSuite) TestNilRecipe_ShouldPassThrough() {
	newRecipe := &recipe.Recipe{Title: "Soup", Instructions: []string{"Boil water"}}

	suite.Run("NilOld", func() {
		got := suite.engine.RenderHTML(nil, newRecipe)
		assert.Same(suite.T(), newRecipe, got)
		assert.Nil(suite.T(), suite.engine.Compare(nil, newRecipe))
	})

	suite.Run("NilNew", func() {
		assert.Nil(suite.T(), suite.engine.RenderHTML(newRecipe, nil))
	})

	suite.Run("PackageHelper", func() {
		assert.Same(suite.T(), newRecipe, RecipeHTML(nil, newRecipe))
	})
}

func (suite *EngineTestSuite) TestPassThroughFields() {
	macros := &recipe.Macros{Calories: 420, Protein: 12}
	oldRecipe := &recipe.Recipe{Title: "Stew", PrepTime: "10 min"}
	newRecipe := &recipe.Recipe{
		Title:    "Stew",
		PrepTime: "15 min",
		CookTime: "1 h",
		Servings: "4",
		Macros:   macros,
	}

	got := suite.engine.RenderHTML(oldRecipe, newRecipe)

	assert.Equal(suite.T(), "15 min", got.PrepTime)
	assert.Equal(suite.T(), "1 h", got.CookTime)
	assert.Equal(suite.T(), "4", got.Servings)
	assert.Same(suite.T(), macros, got.Macros)
	assert.Nil(suite.T(), got.Ingredients)
	// the input is left alone
	assert.Equal(suite.T(), "Stew", newRecipe.Title)
	assert.Nil(suite.T(), newRecipe.Instructions)
}

func (suite *EngineTestSuite) TestGroupedIngredients() {
	oldRecipe := &recipe.Recipe{
		Ingredients: recipe.GroupedIngredients{{GroupName: "Dough", Items: []string{"flour", "water"}}},
	}
	newRecipe := &recipe.Recipe{
		Ingredients: recipe.GroupedIngredients{
			{GroupName: "Dough", Items: []string{"flour", "water"}},
			{GroupName: "Sauce", Items: []string{"tomato"}},
		},
	}

	d := suite.engine.Compare(oldRecipe, newRecipe)
	require.NotNil(suite.T(), d)
	assert.True(suite.T(), d.Grouped)
	assert.Equal(suite.T(), 2, d.Additions())

	got := suite.engine.Render(d, newRecipe)
	groups, ok := got.Ingredients.(recipe.GroupedIngredients)
	require.True(suite.T(), ok)
	assert.Equal(suite.T(), recipe.GroupedIngredients{
		{GroupName: "Dough", Items: []string{"flour", "water"}},
		{GroupName: `<span class="diff-added">Sauce</span>`, Items: []string{`<span class="diff-added">tomato</span>`}},
	}, groups)
}

func (suite *EngineTestSuite) TestMixedIngredientShapes_OldCountsAsEmpty() {
	suite.Run("FlatToGrouped", func() {
		oldRecipe := &recipe.Recipe{Ingredients: recipe.FlatIngredients{"flour"}}
		newRecipe := &recipe.Recipe{Ingredients: recipe.GroupedIngredients{{GroupName: "Dough", Items: []string{"flour"}}}}

		got := suite.engine.RenderHTML(oldRecipe, newRecipe)
		assert.Equal(suite.T(), recipe.GroupedIngredients{
			{GroupName: `<span class="diff-added">Dough</span>`, Items: []string{`<span class="diff-added">flour</span>`}},
		}, got.Ingredients)
	})

	suite.Run("GroupedToFlat", func() {
		oldRecipe := &recipe.Recipe{Ingredients: recipe.GroupedIngredients{{GroupName: "Dough", Items: []string{"flour"}}}}
		newRecipe := &recipe.Recipe{Ingredients: recipe.FlatIngredients{"flour"}}

		got := suite.engine.RenderHTML(oldRecipe, newRecipe)
		assert.Equal(suite.T(), recipe.FlatIngredients{`<span class="diff-added">flour</span>`}, got.Ingredients)
	})
}

func (suite *EngineTestSuite) TestUnchangedRecipe_ShouldHaveNoAdditions() {
	r := &recipe.Recipe{
		Title:        "Pancakes",
		Description:  "Fluffy <em>breakfast</em> pancakes",
		Ingredients:  recipe.FlatIngredients{"2 eggs", "1 cup milk"},
		Instructions: []string{"Whisk", "Fry"},
		Notes:        []string{"Serve warm"},
	}

	d := suite.engine.Compare(r, r.Clone())
	assert.False(suite.T(), d.Changed())

	got := suite.engine.Render(d, r)
	assert.Equal(suite.T(), r.Description, got.Description)
	assert.Equal(suite.T(), r.Ingredients, got.Ingredients)
}

func (suite *EngineTestSuite) TestWithOptions() {
	engine := NewEngine(
		WithAlignment(AlignLCS),
		WithRenderer(HTMLRenderer{AddedClass: "new"}),
	)
	assert.Equal(suite.T(), AlignLCS, engine.Alignment())

	got := engine.RenderHTML(
		&recipe.Recipe{Notes: []string{"a", "b"}},
		&recipe.Recipe{Notes: []string{"x", "y", "a", "b"}},
	)
	assert.Equal(suite.T(), []string{`<span class="new">x</span>`, `<span class="new">y</span>`, "a", "b"}, got.Notes)
}

func (suite *EngineTestSuite) TestConcurrentUse() {
	oldRecipe := &recipe.Recipe{Title: "Soup", Instructions: []string{"Boil water"}}
	newRecipe := &recipe.Recipe{Title: "Hot soup", Instructions: []string{"Boil water", "Serve"}}
	want := suite.engine.RenderHTML(oldRecipe, newRecipe)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(suite.T(), want, suite.engine.RenderHTML(oldRecipe, newRecipe))
		}()
	}
	wg.Wait()
}

func TestEngineTestSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}
