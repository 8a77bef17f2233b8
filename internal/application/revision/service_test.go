package revision

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	appdiff "github.com/alchemorsel/recipediff/internal/application/diff"
	"github.com/alchemorsel/recipediff/internal/domain/recipe"
	"github.com/alchemorsel/recipediff/internal/ports/inbound"
	"github.com/alchemorsel/recipediff/pkg/errors"
	"github.com/alchemorsel/recipediff/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
)

// memoryRepository is an in-memory RevisionRepository for service tests
type memoryRepository struct {
	mu   sync.Mutex
	revs []*recipe.Revision
}

func (r *memoryRepository) Create(_ context.Context, rev *recipe.Revision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rev.Number = 1
	for _, existing := range r.revs {
		if existing.RecipeID == rev.RecipeID && existing.Number >= rev.Number {
			rev.Number = existing.Number + 1
		}
	}
	r.revs = append(r.revs, rev)
	return nil
}

func (r *memoryRepository) byRecipe(recipeID string) []*recipe.Revision {
	var out []*recipe.Revision
	for _, rev := range r.revs {
		if rev.RecipeID == recipeID {
			out = append(out, rev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number > out[j].Number })
	return out
}

func (r *memoryRepository) Latest(_ context.Context, recipeID string, n int) ([]*recipe.Revision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.byRecipe(recipeID)
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (r *memoryRepository) FindByNumber(_ context.Context, recipeID string, number int) (*recipe.Revision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rev := range r.byRecipe(recipeID) {
		if rev.Number == number {
			return rev, nil
		}
	}
	return nil, recipe.ErrRevisionNotFound
}

func (r *memoryRepository) FindByRecipe(_ context.Context, recipeID string, offset, limit int) ([]*recipe.Revision, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.byRecipe(recipeID)
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

func (r *memoryRepository) Archive(_ context.Context, recipeID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rev := range r.byRecipe(recipeID) {
		rev.Archive(at)
	}
	return nil
}

func (r *memoryRepository) DeleteArchivedBefore(_ context.Context, threshold time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.revs[:0]
	var n int64
	for _, rev := range r.revs {
		if rev.Archived && rev.ArchivedAt.Before(threshold) {
			n++
			continue
		}
		kept = append(kept, rev)
	}
	r.revs = kept
	return n, nil
}

func (r *memoryRepository) Ping(context.Context) error { return nil }

const (
	recipeID = "recipe00001"
	owner    = "user-owner"
	stranger = "user-other"
)

// RevisionServiceTestSuite exercises the revision use cases
type RevisionServiceTestSuite struct {
	suite.Suite
	ctx  context.Context
	repo *memoryRepository
	svc  *Service
	now  time.Time
}

func (s *RevisionServiceTestSuite) SetupTest() {
	logger := zaptest.NewLogger(s.T())
	s.ctx = context.Background()
	s.repo = &memoryRepository{}
	s.svc = NewService(s.repo, appdiff.NewService(appdiff.Config{}, nil, nil, nil, logger), nil, logger)
	s.now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.svc.now = func() time.Time { return s.now }
}

func (s *RevisionServiceTestSuite) record(userID string, r *recipe.Recipe) (*inbound.RevisionDTO, error) {
	return s.svc.Record(s.ctx, inbound.RecordRevisionCommand{
		RecipeID: recipeID,
		UserID:   userID,
		Recipe:   r,
	})
}

func (s *RevisionServiceTestSuite) TestRecord() {
	s.Run("NumbersRevisions", func() {
		first, err := s.record(owner, &recipe.Recipe{Title: "Soup"})
		s.Require().NoError(err)
		second, err := s.record(owner, &recipe.Recipe{Title: "Hot soup"})
		s.Require().NoError(err)

		s.Equal(1, first.Number)
		s.Equal(2, second.Number)
	})

	s.Run("OtherUserIsForbidden", func() {
		_, err := s.record(stranger, &recipe.Recipe{Title: "Mine now"})
		s.True(errors.Is(err, errors.CodeForbidden))
	})

	s.Run("ArchivedRecipeRejectsRevisions", func() {
		s.Require().NoError(s.svc.Archive(s.ctx, recipeID, owner))
		_, err := s.record(owner, &recipe.Recipe{Title: "Again"})
		s.True(errors.Is(err, errors.CodeConflict))
	})

	s.Run("Validation", func() {
		_, err := s.svc.Record(s.ctx, inbound.RecordRevisionCommand{RecipeID: "short", UserID: owner, Recipe: &recipe.Recipe{}})
		s.True(errors.Is(err, errors.CodeValidationFailed))

		_, err = s.svc.Record(s.ctx, inbound.RecordRevisionCommand{RecipeID: "has-dash-000", UserID: owner, Recipe: &recipe.Recipe{}})
		s.True(errors.Is(err, errors.CodeValidationFailed))

		_, err = s.svc.Record(s.ctx, inbound.RecordRevisionCommand{RecipeID: recipeID, UserID: owner})
		s.True(errors.Is(err, errors.CodeValidationFailed))
	})
}

func (s *RevisionServiceTestSuite) TestList() {
	for i := 0; i < 25; i++ {
		_, err := s.record(owner, &recipe.Recipe{Title: "v"})
		s.Require().NoError(err)
	}

	s.Run("DefaultLimit", func() {
		list, err := s.svc.List(s.ctx, inbound.ListRevisionsQuery{RecipeID: recipeID, UserID: owner})
		s.Require().NoError(err)
		s.Len(list.Revisions, DefaultListLimit)
		s.Equal(int64(25), list.Total)
		s.Equal(25, list.Revisions[0].Number)
	})

	s.Run("Offset", func() {
		list, err := s.svc.List(s.ctx, inbound.ListRevisionsQuery{RecipeID: recipeID, UserID: owner, Limit: 10, Offset: 20})
		s.Require().NoError(err)
		s.Len(list.Revisions, 5)
		s.Equal(5, list.Revisions[0].Number)
	})

	s.Run("LimitTooLarge", func() {
		_, err := s.svc.List(s.ctx, inbound.ListRevisionsQuery{RecipeID: recipeID, UserID: owner, Limit: MaxListLimit + 1})
		s.True(errors.Is(err, errors.CodeValidationFailed))
	})

	s.Run("UnknownRecipe", func() {
		_, err := s.svc.List(s.ctx, inbound.ListRevisionsQuery{RecipeID: "unknown00001", UserID: owner})
		s.True(errors.Is(err, errors.CodeRecipeNotFound))
	})

	s.Run("OtherUserIsForbidden", func() {
		_, err := s.svc.List(s.ctx, inbound.ListRevisionsQuery{RecipeID: recipeID, UserID: stranger})
		s.True(errors.Is(err, errors.CodeForbidden))
	})
}

func (s *RevisionServiceTestSuite) TestDiff() {
	_, err := s.record(owner, &recipe.Recipe{Title: "Soup", Instructions: []string{"Boil water", "Add salt"}})
	s.Require().NoError(err)

	s.Run("SingleRevisionIsReturnedUnchanged", func() {
		got, err := s.svc.Diff(s.ctx, inbound.DiffRevisionsQuery{RecipeID: recipeID, UserID: owner})
		s.Require().NoError(err)
		s.Equal(0, got.From)
		s.Equal(1, got.To)
		s.False(got.Changed)
		s.Equal([]string{"Boil water", "Add salt"}, got.Recipe.Instructions)
	})

	_, err = s.record(owner, &recipe.Recipe{Title: "Soup", Instructions: []string{"Boil water", "Add salt", "Serve hot"}})
	s.Require().NoError(err)
	_, err = s.record(owner, &recipe.Recipe{Title: "Soup", Instructions: []string{"Boil water"}})
	s.Require().NoError(err)

	s.Run("DefaultsToLatestTwo", func() {
		got, err := s.svc.Diff(s.ctx, inbound.DiffRevisionsQuery{RecipeID: recipeID, UserID: owner})
		s.Require().NoError(err)
		s.Equal(2, got.From)
		s.Equal(3, got.To)
		s.False(got.Changed)
	})

	s.Run("ExplicitRange", func() {
		got, err := s.svc.Diff(s.ctx, inbound.DiffRevisionsQuery{RecipeID: recipeID, UserID: owner, From: 1, To: 2})
		s.Require().NoError(err)
		s.True(got.Changed)
		s.Equal(`<span class="diff-added">Serve hot</span>`, got.Recipe.Instructions[2])
	})

	s.Run("UnknownRevision", func() {
		_, err := s.svc.Diff(s.ctx, inbound.DiffRevisionsQuery{RecipeID: recipeID, UserID: owner, To: 9})
		s.True(errors.Is(err, errors.CodeNotFound))
	})
}

func (s *RevisionServiceTestSuite) TestDiffHighlightsDescriptionAndNotes() {
	original := testutils.NewRecipeBuilder().
		WithTitle("Lentil soup").
		WithDescription("A weeknight soup").
		WithIngredients("1 cup lentils").
		WithNotes("Keeps for three days.").
		WithMacros(320, 18, 45, 6).
		Build()
	updated := testutils.NewRecipeBuilder().
		WithTitle("Lentil soup").
		WithDescription("A smoky weeknight soup").
		WithIngredients("1 cup lentils").
		WithNotes("Keeps for three days.", "Freezes well.").
		WithMacros(340, 19, 45, 8).
		Build()

	_, err := s.record(owner, original)
	s.Require().NoError(err)
	_, err = s.record(owner, updated)
	s.Require().NoError(err)

	got, err := s.svc.Diff(s.ctx, inbound.DiffRevisionsQuery{RecipeID: recipeID, UserID: owner})
	s.Require().NoError(err)

	s.True(got.Changed)
	s.Equal(2, got.Additions)
	s.Equal(`A <span class="diff-added">smoky </span>weeknight soup`, got.Recipe.Description)
	s.Equal([]string{"Keeps for three days.", `<span class="diff-added">Freezes well.</span>`}, got.Recipe.Notes)
	s.Require().NotNil(got.Recipe.Macros)
	s.Equal(340, got.Recipe.Macros.Calories)
	s.Equal(8, got.Recipe.Macros.Fat)
}

func (s *RevisionServiceTestSuite) TestArchiveAndPrune() {
	_, err := s.record(owner, &recipe.Recipe{Title: "Soup"})
	s.Require().NoError(err)

	s.True(errors.Is(s.svc.Archive(s.ctx, recipeID, stranger), errors.CodeForbidden))
	s.Require().NoError(s.svc.Archive(s.ctx, recipeID, owner))
	// archiving twice is a no-op
	s.Require().NoError(s.svc.Archive(s.ctx, recipeID, owner))

	n, err := s.svc.PruneArchived(s.ctx, 0)
	s.Require().NoError(err)
	s.Zero(n)

	s.now = s.now.Add(DefaultRetention + time.Hour)
	n, err = s.svc.PruneArchived(s.ctx, 0)
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	_, err = s.svc.List(s.ctx, inbound.ListRevisionsQuery{RecipeID: recipeID, UserID: owner})
	s.True(errors.Is(err, errors.CodeRecipeNotFound))
}

func TestRevisionServiceTestSuite(t *testing.T) {
	suite.Run(t, new(RevisionServiceTestSuite))
}

func TestCheckWritable(t *testing.T) {
	rev, err := recipe.NewRevision(recipeID, owner, &recipe.Recipe{}, "")
	require.NoError(t, err)

	assert.NoError(t, checkWritable(rev, owner))
	rev.Archive(time.Now())
	assert.True(t, errors.Is(checkWritable(rev, owner), errors.CodeConflict))
}
