// Package revision provides the application layer for recipe revisions
// This implements the RevisionService use cases defined in the inbound ports
package revision

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/alchemorsel/recipediff/internal/domain/recipe"
	"github.com/alchemorsel/recipediff/internal/ports/inbound"
	"github.com/alchemorsel/recipediff/internal/ports/outbound"
	"github.com/alchemorsel/recipediff/pkg/errors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	// DefaultListLimit is used when a list query carries no limit
	DefaultListLimit = 20
	// MaxListLimit caps the page size of a list query
	MaxListLimit = 50
	// DefaultRetention is how long archived revisions are kept
	DefaultRetention = 30 * 24 * time.Hour
)

// Service implements the revision use cases
type Service struct {
	revisions outbound.RevisionRepository
	differ    inbound.DiffService
	metrics   outbound.DiffMetrics
	validate  *validator.Validate
	now       func() time.Time
	logger    *zap.Logger
}

// NewService creates a new revision service. metrics may be nil.
func NewService(
	revisions outbound.RevisionRepository,
	differ inbound.DiffService,
	metrics outbound.DiffMetrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		revisions: revisions,
		differ:    differ,
		metrics:   metrics,
		validate:  validator.New(),
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger.Named("revision-service"),
	}
}

var _ inbound.RevisionService = (*Service)(nil)

// Record stores a new revision of a recipe. The first revision fixes the
// owner of the recipe.
func (s *Service) Record(ctx context.Context, cmd inbound.RecordRevisionCommand) (*inbound.RevisionDTO, error) {
	if err := s.validate.Struct(cmd); err != nil {
		return nil, errors.FromValidator(err)
	}

	s.logger.Info("Recording recipe revision",
		zap.String("recipe_id", cmd.RecipeID),
		zap.String("user_id", cmd.UserID),
	)

	latest, err := s.revisions.Latest(ctx, cmd.RecipeID, 1)
	if err != nil {
		return nil, errors.NewDatabaseError("load latest revision", err)
	}
	if len(latest) > 0 {
		if err := checkWritable(latest[0], cmd.UserID); err != nil {
			return nil, err
		}
	}

	rev, err := recipe.NewRevision(cmd.RecipeID, cmd.UserID, cmd.Recipe, cmd.Modifications)
	if err != nil {
		return nil, errors.NewValidationError(err.Error()).WithCause(err)
	}
	if err := s.revisions.Create(ctx, rev); err != nil {
		return nil, errors.NewDatabaseError("create revision", err)
	}

	s.logger.Info("Recipe revision recorded",
		zap.String("recipe_id", rev.RecipeID),
		zap.Int("number", rev.Number),
	)

	return toDTO(rev), nil
}

// List returns a page of revisions, newest first
func (s *Service) List(ctx context.Context, query inbound.ListRevisionsQuery) (*inbound.RevisionList, error) {
	if err := s.validate.Struct(query); err != nil {
		return nil, errors.FromValidator(err)
	}
	if query.Limit == 0 {
		query.Limit = DefaultListLimit
	}

	if _, err := s.ownedLatest(ctx, query.RecipeID, query.UserID, 1); err != nil {
		return nil, err
	}

	revs, total, err := s.revisions.FindByRecipe(ctx, query.RecipeID, query.Offset, query.Limit)
	if err != nil {
		return nil, errors.NewDatabaseError("list revisions", err)
	}

	list := &inbound.RevisionList{
		Revisions: make([]*inbound.RevisionDTO, 0, len(revs)),
		Total:     total,
		Limit:     query.Limit,
		Offset:    query.Offset,
	}
	for _, rev := range revs {
		list.Revisions = append(list.Revisions, toDTO(rev))
	}
	return list, nil
}

// Diff compares two stored revisions. Without explicit numbers the
// latest revision is compared with the one before it; a recipe with a
// single revision is returned as is.
func (s *Service) Diff(ctx context.Context, query inbound.DiffRevisionsQuery) (*inbound.RevisionDiffDTO, error) {
	if err := s.validate.Struct(query); err != nil {
		return nil, errors.FromValidator(err)
	}

	latest, err := s.ownedLatest(ctx, query.RecipeID, query.UserID, 1)
	if err != nil {
		return nil, err
	}

	to := latest[0]
	if query.To != 0 {
		if to, err = s.findByNumber(ctx, query.RecipeID, query.To); err != nil {
			return nil, err
		}
	}

	var from *recipe.Revision
	switch {
	case query.From != 0:
		if from, err = s.findByNumber(ctx, query.RecipeID, query.From); err != nil {
			return nil, err
		}
	case to.Number > 1:
		if from, err = s.findByNumber(ctx, query.RecipeID, to.Number-1); err != nil {
			return nil, err
		}
	}

	cmd := inbound.CompareCommand{Updated: to.Recipe}
	result := &inbound.RevisionDiffDTO{To: to.Number}
	if from != nil {
		cmd.Original = from.Recipe
		result.From = from.Number
	}

	dto, err := s.differ.Compare(ctx, cmd)
	if err != nil {
		return nil, err
	}
	result.DiffDTO = *dto
	return result, nil
}

// Archive soft-deletes every revision of a recipe
func (s *Service) Archive(ctx context.Context, recipeID, userID string) error {
	latest, err := s.ownedLatest(ctx, recipeID, userID, 1)
	if err != nil {
		return err
	}
	if latest[0].Archived {
		return nil
	}

	if err := s.revisions.Archive(ctx, recipeID, s.now()); err != nil {
		return errors.NewDatabaseError("archive recipe", err)
	}

	s.logger.Info("Recipe archived",
		zap.String("recipe_id", recipeID),
		zap.String("user_id", userID),
	)
	return nil
}

// PruneArchived hard-deletes revisions archived longer than olderThan ago
func (s *Service) PruneArchived(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		olderThan = DefaultRetention
	}
	threshold := s.now().Add(-olderThan)

	n, err := s.revisions.DeleteArchivedBefore(ctx, threshold)
	if err != nil {
		return 0, errors.NewDatabaseError("delete archived revisions", err)
	}
	if s.metrics != nil {
		s.metrics.RevisionsPruned(n)
	}

	s.logger.Info("Pruned archived revisions",
		zap.Int64("deleted", n),
		zap.Time("threshold", threshold),
	)
	return n, nil
}

// ownedLatest loads the latest n revisions and checks that the recipe
// exists and belongs to userID
func (s *Service) ownedLatest(ctx context.Context, recipeID, userID string, n int) ([]*recipe.Revision, error) {
	if err := recipe.ValidateRecipeID(recipeID); err != nil {
		return nil, errors.NewValidationError(err.Error()).WithCause(err)
	}

	latest, err := s.revisions.Latest(ctx, recipeID, n)
	if err != nil {
		return nil, errors.NewDatabaseError("load latest revision", err)
	}
	if len(latest) == 0 {
		return nil, errors.NewRecipeNotFoundError(recipeID).WithCause(recipe.ErrRecipeNotFound)
	}
	if !latest[0].IsOwnedBy(userID) {
		return nil, errors.NewForbiddenError(recipe.ErrNotRecipeOwner.Error()).WithCause(recipe.ErrNotRecipeOwner)
	}
	return latest, nil
}

func (s *Service) findByNumber(ctx context.Context, recipeID string, number int) (*recipe.Revision, error) {
	rev, err := s.revisions.FindByNumber(ctx, recipeID, number)
	switch {
	case stderrors.Is(err, recipe.ErrRevisionNotFound):
		return nil, errors.NewNotFoundError("Revision").
			WithMetadata("recipe_id", recipeID).
			WithMetadata("number", number).
			WithCause(err)
	case err != nil:
		return nil, errors.NewDatabaseError("find revision", err)
	}
	return rev, nil
}

func checkWritable(latest *recipe.Revision, userID string) error {
	if !latest.IsOwnedBy(userID) {
		return errors.NewForbiddenError(recipe.ErrNotRecipeOwner.Error()).WithCause(recipe.ErrNotRecipeOwner)
	}
	if latest.Archived {
		return errors.NewConflictError(recipe.ErrRecipeArchived.Error()).WithCause(recipe.ErrRecipeArchived)
	}
	return nil
}

func toDTO(rev *recipe.Revision) *inbound.RevisionDTO {
	return &inbound.RevisionDTO{
		ID:            rev.ID,
		RecipeID:      rev.RecipeID,
		Number:        rev.Number,
		Recipe:        rev.Recipe,
		Modifications: rev.Modifications,
		Archived:      rev.Archived,
		ArchivedAt:    rev.ArchivedAt,
		CreatedAt:     rev.CreatedAt,
	}
}
