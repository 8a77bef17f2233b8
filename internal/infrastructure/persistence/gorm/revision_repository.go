// Package gorm provides GORM-based repository implementations
package gorm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alchemorsel/recipediff/internal/domain/recipe"
	"github.com/alchemorsel/recipediff/internal/ports/outbound"
	"gorm.io/gorm"
)

// maxCreateAttempts bounds retries when two writers race for the same
// revision number
const maxCreateAttempts = 3

// RevisionRepository implements the revision repository interface using GORM
type RevisionRepository struct {
	db *gorm.DB
}

// NewRevisionRepository creates a new revision repository
func NewRevisionRepository(db *gorm.DB) *RevisionRepository {
	return &RevisionRepository{db: db}
}

var _ outbound.RevisionRepository = (*RevisionRepository)(nil)

// Create stores a revision with the next free number for its recipe
func (r *RevisionRepository) Create(ctx context.Context, rev *recipe.Revision) error {
	var err error
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var last int
			if err := tx.Model(&RevisionModel{}).
				Where("recipe_id = ?", rev.RecipeID).
				Select("COALESCE(MAX(number), 0)").
				Scan(&last).Error; err != nil {
				return err
			}

			model := RevisionToModel(rev)
			model.Number = last + 1
			if err := tx.Create(model).Error; err != nil {
				return err
			}
			rev.Number = model.Number
			return nil
		})
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("create revision: %w", err)
	}
	return nil
}

// Latest returns up to n revisions of a recipe, newest first
func (r *RevisionRepository) Latest(ctx context.Context, recipeID string, n int) ([]*recipe.Revision, error) {
	var models []RevisionModel

	result := r.db.WithContext(ctx).
		Where("recipe_id = ?", recipeID).
		Order("number DESC").
		Limit(n).
		Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}

	return ModelsToRevisions(models), nil
}

// FindByNumber finds one revision of a recipe
func (r *RevisionRepository) FindByNumber(ctx context.Context, recipeID string, number int) (*recipe.Revision, error) {
	var model RevisionModel

	result := r.db.WithContext(ctx).
		First(&model, "recipe_id = ? AND number = ?", recipeID, number)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, recipe.ErrRevisionNotFound
		}
		return nil, result.Error
	}

	return ModelToRevision(&model), nil
}

// FindByRecipe returns a page of revisions of a recipe, newest first
func (r *RevisionRepository) FindByRecipe(ctx context.Context, recipeID string, offset, limit int) ([]*recipe.Revision, int64, error) {
	var models []RevisionModel
	var total int64

	// Count total
	countResult := r.db.WithContext(ctx).Model(&RevisionModel{}).
		Where("recipe_id = ?", recipeID).
		Count(&total)
	if countResult.Error != nil {
		return nil, 0, countResult.Error
	}

	result := r.db.WithContext(ctx).
		Where("recipe_id = ?", recipeID).
		Order("number DESC").
		Offset(offset).
		Limit(limit).
		Find(&models)
	if result.Error != nil {
		return nil, 0, result.Error
	}

	return ModelsToRevisions(models), total, nil
}

// Archive marks every revision of a recipe as archived
func (r *RevisionRepository) Archive(ctx context.Context, recipeID string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&RevisionModel{}).
		Where("recipe_id = ? AND archived = ?", recipeID, false).
		Updates(map[string]interface{}{
			"archived":    true,
			"archived_at": at,
		})
	return result.Error
}

// DeleteArchivedBefore deletes revisions archived before threshold
func (r *RevisionRepository) DeleteArchivedBefore(ctx context.Context, threshold time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("archived = ? AND archived_at < ?", true, threshold).
		Delete(&RevisionModel{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Ping checks the database connection
func (r *RevisionRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
