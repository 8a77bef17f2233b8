// Package gorm provides mapping between domain entities and GORM models
package gorm

import "github.com/alchemorsel/recipediff/internal/domain/recipe"

// RevisionToModel converts a domain revision to a GORM model
func RevisionToModel(rev *recipe.Revision) *RevisionModel {
	return &RevisionModel{
		ID:            rev.ID,
		RecipeID:      rev.RecipeID,
		Number:        rev.Number,
		OwnerID:       rev.OwnerID,
		Recipe:        RecipeJSON{Recipe: rev.Recipe},
		Modifications: rev.Modifications,
		Archived:      rev.Archived,
		ArchivedAt:    rev.ArchivedAt,
		CreatedAt:     rev.CreatedAt,
	}
}

// ModelToRevision converts a GORM model to a domain revision
func ModelToRevision(model *RevisionModel) *recipe.Revision {
	rev := &recipe.Revision{
		ID:            model.ID,
		RecipeID:      model.RecipeID,
		Number:        model.Number,
		OwnerID:       model.OwnerID,
		Recipe:        model.Recipe.Recipe,
		Modifications: model.Modifications,
		Archived:      model.Archived,
		CreatedAt:     model.CreatedAt.UTC(),
	}
	if model.ArchivedAt != nil {
		at := model.ArchivedAt.UTC()
		rev.ArchivedAt = &at
	}
	return rev
}

// ModelsToRevisions converts a slice of GORM models
func ModelsToRevisions(models []RevisionModel) []*recipe.Revision {
	revs := make([]*recipe.Revision, len(models))
	for i := range models {
		revs[i] = ModelToRevision(&models[i])
	}
	return revs
}
