package recipe

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

var recipeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// Revision is one stored version of a recipe. Every generate or update
// call produces a new revision; the diff shown to the user compares two
// consecutive revisions of the same recipe.
type Revision struct {
	ID            uuid.UUID
	RecipeID      string
	OwnerID       string
	Number        int
	Recipe        *Recipe
	Modifications string

	Archived   bool
	ArchivedAt *time.Time
	CreatedAt  time.Time
}

// NewRevision creates a revision with validation. The number is
// assigned by the repository when the revision is stored.
func NewRevision(recipeID, ownerID string, r *Recipe, modifications string) (*Revision, error) {
	if err := ValidateRecipeID(recipeID); err != nil {
		return nil, err
	}
	if ownerID == "" {
		return nil, ErrMissingOwner
	}
	if r == nil {
		return nil, ErrMissingRecipe
	}

	return &Revision{
		ID:            uuid.New(),
		RecipeID:      recipeID,
		OwnerID:       ownerID,
		Recipe:        r,
		Modifications: modifications,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// IsOwnedBy reports whether the revision belongs to the given user
func (r *Revision) IsOwnedBy(userID string) bool {
	return r.OwnerID == userID
}

// Archive soft-deletes the revision
func (r *Revision) Archive(at time.Time) {
	if r.Archived {
		return
	}
	r.Archived = true
	r.ArchivedAt = &at
}

// ValidateRecipeID checks the identifier format used by the recipe store
func ValidateRecipeID(id string) error {
	if !recipeIDPattern.MatchString(id) {
		return ErrInvalidRecipeID
	}
	return nil
}
