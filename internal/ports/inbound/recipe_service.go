// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
// These are the interfaces that the application exposes to the outside world
package inbound

import (
	"context"
	"time"

	"github.com/alchemorsel/recipediff/internal/domain/recipe"
	"github.com/google/uuid"
)

// DiffService compares two versions of a recipe.
// This is the primary port that HTTP handlers and the CLI use
type DiffService interface {
	Compare(ctx context.Context, cmd CompareCommand) (*DiffDTO, error)
}

// RevisionService manages the stored revisions of a recipe and diffs
// them against each other
type RevisionService interface {
	// Commands - operations that modify state
	Record(ctx context.Context, cmd RecordRevisionCommand) (*RevisionDTO, error)
	Archive(ctx context.Context, recipeID, userID string) error
	PruneArchived(ctx context.Context, olderThan time.Duration) (int64, error)

	// Queries - operations that read state
	List(ctx context.Context, query ListRevisionsQuery) (*RevisionList, error)
	Diff(ctx context.Context, query DiffRevisionsQuery) (*RevisionDiffDTO, error)
}

// Command objects for operations

// CompareCommand diffs Updated against Original. A nil Original means
// there is nothing to compare against and Updated is returned as is.
type CompareCommand struct {
	Original  *recipe.Recipe
	Updated   *recipe.Recipe `validate:"required"`
	Alignment string         `validate:"omitempty,oneof=greedy lcs"`
}

// RecordRevisionCommand stores a new version of a recipe
type RecordRevisionCommand struct {
	RecipeID      string         `validate:"required,alphanum,min=10,max=100"`
	UserID        string         `validate:"required"`
	Recipe        *recipe.Recipe `validate:"required"`
	Modifications string         `validate:"max=1000"`
}

// Query objects

// ListRevisionsQuery pages through the revisions of a recipe, newest first
type ListRevisionsQuery struct {
	RecipeID string `validate:"required,alphanum,min=10,max=100"`
	UserID   string `validate:"required"`
	Limit    int    `validate:"min=0,max=50"`
	Offset   int    `validate:"min=0"`
}

// DiffRevisionsQuery diffs revision To against revision From. Zero
// values select the latest revision and the one before it.
type DiffRevisionsQuery struct {
	RecipeID string `validate:"required,alphanum,min=10,max=100"`
	UserID   string `validate:"required"`
	From     int    `validate:"min=0"`
	To       int    `validate:"min=0"`
}

// Response DTOs

// DiffDTO is the result of a comparison. Recipe is the updated recipe
// with added text marked in HTML.
type DiffDTO struct {
	Recipe    *recipe.Recipe `json:"recipe"`
	Changed   bool           `json:"changed"`
	Additions int            `json:"additions"`
	Cached    bool           `json:"-"`
}

// RevisionDTO is the data transfer object for revisions
type RevisionDTO struct {
	ID            uuid.UUID      `json:"id"`
	RecipeID      string         `json:"recipe_id"`
	Number        int            `json:"number"`
	Recipe        *recipe.Recipe `json:"recipe"`
	Modifications string         `json:"modifications,omitempty"`
	Archived      bool           `json:"archived"`
	ArchivedAt    *time.Time     `json:"archived_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// RevisionList is a page of revisions
type RevisionList struct {
	Revisions []*RevisionDTO `json:"revisions"`
	Total     int64          `json:"total"`
	Limit     int            `json:"limit"`
	Offset    int            `json:"offset"`
}

// RevisionDiffDTO is a diff between two stored revisions
type RevisionDiffDTO struct {
	DiffDTO
	From int `json:"from"`
	To   int `json:"to"`
}
