// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces that the application uses to interact with external systems
package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/alchemorsel/recipediff/internal/domain/recipe"
)

// ErrCacheMiss is returned by CacheRepository.Get when the key is absent
// or expired
var ErrCacheMiss = errors.New("cache miss")

// RevisionRepository defines the interface for revision persistence
type RevisionRepository interface {
	// Create stores a revision and assigns it the next number for its recipe
	Create(ctx context.Context, rev *recipe.Revision) error

	// Latest returns up to n revisions of a recipe, newest first
	Latest(ctx context.Context, recipeID string, n int) ([]*recipe.Revision, error)
	FindByNumber(ctx context.Context, recipeID string, number int) (*recipe.Revision, error)
	FindByRecipe(ctx context.Context, recipeID string, offset, limit int) ([]*recipe.Revision, int64, error)

	// Archive soft-deletes every revision of a recipe
	Archive(ctx context.Context, recipeID string, at time.Time) error
	// DeleteArchivedBefore hard-deletes revisions archived before threshold
	DeleteArchivedBefore(ctx context.Context, threshold time.Time) (int64, error)

	Ping(ctx context.Context) error
}

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// Sanitizer strips unsafe markup from recipe text before it is diffed
// and rendered as HTML
type Sanitizer interface {
	SanitizeRecipe(r *recipe.Recipe) *recipe.Recipe
}

// DiffMetrics records comparison statistics
type DiffMetrics interface {
	ObserveComparison(alignment string, duration time.Duration, additions int)
	CacheResult(hit bool)
	RevisionsPruned(n int64)
}
