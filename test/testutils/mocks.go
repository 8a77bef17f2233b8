// Package testutils provides mock implementations for testing
package testutils

import (
	"context"
	"time"

	"github.com/alchemorsel/recipediff/internal/domain/recipe"
	"github.com/alchemorsel/recipediff/internal/ports/inbound"
	"github.com/alchemorsel/recipediff/internal/ports/outbound"
	"github.com/stretchr/testify/mock"
)

// MockRevisionRepository provides a mock implementation of RevisionRepository
type MockRevisionRepository struct {
	mock.Mock
}

var _ outbound.RevisionRepository = (*MockRevisionRepository)(nil)

// Create stores a revision
func (m *MockRevisionRepository) Create(ctx context.Context, rev *recipe.Revision) error {
	args := m.Called(ctx, rev)
	return args.Error(0)
}

// Latest returns the newest revisions of a recipe
func (m *MockRevisionRepository) Latest(ctx context.Context, recipeID string, n int) ([]*recipe.Revision, error) {
	args := m.Called(ctx, recipeID, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*recipe.Revision), args.Error(1)
}

// FindByNumber finds one revision
func (m *MockRevisionRepository) FindByNumber(ctx context.Context, recipeID string, number int) (*recipe.Revision, error) {
	args := m.Called(ctx, recipeID, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*recipe.Revision), args.Error(1)
}

// FindByRecipe pages through revisions
func (m *MockRevisionRepository) FindByRecipe(ctx context.Context, recipeID string, offset, limit int) ([]*recipe.Revision, int64, error) {
	args := m.Called(ctx, recipeID, offset, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*recipe.Revision), args.Get(1).(int64), args.Error(2)
}

// Archive soft-deletes a recipe's revisions
func (m *MockRevisionRepository) Archive(ctx context.Context, recipeID string, at time.Time) error {
	args := m.Called(ctx, recipeID, at)
	return args.Error(0)
}

// DeleteArchivedBefore hard-deletes archived revisions
func (m *MockRevisionRepository) DeleteArchivedBefore(ctx context.Context, threshold time.Time) (int64, error) {
	args := m.Called(ctx, threshold)
	return args.Get(0).(int64), args.Error(1)
}

// Ping checks the store
func (m *MockRevisionRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockDiffService provides a mock implementation of DiffService
type MockDiffService struct {
	mock.Mock
}

var _ inbound.DiffService = (*MockDiffService)(nil)

// Compare diffs two recipes
func (m *MockDiffService) Compare(ctx context.Context, cmd inbound.CompareCommand) (*inbound.DiffDTO, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inbound.DiffDTO), args.Error(1)
}

// MockRevisionService provides a mock implementation of RevisionService
type MockRevisionService struct {
	mock.Mock
}

var _ inbound.RevisionService = (*MockRevisionService)(nil)

// Record stores a new revision
func (m *MockRevisionService) Record(ctx context.Context, cmd inbound.RecordRevisionCommand) (*inbound.RevisionDTO, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inbound.RevisionDTO), args.Error(1)
}

// Archive archives a recipe
func (m *MockRevisionService) Archive(ctx context.Context, recipeID, userID string) error {
	args := m.Called(ctx, recipeID, userID)
	return args.Error(0)
}

// PruneArchived deletes old archived revisions
func (m *MockRevisionService) PruneArchived(ctx context.Context, olderThan time.Duration) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

// List pages through revisions
func (m *MockRevisionService) List(ctx context.Context, query inbound.ListRevisionsQuery) (*inbound.RevisionList, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inbound.RevisionList), args.Error(1)
}

// Diff diffs two stored revisions
func (m *MockRevisionService) Diff(ctx context.Context, query inbound.DiffRevisionsQuery) (*inbound.RevisionDiffDTO, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inbound.RevisionDiffDTO), args.Error(1)
}
