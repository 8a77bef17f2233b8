package recipe

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRevision(t *testing.T) {
	r := &Recipe{Title: "Soup"}

	t.Run("Valid", func(t *testing.T) {
		rev, err := NewRevision("abc123XYZ9", "user-1", r, "less salt")
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, rev.ID)
		assert.Equal(t, "abc123XYZ9", rev.RecipeID)
		assert.Equal(t, "user-1", rev.OwnerID)
		assert.Same(t, r, rev.Recipe)
		assert.Equal(t, "less salt", rev.Modifications)
		assert.False(t, rev.Archived)
		assert.Equal(t, time.UTC, rev.CreatedAt.Location())
		assert.True(t, rev.IsOwnedBy("user-1"))
		assert.False(t, rev.IsOwnedBy("user-2"))
	})

	t.Run("InvalidRecipeID", func(t *testing.T) {
		for _, id := range []string{"", "abc-123", "abc 123", strings.Repeat("ä", 12)} {
			_, err := NewRevision(id, "user-1", r, "")
			assert.ErrorIs(t, err, ErrInvalidRecipeID, id)
		}
	})

	t.Run("MissingOwner", func(t *testing.T) {
		_, err := NewRevision("abc123XYZ9", "", r, "")
		assert.ErrorIs(t, err, ErrMissingOwner)
	})

	t.Run("MissingRecipe", func(t *testing.T) {
		_, err := NewRevision("abc123XYZ9", "user-1", nil, "")
		assert.ErrorIs(t, err, ErrMissingRecipe)
	})
}

func TestRevision_Archive(t *testing.T) {
	rev, err := NewRevision("abc123XYZ9", "user-1", &Recipe{}, "")
	require.NoError(t, err)

	first := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rev.Archive(first)
	rev.Archive(first.Add(time.Hour))

	assert.True(t, rev.Archived)
	require.NotNil(t, rev.ArchivedAt)
	assert.Equal(t, first, *rev.ArchivedAt)
}
