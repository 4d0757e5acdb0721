package relay

import (
	"context"
	"errors"
	"testing"

	"channel-relay-bot/internal/database/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDuplicateDetector(t *testing.T) {
	ctx := context.Background()

	t.Run("BlankFileIDNeverDuplicate", func(t *testing.T) {
		posts := new(MockPostRepository)
		d := NewDuplicateDetector(posts)

		dup, err := d.IsDuplicate(ctx, "   ")
		require.NoError(t, err)
		assert.False(t, dup)
		posts.AssertNotCalled(t, "ExistsByMediaFileID", mock.Anything, mock.Anything)
	})

	t.Run("ExactMatchIsDuplicate", func(t *testing.T) {
		posts := new(MockPostRepository)
		posts.On("ExistsByMediaFileID", ctx, "f1").Return(true, nil).Once()

		d := NewDuplicateDetector(posts)
		dup, err := d.IsDuplicate(ctx, "f1")
		require.NoError(t, err)
		assert.True(t, dup)
	})

	t.Run("AnyDuplicateStopsAtFirstHit", func(t *testing.T) {
		posts := new(MockPostRepository)
		posts.On("ExistsByMediaFileID", ctx, "a").Return(false, nil).Once()
		posts.On("ExistsByMediaFileID", ctx, "b").Return(true, nil).Once()

		d := NewDuplicateDetector(posts)
		dup, err := d.AnyDuplicate(ctx, []MediaItem{
			{Kind: models.MediaKindPhoto, FileID: "a"},
			{Kind: models.MediaKindVideo, FileID: "b"},
			{Kind: models.MediaKindPhoto, FileID: "c"},
		})
		require.NoError(t, err)
		assert.True(t, dup)
		posts.AssertNotCalled(t, "ExistsByMediaFileID", ctx, "c")
	})

	t.Run("RepositoryErrorPropagates", func(t *testing.T) {
		posts := new(MockPostRepository)
		posts.On("ExistsByMediaFileID", ctx, "a").Return(false, errors.New("db down")).Once()

		d := NewDuplicateDetector(posts)
		_, err := d.AnyDuplicate(ctx, []MediaItem{{Kind: models.MediaKindPhoto, FileID: "a"}})
		assert.Error(t, err)
	})
}
