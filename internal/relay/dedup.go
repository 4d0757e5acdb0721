package relay

import (
	"context"
	"strings"

	"channel-relay-bot/internal/database"
)

// DuplicateDetector is the content-addressed membership test against
// previously relayed file identifiers.
type DuplicateDetector struct {
	posts database.PostRepository
}

// NewDuplicateDetector creates a detector over the stream's post
// repository.
func NewDuplicateDetector(posts database.PostRepository) *DuplicateDetector {
	return &DuplicateDetector{posts: posts}
}

// IsDuplicate reports whether a media item with the exact file
// identifier has already been relayed. Blank identifiers are never
// duplicates.
func (d *DuplicateDetector) IsDuplicate(ctx context.Context, fileID string) (bool, error) {
	if strings.TrimSpace(fileID) == "" {
		return false, nil
	}
	return d.posts.ExistsByMediaFileID(ctx, fileID)
}

// AnyDuplicate reports whether any of the items is a duplicate. A group
// containing one duplicate is rejected as a whole.
func (d *DuplicateDetector) AnyDuplicate(ctx context.Context, items []MediaItem) (bool, error) {
	for _, item := range items {
		dup, err := d.IsDuplicate(ctx, item.FileID)
		if err != nil {
			return false, err
		}
		if dup {
			return true, nil
		}
	}
	return false, nil
}
