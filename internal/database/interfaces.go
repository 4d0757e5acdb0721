package database

import (
	"context"

	"channel-relay-bot/internal/database/models"
)

// PostRepository defines the durable-store operations for one relay
// stream's posts and media items. The primary and secondary streams use
// separate instances backed by separate collections.
type PostRepository interface {
	// CreatePost persists a post and its media items. Media sort order
	// follows slice order. Returns the stored post with its assigned ID.
	CreatePost(ctx context.Context, post *models.RelayedPost, media []models.RelayedMediaItem) (*models.RelayedPost, error)
	// FindLatestSerialByPrefix returns the highest serial with the given
	// prefix, or "" if none exists.
	FindLatestSerialByPrefix(ctx context.Context, prefix string) (string, error)
	// ExistsByMediaFileID reports whether any media item with the exact
	// file identifier has been persisted.
	ExistsByMediaFileID(ctx context.Context, fileID string) (bool, error)
	// FindAllOrderByCreatedAtAsc returns every post in creation order.
	FindAllOrderByCreatedAtAsc(ctx context.Context) ([]models.RelayedPost, error)
	// FindMediaByPostID returns a post's media items ordered by sort order.
	FindMediaByPostID(ctx context.Context, postID string) ([]models.RelayedMediaItem, error)
}

// BlacklistRepository provides the configured blacklist terms.
type BlacklistRepository interface {
	ListTerms(ctx context.Context) ([]string, error)
}

// SuffixRepository picks a suffix fragment for a forward-origin chat.
type SuffixRepository interface {
	// PickSuffixByOriginChatID returns a random enabled suffix configured
	// for the origin chat, or "" when the origin is blank or unconfigured.
	PickSuffixByOriginChatID(ctx context.Context, originChatID string) (string, error)
}

// PromoRepository picks promotional content fragments.
type PromoRepository interface {
	// PickRandomContent returns a random enabled promotional fragment,
	// or "" when none is configured.
	PickRandomContent(ctx context.Context) (string, error)
}

// PoolRepository exposes the hint card pools.
type PoolRepository interface {
	// FindOpenHintPool returns the currently open hint pool, or nil when
	// no pool is open.
	FindOpenHintPool(ctx context.Context) (*models.CardPool, error)
}
