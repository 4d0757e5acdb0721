package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"channel-relay-bot/internal/database/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Default collection names for the primary and secondary relay streams.
const (
	PrimaryPostCollection    = "relayed_posts"
	PrimaryMediaCollection   = "relayed_media"
	SecondaryPostCollection  = "sub_relayed_posts"
	SecondaryMediaCollection = "sub_relayed_media"
)

// MongoPostRepository implements PostRepository for MongoDB. Media items
// live in their own collection so the file-ID existence check stays a
// single indexed query.
type MongoPostRepository struct {
	posts *mongo.Collection
	media *mongo.Collection
}

// NewMongoPostRepository creates a post repository over the given
// post and media collections.
func NewMongoPostRepository(db *mongo.Database, postCollection, mediaCollection string) *MongoPostRepository {
	return &MongoPostRepository{
		posts: db.Collection(postCollection),
		media: db.Collection(mediaCollection),
	}
}

// CreatePost inserts the post and its media rows. Sort order is taken
// from slice position, overriding whatever the caller set.
func (r *MongoPostRepository) CreatePost(ctx context.Context, post *models.RelayedPost, media []models.RelayedMediaItem) (*models.RelayedPost, error) {
	post.ID = primitive.NewObjectID()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}

	if _, err := r.posts.InsertOne(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to insert post: %w", err)
	}

	if len(media) > 0 {
		docs := make([]interface{}, 0, len(media))
		for i, item := range media {
			item.ID = primitive.NewObjectID()
			item.PostID = post.ID
			item.SortOrder = i
			docs = append(docs, item)
		}
		if _, err := r.media.InsertMany(ctx, docs); err != nil {
			return nil, fmt.Errorf("failed to insert media items for post %s: %w", post.ID.Hex(), err)
		}
	}
	return post, nil
}

// FindLatestSerialByPrefix returns the lexicographically highest serial
// sharing the prefix. Zero-padded counters make lexicographic and
// numeric order agree within a day.
func (r *MongoPostRepository) FindLatestSerialByPrefix(ctx context.Context, prefix string) (string, error) {
	filter := bson.M{"serial": bson.M{"$regex": "^" + regexQuoteMeta(prefix)}}
	opts := options.FindOne().SetSort(bson.D{{Key: "serial", Value: -1}}).SetProjection(bson.M{"serial": 1})

	var doc struct {
		Serial string `bson:"serial"`
	}
	err := r.posts.FindOne(ctx, filter, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query latest serial: %w", err)
	}
	return doc.Serial, nil
}

// ExistsByMediaFileID reports whether any stored media item carries the
// exact file identifier.
func (r *MongoPostRepository) ExistsByMediaFileID(ctx context.Context, fileID string) (bool, error) {
	count, err := r.media.CountDocuments(ctx, bson.M{"file_id": fileID}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check media file id: %w", err)
	}
	return count > 0, nil
}

// FindAllOrderByCreatedAtAsc returns every post in creation order.
func (r *MongoPostRepository) FindAllOrderByCreatedAtAsc(ctx context.Context) ([]models.RelayedPost, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.posts.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find posts: %w", err)
	}
	defer cursor.Close(ctx)

	var posts []models.RelayedPost
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("failed to decode posts: %w", err)
	}
	return posts, nil
}

// FindMediaByPostID returns the post's media items ordered by sort order.
func (r *MongoPostRepository) FindMediaByPostID(ctx context.Context, postID string) ([]models.RelayedMediaItem, error) {
	oid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return nil, fmt.Errorf("invalid post id %q: %w", postID, err)
	}
	opts := options.Find().SetSort(bson.D{{Key: "sort_order", Value: 1}})
	cursor, err := r.media.Find(ctx, bson.M{"post_id": oid}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find media for post %s: %w", postID, err)
	}
	defer cursor.Close(ctx)

	var items []models.RelayedMediaItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode media for post %s: %w", postID, err)
	}
	return items, nil
}

// regexQuoteMeta escapes regex metacharacters so serial prefixes like
// "SUB-2025-01-01_" match literally.
func regexQuoteMeta(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\', '.', '+', '*', '?', '(', ')', '|', '[', ']', '{', '}', '^', '$':
			out = append(out, '\\')
		}
		out = append(out, c)
	}
	return string(out)
}
