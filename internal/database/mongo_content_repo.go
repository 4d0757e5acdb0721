package database

import (
	"context"
	"fmt"
	"strings"

	"channel-relay-bot/internal/database/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	blacklistCollectionName = "blacklist_terms"
	suffixCollectionName    = "channel_suffixes"
	promoCollectionName     = "promo_contents"
)

// MongoContentRepository provides the decoration configuration data:
// blacklist terms, per-origin suffixes, and promotional fragments.
// It implements BlacklistRepository, SuffixRepository and PromoRepository.
type MongoContentRepository struct {
	blacklist *mongo.Collection
	suffixes  *mongo.Collection
	promos    *mongo.Collection
}

// NewMongoContentRepository creates a content repository on the default
// collections.
func NewMongoContentRepository(db *mongo.Database) *MongoContentRepository {
	return &MongoContentRepository{
		blacklist: db.Collection(blacklistCollectionName),
		suffixes:  db.Collection(suffixCollectionName),
		promos:    db.Collection(promoCollectionName),
	}
}

// ListTerms returns all configured blacklist terms, blank terms excluded.
func (r *MongoContentRepository) ListTerms(ctx context.Context) ([]string, error) {
	cursor, err := r.blacklist.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to find blacklist terms: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []models.BlacklistTerm
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode blacklist terms: %w", err)
	}

	terms := make([]string, 0, len(docs))
	for _, doc := range docs {
		if strings.TrimSpace(doc.Term) == "" {
			continue
		}
		terms = append(terms, doc.Term)
	}
	return terms, nil
}

// PickSuffixByOriginChatID returns a random enabled suffix for the
// origin chat, or "" when the origin is blank or has no suffix.
func (r *MongoContentRepository) PickSuffixByOriginChatID(ctx context.Context, originChatID string) (string, error) {
	if strings.TrimSpace(originChatID) == "" {
		return "", nil
	}
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"origin_chat_id": originChatID, "enabled": true}}},
		bson.D{{Key: "$sample", Value: bson.M{"size": 1}}},
	}
	cursor, err := r.suffixes.Aggregate(ctx, pipeline)
	if err != nil {
		return "", fmt.Errorf("failed to sample suffix: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []models.ChannelSuffix
	if err := cursor.All(ctx, &docs); err != nil {
		return "", fmt.Errorf("failed to decode suffix: %w", err)
	}
	if len(docs) == 0 {
		return "", nil
	}
	return strings.TrimSpace(docs[0].SuffixText), nil
}

// PickRandomContent returns a random enabled promotional fragment,
// or "" when none is configured.
func (r *MongoContentRepository) PickRandomContent(ctx context.Context) (string, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"enabled": true}}},
		bson.D{{Key: "$sample", Value: bson.M{"size": 1}}},
	}
	cursor, err := r.promos.Aggregate(ctx, pipeline)
	if err != nil {
		return "", fmt.Errorf("failed to sample promo content: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []models.PromoContent
	if err := cursor.All(ctx, &docs); err != nil {
		return "", fmt.Errorf("failed to decode promo content: %w", err)
	}
	if len(docs) == 0 {
		return "", nil
	}
	return strings.TrimSpace(docs[0].Content), nil
}
