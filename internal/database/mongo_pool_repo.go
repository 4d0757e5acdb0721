package database

import (
	"context"
	"errors"
	"fmt"

	"channel-relay-bot/internal/database/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const poolCollectionName = "card_pools"

// HintPoolType marks the pool the hint tag index is built from.
const HintPoolType = "hint"

// MongoPoolRepository implements PoolRepository for MongoDB.
type MongoPoolRepository struct {
	pools *mongo.Collection
}

// NewMongoPoolRepository creates a pool repository on the default
// collection.
func NewMongoPoolRepository(db *mongo.Database) *MongoPoolRepository {
	return &MongoPoolRepository{pools: db.Collection(poolCollectionName)}
}

// FindOpenHintPool returns the currently open hint pool, or nil when no
// pool is open. At most one hint pool is open at a time; if several are,
// the first one found wins.
func (r *MongoPoolRepository) FindOpenHintPool(ctx context.Context) (*models.CardPool, error) {
	var pool models.CardPool
	err := r.pools.FindOne(ctx, bson.M{"pool_type": HintPoolType, "open": true}).Decode(&pool)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find open hint pool: %w", err)
	}
	return &pool, nil
}
