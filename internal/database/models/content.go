package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// BlacklistTerm is a substring removed from relayed text.
type BlacklistTerm struct {
	ID   primitive.ObjectID `bson:"_id,omitempty"`
	Term string             `bson:"term"`
}

// ChannelSuffix is a per-origin suffix fragment prepended to decorated
// output when the source event was forwarded from the matching chat.
type ChannelSuffix struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	OriginChatID string             `bson:"origin_chat_id"`
	SuffixText   string             `bson:"suffix_text"`
	Enabled      bool               `bson:"enabled"`
}

// PromoContent is a promotional fragment appended to decorated output.
type PromoContent struct {
	ID      primitive.ObjectID `bson:"_id,omitempty"`
	Content string             `bson:"content"`
	Enabled bool               `bson:"enabled"`
}

// Resource is a curated piece of media referenced by hint cards.
type Resource struct {
	FileID  string    `bson:"file_id"`
	Kind    MediaKind `bson:"media_kind"`
	Tags    string    `bson:"tags"`
	Caption string    `bson:"caption,omitempty"`
}

// Card is one entry of a card pool. A hint card must carry a resource
// with non-blank tags.
type Card struct {
	CardID   string    `bson:"card_id"`
	Resource *Resource `bson:"resource,omitempty"`
}

// CardPool groups cards; the hint index is built from the single open
// pool of type "hint".
type CardPool struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	PoolType string             `bson:"pool_type"`
	Open     bool               `bson:"open"`
	Cards    []Card             `bson:"cards"`
}
