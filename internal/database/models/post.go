package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MediaKind identifies the type of a relayed media attachment.
// The set is closed: outbound sending and persistence both switch
// exhaustively over these values.
type MediaKind string

const (
	MediaKindPhoto     MediaKind = "photo"
	MediaKindVideo     MediaKind = "video"
	MediaKindDocument  MediaKind = "document"
	MediaKindAudio     MediaKind = "audio"
	MediaKindAnimation MediaKind = "animation"
)

// RelayedPost is one durably recorded unit of relayed content.
// Created exactly once after a successful send, immutable thereafter.
type RelayedPost struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty"`
	Serial             string             `bson:"serial"`
	SourceChatID       int64              `bson:"source_chat_id"`
	SourceMessageID    int                `bson:"source_message_id"`
	SourceMediaGroupID string             `bson:"source_media_group_id,omitempty"`
	OriginChatID       int64              `bson:"origin_chat_id,omitempty"`
	OriginChatTitle    string             `bson:"origin_chat_title,omitempty"`
	OriginUserID       int64              `bson:"origin_user_id,omitempty"`
	OriginUserUsername string             `bson:"origin_user_username,omitempty"`
	OriginUserName     string             `bson:"origin_user_name,omitempty"`
	OriginalText       string             `bson:"original_text,omitempty"`
	ProcessedText      string             `bson:"processed_text,omitempty"`
	OutputText         string             `bson:"output_text,omitempty"`
	CreatedAt          time.Time          `bson:"created_at"`
}

// RelayedMediaItem is one media attachment belonging to a RelayedPost.
// SortOrder is 0-based arrival order within the batch; FileID is the
// deduplication key.
type RelayedMediaItem struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	PostID    primitive.ObjectID `bson:"post_id"`
	Kind      MediaKind          `bson:"media_kind"`
	FileID    string             `bson:"file_id"`
	SortOrder int                `bson:"sort_order"`
}
