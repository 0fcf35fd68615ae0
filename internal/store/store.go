// Package store persists the bridge's conversation mappings, sighted
// users and filter words as typed documents with upsert semantics. The
// in-memory caches are rebuilt from here at startup, never the reverse.
package store

import (
	"context"
	"time"
)

// Record types, one per document kind.
const (
	TypeChat   = "chat"
	TypeUser   = "user"
	TypeFilter = "filter"
)

// ChatRecord maps a source direct thread to its destination forum topic.
// One record per thread; topic ids are unique across records.
type ChatRecord struct {
	ThreadID     string    `bson:"thread_id" json:"thread_id"`
	TopicID      int       `bson:"topic_id" json:"topic_id"`
	AvatarURL    string    `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	LastActiveAt time.Time `bson:"last_active_at" json:"last_active_at"`
}

// UserRecord caches the last sighted profile of a source user.
type UserRecord struct {
	UserID    string    `bson:"user_id" json:"user_id"`
	Username  string    `bson:"username" json:"username"`
	FullName  string    `bson:"full_name,omitempty" json:"full_name,omitempty"`
	AvatarURL string    `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	FirstSeen time.Time `bson:"first_seen" json:"first_seen"`
	LastSeen  time.Time `bson:"last_seen" json:"last_seen"`
}

// Store is the persistent document store for bridge state.
// All writes are upserts keyed by the record's natural key.
type Store interface {
	UpsertChat(ctx context.Context, rec ChatRecord) error
	DeleteChat(ctx context.Context, threadID string) error
	ListChats(ctx context.Context) ([]ChatRecord, error)
	// TouchChat bumps the last-activity timestamp of an existing mapping.
	TouchChat(ctx context.Context, threadID string, at time.Time) error

	UpsertUser(ctx context.Context, rec UserRecord) error

	ListFilterWords(ctx context.Context) ([]string, error)
	AddFilterWord(ctx context.Context, word string) error
	RemoveFilterWord(ctx context.Context, word string) error

	Close(ctx context.Context) error
}
