package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// document is the on-disk envelope: a type tag, the natural key of the
// record, and the record body.
type document struct {
	Type string      `bson:"type"`
	Key  string      `bson:"key"`
	Data interface{} `bson:"data,omitempty"`
}

type mongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongo connects to MongoDB and ensures the unique (type, key) index.
func NewMongo(ctx context.Context, uri, database string) (Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	coll := client.Database(database).Collection("records")
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "type", Value: 1}, {Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ensure index: %w", err)
	}

	return &mongoStore{client: client, collection: coll}, nil
}

func (s *mongoStore) upsert(ctx context.Context, typ, key string, data interface{}) error {
	filter := bson.M{"type": typ, "key": key}
	update := bson.M{"$set": document{Type: typ, Key: key, Data: data}}
	_, err := s.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert %s/%s: %w", typ, key, err)
	}
	return nil
}

func (s *mongoStore) UpsertChat(ctx context.Context, rec ChatRecord) error {
	return s.upsert(ctx, TypeChat, rec.ThreadID, rec)
}

func (s *mongoStore) DeleteChat(ctx context.Context, threadID string) error {
	_, err := s.collection.DeleteOne(ctx, bson.M{"type": TypeChat, "key": threadID})
	if err != nil {
		return fmt.Errorf("delete chat %s: %w", threadID, err)
	}
	return nil
}

func (s *mongoStore) ListChats(ctx context.Context) ([]ChatRecord, error) {
	cursor, err := s.collection.Find(ctx, bson.M{"type": TypeChat})
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []struct {
		Data ChatRecord `bson:"data"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode chats: %w", err)
	}

	chats := make([]ChatRecord, 0, len(docs))
	for _, d := range docs {
		chats = append(chats, d.Data)
	}
	return chats, nil
}

func (s *mongoStore) TouchChat(ctx context.Context, threadID string, at time.Time) error {
	filter := bson.M{"type": TypeChat, "key": threadID}
	update := bson.M{"$set": bson.M{"data.last_active_at": at}}
	_, err := s.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("touch chat %s: %w", threadID, err)
	}
	return nil
}

func (s *mongoStore) UpsertUser(ctx context.Context, rec UserRecord) error {
	return s.upsert(ctx, TypeUser, rec.UserID, rec)
}

func (s *mongoStore) ListFilterWords(ctx context.Context) ([]string, error) {
	cursor, err := s.collection.Find(ctx, bson.M{"type": TypeFilter})
	if err != nil {
		return nil, fmt.Errorf("list filter words: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode filter words: %w", err)
	}

	words := make([]string, 0, len(docs))
	for _, d := range docs {
		words = append(words, d.Key)
	}
	return words, nil
}

func (s *mongoStore) AddFilterWord(ctx context.Context, word string) error {
	return s.upsert(ctx, TypeFilter, word, nil)
}

func (s *mongoStore) RemoveFilterWord(ctx context.Context, word string) error {
	_, err := s.collection.DeleteOne(ctx, bson.M{"type": TypeFilter, "key": word})
	if err != nil {
		return fmt.Errorf("remove filter word %q: %w", word, err)
	}
	return nil
}

func (s *mongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
