package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NewMongo establishes a MongoDB client and verifies it with a ping.
// timeout bounds both the connect and the ping; zero means 10 seconds.
//
// Typical usage:
//
//	client, err := database.NewMongo(cfg.MongoURI, 10*time.Second)
//	if err != nil { … }
//	defer client.Disconnect(context.Background())
func NewMongo(uri string, timeout time.Duration) (*mongo.Client, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		// Fresh context: ctx may already be past its deadline here.
		dctx, dcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer dcancel()
		_ = client.Disconnect(dctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return client, nil
}

// Indexes returns the secondary indexes the repositories rely on, keyed by
// collection name.
func Indexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		"bugs": {
			{
				Keys:    bson.D{{Key: "createdBy", Value: 1}, {Key: "createdAt", Value: -1}},
				Options: options.Index().SetName("owner_created"),
			},
			{
				Keys:    bson.D{{Key: "createdBy", Value: 1}, {Key: "embeddingUpdatedAt", Value: 1}},
				Options: options.Index().SetName("owner_embedding"),
			},
		},
		"reports": {
			{
				Keys:    bson.D{{Key: "owner", Value: 1}},
				Options: options.Index().SetName("owner"),
			},
		},
	}
}

// EnsureIndexes creates the indexes from Indexes. Creating an existing index
// with the same definition is a no-op in MongoDB.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for coll, models := range Indexes() {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}
