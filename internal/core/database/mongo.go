package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo wraps the MongoDB client and the application database handle.
type Mongo struct {
	client *mongo.Client
	// DB is the database handle used by all repositories.
	DB *mongo.Database
}

// Connect establishes a MongoDB connection and verifies it with a ping.
func Connect(ctx context.Context, uri, database string) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongodb ping failed: %w", err)
	}

	return &Mongo{
		client: client,
		DB:     client.Database(database),
	}, nil
}

// Collection returns a collection handle from the application database.
func (m *Mongo) Collection(name string) *mongo.Collection {
	return m.DB.Collection(name)
}

// Close disconnects the underlying client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
