package adapters

import (
	"context"
	"fmt"

	"github.com/shax201/ecommerce-backend-sub001/internal/features/courier/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// CredentialsCollection is the MongoDB collection holding courier credentials.
const CredentialsCollection = "courier_credentials"

// MongoCredentialRepository implements ports.CredentialRepository on MongoDB.
type MongoCredentialRepository struct {
	collection *mongo.Collection
}

// NewMongoCredentialRepository creates a credential repository over the given database.
func NewMongoCredentialRepository(db *mongo.Database) *MongoCredentialRepository {
	return &MongoCredentialRepository{
		collection: db.Collection(CredentialsCollection),
	}
}

// FindByProvider returns the provider's credential record, or nil when none exists.
func (r *MongoCredentialRepository) FindByProvider(ctx context.Context, provider string) (*domain.Credential, error) {
	var credential domain.Credential
	err := r.collection.FindOne(ctx, bson.M{"provider": provider}).Decode(&credential)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s credentials: %w", provider, err)
	}
	return &credential, nil
}

// FindActiveProviders returns the providers that have an active credential set.
func (r *MongoCredentialRepository) FindActiveProviders(ctx context.Context) ([]string, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"isActive": true})
	if err != nil {
		return nil, fmt.Errorf("failed to list active credentials: %w", err)
	}
	defer cursor.Close(ctx)

	var providers []string
	for cursor.Next(ctx) {
		var credential domain.Credential
		if err := cursor.Decode(&credential); err != nil {
			return nil, fmt.Errorf("failed to decode credential: %w", err)
		}
		providers = append(providers, credential.Provider)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate credentials: %w", err)
	}

	return providers, nil
}
