package repository

import (
	"context"
	"errors"
	"fmt"

	"commerce-import-layer/internal/domain"
	"commerce-import-layer/internal/infrastructure/repository/entity"
	"commerce-import-layer/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names
const (
	CredentialsCollection     = "credentials"
	ShopsCollection           = "shops"
	AccountsCollection        = "accounts"
	ExternalImportsCollection = "external_imports"
)

// EnsureIndexes creates the indexes the repositories rely on
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(CredentialsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "shopId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create credentials index: %w", err)
	}

	_, err = db.Collection(ShopsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "active", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create shops index: %w", err)
	}
	return nil
}

// MongoCredentialRepository implements CredentialRepository using MongoDB.
// Writes are compare-and-swap on the version field.
type MongoCredentialRepository struct {
	collection *mongo.Collection
}

// NewMongoCredentialRepository creates a new MongoDB credential repository
func NewMongoCredentialRepository(db *mongo.Database) ports.CredentialRepository {
	return &MongoCredentialRepository{
		collection: db.Collection(CredentialsCollection),
	}
}

// Load retrieves the credential for a shop
func (r *MongoCredentialRepository) Load(ctx context.Context, shopID string) (*domain.Credential, error) {
	var doc entity.MongoCredentialDoc
	err := r.collection.FindOne(ctx, bson.M{"shopId": shopID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	return doc.ToDomain(), nil
}

// Save writes the credential when the stored version still equals credential.Version
func (r *MongoCredentialRepository) Save(ctx context.Context, credential *domain.Credential) error {
	doc := entity.MongoCredentialDocFromDomain(credential)
	doc.Version = credential.Version + 1

	filter := bson.M{
		"shopId":  credential.ShopID,
		"version": credential.Version,
	}
	update := bson.M{"$set": doc}
	// The first write for a shop inserts; a concurrent insert loses on the unique index.
	opts := options.Update().SetUpsert(credential.Version == 0)

	result, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrCredentialConflict
	}
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	if result.MatchedCount == 0 && result.UpsertedCount == 0 {
		return domain.ErrCredentialConflict
	}

	credential.Version = doc.Version
	return nil
}
