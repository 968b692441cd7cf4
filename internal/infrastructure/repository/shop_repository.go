package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"commerce-import-layer/internal/domain"
	"commerce-import-layer/internal/infrastructure/repository/entity"
	"commerce-import-layer/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoShopRepository implements ShopRepository using MongoDB
type MongoShopRepository struct {
	shopsCollection    *mongo.Collection
	accountsCollection *mongo.Collection
}

// NewMongoShopRepository creates a new MongoDB shop repository
func NewMongoShopRepository(db *mongo.Database) ports.ShopRepository {
	return &MongoShopRepository{
		shopsCollection:    db.Collection(ShopsCollection),
		accountsCollection: db.Collection(AccountsCollection),
	}
}

// GetShop retrieves a shop by id
func (r *MongoShopRepository) GetShop(ctx context.Context, id string) (*domain.Shop, error) {
	var doc entity.MongoShopDoc
	err := r.shopsCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}

	return doc.ToDomain(), nil
}

// GetAccount retrieves an account by id
func (r *MongoShopRepository) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	var doc entity.MongoAccountDoc
	err := r.accountsCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return doc.ToDomain(), nil
}

// ListActiveShopIDs returns the ids of every active shop
func (r *MongoShopRepository) ListActiveShopIDs(ctx context.Context) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := r.shopsCollection.Find(ctx, bson.M{"active": true}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list shops: %w", err)
	}
	defer cursor.Close(ctx)

	var ids []string
	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode shop: %w", err)
		}
		ids = append(ids, doc.ID)
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return ids, nil
}

// Deactivate marks the shop inactive
func (r *MongoShopRepository) Deactivate(ctx context.Context, shopID string) error {
	return r.set(ctx, shopID, bson.M{"active": false})
}

// UpdateCurrency caches the provider-native currency
func (r *MongoShopRepository) UpdateCurrency(ctx context.Context, shopID string, currency string) error {
	return r.set(ctx, shopID, bson.M{"currency": currency})
}

// UpdatePaypalEmails stores the PayPal account emails
func (r *MongoShopRepository) UpdatePaypalEmails(ctx context.Context, shopID string, emails []string) error {
	return r.set(ctx, shopID, bson.M{"paypalEmails": emails})
}

func (r *MongoShopRepository) set(ctx context.Context, shopID string, fields bson.M) error {
	fields["updatedAt"] = time.Now()
	result, err := r.shopsCollection.UpdateOne(ctx, bson.M{"_id": shopID}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update shop: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("shop not found: %s", shopID)
	}
	return nil
}
