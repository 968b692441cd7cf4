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
)

// MongoExternalImportRepository implements ExternalImportRepository using MongoDB
type MongoExternalImportRepository struct {
	collection *mongo.Collection
}

// NewMongoExternalImportRepository creates a new MongoDB import job repository
func NewMongoExternalImportRepository(db *mongo.Database) ports.ExternalImportRepository {
	return &MongoExternalImportRepository{
		collection: db.Collection(ExternalImportsCollection),
	}
}

// Get retrieves an import job by id
func (r *MongoExternalImportRepository) Get(ctx context.Context, id string) (*domain.ExternalImport, error) {
	var doc entity.MongoExternalImportDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get external import: %w", err)
	}

	return doc.ToDomain(), nil
}

// MarkFailed stamps the failure time and error detail
func (r *MongoExternalImportRepository) MarkFailed(ctx context.Context, id string, failedAt time.Time, detail domain.ErrorDetail) error {
	return r.set(ctx, id, bson.M{
		"failedAt": failedAt,
		"errorMessages": entity.MongoErrorDetailDoc{
			Message:   detail.Message,
			Backtrace: detail.Backtrace,
		},
	})
}

// UpdateTotals records the total item count reported by the provider
func (r *MongoExternalImportRepository) UpdateTotals(ctx context.Context, id string, totalItems int) error {
	return r.set(ctx, id, bson.M{"totalItems": totalItems})
}

// MarkFinished records the processed count and completion time
func (r *MongoExternalImportRepository) MarkFinished(ctx context.Context, id string, processedItems int, finishedAt time.Time) error {
	return r.set(ctx, id, bson.M{
		"processedItems": processedItems,
		"finishedAt":     finishedAt,
	})
}

func (r *MongoExternalImportRepository) set(ctx context.Context, id string, fields bson.M) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update external import: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("external import not found: %s", id)
	}
	return nil
}
