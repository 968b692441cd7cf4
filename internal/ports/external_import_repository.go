package ports

import (
	"context"
	"time"

	"commerce-import-layer/internal/domain"
)

// ExternalImportRepository defines the interface for import job persistence
type ExternalImportRepository interface {
	// Get retrieves a job by id, nil when it does not exist
	Get(ctx context.Context, id string) (*domain.ExternalImport, error)

	// MarkFailed stamps failed_at and error_messages
	MarkFailed(ctx context.Context, id string, failedAt time.Time, detail domain.ErrorDetail) error

	// UpdateTotals records the provider-reported total item count
	UpdateTotals(ctx context.Context, id string, totalItems int) error

	// MarkFinished records the processed item count and completion time
	MarkFinished(ctx context.Context, id string, processedItems int, finishedAt time.Time) error
}
