package ports

import (
	"context"
	"time"

	"commerce-import-layer/internal/domain"

	"github.com/shopspring/decimal"
)

// ExchangeRateService converts an amount between currencies on a date
type ExchangeRateService interface {
	Exchange(ctx context.Context, amount decimal.Decimal, date time.Time, from, to string) (domain.Exchange, error)
}

// NotificationSink delivers user-facing notifications
type NotificationSink interface {
	Notify(ctx context.Context, notification domain.Notification) error
}

// ErrorTracker receives escalated failures
type ErrorTracker interface {
	Report(ctx context.Context, err error, fields map[string]string)
}

// RecordSink hands fetched records to the downstream domain importers
type RecordSink interface {
	Handle(ctx context.Context, shop *domain.Shop, kind domain.ResourceKind, items []any) error
}
