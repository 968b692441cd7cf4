package ports

import (
	"context"
	"time"

	"commerce-import-layer/internal/domain"

	"github.com/shopspring/decimal"
)

// ProviderAdapter is the capability set every provider implementation satisfies
type ProviderAdapter interface {
	Provider() domain.Provider

	// Resources lists the resource kinds FetchPage understands, in import order
	Resources() []domain.ResourceKind

	// TokenActive is a cheap liveness probe. Expected auth failures yield false, never an error.
	TokenActive(ctx context.Context) bool

	// IsPriceConverted reports whether the shop currency (or override) differs from the account currency
	IsPriceConverted(ctx context.Context, currencyOverride string) (bool, error)

	// ConvertAmount converts amount into the account currency and returns the conversion note
	ConvertAmount(ctx context.Context, amount string, occurredAt time.Time, note string, currencyOverride string) (decimal.Decimal, string, error)

	// FetchPage retrieves one page of a resource. An empty Next cursor signals exhaustion.
	FetchPage(ctx context.Context, kind domain.ResourceKind, cursor domain.Cursor) (*domain.Page, error)

	// APIAvailable probes connectivity; on failure it stamps the active ExternalImport and returns false
	APIAvailable(ctx context.Context) bool
}

// Throttler is implemented by adapters whose rate limit is read from response headers
type Throttler interface {
	DrainThrottle(ctx context.Context) error
}

// GhostProductBuilder is implemented by adapters that synthesize placeholders for deleted products
type GhostProductBuilder interface {
	GhostProduct(ctx context.Context, item domain.LineItem, occurredAt time.Time) (*domain.GhostProduct, error)
}
