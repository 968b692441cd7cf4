package ports

import (
	"context"

	"commerce-import-layer/internal/domain"
)

// CredentialRepository defines the interface for credential persistence
type CredentialRepository interface {
	// Load returns the shop's credential, nil when none is stored
	Load(ctx context.Context, shopID string) (*domain.Credential, error)

	// Save persists the credential if its Version still matches the stored one and
	// increments Version. A stale write returns domain.ErrCredentialConflict.
	Save(ctx context.Context, credential *domain.Credential) error
}

// ShopRepository defines the interface for shop and account lookups
type ShopRepository interface {
	GetShop(ctx context.Context, id string) (*domain.Shop, error)
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	ListActiveShopIDs(ctx context.Context) ([]string, error)

	// Deactivate marks the shop inactive after its credential died
	Deactivate(ctx context.Context, shopID string) error

	// UpdateCurrency caches the provider-native currency on the shop
	UpdateCurrency(ctx context.Context, shopID string, currency string) error

	// UpdatePaypalEmails stores the emails PayPal associates with the shop
	UpdatePaypalEmails(ctx context.Context, shopID string, emails []string) error
}
