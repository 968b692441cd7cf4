package providers

import (
	"context"
	"fmt"
	"time"

	"commerce-import-layer/internal/domain"
	"commerce-import-layer/internal/infrastructure/retry"
	"commerce-import-layer/internal/ports"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

const squareCatalogTTL = 3601 * time.Second

// Square imports orders across every business location
type Square struct {
	base
	api       ports.SquareAPI
	refresher ports.TokenRefresher
	locations []ports.SquareLocation
}

func newSquare(env Env, clients Clients) (ports.ProviderAdapter, error) {
	if clients.Square == nil {
		return nil, notConfigured(domain.ProviderSquare)
	}
	return &Square{
		base:      newBase(env, domain.ProviderSquare),
		api:       clients.Square,
		refresher: clients.Refreshers[domain.ProviderSquare],
	}, nil
}

func (s *Square) Resources() []domain.ResourceKind {
	return []domain.ResourceKind{domain.ResourceOrders}
}

// refresh renews the token, first migrating long-lived tokens that have no refresh token
func (s *Square) refresh(ctx context.Context, c *domain.Credential) (*domain.Credential, error) {
	if c.RefreshToken != "" {
		return s.oauthRefresh(s.refresher)(ctx, c)
	}
	grant, err := s.api.ObtainMigrationToken(ctx, c.Token)
	if err != nil {
		return nil, s.classify("obtain_migration_token", err)
	}
	c.SetProviderData(domain.ProviderDataLegacyToken, c.Token)
	grant.Apply(c)
	s.log.Info().Msg("Migrated legacy token")
	return c, nil
}

func (s *Square) stale(c *domain.Credential) bool {
	return c.RefreshToken == "" || s.expiredNow(c)
}

func (s *Square) token(ctx context.Context) (*domain.Credential, error) {
	return s.Tokens.EnsureFresh(ctx, s.Shop, s.stale, s.refresh)
}

func (s *Square) listLocations(ctx context.Context) ([]ports.SquareLocation, error) {
	if s.locations != nil {
		return s.locations, nil
	}
	cred, err := s.token(ctx)
	if err != nil {
		return nil, err
	}
	locs, err := retry.Do(ctx, s.Retry, func(ctx context.Context) ([]ports.SquareLocation, error) {
		locs, err := s.api.ListLocations(ctx, cred.Token)
		return locs, s.classify("list_locations", err)
	})
	if err != nil {
		return nil, err
	}
	if len(locs) == 0 {
		return nil, domain.NewImportError(domain.KindNotFound, s.provider, "list_locations",
			domain.WithMessage("shop has no locations"))
	}
	s.locations = locs
	return locs, nil
}

func (s *Square) TokenActive(ctx context.Context) bool {
	if _, err := s.listLocations(ctx); err != nil {
		s.log.Info().Err(err).Msg("Token inactive")
		return false
	}
	return true
}

func (s *Square) currency(ctx context.Context, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	return s.cachedCurrency(ctx, func(ctx context.Context) (string, error) {
		locs, err := s.listLocations(ctx)
		if err != nil {
			return "", err
		}
		return locs[0].Currency, nil
	})
}

func (s *Square) IsPriceConverted(ctx context.Context, override string) (bool, error) {
	cur, err := s.currency(ctx, override)
	if err != nil {
		return false, err
	}
	return s.priceConverted(cur), nil
}

func (s *Square) ConvertAmount(ctx context.Context, amount string, occurredAt time.Time, note, override string) (decimal.Decimal, string, error) {
	cur, err := s.currency(ctx, override)
	if err != nil {
		return decimal.Zero, "", err
	}
	return s.convert(ctx, amount, occurredAt, note, cur)
}

func (s *Square) FetchPage(ctx context.Context, kind domain.ResourceKind, cursor domain.Cursor) (*domain.Page, error) {
	if kind != domain.ResourceOrders {
		return nil, s.unsupported(kind)
	}
	locs, err := s.listLocations(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(locs))
	for i, l := range locs {
		ids[i] = l.ID
	}
	cred, err := s.token(ctx)
	if err != nil {
		return nil, err
	}

	var next string
	items, err := retry.Do(ctx, s.Retry, func(ctx context.Context) ([]any, error) {
		var items []any
		var err error
		items, next, err = s.api.SearchOrders(ctx, cred.Token, ids, s.Window.Start(), s.Window.End(), string(cursor))
		return items, s.classify("search_orders", err)
	})
	if err != nil {
		return nil, err
	}
	return &domain.Page{Items: items, Next: domain.Cursor(next)}, nil
}

func (s *Square) APIAvailable(ctx context.Context) bool {
	if _, err := s.listLocations(ctx); err != nil {
		s.markUnavailable(ctx, "list_locations", err)
		return false
	}
	return true
}

func catalogKey(shopID, objectID string) string {
	return fmt.Sprintf("shop:%s:%s", shopID, objectID)
}

// CatalogObject resolves a catalog object, caching it in the shared store for an hour
func (s *Square) CatalogObject(ctx context.Context, objectID string) (*ports.SquareCatalogObject, error) {
	key := catalogKey(s.Shop.ID, objectID)
	if s.Counters != nil {
		raw, ok, err := s.Counters.Get(ctx, key)
		if err != nil {
			s.log.Warn().Err(err).Msg("Catalog cache unavailable")
		} else if ok {
			var obj ports.SquareCatalogObject
			if err := json.Unmarshal([]byte(raw), &obj); err == nil {
				return &obj, nil
			}
		}
	}

	cred, err := s.token(ctx)
	if err != nil {
		return nil, err
	}
	obj, err := retry.Do(ctx, s.Retry, func(ctx context.Context) (*ports.SquareCatalogObject, error) {
		obj, err := s.api.RetrieveCatalogObject(ctx, cred.Token, objectID)
		return obj, s.classify("retrieve_catalog_object", err)
	})
	if err != nil {
		return nil, err
	}

	if s.Counters != nil {
		raw, err := json.Marshal(obj)
		if err == nil {
			err = s.Counters.Set(ctx, key, string(raw), squareCatalogTTL)
		}
		if err != nil {
			s.log.Warn().Err(err).Msg("Failed to cache catalog object")
		}
	}
	return obj, nil
}
