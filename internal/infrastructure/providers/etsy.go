package providers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"commerce-import-layer/internal/domain"
	"commerce-import-layer/internal/infrastructure/retry"
	"commerce-import-layer/internal/infrastructure/tokens"
	"commerce-import-layer/internal/ports"

	"github.com/shopspring/decimal"
)

const etsyPageSize = 100

// Listing states are imported one after another
var etsyListingStates = []string{"active", "inactive", "sold_out", "draft", "expired"}

// Etsy imports through the Etsy v3 API. Shops connected before OAuth2 are migrated
// on first use; a rejected token is refreshed once and the call retried once.
type Etsy struct {
	base
	api       ports.EtsyAPI
	refresher ports.TokenRefresher
	shop      *ports.EtsyShop
}

func newEtsy(env Env, clients Clients) (ports.ProviderAdapter, error) {
	if clients.Etsy == nil {
		return nil, notConfigured(domain.ProviderEtsy)
	}
	return &Etsy{
		base:      newBase(env, domain.ProviderEtsy),
		api:       clients.Etsy,
		refresher: clients.Refreshers[domain.ProviderEtsy],
	}, nil
}

func (e *Etsy) Resources() []domain.ResourceKind {
	return []domain.ResourceKind{domain.ResourceListings, domain.ResourceOrders, domain.ResourcePayments}
}

func isEtsyInvalidToken(err error) bool {
	return domain.StatusOf(err) == http.StatusUnauthorized && domain.CodeOf(err) == "invalid_token"
}

// migrate exchanges a legacy token for a refreshable grant, keeping the legacy token
func (e *Etsy) migrate(ctx context.Context) error {
	cred, err := e.credential(ctx)
	if err != nil {
		return err
	}
	if cred.RefreshToken != "" {
		return nil
	}

	grant, err := e.api.ExchangeLegacyToken(ctx, cred.Token)
	if err != nil {
		return e.classify("exchange_legacy_token", err)
	}
	cred.SetProviderData(domain.ProviderDataLegacyToken, cred.Token)
	grant.Apply(cred)
	if err := e.Tokens.Save(ctx, cred); err != nil {
		return err
	}
	e.log.Info().Msg("Migrated legacy token")
	return nil
}

func etsyCall[T any](ctx context.Context, e *Etsy, op string, fn func(context.Context, *domain.Credential) (T, error)) (T, error) {
	if err := e.migrate(ctx); err != nil {
		var zero T
		return zero, err
	}
	return tokens.Call(ctx, e.Tokens, e.Shop, isEtsyInvalidToken, e.oauthRefresh(e.refresher),
		func(ctx context.Context, c *domain.Credential) (T, error) {
			return retry.Do(ctx, e.Retry, func(ctx context.Context) (T, error) {
				v, err := fn(ctx, c)
				return v, e.classify(op, err)
			})
		})
}

func (e *Etsy) etsyShop(ctx context.Context) (*ports.EtsyShop, error) {
	if e.shop != nil {
		return e.shop, nil
	}
	shop, err := etsyCall(ctx, e, "get_shop_by_owner", func(ctx context.Context, c *domain.Credential) (*ports.EtsyShop, error) {
		return e.api.GetShopByOwner(ctx, c.Token, pick(c.UID, e.Shop.ExternalUID))
	})
	if err != nil {
		return nil, err
	}
	e.shop = shop
	return shop, nil
}

func (e *Etsy) TokenActive(ctx context.Context) bool {
	if _, err := e.etsyShop(ctx); err != nil {
		e.log.Info().Err(err).Msg("Token inactive")
		return false
	}
	return true
}

func (e *Etsy) currency(ctx context.Context, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	shop, err := e.etsyShop(ctx)
	if err != nil {
		return "", err
	}
	return shop.CurrencyCode, nil
}

func (e *Etsy) IsPriceConverted(ctx context.Context, override string) (bool, error) {
	cur, err := e.currency(ctx, override)
	if err != nil {
		return false, err
	}
	return e.priceConverted(cur), nil
}

func (e *Etsy) ConvertAmount(ctx context.Context, amount string, occurredAt time.Time, note, override string) (decimal.Decimal, string, error) {
	cur, err := e.currency(ctx, override)
	if err != nil {
		return decimal.Zero, "", err
	}
	return e.convert(ctx, amount, occurredAt, note, cur)
}

// parseListingCursor decodes a "state:offset" cursor into a state index and offset
func parseListingCursor(c domain.Cursor) (int, int, error) {
	if c == "" {
		return 0, 0, nil
	}
	state, offset, ok := strings.Cut(string(c), ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid listing cursor %q", c)
	}
	for i, s := range etsyListingStates {
		if s == state {
			n, err := strconv.Atoi(offset)
			if err != nil {
				return 0, 0, fmt.Errorf("invalid listing cursor %q: %w", c, err)
			}
			return i, n, nil
		}
	}
	return 0, 0, fmt.Errorf("invalid listing state in cursor %q", c)
}

func listingCursor(state, offset int) domain.Cursor {
	return domain.Cursor(fmt.Sprintf("%s:%d", etsyListingStates[state], offset))
}

func (e *Etsy) FetchPage(ctx context.Context, kind domain.ResourceKind, cursor domain.Cursor) (*domain.Page, error) {
	shop, err := e.etsyShop(ctx)
	if err != nil {
		return nil, err
	}

	switch kind {
	case domain.ResourceListings:
		state, offset, err := parseListingCursor(cursor)
		if err != nil {
			return nil, err
		}
		items, err := etsyCall(ctx, e, "get_listings_by_shop", func(ctx context.Context, c *domain.Credential) ([]any, error) {
			return e.api.GetListingsByShop(ctx, c.Token, shop.ShopID, etsyListingStates[state], etsyPageSize, offset)
		})
		if err != nil {
			return nil, err
		}
		page := &domain.Page{Items: items}
		switch {
		case len(items) >= etsyPageSize:
			page.Next = listingCursor(state, offset+etsyPageSize)
		case state+1 < len(etsyListingStates):
			page.Next = listingCursor(state+1, 0)
		}
		return page, nil

	case domain.ResourceOrders, domain.ResourcePayments:
		offset, err := offsetCursor(cursor, 0)
		if err != nil {
			return nil, err
		}
		start, end := e.Window.Start(), e.Window.End()
		op, list := "get_shop_receipts", e.api.GetShopReceipts
		if kind == domain.ResourcePayments {
			op, list = "get_ledger_entries", e.api.GetLedgerEntries
		}
		items, err := etsyCall(ctx, e, op, func(ctx context.Context, c *domain.Credential) ([]any, error) {
			return list(ctx, c.Token, shop.ShopID, start, end, etsyPageSize, offset)
		})
		if err != nil {
			return nil, err
		}
		page := &domain.Page{Items: items}
		if len(items) >= etsyPageSize {
			page.Next = intCursor(offset + etsyPageSize)
		}
		return page, nil
	}
	return nil, e.unsupported(kind)
}

func (e *Etsy) APIAvailable(ctx context.Context) bool {
	_, err := etsyCall(ctx, e, "ping", func(ctx context.Context, c *domain.Credential) (struct{}, error) {
		return struct{}{}, e.api.Ping(ctx, c.Token)
	})
	if err != nil {
		e.markUnavailable(ctx, "ping", err)
		return false
	}
	return true
}

func (e *Etsy) GhostProduct(ctx context.Context, item domain.LineItem, occurredAt time.Time) (*domain.GhostProduct, error) {
	cur, err := e.currency(ctx, item.Currency)
	if err != nil {
		return nil, err
	}
	return e.ghostProduct(ctx, item, occurredAt, cur)
}
