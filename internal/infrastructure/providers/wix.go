package providers

import (
	"context"
	"time"

	"commerce-import-layer/internal/domain"
	"commerce-import-layer/internal/infrastructure/retry"
	"commerce-import-layer/internal/ports"

	"github.com/shopspring/decimal"
)

const (
	wixPageSize      = 100
	wixTokenLifetime = 5 * time.Minute
)

// Orders in any other payment state are skipped
var wixPaidStatuses = map[string]bool{
	"PAID":               true,
	"PARTIALLY_REFUNDED": true,
	"FULLY_REFUNDED":     true,
}

// Wix imports paid orders and products. Access tokens live five minutes.
type Wix struct {
	base
	api        ports.WixAPI
	refresher  ports.TokenRefresher
	properties *ports.WixProperties
}

func newWix(env Env, clients Clients) (ports.ProviderAdapter, error) {
	if clients.Wix == nil {
		return nil, notConfigured(domain.ProviderWix)
	}
	return &Wix{
		base:      newBase(env, domain.ProviderWix),
		api:       clients.Wix,
		refresher: clients.Refreshers[domain.ProviderWix],
	}, nil
}

func (w *Wix) Resources() []domain.ResourceKind {
	return []domain.ResourceKind{domain.ResourceListings, domain.ResourceOrders}
}

func (w *Wix) refresh(ctx context.Context, c *domain.Credential) (*domain.Credential, error) {
	c, err := w.oauthRefresh(w.refresher)(ctx, c)
	if err != nil {
		return nil, err
	}
	expires := w.Clock.Now().Add(wixTokenLifetime)
	c.TokenExpiresAt = &expires
	return c, nil
}

func (w *Wix) token(ctx context.Context) (*domain.Credential, error) {
	return w.Tokens.EnsureFresh(ctx, w.Shop, w.expiredNow, w.refresh)
}

func (w *Wix) props(ctx context.Context) (*ports.WixProperties, error) {
	if w.properties != nil {
		return w.properties, nil
	}
	cred, err := w.token(ctx)
	if err != nil {
		return nil, err
	}
	props, err := retry.Do(ctx, w.Retry, func(ctx context.Context) (*ports.WixProperties, error) {
		p, err := w.api.GetProperties(ctx, cred.Token)
		return p, w.classify("get_properties", err)
	})
	if err != nil {
		return nil, err
	}
	w.properties = props
	return props, nil
}

func (w *Wix) TokenActive(ctx context.Context) bool {
	if _, err := w.props(ctx); err != nil {
		w.log.Info().Err(err).Msg("Token inactive")
		return false
	}
	return true
}

func (w *Wix) currency(ctx context.Context, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	p, err := w.props(ctx)
	if err != nil {
		return "", err
	}
	return p.PaymentCurrency, nil
}

func (w *Wix) IsPriceConverted(ctx context.Context, override string) (bool, error) {
	cur, err := w.currency(ctx, override)
	if err != nil {
		return false, err
	}
	return w.priceConverted(cur), nil
}

func (w *Wix) ConvertAmount(ctx context.Context, amount string, occurredAt time.Time, note, override string) (decimal.Decimal, string, error) {
	cur, err := w.currency(ctx, override)
	if err != nil {
		return decimal.Zero, "", err
	}
	return w.convert(ctx, amount, occurredAt, note, cur)
}

func (w *Wix) FetchPage(ctx context.Context, kind domain.ResourceKind, cursor domain.Cursor) (*domain.Page, error) {
	offset, err := offsetCursor(cursor, 0)
	if err != nil {
		return nil, err
	}
	cred, err := w.token(ctx)
	if err != nil {
		return nil, err
	}

	var items []any
	var fetched int
	switch kind {
	case domain.ResourceOrders:
		orders, err := retry.Do(ctx, w.Retry, func(ctx context.Context) ([]ports.WixOrder, error) {
			o, err := w.api.QueryOrders(ctx, cred.Token, w.Window.Start(), w.Window.End(), wixPageSize, offset)
			return o, w.classify("query_orders", err)
		})
		if err != nil {
			return nil, err
		}
		fetched = len(orders)
		for _, o := range orders {
			if wixPaidStatuses[o.PaymentStatus] {
				items = append(items, o)
			}
		}
	case domain.ResourceListings:
		items, err = retry.Do(ctx, w.Retry, func(ctx context.Context) ([]any, error) {
			p, err := w.api.QueryProducts(ctx, cred.Token, wixPageSize, offset)
			return p, w.classify("query_products", err)
		})
		if err != nil {
			return nil, err
		}
		fetched = len(items)
	default:
		return nil, w.unsupported(kind)
	}

	page := &domain.Page{Items: items}
	if fetched >= wixPageSize {
		page.Next = intCursor(offset + wixPageSize)
	}
	return page, nil
}

func (w *Wix) APIAvailable(ctx context.Context) bool {
	if _, err := w.props(ctx); err != nil {
		w.markUnavailable(ctx, "get_properties", err)
		return false
	}
	return true
}

func (w *Wix) GhostProduct(ctx context.Context, item domain.LineItem, occurredAt time.Time) (*domain.GhostProduct, error) {
	cur, err := w.currency(ctx, item.Currency)
	if err != nil {
		return nil, err
	}
	return w.ghostProduct(ctx, item, occurredAt, cur)
}
