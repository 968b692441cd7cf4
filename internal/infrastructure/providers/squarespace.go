package providers

import (
	"context"
	"net/http"
	"time"

	"commerce-import-layer/internal/domain"
	"commerce-import-layer/internal/infrastructure/ratelimit"
	"commerce-import-layer/internal/infrastructure/retry"
	"commerce-import-layer/internal/infrastructure/tokens"
	"commerce-import-layer/internal/ports"

	"github.com/shopspring/decimal"
)

const (
	squarespaceRefreshLead = 10 * time.Minute
	squarespacePagePause   = 5 * time.Second
)

// Squarespace imports from the Commerce API, pausing between pages
type Squarespace struct {
	base
	api       ports.SquarespaceAPI
	refresher ports.TokenRefresher
	pacer     *ratelimit.Pacer
	website   *ports.SquarespaceWebsite
}

func newSquarespace(env Env, clients Clients) (ports.ProviderAdapter, error) {
	if clients.Squarespace == nil {
		return nil, notConfigured(domain.ProviderSquarespace)
	}
	b := newBase(env, domain.ProviderSquarespace)
	return &Squarespace{
		base:      b,
		api:       clients.Squarespace,
		refresher: clients.Refreshers[domain.ProviderSquarespace],
		pacer:     ratelimit.NewPacer(squarespacePagePause, b.Clock),
	}, nil
}

func (s *Squarespace) Resources() []domain.ResourceKind {
	return []domain.ResourceKind{domain.ResourceListings, domain.ResourceOrders, domain.ResourceTransactions}
}

// stale treats a missing expiry, or one within ten minutes, as expired
func (s *Squarespace) stale(c *domain.Credential) bool {
	if c.TokenExpiresAt == nil {
		return true
	}
	return !s.Clock.Now().Add(squarespaceRefreshLead).Before(*c.TokenExpiresAt)
}

func isUnauthorized(err error) bool {
	return domain.StatusOf(err) == http.StatusUnauthorized
}

func squarespaceCall[T any](ctx context.Context, s *Squarespace, op string, fn func(ctx context.Context, token string) (T, error)) (T, error) {
	refresh := s.oauthRefresh(s.refresher)
	if _, err := s.Tokens.EnsureFresh(ctx, s.Shop, s.stale, refresh); err != nil {
		var zero T
		return zero, err
	}
	return tokens.Call(ctx, s.Tokens, s.Shop, isUnauthorized, refresh, func(ctx context.Context, c *domain.Credential) (T, error) {
		return retry.Do(ctx, s.Retry, func(ctx context.Context) (T, error) {
			v, err := fn(ctx, c.Token)
			return v, s.classify(op, err)
		})
	})
}

func (s *Squarespace) site(ctx context.Context) (*ports.SquarespaceWebsite, error) {
	if s.website != nil {
		return s.website, nil
	}
	w, err := squarespaceCall(ctx, s, "website", s.api.Website)
	if err != nil {
		return nil, err
	}
	s.website = w
	return w, nil
}

func (s *Squarespace) TokenActive(ctx context.Context) bool {
	if _, err := s.site(ctx); err != nil {
		s.log.Info().Err(err).Msg("Token inactive")
		return false
	}
	return true
}

func (s *Squarespace) currency(ctx context.Context, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	w, err := s.site(ctx)
	if err != nil {
		return "", err
	}
	return w.Currency, nil
}

func (s *Squarespace) IsPriceConverted(ctx context.Context, override string) (bool, error) {
	cur, err := s.currency(ctx, override)
	if err != nil {
		return false, err
	}
	return s.priceConverted(cur), nil
}

func (s *Squarespace) ConvertAmount(ctx context.Context, amount string, occurredAt time.Time, note, override string) (decimal.Decimal, string, error) {
	cur, err := s.currency(ctx, override)
	if err != nil {
		return decimal.Zero, "", err
	}
	return s.convert(ctx, amount, occurredAt, note, cur)
}

func (s *Squarespace) FetchPage(ctx context.Context, kind domain.ResourceKind, cursor domain.Cursor) (*domain.Page, error) {
	if cursor != "" {
		if err := s.pacer.Wait(ctx); err != nil {
			return nil, err
		}
	}

	start, end := s.Window.Start(), s.Window.End()
	var next string
	var items []any
	var err error
	switch kind {
	case domain.ResourceOrders:
		items, err = squarespaceCall(ctx, s, "list_orders", func(ctx context.Context, token string) ([]any, error) {
			var items []any
			var err error
			items, next, err = s.api.ListOrders(ctx, token, start, end, string(cursor))
			return items, err
		})
	case domain.ResourceListings:
		items, err = squarespaceCall(ctx, s, "list_products", func(ctx context.Context, token string) ([]any, error) {
			var items []any
			var err error
			items, next, err = s.api.ListProducts(ctx, token, start, end, string(cursor))
			return items, err
		})
	case domain.ResourceTransactions:
		items, err = squarespaceCall(ctx, s, "list_transactions", func(ctx context.Context, token string) ([]any, error) {
			var items []any
			var err error
			items, next, err = s.api.ListTransactions(ctx, token, string(cursor))
			return items, err
		})
	default:
		return nil, s.unsupported(kind)
	}
	if err != nil {
		return nil, err
	}
	return &domain.Page{Items: items, Next: domain.Cursor(next)}, nil
}

func (s *Squarespace) APIAvailable(ctx context.Context) bool {
	if _, err := s.site(ctx); err != nil {
		s.markUnavailable(ctx, "website", err)
		return false
	}
	return true
}
