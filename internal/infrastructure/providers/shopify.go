package providers

import (
	"context"
	"time"

	"commerce-import-layer/internal/domain"
	"commerce-import-layer/internal/infrastructure/ratelimit"
	"commerce-import-layer/internal/infrastructure/retry"
	"commerce-import-layer/internal/ports"

	"github.com/shopspring/decimal"
)

const shopifyPageSize = 250

// Shopify imports from the Admin REST API. Its token is static and its rate limit is
// read from the call-limit header of every response.
type Shopify struct {
	base
	api ports.ShopifyAPI
}

func newShopify(env Env, clients Clients) (ports.ProviderAdapter, error) {
	if clients.Shopify == nil {
		return nil, notConfigured(domain.ProviderShopify)
	}
	if env.Headers == nil {
		env.Headers = ratelimit.NewHeaderLimiter(env.Clock, env.Logger)
	}
	return &Shopify{base: newBase(env, domain.ProviderShopify), api: clients.Shopify}, nil
}

func (s *Shopify) Resources() []domain.ResourceKind {
	return []domain.ResourceKind{domain.ResourceListings, domain.ResourceOrders}
}

func (s *Shopify) shopDomain() string {
	return s.Shop.ExternalUID
}

func (s *Shopify) observe(limit ports.CallLimit) {
	s.Headers.Observe(s.Shop.ID, ratelimit.Quota{Used: limit.Used, Limit: limit.Limit})
}

func (s *Shopify) shop(ctx context.Context) (string, error) {
	cred, err := s.credential(ctx)
	if err != nil {
		return "", err
	}
	shop, limit, err := s.api.GetShop(ctx, s.shopDomain(), cred.Token)
	s.observe(limit)
	if err != nil {
		return "", s.classify("get_shop", err)
	}
	return shop.Currency, nil
}

// TokenActive treats 401 and 404 as a gone shop. Other HTTP failures keep the shop;
// failures without a status are reported and keep the shop too.
func (s *Shopify) TokenActive(ctx context.Context) bool {
	_, err := s.shop(ctx)
	switch {
	case err == nil:
		return true
	case domain.TreatAsInactive(err):
		s.log.Info().Err(err).Msg("Token inactive")
		return false
	case domain.StatusOf(err) != 0:
		s.log.Warn().Err(err).Msg("Shop lookup failed, keeping token active")
		return true
	default:
		s.report(ctx, err)
		return true
	}
}

func (s *Shopify) currency(ctx context.Context) (string, error) {
	return s.cachedCurrency(ctx, s.shop)
}

func (s *Shopify) IsPriceConverted(ctx context.Context, override string) (bool, error) {
	if override != "" {
		return s.priceConverted(override), nil
	}
	cur, err := s.currency(ctx)
	if err != nil {
		return false, err
	}
	return s.priceConverted(cur), nil
}

func (s *Shopify) ConvertAmount(ctx context.Context, amount string, occurredAt time.Time, note, override string) (decimal.Decimal, string, error) {
	cur := override
	if cur == "" {
		var err error
		if cur, err = s.currency(ctx); err != nil {
			return decimal.Zero, "", err
		}
	}
	return s.convert(ctx, amount, occurredAt, note, cur)
}

func (s *Shopify) query(cursor domain.Cursor) ports.ShopifyListQuery {
	q := ports.ShopifyListQuery{PageInfo: string(cursor), Limit: shopifyPageSize}
	// page_info requests reject every filter but limit
	if cursor != "" {
		return q
	}
	start, end := s.Window.Start(), s.Window.End()
	q.Status = "any"
	q.CreatedAtMin = &start
	q.CreatedAtMax = &end
	q.IDs = s.resourceIDs()
	return q
}

func (s *Shopify) FetchPage(ctx context.Context, kind domain.ResourceKind, cursor domain.Cursor) (*domain.Page, error) {
	cred, err := s.credential(ctx)
	if err != nil {
		return nil, err
	}

	switch kind {
	case domain.ResourceOrders:
		q := s.query(cursor)
		res, err := retry.Do(ctx, s.Retry, func(ctx context.Context) (*ports.ShopifyOrderPage, error) {
			page, err := s.api.ListOrders(ctx, s.shopDomain(), cred.Token, q)
			if page != nil {
				s.observe(page.CallLimit)
			}
			return page, s.classify("list_orders", err)
		})
		if err != nil {
			return nil, err
		}
		items := make([]any, 0, len(res.Orders))
		for _, o := range res.Orders {
			items = append(items, o)
		}
		return &domain.Page{Items: items, Next: domain.Cursor(res.NextPageInfo)}, nil

	case domain.ResourceListings:
		q := ports.ShopifyListQuery{PageInfo: string(cursor), Limit: shopifyPageSize}
		res, err := retry.Do(ctx, s.Retry, func(ctx context.Context) (*ports.ShopifyProductPage, error) {
			page, err := s.api.ListProducts(ctx, s.shopDomain(), cred.Token, q)
			if page != nil {
				s.observe(page.CallLimit)
			}
			return page, s.classify("list_products", err)
		})
		if err != nil {
			return nil, err
		}
		items := make([]any, 0, len(res.Products))
		for _, p := range res.Products {
			items = append(items, p)
		}
		return &domain.Page{Items: items, Next: domain.Cursor(res.NextPageInfo)}, nil
	}
	return nil, s.unsupported(kind)
}

// APIAvailable pings the shop before an import. Any failure stamps the import.
func (s *Shopify) APIAvailable(ctx context.Context) bool {
	if _, err := s.shop(ctx); err != nil {
		s.markUnavailable(ctx, "get_shop", err)
		return false
	}
	return true
}

// DrainThrottle waits while the last observed call limit is too close to the bucket size
func (s *Shopify) DrainThrottle(ctx context.Context) error {
	return s.Headers.Drain(ctx, s.Shop.ID, func(ctx context.Context) (ratelimit.Quota, error) {
		cred, err := s.credential(ctx)
		if err != nil {
			return ratelimit.Quota{}, err
		}
		_, limit, err := s.api.GetShop(ctx, s.shopDomain(), cred.Token)
		if err != nil {
			return ratelimit.Quota{}, s.classify("get_shop", err)
		}
		return ratelimit.Quota{Used: limit.Used, Limit: limit.Limit}, nil
	})
}
