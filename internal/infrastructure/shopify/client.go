package shopify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"commerce-import-layer/internal/domain"
	"commerce-import-layer/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

// DefaultAPIVersion is the Admin REST version requests are pinned to
const DefaultAPIVersion = "2024-07"

type client struct {
	app        goshopify.App
	apiVersion string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a new Shopify client adapter
func NewClient(apiKey, apiSecret string) ports.ShopifyAPI {
	return NewClientWithOptions(apiKey, apiSecret, DefaultAPIVersion, nil, zerolog.Nop())
}

// NewClientWithOptions creates a client pinned to an API version. A nil httpClient
// uses the library default.
func NewClientWithOptions(apiKey, apiSecret, apiVersion string, httpClient *http.Client, logger zerolog.Logger) ports.ShopifyAPI {
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	return &client{
		app: goshopify.App{
			ApiKey:    apiKey,
			ApiSecret: apiSecret,
		},
		apiVersion: apiVersion,
		httpClient: httpClient,
		logger:     logger,
	}
}

// createClient is a helper to create a goshopify client
func (c *client) createClient(shopDomain string, accessToken string) (*goshopify.Client, error) {
	opts := []goshopify.Option{goshopify.WithVersion(c.apiVersion)}
	if c.httpClient != nil {
		opts = append(opts, goshopify.WithHTTPClient(c.httpClient))
	}
	client, err := goshopify.NewClient(c.app, shopDomain, accessToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

// listOptions is encoded into the query string by the library
type listOptions struct {
	PageInfo     string     `url:"page_info,omitempty"`
	Limit        int        `url:"limit,omitempty"`
	Status       string     `url:"status,omitempty"`
	CreatedAtMin *time.Time `url:"created_at_min,omitempty"`
	CreatedAtMax *time.Time `url:"created_at_max,omitempty"`
	IDs          string     `url:"ids,omitempty"`
}

func toListOptions(q ports.ShopifyListQuery) listOptions {
	return listOptions{
		PageInfo:     q.PageInfo,
		Limit:        q.Limit,
		Status:       q.Status,
		CreatedAtMin: q.CreatedAtMin,
		CreatedAtMax: q.CreatedAtMax,
		IDs:          strings.Join(q.IDs, ","),
	}
}

func callLimit(client *goshopify.Client) ports.CallLimit {
	return ports.CallLimit{Used: client.RateLimits.RequestCount, Limit: client.RateLimits.BucketSize}
}

func nextPageInfo(p *goshopify.Pagination) string {
	if p == nil || p.NextPageOptions == nil {
		return ""
	}
	return p.NextPageOptions.PageInfo
}

// translateError turns library errors into status-bearing errors the importer classifies
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}
	var rle goshopify.RateLimitError
	if errors.As(err, &rle) {
		return domain.NewImportError(domain.KindRateLimited, domain.ProviderShopify, op,
			domain.WithStatus(http.StatusTooManyRequests),
			domain.WithRetryAfter(time.Duration(rle.RetryAfter)*time.Second),
			domain.WithCause(err))
	}
	var re goshopify.ResponseError
	if errors.As(err, &re) {
		httpErr := domain.NewHTTPError(re.Status, "", re.Message)
		httpErr.Body = strings.Join(re.Errors, "; ")
		return fmt.Errorf("failed to %s: %w", op, httpErr)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// Shop API

func (c *client) GetShop(ctx context.Context, shopDomain string, accessToken string) (*goshopify.Shop, ports.CallLimit, error) {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, ports.CallLimit{}, err
	}
	shop, err := client.Shop.Get(ctx, nil)
	if err != nil {
		return nil, callLimit(client), translateError("get shop", err)
	}
	return shop, callLimit(client), nil
}

// Order API

func (c *client) ListOrders(ctx context.Context, shopDomain string, accessToken string, query ports.ShopifyListQuery) (*ports.ShopifyOrderPage, error) {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	orders, pagination, err := client.Order.ListWithPagination(ctx, toListOptions(query))
	if err != nil {
		return &ports.ShopifyOrderPage{CallLimit: callLimit(client)}, translateError("list orders", err)
	}
	c.logger.Debug().Str("shop", shopDomain).Int("count", len(orders)).Msg("Listed orders")
	return &ports.ShopifyOrderPage{
		Orders:       orders,
		NextPageInfo: nextPageInfo(pagination),
		CallLimit:    callLimit(client),
	}, nil
}

func (c *client) GetOrder(ctx context.Context, shopDomain string, accessToken string, orderID uint64) (*goshopify.Order, ports.CallLimit, error) {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, ports.CallLimit{}, err
	}
	order, err := client.Order.Get(ctx, orderID, nil)
	if err != nil {
		return nil, callLimit(client), translateError("get order", err)
	}
	return order, callLimit(client), nil
}

// Product API

func (c *client) ListProducts(ctx context.Context, shopDomain string, accessToken string, query ports.ShopifyListQuery) (*ports.ShopifyProductPage, error) {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	products, pagination, err := client.Product.ListWithPagination(ctx, toListOptions(query))
	if err != nil {
		return &ports.ShopifyProductPage{CallLimit: callLimit(client)}, translateError("list products", err)
	}
	c.logger.Debug().Str("shop", shopDomain).Int("count", len(products)).Msg("Listed products")
	return &ports.ShopifyProductPage{
		Products:     products,
		NextPageInfo: nextPageInfo(pagination),
		CallLimit:    callLimit(client),
	}, nil
}

func (c *client) GetProduct(ctx context.Context, shopDomain string, accessToken string, productID uint64) (*goshopify.Product, ports.CallLimit, error) {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, ports.CallLimit{}, err
	}
	product, err := client.Product.Get(ctx, productID, nil)
	if err != nil {
		return nil, callLimit(client), translateError("get product", err)
	}
	return product, callLimit(client), nil
}
