package ports

import (
	"context"
	"time"

	shopify "github.com/bold-commerce/go-shopify/v4"
)

// CallLimit is the used/limit pair Shopify reports on every REST response
type CallLimit struct {
	Used  int
	Limit int
}

// ShopifyListQuery selects one page of a Shopify REST listing
type ShopifyListQuery struct {
	PageInfo     string
	Limit        int
	Status       string
	CreatedAtMin *time.Time
	CreatedAtMax *time.Time
	IDs          []string
}

// ShopifyOrderPage is one page of orders with the next page_info cursor
type ShopifyOrderPage struct {
	Orders       []shopify.Order
	NextPageInfo string
	CallLimit    CallLimit
}

// ShopifyProductPage is one page of products with the next page_info cursor
type ShopifyProductPage struct {
	Products     []shopify.Product
	NextPageInfo string
	CallLimit    CallLimit
}

// ShopifyAPI defines the Shopify Admin REST operations the importer uses
type ShopifyAPI interface {
	// Shop API
	GetShop(ctx context.Context, shopDomain string, accessToken string) (*shopify.Shop, CallLimit, error)

	// Order API
	ListOrders(ctx context.Context, shopDomain string, accessToken string, query ShopifyListQuery) (*ShopifyOrderPage, error)
	GetOrder(ctx context.Context, shopDomain string, accessToken string, orderID uint64) (*shopify.Order, CallLimit, error)

	// Product API
	ListProducts(ctx context.Context, shopDomain string, accessToken string, query ShopifyListQuery) (*ShopifyProductPage, error)
	GetProduct(ctx context.Context, shopDomain string, accessToken string, productID uint64) (*shopify.Product, CallLimit, error)
}
