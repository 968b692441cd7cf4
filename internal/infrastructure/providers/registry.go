package providers

import (
	"fmt"
	"sort"
	"sync"

	"commerce-import-layer/internal/domain"
	"commerce-import-layer/internal/ports"
)

// Clients bundles the vendor clients adapters are built from. A nil client leaves
// its provider unconfigured.
type Clients struct {
	Amazon      ports.AmazonAPI
	RoleAssumer ports.RoleAssumer
	Shopify     ports.ShopifyAPI
	Etsy        ports.EtsyAPI
	PayPal      ports.PayPalAPI
	Square      ports.SquareAPI
	Squarespace ports.SquarespaceAPI
	Wix         ports.WixAPI
	WooCommerce ports.WooCommerceAPI
	QuickBooks  ports.QuickBooksAPI
	Faire       ports.FaireAPI

	Refreshers map[domain.Provider]ports.TokenRefresher

	// FaireRates overrides the exchange service for Faire conversions
	FaireRates ports.ExchangeRateService
}

// Factory builds an adapter for one session
type Factory func(env Env, clients Clients) (ports.ProviderAdapter, error)

// Registry maps providers to adapter factories
type Registry struct {
	mu        sync.RWMutex
	clients   Clients
	factories map[domain.Provider]Factory
}

// NewRegistry creates a registry with every built-in provider registered
func NewRegistry(clients Clients) *Registry {
	r := &Registry{
		clients:   clients,
		factories: make(map[domain.Provider]Factory),
	}
	r.Register(domain.ProviderAmazon, newAmazon)
	r.Register(domain.ProviderShopify, newShopify)
	r.Register(domain.ProviderEtsy, newEtsy)
	r.Register(domain.ProviderPayPal, newPayPal)
	r.Register(domain.ProviderSquare, newSquare)
	r.Register(domain.ProviderSquarespace, newSquarespace)
	r.Register(domain.ProviderWix, newWix)
	r.Register(domain.ProviderWooCommerce, newWooCommerce)
	r.Register(domain.ProviderQuickBooks, newQuickBooks)
	r.Register(domain.ProviderFaire, newFaire)
	return r
}

// Register adds or replaces the factory for a provider
func (r *Registry) Register(provider domain.Provider, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[provider] = factory
}

// Providers lists registered providers in name order
func (r *Registry) Providers() []domain.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Provider, 0, len(r.factories))
	for p := range r.factories {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Build creates the adapter for env.Shop's provider
func (r *Registry) Build(env Env) (ports.ProviderAdapter, error) {
	if env.Shop == nil {
		return nil, fmt.Errorf("failed to build adapter: no shop")
	}
	r.mu.RLock()
	factory, ok := r.factories[env.Shop.Provider]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoAdapter, env.Shop.Provider)
	}
	return factory(env, r.clients)
}

func notConfigured(provider domain.Provider) error {
	return fmt.Errorf("%w: %s", domain.ErrNotConfigured, provider)
}
