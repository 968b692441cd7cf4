package providers

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"commerce-import-layer/internal/domain"
	"commerce-import-layer/internal/infrastructure/cache"
	"commerce-import-layer/internal/infrastructure/clock"
	"commerce-import-layer/internal/infrastructure/currency"
	"commerce-import-layer/internal/infrastructure/ratelimit"
	"commerce-import-layer/internal/infrastructure/repository"
	"commerce-import-layer/internal/infrastructure/retry"
	"commerce-import-layer/internal/infrastructure/tokens"
	"commerce-import-layer/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var testNow = time.Date(2024, 6, 3, 12, 0, 30, 0, time.UTC)

type fakeRates struct {
	factor int64
}

func (f fakeRates) Exchange(_ context.Context, amount decimal.Decimal, date time.Time, from, to string) (domain.Exchange, error) {
	return domain.Exchange{
		ConvertedAmount: amount.Mul(decimal.NewFromInt(f.factor)),
		ConversionNote:  fmt.Sprintf("%s %s to %s on %s", amount, from, to, date.Format("2006-01-02")),
	}, nil
}

type fakeTracker struct {
	mu   sync.Mutex
	errs []error
}

func (f *fakeTracker) Report(_ context.Context, err error, _ map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, err)
}

func (f *fakeTracker) reported() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.errs)
}

type fixture struct {
	mem     *repository.MemoryStore
	clock   *clock.Fake
	notes   *domain.ConversionNotes
	tracker *fakeTracker
	env     Env
}

func newFixture(t *testing.T, provider domain.Provider, cred domain.Credential) *fixture {
	t.Helper()
	mem := repository.NewMemoryStore()
	shop := &domain.Shop{
		ID:          "shop-1",
		Name:        "Corner Store",
		Provider:    provider,
		AccountID:   "acc-1",
		ExternalUID: "corner.example.com",
		Active:      true,
	}
	account := &domain.Account{ID: "acc-1", CurrencyCode: "USD", TimeZone: "UTC", PrimaryUserID: "user-1"}
	ext := &domain.ExternalImport{ID: "ext-1", ShopID: shop.ID}
	cred.ShopID = shop.ID
	mem.PutShop(shop)
	mem.PutAccount(account)
	mem.PutExternalImport(ext)
	mem.PutCredential(&cred)

	clk := clock.NewFake(testNow)
	counters := cache.NewInMemoryCounterStoreWithClock(clk.Now)
	notes := &domain.ConversionNotes{}
	tracker := &fakeTracker{}
	logger := zerolog.Nop()
	window, err := domain.ResolveWindow(clk.Now(), account, ext, domain.ImportTypeFull)
	if err != nil {
		t.Fatal(err)
	}

	return &fixture{
		mem:     mem,
		clock:   clk,
		notes:   notes,
		tracker: tracker,
		env: Env{
			Shop:           shop,
			Account:        account,
			ExternalImport: ext,
			Window:         window,
			Tokens:         tokens.NewStore(mem, mem, counters, clk, logger),
			Counters:       counters,
			Limiter:        ratelimit.NewCounterLimiter(counters, ratelimit.DefaultRequestsPerMinute, clk, logger),
			Headers:        ratelimit.NewHeaderLimiter(clk, logger),
			Converter:      currency.NewConverter(fakeRates{factor: 2}, account.CurrencyCode, notes, logger),
			Imports:        mem,
			Shops:          mem,
			Tracker:        tracker,
			Retry:          retry.Default(),
			Clock:          clk,
			Logger:         logger,
		},
	}
}

func (f *fixture) storedImport(t *testing.T) *domain.ExternalImport {
	t.Helper()
	ext, err := f.mem.Get(context.Background(), "ext-1")
	if err != nil {
		t.Fatal(err)
	}
	return ext
}

func (f *fixture) storedCredential(t *testing.T) *domain.Credential {
	t.Helper()
	c, err := f.mem.Load(context.Background(), "shop-1")
	if err != nil {
		t.Fatal(err)
	}
	return c
}

type fakeRefresher struct {
	mu    sync.Mutex
	calls int
	grant *domain.TokenGrant
	err   error
}

func (f *fakeRefresher) RefreshToken(context.Context, string) (*domain.TokenGrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	g := *f.grant
	return &g, nil
}

// Shopify

type fakeShopify struct {
	getShop    func(token string) (*goshopify.Shop, ports.CallLimit, error)
	listOrders func(q ports.ShopifyListQuery) (*ports.ShopifyOrderPage, error)
}

func (f *fakeShopify) GetShop(_ context.Context, _ string, token string) (*goshopify.Shop, ports.CallLimit, error) {
	return f.getShop(token)
}

func (f *fakeShopify) ListOrders(_ context.Context, _ string, _ string, q ports.ShopifyListQuery) (*ports.ShopifyOrderPage, error) {
	return f.listOrders(q)
}

func (f *fakeShopify) GetOrder(context.Context, string, string, uint64) (*goshopify.Order, ports.CallLimit, error) {
	return nil, ports.CallLimit{}, nil
}

func (f *fakeShopify) ListProducts(context.Context, string, string, ports.ShopifyListQuery) (*ports.ShopifyProductPage, error) {
	return &ports.ShopifyProductPage{}, nil
}

func (f *fakeShopify) GetProduct(context.Context, string, string, uint64) (*goshopify.Product, ports.CallLimit, error) {
	return nil, ports.CallLimit{}, nil
}

// Etsy

type fakeEtsy struct {
	mu         sync.Mutex
	shop       *ports.EtsyShop
	receipts   func(token string, offset int) ([]any, error)
	listings   func(state string, offset int) ([]any, error)
	ping       func(token string) error
	grant      *domain.TokenGrant
	tokensSeen []string
}

func (f *fakeEtsy) GetShopByOwner(context.Context, string, string) (*ports.EtsyShop, error) {
	return f.shop, nil
}

func (f *fakeEtsy) Ping(_ context.Context, token string) error {
	if f.ping == nil {
		return nil
	}
	return f.ping(token)
}

func (f *fakeEtsy) GetListingsByShop(_ context.Context, _ string, _ int64, state string, _ int, offset int) ([]any, error) {
	return f.listings(state, offset)
}

func (f *fakeEtsy) GetShopReceipts(_ context.Context, token string, _ int64, _, _ time.Time, _ int, offset int) ([]any, error) {
	f.mu.Lock()
	f.tokensSeen = append(f.tokensSeen, token)
	f.mu.Unlock()
	return f.receipts(token, offset)
}

func (f *fakeEtsy) GetLedgerEntries(context.Context, string, int64, time.Time, time.Time, int, int) ([]any, error) {
	return nil, nil
}

func (f *fakeEtsy) ExchangeLegacyToken(context.Context, string) (*domain.TokenGrant, error) {
	return f.grant, nil
}

// WooCommerce

type fakeWoo struct {
	mu     sync.Mutex
	status *ports.WooSystemStatus
	list   func(endpoint string, params url.Values) (*ports.WooListResponse, error)
	calls  int
	params []url.Values
}

func (f *fakeWoo) SystemStatus(context.Context, ports.WooCredentials) (*ports.WooSystemStatus, error) {
	return f.status, nil
}

func (f *fakeWoo) List(_ context.Context, _ ports.WooCredentials, endpoint string, params url.Values) (*ports.WooListResponse, error) {
	f.mu.Lock()
	f.calls++
	f.params = append(f.params, params)
	f.mu.Unlock()
	return f.list(endpoint, params)
}

// Amazon

type fakeAmazon struct {
	mu             sync.Mutex
	participations []ports.AmazonMarketplace
	orders         func(session ports.AmazonSession) ([]any, string, error)
	statuses       []string
	rows           []map[string]string
	reportPolls    int
}

func (f *fakeAmazon) MarketplaceParticipations(context.Context, ports.AmazonSession) ([]ports.AmazonMarketplace, error) {
	return f.participations, nil
}

func (f *fakeAmazon) GetOrders(_ context.Context, s ports.AmazonSession, _ []string, _, _ time.Time, _ string) ([]any, string, error) {
	return f.orders(s)
}

func (f *fakeAmazon) ListFinancialEvents(context.Context, ports.AmazonSession, time.Time, time.Time, string) ([]any, string, error) {
	return nil, "", nil
}

func (f *fakeAmazon) CreateReport(context.Context, ports.AmazonSession, ports.AmazonReportRequest) (string, error) {
	return "report-1", nil
}

func (f *fakeAmazon) GetReport(context.Context, ports.AmazonSession, string) (*ports.AmazonReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status := f.statuses[f.reportPolls]
	if f.reportPolls < len(f.statuses)-1 {
		f.reportPolls++
	}
	return &ports.AmazonReport{ProcessingStatus: status, DocumentID: "doc-1"}, nil
}

func (f *fakeAmazon) DownloadReport(context.Context, ports.AmazonSession, string) ([]map[string]string, error) {
	return f.rows, nil
}

type fakeRoles struct {
	mu    sync.Mutex
	clock *clock.Fake
	calls int
}

func (f *fakeRoles) AssumeRole(context.Context) (*ports.RoleCredentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return &ports.RoleCredentials{
		AccessKeyID:     fmt.Sprintf("AKIA%d", f.calls),
		SecretAccessKey: "secret",
		SessionToken:    "session",
		Expires:         f.clock.Now().Add(time.Hour),
	}, nil
}
