package application

import (
	"context"
	"sync"
	"time"

	"commerce-import-layer/internal/domain"
	"commerce-import-layer/internal/infrastructure/clock"
	"commerce-import-layer/internal/infrastructure/repository"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var testNow = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

type fakeAdapter struct {
	resources []domain.ResourceKind
	pages     map[string]*domain.Page
	errs      map[domain.ResourceKind]error
	panicOn   domain.ResourceKind
	available bool
	fetched   []string
	drains    int
}

func newFakeAdapter(resources ...domain.ResourceKind) *fakeAdapter {
	return &fakeAdapter{
		resources: resources,
		pages:     make(map[string]*domain.Page),
		errs:      make(map[domain.ResourceKind]error),
		available: true,
	}
}

func pageKey(kind domain.ResourceKind, cursor domain.Cursor) string {
	return string(kind) + "|" + string(cursor)
}

func (f *fakeAdapter) page(kind domain.ResourceKind, cursor domain.Cursor, next domain.Cursor, items ...any) {
	f.pages[pageKey(kind, cursor)] = &domain.Page{Items: items, Next: next}
}

func (f *fakeAdapter) Provider() domain.Provider { return domain.ProviderShopify }
func (f *fakeAdapter) Resources() []domain.ResourceKind { return f.resources }
func (f *fakeAdapter) TokenActive(context.Context) bool { return true }
func (f *fakeAdapter) APIAvailable(context.Context) bool {
	return f.available
}

func (f *fakeAdapter) DrainThrottle(context.Context) error {
	f.drains++
	return nil
}

func (f *fakeAdapter) IsPriceConverted(context.Context, string) (bool, error) {
	return false, nil
}

func (f *fakeAdapter) ConvertAmount(_ context.Context, amount string, _ time.Time, _ string, _ string) (decimal.Decimal, string, error) {
	d, err := decimal.NewFromString(amount)
	return d, "", err
}

func (f *fakeAdapter) FetchPage(_ context.Context, kind domain.ResourceKind, cursor domain.Cursor) (*domain.Page, error) {
	key := pageKey(kind, cursor)
	f.fetched = append(f.fetched, key)
	if kind == f.panicOn {
		panic("unexpected payload")
	}
	if err := f.errs[kind]; err != nil {
		return nil, err
	}
	if p, ok := f.pages[key]; ok {
		return p, nil
	}
	return &domain.Page{}, nil
}

type recordingSink struct {
	mu    sync.Mutex
	items map[domain.ResourceKind][]any
}

func (s *recordingSink) Handle(_ context.Context, _ *domain.Shop, kind domain.ResourceKind, items []any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.items == nil {
		s.items = make(map[domain.ResourceKind][]any)
	}
	s.items[kind] = append(s.items[kind], items...)
	return nil
}

type fakeTracker struct {
	reports []error
}

func (t *fakeTracker) Report(_ context.Context, err error, _ map[string]string) {
	t.reports = append(t.reports, err)
}

type fakeNotifier struct {
	sent []domain.Notification
}

func (n *fakeNotifier) Notify(_ context.Context, notification domain.Notification) error {
	n.sent = append(n.sent, notification)
	return nil
}

type sessionFixture struct {
	store    *repository.MemoryStore
	adapter  *fakeAdapter
	sink     *recordingSink
	tracker  *fakeTracker
	notifier *fakeNotifier
	clock    *clock.Fake
	shop     *domain.Shop
	account  *domain.Account
}

func newSessionFixture() *sessionFixture {
	f := &sessionFixture{
		store:    repository.NewMemoryStore(),
		adapter:  newFakeAdapter(domain.ResourceOrders),
		sink:     &recordingSink{},
		tracker:  &fakeTracker{},
		notifier: &fakeNotifier{},
		clock:    clock.NewFake(testNow),
		shop: &domain.Shop{
			ID:        "shop-1",
			Name:      "Corner Store",
			Provider:  domain.ProviderShopify,
			AccountID: "acc-1",
			Active:    true,
		},
		account: &domain.Account{
			ID:            "acc-1",
			CurrencyCode:  "USD",
			TimeZone:      "UTC",
			PrimaryUserID: "user-1",
		},
	}
	f.store.PutShop(f.shop)
	f.store.PutAccount(f.account)
	f.store.PutExternalImport(&domain.ExternalImport{ID: "ext-1", ShopID: "shop-1"})
	return f
}

func (f *sessionFixture) reporter() *FailureReporter {
	return NewFailureReporter(f.store, f.tracker, f.notifier, f.clock, zerolog.Nop())
}

func (f *sessionFixture) session(ext *domain.ExternalImport) *ImportSession {
	return &ImportSession{
		Shop:           f.shop,
		Account:        f.account,
		ExternalImport: ext,
		adapter:        f.adapter,
		notes:          &domain.ConversionNotes{},
		imports:        f.store,
		sink:           f.sink,
		reporter:       f.reporter(),
		clock:          f.clock,
		logger:         zerolog.Nop(),
	}
}

func (f *sessionFixture) storedImport() *domain.ExternalImport {
	ext, _ := f.store.Get(context.Background(), "ext-1")
	return ext
}
