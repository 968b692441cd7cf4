package application

import (
	"context"
	"testing"

	"commerce-import-layer/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportSession_DrainsEveryPage(t *testing.T) {
	f := newSessionFixture()
	f.adapter.page(domain.ResourceOrders, "", "c1", "A", "B")
	f.adapter.page(domain.ResourceOrders, "c1", "", "C")

	result := f.session(f.storedImport()).Run(context.Background())

	assert.True(t, result.Success)
	assert.Equal(t, []any{"A", "B", "C"}, f.sink.items[domain.ResourceOrders])
	assert.Equal(t, []string{"orders|", "orders|c1"}, f.adapter.fetched)
	assert.Equal(t, 2, f.adapter.drains)

	ext := f.storedImport()
	assert.Equal(t, 3, ext.ProcessedItems)
	require.NotNil(t, ext.FinishedAt)
	assert.Equal(t, testNow, *ext.FinishedAt)
	assert.Nil(t, ext.FailedAt)
}

func TestImportSession_ResourceFilter(t *testing.T) {
	f := newSessionFixture()
	f.adapter.resources = []domain.ResourceKind{domain.ResourceOrders, domain.ResourceListings}
	f.adapter.page(domain.ResourceListings, "", "", "L1")

	ext := f.storedImport()
	ext.Resources = []domain.ResourceKind{domain.ResourceListings}
	result := f.session(ext).Run(context.Background())

	assert.True(t, result.Success)
	assert.Equal(t, []string{"listings|"}, f.adapter.fetched)
}

func TestImportSession_ReturnsConversionNotes(t *testing.T) {
	f := newSessionFixture()
	s := f.session(nil)
	s.Notes().Append("Order #1001", "100 EUR converted to 108.50 USD")

	result := s.Run(context.Background())

	assert.True(t, result.Success)
	assert.Equal(t, []string{"Order #1001: 100 EUR converted to 108.50 USD"}, result.ConversionNotes)
}

func TestImportSession_IgnorableFailureIsNotStamped(t *testing.T) {
	f := newSessionFixture()
	f.adapter.errs[domain.ResourceOrders] = domain.NewImportError(domain.KindAuthExpired, domain.ProviderAmazon, "get_orders",
		domain.WithStatus(403))

	result := f.session(f.storedImport()).Run(context.Background())

	assert.False(t, result.Success)
	assert.Nil(t, f.storedImport().FailedAt)
	assert.Empty(t, f.tracker.reports)
	assert.Empty(t, f.notifier.sent)
}

func TestImportSession_FailureIsStampedAndNotified(t *testing.T) {
	f := newSessionFixture()
	failure := domain.NewImportError(domain.KindTransientUpstream, domain.ProviderShopify, "list_orders",
		domain.WithStatus(502))
	f.adapter.errs[domain.ResourceOrders] = failure

	result := f.session(f.storedImport()).Run(context.Background())

	assert.False(t, result.Success)
	ext := f.storedImport()
	require.NotNil(t, ext.FailedAt)
	assert.Equal(t, testNow, *ext.FailedAt)
	require.NotNil(t, ext.ErrorMessages)
	assert.Equal(t, failure.Error(), ext.ErrorMessages.Message)
	assert.NotEmpty(t, ext.ErrorMessages.Backtrace)

	require.Len(t, f.tracker.reports, 1)
	require.Len(t, f.notifier.sent, 1)
	n := f.notifier.sent[0]
	assert.Equal(t, "Your orders import for Corner Store (shopify) failed.", n.Message)
	assert.Equal(t, "/shops/shop-1/external_imports", n.Link)
	assert.Equal(t, "View imports", n.LinkText)
	assert.Equal(t, "user-1", n.UserID)
	assert.Equal(t, "acc-1", n.AccountID)
}

func TestImportSession_RecoversPanics(t *testing.T) {
	f := newSessionFixture()
	f.adapter.panicOn = domain.ResourceOrders

	var result domain.Result
	assert.NotPanics(t, func() {
		result = f.session(f.storedImport()).Run(context.Background())
	})

	assert.False(t, result.Success)
	ext := f.storedImport()
	require.NotNil(t, ext.ErrorMessages)
	assert.Contains(t, ext.ErrorMessages.Message, "import panicked: unexpected payload")
	assert.Len(t, f.notifier.sent, 1)
}

func TestImportSession_UnavailableSkipsFetching(t *testing.T) {
	f := newSessionFixture()
	f.adapter.available = false

	result := f.session(f.storedImport()).Run(context.Background())

	assert.False(t, result.Success)
	assert.Empty(t, f.adapter.fetched)
	assert.Nil(t, f.storedImport().FinishedAt)
}

func TestImportSession_CancelledBetweenPages(t *testing.T) {
	f := newSessionFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := f.session(f.storedImport()).Run(ctx)

	assert.False(t, result.Success)
	assert.Empty(t, f.adapter.fetched)
	assert.Nil(t, f.storedImport().FailedAt)
	assert.Empty(t, f.notifier.sent)
}
