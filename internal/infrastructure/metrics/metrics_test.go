package metrics

import (
	"errors"
	"testing"
	"time"

	"commerce-import-layer/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestImportMetrics(t *testing.T) {
	m := NewImportMetrics(prometheus.NewRegistry())

	m.ObserveRun(domain.ProviderEtsy, "success", 3*time.Second)
	m.ObservePage(domain.ProviderEtsy, domain.ResourceOrders, 25)
	m.ObservePage(domain.ProviderEtsy, domain.ResourceOrders, 5)
	m.ObserveFailure(domain.ProviderWix, domain.NewImportError(domain.KindRateLimited, domain.ProviderWix, "query_orders"))
	m.ObserveRefresh(domain.ProviderWix, "dead")
	m.ObserveRetry(1, errors.New("dial tcp"), time.Minute)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("etsy", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PagesFetchedTotal.WithLabelValues("etsy", "orders")))
	assert.Equal(t, 30.0, testutil.ToFloat64(m.ItemsFetchedTotal.WithLabelValues("etsy", "orders")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FailuresTotal.WithLabelValues("wix", "rate_limited")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokenRefreshesTotal.WithLabelValues("wix", "dead")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RetriesTotal.WithLabelValues("unclassified")))
}
