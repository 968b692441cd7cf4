package metrics

import (
	"time"

	"commerce-import-layer/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ImportMetrics holds the importer's Prometheus collectors
type ImportMetrics struct {
	// Import runs by outcome: success, failure, ignored, inactive, cancelled
	RunsTotal   *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec

	PagesFetchedTotal *prometheus.CounterVec
	ItemsFetchedTotal *prometheus.CounterVec

	// Escalated failures by error kind
	FailuresTotal *prometheus.CounterVec

	TokenRefreshesTotal *prometheus.CounterVec
	RetriesTotal        *prometheus.CounterVec
	RateLimitWait       prometheus.Histogram
}

// NewImportMetrics registers the collectors on reg
func NewImportMetrics(reg prometheus.Registerer) *ImportMetrics {
	factory := promauto.With(reg)
	return &ImportMetrics{
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "import_runs_total",
				Help: "Import sessions by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "import_run_duration_seconds",
				Help:    "Duration of import sessions",
				Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
			},
			[]string{"provider"},
		),
		PagesFetchedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "import_pages_fetched_total",
				Help: "Pages fetched by provider and resource",
			},
			[]string{"provider", "resource"},
		),
		ItemsFetchedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "import_items_fetched_total",
				Help: "Records fetched by provider and resource",
			},
			[]string{"provider", "resource"},
		),
		FailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "import_failures_total",
				Help: "Escalated import failures by provider and error kind",
			},
			[]string{"provider", "kind"},
		),
		TokenRefreshesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "import_token_refreshes_total",
				Help: "Token refresh attempts by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		RetriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "import_retries_total",
				Help: "Retried vendor calls by error kind",
			},
			[]string{"kind"},
		),
		RateLimitWait: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "import_rate_limit_wait_seconds",
				Help:    "Time spent waiting for a rate-limit window",
				Buckets: []float64{1, 5, 10, 30, 60},
			},
		),
	}
}

// ObserveRun records a finished session
func (m *ImportMetrics) ObserveRun(provider domain.Provider, outcome string, took time.Duration) {
	m.RunsTotal.WithLabelValues(provider.String(), outcome).Inc()
	m.RunDuration.WithLabelValues(provider.String()).Observe(took.Seconds())
}

// ObservePage records one fetched page
func (m *ImportMetrics) ObservePage(provider domain.Provider, kind domain.ResourceKind, items int) {
	m.PagesFetchedTotal.WithLabelValues(provider.String(), string(kind)).Inc()
	m.ItemsFetchedTotal.WithLabelValues(provider.String(), string(kind)).Add(float64(items))
}

// ObserveFailure records an escalated failure
func (m *ImportMetrics) ObserveFailure(provider domain.Provider, err error) {
	m.FailuresTotal.WithLabelValues(provider.String(), domain.KindOf(err).String()).Inc()
}

// ObserveRefresh matches the token store's refresh hook
func (m *ImportMetrics) ObserveRefresh(provider domain.Provider, outcome string) {
	m.TokenRefreshesTotal.WithLabelValues(provider.String(), outcome).Inc()
}

// ObserveRetry matches the retry policy's hook
func (m *ImportMetrics) ObserveRetry(_ int, err error, _ time.Duration) {
	m.RetriesTotal.WithLabelValues(domain.KindOf(err).String()).Inc()
}

// ObserveRateLimitWait matches the rate limiters' wait hook
func (m *ImportMetrics) ObserveRateLimitWait(_ string, wait time.Duration) {
	m.RateLimitWait.Observe(wait.Seconds())
}
