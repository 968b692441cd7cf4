package application

import (
	"context"
	"fmt"

	"commerce-import-layer/internal/domain"
	"commerce-import-layer/internal/infrastructure/clock"
	"commerce-import-layer/internal/infrastructure/currency"
	"commerce-import-layer/internal/infrastructure/metrics"
	"commerce-import-layer/internal/infrastructure/providers"
	"commerce-import-layer/internal/infrastructure/ratelimit"
	"commerce-import-layer/internal/infrastructure/retry"
	"commerce-import-layer/internal/infrastructure/tokens"
	"commerce-import-layer/internal/ports"

	"github.com/rs/zerolog"
)

// ServiceDeps are the collaborators shared by every session the service starts
type ServiceDeps struct {
	Shops    ports.ShopRepository
	Imports  ports.ExternalImportRepository
	Counters ports.CounterStore
	Tokens   *tokens.Store
	Limiter  *ratelimit.CounterLimiter
	Headers  *ratelimit.HeaderLimiter
	Rates    ports.ExchangeRateService
	Registry *providers.Registry
	Sink     ports.RecordSink
	Reporter *FailureReporter
	Tracker  ports.ErrorTracker
	Metrics  *metrics.ImportMetrics // Optional
	Retry    retry.Policy           // Zero value uses retry.Default()
	Clock    clock.Clock
}

// ImportService builds and runs import sessions
type ImportService struct {
	deps   ServiceDeps
	logger zerolog.Logger
}

// NewImportService creates a new import service and hooks metrics into the shared components
func NewImportService(deps ServiceDeps, logger zerolog.Logger) *ImportService {
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	if deps.Retry.MaxAttempts == 0 {
		deps.Retry = retry.Default()
	}
	if deps.Sink == nil {
		deps.Sink = NewLoggingRecordSink(logger)
	}
	if deps.Reporter == nil {
		deps.Reporter = NewFailureReporter(deps.Imports, deps.Tracker, nil, deps.Clock, logger)
	}
	if m := deps.Metrics; m != nil {
		deps.Retry.OnRetry = m.ObserveRetry
		if deps.Tokens != nil {
			deps.Tokens.OnRefresh(m.ObserveRefresh)
		}
		if deps.Limiter != nil {
			deps.Limiter.OnWait(m.ObserveRateLimitWait)
		}
		if deps.Headers != nil {
			deps.Headers.OnWait(m.ObserveRateLimitWait)
		}
	}
	return &ImportService{deps: deps, logger: logger}
}

// Session prepares an import for shopID. An empty externalImportID runs a scheduled import.
// Once the shop, account and external import are loaded, setup failures are reported
// like any other import failure.
func (s *ImportService) Session(ctx context.Context, shopID, externalImportID string, importType domain.ImportType) (*ImportSession, error) {
	shop, err := s.deps.Shops.GetShop(ctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}
	if shop == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrShopNotFound, shopID)
	}
	if !shop.Active {
		return nil, fmt.Errorf("%w: %s", domain.ErrShopInactive, shopID)
	}

	account, err := s.deps.Shops.GetAccount(ctx, shop.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, shop.AccountID)
	}

	var ext *domain.ExternalImport
	if externalImportID != "" {
		ext, err = s.deps.Imports.Get(ctx, externalImportID)
		if err != nil {
			return nil, fmt.Errorf("failed to get external import: %w", err)
		}
		if ext == nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrImportNotFound, externalImportID)
		}
	}

	failed := func(err error) (*ImportSession, error) {
		s.deps.Reporter.Handle(ctx, Failure{Shop: shop, Account: account, ExternalImport: ext, Context: "data", Err: err})
		return nil, err
	}

	window, err := domain.ResolveWindow(s.deps.Clock.Now(), account, ext, importType)
	if err != nil {
		return failed(err)
	}

	logger := s.logger.With().
		Str("provider", shop.Provider.String()).
		Str("shop", shop.ID).
		Logger()

	notes := &domain.ConversionNotes{}
	adapter, err := s.deps.Registry.Build(providers.Env{
		Shop:           shop,
		Account:        account,
		ExternalImport: ext,
		Window:         window,
		Tokens:         s.deps.Tokens,
		Counters:       s.deps.Counters,
		Limiter:        s.deps.Limiter,
		Headers:        s.deps.Headers,
		Converter:      currency.NewConverter(s.deps.Rates, account.CurrencyCode, notes, logger),
		Imports:        s.deps.Imports,
		Shops:          s.deps.Shops,
		Tracker:        s.deps.Tracker,
		Retry:          s.deps.Retry,
		Clock:          s.deps.Clock,
		Logger:         logger,
	})
	if err != nil {
		return failed(fmt.Errorf("failed to build adapter: %w", err))
	}

	return &ImportSession{
		Shop:           shop,
		Account:        account,
		ExternalImport: ext,
		Window:         window,
		adapter:        adapter,
		notes:          notes,
		imports:        s.deps.Imports,
		sink:           s.deps.Sink,
		reporter:       s.deps.Reporter,
		metrics:        s.deps.Metrics,
		clock:          s.deps.Clock,
		logger:         logger,
	}, nil
}

// Run prepares and runs one import. Setup failures yield an unsuccessful result.
func (s *ImportService) Run(ctx context.Context, shopID, externalImportID string, importType domain.ImportType) domain.Result {
	session, err := s.Session(ctx, shopID, externalImportID, importType)
	if err != nil {
		s.logger.Error().Err(err).Str("shop", shopID).Str("external_import", externalImportID).Msg("Failed to start import")
		return domain.Result{Success: false, ConversionNotes: []string{}}
	}
	return session.Run(ctx)
}
