package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"commerce-import-layer/internal/application"
	"commerce-import-layer/internal/config"
	"commerce-import-layer/internal/domain"
	"commerce-import-layer/internal/infrastructure/amazon"
	"commerce-import-layer/internal/infrastructure/api"
	"commerce-import-layer/internal/infrastructure/cache"
	"commerce-import-layer/internal/infrastructure/clock"
	"commerce-import-layer/internal/infrastructure/currency"
	"commerce-import-layer/internal/infrastructure/metrics"
	"commerce-import-layer/internal/infrastructure/notify"
	"commerce-import-layer/internal/infrastructure/oauth"
	"commerce-import-layer/internal/infrastructure/providers"
	"commerce-import-layer/internal/infrastructure/ratelimit"
	"commerce-import-layer/internal/infrastructure/repository"
	"commerce-import-layer/internal/infrastructure/retry"
	"commerce-import-layer/internal/infrastructure/shopify"
	"commerce-import-layer/internal/infrastructure/tokens"
	"commerce-import-layer/internal/infrastructure/woocommerce"
	"commerce-import-layer/internal/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Vendors that expect client credentials in the token request body
var paramsAuth = map[domain.Provider]bool{
	domain.ProviderEtsy:   true,
	domain.ProviderSquare: true,
	domain.ProviderWix:    true,
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zerolog.New(os.Stderr).Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger := cfg.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to MongoDB
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.Mongo.Database)
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to create indexes")
	}

	credentials := repository.NewMongoCredentialRepository(db)
	shops := repository.NewMongoShopRepository(db)
	imports := repository.NewMongoExternalImportRepository(db)

	counters := newCounterStore(cfg, logger)
	notifier := newNotifier(cfg, logger)
	if closer, ok := notifier.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	importMetrics := metrics.NewImportMetrics(prometheus.DefaultRegisterer)
	clk := clock.Real{}
	httpClient := &http.Client{Timeout: 60 * time.Second}

	registry := providers.NewRegistry(newClients(ctx, cfg, httpClient, logger))

	tracker := notify.NewLogErrorTracker(logger, importMetrics)
	service := application.NewImportService(application.ServiceDeps{
		Shops:    shops,
		Imports:  imports,
		Counters: counters,
		Tokens:   tokens.NewStore(credentials, shops, counters, clk, logger),
		Limiter:  ratelimit.NewCounterLimiter(counters, cfg.Import.RequestsPerMinute, clk, logger),
		Headers:  ratelimit.NewHeaderLimiter(clk, logger),
		Rates:    currency.NewHTTPRateService(cfg.Rates.URL, httpClient),
		Registry: registry,
		Reporter: application.NewFailureReporter(imports, tracker, notifier, clk, logger),
		Tracker:  tracker,
		Metrics:  importMetrics,
		Retry:    retry.Fixed(cfg.Import.RetryAttempts, cfg.Import.RetryInterval),
		Clock:    clk,
	}, logger)

	runner := application.NewImportRunner(service, shops, cfg.Import.Workers, logger)
	handler := api.NewImportHandler(ctx, service, runner, logger)

	if cfg.Import.HourlyInterval > 0 {
		go runSchedule(ctx, runner, cfg.Import.HourlyInterval, logger)
	}

	server := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           handler.Router(api.RouterOptions{AllowedOrigins: cfg.HTTP.AllowedOrigins}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("port", cfg.HTTP.Port).Strs("providers", providerNames(registry)).Msg("Starting import server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Failed to shut down server")
	}
	handler.Wait()
}

func newCounterStore(cfg *config.Config, logger zerolog.Logger) ports.CounterStore {
	if cfg.Redis.Addr == "" {
		logger.Warn().Msg("REDIS_ADDR not set, keeping rate-limit counters in process")
		return cache.NewInMemoryCounterStore()
	}
	store, err := cache.NewRedisCounterStore(cache.RedisConfig{
		Addr:      cfg.Redis.Addr,
		Password:  cfg.Redis.Password,
		DB:        cfg.Redis.DB,
		KeyPrefix: cfg.Redis.KeyPrefix,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	return store
}

func newNotifier(cfg *config.Config, logger zerolog.Logger) ports.NotificationSink {
	if len(cfg.Kafka.Brokers) == 0 {
		return notify.NewLogNotifier(logger)
	}
	return notify.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.NotificationTopic, logger)
}

func newClients(ctx context.Context, cfg *config.Config, httpClient *http.Client, logger zerolog.Logger) providers.Clients {
	clients := providers.Clients{
		WooCommerce: woocommerce.NewClient(httpClient, logger),
		Refreshers:  make(map[domain.Provider]ports.TokenRefresher),
	}
	if cfg.Shopify.APIKey != "" {
		clients.Shopify = shopify.NewClientWithOptions(cfg.Shopify.APIKey, cfg.Shopify.APISecret, cfg.Shopify.APIVersion, httpClient, logger)
	}
	if cfg.Rates.FaireURL != "" {
		clients.FaireRates = currency.NewHTTPRateService(cfg.Rates.FaireURL, httpClient)
	}
	for provider, c := range cfg.OAuth.Clients() {
		clients.Refreshers[provider] = oauth.NewRefresher(oauth.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			TokenURL:     c.TokenURL,
			AuthInParams: paramsAuth[provider],
		}, httpClient)
	}

	roles, err := amazon.NewRoleAssumer(ctx, amazon.RoleConfig{
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		Region:          cfg.AWS.Region,
		RoleARN:         cfg.AWS.RoleARN,
	})
	switch {
	case err == nil:
		clients.RoleAssumer = roles
	case errors.Is(err, domain.ErrNotConfigured):
		logger.Info().Msg("Amazon role not configured")
	default:
		logger.Error().Err(err).Msg("Failed to configure Amazon role")
	}
	return clients
}

// runSchedule triggers hourly imports until ctx is done
func runSchedule(ctx context.Context, runner *application.ImportRunner, interval time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := runner.RunHourly(ctx); err != nil {
				logger.Error().Err(err).Msg("Scheduled hourly import failed")
			}
		}
	}
}

func providerNames(r *providers.Registry) []string {
	var names []string
	for _, p := range r.Providers() {
		names = append(names, p.String())
	}
	return names
}
