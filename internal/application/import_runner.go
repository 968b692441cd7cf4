package application

import (
	"context"
	"fmt"

	"commerce-import-layer/internal/domain"
	"commerce-import-layer/internal/ports"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

// DefaultWorkers bounds concurrent sessions when no worker count is configured
const DefaultWorkers = 4

// importer is the part of ImportService the runner drives
type importer interface {
	Run(ctx context.Context, shopID, externalImportID string, importType domain.ImportType) domain.Result
}

// RunSummary counts session results of a batch
type RunSummary struct {
	Shops     int `json:"shops"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// ImportRunner runs sessions for many shops on a bounded worker pool
type ImportRunner struct {
	service importer
	shops   ports.ShopRepository
	workers int
	logger  zerolog.Logger
}

// NewImportRunner creates a new import runner
func NewImportRunner(service importer, shops ports.ShopRepository, workers int, logger zerolog.Logger) *ImportRunner {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &ImportRunner{
		service: service,
		shops:   shops,
		workers: workers,
		logger:  logger,
	}
}

// RunShops imports every shop concurrently. Shops not yet started when ctx is done are skipped.
func (r *ImportRunner) RunShops(ctx context.Context, shopIDs []string, importType domain.ImportType) RunSummary {
	p := pool.NewWithResults[bool]().WithMaxGoroutines(r.workers)
	for _, shopID := range shopIDs {
		p.Go(func() bool {
			if ctx.Err() != nil {
				return false
			}
			return r.service.Run(ctx, shopID, "", importType).Success
		})
	}

	summary := RunSummary{Shops: len(shopIDs)}
	for _, ok := range p.Wait() {
		if ok {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	r.logger.Info().
		Int("shops", summary.Shops).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Str("import_type", string(importType)).
		Msg("Import batch finished")
	return summary
}

// RunHourly imports every active shop with hourly windows
func (r *ImportRunner) RunHourly(ctx context.Context) (RunSummary, error) {
	shopIDs, err := r.shops.ListActiveShopIDs(ctx)
	if err != nil {
		return RunSummary{}, fmt.Errorf("failed to list active shops: %w", err)
	}
	return r.RunShops(ctx, shopIDs, domain.ImportTypeHourly), nil
}
