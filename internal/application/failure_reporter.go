package application

import (
	"context"
	"fmt"
	"runtime/debug"

	"commerce-import-layer/internal/domain"
	"commerce-import-layer/internal/infrastructure/clock"
	"commerce-import-layer/internal/ports"

	"github.com/rs/zerolog"
)

// Failure is a terminal error that reached the session boundary
type Failure struct {
	Shop           *domain.Shop
	Account        *domain.Account
	ExternalImport *domain.ExternalImport
	Context        string // What was being imported, e.g. "orders"
	Err            error
	Backtrace      string
}

// FailureReporter decides whether a terminal failure is suppressed or escalated
type FailureReporter struct {
	imports  ports.ExternalImportRepository
	tracker  ports.ErrorTracker
	notifier ports.NotificationSink
	clock    clock.Clock
	logger   zerolog.Logger
}

// NewFailureReporter creates a new failure reporter. tracker and notifier may be nil.
func NewFailureReporter(
	imports ports.ExternalImportRepository,
	tracker ports.ErrorTracker,
	notifier ports.NotificationSink,
	clk clock.Clock,
	logger zerolog.Logger,
) *FailureReporter {
	if clk == nil {
		clk = clock.Real{}
	}
	return &FailureReporter{
		imports:  imports,
		tracker:  tracker,
		notifier: notifier,
		clock:    clk,
		logger:   logger,
	}
}

// Handle reports f and returns true when it was escalated. Ignorable failures are only logged.
func (r *FailureReporter) Handle(ctx context.Context, f Failure) bool {
	log := r.logger.With().
		Str("provider", f.Shop.Provider.String()).
		Str("shop", f.Shop.ID).
		Str("kind", domain.KindOf(f.Err).String()).
		Logger()

	if domain.IsIgnorable(f.Err) {
		log.Info().Err(f.Err).Msg("Ignoring expired external grant")
		return false
	}
	log.Error().Err(f.Err).Str("context", f.Context).Msg("Import failed")

	// The caller may have been cancelled; the failure must still be recorded.
	ctx = context.WithoutCancel(ctx)

	if f.ExternalImport != nil && r.imports != nil {
		backtrace := f.Backtrace
		if backtrace == "" {
			backtrace = string(debug.Stack())
		}
		detail := domain.ErrorDetail{Message: f.Err.Error(), Backtrace: backtrace}
		if err := r.imports.MarkFailed(ctx, f.ExternalImport.ID, r.clock.Now(), detail); err != nil {
			log.Error().Err(err).Str("external_import", f.ExternalImport.ID).Msg("Failed to stamp external import")
		}
	}

	if r.tracker != nil {
		r.tracker.Report(ctx, f.Err, map[string]string{
			"provider":   f.Shop.Provider.String(),
			"shop_id":    f.Shop.ID,
			"account_id": f.Shop.AccountID,
			"context":    f.Context,
		})
	}

	if r.notifier != nil {
		if err := r.notifier.Notify(ctx, failureNotification(f)); err != nil {
			log.Error().Err(err).Msg("Failed to notify account")
		}
	}
	return true
}

func failureNotification(f Failure) domain.Notification {
	n := domain.Notification{
		AccountID: f.Shop.AccountID,
		Message:   fmt.Sprintf("Your %s import for %s (%s) failed.", f.Context, f.Shop.Name, f.Shop.Provider),
		Link:      fmt.Sprintf("/shops/%s/external_imports", f.Shop.ID),
		LinkText:  "View imports",
	}
	if f.Account != nil {
		n.UserID = f.Account.PrimaryUserID
	}
	return n
}
