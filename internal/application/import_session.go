package application

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"slices"

	"commerce-import-layer/internal/domain"
	"commerce-import-layer/internal/infrastructure/clock"
	"commerce-import-layer/internal/infrastructure/metrics"
	"commerce-import-layer/internal/ports"

	"github.com/rs/zerolog"
)

// Run outcomes recorded on import_runs_total
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeIgnored   = "ignored"
	OutcomeInactive  = "inactive"
	OutcomeCancelled = "cancelled"
)

// ImportSession runs one import for one shop through one adapter
type ImportSession struct {
	Shop           *domain.Shop
	Account        *domain.Account
	ExternalImport *domain.ExternalImport
	Window         domain.DateWindow

	adapter  ports.ProviderAdapter
	notes    *domain.ConversionNotes
	imports  ports.ExternalImportRepository
	sink     ports.RecordSink
	reporter *FailureReporter
	metrics  *metrics.ImportMetrics
	clock    clock.Clock
	logger   zerolog.Logger
}

// Adapter returns the provider adapter bound to the session
func (s *ImportSession) Adapter() ports.ProviderAdapter {
	return s.adapter
}

// Notes returns the session's conversion log
func (s *ImportSession) Notes() *domain.ConversionNotes {
	return s.notes
}

// Log writes a debug line tagged with provider and shop. Adapters with header-based
// limits drain any pending throttle first.
func (s *ImportSession) Log(ctx context.Context, message string) {
	if t, ok := s.adapter.(ports.Throttler); ok {
		if err := t.DrainThrottle(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to drain throttle")
		}
	}
	s.logger.Debug().Msg(message)
}

// Run drains every resource and never returns an error; failures are reported and
// surface as an unsuccessful result.
func (s *ImportSession) Run(ctx context.Context) (result domain.Result) {
	start := s.clock.Now()
	outcome := OutcomeFailure
	failureContext := "data"

	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("import panicked: %v", rec)
			outcome = s.fail(ctx, failureContext, err, string(debug.Stack()))
			result = s.result(false)
		}
		if s.metrics != nil {
			s.metrics.ObserveRun(s.Shop.Provider, outcome, s.clock.Now().Sub(start))
		}
	}()

	s.logger.Info().
		Time("from", s.Window.Start()).
		Time("to", s.Window.End()).
		Bool("hourly", s.Window.Hourly).
		Msg("Import started")

	if !s.adapter.APIAvailable(ctx) {
		s.logger.Warn().Msg("Provider API unavailable")
		outcome = OutcomeInactive
		return s.result(false)
	}

	processed := 0
	for _, kind := range s.resources() {
		failureContext = string(kind)
		n, err := s.drain(ctx, kind)
		processed += n
		if err != nil {
			if errors.Is(err, context.Canceled) {
				s.logger.Warn().Str("resource", string(kind)).Int("processed", processed).Msg("Import cancelled")
				outcome = OutcomeCancelled
				return s.result(false)
			}
			outcome = s.fail(ctx, failureContext, err, "")
			return s.result(false)
		}
	}

	if s.ExternalImport != nil && s.imports != nil {
		if err := s.imports.MarkFinished(ctx, s.ExternalImport.ID, processed, s.clock.Now()); err != nil {
			s.logger.Error().Err(err).Msg("Failed to mark external import finished")
		}
	}
	s.logger.Info().Int("processed", processed).Int("conversions", s.notes.Len()).Msg("Import finished")
	outcome = OutcomeSuccess
	return s.result(true)
}

// drain fetches every page of kind, handing each page to the sink
func (s *ImportSession) drain(ctx context.Context, kind domain.ResourceKind) (int, error) {
	var cursor domain.Cursor
	count := 0
	for {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		page, err := s.adapter.FetchPage(ctx, kind, cursor)
		if err != nil {
			return count, err
		}
		if len(page.Items) > 0 {
			if err := s.sink.Handle(ctx, s.Shop, kind, page.Items); err != nil {
				return count, fmt.Errorf("failed to handle %s: %w", kind, err)
			}
		}
		count += len(page.Items)
		if s.metrics != nil {
			s.metrics.ObservePage(s.Shop.Provider, kind, len(page.Items))
		}
		s.Log(ctx, fmt.Sprintf("Fetched %d %s", len(page.Items), kind))

		if !page.HasMore() {
			return count, nil
		}
		cursor = page.Next
	}
}

// resources is the adapter's import order, narrowed to the job's requested kinds
func (s *ImportSession) resources() []domain.ResourceKind {
	all := s.adapter.Resources()
	if s.ExternalImport == nil || len(s.ExternalImport.Resources) == 0 {
		return all
	}
	out := make([]domain.ResourceKind, 0, len(all))
	for _, kind := range all {
		if slices.Contains(s.ExternalImport.Resources, kind) {
			out = append(out, kind)
		}
	}
	return out
}

func (s *ImportSession) fail(ctx context.Context, what string, err error, backtrace string) string {
	escalated := s.reporter.Handle(ctx, Failure{
		Shop:           s.Shop,
		Account:        s.Account,
		ExternalImport: s.ExternalImport,
		Context:        what,
		Err:            err,
		Backtrace:      backtrace,
	})
	if escalated {
		return OutcomeFailure
	}
	return OutcomeIgnored
}

func (s *ImportSession) result(success bool) domain.Result {
	return domain.Result{Success: success, ConversionNotes: s.notes.Entries()}
}
