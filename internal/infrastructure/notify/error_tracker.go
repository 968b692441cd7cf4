package notify

import (
	"context"

	"commerce-import-layer/internal/domain"
	"commerce-import-layer/internal/infrastructure/metrics"
	"commerce-import-layer/internal/ports"

	"github.com/rs/zerolog"
)

// LogErrorTracker reports escalated errors on the error log and counts them
type LogErrorTracker struct {
	logger  zerolog.Logger
	metrics *metrics.ImportMetrics
}

// NewLogErrorTracker creates a tracker. metrics may be nil.
func NewLogErrorTracker(logger zerolog.Logger, m *metrics.ImportMetrics) *LogErrorTracker {
	return &LogErrorTracker{logger: logger, metrics: m}
}

func (t *LogErrorTracker) Report(_ context.Context, err error, fields map[string]string) {
	event := t.logger.Error().Err(err).Str("kind", domain.KindOf(err).String())
	for k, v := range fields {
		event = event.Str(k, v)
	}
	event.Msg("Import error reported")

	if t.metrics != nil {
		t.metrics.ObserveFailure(domain.Provider(fields["provider"]), err)
	}
}

var _ ports.ErrorTracker = (*LogErrorTracker)(nil)
