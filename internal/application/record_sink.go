package application

import (
	"context"

	"commerce-import-layer/internal/domain"
	"commerce-import-layer/internal/ports"

	"github.com/rs/zerolog"
)

// LoggingRecordSink logs fetched pages. It stands in for the downstream importers.
type LoggingRecordSink struct {
	logger zerolog.Logger
}

func NewLoggingRecordSink(logger zerolog.Logger) *LoggingRecordSink {
	return &LoggingRecordSink{logger: logger}
}

func (s *LoggingRecordSink) Handle(_ context.Context, shop *domain.Shop, kind domain.ResourceKind, items []any) error {
	s.logger.Info().
		Str("provider", shop.Provider.String()).
		Str("shop", shop.ID).
		Str("resource", string(kind)).
		Int("count", len(items)).
		Msg("Records received")
	return nil
}

var _ ports.RecordSink = (*LoggingRecordSink)(nil)
