package currency

import (
	"context"
	"fmt"
	"strings"
	"time"

	"commerce-import-layer/internal/domain"
	"commerce-import-layer/internal/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// ParseAmount parses an exact decimal amount. Blank input is zero.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// IsSupported reports whether code is a known ISO 4217 currency
func IsSupported(code string) bool {
	if strings.TrimSpace(code) == "" {
		return false
	}
	_, err := currency.ParseISO(code)
	return err == nil
}

// Converter converts provider amounts into the account currency and records an
// audit note for every conversion made with a note
type Converter struct {
	rates  ports.ExchangeRateService
	base   string
	notes  *domain.ConversionNotes
	logger zerolog.Logger
}

// NewConverter creates a converter targeting baseCurrency that appends to notes
func NewConverter(rates ports.ExchangeRateService, baseCurrency string, notes *domain.ConversionNotes, logger zerolog.Logger) *Converter {
	return &Converter{
		rates:  rates,
		base:   strings.ToUpper(baseCurrency),
		notes:  notes,
		logger: logger,
	}
}

// WithRates returns a converter using another exchange service but the same note log
func (c *Converter) WithRates(rates ports.ExchangeRateService) *Converter {
	clone := *c
	clone.rates = rates
	return &clone
}

// BaseCurrency is the account currency amounts are converted into
func (c *Converter) BaseCurrency() string {
	return c.base
}

// NeedsConversion reports whether amounts in from differ from the base currency
func (c *Converter) NeedsConversion(from string) bool {
	return !strings.EqualFold(strings.TrimSpace(from), c.base)
}

// Convert returns amount in the base currency. Same-currency amounts are parsed and
// returned unchanged. When note is set, "{note}: {conversion_note}" is appended to the log.
func (c *Converter) Convert(ctx context.Context, amount string, occurredAt time.Time, from string, note string) (decimal.Decimal, string, error) {
	value, err := ParseAmount(amount)
	if err != nil {
		return decimal.Zero, "", err
	}
	if !c.NeedsConversion(from) {
		return value, "", nil
	}
	return c.ConvertDecimal(ctx, value, occurredAt, from, note)
}

// ConvertDecimal is Convert for an already parsed amount
func (c *Converter) ConvertDecimal(ctx context.Context, value decimal.Decimal, occurredAt time.Time, from string, note string) (decimal.Decimal, string, error) {
	if !c.NeedsConversion(from) {
		return value, "", nil
	}
	if c.rates == nil {
		return decimal.Zero, "", fmt.Errorf("failed to convert %s to %s: no exchange rate service", from, c.base)
	}

	ex, err := c.rates.Exchange(ctx, value, occurredAt, strings.ToUpper(from), c.base)
	if err != nil {
		return decimal.Zero, "", fmt.Errorf("failed to convert %s %s to %s: %w", value.String(), from, c.base, err)
	}
	if note != "" && c.notes != nil {
		c.notes.Append(note, ex.ConversionNote)
	}
	c.logger.Debug().
		Str("from", from).
		Str("to", c.base).
		Str("amount", value.String()).
		Str("converted", ex.ConvertedAmount.String()).
		Msg("Converted amount")
	return ex.ConvertedAmount, ex.ConversionNote, nil
}
