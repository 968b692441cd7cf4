package currency

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"commerce-import-layer/internal/domain"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRates struct {
	calls  int
	from   string
	to     string
	result domain.Exchange
}

func (s *stubRates) Exchange(_ context.Context, _ decimal.Decimal, _ time.Time, from, to string) (domain.Exchange, error) {
	s.calls++
	s.from, s.to = from, to
	return s.result, nil
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "0", false},
		{"   ", "0", false},
		{"19.99", "19.99", false},
		{"0.1", "0.1", false},
		{"-4.50", "-4.5", false},
		{"abc", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestConverter_SameCurrencyReturnsExactAmount(t *testing.T) {
	rates := &stubRates{}
	notes := &domain.ConversionNotes{}
	c := NewConverter(rates, "USD", notes, zerolog.Nop())

	assert.False(t, c.NeedsConversion("usd"))

	got, note, err := c.Convert(context.Background(), "0.30", time.Now(), "USD", "Order #1")
	require.NoError(t, err)
	assert.Equal(t, "0.3", got.String())
	assert.Empty(t, note)

	blank, _, err := c.Convert(context.Background(), "", time.Now(), "USD", "")
	require.NoError(t, err)
	assert.True(t, blank.IsZero())

	assert.Zero(t, rates.calls)
	assert.Zero(t, notes.Len())
}

func TestConverter_DifferentCurrencyUsesExchangeAndAppendsOneNote(t *testing.T) {
	rates := &stubRates{result: domain.Exchange{
		ConvertedAmount: decimal.RequireFromString("73.10"),
		ConversionNote:  "100.00 EUR @ 0.731 on 2024-01-02",
	}}
	notes := &domain.ConversionNotes{}
	c := NewConverter(rates, "GBP", notes, zerolog.Nop())

	got, note, err := c.Convert(context.Background(), "100.00", time.Now(), "EUR", "Order #1001")
	require.NoError(t, err)
	assert.Equal(t, "73.1", got.String())
	assert.Equal(t, "100.00 EUR @ 0.731 on 2024-01-02", note)
	assert.Equal(t, "EUR", rates.from)
	assert.Equal(t, "GBP", rates.to)
	assert.Equal(t, []string{"Order #1001: 100.00 EUR @ 0.731 on 2024-01-02"}, notes.Entries())

	_, _, err = c.Convert(context.Background(), "5", time.Now(), "EUR", "")
	require.NoError(t, err)
	assert.Equal(t, 1, notes.Len(), "conversions without a note are not logged")
}

func TestConverter_WithRatesSharesNotes(t *testing.T) {
	notes := &domain.ConversionNotes{}
	c := NewConverter(&stubRates{}, "USD", notes, zerolog.Nop())
	ecb := &stubRates{result: domain.Exchange{ConvertedAmount: decimal.NewFromInt(2), ConversionNote: "ecb"}}

	_, _, err := c.WithRates(ecb).Convert(context.Background(), "1", time.Now(), "EUR", "Faire order")
	require.NoError(t, err)
	assert.Equal(t, 1, ecb.calls)
	assert.Equal(t, []string{"Faire order: ecb"}, notes.Entries())
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("USD"))
	assert.True(t, IsSupported("eur"))
	assert.False(t, IsSupported("XYZ1"))
	assert.False(t, IsSupported(""))
}

func TestHTTPRateService_Exchange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/exchange", r.URL.Path)
		assert.Equal(t, "12.5", r.URL.Query().Get("amount"))
		assert.Equal(t, "2024-02-29", r.URL.Query().Get("date"))
		assert.Equal(t, "CAD", r.URL.Query().Get("from"))
		assert.Equal(t, "USD", r.URL.Query().Get("to"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"converted_amount":"9.25","conversion_note":"12.50 CAD @ 0.74"}`))
	}))
	defer server.Close()

	svc := NewHTTPRateService(server.URL, server.Client())
	ex, err := svc.Exchange(context.Background(), decimal.RequireFromString("12.5"),
		time.Date(2024, 2, 29, 15, 0, 0, 0, time.UTC), "CAD", "USD")

	require.NoError(t, err)
	assert.Equal(t, "9.25", ex.ConvertedAmount.String())
	assert.Equal(t, "12.50 CAD @ 0.74", ex.ConversionNote)
}

func TestHTTPRateService_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewHTTPRateService(server.URL, nil).Exchange(context.Background(), decimal.NewFromInt(1), time.Now(), "CAD", "USD")
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, domain.StatusOf(err))
	assert.True(t, domain.IsRetryable(err))
}
