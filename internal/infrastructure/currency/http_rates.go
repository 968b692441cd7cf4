package currency

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"commerce-import-layer/internal/domain"
	"commerce-import-layer/internal/ports"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// HTTPRateService calls the platform's exchange-rate service
type HTTPRateService struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPRateService creates a client for the exchange-rate service at baseURL
func NewHTTPRateService(baseURL string, httpClient *http.Client) *HTTPRateService {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPRateService{baseURL: baseURL, httpClient: httpClient}
}

type exchangeResponse struct {
	ConvertedAmount decimal.Decimal `json:"converted_amount"`
	ConversionNote  string          `json:"conversion_note"`
}

// Exchange asks the service to convert amount on date
func (s *HTTPRateService) Exchange(ctx context.Context, amount decimal.Decimal, date time.Time, from, to string) (domain.Exchange, error) {
	q := url.Values{}
	q.Set("amount", amount.String())
	q.Set("date", date.UTC().Format("2006-01-02"))
	q.Set("from", from)
	q.Set("to", to)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/exchange?"+q.Encode(), nil)
	if err != nil {
		return domain.Exchange{}, fmt.Errorf("failed to create exchange request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return domain.Exchange{}, fmt.Errorf("failed to call exchange service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.Exchange{}, domain.NewHTTPError(resp.StatusCode, "", string(body))
	}

	var out exchangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.Exchange{}, fmt.Errorf("failed to decode exchange response: %w", err)
	}
	return domain.Exchange{ConvertedAmount: out.ConvertedAmount, ConversionNote: out.ConversionNote}, nil
}

var _ ports.ExchangeRateService = (*HTTPRateService)(nil)
