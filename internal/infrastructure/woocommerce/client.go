package woocommerce

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"commerce-import-layer/internal/ports"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

const apiPath = "/wp-json/wc/v3/"

// Client talks to a store's WooCommerce REST API. Non-200 answers are returned in the
// response status instead of as errors so callers can keep the body.
type Client struct {
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a WooCommerce client. A nil httpClient uses a 60s timeout.
func NewClient(httpClient *http.Client, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{httpClient: httpClient, logger: logger}
}

func (c *Client) get(ctx context.Context, creds ports.WooCredentials, endpoint string, params url.Values) (*http.Response, []byte, error) {
	base := strings.TrimRight(creds.StoreURL, "/")
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	u := base + apiPath + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(creds.ConsumerKey, creds.ConsumerSecret)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to call %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}
	c.logger.Debug().Str("endpoint", endpoint).Int("status", resp.StatusCode).Msg("WooCommerce response")
	return resp, body, nil
}

type systemStatusResponse struct {
	Settings struct {
		Currency string `json:"currency"`
	} `json:"settings"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SystemStatus reads the store's system status report
func (c *Client) SystemStatus(ctx context.Context, creds ports.WooCredentials) (*ports.WooSystemStatus, error) {
	resp, body, err := c.get(ctx, creds, "system_status", nil)
	if err != nil {
		return nil, err
	}
	st := &ports.WooSystemStatus{Status: resp.StatusCode, Body: string(body)}
	if resp.StatusCode != http.StatusOK {
		return st, nil
	}

	var out systemStatusResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode system status: %w", err)
	}
	st.Currency = out.Settings.Currency
	return st, nil
}

// List fetches one page of a listing endpoint
func (c *Client) List(ctx context.Context, creds ports.WooCredentials, endpoint string, params url.Values) (*ports.WooListResponse, error) {
	resp, body, err := c.get(ctx, creds, endpoint, params)
	if err != nil {
		return nil, err
	}
	out := &ports.WooListResponse{Status: resp.StatusCode}
	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		if json.Unmarshal(body, &e) == nil && e.Message != "" {
			out.Message = e.Message
		} else {
			out.Message = string(body)
		}
		return out, nil
	}

	var items []map[string]any
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", endpoint, err)
	}
	out.Items = make([]any, len(items))
	for i, item := range items {
		out.Items[i] = item
	}
	if total := resp.Header.Get("X-WP-Total"); total != "" {
		if n, err := strconv.Atoi(total); err == nil {
			out.Total = n
		}
	}
	return out, nil
}

var _ ports.WooCommerceAPI = (*Client)(nil)
