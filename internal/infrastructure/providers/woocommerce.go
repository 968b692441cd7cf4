package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"commerce-import-layer/internal/domain"
	"commerce-import-layer/internal/infrastructure/currency"
	"commerce-import-layer/internal/infrastructure/retry"
	"commerce-import-layer/internal/ports"

	"github.com/shopspring/decimal"
)

const (
	wooPageSize      = 50
	wooRetryAttempts = 5
)

// WooCommerce imports from a store's REST API using its consumer key and secret
type WooCommerce struct {
	base
	api    ports.WooCommerceAPI
	status *ports.WooSystemStatus
}

func newWooCommerce(env Env, clients Clients) (ports.ProviderAdapter, error) {
	if clients.WooCommerce == nil {
		return nil, notConfigured(domain.ProviderWooCommerce)
	}
	w := &WooCommerce{base: newBase(env, domain.ProviderWooCommerce), api: clients.WooCommerce}
	policy := retry.Exponential(wooRetryAttempts, retry.DefaultBase).WithClock(w.Clock).WithLogger(w.log)
	policy.OnRetry = w.Retry.OnRetry
	w.Retry = policy
	return w, nil
}

func (w *WooCommerce) Resources() []domain.ResourceKind {
	return []domain.ResourceKind{domain.ResourceListings, domain.ResourceOrders}
}

func (w *WooCommerce) storeCredentials(ctx context.Context) (ports.WooCredentials, error) {
	cred, err := w.credential(ctx)
	if err != nil {
		return ports.WooCredentials{}, err
	}
	return ports.WooCredentials{
		StoreURL:       w.Shop.ExternalUID,
		ConsumerKey:    cred.Token,
		ConsumerSecret: cred.TokenSecret,
	}, nil
}

// responseError classifies a non-200 answer
func (w *WooCommerce) responseError(op string, status int, message string) error {
	var kind domain.ErrorKind
	switch status {
	case http.StatusUnauthorized:
		kind = domain.KindAuthExpired
	case http.StatusNotFound:
		kind = domain.KindNotFound
	case http.StatusTooManyRequests:
		kind = domain.KindRateLimited
	default:
		kind = domain.KindForStatus(status)
	}
	msg := fmt.Sprintf("Error: %s; Parameters: account_id: %s, shop_id: %s", message, w.Shop.AccountID, w.Shop.ID)
	return domain.NewImportError(kind, w.provider, op, domain.WithStatus(status), domain.WithMessage(msg))
}

func (w *WooCommerce) systemStatus(ctx context.Context) (*ports.WooSystemStatus, error) {
	if w.status != nil {
		return w.status, nil
	}
	creds, err := w.storeCredentials(ctx)
	if err != nil {
		return nil, err
	}
	st, err := w.api.SystemStatus(ctx, creds)
	if err != nil {
		return nil, w.classify("system_status", err)
	}
	if st.Status == http.StatusOK {
		w.status = st
	}
	return st, nil
}

// TokenActive never disables a WooCommerce shop; failures are only reported
func (w *WooCommerce) TokenActive(ctx context.Context) bool {
	st, err := w.systemStatus(ctx)
	if err == nil && st.Status != http.StatusOK {
		err = w.responseError("system_status", st.Status, st.Body)
	}
	if err != nil {
		w.report(ctx, err)
	}
	return true
}

func (w *WooCommerce) currency(ctx context.Context, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	st, err := w.systemStatus(ctx)
	if err != nil {
		return "", err
	}
	if st.Status != http.StatusOK {
		return "", w.responseError("system_status", st.Status, st.Body)
	}
	return st.Currency, nil
}

func (w *WooCommerce) IsPriceConverted(ctx context.Context, override string) (bool, error) {
	cur, err := w.currency(ctx, override)
	if err != nil {
		return false, err
	}
	return w.priceConverted(cur), nil
}

func (w *WooCommerce) ConvertAmount(ctx context.Context, amount string, occurredAt time.Time, note, override string) (decimal.Decimal, string, error) {
	cur, err := w.currency(ctx, override)
	if err != nil {
		return decimal.Zero, "", err
	}
	return w.convert(ctx, amount, occurredAt, note, cur)
}

func (w *WooCommerce) FetchPage(ctx context.Context, kind domain.ResourceKind, cursor domain.Cursor) (*domain.Page, error) {
	page, err := offsetCursor(cursor, 1)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("per_page", strconv.Itoa(wooPageSize))
	params.Set("page", strconv.Itoa(page))

	var endpoint string
	switch kind {
	case domain.ResourceOrders:
		endpoint = "orders"
		if w.ExternalImport != nil {
			params.Set("after", w.Window.Start().UTC().Format(time.RFC3339))
			params.Set("before", w.Window.End().UTC().Format(time.RFC3339))
		}
		if ids := w.resourceIDs(); len(ids) > 0 {
			params.Set("include", strings.Join(ids, ","))
		}
	case domain.ResourceListings:
		endpoint = "products"
	default:
		return nil, w.unsupported(kind)
	}

	creds, err := w.storeCredentials(ctx)
	if err != nil {
		return nil, err
	}
	res, err := retry.Do(ctx, w.Retry, func(ctx context.Context) (*ports.WooListResponse, error) {
		w.log.Debug().Str("endpoint", endpoint).Str("params", params.Encode()).Msg("Listing")
		res, err := w.api.List(ctx, creds, endpoint, params)
		if err != nil {
			return nil, w.classify("list_"+endpoint, err)
		}
		if res.Status != http.StatusOK {
			return nil, w.responseError("list_"+endpoint, res.Status, res.Message)
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}

	if w.ExternalImport != nil && w.Imports != nil {
		if err := w.Imports.UpdateTotals(ctx, w.ExternalImport.ID, res.Total); err != nil {
			w.log.Warn().Err(err).Msg("Failed to record total items")
		}
	}

	out := &domain.Page{Items: res.Items}
	if len(res.Items) >= wooPageSize {
		out.Next = intCursor(page + 1)
	}
	return out, nil
}

// APIAvailable requires a 200 system status and a supported store currency
func (w *WooCommerce) APIAvailable(ctx context.Context) bool {
	st, err := w.systemStatus(ctx)
	if err != nil {
		w.markUnavailable(ctx, "system_status", err)
		return false
	}
	if st.Status != http.StatusOK {
		w.log.Warn().Int("status", st.Status).Msg("System status unavailable")
		w.stampFailure(ctx, st.Body)
		return false
	}
	if !currency.IsSupported(st.Currency) {
		w.log.Warn().Str("currency", st.Currency).Msg("Shop currency not supported")
		w.stampFailure(ctx, "Shop currency not supported")
		return false
	}
	return true
}
