package providers

import (
	"context"
	"fmt"
	"time"

	"commerce-import-layer/internal/domain"
	"commerce-import-layer/internal/infrastructure/retry"
	"commerce-import-layer/internal/ports"

	"github.com/shopspring/decimal"
)

const quickBooksPageSize = 1000

var quickBooksEntities = map[domain.ResourceKind]string{
	domain.ResourceAccounts: "Account",
	domain.ResourceInvoices: "Invoice",
	domain.ResourcePayments: "Payment",
}

// QuickBooks imports from QuickBooks Online. The token is probed before use and
// refreshed when the probe is rejected.
type QuickBooks struct {
	base
	api       ports.QuickBooksAPI
	refresher ports.TokenRefresher
}

func newQuickBooks(env Env, clients Clients) (ports.ProviderAdapter, error) {
	if clients.QuickBooks == nil {
		return nil, notConfigured(domain.ProviderQuickBooks)
	}
	return &QuickBooks{
		base:      newBase(env, domain.ProviderQuickBooks),
		api:       clients.QuickBooks,
		refresher: clients.Refreshers[domain.ProviderQuickBooks],
	}, nil
}

func (q *QuickBooks) Resources() []domain.ResourceKind {
	return []domain.ResourceKind{domain.ResourceAccounts, domain.ResourceInvoices, domain.ResourcePayments}
}

func (q *QuickBooks) companyID() string {
	return q.Shop.ExternalUID
}

func (q *QuickBooks) probe(ctx context.Context, token string) error {
	_, err := q.api.Query(ctx, q.companyID(), token, "SELECT * FROM CompanyInfo", 1, 1)
	return q.classify("company_info", err)
}

// ensureTokenActive returns a credential that passed the probe, refreshing once if needed
func (q *QuickBooks) ensureTokenActive(ctx context.Context) (*domain.Credential, error) {
	cred, err := q.credential(ctx)
	if err != nil {
		return nil, err
	}
	err = q.probe(ctx, cred.Token)
	if err == nil {
		return cred, nil
	}
	if !domain.IsAuthExpired(err) {
		return nil, err
	}
	q.log.Info().Err(err).Msg("Token rejected, refreshing")
	return q.Tokens.Refresh(ctx, q.Shop, cred, q.oauthRefresh(q.refresher))
}

func (q *QuickBooks) TokenActive(ctx context.Context) bool {
	cred, err := q.credential(ctx)
	if err == nil {
		err = q.probe(ctx, cred.Token)
	}
	if err != nil {
		q.log.Info().Err(err).Msg("Token inactive")
		return false
	}
	return true
}

func (q *QuickBooks) currency(override string) string {
	return pick(override, pick(q.Shop.Currency, q.Converter.BaseCurrency()))
}

func (q *QuickBooks) IsPriceConverted(_ context.Context, override string) (bool, error) {
	return q.priceConverted(q.currency(override)), nil
}

func (q *QuickBooks) ConvertAmount(ctx context.Context, amount string, occurredAt time.Time, note, override string) (decimal.Decimal, string, error) {
	return q.convert(ctx, amount, occurredAt, note, q.currency(override))
}

func (q *QuickBooks) statement(kind domain.ResourceKind) (string, error) {
	entity, ok := quickBooksEntities[kind]
	if !ok {
		return "", q.unsupported(kind)
	}
	if kind == domain.ResourceAccounts {
		return "SELECT * FROM " + entity, nil
	}
	const layout = "2006-01-02T15:04:05-07:00"
	return fmt.Sprintf("SELECT * FROM %s WHERE MetaData.LastUpdatedTime >= '%s' AND MetaData.LastUpdatedTime <= '%s'",
		entity, q.Window.Start().Format(layout), q.Window.End().Format(layout)), nil
}

func (q *QuickBooks) FetchPage(ctx context.Context, kind domain.ResourceKind, cursor domain.Cursor) (*domain.Page, error) {
	stmt, err := q.statement(kind)
	if err != nil {
		return nil, err
	}
	start, err := offsetCursor(cursor, 1)
	if err != nil {
		return nil, err
	}
	cred, err := q.ensureTokenActive(ctx)
	if err != nil {
		return nil, err
	}

	items, err := retry.Do(ctx, q.Retry, func(ctx context.Context) ([]any, error) {
		items, err := q.api.Query(ctx, q.companyID(), cred.Token, stmt, start, quickBooksPageSize)
		return items, q.classify("query", err)
	})
	if err != nil {
		return nil, err
	}

	page := &domain.Page{Items: items}
	if len(items) >= quickBooksPageSize {
		page.Next = intCursor(start + quickBooksPageSize)
	}
	return page, nil
}

func (q *QuickBooks) APIAvailable(ctx context.Context) bool {
	if _, err := q.ensureTokenActive(ctx); err != nil {
		q.markUnavailable(ctx, "company_info", err)
		return false
	}
	return true
}
