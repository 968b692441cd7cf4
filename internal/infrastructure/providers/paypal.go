package providers

import (
	"context"
	"time"

	"commerce-import-layer/internal/domain"
	"commerce-import-layer/internal/infrastructure/retry"
	"commerce-import-layer/internal/ports"

	"github.com/shopspring/decimal"
)

const paypalPageSize = 100

// PayPalHistoryStart is where invoice searches begin when no range was requested
var PayPalHistoryStart = time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC)

// PayPal imports invoices. Tokens are refreshed ahead of expiry and every refresh
// re-reads the account emails.
type PayPal struct {
	base
	api       ports.PayPalAPI
	refresher ports.TokenRefresher
}

func newPayPal(env Env, clients Clients) (ports.ProviderAdapter, error) {
	if clients.PayPal == nil {
		return nil, notConfigured(domain.ProviderPayPal)
	}
	return &PayPal{
		base:      newBase(env, domain.ProviderPayPal),
		api:       clients.PayPal,
		refresher: clients.Refreshers[domain.ProviderPayPal],
	}, nil
}

func (p *PayPal) Resources() []domain.ResourceKind {
	return []domain.ResourceKind{domain.ResourceInvoices}
}

func (p *PayPal) refresh(ctx context.Context, c *domain.Credential) (*domain.Credential, error) {
	c, err := p.oauthRefresh(p.refresher)(ctx, c)
	if err != nil {
		return nil, err
	}

	emails, err := p.api.UserInfoEmails(ctx, c.Token)
	if err != nil {
		p.log.Warn().Err(err).Msg("Failed to read PayPal emails after refresh")
		return c, nil
	}
	p.Shop.PaypalEmails = emails
	if p.Shops != nil {
		if err := p.Shops.UpdatePaypalEmails(ctx, p.Shop.ID, emails); err != nil {
			p.log.Warn().Err(err).Msg("Failed to store PayPal emails")
		}
	}
	return c, nil
}

func (p *PayPal) token(ctx context.Context) (*domain.Credential, error) {
	return p.Tokens.EnsureFresh(ctx, p.Shop, p.expiredNow, p.refresh)
}

func (p *PayPal) TokenActive(ctx context.Context) bool {
	cred, err := p.token(ctx)
	if err == nil {
		_, err = p.api.UserInfoEmails(ctx, cred.Token)
	}
	if err != nil {
		p.log.Info().Err(err).Msg("Token inactive")
		return false
	}
	return true
}

func (p *PayPal) currency(override string) string {
	return pick(override, pick(p.Shop.Currency, p.Converter.BaseCurrency()))
}

func (p *PayPal) IsPriceConverted(_ context.Context, override string) (bool, error) {
	return p.priceConverted(p.currency(override)), nil
}

func (p *PayPal) ConvertAmount(ctx context.Context, amount string, occurredAt time.Time, note, override string) (decimal.Decimal, string, error) {
	return p.convert(ctx, amount, occurredAt, note, p.currency(override))
}

// searchRange covers the requested range, or all history up to the window end
func (p *PayPal) searchRange() (time.Time, time.Time) {
	if p.ExternalImport.HasRange() {
		return p.Window.Start(), p.Window.End()
	}
	return PayPalHistoryStart, p.Window.End()
}

func (p *PayPal) FetchPage(ctx context.Context, kind domain.ResourceKind, cursor domain.Cursor) (*domain.Page, error) {
	if kind != domain.ResourceInvoices {
		return nil, p.unsupported(kind)
	}
	page, err := offsetCursor(cursor, 1)
	if err != nil {
		return nil, err
	}
	cred, err := p.token(ctx)
	if err != nil {
		return nil, err
	}

	begin, end := p.searchRange()
	var more bool
	items, err := retry.Do(ctx, p.Retry, func(ctx context.Context) ([]any, error) {
		var items []any
		var err error
		items, more, err = p.api.SearchInvoices(ctx, cred.Token, begin, end, page, paypalPageSize)
		return items, p.classify("search_invoices", err)
	})
	if err != nil {
		return nil, err
	}

	out := &domain.Page{Items: items}
	if more {
		out.Next = intCursor(page + 1)
	}
	return out, nil
}

// APIAvailable always holds; PayPal failures surface from the import itself
func (p *PayPal) APIAvailable(context.Context) bool {
	return true
}
