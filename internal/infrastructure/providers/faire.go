package providers

import (
	"context"
	"time"

	"commerce-import-layer/internal/domain"
	"commerce-import-layer/internal/infrastructure/currency"
	"commerce-import-layer/internal/infrastructure/retry"
	"commerce-import-layer/internal/ports"

	"github.com/shopspring/decimal"
)

const fairePageSize = 50

// Faire imports a brand's wholesale orders. Every Faire amount carries its own
// currency, so conversions always name one.
type Faire struct {
	base
	api       ports.FaireAPI
	converter *currency.Converter
	brand     *ports.FaireBrand
}

func newFaire(env Env, clients Clients) (ports.ProviderAdapter, error) {
	if clients.Faire == nil {
		return nil, notConfigured(domain.ProviderFaire)
	}
	f := &Faire{base: newBase(env, domain.ProviderFaire), api: clients.Faire, converter: env.Converter}
	if clients.FaireRates != nil {
		f.converter = env.Converter.WithRates(clients.FaireRates)
	}
	return f, nil
}

func (f *Faire) Resources() []domain.ResourceKind {
	return []domain.ResourceKind{domain.ResourceListings, domain.ResourceOrders}
}

func (f *Faire) loadBrand(ctx context.Context) (*ports.FaireBrand, error) {
	if f.brand != nil {
		return f.brand, nil
	}
	cred, err := f.credential(ctx)
	if err != nil {
		return nil, err
	}
	brand, err := retry.Do(ctx, f.Retry, func(ctx context.Context) (*ports.FaireBrand, error) {
		b, err := f.api.Brand(ctx, cred.Token)
		return b, f.classify("brand", err)
	})
	if err != nil {
		return nil, err
	}
	if brand == nil || brand.ID == "" {
		return nil, domain.NewImportError(domain.KindNotFound, f.provider, "brand", domain.WithMessage("no brand for token"))
	}
	f.brand = brand
	return brand, nil
}

func (f *Faire) TokenActive(ctx context.Context) bool {
	if _, err := f.loadBrand(ctx); err != nil {
		f.log.Info().Err(err).Msg("Token inactive")
		return false
	}
	return true
}

func (f *Faire) currency(ctx context.Context, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	b, err := f.loadBrand(ctx)
	if err != nil {
		return "", err
	}
	return b.Currency, nil
}

func (f *Faire) IsPriceConverted(ctx context.Context, override string) (bool, error) {
	cur, err := f.currency(ctx, override)
	if err != nil {
		return false, err
	}
	return f.converter.NeedsConversion(cur), nil
}

// ConvertAmount requires the amount's currency
func (f *Faire) ConvertAmount(ctx context.Context, amount string, occurredAt time.Time, note, override string) (decimal.Decimal, string, error) {
	if override == "" {
		return decimal.Zero, "", domain.NewImportError(domain.KindInvalidRequest, f.provider, "convert_amount",
			domain.WithMessage("currency code is required"))
	}
	return f.converter.Convert(ctx, amount, occurredAt, override, note)
}

func (f *Faire) FetchPage(ctx context.Context, kind domain.ResourceKind, cursor domain.Cursor) (*domain.Page, error) {
	page, err := offsetCursor(cursor, 1)
	if err != nil {
		return nil, err
	}
	cred, err := f.credential(ctx)
	if err != nil {
		return nil, err
	}

	var items []any
	switch kind {
	case domain.ResourceOrders:
		items, err = retry.Do(ctx, f.Retry, func(ctx context.Context) ([]any, error) {
			o, err := f.api.ListOrders(ctx, cred.Token, f.Window.Start(), page, fairePageSize)
			return o, f.classify("list_orders", err)
		})
	case domain.ResourceListings:
		items, err = retry.Do(ctx, f.Retry, func(ctx context.Context) ([]any, error) {
			p, err := f.api.ListProducts(ctx, cred.Token, page, fairePageSize)
			return p, f.classify("list_products", err)
		})
	default:
		return nil, f.unsupported(kind)
	}
	if err != nil {
		return nil, err
	}

	out := &domain.Page{Items: items}
	if len(items) >= fairePageSize {
		out.Next = intCursor(page + 1)
	}
	return out, nil
}

func (f *Faire) APIAvailable(ctx context.Context) bool {
	if _, err := f.loadBrand(ctx); err != nil {
		f.markUnavailable(ctx, "brand", err)
		return false
	}
	return true
}
