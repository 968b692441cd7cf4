package providers

import (
	"context"
	"fmt"
	"time"

	"commerce-import-layer/internal/domain"
	"commerce-import-layer/internal/infrastructure/currency"

	"github.com/shopspring/decimal"
)

// Placeholder product attributes
const (
	GhostProductState        = "active"
	GhostProductQuantityType = "item"
)

// ghostUnitPrice is (total - tax when tax is included) / quantity, quantity defaulting to 1
func ghostUnitPrice(item domain.LineItem) (decimal.Decimal, error) {
	total, err := currency.ParseAmount(item.TotalPrice)
	if err != nil {
		return decimal.Zero, err
	}
	if item.TaxIncludedInPrice {
		tax, err := currency.ParseAmount(item.Tax)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Sub(tax)
	}
	qty := item.Quantity
	if qty <= 0 {
		qty = 1
	}
	return total.Div(decimal.NewFromInt(int64(qty))), nil
}

func (b *base) ghostProduct(ctx context.Context, item domain.LineItem, occurredAt time.Time, nativeCurrency string) (*domain.GhostProduct, error) {
	unit, err := ghostUnitPrice(item)
	if err != nil {
		return nil, fmt.Errorf("failed to price ghost product %q: %w", item.Name, err)
	}
	price, _, err := b.Converter.ConvertDecimal(ctx, unit, occurredAt, pick(item.Currency, nativeCurrency), "")
	if err != nil {
		return nil, err
	}

	b.log.Info().Str("product", item.Name).Msg("Creating placeholder for deleted product")
	return &domain.GhostProduct{
		Name:          item.Name,
		State:         GhostProductState,
		BaseUnitPrice: price,
		QuantityType:  GhostProductQuantityType,
	}, nil
}
