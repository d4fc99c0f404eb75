package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// TotalsLine is the minimal line shape the totals calculator needs.
type TotalsLine struct {
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Totals is the money summary persisted on quotes and orders.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	TaxRate  decimal.Decimal `json:"tax_rate"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// ComputeTotals sums quantity × unit price over lines without per-line rounding,
// then rounds subtotal, tax (subtotal × taxRate) and total (subtotal + tax) to cents.
// Tax is computed from the rounded subtotal so that subtotal + tax == total holds
// for the stored values.
func ComputeTotals(lines []TotalsLine, taxRate decimal.Decimal) Totals {
	raw := decimal.Zero
	for _, l := range lines {
		raw = raw.Add(l.Quantity.Mul(l.UnitPrice))
	}

	subtotal := Round2(raw)
	tax := Round2(subtotal.Mul(taxRate))
	total := Round2(subtotal.Add(tax))

	return Totals{
		Subtotal: subtotal,
		TaxRate:  taxRate,
		Tax:      tax,
		Total:    total,
	}
}

// TotalsService computes totals against the configured tax rate.
type TotalsService interface {
	// Compute reads the tax rate fresh from settings and applies ComputeTotals.
	Compute(ctx context.Context, lines []TotalsLine) (Totals, error)
}

type totalsService struct {
	settings SettingsService
}

// NewTotalsService returns a TotalsService reading the tax rate from settings.
func NewTotalsService(settings SettingsService) TotalsService {
	return &totalsService{settings: settings}
}

func (s *totalsService) Compute(ctx context.Context, lines []TotalsLine) (Totals, error) {
	rate, err := s.settings.TaxRate(ctx)
	if err != nil {
		return Totals{}, err
	}
	return ComputeTotals(lines, rate), nil
}
