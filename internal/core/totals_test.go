package core_test

import (
	"testing"

	"workshop-manager/internal/core"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeTotals(t *testing.T) {
	tests := []struct {
		name     string
		lines    []core.TotalsLine
		rate     string
		subtotal string
		tax      string
		total    string
	}{
		{
			name:     "single line at 21%",
			lines:    []core.TotalsLine{{Quantity: dec("10"), UnitPrice: dec("1.30")}},
			rate:     "0.21",
			subtotal: "13.00", tax: "2.73", total: "15.73",
		},
		{
			name: "rounded only at the end",
			lines: []core.TotalsLine{
				{Quantity: dec("1"), UnitPrice: dec("0.333")},
				{Quantity: dec("1"), UnitPrice: dec("0.333")},
				{Quantity: dec("1"), UnitPrice: dec("0.333")},
			},
			rate:     "0",
			subtotal: "1.00", tax: "0", total: "1.00",
		},
		{
			name:     "no lines",
			lines:    nil,
			rate:     "0.21",
			subtotal: "0", tax: "0", total: "0",
		},
		{
			name: "zero quantity contributes nothing",
			lines: []core.TotalsLine{
				{Quantity: decimal.Zero, UnitPrice: dec("99")},
				{Quantity: dec("2.5"), UnitPrice: dec("4")},
			},
			rate:     "0.10",
			subtotal: "10.00", tax: "1.00", total: "11.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := core.ComputeTotals(tt.lines, dec(tt.rate))
			if !got.Subtotal.Equal(dec(tt.subtotal)) {
				t.Errorf("subtotal = %s, want %s", got.Subtotal, tt.subtotal)
			}
			if !got.Tax.Equal(dec(tt.tax)) {
				t.Errorf("tax = %s, want %s", got.Tax, tt.tax)
			}
			if !got.Total.Equal(dec(tt.total)) {
				t.Errorf("total = %s, want %s", got.Total, tt.total)
			}
			if !got.Subtotal.Add(got.Tax).Equal(got.Total) {
				t.Errorf("subtotal + tax = %s, total = %s", got.Subtotal.Add(got.Tax), got.Total)
			}
		})
	}
}
