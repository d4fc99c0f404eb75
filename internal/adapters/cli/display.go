package cli

import (
	"fmt"
	"io"
	"strings"

	"workshop-manager/internal/core"
)

func printRates(w io.Writer, rates []core.RateEntry) {
	fmt.Fprintln(w, strings.Repeat("=", 62))
	fmt.Fprintf(w, "  %-20s %10s %14s %12s\n", "MATERIAL", "THICKNESS", "UNIT PRICE", "WEIGHT")
	fmt.Fprintln(w, strings.Repeat("-", 62))
	if len(rates) == 0 {
		fmt.Fprintln(w, "  No rates found.")
	}
	for _, r := range rates {
		fmt.Fprintf(w, "  %-20s %10s %14s %12s\n",
			r.Material, r.Thickness.String(), r.UnitPrice.StringFixed(4), r.UnitWeight.StringFixed(3))
	}
	fmt.Fprintln(w, strings.Repeat("=", 62))
}

func printBreakdown(w io.Writer, b *core.PriceBreakdown) {
	fmt.Fprintf(w, "SOURCE:      %s\n", b.Source)
	fmt.Fprintf(w, "QUANTITY:    %s\n", b.Quantity.String())
	if b.Source != core.PriceSpecial {
		fmt.Fprintf(w, "BASE COST:   %s\n", b.BaseCost.StringFixed(4))
		fmt.Fprintf(w, "BASE PRICE:  %s\n", b.BasePrice.StringFixed(4))
		if b.MarginRuleID != nil {
			fmt.Fprintf(w, "MARGIN RULE: #%d\n", *b.MarginRuleID)
		}
		if b.Discount != nil && b.DiscountRule != nil {
			fmt.Fprintf(w, "DISCOUNT:    rule #%d, %s %s from %s\n",
				*b.DiscountRule, b.Discount.Kind, b.Discount.Value.String(), b.Discount.Threshold.String())
		}
	}
	fmt.Fprintf(w, "UNIT PRICE:  %s\n", b.UnitPrice.StringFixed(2))
	fmt.Fprintf(w, "LINE TOTAL:  %s\n", b.LineTotal.StringFixed(2))
}

func printQuote(w io.Writer, q *core.Quote) {
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintf(w, "  QUOTE %s  %s  %s\n", q.Number, q.QuoteDate, q.Status)
	fmt.Fprintf(w, "  Client: %s (%s)\n", q.ClientName, q.ClientCode)
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintf(w, "  %-3s %-12s %-22s %8s %10s %10s\n", "#", "CODE", "PRODUCT", "QTY", "PRICE", "TOTAL")
	fmt.Fprintln(w, strings.Repeat("-", 72))
	for _, l := range q.Lines {
		fmt.Fprintf(w, "  %-3d %-12s %-22s %8s %10s %10s\n",
			l.LineNumber, l.ProductCode, truncate(l.ProductName, 22), l.Quantity.String(),
			l.UnitPrice.StringFixed(2), l.LineTotal.StringFixed(2))
	}
	fmt.Fprintln(w, strings.Repeat("-", 72))
	fmt.Fprintf(w, "  %58s %10s\n", "SUBTOTAL", q.Subtotal.StringFixed(2))
	fmt.Fprintf(w, "  %58s %10s\n", "TAX "+q.TaxRate.String(), q.Tax.StringFixed(2))
	fmt.Fprintf(w, "  %58s %10s\n", "TOTAL", q.Total.StringFixed(2))
	fmt.Fprintln(w, strings.Repeat("=", 72))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
