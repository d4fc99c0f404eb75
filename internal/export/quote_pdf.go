package export

import (
	"fmt"

	"workshop-manager/internal/core"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	mcore "github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
)

var (
	grey    = &props.Color{Red: 100, Green: 100, Blue: 100}
	dark    = &props.Color{Red: 33, Green: 37, Blue: 41}
	white   = &props.Color{Red: 255, Green: 255, Blue: 255}
	stripe  = &props.Color{Red: 248, Green: 249, Blue: 250}
	percent = decimal.NewFromInt(100)
)

// QuotePDF renders q as an A4 PDF headed by companyName.
func QuotePDF(q *core.Quote, companyName string) ([]byte, error) {
	cfg := config.NewBuilder().
		WithOrientation(orientation.Vertical).
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).
		WithTopMargin(10).
		WithRightMargin(10).
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
			Size:    7,
			Color:   &props.Color{Red: 120, Green: 120, Blue: 120},
		}).
		Build()

	m := maroto.New(cfg)

	addQuoteHeader(m, q, companyName)
	addQuoteLines(m, q)
	addQuoteTotals(m, q)
	if q.Notes != "" {
		m.AddRows(
			row.New(6).Add(col.New(12).Add(text.New("NOTES", props.Text{Size: 7, Style: fontstyle.Bold, Color: grey}))),
			row.New(10).Add(col.New(12).Add(text.New(q.Notes, props.Text{Size: 8}))),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate quote PDF: %w", err)
	}
	return doc.GetBytes(), nil
}

func addQuoteHeader(m mcore.Maroto, q *core.Quote, companyName string) {
	m.AddRows(
		row.New(10).Add(
			col.New(6).Add(text.New(companyName, props.Text{Size: 14, Style: fontstyle.Bold, Align: align.Left})),
			col.New(6).Add(text.New("QUOTE", props.Text{Size: 14, Style: fontstyle.Bold, Align: align.Right, Color: dark})),
		),
		row.New(7).Add(
			col.New(6).Add(text.New(fmt.Sprintf("%s (%s)", q.ClientName, q.ClientCode), props.Text{Size: 9, Style: fontstyle.Bold})),
			col.New(6).Add(text.New(fmt.Sprintf("No. %s", q.Number), props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right})),
		),
		row.New(6).Add(
			col.New(6),
			col.New(6).Add(text.New(fmt.Sprintf("Date: %s  Status: %s", q.QuoteDate, q.Status), props.Text{Size: 8, Align: align.Right, Color: grey})),
		),
		row.New(4),
	)
}

func addQuoteLines(m mcore.Maroto, q *core.Quote) {
	headerText := props.Text{Size: 7, Style: fontstyle.Bold, Align: align.Center, Color: white}
	headerLeft := headerText
	headerLeft.Align = align.Left
	headerCell := &props.Cell{BackgroundColor: dark}

	m.AddRows(
		row.New(8).Add(
			col.New(1).Add(text.New("#", headerText)).WithStyle(headerCell),
			col.New(2).Add(text.New("Code", headerLeft)).WithStyle(headerCell),
			col.New(4).Add(text.New("Description", headerLeft)).WithStyle(headerCell),
			col.New(1).Add(text.New("Qty", headerText)).WithStyle(headerCell),
			col.New(2).Add(text.New("Unit price", headerText)).WithStyle(headerCell),
			col.New(2).Add(text.New("Total", headerText)).WithStyle(headerCell),
		),
	)

	center := props.Text{Size: 7, Align: align.Center}
	left := props.Text{Size: 7, Align: align.Left}
	right := props.Text{Size: 7, Align: align.Right}

	for i, l := range q.Lines {
		cols := []mcore.Col{
			col.New(1).Add(text.New(fmt.Sprintf("%d", l.LineNumber), center)),
			col.New(2).Add(text.New(l.ProductCode, left)),
			col.New(4).Add(text.New(l.ProductName, left)),
			col.New(1).Add(text.New(l.Quantity.String(), right)),
			col.New(2).Add(text.New(Money(l.UnitPrice), right)),
			col.New(2).Add(text.New(Money(l.LineTotal), right)),
		}
		if i%2 == 1 {
			for j := range cols {
				cols[j] = cols[j].WithStyle(&props.Cell{BackgroundColor: stripe})
			}
		}
		m.AddRows(row.New(7).Add(cols...))
	}
	m.AddRows(row.New(4))
}

func addQuoteTotals(m mcore.Maroto, q *core.Quote) {
	label := props.Text{Size: 8, Style: fontstyle.Bold, Align: align.Right, Color: grey}
	value := props.Text{Size: 8, Align: align.Right}

	taxLabel := fmt.Sprintf("Tax (%s%%)", q.TaxRate.Mul(percent).StringFixed(2))
	for _, r := range []struct {
		label string
		value decimal.Decimal
	}{
		{"Subtotal", q.Subtotal},
		{taxLabel, q.Tax},
		{"Total", q.Total},
	} {
		m.AddRows(row.New(6).Add(
			col.New(8),
			col.New(2).Add(text.New(r.label, label)),
			col.New(2).Add(text.New(Money(r.value), value)),
		))
	}
	m.AddRows(row.New(4))
}

// Money formats an amount with two decimals and thousands separators.
func Money(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := false
	if s[0] == '-' {
		neg = true
		s = s[1:]
	}
	intPart, frac := s[:len(s)-3], s[len(s)-3:]

	var out []byte
	for i := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, intPart[i])
	}
	if neg {
		return "-" + string(out) + frac
	}
	return string(out) + frac
}
