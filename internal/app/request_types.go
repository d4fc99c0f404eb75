package app

import (
	"workshop-manager/internal/core"

	"github.com/shopspring/decimal"
)

// CreateDocumentRequest is the input for creating a quote or an order.
type CreateDocumentRequest struct {
	ClientID int
	Date     string // YYYY-MM-DD; empty means today
	Notes    string
	Lines    []LineRequest
}

// LineRequest is a single line within a CreateDocumentRequest.
type LineRequest struct {
	ProductID int
	Quantity  decimal.Decimal
	UnitPrice *decimal.Decimal // nil or zero means "price with the engine"
}

func (r CreateDocumentRequest) input() core.DocumentInput {
	lines := make([]core.LineInput, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = core.LineInput{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		}
	}
	return core.DocumentInput{
		ClientID: r.ClientID,
		Date:     r.Date,
		Notes:    r.Notes,
		Lines:    lines,
	}
}

// BulkAdjustRequest is the input for a bulk rate adjustment.
type BulkAdjustRequest struct {
	Material   string // a material name or "ALL"
	Percentage decimal.Decimal
}

// PriceLineRequest asks for the price of one product for one client.
type PriceLineRequest struct {
	ProductID int
	ClientID  int
	Quantity  decimal.Decimal
}

// TotalsRequest is a set of lines to total at the current tax rate.
type TotalsRequest struct {
	Lines []core.TotalsLine
}
