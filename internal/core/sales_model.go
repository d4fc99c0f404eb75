package core

import (
	"context"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// QuoteStatus values. A quote moves
//
//	DRAFT → SENT → ACCEPTED | REJECTED
//	DRAFT | SENT | ACCEPTED → CONVERTED (via ConvertQuote only)
const (
	QuoteDraft     = "DRAFT"
	QuoteSent      = "SENT"
	QuoteAccepted  = "ACCEPTED"
	QuoteRejected  = "REJECTED"
	QuoteConverted = "CONVERTED"
)

// OrderStatus values. An order moves
//
//	PENDING → CONFIRMED → IN_PRODUCTION → DELIVERED
//	PENDING | CONFIRMED → CANCELLED
const (
	OrderPending      = "PENDING"
	OrderConfirmed    = "CONFIRMED"
	OrderInProduction = "IN_PRODUCTION"
	OrderDelivered    = "DELIVERED"
	OrderCancelled    = "CANCELLED"
)

var quoteTransitions = map[string][]string{
	QuoteDraft:    {QuoteSent, QuoteAccepted, QuoteRejected},
	QuoteSent:     {QuoteDraft, QuoteAccepted, QuoteRejected},
	QuoteRejected: {QuoteDraft},
}

var orderTransitions = map[string][]string{
	OrderPending:      {OrderConfirmed, OrderCancelled},
	OrderConfirmed:    {OrderInProduction, OrderCancelled},
	OrderInProduction: {OrderDelivered},
}

func canTransition(table map[string][]string, from, to string) bool {
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Line is one priced line of a quote or order.
type Line struct {
	ID          int             `json:"id"`
	LineNumber  int             `json:"line_number"`
	ProductID   int             `json:"product_id"`
	ProductCode string          `json:"product_code"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
	PriceSource PriceSource     `json:"price_source"`
}

// Quote is a priced offer to a client, numbered <year>-<NNN>.
type Quote struct {
	ID         int             `json:"id"`
	Number     string          `json:"number"`
	ClientID   int             `json:"client_id"`
	ClientCode string          `json:"client_code"`
	ClientName string          `json:"client_name"`
	Status     string          `json:"status"`
	QuoteDate  string          `json:"quote_date"` // YYYY-MM-DD
	TaxRate    decimal.Decimal `json:"tax_rate"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Tax        decimal.Decimal `json:"tax"`
	Total      decimal.Decimal `json:"total"`
	Notes      string          `json:"notes"`
	Lines      []Line          `json:"lines"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Order is a confirmed sale, numbered <year>-<NNN> in its own sequence.
type Order struct {
	ID         int             `json:"id"`
	Number     string          `json:"number"`
	ClientID   int             `json:"client_id"`
	ClientCode string          `json:"client_code"`
	ClientName string          `json:"client_name"`
	QuoteID    *int            `json:"quote_id,omitempty"`
	Status     string          `json:"status"`
	OrderDate  string          `json:"order_date"` // YYYY-MM-DD
	TaxRate    decimal.Decimal `json:"tax_rate"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Tax        decimal.Decimal `json:"tax"`
	Total      decimal.Decimal `json:"total"`
	Notes      string          `json:"notes"`
	Lines      []Line          `json:"lines"`
	CreatedAt  time.Time       `json:"created_at"`
}

// LineInput requests one line. A positive UnitPrice is used as-is instead of
// the pricing engine.
type LineInput struct {
	ProductID int
	Quantity  decimal.Decimal
	UnitPrice *decimal.Decimal
}

func (in LineInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.ProductID, validation.Required, validation.Min(1)),
		validation.Field(&in.Quantity, validation.By(positiveDecimal)),
		validation.Field(&in.UnitPrice, validation.By(nonNegativeDecimalPtr)),
	)
}

// DocumentInput is the payload for a new quote or order. Date defaults to today.
type DocumentInput struct {
	ClientID int
	Date     string
	Notes    string
	Lines    []LineInput
}

func (in DocumentInput) Validate() error {
	return fromValidation(validation.ValidateStruct(&in,
		validation.Field(&in.ClientID, validation.Required, validation.Min(1)),
		validation.Field(&in.Date, validation.Date("2006-01-02")),
		validation.Field(&in.Lines, validation.Required),
	))
}

// documentDate resolves the effective date and its year.
func (in DocumentInput) documentDate(now time.Time) (string, int) {
	if in.Date == "" {
		return now.Format("2006-01-02"), now.Year()
	}
	t, err := time.Parse("2006-01-02", in.Date)
	if err != nil {
		return now.Format("2006-01-02"), now.Year()
	}
	return in.Date, t.Year()
}

// SalesService owns quotes and orders: pricing their lines, numbering, and
// their status lifecycles.
type SalesService interface {
	// CreateQuote prices every line, computes totals at the current tax rate and
	// assigns the next quote number, all in one transaction.
	CreateQuote(ctx context.Context, input DocumentInput) (*Quote, error)
	GetQuote(ctx context.Context, id int) (*Quote, error)
	GetQuoteByNumber(ctx context.Context, number string) (*Quote, error)
	ListQuotes(ctx context.Context, status *string) ([]Quote, error)
	SetQuoteStatus(ctx context.Context, id int, status string) (*Quote, error)
	// DeleteQuote removes a DRAFT quote. Other statuses fail with ErrConflict.
	DeleteQuote(ctx context.Context, id int) error
	// ConvertQuote copies a quote's lines and totals into a new PENDING order
	// and marks the quote CONVERTED.
	ConvertQuote(ctx context.Context, id int) (*Order, error)

	CreateOrder(ctx context.Context, input DocumentInput) (*Order, error)
	GetOrder(ctx context.Context, id int) (*Order, error)
	GetOrderByNumber(ctx context.Context, number string) (*Order, error)
	ListOrders(ctx context.Context, status *string) ([]Order, error)
	SetOrderStatus(ctx context.Context, id int, status string) (*Order, error)
}

func nonNegativeDecimalPtr(value any) error {
	d, ok := value.(*decimal.Decimal)
	if !ok || d == nil {
		return nil
	}
	return nonNegativeDecimal(*d)
}

func invalidTransition(what string, id int, from, to string) error {
	return fmt.Errorf("%w: %s %d cannot move from %s to %s", ErrConflict, what, id, from, to)
}
