package core

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// SpecialPrice is a negotiated unit price for one client and one product. While
// active it replaces margin and discount resolution for that pair.
type SpecialPrice struct {
	ID          int             `json:"id"`
	ClientID    int             `json:"client_id"`
	ClientCode  string          `json:"client_code"`
	ProductID   int             `json:"product_id"`
	ProductCode string          `json:"product_code"`
	Price       decimal.Decimal `json:"price"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SpecialPriceInput creates an active special price.
type SpecialPriceInput struct {
	ClientID  int
	ProductID int
	Price     decimal.Decimal
}

func (in SpecialPriceInput) Validate() error {
	return fromValidation(validation.ValidateStruct(&in,
		validation.Field(&in.ClientID, validation.Required, validation.Min(1)),
		validation.Field(&in.ProductID, validation.Required, validation.Min(1)),
		validation.Field(&in.Price, validation.By(nonNegativeDecimal)),
	))
}
