package core

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// RateEntry is the price and weight of one material at one thickness.
type RateEntry struct {
	ID         int             `json:"id"`
	Material   string          `json:"material"`
	Thickness  decimal.Decimal `json:"thickness"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	UnitWeight decimal.Decimal `json:"unit_weight"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// RateInput upserts a rate entry keyed by (Material, Thickness).
type RateInput struct {
	Material   string
	Thickness  decimal.Decimal
	UnitPrice  decimal.Decimal
	UnitWeight decimal.Decimal
}

func (in RateInput) Validate() error {
	return fromValidation(validation.ValidateStruct(&in,
		validation.Field(&in.Material, validation.Required, validation.Length(1, 80)),
		validation.Field(&in.Thickness, validation.By(positiveDecimal)),
		validation.Field(&in.UnitPrice, validation.By(nonNegativeDecimal)),
		validation.Field(&in.UnitWeight, validation.By(nonNegativeDecimal)),
	))
}

// AllMaterials is the bulk adjust filter that selects every rate entry.
const AllMaterials = "ALL"

// BulkAdjustResult reports what a bulk adjust changed.
type BulkAdjustResult struct {
	Material   string          `json:"material"`
	Percentage decimal.Decimal `json:"percentage"`
	Factor     decimal.Decimal `json:"factor"`
	Affected   int64           `json:"affected"`
}

// RateService manages the material × thickness rate table.
type RateService interface {
	// ListRates returns entries ordered by material then thickness; an empty
	// material returns all.
	ListRates(ctx context.Context, material string) ([]RateEntry, error)
	UpsertRate(ctx context.Context, input RateInput) (*RateEntry, error)
	DeleteRate(ctx context.Context, id int) error
	// BulkAdjust multiplies the price of every entry of material (or of all
	// entries for "ALL") by 1 + percentage/100 in one transaction. Resulting
	// prices are not floored: below -100% they go negative.
	BulkAdjust(ctx context.Context, material string, percentage decimal.Decimal) (*BulkAdjustResult, error)
}
