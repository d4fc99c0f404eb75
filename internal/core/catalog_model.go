package core

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/shopspring/decimal"
)

// Client is a customer of the workshop. Tier is matched exactly by CLIENT_TIER margin rules.
type Client struct {
	ID        int       `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Tier      string    `json:"tier"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	TaxID     string    `json:"tax_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ClientInput holds the editable client fields.
type ClientInput struct {
	Code  string
	Name  string
	Tier  string
	Email string
	Phone string
	TaxID string
}

func (in ClientInput) Validate() error {
	return fromValidation(validation.ValidateStruct(&in,
		validation.Field(&in.Code, validation.Required, validation.Length(1, 20)),
		validation.Field(&in.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Tier, validation.Length(0, 40)),
		validation.Field(&in.Email, is.EmailFormat, validation.Length(0, 200)),
		validation.Field(&in.Phone, validation.Length(0, 40)),
		validation.Field(&in.TaxID, validation.Length(0, 40)),
	))
}

// Product is a catalog item. Its base cost for pricing is UnitCost when positive,
// otherwise the rate table price for Material × Thickness.
type Product struct {
	ID        int              `json:"id"`
	Code      string           `json:"code"`
	Name      string           `json:"name"`
	Material  string           `json:"material"`
	Category  string           `json:"category"`
	Thickness *decimal.Decimal `json:"thickness,omitempty"`
	UnitCost  decimal.Decimal  `json:"unit_cost"`
	Unit      string           `json:"unit"`
	IsActive  bool             `json:"is_active"`
	CreatedAt time.Time        `json:"created_at"`
}

// ProductInput holds the editable product fields.
type ProductInput struct {
	Code      string
	Name      string
	Material  string
	Category  string
	Thickness *decimal.Decimal
	UnitCost  decimal.Decimal
	Unit      string
	IsActive  bool
}

func (in ProductInput) Validate() error {
	return fromValidation(validation.ValidateStruct(&in,
		validation.Field(&in.Code, validation.Required, validation.Length(1, 40)),
		validation.Field(&in.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Material, validation.Length(0, 80)),
		validation.Field(&in.Category, validation.Length(0, 80)),
		validation.Field(&in.Thickness, validation.When(in.Thickness != nil, validation.By(positiveDecimalPtr))),
		validation.Field(&in.UnitCost, validation.By(nonNegativeDecimal)),
		validation.Field(&in.Unit, validation.Length(0, 20)),
	))
}

// CatalogService manages clients and products.
type CatalogService interface {
	ListClients(ctx context.Context) ([]Client, error)
	GetClient(ctx context.Context, id int) (*Client, error)
	CreateClient(ctx context.Context, input ClientInput) (*Client, error)
	UpdateClient(ctx context.Context, id int, input ClientInput) (*Client, error)
	// DeleteClient fails with ErrConflict while quotes, orders or special prices reference the client.
	DeleteClient(ctx context.Context, id int) error

	// ListProducts returns products ordered by code; activeOnly hides retired items.
	ListProducts(ctx context.Context, activeOnly bool) ([]Product, error)
	GetProduct(ctx context.Context, id int) (*Product, error)
	CreateProduct(ctx context.Context, input ProductInput) (*Product, error)
	UpdateProduct(ctx context.Context, id int, input ProductInput) (*Product, error)
	DeleteProduct(ctx context.Context, id int) error
}

func positiveDecimalPtr(value any) error {
	d, ok := value.(*decimal.Decimal)
	if !ok || d == nil {
		return nil
	}
	return positiveDecimal(*d)
}
