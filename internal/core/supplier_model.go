package core

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Supplier is a material or service provider of the workshop.
type Supplier struct {
	ID               int       `json:"id"`
	Code             string    `json:"code"`
	Name             string    `json:"name"`
	ContactPerson    *string   `json:"contact_person,omitempty"`
	Email            *string   `json:"email,omitempty"`
	Phone            *string   `json:"phone,omitempty"`
	Address          *string   `json:"address,omitempty"`
	PaymentTermsDays int       `json:"payment_terms_days"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
}

// SupplierInput holds the fields required to create a new supplier.
type SupplierInput struct {
	Code             string
	Name             string
	ContactPerson    string
	Email            string
	Phone            string
	Address          string
	PaymentTermsDays int
}

func (in SupplierInput) Validate() error {
	return fromValidation(validation.ValidateStruct(&in,
		validation.Field(&in.Code, validation.Required, validation.Length(1, 20)),
		validation.Field(&in.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Email, is.EmailFormat),
		validation.Field(&in.PaymentTermsDays, validation.Min(0), validation.Max(365)),
	))
}

// SupplierService provides supplier master data operations.
type SupplierService interface {
	// CreateSupplier creates a new supplier. Payment terms default to 30 days.
	CreateSupplier(ctx context.Context, input SupplierInput) (*Supplier, error)

	// ListSuppliers returns all active suppliers ordered by code.
	ListSuppliers(ctx context.Context) ([]Supplier, error)

	// GetSupplierByCode returns a specific supplier by its code.
	GetSupplierByCode(ctx context.Context, code string) (*Supplier, error)

	// DeactivateSupplier hides a supplier from listings without deleting its history.
	DeactivateSupplier(ctx context.Context, code string) error
}
