package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type supplierService struct {
	pool *pgxpool.Pool
}

// NewSupplierService constructs a SupplierService backed by PostgreSQL.
func NewSupplierService(pool *pgxpool.Pool) SupplierService {
	return &supplierService{pool: pool}
}

const supplierColumns = `id, code, name, contact_person, email, phone, address,
	payment_terms_days, is_active, created_at`

func scanSupplier(row pgx.Row) (*Supplier, error) {
	v := &Supplier{}
	err := row.Scan(
		&v.ID, &v.Code, &v.Name,
		&v.ContactPerson, &v.Email, &v.Phone, &v.Address,
		&v.PaymentTermsDays, &v.IsActive, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// CreateSupplier inserts a new supplier record.
func (s *supplierService) CreateSupplier(ctx context.Context, input SupplierInput) (*Supplier, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	paymentTerms := input.PaymentTermsDays
	if paymentTerms == 0 {
		paymentTerms = 30
	}

	toPtr := func(s string) *string {
		if s == "" {
			return nil
		}
		return &s
	}

	v, err := scanSupplier(s.pool.QueryRow(ctx, `
		INSERT INTO suppliers (code, name, contact_person, email, phone, address, payment_terms_days)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+supplierColumns,
		input.Code, input.Name, toPtr(input.ContactPerson), toPtr(input.Email),
		toPtr(input.Phone), toPtr(input.Address), paymentTerms,
	))
	if err != nil {
		return nil, translateDBError(err, fmt.Sprintf("supplier %q", input.Code))
	}
	return v, nil
}

// ListSuppliers returns all active suppliers, ordered by code.
func (s *supplierService) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+supplierColumns+`
		FROM suppliers
		WHERE is_active = true
		ORDER BY code`)
	if err != nil {
		return nil, translateDBError(err, "suppliers")
	}
	defer rows.Close()

	suppliers := []Supplier{}
	for rows.Next() {
		v, err := scanSupplier(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan supplier: %v", ErrInternal, err)
		}
		suppliers = append(suppliers, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, translateDBError(err, "suppliers")
	}
	return suppliers, nil
}

// GetSupplierByCode returns a supplier by code, active or not.
func (s *supplierService) GetSupplierByCode(ctx context.Context, code string) (*Supplier, error) {
	v, err := scanSupplier(s.pool.QueryRow(ctx, `
		SELECT `+supplierColumns+`
		FROM suppliers
		WHERE code = $1`,
		code,
	))
	if err != nil {
		return nil, translateDBError(err, fmt.Sprintf("supplier %q", code))
	}
	return v, nil
}

func (s *supplierService) DeactivateSupplier(ctx context.Context, code string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE suppliers SET is_active = false WHERE code = $1`, code)
	if err != nil {
		return translateDBError(err, fmt.Sprintf("supplier %q", code))
	}
	if tag.RowsAffected() == 0 {
		return notFoundf("supplier %q not found", code)
	}
	return nil
}
