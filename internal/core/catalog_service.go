package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type catalogService struct {
	pool *pgxpool.Pool
}

// NewCatalogService constructs a CatalogService backed by PostgreSQL.
func NewCatalogService(pool *pgxpool.Pool) CatalogService {
	return &catalogService{pool: pool}
}

const clientColumns = `id, code, name, tier, email, phone, tax_id, created_at`

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.Tier, &c.Email, &c.Phone, &c.TaxID, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ── Clients ──────────────────────────────────────────────────────────────────

func (s *catalogService) ListClients(ctx context.Context) ([]Client, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY code`)
	if err != nil {
		return nil, translateDBError(err, "clients")
	}
	defer rows.Close()

	clients := []Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan client: %v", ErrInternal, err)
		}
		clients = append(clients, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, translateDBError(err, "clients")
	}
	return clients, nil
}

func (s *catalogService) GetClient(ctx context.Context, id int) (*Client, error) {
	return getClient(ctx, s.pool, id)
}

func getClient(ctx context.Context, q Querier, id int) (*Client, error) {
	c, err := scanClient(q.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
	if err != nil {
		return nil, translateDBError(err, fmt.Sprintf("client %d", id))
	}
	return c, nil
}

func (s *catalogService) CreateClient(ctx context.Context, input ClientInput) (*Client, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	c, err := scanClient(s.pool.QueryRow(ctx, `
		INSERT INTO clients (code, name, tier, email, phone, tax_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+clientColumns,
		input.Code, input.Name, input.Tier, input.Email, input.Phone, input.TaxID,
	))
	if err != nil {
		return nil, translateDBError(err, fmt.Sprintf("client %q", input.Code))
	}
	return c, nil
}

func (s *catalogService) UpdateClient(ctx context.Context, id int, input ClientInput) (*Client, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	c, err := scanClient(s.pool.QueryRow(ctx, `
		UPDATE clients
		SET code = $2, name = $3, tier = $4, email = $5, phone = $6, tax_id = $7
		WHERE id = $1
		RETURNING `+clientColumns,
		id, input.Code, input.Name, input.Tier, input.Email, input.Phone, input.TaxID,
	))
	if err != nil {
		return nil, translateDBError(err, fmt.Sprintf("client %d", id))
	}
	return c, nil
}

func (s *catalogService) DeleteClient(ctx context.Context, id int) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return translateDBError(err, fmt.Sprintf("client %d", id))
	}
	if tag.RowsAffected() == 0 {
		return notFoundf("client %d not found", id)
	}
	return nil
}

// ── Products ─────────────────────────────────────────────────────────────────

const productColumns = `id, code, name, material, category, thickness, unit_cost, unit, is_active, created_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Material, &p.Category, &p.Thickness,
		&p.UnitCost, &p.Unit, &p.IsActive, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *catalogService) ListProducts(ctx context.Context, activeOnly bool) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	if activeOnly {
		query += ` WHERE is_active = true`
	}
	query += ` ORDER BY code`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, translateDBError(err, "products")
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan product: %v", ErrInternal, err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, translateDBError(err, "products")
	}
	return products, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id int) (*Product, error) {
	return getProduct(ctx, s.pool, id)
}

func getProduct(ctx context.Context, q Querier, id int) (*Product, error) {
	p, err := scanProduct(q.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		return nil, translateDBError(err, fmt.Sprintf("product %d", id))
	}
	return p, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, input ProductInput) (*Product, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	unit := input.Unit
	if unit == "" {
		unit = "unit"
	}
	p, err := scanProduct(s.pool.QueryRow(ctx, `
		INSERT INTO products (code, name, material, category, thickness, unit_cost, unit, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+productColumns,
		input.Code, input.Name, input.Material, input.Category, input.Thickness,
		input.UnitCost, unit, input.IsActive,
	))
	if err != nil {
		return nil, translateDBError(err, fmt.Sprintf("product %q", input.Code))
	}
	return p, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, id int, input ProductInput) (*Product, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	unit := input.Unit
	if unit == "" {
		unit = "unit"
	}
	p, err := scanProduct(s.pool.QueryRow(ctx, `
		UPDATE products
		SET code = $2, name = $3, material = $4, category = $5, thickness = $6,
		    unit_cost = $7, unit = $8, is_active = $9
		WHERE id = $1
		RETURNING `+productColumns,
		id, input.Code, input.Name, input.Material, input.Category, input.Thickness,
		input.UnitCost, unit, input.IsActive,
	))
	if err != nil {
		return nil, translateDBError(err, fmt.Sprintf("product %d", id))
	}
	return p, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, id int) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return translateDBError(err, fmt.Sprintf("product %d", id))
	}
	if tag.RowsAffected() == 0 {
		return notFoundf("product %d not found", id)
	}
	return nil
}
