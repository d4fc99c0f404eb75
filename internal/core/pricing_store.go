package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type pgPricingStore struct {
	q Querier
}

// NewPricingStore returns a PricingStore reading through q. Pass a pgx.Tx to
// price lines inside the same transaction that persists them.
func NewPricingStore(q Querier) PricingStore {
	return &pgPricingStore{q: q}
}

func (s *pgPricingStore) Product(ctx context.Context, id int) (*Product, error) {
	return getProduct(ctx, s.q, id)
}

func (s *pgPricingStore) Client(ctx context.Context, id int) (*Client, error) {
	return getClient(ctx, s.q, id)
}

func (s *pgPricingStore) SpecialPrice(ctx context.Context, clientID, productID int) (*decimal.Decimal, error) {
	var price decimal.Decimal
	err := s.q.QueryRow(ctx, `
		SELECT price FROM special_prices
		WHERE client_id = $1 AND product_id = $2 AND is_active`,
		clientID, productID,
	).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translateDBError(err, "special price")
	}
	return &price, nil
}

func (s *pgPricingStore) RatePrice(ctx context.Context, material string, thickness decimal.Decimal) (*decimal.Decimal, error) {
	var price decimal.Decimal
	err := s.q.QueryRow(ctx, `
		SELECT unit_price FROM rate_entries
		WHERE material = $1 AND thickness = $2`,
		material, thickness,
	).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translateDBError(err, fmt.Sprintf("rate for %s %s", material, thickness))
	}
	return &price, nil
}

func (s *pgPricingStore) MarginRules(ctx context.Context) ([]MarginRule, error) {
	return listMarginRules(ctx, s.q)
}

func (s *pgPricingStore) ActiveDiscountRules(ctx context.Context) ([]DiscountRule, error) {
	return listDiscountRules(ctx, s.q, true, nil)
}
