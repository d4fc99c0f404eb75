package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx, so stores can run
// standalone or inside a caller's transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PriceSource records which step produced a line's unit price.
type PriceSource string

const (
	PriceSpecial PriceSource = "SPECIAL"
	PriceMargin  PriceSource = "MARGIN"
	PriceManual  PriceSource = "MANUAL"
	PriceCost    PriceSource = "COST"
)

// PricingStore is everything the engine reads. The Postgres implementation is
// returned by NewPricingStore; tests use an in-memory one.
type PricingStore interface {
	Product(ctx context.Context, id int) (*Product, error)
	Client(ctx context.Context, id int) (*Client, error)
	// SpecialPrice returns the active negotiated price for the pair, or nil.
	SpecialPrice(ctx context.Context, clientID, productID int) (*decimal.Decimal, error)
	// RatePrice returns the rate table price for material × thickness, or nil.
	RatePrice(ctx context.Context, material string, thickness decimal.Decimal) (*decimal.Decimal, error)
	// MarginRules returns all rules in id order.
	MarginRules(ctx context.Context) ([]MarginRule, error)
	// ActiveDiscountRules returns active rules in id order with ascending tiers.
	ActiveDiscountRules(ctx context.Context) ([]DiscountRule, error)
}

// PriceRequest asks for the unit price of one product for one client.
type PriceRequest struct {
	ProductID int
	ClientID  int
	Quantity  decimal.Decimal
}

// PriceBreakdown shows how a unit price was reached.
type PriceBreakdown struct {
	ProductID    int             `json:"product_id"`
	ClientID     int             `json:"client_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	Source       PriceSource     `json:"source"`
	BaseCost     decimal.Decimal `json:"base_cost"`
	MarginRuleID *int            `json:"margin_rule_id,omitempty"`
	BasePrice    decimal.Decimal `json:"base_price"`
	DiscountRule *int            `json:"discount_rule_id,omitempty"`
	Discount     *DiscountTier   `json:"discount,omitempty"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	LineTotal    decimal.Decimal `json:"line_total"`
}

// PricingEngine resolves unit prices: special price, then margin on cost, then discount.
type PricingEngine struct {
	store PricingStore
}

// NewPricingEngine returns an engine reading from store.
func NewPricingEngine(store PricingStore) *PricingEngine {
	return &PricingEngine{store: store}
}

// PriceLine prices a single line. An active special price is returned verbatim
// and skips margin and discount resolution entirely.
func (e *PricingEngine) PriceLine(ctx context.Context, req PriceRequest) (*PriceBreakdown, error) {
	if req.Quantity.IsNegative() {
		return nil, &ValidationError{
			Message: "quantity must not be negative",
			Fields:  FieldErrors{"quantity": "must not be negative"},
		}
	}

	product, err := e.store.Product(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	client, err := e.store.Client(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}

	out := &PriceBreakdown{
		ProductID: product.ID,
		ClientID:  client.ID,
		Quantity:  req.Quantity,
	}

	special, err := e.store.SpecialPrice(ctx, client.ID, product.ID)
	if err != nil {
		return nil, err
	}
	if special != nil {
		out.Source = PriceSpecial
		out.BasePrice = *special
		out.UnitPrice = *special
		out.LineTotal = Round2(req.Quantity.Mul(*special))
		return out, nil
	}

	cost, err := e.baseCost(ctx, product)
	if err != nil {
		return nil, err
	}
	out.BaseCost = cost

	rules, err := e.store.MarginRules(ctx)
	if err != nil {
		return nil, err
	}
	rule := ResolveMargin(rules, MarginQuery{
		Material:   product.Material,
		Category:   product.Category,
		ClientTier: client.Tier,
	})
	out.Source = PriceCost
	if rule != nil {
		out.Source = PriceMargin
		id := rule.ID
		out.MarginRuleID = &id
	}
	out.BasePrice = SalePrice(cost, rule)

	discounts, err := e.store.ActiveDiscountRules(ctx)
	if err != nil {
		return nil, err
	}
	price := out.BasePrice
	for _, d := range discounts {
		basis := req.Quantity
		if d.Basis == DiscountByValue {
			basis = req.Quantity.Mul(out.BasePrice)
		}
		if tier := ResolveDiscount(d.Tiers, basis); tier != nil {
			id := d.ID
			out.DiscountRule = &id
			out.Discount = tier
			price = ApplyDiscount(price, tier)
			break
		}
	}

	out.UnitPrice = Round2(price)
	out.LineTotal = Round2(req.Quantity.Mul(out.UnitPrice))
	return out, nil
}

// baseCost is the product's own unit cost when set, else its rate table price.
func (e *PricingEngine) baseCost(ctx context.Context, p *Product) (decimal.Decimal, error) {
	if p.UnitCost.IsPositive() {
		return p.UnitCost, nil
	}
	if p.Thickness != nil && p.Material != "" {
		rate, err := e.store.RatePrice(ctx, p.Material, *p.Thickness)
		if err != nil {
			return decimal.Zero, err
		}
		if rate != nil {
			return *rate, nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w: no cost for product %s: set a unit cost or a rate for its material and thickness", ErrNotFound, p.Code)
}
