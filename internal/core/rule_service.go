package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// RuleService is the administrative side of pricing: margin rules, discount
// rules with their tiers, and special prices. Reads at pricing time go through
// PricingStore instead.
type RuleService interface {
	ListMarginRules(ctx context.Context) ([]MarginRule, error)
	GetMarginRule(ctx context.Context, id int) (*MarginRule, error)
	// CreateMarginRule fails with ErrValidation for a non-positive multiplier and
	// ErrConflict when a rule with the same kind and filter already exists.
	CreateMarginRule(ctx context.Context, input MarginRuleInput) (*MarginRule, error)
	UpdateMarginRule(ctx context.Context, id int, input MarginRuleInput) (*MarginRule, error)
	DeleteMarginRule(ctx context.Context, id int) error

	ListDiscountRules(ctx context.Context) ([]DiscountRule, error)
	GetDiscountRule(ctx context.Context, id int) (*DiscountRule, error)
	CreateDiscountRule(ctx context.Context, input DiscountRuleInput) (*DiscountRule, error)
	// UpdateDiscountRule replaces the rule and all of its tiers atomically.
	UpdateDiscountRule(ctx context.Context, id int, input DiscountRuleInput) (*DiscountRule, error)
	DeleteDiscountRule(ctx context.Context, id int) error

	// ListSpecialPrices returns active special prices, optionally for one client.
	ListSpecialPrices(ctx context.Context, clientID *int) ([]SpecialPrice, error)
	// CreateSpecialPrice fails with ErrConflict if the pair already has an active price.
	CreateSpecialPrice(ctx context.Context, input SpecialPriceInput) (*SpecialPrice, error)
	DeleteSpecialPrice(ctx context.Context, id int) error
}

type ruleService struct {
	pool *pgxpool.Pool
}

// NewRuleService constructs a RuleService backed by PostgreSQL.
func NewRuleService(pool *pgxpool.Pool) RuleService {
	return &ruleService{pool: pool}
}

// ── Margin rules ─────────────────────────────────────────────────────────────

const marginColumns = `id, description, kind, category, client_tier, multiplier, surcharge, created_at`

func scanMarginRule(row pgx.Row) (*MarginRule, error) {
	var r MarginRule
	err := row.Scan(&r.ID, &r.Description, &r.Kind, &r.Category, &r.ClientTier,
		&r.Multiplier, &r.Surcharge, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// listMarginRules returns every rule in id order, which is the tie-break order
// ResolveMargin relies on.
func listMarginRules(ctx context.Context, q Querier) ([]MarginRule, error) {
	rows, err := q.Query(ctx, `SELECT `+marginColumns+` FROM margin_rules ORDER BY id`)
	if err != nil {
		return nil, translateDBError(err, "margin rules")
	}
	defer rows.Close()

	rules := []MarginRule{}
	for rows.Next() {
		r, err := scanMarginRule(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan margin rule: %v", ErrInternal, err)
		}
		rules = append(rules, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, translateDBError(err, "margin rules")
	}
	return rules, nil
}

func (s *ruleService) ListMarginRules(ctx context.Context) ([]MarginRule, error) {
	return listMarginRules(ctx, s.pool)
}

func (s *ruleService) GetMarginRule(ctx context.Context, id int) (*MarginRule, error) {
	r, err := scanMarginRule(s.pool.QueryRow(ctx, `SELECT `+marginColumns+` FROM margin_rules WHERE id = $1`, id))
	if err != nil {
		return nil, translateDBError(err, fmt.Sprintf("margin rule %d", id))
	}
	return r, nil
}

// marginFilters maps the input onto the nullable filter columns.
func marginFilters(input MarginRuleInput) (category, tier *string) {
	if input.Kind == MarginCategory {
		category = &input.Category
	}
	if input.Kind == MarginClientTier {
		tier = &input.ClientTier
	}
	return category, tier
}

func (s *ruleService) CreateMarginRule(ctx context.Context, input MarginRuleInput) (*MarginRule, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	category, tier := marginFilters(input)

	r, err := scanMarginRule(s.pool.QueryRow(ctx, `
		INSERT INTO margin_rules (description, kind, category, client_tier, multiplier, surcharge)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+marginColumns,
		input.Description, string(input.Kind), category, tier, input.Multiplier, input.Surcharge,
	))
	if err != nil {
		return nil, translateDBError(err, fmt.Sprintf("%s margin rule", input.Kind))
	}
	log.Info().Int("id", r.ID).Str("kind", string(r.Kind)).Str("multiplier", r.Multiplier.String()).Msg("margin rule created")
	return r, nil
}

func (s *ruleService) UpdateMarginRule(ctx context.Context, id int, input MarginRuleInput) (*MarginRule, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	category, tier := marginFilters(input)

	r, err := scanMarginRule(s.pool.QueryRow(ctx, `
		UPDATE margin_rules
		SET description = $2, kind = $3, category = $4, client_tier = $5, multiplier = $6, surcharge = $7
		WHERE id = $1
		RETURNING `+marginColumns,
		id, input.Description, string(input.Kind), category, tier, input.Multiplier, input.Surcharge,
	))
	if err != nil {
		return nil, translateDBError(err, fmt.Sprintf("margin rule %d", id))
	}
	return r, nil
}

func (s *ruleService) DeleteMarginRule(ctx context.Context, id int) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM margin_rules WHERE id = $1`, id)
	if err != nil {
		return translateDBError(err, fmt.Sprintf("margin rule %d", id))
	}
	if tag.RowsAffected() == 0 {
		return notFoundf("margin rule %d not found", id)
	}
	return nil
}

// ── Discount rules ───────────────────────────────────────────────────────────

// listDiscountRules loads rules in id order with tiers ascending by threshold.
func listDiscountRules(ctx context.Context, q Querier, activeOnly bool, id *int) ([]DiscountRule, error) {
	query := `
		SELECT r.id, r.description, r.basis, r.is_active, r.created_at,
		       t.id, t.threshold, t.kind, t.value
		FROM discount_rules r
		LEFT JOIN discount_tiers t ON t.rule_id = r.id
		WHERE ($1 = false OR r.is_active)
		  AND ($2::int IS NULL OR r.id = $2)
		ORDER BY r.id, t.threshold`

	rows, err := q.Query(ctx, query, activeOnly, id)
	if err != nil {
		return nil, translateDBError(err, "discount rules")
	}
	defer rows.Close()

	rules := []DiscountRule{}
	for rows.Next() {
		var (
			r         DiscountRule
			tierID    *int
			threshold decimal.NullDecimal
			tierKind  *string
			value     decimal.NullDecimal
		)
		if err := rows.Scan(&r.ID, &r.Description, &r.Basis, &r.IsActive, &r.CreatedAt,
			&tierID, &threshold, &tierKind, &value); err != nil {
			return nil, fmt.Errorf("%w: scan discount rule: %v", ErrInternal, err)
		}
		if len(rules) == 0 || rules[len(rules)-1].ID != r.ID {
			r.Tiers = []DiscountTier{}
			rules = append(rules, r)
		}
		if tierID != nil {
			last := &rules[len(rules)-1]
			last.Tiers = append(last.Tiers, DiscountTier{
				ID:        *tierID,
				Threshold: threshold.Decimal,
				Kind:      DiscountKind(*tierKind),
				Value:     value.Decimal,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, translateDBError(err, "discount rules")
	}
	return rules, nil
}

func (s *ruleService) ListDiscountRules(ctx context.Context) ([]DiscountRule, error) {
	return listDiscountRules(ctx, s.pool, false, nil)
}

func (s *ruleService) GetDiscountRule(ctx context.Context, id int) (*DiscountRule, error) {
	rules, err := listDiscountRules(ctx, s.pool, false, &id)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, notFoundf("discount rule %d not found", id)
	}
	return &rules[0], nil
}

func (s *ruleService) CreateDiscountRule(ctx context.Context, input DiscountRuleInput) (*DiscountRule, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to begin transaction: %v", ErrInternal, err)
	}
	defer tx.Rollback(ctx)

	var id int
	err = tx.QueryRow(ctx, `
		INSERT INTO discount_rules (description, basis, is_active)
		VALUES ($1, $2, $3)
		RETURNING id`,
		input.Description, string(input.Basis), input.IsActive,
	).Scan(&id)
	if err != nil {
		return nil, translateDBError(err, "discount rule")
	}
	if err := insertDiscountTiers(ctx, tx, id, input); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: failed to commit discount rule: %v", ErrInternal, err)
	}
	return s.GetDiscountRule(ctx, id)
}

func (s *ruleService) UpdateDiscountRule(ctx context.Context, id int, input DiscountRuleInput) (*DiscountRule, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to begin transaction: %v", ErrInternal, err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE discount_rules SET description = $2, basis = $3, is_active = $4
		WHERE id = $1`,
		id, input.Description, string(input.Basis), input.IsActive,
	)
	if err != nil {
		return nil, translateDBError(err, fmt.Sprintf("discount rule %d", id))
	}
	if tag.RowsAffected() == 0 {
		return nil, notFoundf("discount rule %d not found", id)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM discount_tiers WHERE rule_id = $1`, id); err != nil {
		return nil, translateDBError(err, "discount tiers")
	}
	if err := insertDiscountTiers(ctx, tx, id, input); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: failed to commit discount rule: %v", ErrInternal, err)
	}
	return s.GetDiscountRule(ctx, id)
}

func insertDiscountTiers(ctx context.Context, tx pgx.Tx, ruleID int, input DiscountRuleInput) error {
	for i, t := range input.sortedTiers() {
		_, err := tx.Exec(ctx, `
			INSERT INTO discount_tiers (rule_id, threshold, kind, value)
			VALUES ($1, $2, $3, $4)`,
			ruleID, t.Threshold, string(t.Kind), t.Value,
		)
		if err != nil {
			return translateDBError(err, fmt.Sprintf("discount tier %d", i+1))
		}
	}
	return nil
}

func (s *ruleService) DeleteDiscountRule(ctx context.Context, id int) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM discount_rules WHERE id = $1`, id)
	if err != nil {
		return translateDBError(err, fmt.Sprintf("discount rule %d", id))
	}
	if tag.RowsAffected() == 0 {
		return notFoundf("discount rule %d not found", id)
	}
	return nil
}

// ── Special prices ───────────────────────────────────────────────────────────

const specialPriceSelect = `
	SELECT sp.id, sp.client_id, c.code, sp.product_id, p.code, sp.price, sp.is_active, sp.created_at
	FROM special_prices sp
	JOIN clients c ON c.id = sp.client_id
	JOIN products p ON p.id = sp.product_id`

func scanSpecialPrice(row pgx.Row) (*SpecialPrice, error) {
	var sp SpecialPrice
	err := row.Scan(&sp.ID, &sp.ClientID, &sp.ClientCode, &sp.ProductID, &sp.ProductCode,
		&sp.Price, &sp.IsActive, &sp.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sp, nil
}

func (s *ruleService) ListSpecialPrices(ctx context.Context, clientID *int) ([]SpecialPrice, error) {
	query := specialPriceSelect + ` WHERE sp.is_active`
	args := []any{}
	if clientID != nil {
		query += ` AND sp.client_id = $1`
		args = append(args, *clientID)
	}
	query += ` ORDER BY c.code, p.code`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translateDBError(err, "special prices")
	}
	defer rows.Close()

	prices := []SpecialPrice{}
	for rows.Next() {
		sp, err := scanSpecialPrice(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan special price: %v", ErrInternal, err)
		}
		prices = append(prices, *sp)
	}
	if err := rows.Err(); err != nil {
		return nil, translateDBError(err, "special prices")
	}
	return prices, nil
}

func (s *ruleService) CreateSpecialPrice(ctx context.Context, input SpecialPriceInput) (*SpecialPrice, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var id int
	err := s.pool.QueryRow(ctx, `
		INSERT INTO special_prices (client_id, product_id, price)
		VALUES ($1, $2, $3)
		RETURNING id`,
		input.ClientID, input.ProductID, input.Price,
	).Scan(&id)
	if err != nil {
		// a missing client or product surfaces as an FK violation
		if pgErrorCode(err) == pgForeignKeyViolation {
			return nil, notFoundf("client %d or product %d not found", input.ClientID, input.ProductID)
		}
		return nil, translateDBError(err, fmt.Sprintf("special price for client %d and product %d", input.ClientID, input.ProductID))
	}

	sp, err := scanSpecialPrice(s.pool.QueryRow(ctx, specialPriceSelect+` WHERE sp.id = $1`, id))
	if err != nil {
		return nil, translateDBError(err, fmt.Sprintf("special price %d", id))
	}
	return sp, nil
}

func (s *ruleService) DeleteSpecialPrice(ctx context.Context, id int) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM special_prices WHERE id = $1`, id)
	if err != nil {
		return translateDBError(err, fmt.Sprintf("special price %d", id))
	}
	if tag.RowsAffected() == 0 {
		return notFoundf("special price %d not found", id)
	}
	return nil
}
