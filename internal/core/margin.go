package core

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// MarginKind selects how specific a margin rule is.
type MarginKind string

const (
	MarginGeneral    MarginKind = "GENERAL"
	MarginCategory   MarginKind = "CATEGORY"
	MarginClientTier MarginKind = "CLIENT_TIER"
)

// MarginRule turns a base cost into a sale price: cost × Multiplier + Surcharge.
// Category is set only for CATEGORY rules and ClientTier only for CLIENT_TIER rules.
type MarginRule struct {
	ID          int             `json:"id"`
	Description string          `json:"description"`
	Kind        MarginKind      `json:"kind"`
	Category    *string         `json:"category,omitempty"`
	ClientTier  *string         `json:"client_tier,omitempty"`
	Multiplier  decimal.Decimal `json:"multiplier"`
	Surcharge   decimal.Decimal `json:"surcharge"`
	CreatedAt   time.Time       `json:"created_at"`
}

// MarginRuleInput is the validated payload for creating or replacing a rule.
type MarginRuleInput struct {
	Description string
	Kind        MarginKind
	Category    string
	ClientTier  string
	Multiplier  decimal.Decimal
	Surcharge   decimal.Decimal
}

// Validate rejects non-positive multipliers, negative surcharges and filters
// that do not match the rule kind.
func (in MarginRuleInput) Validate() error {
	return fromValidation(validation.ValidateStruct(&in,
		validation.Field(&in.Description, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Kind, validation.Required, validation.In(MarginGeneral, MarginCategory, MarginClientTier)),
		validation.Field(&in.Category,
			validation.When(in.Kind == MarginCategory, validation.Required, validation.Length(1, 80)).
				Else(validation.Empty)),
		validation.Field(&in.ClientTier,
			validation.When(in.Kind == MarginClientTier, validation.Required, validation.Length(1, 40)).
				Else(validation.Empty)),
		validation.Field(&in.Multiplier, validation.By(positiveDecimal)),
		validation.Field(&in.Surcharge, validation.By(nonNegativeDecimal)),
	))
}

// MarginQuery describes the product and client a margin is being resolved for.
// An empty Category falls back to Material, since most catalog products are
// categorised by the material they are cut from.
type MarginQuery struct {
	Material   string
	Category   string
	ClientTier string
}

func (q MarginQuery) category() string {
	if q.Category != "" {
		return q.Category
	}
	return q.Material
}

// ResolveMargin picks the most specific rule for q: a CLIENT_TIER rule matching
// the client tier, else a CATEGORY rule matching the category, else a GENERAL
// rule. Within a band the first rule in rules wins. Returns nil if nothing matches.
func ResolveMargin(rules []MarginRule, q MarginQuery) *MarginRule {
	var byCategory, general *MarginRule
	category := q.category()

	for i := range rules {
		r := &rules[i]
		switch r.Kind {
		case MarginClientTier:
			if q.ClientTier != "" && r.ClientTier != nil && *r.ClientTier == q.ClientTier {
				return r
			}
		case MarginCategory:
			if byCategory == nil && category != "" && r.Category != nil && *r.Category == category {
				byCategory = r
			}
		case MarginGeneral:
			if general == nil && r.Category == nil && r.ClientTier == nil {
				general = r
			}
		}
	}

	if byCategory != nil {
		return byCategory
	}
	return general
}

// SalePrice applies rule to cost. A nil rule leaves the cost unchanged.
func SalePrice(cost decimal.Decimal, rule *MarginRule) decimal.Decimal {
	if rule == nil {
		return cost
	}
	return cost.Mul(rule.Multiplier).Add(rule.Surcharge)
}

func positiveDecimal(value any) error {
	d, ok := value.(decimal.Decimal)
	if !ok || !d.IsPositive() {
		return validation.NewError("validation_positive", "must be a positive number")
	}
	return nil
}

func nonNegativeDecimal(value any) error {
	d, ok := value.(decimal.Decimal)
	if !ok || d.IsNegative() {
		return validation.NewError("validation_non_negative", "must not be negative")
	}
	return nil
}
