package core

import (
	"fmt"
	"sort"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// DiscountBasis selects what a rule's thresholds are compared against.
type DiscountBasis string

const (
	DiscountByQuantity DiscountBasis = "QUANTITY"
	DiscountByValue    DiscountBasis = "VALUE"
)

// DiscountKind selects how a tier reduces the price.
type DiscountKind string

const (
	DiscountPercentage DiscountKind = "PERCENTAGE"
	DiscountFixed      DiscountKind = "FIXED"
)

// DiscountTier is one threshold step of a DiscountRule.
type DiscountTier struct {
	ID        int             `json:"id"`
	Threshold decimal.Decimal `json:"threshold"`
	Kind      DiscountKind    `json:"kind"`
	Value     decimal.Decimal `json:"value"`
}

// DiscountRule groups tiers; Tiers is always ordered by ascending threshold.
type DiscountRule struct {
	ID          int            `json:"id"`
	Description string         `json:"description"`
	Basis       DiscountBasis  `json:"basis"`
	IsActive    bool           `json:"is_active"`
	Tiers       []DiscountTier `json:"tiers"`
	CreatedAt   time.Time      `json:"created_at"`
}

// DiscountTierInput is one tier in a create/update payload.
type DiscountTierInput struct {
	Threshold decimal.Decimal
	Kind      DiscountKind
	Value     decimal.Decimal
}

// Validate checks a single tier.
func (in DiscountTierInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Threshold, validation.By(nonNegativeDecimal)),
		validation.Field(&in.Kind, validation.Required, validation.In(DiscountPercentage, DiscountFixed)),
		validation.Field(&in.Value,
			validation.By(nonNegativeDecimal),
			validation.When(in.Kind == DiscountPercentage, validation.By(atMostHundred))),
	)
}

// DiscountRuleInput is the payload for creating or replacing a discount rule.
type DiscountRuleInput struct {
	Description string
	Basis       DiscountBasis
	IsActive    bool
	Tiers       []DiscountTierInput
}

// Validate checks the rule and each tier, and rejects repeated thresholds.
func (in DiscountRuleInput) Validate() error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Description, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Basis, validation.Required, validation.In(DiscountByQuantity, DiscountByValue)),
		validation.Field(&in.Tiers, validation.Required),
	)
	if err != nil {
		return fromValidation(err)
	}

	fields := FieldErrors{}
	seen := make(map[string]bool, len(in.Tiers))
	for i, t := range in.Tiers {
		if err := t.Validate(); err != nil {
			fields[fmt.Sprintf("tiers[%d]", i)] = err.Error()
			continue
		}
		key := t.Threshold.String()
		if seen[key] {
			fields[fmt.Sprintf("tiers[%d]", i)] = fmt.Sprintf("duplicate threshold %s", key)
		}
		seen[key] = true
	}
	if len(fields) > 0 {
		return &ValidationError{Message: "invalid discount tiers", Fields: fields}
	}
	return nil
}

// sortedTiers returns the input tiers ordered by ascending threshold.
func (in DiscountRuleInput) sortedTiers() []DiscountTierInput {
	tiers := append([]DiscountTierInput(nil), in.Tiers...)
	sort.SliceStable(tiers, func(i, j int) bool {
		return tiers[i].Threshold.LessThan(tiers[j].Threshold)
	})
	return tiers
}

// ResolveDiscount returns the tier with the highest threshold that v meets or
// exceeds, or nil if v is below every threshold. Input order does not matter.
func ResolveDiscount(tiers []DiscountTier, v decimal.Decimal) *DiscountTier {
	ordered := make([]*DiscountTier, len(tiers))
	for i := range tiers {
		ordered[i] = &tiers[i]
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Threshold.GreaterThan(ordered[j].Threshold)
	})

	for _, t := range ordered {
		if t.Threshold.LessThanOrEqual(v) {
			return t
		}
	}
	return nil
}

// ApplyDiscount reduces price by tier. The result is never negative.
func ApplyDiscount(price decimal.Decimal, tier *DiscountTier) decimal.Decimal {
	if tier == nil {
		return price
	}

	var out decimal.Decimal
	switch tier.Kind {
	case DiscountPercentage:
		out = price.Mul(decimal.NewFromInt(1).Sub(tier.Value.Div(hundred)))
	case DiscountFixed:
		out = price.Sub(tier.Value)
	default:
		out = price
	}

	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// BulkFactor converts a percentage adjustment into a price multiplier.
// -100 yields 0 and anything below yields a negative factor.
func BulkFactor(percentage decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(1).Add(percentage.Div(hundred))
}

func atMostHundred(value any) error {
	d, ok := value.(decimal.Decimal)
	if ok && d.GreaterThan(hundred) {
		return validation.NewError("validation_max_percentage", "must be no greater than 100")
	}
	return nil
}
