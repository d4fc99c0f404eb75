package core_test

import (
	"errors"
	"testing"

	"workshop-manager/internal/core"

	"github.com/shopspring/decimal"
)

func strPtr(s string) *string { return &s }

func TestResolveMargin(t *testing.T) {
	general := core.MarginRule{ID: 1, Kind: core.MarginGeneral, Multiplier: dec("1.5")}
	pvc := core.MarginRule{ID: 2, Kind: core.MarginCategory, Category: strPtr("PVC"), Multiplier: dec("1.85")}
	pvcLater := core.MarginRule{ID: 3, Kind: core.MarginCategory, Category: strPtr("PVC"), Multiplier: dec("9")}
	wholesale := core.MarginRule{ID: 4, Kind: core.MarginClientTier, ClientTier: strPtr("WHOLESALE"), Multiplier: dec("1.2")}
	rules := []core.MarginRule{general, pvc, pvcLater, wholesale}

	tests := []struct {
		name   string
		rules  []core.MarginRule
		query  core.MarginQuery
		wantID int
	}{
		{"tier beats category", rules, core.MarginQuery{Category: "PVC", ClientTier: "WHOLESALE"}, 4},
		{"category beats general", rules, core.MarginQuery{Category: "PVC", ClientTier: "RETAIL"}, 2},
		{"general fallback", rules, core.MarginQuery{Category: "STEEL"}, 1},
		{"material used when category empty", rules, core.MarginQuery{Material: "PVC"}, 2},
		{"category wins over material", rules, core.MarginQuery{Material: "PVC", Category: "STEEL"}, 1},
		{"first in collection wins a tie", []core.MarginRule{pvcLater, pvc}, core.MarginQuery{Category: "PVC"}, 3},
		{"tier match is exact", rules, core.MarginQuery{Category: "PVC", ClientTier: "wholesale"}, 2},
		{"no rules", nil, core.MarginQuery{Category: "PVC"}, 0},
		{"nothing matches", []core.MarginRule{pvc, wholesale}, core.MarginQuery{Category: "STEEL"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := core.ResolveMargin(tt.rules, tt.query)
			if tt.wantID == 0 {
				if got != nil {
					t.Fatalf("expected no rule, got %d", got.ID)
				}
				return
			}
			if got == nil {
				t.Fatalf("expected rule %d, got nil", tt.wantID)
			}
			if got.ID != tt.wantID {
				t.Errorf("expected rule %d, got %d", tt.wantID, got.ID)
			}
		})
	}
}

func TestResolveMargin_Deterministic(t *testing.T) {
	rules := []core.MarginRule{
		{ID: 1, Kind: core.MarginGeneral, Multiplier: dec("1.1")},
		{ID: 2, Kind: core.MarginClientTier, ClientTier: strPtr("A"), Multiplier: dec("1.2")},
		{ID: 3, Kind: core.MarginCategory, Category: strPtr("ALU"), Multiplier: dec("1.3")},
	}
	reversed := []core.MarginRule{rules[2], rules[1], rules[0]}
	q := core.MarginQuery{Category: "ALU", ClientTier: "A"}

	a, b := core.ResolveMargin(rules, q), core.ResolveMargin(reversed, q)
	if a == nil || b == nil || a.ID != b.ID {
		t.Fatalf("resolution depends on order for distinct bands: %v vs %v", a, b)
	}
}

func TestSalePrice(t *testing.T) {
	rule := &core.MarginRule{Kind: core.MarginCategory, Category: strPtr("PVC"), Multiplier: dec("1.85")}
	if got := core.SalePrice(dec("10.00"), rule); !got.Equal(dec("18.50")) {
		t.Errorf("SalePrice = %s, want 18.50", got)
	}

	withSurcharge := &core.MarginRule{Kind: core.MarginGeneral, Multiplier: dec("2"), Surcharge: dec("3.25")}
	if got := core.SalePrice(dec("4"), withSurcharge); !got.Equal(dec("11.25")) {
		t.Errorf("SalePrice with surcharge = %s, want 11.25", got)
	}

	if got := core.SalePrice(dec("7.77"), nil); !got.Equal(dec("7.77")) {
		t.Errorf("SalePrice without rule = %s, want cost", got)
	}
}

func TestMarginRuleInput_Validate(t *testing.T) {
	tests := []struct {
		name      string
		input     core.MarginRuleInput
		wantField string
	}{
		{
			name:  "valid general",
			input: core.MarginRuleInput{Description: "Default", Kind: core.MarginGeneral, Multiplier: dec("1.4")},
		},
		{
			name:  "valid category",
			input: core.MarginRuleInput{Description: "PVC", Kind: core.MarginCategory, Category: "PVC", Multiplier: dec("1.85")},
		},
		{
			name:      "zero multiplier",
			input:     core.MarginRuleInput{Description: "Bad", Kind: core.MarginGeneral, Multiplier: decimal.Zero},
			wantField: "Multiplier",
		},
		{
			name:      "negative multiplier",
			input:     core.MarginRuleInput{Description: "Bad", Kind: core.MarginGeneral, Multiplier: dec("-1")},
			wantField: "Multiplier",
		},
		{
			name:      "missing description",
			input:     core.MarginRuleInput{Kind: core.MarginGeneral, Multiplier: dec("1.2")},
			wantField: "Description",
		},
		{
			name:      "category rule without category",
			input:     core.MarginRuleInput{Description: "x", Kind: core.MarginCategory, Multiplier: dec("1.2")},
			wantField: "Category",
		},
		{
			name:      "general rule with tier filter",
			input:     core.MarginRuleInput{Description: "x", Kind: core.MarginGeneral, ClientTier: "A", Multiplier: dec("1.2")},
			wantField: "ClientTier",
		},
		{
			name:      "negative surcharge",
			input:     core.MarginRuleInput{Description: "x", Kind: core.MarginGeneral, Multiplier: dec("1.2"), Surcharge: dec("-0.5")},
			wantField: "Surcharge",
		},
		{
			name:      "unknown kind",
			input:     core.MarginRuleInput{Description: "x", Kind: "PRODUCT", Multiplier: dec("1.2")},
			wantField: "Kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			if !errors.Is(err, core.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			var ve *core.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if _, ok := ve.Fields[tt.wantField]; !ok {
				t.Errorf("expected field %s in %v", tt.wantField, ve.Fields)
			}
		})
	}
}
