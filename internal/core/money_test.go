package core_test

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"workshop-manager/internal/core"

	"github.com/shopspring/decimal"
)

func TestRound2(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"float", 1.005, "1.01"},
		{"int", 7, "7"},
		{"numeric string", "12.3456", "12.35"},
		{"padded string", " 3.1 ", "3.1"},
		{"negative", -2.345, "-2.35"},
		{"decimal", decimal.RequireFromString("0.125"), "0.13"},
		{"json number", json.Number("4.444"), "4.44"},
		{"nil", nil, "0"},
		{"empty string", "", "0"},
		{"garbage", "abc", "0"},
		{"bool", true, "0"},
		{"struct", struct{}{}, "0"},
		{"NaN", math.NaN(), "0"},
		{"+Inf", math.Inf(1), "0"},
		{"-Inf float32", float32(math.Inf(-1)), "0"},
		{"huge exponent", "1e300000000", "0"},
		{"tiny exponent", json.Number("1e-300000000"), "0"},
		{"exponent at bound", "2e30", "2000000000000000000000000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := core.Round2(tt.in)
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("Round2(%v) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestRound2_Idempotent(t *testing.T) {
	for _, v := range []any{0.015, 2.675, "99.999", -0.005, 123456.789} {
		once := core.Round2(v)
		twice := core.Round2(once)
		if !once.Equal(twice) {
			t.Errorf("Round2 not idempotent for %v: %s then %s", v, once, twice)
		}
	}
}

func TestNumber_UnmarshalJSON(t *testing.T) {
	var body struct {
		A core.Number `json:"a"`
		B core.Number `json:"b"`
		C core.Number `json:"c"`
		D core.Number `json:"d"`
		E core.Number `json:"e"`
	}
	if err := json.Unmarshal([]byte(`{"a": 1.85, "b": "2.50", "c": null, "d": "x", "e": true}`), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if d, ok := body.A.Decimal(); !ok || !d.Equal(decimal.RequireFromString("1.85")) {
		t.Errorf("a: got %s ok=%v", d, ok)
	}
	if d, ok := body.B.Decimal(); !ok || !d.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("b: got %s ok=%v", d, ok)
	}
	if body.C.IsSet() {
		t.Error("c: null should not count as set")
	}
	if _, ok := body.D.Decimal(); ok {
		t.Error("d: non-numeric string should not parse strictly")
	}
	if !body.D.OrZero().IsZero() {
		t.Errorf("d: OrZero = %s, want 0", body.D.OrZero())
	}
	if _, ok := body.E.Decimal(); ok {
		t.Error("e: bool should not parse")
	}
}

func TestNumber_RejectsOutOfRange(t *testing.T) {
	var body struct {
		Huge core.Number `json:"huge"`
		Str  core.Number `json:"str"`
	}
	if err := json.Unmarshal([]byte(`{"huge": 1e300000000, "str": "5e-31"}`), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, ok := body.Huge.Decimal(); ok {
			t.Error("huge: exponent beyond the bound must not parse strictly")
		}
		if _, ok := body.Str.Decimal(); ok {
			t.Error("str: exponent beyond the bound must not parse strictly")
		}
		totals := core.ComputeTotals([]core.TotalsLine{
			{Quantity: body.Huge.OrZero(), UnitPrice: decimal.NewFromInt(1)},
		}, decimal.RequireFromString("0.21"))
		if !totals.Total.IsZero() {
			t.Errorf("total = %s, want 0", totals.Total)
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("out-of-range number was not rejected in time")
	}

	if d, ok := core.NewNumber(math.NaN()).Decimal(); ok {
		t.Errorf("NaN parsed as %s", d)
	}
}
