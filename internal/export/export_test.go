package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"workshop-manager/internal/core"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRatesExcel(t *testing.T) {
	rates := []core.RateEntry{
		{ID: 1, Material: "PVC", Thickness: dec("5"), UnitPrice: dec("12.5"), UnitWeight: dec("1.2"), UpdatedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)},
		{ID: 2, Material: "=HYPERLINK(\"x\")", Thickness: dec("3"), UnitPrice: dec("8"), UpdatedAt: time.Date(2025, 3, 2, 9, 30, 0, 0, time.UTC)},
	}

	result, err := RatesExcel(rates)
	if err != nil {
		t.Fatalf("RatesExcel: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(result))
	if err != nil {
		t.Fatalf("open generated workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 1 || sheets[0] != ratesSheet {
		t.Fatalf("sheets = %v, want [%s]", sheets, ratesSheet)
	}

	checks := map[string]string{
		"A1": "Material",
		"C1": "Unit price",
		"A2": "PVC",
		"A3": "'=HYPERLINK(\"x\")",
		"E2": "2025-03-01 10:00",
	}
	for cell, want := range checks {
		got, err := f.GetCellValue(ratesSheet, cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s): %v", cell, err)
		}
		if got != want {
			t.Errorf("%s = %q, want %q", cell, got, want)
		}
	}
}

func TestRatesExcelEmpty(t *testing.T) {
	result, err := RatesExcel(nil)
	if err != nil {
		t.Fatalf("RatesExcel: %v", err)
	}
	if len(result) == 0 {
		t.Fatal("expected a workbook with only the header row")
	}
}

func TestSanitizeExcelCell(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"PVC", "PVC"},
		{"=1+1", "'=1+1"},
		{"+1", "'+1"},
		{"-1", "'-1"},
		{"@SUM", "'@SUM"},
		{"|cmd", "'|cmd"},
	}
	for _, tt := range tests {
		if got := sanitizeExcelCell(tt.in); got != tt.want {
			t.Errorf("sanitizeExcelCell(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestQuotePDF(t *testing.T) {
	q := &core.Quote{
		ID:         1,
		Number:     "2025-007",
		ClientCode: "C001",
		ClientName: "Acme Signs",
		Status:     core.QuoteDraft,
		QuoteDate:  "2025-04-10",
		TaxRate:    dec("0.21"),
		Subtotal:   dec("235.00"),
		Tax:        dec("49.35"),
		Total:      dec("284.35"),
		Notes:      "Delivery in two weeks",
		Lines: []core.Line{
			{LineNumber: 1, ProductCode: "PVC-5", ProductName: "PVC sheet 5mm", Quantity: dec("10"), UnitPrice: dec("18.50"), LineTotal: dec("185.00")},
			{LineNumber: 2, ProductCode: "ALU-3", ProductName: "Aluminium 3mm", Quantity: dec("2"), UnitPrice: dec("25"), LineTotal: dec("50.00")},
		},
	}

	result, err := QuotePDF(q, "Workshop")
	if err != nil {
		t.Fatalf("QuotePDF: %v", err)
	}
	if !strings.HasPrefix(string(result), "%PDF-") {
		t.Fatalf("output does not look like a PDF: %q", string(result[:min(len(result), 8)]))
	}
}

func TestMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0.00"},
		{"5.5", "5.50"},
		{"999.999", "1,000.00"},
		{"1234567.891", "1,234,567.89"},
		{"-1234.5", "-1,234.50"},
	}
	for _, tt := range tests {
		if got := Money(dec(tt.in)); got != tt.want {
			t.Errorf("Money(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
