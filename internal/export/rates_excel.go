// Package export renders the rate table as XLSX and quotes as PDF.
package export

import (
	"bytes"
	"fmt"
	"strconv"

	"workshop-manager/internal/core"

	"github.com/xuri/excelize/v2"
)

const ratesSheet = "Rates"

// RatesExcel writes the rate table to an XLSX workbook, one row per
// material × thickness, and returns the file contents.
func RatesExcel(rates []core.RateEntry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ratesSheet); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}

	columns := []string{"A", "B", "C", "D", "E"}
	widths := []float64{24, 12, 14, 14, 20}
	for i, col := range columns {
		if err := f.SetColWidth(ratesSheet, col, col, widths[i]); err != nil {
			return nil, fmt.Errorf("set col width %s: %w", col, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#333333"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	numFmt := "#,##0.0000"
	bodyStyle, err := f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Size: 10},
		Border:       thinBorders(),
		CustomNumFmt: &numFmt,
	})
	if err != nil {
		return nil, fmt.Errorf("create body style: %w", err)
	}

	headers := []string{"Material", "Thickness", "Unit price", "Unit weight", "Updated"}
	for i, h := range headers {
		f.SetCellValue(ratesSheet, columns[i]+"1", h)
	}
	f.SetCellStyle(ratesSheet, "A1", "E1", headerStyle)

	for i, r := range rates {
		rowStr := strconv.Itoa(i + 2)
		f.SetCellValue(ratesSheet, "A"+rowStr, sanitizeExcelCell(r.Material))
		f.SetCellValue(ratesSheet, "B"+rowStr, r.Thickness.InexactFloat64())
		f.SetCellValue(ratesSheet, "C"+rowStr, r.UnitPrice.InexactFloat64())
		f.SetCellValue(ratesSheet, "D"+rowStr, r.UnitWeight.InexactFloat64())
		f.SetCellValue(ratesSheet, "E"+rowStr, r.UpdatedAt.Format("2006-01-02 15:04"))
		f.SetCellStyle(ratesSheet, "A"+rowStr, "E"+rowStr, bodyStyle)
	}

	if err := f.SetPanes(ratesSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

// sanitizeExcelCell prefixes formula-leading characters with a quote so a
// material name can never run as a formula.
func sanitizeExcelCell(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r', '|':
		return "'" + s
	}
	return s
}

func thinBorders() []excelize.Border {
	sides := []string{"left", "top", "bottom", "right"}
	borders := make([]excelize.Border, len(sides))
	for i, side := range sides {
		borders[i] = excelize.Border{Type: side, Color: "#000000", Style: 1}
	}
	return borders
}
