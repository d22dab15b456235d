package pipeline

import (
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"nomenpairs/internal"
)

// ExportPairsToXLSX writes destination rows to a review sheet.
func ExportPairsToXLSX(pairs []internal.NormalizedPair, outputPath string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)

	headers := []string{"root_id", "name_full", "name_short", "name_short_len", "truncated"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, p := range pairs {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, p.RootID)
		set(2, p.NameFull)
		set(3, p.NameShort)
		set(4, utf8.RuneCountInString(p.NameShort))
		set(5, truncatedFlag(p))
	}

	_ = f.SetColWidth(sheet, "B", "C", 60)
	if len(pairs) > 0 {
		_ = f.AutoFilter(sheet, "A1:E1", nil)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func truncatedFlag(p internal.NormalizedPair) string {
	if p.NameShort != p.NameFull {
		return "yes"
	}
	return ""
}
