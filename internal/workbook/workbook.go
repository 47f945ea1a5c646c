// Package workbook inventories the Excel files extracted from acreage
// archives and locates the county data header row inside them.
package workbook

import (
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/cx-datamart/acreage-cli/internal/warehouse"
)

// DefaultSheet is the worksheet carrying county-level acreage records.
const DefaultSheet = "county_data"

// DefaultHeaderKeywords are the cell values that identify the header row.
var DefaultHeaderKeywords = []string{"State Code", "County Code"}

// excelExtensions are the workbook extensions produced by the FSA archives.
var excelExtensions = map[string]bool{
	".xls":  true,
	".xlsx": true,
	".xlsm": true,
	".xlsb": true,
}

var yearTokenRe = regexp.MustCompile(`\b(20\d{2})\b`)

// List returns every nested Excel workbook under root, sorted.
func List(root string) ([]string, error) {
	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if excelExtensions[strings.ToLower(filepath.Ext(path))] {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "workbook: walk %s", root)
	}

	sort.Strings(found)
	return found, nil
}

// Readable reports whether the workbook format can be opened here. Legacy
// .xls and binary .xlsb files are listed but not parsed.
func Readable(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return true
	default:
		return false
	}
}

// CropYearFromFilename recovers the crop year token from a workbook or
// archive file name. Empty when no year-shaped token is present.
func CropYearFromFilename(path string) string {
	if m := yearTokenRe.FindStringSubmatch(filepath.Base(path)); m != nil {
		return m[1]
	}
	return ""
}

// DetectHeaderRow scans sheetName for the first row containing every keyword
// (case-insensitive cell match) and returns its index. A missing sheet or
// header row is a structural input error: retrying cannot fix it.
func DetectHeaderRow(path, sheetName string, keywords []string) (int, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return 0, eris.Wrapf(err, "workbook: open %s", path)
	}

	sheet, ok := f.Sheet[sheetName]
	if !ok {
		return 0, eris.Errorf("workbook: sheet %q not found in %s", sheetName, path)
	}

	for i, row := range sheet.Rows {
		if rowHasAllKeywords(row, keywords) {
			return i, nil
		}
	}

	return 0, eris.Errorf("workbook: header row with %v not found in %s", keywords, path)
}

// ReadTable reads sheetName starting at headerRow into a rectangular table
// suitable for the cleaning collaborator, tagging every row with the crop
// year recovered from the file name.
func ReadTable(path, sheetName string, headerRow int) (warehouse.Table, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return warehouse.Table{}, eris.Wrapf(err, "workbook: open %s", path)
	}

	sheet, ok := f.Sheet[sheetName]
	if !ok {
		return warehouse.Table{}, eris.Errorf("workbook: sheet %q not found in %s", sheetName, path)
	}
	if headerRow >= len(sheet.Rows) {
		return warehouse.Table{}, eris.Errorf("workbook: header row %d out of range in %s", headerRow, path)
	}

	year := CropYearFromFilename(path)

	table := warehouse.Table{
		Columns: append(rowToStrings(sheet.Rows[headerRow]), "crop_year"),
	}
	// Excel writers drop trailing empty cells, so data rows can come back
	// narrower than the header. Square every row off to the header width to
	// keep the table rectangular.
	width := len(table.Columns) - 1
	for _, row := range sheet.Rows[headerRow+1:] {
		cells := rowToStrings(row)
		if allEmpty(cells) {
			continue
		}
		table.Rows = append(table.Rows, append(squareOff(cells, width), year))
	}

	return table, nil
}

func rowHasAllKeywords(row *xlsx.Row, keywords []string) bool {
	for _, kw := range keywords {
		found := false
		for _, cell := range row.Cells {
			if strings.EqualFold(strings.TrimSpace(cell.String()), kw) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

func squareOff(cells []string, width int) []string {
	for len(cells) < width {
		cells = append(cells, "")
	}
	return cells[:width]
}

func allEmpty(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
