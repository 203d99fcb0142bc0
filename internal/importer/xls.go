package importer

import (
	"fmt"
	"io"
	"os"

	"github.com/shakinm/xlsReader/xls"
)

// XLSParser parses the first sheet of a legacy Excel 97-2003 workbook, the
// format most accounting packages still export.
type XLSParser struct{}

// Format returns the parser name.
func (p *XLSParser) Format() string { return "xls" }

// Parse reads an .xls trial balance. The reader only opens files, so the
// input is spooled to a temporary file first.
func (p *XLSParser) Parse(r io.Reader) (*Result, error) {
	tmp, err := os.CreateTemp("", "tbmap-*.xls")
	if err != nil {
		return nil, fmt.Errorf("spooling workbook: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("spooling workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("spooling workbook: %w", err)
	}

	book, err := xls.OpenFile(tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	sheet, err := book.GetSheet(0)
	if err != nil || sheet == nil {
		return nil, fmt.Errorf("opening workbook: %w", ErrEmptyFile)
	}

	var records [][]string
	for _, row := range sheet.GetRows() {
		var rec []string
		for _, col := range row.GetCols() {
			rec = append(rec, col.GetString())
		}
		records = append(records, rec)
	}
	return FromRecords(records)
}
