package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/tbmap/tbmap/internal/format"
)

// Options controls how amounts are written.
type Options struct {
	// Formatter scales and rounds amounts. Nil writes them unchanged.
	Formatter *format.Formatter
	// Indian applies lakh/crore digit grouping to workbook amounts.
	Indian bool
	// Decimals is the number of places shown in workbook amounts.
	Decimals int
}

func (o Options) scale(d decimal.Decimal) decimal.Decimal {
	if o.Formatter == nil {
		return d
	}
	return o.Formatter.Scaled(d)
}

// WriteCSV writes t with a header row. Amounts are plain decimals so the
// file can be imported again.
func WriteCSV(w io.Writer, t Table, opts Options) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("writing %s header: %w", t.Name, err)
	}
	rec := make([]string, len(t.Header))
	for i, row := range t.Rows {
		for j := range rec {
			rec[j] = ""
			if j < len(row) {
				rec[j] = csvCell(row[j], opts)
			}
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing %s row %d: %w", t.Name, i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvCell(v any, opts Options) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case decimal.Decimal:
		return opts.scale(c).String()
	default:
		return fmt.Sprint(c)
	}
}

// WriteWorkbook writes one sheet per table, in order, with bold headers and
// number-formatted amount cells.
func WriteWorkbook(w io.Writer, tables []Table, opts Options) error {
	if len(tables) == 0 {
		return fmt.Errorf("no sheets to write")
	}
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating style: %w", err)
	}
	numFmt := amountFormat(opts)
	amount, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return fmt.Errorf("creating style: %w", err)
	}
	boldAmount, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, CustomNumFmt: &numFmt})
	if err != nil {
		return fmt.Errorf("creating style: %w", err)
	}

	for i, t := range tables {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", t.Name); err != nil {
				return fmt.Errorf("naming sheet %s: %w", t.Name, err)
			}
		} else if _, err := f.NewSheet(t.Name); err != nil {
			return fmt.Errorf("adding sheet %s: %w", t.Name, err)
		}
		if err := writeSheet(f, t, opts, bold, amount, boldAmount); err != nil {
			return fmt.Errorf("sheet %s: %w", t.Name, err)
		}
	}
	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, t Table, opts Options, bold, amount, boldAmount int) error {
	header := make([]any, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(t.Name, "A1", &header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(max(len(t.Header), 1), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(t.Name, "A1", last, bold); err != nil {
		return err
	}

	isBold := make(map[int]bool, len(t.Bold))
	for _, b := range t.Bold {
		isBold[b] = true
	}
	for i, row := range t.Rows {
		r := i + 2
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, r)
			if err != nil {
				return err
			}
			style := 0
			switch c := v.(type) {
			case nil:
				continue
			case decimal.Decimal:
				if err := f.SetCellValue(t.Name, cell, opts.scale(c).InexactFloat64()); err != nil {
					return err
				}
				style = amount
				if isBold[i] {
					style = boldAmount
				}
			default:
				if err := f.SetCellValue(t.Name, cell, c); err != nil {
					return err
				}
				if isBold[i] {
					style = bold
				}
			}
			if style != 0 {
				if err := f.SetCellStyle(t.Name, cell, cell, style); err != nil {
					return err
				}
			}
		}
	}

	for i, width := range t.Widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(t.Name, col, col, width); err != nil {
			return err
		}
	}
	return nil
}

// amountFormat builds the cell number format. Indian grouping needs
// conditional sections because Excel only knows thousands separators.
func amountFormat(opts Options) string {
	frac := ""
	if opts.Decimals > 0 {
		frac = "." + strings.Repeat("0", opts.Decimals)
	}
	if !opts.Indian {
		return "#,##0" + frac + ";(#,##0" + frac + ")"
	}
	return `[>=10000000]##\,##\,##\,##0` + frac + `;[>=100000]##\,##\,##0` + frac + `;##,##0` + frac
}
