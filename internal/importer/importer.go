package importer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/tbmap/tbmap/internal/model"
)

var (
	ErrMissingColumn = errors.New("missing required column")
	ErrEmptyFile     = errors.New("file is empty or has no header row")
	ErrEmptyLedger   = errors.New("ledger name is empty")
	ErrInvalidAmount = errors.New("amount is not numeric")
)

// Column headers, compared after lowercasing and dropping whitespace.
const (
	headerLedger    = "ledger"
	headerClosingCy = "closingcy"
	headerClosingPy = "closingpy"
)

// RowError reports one rejected row. Row is the 1-based line in the file, so
// the first data row under the header is row 2.
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// Result is the outcome of parsing one trial-balance file. Valid rows are
// kept even when other rows are rejected.
type Result struct {
	Rows    []model.ImportRow
	Errors  []RowError
	TotalCy decimal.Decimal
	TotalPy decimal.Decimal
}

// Balanced reports whether each year's total is within tolerance of zero.
func (r *Result) Balanced(tolerance decimal.Decimal) (cy, py bool) {
	return r.TotalCy.Abs().LessThanOrEqual(tolerance), r.TotalPy.Abs().LessThanOrEqual(tolerance)
}

// Parser converts a trial-balance file into import rows.
type Parser interface {
	Parse(r io.Reader) (*Result, error)
	Format() string
}

// Registry holds parsers keyed by format name.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// ForFile returns the parser matching a file's extension, or nil.
func (r *Registry) ForFile(path string) Parser {
	return r.Get(strings.TrimPrefix(filepath.Ext(path), "."))
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&CSVParser{})
	r.Register(&XLSXParser{})
	r.Register(&XLSParser{})
	return r
}

// ParseFile opens path and parses it with the parser for its extension.
func (r *Registry) ParseFile(path string) (*Result, error) {
	p := r.ForFile(path)
	if p == nil {
		return nil, fmt.Errorf("no parser for %s", filepath.Base(path))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	res, err := p.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return res, nil
}

var validate = validator.New()

// FromRecords builds a Result from a header row followed by data rows.
// Rows whose cells are all blank are skipped.
func FromRecords(records [][]string) (*Result, error) {
	return fromRecords(records, nil)
}

// fromRecords is FromRecords with explicit source line numbers per record.
// A nil lines slice numbers records from 1.
func fromRecords(records [][]string, lines []int) (*Result, error) {
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	cols := make(map[string]int)
	for i, h := range records[0] {
		key := normalizeHeader(h)
		if _, dup := cols[key]; !dup {
			cols[key] = i
		}
	}
	ledgerCol, ok := cols[headerLedger]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, headerLedger)
	}
	cyCol, ok := cols[headerClosingCy]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, "closingCy")
	}
	pyCol, hasPy := cols[headerClosingPy]

	res := &Result{TotalCy: decimal.Zero, TotalPy: decimal.Zero}
	for i, rec := range records[1:] {
		rowNum := i + 2
		if lines != nil {
			rowNum = lines[i+1]
		}
		if blank(rec) {
			continue
		}
		row := model.ImportRow{
			Row:        rowNum,
			LedgerName: strings.TrimSpace(cell(rec, ledgerCol)),
			ClosingPy:  decimal.Zero,
		}
		if err := validate.Struct(row); err != nil {
			res.Errors = append(res.Errors, RowError{Row: rowNum, Err: ErrEmptyLedger})
			continue
		}

		cy, err := parseAmount(cell(rec, cyCol))
		if err != nil {
			res.Errors = append(res.Errors, RowError{Row: rowNum, Err: fmt.Errorf("closingCy %q: %w", cell(rec, cyCol), ErrInvalidAmount)})
			continue
		}
		row.ClosingCy = cy

		if hasPy {
			// A non-numeric prior-year figure is treated as zero.
			if py, err := parseAmount(cell(rec, pyCol)); err == nil {
				row.ClosingPy = py
			}
		}

		res.Rows = append(res.Rows, row)
		res.TotalCy = res.TotalCy.Add(row.ClosingCy)
		res.TotalPy = res.TotalPy.Add(row.ClosingPy)
	}
	return res, nil
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(strings.Join(strings.Fields(h), ""))
}

func cell(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// parseAmount accepts plain decimals with optional thousands commas and
// accounting-style parentheses for negatives.
func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}
