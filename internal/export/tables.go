// Package export turns statements, ledgers and masters into flat tables and
// writes them as CSV files or an XLSX workbook.
package export

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tbmap/tbmap/internal/model"
	"github.com/tbmap/tbmap/internal/statements"
)

// Table is one sheet of output. Cells hold strings, decimals or nil.
type Table struct {
	Name   string
	Header []string
	Rows   [][]any
	Widths []float64
	// Bold lists row indexes (into Rows) rendered in bold.
	Bold []int
}

// StatementTable lays out statement rows with indentation by level. Header
// rows leave the amount columns empty.
func StatementTable(name string, rows []statements.Row) Table {
	t := Table{
		Name:   name,
		Header: []string{"Particulars", "Note No.", "Current Year", "Previous Year"},
		Widths: []float64{60, 10, 18, 18},
	}
	for i, r := range rows {
		label := strings.Repeat("  ", r.Level) + r.Label
		if r.IsHeader() {
			t.Rows = append(t.Rows, []any{label, r.NoteNumber, nil, nil})
		} else {
			t.Rows = append(t.Rows, []any{label, r.NoteNumber, r.AmountCy, r.AmountPy})
		}
		if r.Kind != statements.KindLine {
			t.Bold = append(t.Bold, i)
		}
	}
	return t
}

// TrialBalanceTable lists every ledger with its mapping status.
func TrialBalanceTable(ledgers []model.LedgerItem) Table {
	t := Table{
		Name:   "Trial Balance",
		Header: []string{"Ledger", "Closing CY", "Closing PY", "Mapped", "Major Head", "Grouping"},
		Widths: []float64{40, 18, 18, 10, 12, 14},
	}
	for _, l := range ledgers {
		mapped, major, grouping := "No", "", ""
		if l.Mapping != nil {
			mapped, major, grouping = "Yes", l.Mapping.MajorHeadCode, l.Mapping.GroupingCode
		}
		t.Rows = append(t.Rows, []any{l.LedgerName, l.ClosingCy, l.ClosingPy, mapped, major, grouping})
	}
	return t
}

// MappedLedgerRow is one mapped ledger resolved to head and grouping names.
type MappedLedgerRow struct {
	LedgerID      string          `json:"ledgerId"`
	LedgerName    string          `json:"ledgerName"`
	MajorHeadName string          `json:"majorHeadName"`
	MinorHeadName string          `json:"minorHeadName"`
	GroupingCode  string          `json:"groupingCode"`
	GroupingName  string          `json:"groupingName"`
	NoteLineItem  string          `json:"noteLineItem,omitempty"`
	ClosingCy     decimal.Decimal `json:"closingCy"`
	ClosingPy     decimal.Decimal `json:"closingPy"`
}

// MappedLedgers resolves every mapped ledger against m. Codes that no longer
// resolve are shown as the raw code.
func MappedLedgers(ledgers []model.LedgerItem, m model.Masters, lineItems []model.NoteLineItem) []MappedLedgerRow {
	majors := make(map[string]string, len(m.MajorHeads))
	for _, h := range m.MajorHeads {
		majors[h.Code] = h.Name
	}
	minors := make(map[string]string, len(m.MinorHeads))
	for _, h := range m.MinorHeads {
		minors[h.Code] = h.Name
	}
	groupings := make(map[string]string, len(m.Groupings))
	for _, g := range m.Groupings {
		groupings[g.Code] = g.Name
	}
	items := make(map[string]string, len(lineItems))
	for _, li := range lineItems {
		items[li.ID] = li.Name
	}
	name := func(names map[string]string, code string) string {
		if n, ok := names[code]; ok {
			return n
		}
		return code
	}

	var out []MappedLedgerRow
	for _, l := range ledgers {
		if l.Mapping == nil {
			continue
		}
		out = append(out, MappedLedgerRow{
			LedgerID:      l.ID,
			LedgerName:    l.LedgerName,
			MajorHeadName: name(majors, l.Mapping.MajorHeadCode),
			MinorHeadName: name(minors, l.Mapping.MinorHeadCode),
			GroupingCode:  l.Mapping.GroupingCode,
			GroupingName:  name(groupings, l.Mapping.GroupingCode),
			NoteLineItem:  items[l.Mapping.NoteLineItemID],
			ClosingCy:     l.ClosingCy,
			ClosingPy:     l.ClosingPy,
		})
	}
	return out
}

// MappedLedgersTable renders MappedLedgers output.
func MappedLedgersTable(rows []MappedLedgerRow) Table {
	t := Table{
		Name:   "Mapped Ledgers",
		Header: []string{"Ledger Name", "Major Head", "Minor Head", "Grouping", "Line Item", "Closing CY", "Closing PY"},
		Widths: []float64{40, 30, 30, 30, 24, 18, 18},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.LedgerName, r.MajorHeadName, r.MinorHeadName, r.GroupingName, r.NoteLineItem, r.ClosingCy, r.ClosingPy})
	}
	return t
}

// MastersTable lists the hierarchy one grouping per row.
func MastersTable(rows []model.Ancestry) Table {
	t := Table{
		Name:   "Masters Hierarchy",
		Header: []string{"Major Head Code", "Major Head Name", "Minor Head Code", "Minor Head Name", "Grouping Code", "Grouping Name"},
		Widths: []float64{15, 30, 15, 40, 15, 50},
	}
	for _, a := range rows {
		t.Rows = append(t.Rows, []any{a.Major.Code, a.Major.Name, a.Minor.Code, a.Minor.Name, a.Grouping.Code, a.Grouping.Name})
	}
	return t
}

// UnmappedRow is one ledger still waiting for a mapping, with whatever the
// classifier suggested.
type UnmappedRow struct {
	LedgerID      string          `json:"ledgerId"`
	LedgerName    string          `json:"ledgerName"`
	ClosingCy     decimal.Decimal `json:"closingCy"`
	ClosingPy     decimal.Decimal `json:"closingPy"`
	MajorHeadCode string          `json:"suggestedMajorHeadCode,omitempty"`
	MinorHeadCode string          `json:"suggestedMinorHeadCode,omitempty"`
	GroupingCode  string          `json:"suggestedGroupingCode,omitempty"`
	Confidence    string          `json:"confidence,omitempty"`
	Reasoning     string          `json:"reasoning,omitempty"`
	Error         string          `json:"error,omitempty"`
}

// Unmapped lists unmapped ledgers in store order.
func Unmapped(ledgers []model.LedgerItem) []UnmappedRow {
	var out []UnmappedRow
	for _, l := range ledgers {
		if l.Mapping != nil {
			continue
		}
		r := UnmappedRow{LedgerID: l.ID, LedgerName: l.LedgerName, ClosingCy: l.ClosingCy, ClosingPy: l.ClosingPy}
		if s := l.Suggestion; s != nil {
			r.MajorHeadCode, r.MinorHeadCode, r.GroupingCode = s.MajorHeadCode, s.MinorHeadCode, s.GroupingCode
			r.Reasoning, r.Error = s.Reasoning, s.Error
			if s.Usable() {
				r.Confidence = fmt.Sprintf("%.0f%%", s.Confidence*100)
			}
		}
		out = append(out, r)
	}
	return out
}

// UnmappedTable renders Unmapped output.
func UnmappedTable(rows []UnmappedRow) Table {
	t := Table{
		Name: "To Be Mapped",
		Header: []string{"Ledger Name", "Closing Balance (CY)", "Closing Balance (PY)",
			"Suggested Major Head", "Suggested Minor Head", "Suggested Grouping", "Confidence", "Reasoning", "Error"},
		Widths: []float64{40, 18, 18, 12, 12, 14, 12, 50, 30},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.LedgerName, r.ClosingCy, r.ClosingPy,
			r.MajorHeadCode, r.MinorHeadCode, r.GroupingCode, r.Confidence, r.Reasoning, r.Error})
	}
	return t
}

// SampleTrialBalance is a template in the import format.
func SampleTrialBalance() Table {
	return Table{
		Name:   "TB_Sample",
		Header: []string{"Ledger", "Closing CY", "Closing PY"},
		Widths: []float64{40, 15, 15},
		Rows: [][]any{
			{"Example Expense Ledger", decimal.NewFromInt(15000), decimal.NewFromInt(12000)},
			{"Example Income Ledger", decimal.NewFromInt(-15000), decimal.NewFromInt(-12000)},
		},
	}
}
