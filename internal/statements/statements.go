// Package statements lays out the balance sheet, the statement of profit and
// loss and the notes to accounts as flat row sequences.
package statements

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/tbmap/tbmap/internal/aggregate"
	"github.com/tbmap/tbmap/internal/model"
	"github.com/tbmap/tbmap/internal/notes"
)

// RowKind distinguishes headers, lines and totals.
type RowKind string

const (
	KindHeader RowKind = "header"
	KindLine   RowKind = "line"
	KindTotal  RowKind = "total"
)

// Row is one line of a statement. Header rows carry no amounts.
type Row struct {
	Kind       RowKind         `json:"kind"`
	Label      string          `json:"label"`
	NoteNumber string          `json:"noteNumber,omitempty"`
	AmountCy   decimal.Decimal `json:"amountCy"`
	AmountPy   decimal.Decimal `json:"amountPy"`
	Level      int             `json:"level"`
}

// IsHeader reports whether the row is a section header.
func (r Row) IsHeader() bool { return r.Kind == KindHeader }

// Input is everything a statement run reads. It is never modified.
type Input struct {
	Ledgers     []model.LedgerItem
	Masters     model.Masters
	LineItems   []model.NoteLineItem
	EntityType  model.EntityType
	NoteNumbers map[string]int
}

// Statements is the full output of one run.
type Statements struct {
	BalanceSheet  []Row `json:"balanceSheet"`
	ProfitAndLoss []Row `json:"profitAndLoss"`
	Notes         []Row `json:"notes"`
}

// Generate builds all three statements.
func Generate(in Input) Statements {
	return Statements{
		BalanceSheet:  BalanceSheet(in),
		ProfitAndLoss: ProfitAndLoss(in),
		Notes:         Notes(in),
	}
}

// Surplus is total income less total expenses for each year: the negated
// sum of every ledger mapped under the profit and loss head.
func Surplus(ledgers []model.LedgerItem) (cy, py decimal.Decimal) {
	cy, py = aggregate.Sum(ledgers, "C")
	return cy.Neg(), py.Neg()
}

type line struct {
	label    string
	noteID   string
	prefixes []string
	credit   bool
}

type builder struct {
	in   Input
	rows []Row
}

func (b *builder) header(label string, level int) {
	b.rows = append(b.rows, Row{Kind: KindHeader, Label: label, Level: level, AmountCy: decimal.Zero, AmountPy: decimal.Zero})
}

func (b *builder) amount(kind RowKind, label, noteID string, cy, py decimal.Decimal, level int) {
	b.rows = append(b.rows, Row{Kind: kind, Label: label, NoteNumber: b.noteNumber(noteID), AmountCy: cy, AmountPy: py, Level: level})
}

// noteNumber renders a note's number, or "" when the note is not numbered.
func (b *builder) noteNumber(noteID string) string {
	if n, ok := b.in.NoteNumbers[noteID]; ok && noteID != "" {
		return strconv.Itoa(n)
	}
	return ""
}

// lines emits one row per line and returns their sum.
func (b *builder) lines(ls []line, level int) (cy, py decimal.Decimal) {
	cy, py = decimal.Zero, decimal.Zero
	for _, l := range ls {
		lcy, lpy := aggregate.Sum(b.in.Ledgers, l.prefixes...)
		if l.credit {
			lcy, lpy = lcy.Neg(), lpy.Neg()
		}
		b.amount(KindLine, l.label, l.noteID, lcy, lpy, level)
		cy, py = cy.Add(lcy), py.Add(lpy)
	}
	return cy, py
}

var (
	nonCurrentLiabilities = []line{
		{"Long-Term Borrowings", notes.Borrowings, []string{"B.30"}, true},
		{"Deferred Tax Liabilities (Net)", notes.DeferredTax, []string{"B.40"}, true},
		{"Other Long-Term Liabilities", notes.OtherLongTermLiabilities, []string{"B.50"}, true},
		{"Long-Term Provisions", notes.Provisions, []string{"B.60"}, true},
	}
	currentLiabilities = []line{
		{"Short-Term Borrowings", notes.Borrowings, []string{"B.70"}, true},
		{"Trade Payables", notes.TradePayables, []string{"B.80"}, true},
		{"Other Current Liabilities", notes.OtherCurrentLiabilities, []string{"B.90"}, true},
		{"Short-Term Provisions", notes.Provisions, []string{"B.100"}, true},
	}
	nonCurrentAssets = []line{
		{"Property, Plant and Equipment", notes.PPE, []string{"A.10"}, false},
		{"Capital Work-in-Progress", notes.CWIP, []string{"A.20"}, false},
		{"Intangible Assets", notes.IntangibleAssets, []string{"A.30"}, false},
		{"Intangible Assets under Development", notes.IntangibleUnderDev, []string{"A.40"}, false},
		{"Non-Current Investments", notes.Investments, []string{"A.50"}, false},
		{"Deferred Tax Assets (Net)", notes.DeferredTax, []string{"A.70"}, false},
		{"Long-Term Loans and Advances", notes.LongTermLoans, []string{"A.60"}, false},
		{"Other Non-Current Assets", notes.OtherNonCurrentAssets, []string{"A.80"}, false},
	}
	currentAssets = []line{
		{"Current Investments", notes.CurrentInvestments, []string{"A.90"}, false},
		{"Inventories", notes.Inventories, []string{"A.100"}, false},
		{"Trade Receivables", notes.TradeReceivables, []string{"A.110"}, false},
		{"Cash and Cash Equivalents", notes.Cash, []string{"A.120"}, false},
		{"Short-Term Loans and Advances", notes.ShortTermLoans, []string{"A.130"}, false},
		{"Other Current Assets", notes.OtherCurrentAssets, []string{"A.140"}, false},
	}
	income = []line{
		{"Revenue from Operations", notes.Revenue, []string{"C.10"}, true},
		{"Other Income", notes.OtherIncome, []string{"C.20"}, true},
	}
	expenses = []line{
		{"Cost of Materials Consumed", notes.CostOfMaterials, []string{"C.30"}, false},
		{"Purchases of Stock-in-Trade", notes.Purchases, []string{"C.40"}, false},
		{"Changes in Inventories of Finished Goods, WIP and Stock-in-Trade", notes.ChangesInInventories, []string{"C.50"}, false},
		{"Employee Benefits Expense", notes.EmployeeBenefits, []string{"C.60"}, false},
		{"Finance Costs", notes.FinanceCosts, []string{"C.70"}, false},
		{"Depreciation and Amortisation Expense", notes.Depreciation, []string{"C.80"}, false},
		{"Other Expenses", notes.OtherExpenses, []string{"C.90"}, false},
	}
)

// BalanceSheet lays out equity and liabilities then assets. The year's
// surplus is carried into other equity, or into partners' funds for
// non-corporate entities.
func BalanceSheet(in Input) []Row {
	b := &builder{in: in}
	surplusCy, surplusPy := Surplus(in.Ledgers)

	b.header("EQUITY AND LIABILITIES", 0)
	totalCy, totalPy := decimal.Zero, decimal.Zero
	add := func(cy, py decimal.Decimal) {
		totalCy, totalPy = totalCy.Add(cy), totalPy.Add(py)
	}

	if in.EntityType.IsCorporate() {
		b.header("Shareholders' Funds", 1)
		add(b.lines([]line{{"Share Capital", notes.ShareCapital, []string{"B.10"}, true}}, 2))
		cy, py := aggregate.Sum(in.Ledgers, "B.20")
		cy, py = cy.Neg().Add(surplusCy), py.Neg().Add(surplusPy)
		b.amount(KindLine, "Other Equity", notes.OtherEquity, cy, py, 2)
		add(cy, py)
	} else {
		b.header("Partners' / Owners' Funds", 1)
		cy, py := aggregate.Sum(in.Ledgers, "B.10", "B.20")
		cy, py = cy.Neg().Add(surplusCy), py.Neg().Add(surplusPy)
		b.amount(KindLine, "Partners' / Owners' Capital", notes.PartnersFunds, cy, py, 2)
		add(cy, py)
	}

	b.header("Non-Current Liabilities", 1)
	add(b.lines(nonCurrentLiabilities, 2))
	b.header("Current Liabilities", 1)
	add(b.lines(currentLiabilities, 2))
	b.amount(KindTotal, "TOTAL EQUITY AND LIABILITIES", "", totalCy, totalPy, 0)

	b.header("ASSETS", 0)
	totalCy, totalPy = decimal.Zero, decimal.Zero
	b.header("Non-Current Assets", 1)
	add(b.lines(nonCurrentAssets, 2))
	b.header("Current Assets", 1)
	add(b.lines(currentAssets, 2))
	b.amount(KindTotal, "TOTAL ASSETS", "", totalCy, totalPy, 0)
	return b.rows
}

// ProfitAndLoss lays out income, expenses and the result for the year.
func ProfitAndLoss(in Input) []Row {
	b := &builder{in: in}
	b.header("INCOME", 0)
	incCy, incPy := b.lines(income, 1)
	b.amount(KindTotal, "Total Income", "", incCy, incPy, 0)

	b.header("EXPENSES", 0)
	expCy, expPy := b.lines(expenses, 1)
	b.amount(KindTotal, "Total Expenses", "", expCy, expPy, 0)

	b.amount(KindTotal, "Profit / (Loss) for the Year", "", incCy.Sub(expCy), incPy.Sub(expPy), 0)
	return b.rows
}

// Notes renders each numbered note applicable to the entity in number
// order: a header, one row per non-zero bucket and a total. Notes with
// nothing to show are left out.
func Notes(in Input) []Row {
	b := &builder{in: in}
	e := aggregate.NewEngine(in.Masters, in.LineItems)
	surplusCy, surplusPy := Surplus(in.Ledgers)

	for _, n := range numbered(in) {
		buckets := aggregate.NonZero(e.ByPrefixes(in.Ledgers, n.Prefixes, n.Credit))
		withSurplus := n.ID == notes.OtherEquity || n.ID == notes.PartnersFunds
		if withSurplus && (surplusCy.Abs().GreaterThanOrEqual(aggregate.Epsilon) || surplusPy.Abs().GreaterThanOrEqual(aggregate.Epsilon)) {
			buckets = append(buckets, aggregate.Bucket{Label: "Surplus in Statement of Profit and Loss", AmountCy: surplusCy, AmountPy: surplusPy})
		}
		if len(buckets) == 0 {
			continue
		}

		num := b.noteNumber(n.ID)
		b.rows = append(b.rows, Row{Kind: KindHeader, Label: fmt.Sprintf("%s. %s", num, n.Title), NoteNumber: num, AmountCy: decimal.Zero, AmountPy: decimal.Zero})
		for _, bk := range buckets {
			b.amount(KindLine, bk.Label, "", bk.AmountCy, bk.AmountPy, 1)
		}
		cy, py := aggregate.Totals(buckets)
		b.rows = append(b.rows, Row{Kind: KindTotal, Label: "Total", NoteNumber: num, AmountCy: cy, AmountPy: py})
	}
	return b.rows
}

// numbered returns the applicable notes that have a number, in number order.
func numbered(in Input) []notes.Note {
	var out []notes.Note
	for _, n := range notes.Applicable(in.EntityType) {
		if _, ok := in.NoteNumbers[n.ID]; ok {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return in.NoteNumbers[out[i].ID] < in.NoteNumbers[out[j].ID]
	})
	return out
}
