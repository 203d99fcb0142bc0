package schedules

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/tbmap/tbmap/internal/aggregate"
	"github.com/tbmap/tbmap/internal/model"
	"github.com/tbmap/tbmap/internal/notes"
)

// Source is the read-only input of a population run.
type Source struct {
	Ledgers   []model.LedgerItem
	Masters   model.Masters
	LineItems []model.NoteLineItem
}

type builder func(e *aggregate.Engine, ledgers []model.LedgerItem) Schedule

type definition struct {
	ID    string
	Title string
	Shape Shape
	build builder
}

// Ageing bucket and category keys.
const (
	PayablesOthers         = "others"
	PayablesMSME           = "msme"
	PayablesDisputedOthers = "disputedOthers"
	PayablesDisputedMSME   = "disputedMsme"

	ReceivablesUndisputedGood     = "undisputedGood"
	ReceivablesUndisputedDoubtful = "undisputedDoubtful"
	ReceivablesDisputedGood       = "disputedGood"
	ReceivablesDisputedDoubtful   = "disputedDoubtful"
)

var (
	payableBuckets    = []string{"lessThan1Year", "1To2Years", "2To3Years", "moreThan3Years"}
	receivableBuckets = []string{"lessThan6Months", "6MonthsTo1Year", "1To2Years", "2To3Years", "moreThan3Years"}
)

// MSME disclosure field keys on the trade payables schedule.
var MSMEDisclosureFields = []FieldValue{
	{Key: "principalAndInterestDue", Label: "Principal and interest due remaining unpaid"},
	{Key: "interestPaid", Label: "Interest paid under section 16 of the MSMED Act"},
	{Key: "interestDueAndPayable", Label: "Interest due and payable for the period of delay"},
	{Key: "interestAccruedAndUnpaid", Label: "Interest accrued and remaining unpaid"},
	{Key: "furtherInterest", Label: "Further interest remaining due and payable"},
}

type listSpec struct {
	name     string
	prefixes []string
}

func one(name string, prefixes ...string) listSpec {
	return listSpec{name: name, prefixes: prefixes}
}

func listDef(scheduleID, title string, credit bool, specs ...listSpec) definition {
	return definition{ID: scheduleID, Title: title, Shape: ShapeList, build: func(e *aggregate.Engine, ledgers []model.LedgerItem) Schedule {
		s := Schedule{ID: scheduleID, Title: title, Shape: ShapeList}
		for _, sp := range specs {
			rows := listRows(e.ByPrefixes(ledgers, sp.prefixes, credit))
			s.Lists = append(s.Lists, List{Name: sp.name, Rows: rows})
		}
		return s
	}}
}

func listRows(buckets []aggregate.Bucket) []ListRow {
	var rows []ListRow
	for _, b := range aggregate.NonZero(buckets) {
		rows = append(rows, ListRow{ID: b.Key, Particulars: b.Label, AmountCy: b.AmountCy, AmountPy: b.AmountPy})
	}
	return rows
}

// assetDef opens each class at the prior-year closing with no additions;
// the closing and net block take the current-year balance.
func assetDef(scheduleID, title, prefix string) definition {
	return definition{ID: scheduleID, Title: title, Shape: ShapeAssets, build: func(e *aggregate.Engine, ledgers []model.LedgerItem) Schedule {
		s := Schedule{ID: scheduleID, Title: title, Shape: ShapeAssets}
		for _, b := range aggregate.NonZero(e.ByPrefix(ledgers, prefix, false)) {
			s.Assets = append(s.Assets, AssetRow{
				ID:                  b.Key,
				AssetClass:          b.Label,
				GrossOpening:        b.AmountPy,
				Additions:           decimal.Zero,
				Disposals:           decimal.Zero,
				GrossClosing:        b.AmountCy,
				DepreciationOpening: decimal.Zero,
				DepreciationForYear: decimal.Zero,
				DepreciationClosing: decimal.Zero,
				NetCy:               b.AmountCy,
				NetPy:               b.AmountPy,
			})
		}
		return s
	}}
}

func newAgeing(buckets, categories []string) *AgeingTable {
	t := &AgeingTable{Buckets: slices.Clone(buckets)}
	for _, c := range categories {
		amounts := make([]decimal.Decimal, len(buckets))
		for i := range amounts {
			amounts[i] = decimal.Zero
		}
		t.Rows = append(t.Rows, AgeingRow{Category: c, Amounts: amounts})
	}
	return t
}

func zeroFields(tmpl []FieldValue) []FieldValue {
	out := make([]FieldValue, len(tmpl))
	for i, f := range tmpl {
		out[i] = FieldValue{Key: f.Key, Label: f.Label, AmountCy: decimal.Zero, AmountPy: decimal.Zero}
	}
	return out
}

// The whole balance lands in the first bucket of the default category for
// the user to redistribute. Only B.80 is aged so the table ties to the
// Trade Payables line; long-term trade payables stay under other long-term
// liabilities.
func tradePayables(e *aggregate.Engine, ledgers []model.LedgerItem) Schedule {
	s := Schedule{ID: notes.TradePayables, Title: "Trade Payables", Shape: ShapeAgeing}
	s.Ageing = newAgeing(payableBuckets, []string{PayablesMSME, PayablesOthers, PayablesDisputedMSME, PayablesDisputedOthers})
	cy, _ := aggregate.Totals(e.ByPrefix(ledgers, "B.80", true))
	s.Ageing.Rows[1].Amounts[0] = cy
	s.Fields = zeroFields(MSMEDisclosureFields)
	return s
}

func tradeReceivables(e *aggregate.Engine, ledgers []model.LedgerItem) Schedule {
	s := Schedule{ID: notes.TradeReceivables, Title: "Trade Receivables", Shape: ShapeAgeing}
	s.Ageing = newAgeing(receivableBuckets, []string{ReceivablesUndisputedGood, ReceivablesUndisputedDoubtful, ReceivablesDisputedGood, ReceivablesDisputedDoubtful})
	cy, py := aggregate.Totals(e.ByPrefix(ledgers, "A.110", false))
	s.Ageing.Rows[0].Amounts[0] = cy
	s.Fields = []FieldValue{
		{Key: "securedConsideredGood", Label: "Secured, considered good", AmountCy: decimal.Zero, AmountPy: decimal.Zero},
		{Key: "unsecuredConsideredGood", Label: "Unsecured, considered good", AmountCy: cy, AmountPy: py},
		{Key: "doubtful", Label: "Doubtful", AmountCy: decimal.Zero, AmountPy: decimal.Zero},
	}
	return s
}

var employeeFields = []struct {
	key, label string
	codes      []string
}{
	{"salariesAndWages", "Salaries and wages", []string{"C.60.01", "C.60.04", "C.60.07", "C.60.08", "C.60.09"}},
	{"contributionToFunds", "Contribution to provident and other funds", []string{"C.60.02"}},
	{"staffWelfare", "Staff welfare expenses", []string{"C.60.03", "C.60.05", "C.60.06"}},
	{"otherEmployeeCosts", "Other employee costs", nil},
}

// employeeBenefits sorts each grouping into a fixed field; anything not
// listed, including custom groupings, is an other employee cost.
func employeeBenefits(e *aggregate.Engine, ledgers []model.LedgerItem) Schedule {
	s := Schedule{ID: notes.EmployeeBenefits, Title: "Employee Benefits Expense", Shape: ShapeFields}
	for _, f := range employeeFields {
		s.Fields = append(s.Fields, FieldValue{Key: f.key, Label: f.label, AmountCy: decimal.Zero, AmountPy: decimal.Zero})
	}
	for _, b := range e.ByPrefix(ledgers, "C.60", false) {
		i := len(employeeFields) - 1
		for j, f := range employeeFields {
			if slices.Contains(f.codes, b.GroupingCode) {
				i = j
				break
			}
		}
		s.Fields[i].AmountCy = s.Fields[i].AmountCy.Add(b.AmountCy)
		s.Fields[i].AmountPy = s.Fields[i].AmountPy.Add(b.AmountPy)
	}
	return s
}

func cash(e *aggregate.Engine, ledgers []model.LedgerItem) Schedule {
	s := Schedule{ID: notes.Cash, Title: "Cash and Cash Equivalents", Shape: ShapeFields}
	onHand := FieldValue{Key: "cashOnHand", Label: "Cash on hand", AmountCy: decimal.Zero, AmountPy: decimal.Zero}
	var banks []aggregate.Bucket
	for _, b := range e.ByPrefix(ledgers, "A.120", false) {
		if b.GroupingCode == "A.120.01" && b.NoteLineItemID == "" {
			onHand.AmountCy = onHand.AmountCy.Add(b.AmountCy)
			onHand.AmountPy = onHand.AmountPy.Add(b.AmountPy)
			continue
		}
		banks = append(banks, b)
	}
	s.Fields = []FieldValue{onHand}
	s.Lists = []List{{Name: "Balances with banks", Rows: listRows(banks)}}
	return s
}

type movementSpec struct {
	section  string
	prefixes []string
	credit   bool
}

// movementDef reconciles prior-year to current-year balances per bucket. A
// net increase is an addition and a net decrease a deduction.
func movementDef(scheduleID, title string, specs ...movementSpec) definition {
	return definition{ID: scheduleID, Title: title, Shape: ShapeMovement, build: func(e *aggregate.Engine, ledgers []model.LedgerItem) Schedule {
		s := Schedule{ID: scheduleID, Title: title, Shape: ShapeMovement}
		for _, sp := range specs {
			for _, b := range aggregate.NonZero(e.ByPrefixes(ledgers, sp.prefixes, sp.credit)) {
				s.Movements = append(s.Movements, movement(sp.section, b))
			}
		}
		return s
	}}
}

func movement(section string, b aggregate.Bucket) MovementRow {
	r := MovementRow{ID: b.Key, Section: section, Name: b.Label, Opening: b.AmountPy, Additions: decimal.Zero, Deductions: decimal.Zero, Closing: b.AmountCy}
	if diff := b.AmountCy.Sub(b.AmountPy); diff.IsPositive() {
		r.Additions = diff
	} else {
		r.Deductions = diff.Neg()
	}
	return r
}

// cwip treats the whole closing balance as the year's additions.
func cwip(e *aggregate.Engine, ledgers []model.LedgerItem) Schedule {
	s := Schedule{ID: notes.CWIP, Title: "Capital Work-in-Progress", Shape: ShapeMovement}
	for _, b := range aggregate.NonZero(e.ByPrefix(ledgers, "A.20", false)) {
		s.Movements = append(s.Movements, MovementRow{
			ID: b.Key, Name: b.Label,
			Opening: decimal.Zero, Additions: b.AmountCy, Deductions: decimal.Zero, Closing: b.AmountCy,
		})
	}
	return s
}

// definitions is in display order.
var definitions = []definition{
	listDef(notes.ShareCapital, "Share Capital", true, one("Issued, subscribed and paid-up", "B.10")),
	movementDef(notes.OtherEquity, "Other Equity", movementSpec{prefixes: []string{"B.20"}, credit: true}),
	listDef(notes.PartnersFunds, "Partners' / Owners' Funds", true, one("Capital and current accounts", "B.10", "B.20")),
	listDef(notes.Borrowings, "Borrowings", true, one("Long-term borrowings", "B.30"), one("Short-term borrowings", "B.70")),
	movementDef(notes.DeferredTax, "Deferred Tax",
		movementSpec{section: "Deferred tax assets", prefixes: []string{"A.70"}},
		movementSpec{section: "Deferred tax liabilities", prefixes: []string{"B.40"}, credit: true}),
	listDef(notes.OtherLongTermLiabilities, "Other Long-Term Liabilities", true, one("Other long-term liabilities", "B.50")),
	movementDef(notes.Provisions, "Provisions",
		movementSpec{section: "Long-term", prefixes: []string{"B.60"}, credit: true},
		movementSpec{section: "Short-term", prefixes: []string{"B.100"}, credit: true}),
	{ID: notes.TradePayables, Title: "Trade Payables", Shape: ShapeAgeing, build: tradePayables},
	listDef(notes.OtherCurrentLiabilities, "Other Current Liabilities", true, one("Other current liabilities", "B.90")),
	assetDef(notes.PPE, "Property, Plant and Equipment", "A.10"),
	{ID: notes.CWIP, Title: "Capital Work-in-Progress", Shape: ShapeMovement, build: cwip},
	assetDef(notes.IntangibleAssets, "Intangible Assets", "A.30"),
	listDef(notes.Investments, "Non-Current Investments", false, one("Investments", "A.50")),
	listDef(notes.LongTermLoans, "Long-Term Loans and Advances", false, one("Loans and advances", "A.60")),
	listDef(notes.OtherNonCurrentAssets, "Other Non-Current Assets", false, one("Other non-current assets", "A.80")),
	listDef(notes.CurrentInvestments, "Current Investments", false, one("Investments", "A.90")),
	listDef(notes.Inventories, "Inventories", false, one("Inventories", "A.100")),
	{ID: notes.TradeReceivables, Title: "Trade Receivables", Shape: ShapeAgeing, build: tradeReceivables},
	{ID: notes.Cash, Title: "Cash and Cash Equivalents", Shape: ShapeFields, build: cash},
	listDef(notes.ShortTermLoans, "Short-Term Loans and Advances", false, one("Loans and advances", "A.130")),
	listDef(notes.OtherCurrentAssets, "Other Current Assets", false, one("Other current assets", "A.140")),
	listDef(notes.Revenue, "Revenue from Operations", true, one("Revenue from operations", "C.10")),
	listDef(notes.OtherIncome, "Other Income", true, one("Other income", "C.20")),
	listDef(notes.CostOfMaterials, "Cost of Materials Consumed", false, one("Cost of materials consumed", "C.30")),
	listDef(notes.Purchases, "Purchases of Stock-in-Trade", false, one("Purchases", "C.40")),
	{ID: notes.EmployeeBenefits, Title: "Employee Benefits Expense", Shape: ShapeFields, build: employeeBenefits},
	listDef(notes.FinanceCosts, "Finance Costs", false, one("Finance costs", "C.70")),
	listDef(notes.OtherExpenses, "Other Expenses", false, one("Other expenses", "C.90")),
}

func lookup(scheduleID string) (definition, bool) {
	for _, d := range definitions {
		if d.ID == scheduleID {
			return d, true
		}
	}
	return definition{}, false
}

// IDs returns every populatable schedule id in display order.
func IDs() []string {
	out := make([]string, len(definitions))
	for i, d := range definitions {
		out[i] = d.ID
	}
	return out
}

// order returns the display position of a schedule id, or len(definitions).
func order(scheduleID string) int {
	for i, d := range definitions {
		if d.ID == scheduleID {
			return i
		}
	}
	return len(definitions)
}
