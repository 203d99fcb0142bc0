// Package notes holds the fixed catalog of notes to accounts, the user's note
// selection and numbering, and user-defined note line items.
package notes

import (
	"errors"
	"slices"
	"sort"

	"github.com/tbmap/tbmap/internal/id"
	"github.com/tbmap/tbmap/internal/model"
)

var ErrUnknownNote = errors.New("unknown note")

// Note is one note to accounts. Credit notes hold credit-side balances and
// are displayed sign-flipped.
type Note struct {
	ID       string
	Title    string
	Prefixes []string
	Credit   bool
	// Entities limits the note to some entity types; nil means all.
	Entities []model.EntityType
}

// AppliesTo reports whether the note is presented for entity type t.
func (n Note) AppliesTo(t model.EntityType) bool {
	return n.Entities == nil || slices.Contains(n.Entities, t)
}

// Covers reports whether groupingCode falls under the note.
func (n Note) Covers(groupingCode string) bool {
	return id.HasAnyPrefix(groupingCode, n.Prefixes...)
}

var (
	corporate    = []model.EntityType{model.EntityCompany}
	nonCorporate = []model.EntityType{model.EntityLLP, model.EntityNonCorporate}
)

// Note ids.
const (
	ShareCapital             = "shareCapital"
	OtherEquity              = "otherEquity"
	PartnersFunds            = "partnersFunds"
	Borrowings               = "borrowings"
	DeferredTax              = "deferredTax"
	OtherLongTermLiabilities = "otherLongTermLiabilities"
	Provisions               = "provisions"
	TradePayables            = "tradePayables"
	OtherCurrentLiabilities  = "otherCurrentLiabilities"
	PPE                      = "ppe"
	CWIP                     = "cwip"
	IntangibleAssets         = "intangibleAssets"
	IntangibleUnderDev       = "intangibleUnderDev"
	Investments              = "investments"
	LongTermLoans            = "longTermLoans"
	OtherNonCurrentAssets    = "otherNonCurrentAssets"
	CurrentInvestments       = "currentInvestments"
	Inventories              = "inventories"
	TradeReceivables         = "tradeReceivables"
	Cash                     = "cash"
	ShortTermLoans           = "shortTermLoans"
	OtherCurrentAssets       = "otherCurrentAssets"
	Revenue                  = "revenue"
	OtherIncome              = "otherIncome"
	CostOfMaterials          = "costOfMaterials"
	Purchases                = "purchases"
	ChangesInInventories     = "changesInInventories"
	EmployeeBenefits         = "employeeBenefits"
	FinanceCosts             = "financeCosts"
	Depreciation             = "depreciation"
	OtherExpenses            = "otherExpenses"
)

// catalog is in display order.
var catalog = []Note{
	{ID: ShareCapital, Title: "Share Capital", Prefixes: []string{"B.10"}, Credit: true, Entities: corporate},
	{ID: OtherEquity, Title: "Other Equity", Prefixes: []string{"B.20"}, Credit: true, Entities: corporate},
	{ID: PartnersFunds, Title: "Partners' / Owners' Funds", Prefixes: []string{"B.10", "B.20"}, Credit: true, Entities: nonCorporate},
	{ID: Borrowings, Title: "Borrowings", Prefixes: []string{"B.30", "B.70"}, Credit: true},
	{ID: DeferredTax, Title: "Deferred Tax", Prefixes: []string{"A.70", "B.40"}},
	{ID: OtherLongTermLiabilities, Title: "Other Long-Term Liabilities", Prefixes: []string{"B.50"}, Credit: true},
	{ID: Provisions, Title: "Provisions", Prefixes: []string{"B.60", "B.100"}, Credit: true},
	{ID: TradePayables, Title: "Trade Payables", Prefixes: []string{"B.80"}, Credit: true},
	{ID: OtherCurrentLiabilities, Title: "Other Current Liabilities", Prefixes: []string{"B.90"}, Credit: true},
	{ID: PPE, Title: "Property, Plant and Equipment", Prefixes: []string{"A.10"}},
	{ID: CWIP, Title: "Capital Work-in-Progress", Prefixes: []string{"A.20"}},
	{ID: IntangibleAssets, Title: "Intangible Assets", Prefixes: []string{"A.30"}},
	{ID: IntangibleUnderDev, Title: "Intangible Assets under Development", Prefixes: []string{"A.40"}},
	{ID: Investments, Title: "Non-Current Investments", Prefixes: []string{"A.50"}},
	{ID: LongTermLoans, Title: "Long-Term Loans and Advances", Prefixes: []string{"A.60"}},
	{ID: OtherNonCurrentAssets, Title: "Other Non-Current Assets", Prefixes: []string{"A.80"}},
	{ID: CurrentInvestments, Title: "Current Investments", Prefixes: []string{"A.90"}},
	{ID: Inventories, Title: "Inventories", Prefixes: []string{"A.100"}},
	{ID: TradeReceivables, Title: "Trade Receivables", Prefixes: []string{"A.110"}},
	{ID: Cash, Title: "Cash and Cash Equivalents", Prefixes: []string{"A.120"}},
	{ID: ShortTermLoans, Title: "Short-Term Loans and Advances", Prefixes: []string{"A.130"}},
	{ID: OtherCurrentAssets, Title: "Other Current Assets", Prefixes: []string{"A.140"}},
	{ID: Revenue, Title: "Revenue from Operations", Prefixes: []string{"C.10"}, Credit: true},
	{ID: OtherIncome, Title: "Other Income", Prefixes: []string{"C.20"}, Credit: true},
	{ID: CostOfMaterials, Title: "Cost of Materials Consumed", Prefixes: []string{"C.30"}},
	{ID: Purchases, Title: "Purchases of Stock-in-Trade", Prefixes: []string{"C.40"}},
	{ID: ChangesInInventories, Title: "Changes in Inventories", Prefixes: []string{"C.50"}},
	{ID: EmployeeBenefits, Title: "Employee Benefits Expense", Prefixes: []string{"C.60"}},
	{ID: FinanceCosts, Title: "Finance Costs", Prefixes: []string{"C.70"}},
	{ID: Depreciation, Title: "Depreciation and Amortisation Expense", Prefixes: []string{"C.80"}},
	{ID: OtherExpenses, Title: "Other Expenses", Prefixes: []string{"C.90"}},
}

// Catalog returns every note in display order.
func Catalog() []Note {
	out := make([]Note, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a note by id.
func Lookup(noteID string) (Note, bool) {
	for _, n := range catalog {
		if n.ID == noteID {
			return n, true
		}
	}
	return Note{}, false
}

// Applicable returns the notes presented for entity type t, in display order.
func Applicable(t model.EntityType) []Note {
	var out []Note
	for _, n := range catalog {
		if n.AppliesTo(t) {
			out = append(out, n)
		}
	}
	return out
}

// ForGrouping returns the note that presents groupingCode for entity type t.
func ForGrouping(groupingCode string, t model.EntityType) (Note, bool) {
	for _, n := range catalog {
		if n.AppliesTo(t) && n.Covers(groupingCode) {
			return n, true
		}
	}
	return Note{}, false
}

// Selection records whether a note is included and where it sorts.
type Selection struct {
	ID       string `json:"id"`
	Selected bool   `json:"isSelected"`
	Order    int    `json:"order"`
}

// DefaultSelections selects every note applicable to t in catalog order.
func DefaultSelections(t model.EntityType) []Selection {
	var out []Selection
	for i, n := range catalog {
		if n.AppliesTo(t) {
			out = append(out, Selection{ID: n.ID, Selected: true, Order: (i + 1) * 10})
		}
	}
	return out
}

// NumberMap numbers the selected notes 1..n by Order. Ties keep their
// position in sel.
func NumberMap(sel []Selection) map[string]int {
	picked := make([]Selection, 0, len(sel))
	for _, s := range sel {
		if s.Selected {
			picked = append(picked, s)
		}
	}
	sort.SliceStable(picked, func(i, j int) bool { return picked[i].Order < picked[j].Order })
	out := make(map[string]int, len(picked))
	for i, s := range picked {
		out[s.ID] = i + 1
	}
	return out
}
