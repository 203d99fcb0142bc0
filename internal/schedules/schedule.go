// Package schedules reshapes aggregated ledger totals into the supporting
// schedules behind the notes to accounts.
package schedules

import (
	"github.com/shopspring/decimal"
)

// Shape is the record layout of a schedule.
type Shape string

const (
	ShapeList     Shape = "list"
	ShapeAssets   Shape = "assets"
	ShapeAgeing   Shape = "ageing"
	ShapeFields   Shape = "fields"
	ShapeMovement Shape = "movement"
)

// Schedule is one populated or hand-edited schedule. Only the parts that
// match its Shape are set, except that ageing schedules may also carry
// disclosure fields.
type Schedule struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Shape     Shape         `json:"shape"`
	Lists     []List        `json:"lists,omitempty"`
	Assets    []AssetRow    `json:"assets,omitempty"`
	Ageing    *AgeingTable  `json:"ageing,omitempty"`
	Fields    []FieldValue  `json:"fields,omitempty"`
	Movements []MovementRow `json:"movements,omitempty"`
}

// IsEmpty reports whether the schedule holds no rows at all.
func (s Schedule) IsEmpty() bool {
	for _, l := range s.Lists {
		if len(l.Rows) > 0 {
			return false
		}
	}
	if s.Ageing != nil && !s.Ageing.Total().IsZero() {
		return false
	}
	for _, f := range s.Fields {
		if !f.AmountCy.IsZero() || !f.AmountPy.IsZero() {
			return false
		}
	}
	return len(s.Assets) == 0 && len(s.Movements) == 0
}

// Field returns the named field.
func (s Schedule) Field(key string) (FieldValue, bool) {
	for _, f := range s.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return FieldValue{}, false
}

// List is a titled particulars list.
type List struct {
	Name string    `json:"name"`
	Rows []ListRow `json:"rows"`
}

// ListRow is one particulars line. ID is the grouping code or note line
// item key it came from.
type ListRow struct {
	ID          string          `json:"id"`
	Particulars string          `json:"particulars"`
	AmountCy    decimal.Decimal `json:"amountCy"`
	AmountPy    decimal.Decimal `json:"amountPy"`
}

// AssetRow is one class of a gross block / depreciation matrix.
type AssetRow struct {
	ID                  string          `json:"id"`
	AssetClass          string          `json:"assetClass"`
	GrossOpening        decimal.Decimal `json:"grossBlockOpening"`
	Additions           decimal.Decimal `json:"grossBlockAdditions"`
	Disposals           decimal.Decimal `json:"grossBlockDisposals"`
	GrossClosing        decimal.Decimal `json:"grossBlockClosing"`
	DepreciationOpening decimal.Decimal `json:"depreciationOpening"`
	DepreciationForYear decimal.Decimal `json:"depreciationForYear"`
	DepreciationClosing decimal.Decimal `json:"depreciationClosing"`
	NetCy               decimal.Decimal `json:"netBlockClosing"`
	NetPy               decimal.Decimal `json:"netBlockClosingPy"`
}

// AgeingTable splits a balance by category and time since due.
type AgeingTable struct {
	Buckets []string    `json:"buckets"`
	Rows    []AgeingRow `json:"rows"`
}

// AgeingRow holds one category's amounts, aligned with AgeingTable.Buckets.
type AgeingRow struct {
	Category string            `json:"category"`
	Amounts  []decimal.Decimal `json:"amounts"`
}

// Total sums every cell.
func (a *AgeingTable) Total() decimal.Decimal {
	t := decimal.Zero
	if a == nil {
		return t
	}
	for _, r := range a.Rows {
		for _, v := range r.Amounts {
			t = t.Add(v)
		}
	}
	return t
}

// CategoryTotal sums one category.
func (a *AgeingTable) CategoryTotal(category string) decimal.Decimal {
	t := decimal.Zero
	if a == nil {
		return t
	}
	for _, r := range a.Rows {
		if r.Category == category {
			for _, v := range r.Amounts {
				t = t.Add(v)
			}
		}
	}
	return t
}

// FieldValue is a named figure.
type FieldValue struct {
	Key      string          `json:"key"`
	Label    string          `json:"label"`
	AmountCy decimal.Decimal `json:"amountCy"`
	AmountPy decimal.Decimal `json:"amountPy"`
}

// MovementRow reconciles an opening balance to a closing one.
type MovementRow struct {
	ID         string          `json:"id"`
	Section    string          `json:"section,omitempty"`
	Name       string          `json:"name"`
	Opening    decimal.Decimal `json:"opening"`
	Additions  decimal.Decimal `json:"additions"`
	Deductions decimal.Decimal `json:"deductions"`
	Closing    decimal.Decimal `json:"closing"`
}
