// Package aggregate sums mapped ledgers into display buckets.
package aggregate

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tbmap/tbmap/internal/id"
	"github.com/tbmap/tbmap/internal/model"
)

// ErrUnknownGrouping is reported when a mapped grouping is missing from the
// masters. Aggregation still succeeds and labels the bucket with the raw code.
var ErrUnknownGrouping = errors.New("unknown grouping")

// Epsilon is the magnitude below which presentation code treats an amount as
// zero.
var Epsilon = decimal.RequireFromString("0.01")

// Bucket is the sum of the ledgers sharing a grouping, or sharing a note line
// item when they are clubbed.
type Bucket struct {
	Key            string          `json:"key"`
	GroupingCode   string          `json:"groupingCode"`
	NoteLineItemID string          `json:"noteLineItemId,omitempty"`
	Label          string          `json:"label"`
	AmountCy       decimal.Decimal `json:"amountCy"`
	AmountPy       decimal.Decimal `json:"amountPy"`
	LedgerIDs      []string        `json:"ledgerIds"`
	Unknown        bool            `json:"unknown,omitempty"`
}

// IsZero reports whether both amounts are within Epsilon of zero.
func (b Bucket) IsZero() bool {
	return b.AmountCy.Abs().LessThan(Epsilon) && b.AmountPy.Abs().LessThan(Epsilon)
}

// Engine aggregates against a fixed view of masters and note line items. It
// holds no mutable state and is safe for concurrent use.
type Engine struct {
	groupings map[string]model.Grouping
	lineItems map[string]model.NoteLineItem
}

// NewEngine builds an engine over copies of masters and line items.
func NewEngine(m model.Masters, lineItems []model.NoteLineItem) *Engine {
	e := &Engine{
		groupings: make(map[string]model.Grouping, len(m.Groupings)),
		lineItems: make(map[string]model.NoteLineItem, len(lineItems)),
	}
	for _, g := range m.Groupings {
		e.groupings[g.Code] = g
	}
	for _, li := range lineItems {
		e.lineItems[li.ID] = li
	}
	return e
}

// Label returns the display name of a grouping. Unknown codes return the
// code itself along with ErrUnknownGrouping.
func (e *Engine) Label(groupingCode string) (string, error) {
	if g, ok := e.groupings[groupingCode]; ok {
		return g.Name, nil
	}
	return groupingCode, fmt.Errorf("%w: %s", ErrUnknownGrouping, groupingCode)
}

// ByPrefix sums the mapped ledgers whose grouping falls under prefix. An
// empty prefix selects every mapped ledger. Ledgers clubbed into a known
// note line item share one bucket; the rest get one bucket per grouping.
// Buckets come back in order of first appearance in ledgers. When negate is
// set both sums are sign-flipped for credit-side display.
func (e *Engine) ByPrefix(ledgers []model.LedgerItem, prefix string, negate bool) []Bucket {
	return e.ByPrefixes(ledgers, []string{prefix}, negate)
}

// ByPrefixes is ByPrefix over the union of several prefixes.
func (e *Engine) ByPrefixes(ledgers []model.LedgerItem, prefixes []string, negate bool) []Bucket {
	var out []Bucket
	pos := make(map[string]int)
	for _, l := range ledgers {
		if l.Mapping == nil || !id.HasAnyPrefix(l.Mapping.GroupingCode, prefixes...) {
			continue
		}
		key, lineItemID := l.Mapping.GroupingCode, ""
		if li, ok := e.lineItems[l.Mapping.NoteLineItemID]; ok && l.Mapping.NoteLineItemID != "" {
			key, lineItemID = "li:"+li.ID, li.ID
		}

		i, ok := pos[key]
		if !ok {
			b := Bucket{Key: key, GroupingCode: l.Mapping.GroupingCode, NoteLineItemID: lineItemID}
			if lineItemID != "" {
				b.Label = e.lineItems[lineItemID].Name
			} else {
				var err error
				b.Label, err = e.Label(l.Mapping.GroupingCode)
				b.Unknown = err != nil
			}
			i = len(out)
			pos[key] = i
			out = append(out, b)
		}
		out[i].AmountCy = out[i].AmountCy.Add(l.ClosingCy)
		out[i].AmountPy = out[i].AmountPy.Add(l.ClosingPy)
		out[i].LedgerIDs = append(out[i].LedgerIDs, l.ID)
	}
	if negate {
		for i := range out {
			out[i].AmountCy = out[i].AmountCy.Neg()
			out[i].AmountPy = out[i].AmountPy.Neg()
		}
	}
	return out
}

// Totals sums bucket amounts.
func Totals(buckets []Bucket) (cy, py decimal.Decimal) {
	cy, py = decimal.Zero, decimal.Zero
	for _, b := range buckets {
		cy = cy.Add(b.AmountCy)
		py = py.Add(b.AmountPy)
	}
	return cy, py
}

// Sum returns the raw debit-positive totals of mapped ledgers under any of
// prefixes, without building buckets.
func Sum(ledgers []model.LedgerItem, prefixes ...string) (cy, py decimal.Decimal) {
	cy, py = decimal.Zero, decimal.Zero
	for _, l := range ledgers {
		if l.Mapping != nil && id.HasAnyPrefix(l.Mapping.GroupingCode, prefixes...) {
			cy = cy.Add(l.ClosingCy)
			py = py.Add(l.ClosingPy)
		}
	}
	return cy, py
}

// NonZero drops buckets within Epsilon of zero in both years.
func NonZero(buckets []Bucket) []Bucket {
	var out []Bucket
	for _, b := range buckets {
		if !b.IsZero() {
			out = append(out, b)
		}
	}
	return out
}

// Unknown returns the distinct grouping codes in buckets that the masters no
// longer contain.
func Unknown(buckets []Bucket) []string {
	var out []string
	seen := map[string]bool{}
	for _, b := range buckets {
		if b.Unknown && !seen[b.GroupingCode] {
			seen[b.GroupingCode] = true
			out = append(out, b.GroupingCode)
		}
	}
	return out
}
