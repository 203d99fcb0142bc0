package model

import "github.com/shopspring/decimal"

// LedgerItem is one trial-balance row. Amounts are stored debit-positive.
type LedgerItem struct {
	ID         string           `json:"id"`
	LedgerName string           `json:"ledgerName"`
	ClosingCy  decimal.Decimal  `json:"closingCy"`
	ClosingPy  decimal.Decimal  `json:"closingPy"`
	Mapping    *Mapping         `json:"mapping"`
	Suggestion *Suggestion      `json:"suggestion"`
	Attributes LedgerAttributes `json:"attributes"`
}

// IsMapped reports whether the ledger carries a committed mapping.
func (l LedgerItem) IsMapped() bool {
	return l.Mapping != nil
}

// HasUsableSuggestion reports whether the ledger has a non-error suggestion.
func (l LedgerItem) HasUsableSuggestion() bool {
	return l.Suggestion != nil && l.Suggestion.Usable()
}

// GroupingCode returns the mapped grouping code or "".
func (l LedgerItem) GroupingCode() string {
	if l.Mapping == nil {
		return ""
	}
	return l.Mapping.GroupingCode
}

// Clone returns a deep copy so callers can mutate it freely.
func (l LedgerItem) Clone() LedgerItem {
	out := l
	if l.Mapping != nil {
		m := *l.Mapping
		out.Mapping = &m
	}
	if l.Suggestion != nil {
		s := *l.Suggestion
		out.Suggestion = &s
	}
	return out
}

// Mapping is the committed association of a ledger to a grouping.
type Mapping struct {
	MajorHeadCode  string `json:"majorHeadCode" validate:"required"`
	MinorHeadCode  string `json:"minorHeadCode" validate:"required"`
	GroupingCode   string `json:"groupingCode" validate:"required"`
	NoteLineItemID string `json:"noteLineItemId,omitempty"`
}

// Suggestion is an advisory classification from a classifier. A suggestion
// with Error set records a failed or rejected classification attempt.
type Suggestion struct {
	MajorHeadCode string `json:"majorHeadCode,omitempty"`
	MinorHeadCode string `json:"minorHeadCode,omitempty"`
	GroupingCode  string `json:"groupingCode,omitempty"`
	// NoteLineItemID is only set on suggestions seeded from a cleared
	// clubbed mapping.
	NoteLineItemID string  `json:"noteLineItemId,omitempty"`
	Confidence     float64 `json:"confidence,omitempty"`
	Reasoning      string  `json:"reasoning,omitempty"`
	Error          string  `json:"error,omitempty"`
}

// Usable reports whether the suggestion can be approved.
func (s Suggestion) Usable() bool {
	return s.Error == "" && s.GroupingCode != ""
}

// Mapping converts the suggestion into a mapping, dropping confidence and
// reasoning.
func (s Suggestion) Mapping() Mapping {
	return Mapping{
		MajorHeadCode:  s.MajorHeadCode,
		MinorHeadCode:  s.MinorHeadCode,
		GroupingCode:   s.GroupingCode,
		NoteLineItemID: s.NoteLineItemID,
	}
}

// SuggestionFromMapping seeds a suggestion from a mapping being cleared.
func SuggestionFromMapping(m Mapping) Suggestion {
	return Suggestion{
		MajorHeadCode:  m.MajorHeadCode,
		MinorHeadCode:  m.MinorHeadCode,
		GroupingCode:   m.GroupingCode,
		NoteLineItemID: m.NoteLineItemID,
	}
}

// NoteLineItem is a user-defined sub-bucket within a note. Ledgers clubbed
// into it aggregate under its name.
type NoteLineItem struct {
	ID     string `json:"id"`
	NoteID string `json:"noteId"`
	Name   string `json:"name"`
}

// ImportRow is one validated trial-balance row coming from an importer.
type ImportRow struct {
	Row        int             `json:"row"`
	LedgerName string          `json:"ledgerName" validate:"required"`
	ClosingCy  decimal.Decimal `json:"closingCy"`
	ClosingPy  decimal.Decimal `json:"closingPy"`
}
