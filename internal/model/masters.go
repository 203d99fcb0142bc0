package model

// MajorHead is the top level of the chart-of-accounts tree ("A" Assets,
// "B" Equity and Liabilities, "C" Profit & Loss).
type MajorHead struct {
	Code string `json:"code" yaml:"code"`
	Name string `json:"name" yaml:"name"`
}

// MinorHead is the second level, e.g. "A.110" Trade Receivables.
type MinorHead struct {
	Code          string `json:"code" yaml:"code"`
	Name          string `json:"name" yaml:"name"`
	MajorHeadCode string `json:"majorHeadCode" yaml:"major_head_code"`
}

// Grouping is the leaf classification a ledger is mapped to, e.g. "A.110.02".
type Grouping struct {
	Code          string `json:"code" yaml:"code"`
	Name          string `json:"name" yaml:"name"`
	MinorHeadCode string `json:"minorHeadCode" yaml:"minor_head_code"`
}

// Masters is the full three-level hierarchy.
type Masters struct {
	MajorHeads []MajorHead `json:"majorHeads" yaml:"major_heads"`
	MinorHeads []MinorHead `json:"minorHeads" yaml:"minor_heads"`
	Groupings  []Grouping  `json:"groupings" yaml:"groupings"`
}

// Clone returns a copy that shares no slices with m.
func (m Masters) Clone() Masters {
	return Masters{
		MajorHeads: append([]MajorHead(nil), m.MajorHeads...),
		MinorHeads: append([]MinorHead(nil), m.MinorHeads...),
		Groupings:  append([]Grouping(nil), m.Groupings...),
	}
}

// Ancestry is a grouping resolved up to its major head.
type Ancestry struct {
	Major    MajorHead
	Minor    MinorHead
	Grouping Grouping
}

// Mapping returns the committed mapping implied by the ancestry.
func (a Ancestry) Mapping() Mapping {
	return Mapping{
		MajorHeadCode: a.Major.Code,
		MinorHeadCode: a.Minor.Code,
		GroupingCode:  a.Grouping.Code,
	}
}
