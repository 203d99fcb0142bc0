package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplicableAttributes(t *testing.T) {
	tests := []struct {
		code string
		key  AttributeKey
		want bool
	}{
		{"B.80.01", AttrMSME, true},
		{"B.80.02", AttrMSME, false},
		{"B.30.01", AttrSecuredUnsecured, true},
		{"C.90.02", AttrSecuredUnsecured, false},
		{"C.90.02", AttrCashNonCash, true},
		{"", AttrCashNonCash, true},
		{"", AttrMSME, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsAttributeApplicable(tt.code, tt.key), "%s/%s", tt.code, tt.key)
	}
}

func TestEffectiveAttributes_IgnoresStaleFlags(t *testing.T) {
	item := LedgerItem{
		ID:      "L1",
		Mapping: &Mapping{MajorHeadCode: "B", MinorHeadCode: "B.80", GroupingCode: "B.80.02"},
		Attributes: LedgerAttributes{
			IsMSME:        true, // left over from an earlier B.80.01 mapping
			IsDisputed:    true,
			IsCashNonCash: "Cash",
		},
	}

	got := EffectiveAttributes(item)
	assert.False(t, got.IsMSME)
	assert.True(t, got.IsDisputed)
	assert.Equal(t, "Cash", got.IsCashNonCash)

	// The stored record keeps the stale flag.
	assert.True(t, item.Attributes.IsMSME)
}

func TestLedgerItemClone(t *testing.T) {
	item := LedgerItem{
		ID:         "L1",
		Mapping:    &Mapping{GroupingCode: "A.10.01"},
		Suggestion: &Suggestion{GroupingCode: "A.10.02"},
	}
	c := item.Clone()
	c.Mapping.GroupingCode = "X"
	c.Suggestion.GroupingCode = "Y"

	assert.Equal(t, "A.10.01", item.Mapping.GroupingCode)
	assert.Equal(t, "A.10.02", item.Suggestion.GroupingCode)
}

func TestSuggestionMappingRoundTrip(t *testing.T) {
	m := Mapping{MajorHeadCode: "A", MinorHeadCode: "A.10", GroupingCode: "A.10.01"}
	s := SuggestionFromMapping(m)
	assert.True(t, s.Usable())
	assert.Equal(t, m, s.Mapping())

	assert.False(t, Suggestion{Error: "timeout"}.Usable())
}
