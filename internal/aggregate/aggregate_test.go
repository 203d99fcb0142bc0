package aggregate

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbmap/tbmap/internal/masters"
	"github.com/tbmap/tbmap/internal/model"
)

func mapped(lid, name string, cy, py int64, major, minor, grouping string) model.LedgerItem {
	return model.LedgerItem{
		ID:         lid,
		LedgerName: name,
		ClosingCy:  decimal.NewFromInt(cy),
		ClosingPy:  decimal.NewFromInt(py),
		Mapping:    &model.Mapping{MajorHeadCode: major, MinorHeadCode: minor, GroupingCode: grouping},
	}
}

func TestByPrefix_PPEScenario(t *testing.T) {
	m := model.Masters{
		MajorHeads: []model.MajorHead{{Code: "A", Name: "Assets"}},
		MinorHeads: []model.MinorHead{{Code: "A.10", Name: "PPE", MajorHeadCode: "A"}},
		Groupings: []model.Grouping{
			{Code: "A.10.01", Name: "Land", MinorHeadCode: "A.10"},
			{Code: "A.10.02", Name: "Buildings", MinorHeadCode: "A.10"},
		},
	}
	ledgers := []model.LedgerItem{
		mapped("L0001", "Land Plot", 1200000, 0, "A", "A.10", "A.10.01"),
		mapped("L0002", "HQ Building", 2500000, 0, "A", "A.10", "A.10.02"),
	}

	buckets := NewEngine(m, nil).ByPrefix(ledgers, "A.10", false)
	require.Len(t, buckets, 2)
	assert.Equal(t, "Land", buckets[0].Label)
	assert.True(t, buckets[0].AmountCy.Equal(decimal.NewFromInt(1200000)))
	assert.Equal(t, "Buildings", buckets[1].Label)
	assert.True(t, buckets[1].AmountCy.Equal(decimal.NewFromInt(2500000)))

	cy, _ := Totals(buckets)
	assert.True(t, cy.Equal(decimal.NewFromInt(3700000)))
}

func TestByPrefix_SegmentAware(t *testing.T) {
	ledgers := []model.LedgerItem{
		mapped("L0001", "Land", 10, 0, "A", "A.10", "A.10.01"),
		mapped("L0002", "Raw material", 20, 0, "A", "A.100", "A.100.01"),
		mapped("L0003", "Custom", 30, 0, "A", "A.10", "A.10_G001"),
	}
	buckets := NewEngine(masters.Standard(), nil).ByPrefix(ledgers, "A.10", false)
	require.Len(t, buckets, 2)
	assert.Equal(t, "A.10.01", buckets[0].GroupingCode)
	assert.Equal(t, "A.10_G001", buckets[1].GroupingCode)
}

func TestByPrefix_ClubbingAndOrder(t *testing.T) {
	lineItems := []model.NoteLineItem{{ID: "li-1", NoteID: "otherExpenses", Name: "Office running costs"}}
	ledgers := []model.LedgerItem{
		mapped("L0001", "Rent", 100, 90, "C", "C.90", "C.90.02"),
		mapped("L0002", "Power", 50, 40, "C", "C.90", "C.90.01"),
		mapped("L0003", "Phone", 10, 5, "C", "C.90", "C.90.15"),
		mapped("L0004", "More rent", 1, 1, "C", "C.90", "C.90.02"),
		{ID: "L0005", LedgerName: "Unmapped", ClosingCy: decimal.NewFromInt(999)},
	}
	ledgers[1].Mapping.NoteLineItemID = "li-1"
	ledgers[2].Mapping.NoteLineItemID = "li-1"

	buckets := NewEngine(masters.Standard(), lineItems).ByPrefix(ledgers, "C.90", false)
	require.Len(t, buckets, 2)
	assert.Equal(t, "Rent", buckets[0].Label)
	assert.Equal(t, "101", buckets[0].AmountCy.String())
	assert.Equal(t, []string{"L0001", "L0004"}, buckets[0].LedgerIDs)
	assert.Equal(t, "Office running costs", buckets[1].Label)
	assert.Equal(t, "li-1", buckets[1].NoteLineItemID)
	assert.Equal(t, "60", buckets[1].AmountCy.String())
	assert.Equal(t, "45", buckets[1].AmountPy.String())
}

func TestByPrefix_UnknownLineItemFallsBackToGrouping(t *testing.T) {
	l := mapped("L0001", "Rent", 100, 0, "C", "C.90", "C.90.02")
	l.Mapping.NoteLineItemID = "gone"
	buckets := NewEngine(masters.Standard(), nil).ByPrefix([]model.LedgerItem{l}, "C", false)
	require.Len(t, buckets, 1)
	assert.Equal(t, "Rent", buckets[0].Label)
	assert.Empty(t, buckets[0].NoteLineItemID)
}

func TestByPrefix_NegateAndUnknown(t *testing.T) {
	ledgers := []model.LedgerItem{
		mapped("L0001", "Sales", -5000, -4000, "C", "C.10", "C.10.01"),
		mapped("L0002", "Old code", -7, 0, "C", "C.10", "C.10.77"),
	}
	e := NewEngine(masters.Standard(), nil)
	buckets := e.ByPrefix(ledgers, "C.10", true)
	require.Len(t, buckets, 2)
	assert.Equal(t, "5000", buckets[0].AmountCy.String())
	assert.Equal(t, "4000", buckets[0].AmountPy.String())
	assert.Equal(t, "C.10.77", buckets[1].Label)
	assert.True(t, buckets[1].Unknown)
	assert.Equal(t, []string{"C.10.77"}, Unknown(buckets))

	_, err := e.Label("C.10.77")
	assert.ErrorIs(t, err, ErrUnknownGrouping)
}

func TestZeroSuppressionIsLeftToCallers(t *testing.T) {
	ledgers := []model.LedgerItem{
		mapped("L0001", "Dormant", 0, 0, "A", "A.120", "A.120.02"),
		mapped("L0002", "Cash", 5, 0, "A", "A.120", "A.120.01"),
	}
	buckets := NewEngine(masters.Standard(), nil).ByPrefix(ledgers, "A.120", false)
	assert.Len(t, buckets, 2)
	assert.Len(t, NonZero(buckets), 1)
}

func TestTotalPreservation(t *testing.T) {
	std := masters.Standard()
	e := NewEngine(std, nil)
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		var ledgers []model.LedgerItem
		want := decimal.Zero
		for i := 0; i < 1+rng.Intn(40); i++ {
			g := std.Groupings[rng.Intn(len(std.Groupings))]
			amt := decimal.New(rng.Int63n(2_000_000)-1_000_000, -2)
			l := model.LedgerItem{ID: fmt.Sprintf("L%04d", i+1), ClosingCy: amt}
			if rng.Intn(4) > 0 {
				l.Mapping = &model.Mapping{GroupingCode: g.Code, MinorHeadCode: g.MinorHeadCode}
				want = want.Add(amt)
			}
			ledgers = append(ledgers, l)
		}
		cy, _ := Totals(e.ByPrefix(ledgers, "", false))
		require.True(t, cy.Equal(want), "round %d: got %s want %s", round, cy, want)

		sumCy, _ := Sum(ledgers, "")
		require.True(t, sumCy.Equal(want))
	}
}
