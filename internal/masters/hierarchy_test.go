package masters

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbmap/tbmap/internal/id"
	"github.com/tbmap/tbmap/internal/model"
)

func landAndBuildings() model.Masters {
	return model.Masters{
		MajorHeads: []model.MajorHead{{Code: "A", Name: "Assets"}},
		MinorHeads: []model.MinorHead{{Code: "A.10", Name: "Property, Plant and Equipment", MajorHeadCode: "A"}},
		Groupings: []model.Grouping{
			{Code: "A.10.01", Name: "Land", MinorHeadCode: "A.10"},
			{Code: "A.10.02", Name: "Buildings", MinorHeadCode: "A.10"},
		},
	}
}

func TestStandardChart(t *testing.T) {
	m := Standard()
	assert.Len(t, m.MajorHeads, 3)
	assert.Len(t, m.MinorHeads, 33)
	assert.Greater(t, len(m.Groupings), 150)
	assert.Empty(t, Validate(m))

	h := NewStandard()
	g, ok := h.Grouping("B.80.01")
	require.True(t, ok)
	assert.Equal(t, "Trade Payables – MSME", g.Name)
}

func TestStandardReturnsCopy(t *testing.T) {
	a := Standard()
	a.Groupings[0].Name = "changed"
	b := Standard()
	assert.NotEqual(t, "changed", b.Groupings[0].Name)
}

// Every grouping's minor head belongs to the major head named by the
// grouping's leading code segment.
func TestHierarchyConsistency(t *testing.T) {
	h := NewStandard()
	h.AddGrouping("C.90", "Software Subscriptions")
	h.AddGrouping("A.110", "Receivables – Group Companies")

	for _, g := range h.Snapshot().Groupings {
		anc, err := h.ResolveAncestry(g.Code)
		require.NoError(t, err, g.Code)
		assert.Equal(t, anc.Minor.Code, id.Parent(g.Code))
		assert.Equal(t, anc.Major.Code, id.Parent(anc.Minor.Code))
		assert.True(t, strings.HasPrefix(g.Code, anc.Major.Code+"."), g.Code)
	}
}

func TestResolveAncestry(t *testing.T) {
	h, err := New(landAndBuildings())
	require.NoError(t, err)

	anc, err := h.ResolveAncestry("A.10.02")
	require.NoError(t, err)
	assert.Equal(t, "A", anc.Major.Code)
	assert.Equal(t, "A.10", anc.Minor.Code)
	assert.Equal(t, "Buildings", anc.Grouping.Name)
	assert.Equal(t, model.Mapping{MajorHeadCode: "A", MinorHeadCode: "A.10", GroupingCode: "A.10.02"}, anc.Mapping())

	_, err = h.ResolveAncestry("A.10.99")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCheckMapping(t *testing.T) {
	h := NewStandard()

	assert.NoError(t, h.CheckMapping(model.Mapping{MajorHeadCode: "B", MinorHeadCode: "B.80", GroupingCode: "B.80.01"}))

	err := h.CheckMapping(model.Mapping{MajorHeadCode: "B", MinorHeadCode: "B.90", GroupingCode: "B.80.01"})
	assert.ErrorIs(t, err, ErrInvalidMapping)

	err = h.CheckMapping(model.Mapping{MajorHeadCode: "B", MinorHeadCode: "B.80", GroupingCode: "B.80.77"})
	assert.ErrorIs(t, err, ErrInvalidMapping)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddGrouping(t *testing.T) {
	h, err := New(landAndBuildings())
	require.NoError(t, err)

	g, err := h.AddGrouping("A.10", "Solar Panels")
	require.NoError(t, err)
	assert.Equal(t, "A.10_G003", g.Code)
	assert.Equal(t, "A.10", g.MinorHeadCode)
	assert.True(t, h.Exists("A.10_G003"))

	g, err = h.AddGrouping("A.10", "Wind Turbines")
	require.NoError(t, err)
	assert.Equal(t, "A.10_G004", g.Code)
}

func TestAddGrouping_SkipsCollisions(t *testing.T) {
	m := landAndBuildings()
	m.Groupings = append(m.Groupings, model.Grouping{Code: "A.10_G004", Name: "Imported", MinorHeadCode: "A.10"})
	h, err := New(m)
	require.NoError(t, err)

	// three groupings exist, so numbering starts at 4, which is taken
	g, err := h.AddGrouping("A.10", "New")
	require.NoError(t, err)
	assert.Equal(t, "A.10_G005", g.Code)
}

func TestAddGrouping_InvalidParent(t *testing.T) {
	h := NewStandard()
	_, err := h.AddGrouping("Z.10", "Nope")
	assert.ErrorIs(t, err, ErrInvalidParent)

	_, err = h.AddGrouping("A.10", "  ")
	assert.Error(t, err)
}

func TestResetToStandard_ReportsOrphans(t *testing.T) {
	h := NewStandard()
	custom, err := h.AddGrouping("C.90", "Cloud Hosting")
	require.NoError(t, err)

	ledgers := []model.LedgerItem{
		{ID: "L0001", Mapping: &model.Mapping{MajorHeadCode: "C", MinorHeadCode: "C.90", GroupingCode: custom.Code}},
		{ID: "L0002", Mapping: &model.Mapping{MajorHeadCode: "C", MinorHeadCode: "C.90", GroupingCode: "C.90.02"}},
		{ID: "L0003"},
	}

	orphans := h.ResetToStandard(ledgers)
	assert.Equal(t, []string{"L0001"}, orphans)
	assert.False(t, h.Exists(custom.Code))
	// the ledger record itself is untouched
	assert.Equal(t, custom.Code, ledgers[0].Mapping.GroupingCode)
}

func TestValidate(t *testing.T) {
	m := landAndBuildings()
	m.MinorHeads = append(m.MinorHeads, model.MinorHead{Code: "B.10", Name: "Share Capital", MajorHeadCode: "B"})
	m.Groupings = append(m.Groupings,
		model.Grouping{Code: "A.10.01", Name: "Dup", MinorHeadCode: "A.10"},
		model.Grouping{Code: "A.20.01", Name: "Wrong prefix", MinorHeadCode: "A.10"},
	)

	errs := Validate(m)
	require.Len(t, errs, 3)
	assert.ErrorIs(t, errs[0], ErrInvalidParent)
	assert.ErrorIs(t, errs[1], ErrDuplicateCode)
	assert.ErrorIs(t, errs[2], ErrInvalidParent)

	_, err := New(m)
	assert.Error(t, err)
}

func TestRowsSortedByCode(t *testing.T) {
	h := NewStandard()
	rows := h.Rows()
	require.Len(t, rows, len(h.Snapshot().Groupings))
	for i := 1; i < len(rows); i++ {
		assert.Negative(t, id.Compare(rows[i-1].Grouping.Code, rows[i].Grouping.Code))
	}
	assert.Equal(t, "A.10.01", rows[0].Grouping.Code)
	assert.Equal(t, "Assets", rows[0].Major.Name)
}

func TestGroupingsUnder(t *testing.T) {
	h := NewStandard()
	ppe := h.GroupingsUnder("A.10")
	assert.Len(t, ppe, 11)
	for _, g := range ppe {
		assert.Equal(t, "A.10", g.MinorHeadCode)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	h := NewStandard()
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, h.Rows()))

	assert.True(t, strings.HasPrefix(buf.String(), "major_head_code,major_head_name,"))

	m, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Empty(t, Validate(m))
	assert.Len(t, m.MajorHeads, 3)
	assert.Len(t, m.MinorHeads, 33)
	assert.Len(t, m.Groupings, len(Standard().Groupings))
}

func TestReadCSV_ConflictingNames(t *testing.T) {
	in := "major_head_code,major_head_name,minor_head_code,minor_head_name,grouping_code,grouping_name\n" +
		"A,Assets,A.10,PPE,A.10.01,Land\n" +
		"A,Other,A.10,PPE,A.10.02,Buildings\n"
	_, err := ReadCSV(strings.NewReader(in))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 3")
}
