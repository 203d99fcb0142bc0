package notes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbmap/tbmap/internal/masters"
	"github.com/tbmap/tbmap/internal/model"
)

func TestEveryStandardGroupingHasANote(t *testing.T) {
	for _, et := range []model.EntityType{model.EntityCompany, model.EntityLLP, model.EntityNonCorporate} {
		for _, g := range masters.Standard().Groupings {
			_, ok := ForGrouping(g.Code, et)
			assert.True(t, ok, "%s has no note for %s", g.Code, et)
		}
	}
}

func TestForGrouping_EntityVariants(t *testing.T) {
	n, ok := ForGrouping("B.10.01", model.EntityCompany)
	require.True(t, ok)
	assert.Equal(t, ShareCapital, n.ID)

	n, ok = ForGrouping("B.20.07", model.EntityLLP)
	require.True(t, ok)
	assert.Equal(t, PartnersFunds, n.ID)

	n, ok = ForGrouping("A.100.01", model.EntityCompany)
	require.True(t, ok)
	assert.Equal(t, Inventories, n.ID, "A.10 must not capture A.100")
}

func TestApplicable(t *testing.T) {
	company := Applicable(model.EntityCompany)
	llp := Applicable(model.EntityLLP)
	assert.Len(t, company, len(catalog)-1)
	assert.Len(t, llp, len(catalog)-2)
	assert.Equal(t, ShareCapital, company[0].ID)
	assert.Equal(t, PartnersFunds, llp[0].ID)
}

func TestNumberMap(t *testing.T) {
	sel := []Selection{
		{ID: Revenue, Selected: true, Order: 30},
		{ID: ShareCapital, Selected: true, Order: 10},
		{ID: PPE, Selected: false, Order: 20},
		{ID: OtherExpenses, Selected: true, Order: 40},
	}
	got := NumberMap(sel)
	assert.Equal(t, map[string]int{ShareCapital: 1, Revenue: 2, OtherExpenses: 3}, got)

	def := NumberMap(DefaultSelections(model.EntityCompany))
	assert.Equal(t, 1, def[ShareCapital])
	assert.Equal(t, len(catalog)-1, def[OtherExpenses])
	_, ok := def[PartnersFunds]
	assert.False(t, ok)
}

func TestLineItems(t *testing.T) {
	l := NewLineItems(nil)
	it, err := l.Add(OtherExpenses, "  Office running costs ")
	require.NoError(t, err)
	assert.Equal(t, "Office running costs", it.Name)
	assert.NotEmpty(t, it.ID)

	_, err = l.Add("nope", "x")
	assert.ErrorIs(t, err, ErrUnknownNote)
	_, err = l.Add(OtherExpenses, " ")
	assert.Error(t, err)

	assert.NoError(t, l.CheckClubbing("C.90.02", it.ID))
	assert.ErrorIs(t, l.CheckClubbing("C.60.01", it.ID), ErrClubbing)
	assert.ErrorIs(t, l.CheckClubbing("C.90.02", "missing"), ErrLineItemNotFound)

	require.NoError(t, l.Rename(it.ID, "Establishment"))
	got, ok := l.Get(it.ID)
	require.True(t, ok)
	assert.Equal(t, "Establishment", got.Name)
	assert.Len(t, l.ForNote(OtherExpenses), 1)

	require.NoError(t, l.Remove(it.ID))
	assert.ErrorIs(t, l.Remove(it.ID), ErrLineItemNotFound)
	assert.Empty(t, l.All())
}
