package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbmap/tbmap/internal/config"
	"github.com/tbmap/tbmap/internal/model"
	"github.com/tbmap/tbmap/internal/notes"
	"github.com/tbmap/tbmap/internal/schedules"
	"github.com/tbmap/tbmap/internal/validation"
)

func newProject(t *testing.T, entityType string) *Project {
	t.Helper()
	p, err := Init(t.TempDir(), config.Default("Acme", entityType))
	require.NoError(t, err)
	return p
}

func TestInit(t *testing.T) {
	p := newProject(t, "Company")
	for _, name := range []string{config.FileName, MastersFile, LedgersFile, NotesFile, SchedulesFile} {
		_, err := os.Stat(filepath.Join(p.Root, name))
		require.NoError(t, err, name)
	}
	for _, d := range Dirs {
		info, err := os.Stat(filepath.Join(p.Root, d))
		require.NoError(t, err, d)
		assert.True(t, info.IsDir())
	}
	assert.Equal(t, model.EntityCompany, p.EntityType)
	assert.Equal(t, 0, p.Ledgers.Len())

	_, err := Init(p.Root, config.Default("Again", "Company"))
	assert.ErrorIs(t, err, ErrExists)
}

func TestInit_InvalidConfig(t *testing.T) {
	_, err := Init(t.TempDir(), config.Default("Acme", "Trust"))
	assert.Error(t, err)
}

func TestOpen_NotAProject(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.ErrorIs(t, err, ErrNotProject)
}

func TestRoundTrip(t *testing.T) {
	p := newProject(t, "LLP")

	g, err := p.Masters.AddGrouping("C.90", "Software Subscriptions")
	require.NoError(t, err)
	p.Ledgers.MergeImport([]model.ImportRow{
		{Row: 2, LedgerName: "Sales", ClosingCy: decimal.NewFromInt(-500), ClosingPy: decimal.NewFromInt(-400)},
		{Row: 3, LedgerName: "SaaS", ClosingCy: decimal.NewFromInt(500), ClosingPy: decimal.NewFromInt(400)},
	})
	ids := p.Ledgers.IDs()
	require.Len(t, ids, 2)

	w := p.Workflow(nil)
	anc, err := p.Masters.ResolveAncestry(g.Code)
	require.NoError(t, err)
	require.NoError(t, w.Map(ids[1], anc.Mapping()))

	li, err := p.LineItems.Add(notes.OtherExpenses, "Technology")
	require.NoError(t, err)
	r := w.Club([]string{ids[1]}, li.ID)
	require.Len(t, r.Applied, 1)

	_, err = p.Schedules.Populate(notes.OtherExpenses, p.ScheduleSource(), schedules.Options{})
	require.NoError(t, err)
	p.Selections[0].Selected = false
	require.NoError(t, p.Save())

	q, err := Open(p.Root)
	require.NoError(t, err)
	assert.Equal(t, model.EntityLLP, q.EntityType)
	assert.Equal(t, p.Masters.Snapshot(), q.Masters.Snapshot())
	assert.Equal(t, p.Ledgers.Snapshot(), q.Ledgers.Snapshot())
	assert.Equal(t, p.LineItems.All(), q.LineItems.All())
	assert.Equal(t, p.Selections, q.Selections)
	assert.Len(t, q.Schedules.All(), 1)

	got, err := q.Ledgers.Get(ids[1])
	require.NoError(t, err)
	assert.Equal(t, g.Code, got.Mapping.GroupingCode)
	assert.Equal(t, li.ID, got.Mapping.NoteLineItemID)

	// New ledgers continue the id sequence after a reload.
	sum := q.Ledgers.MergeImport([]model.ImportRow{{Row: 2, LedgerName: "Rent", ClosingCy: decimal.NewFromInt(1)}})
	require.Len(t, sum.Added, 1)
	assert.NotContains(t, ids, sum.Added[0])
}

func TestOpen_MissingFilesStartFresh(t *testing.T) {
	p := newProject(t, "Company")
	for _, name := range []string{MastersFile, LedgersFile, NotesFile, SchedulesFile} {
		require.NoError(t, os.Remove(filepath.Join(p.Root, name)))
	}
	q, err := Open(p.Root)
	require.NoError(t, err)
	assert.NotEmpty(t, q.Masters.Snapshot().Groupings)
	assert.Equal(t, 0, q.Ledgers.Len())
	assert.Equal(t, notes.DefaultSelections(model.EntityCompany), q.Selections)
}

func TestOpen_CorruptFile(t *testing.T) {
	p := newProject(t, "Company")
	require.NoError(t, os.WriteFile(filepath.Join(p.Root, LedgersFile), []byte("{"), 0o644))
	_, err := Open(p.Root)
	assert.ErrorContains(t, err, LedgersFile)
}

func TestOpen_EnvOverrides(t *testing.T) {
	p := newProject(t, "Company")
	t.Setenv("TBMAP_CLASSIFIER_TOKEN", "secret")
	t.Setenv("TBMAP_ENTITY_TYPE", "Non-Corporate")
	q, err := Open(p.Root)
	require.NoError(t, err)
	assert.Equal(t, "secret", q.Config.Suggestions.Token)
	assert.Equal(t, model.EntityNonCorporate, q.EntityType)
}

func TestValidationOptions(t *testing.T) {
	p := newProject(t, "Company")
	p.Config.Validation.UnmappedSeverity = "High"
	p.Config.Validation.BalanceTolerance = 0.5
	opts, err := p.ValidationOptions()
	require.NoError(t, err)
	assert.Equal(t, validation.High, opts.UnmappedSeverity)
	assert.Equal(t, "0.5", opts.Tolerance.String())
}

func TestInputsAreSnapshots(t *testing.T) {
	p := newProject(t, "Company")
	p.Ledgers.MergeImport([]model.ImportRow{{Row: 2, LedgerName: "Sales", ClosingCy: decimal.NewFromInt(-5)}})
	in := p.StatementInput()
	in.Ledgers[0].LedgerName = "changed"
	got, err := p.Ledgers.Get(in.Ledgers[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Sales", got.LedgerName)
	assert.NotEmpty(t, in.NoteNumbers)
}
