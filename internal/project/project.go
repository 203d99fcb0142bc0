// Package project loads and saves a tbmap workspace: the config file plus
// the masters, ledgers, notes and schedules as plain JSON.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"github.com/tbmap/tbmap/internal/config"
	"github.com/tbmap/tbmap/internal/ledger"
	"github.com/tbmap/tbmap/internal/mapping"
	"github.com/tbmap/tbmap/internal/masters"
	"github.com/tbmap/tbmap/internal/model"
	"github.com/tbmap/tbmap/internal/notes"
	"github.com/tbmap/tbmap/internal/schedules"
	"github.com/tbmap/tbmap/internal/statements"
	"github.com/tbmap/tbmap/internal/validation"
)

var (
	ErrExists     = errors.New("project already initialized")
	ErrNotProject = errors.New("not a tbmap project (no " + config.FileName + ")")
)

const (
	MastersFile   = "masters.json"
	LedgersFile   = "ledgers.json"
	NotesFile     = "notes.json"
	SchedulesFile = "schedules.json"
)

// Dirs are created by Init.
var Dirs = []string{"import", filepath.Join("import", "processed"), "exports", "logs"}

// notesState is the on-disk layout of notes.json.
type notesState struct {
	Selections []notes.Selection    `json:"selections"`
	LineItems  []model.NoteLineItem `json:"lineItems"`
}

// Project is an opened workspace.
type Project struct {
	Root       string
	Config     *config.Config
	EntityType model.EntityType

	Masters    *masters.Hierarchy
	Ledgers    *ledger.Store
	LineItems  *notes.LineItems
	Selections []notes.Selection
	Schedules  *schedules.Book
}

// Init creates a new workspace at root with the standard chart and writes it
// to disk.
func Init(root string, cfg *config.Config) (*Project, error) {
	if _, err := os.Stat(filepath.Join(root, config.FileName)); err == nil {
		return nil, fmt.Errorf("%s: %w", root, ErrExists)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	et, err := model.ParseEntityType(cfg.Entity.EntityType)
	if err != nil {
		return nil, err
	}
	for _, d := range Dirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", d, err)
		}
	}
	if err := config.Save(filepath.Join(root, config.FileName), cfg); err != nil {
		return nil, err
	}

	store, err := ledger.NewStore(nil)
	if err != nil {
		return nil, err
	}
	p := &Project{
		Root:       root,
		Config:     cfg,
		EntityType: et,
		Masters:    masters.NewStandard(),
		Ledgers:    store,
		LineItems:  notes.NewLineItems(nil),
		Selections: notes.DefaultSelections(et),
		Schedules:  schedules.NewBook(nil),
	}
	if err := p.Save(); err != nil {
		return nil, err
	}
	return p, nil
}

// Open loads the workspace at root. Environment overrides are applied to
// the config after it is read. Missing data files start empty, except the
// masters, which start as the standard chart.
func Open(root string) (*Project, error) {
	cfg, err := config.Load(filepath.Join(root, config.FileName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", root, ErrNotProject)
	}
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	et, err := model.ParseEntityType(cfg.Entity.EntityType)
	if err != nil {
		return nil, err
	}
	p := &Project{Root: root, Config: cfg, EntityType: et}

	m := masters.Standard()
	if _, err := readJSON(p.path(MastersFile), &m); err != nil {
		return nil, err
	}
	if p.Masters, err = masters.New(m); err != nil {
		return nil, fmt.Errorf("%s: %w", MastersFile, err)
	}

	var items []model.LedgerItem
	if _, err := readJSON(p.path(LedgersFile), &items); err != nil {
		return nil, err
	}
	if p.Ledgers, err = ledger.NewStore(items); err != nil {
		return nil, fmt.Errorf("%s: %w", LedgersFile, err)
	}

	var ns notesState
	found, err := readJSON(p.path(NotesFile), &ns)
	if err != nil {
		return nil, err
	}
	p.LineItems = notes.NewLineItems(ns.LineItems)
	p.Selections = ns.Selections
	if !found {
		p.Selections = notes.DefaultSelections(et)
	}

	var scheds []schedules.Schedule
	if _, err := readJSON(p.path(SchedulesFile), &scheds); err != nil {
		return nil, err
	}
	p.Schedules = schedules.NewBook(scheds)
	return p, nil
}

// Save writes every data file. The config file is left alone.
func (p *Project) Save() error {
	items := p.Ledgers.Snapshot()
	if items == nil {
		items = []model.LedgerItem{}
	}
	files := []struct {
		name string
		v    any
	}{
		{MastersFile, p.Masters.Snapshot()},
		{LedgersFile, items},
		{NotesFile, notesState{Selections: p.Selections, LineItems: p.LineItems.All()}},
		{SchedulesFile, p.Schedules.All()},
	}
	for _, f := range files {
		if err := writeJSON(p.path(f.name), f.v); err != nil {
			return err
		}
	}
	return nil
}

// SaveConfig writes the config file. Environment-only values such as the
// classifier token are not persisted.
func (p *Project) SaveConfig() error {
	return config.Save(p.path(config.FileName), p.Config)
}

func (p *Project) path(name string) string {
	return filepath.Join(p.Root, name)
}

// Workflow returns a mapping workflow over the project's ledgers and masters
// configured from the suggestions section.
func (p *Project) Workflow(log *slog.Logger) *mapping.Workflow {
	s := p.Config.Suggestions
	return mapping.New(p.Ledgers, p.Masters, mapping.Options{
		BatchSize:     s.BatchSize,
		Concurrency:   s.Concurrency,
		RatePerSecond: s.RatePerSecond,
		Burst:         s.Burst,
		Overwrite:     s.Overwrite,
		Clubbing:      p.LineItems,
		Logger:        log,
	})
}

// NoteNumbers numbers the selected notes.
func (p *Project) NoteNumbers() map[string]int {
	return notes.NumberMap(p.Selections)
}

// StatementInput snapshots the project for the statement generator.
func (p *Project) StatementInput() statements.Input {
	return statements.Input{
		Ledgers:     p.Ledgers.Snapshot(),
		Masters:     p.Masters.Snapshot(),
		LineItems:   p.LineItems.All(),
		EntityType:  p.EntityType,
		NoteNumbers: p.NoteNumbers(),
	}
}

// ScheduleSource snapshots the project for the schedule populator.
func (p *Project) ScheduleSource() schedules.Source {
	return schedules.Source{
		Ledgers:   p.Ledgers.Snapshot(),
		Masters:   p.Masters.Snapshot(),
		LineItems: p.LineItems.All(),
	}
}

// ValidationInput snapshots the project for the validation engine.
func (p *Project) ValidationInput() validation.Input {
	all := p.Schedules.All()
	byID := make(map[string]schedules.Schedule, len(all))
	for _, s := range all {
		byID[s.ID] = s
	}
	return validation.Input{
		Ledgers:   p.Ledgers.Snapshot(),
		Masters:   p.Masters.Snapshot(),
		LineItems: p.LineItems.All(),
		Schedules: byID,
	}
}

// ValidationOptions reads the validation section.
func (p *Project) ValidationOptions() (validation.Options, error) {
	sev, err := validation.ParseSeverity(p.Config.Validation.UnmappedSeverity)
	if err != nil {
		return validation.Options{}, err
	}
	return validation.Options{
		UnmappedSeverity: sev,
		Tolerance:        decimal.NewFromFloat(p.Config.Validation.BalanceTolerance),
	}, nil
}

// readJSON decodes path into v. A missing file leaves v alone and reports
// false.
func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

// writeJSON replaces path atomically.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	return nil
}
