package schedules

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/tbmap/tbmap/internal/aggregate"
)

var (
	ErrUnknownSchedule = errors.New("unknown schedule")
	ErrNoData          = errors.New("no data to populate")
	ErrWouldOverwrite  = errors.New("schedule already has data; pass overwrite to replace it")
)

// Options controls Populate.
type Options struct {
	// Overwrite replaces a schedule that already holds data. Everything in
	// it is replaced, including hand-entered figures such as depreciation
	// for the year.
	Overwrite bool
}

// Compute builds a schedule from src without storing it. An empty result
// is reported as ErrNoData.
func Compute(scheduleID string, src Source) (Schedule, error) {
	def, ok := lookup(scheduleID)
	if !ok {
		return Schedule{}, fmt.Errorf("%w: %s", ErrUnknownSchedule, scheduleID)
	}
	s := def.build(aggregate.NewEngine(src.Masters, src.LineItems), src.Ledgers)
	if s.IsEmpty() {
		return s, fmt.Errorf("%s: %w", scheduleID, ErrNoData)
	}
	return s, nil
}

// Book holds the current schedules by id.
type Book struct {
	mu    sync.RWMutex
	items map[string]Schedule
}

// NewBook wraps previously saved schedules.
func NewBook(existing []Schedule) *Book {
	b := &Book{items: make(map[string]Schedule, len(existing))}
	for _, s := range existing {
		b.items[s.ID] = s
	}
	return b
}

// Get returns one schedule.
func (b *Book) Get(scheduleID string) (Schedule, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.items[scheduleID]
	return s, ok
}

// All returns every stored schedule in display order.
func (b *Book) All() []Schedule {
	b.mu.RLock()
	out := make([]Schedule, 0, len(b.items))
	for _, s := range b.items {
		out = append(out, s)
	}
	b.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		oi, oj := order(out[i].ID), order(out[j].ID)
		if oi != oj {
			return oi < oj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Set stores a hand-edited schedule as is.
func (b *Book) Set(s Schedule) error {
	if _, ok := lookup(s.ID); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSchedule, s.ID)
	}
	b.mu.Lock()
	b.items[s.ID] = s
	b.mu.Unlock()
	return nil
}

// Populate computes a schedule and stores it. With no data the stored
// schedule is left untouched. A schedule that already holds different data
// is only replaced when opts.Overwrite is set.
func (b *Book) Populate(scheduleID string, src Source, opts Options) (Schedule, error) {
	s, err := Compute(scheduleID, src)
	if err != nil {
		return Schedule{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if cur, ok := b.items[scheduleID]; ok && !cur.IsEmpty() && !opts.Overwrite && !same(cur, s) {
		return cur, fmt.Errorf("%s: %w", scheduleID, ErrWouldOverwrite)
	}
	b.items[scheduleID] = s
	return s, nil
}

// Outcome is the result of populating one schedule in PopulateAll.
type Outcome struct {
	ID  string
	Err error
}

// PopulateAll populates every known schedule. Failures are reported per
// schedule.
func (b *Book) PopulateAll(src Source, opts Options) []Outcome {
	out := make([]Outcome, 0, len(definitions))
	for _, d := range definitions {
		_, err := b.Populate(d.ID, src, opts)
		out = append(out, Outcome{ID: d.ID, Err: err})
	}
	return out
}

// SetField sets a named figure on a schedule, creating the field when the
// schedule does not have it yet.
func (b *Book) SetField(scheduleID, key string, cy, py decimal.Decimal) error {
	def, ok := lookup(scheduleID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSchedule, scheduleID)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.items[scheduleID]
	if !ok {
		s = Schedule{ID: def.ID, Title: def.Title, Shape: def.Shape}
	}
	s.Fields = slices.Clone(s.Fields)
	for i := range s.Fields {
		if s.Fields[i].Key == key {
			s.Fields[i].AmountCy, s.Fields[i].AmountPy = cy, py
			b.items[scheduleID] = s
			return nil
		}
	}
	label := key
	for _, f := range MSMEDisclosureFields {
		if f.Key == key {
			label = f.Label
		}
	}
	s.Fields = append(s.Fields, FieldValue{Key: key, Label: label, AmountCy: cy, AmountPy: py})
	b.items[scheduleID] = s
	return nil
}

// SetAgeing sets one cell of an ageing schedule.
func (b *Book) SetAgeing(scheduleID, category, bucket string, amount decimal.Decimal) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.items[scheduleID]
	if !ok || s.Ageing == nil {
		return fmt.Errorf("%s: no ageing table; populate it first", scheduleID)
	}
	col := slices.Index(s.Ageing.Buckets, bucket)
	if col < 0 {
		return fmt.Errorf("%s: unknown ageing bucket %q", scheduleID, bucket)
	}
	t := &AgeingTable{Buckets: s.Ageing.Buckets, Rows: make([]AgeingRow, len(s.Ageing.Rows))}
	found := false
	for i, r := range s.Ageing.Rows {
		t.Rows[i] = AgeingRow{Category: r.Category, Amounts: slices.Clone(r.Amounts)}
		if r.Category == category {
			t.Rows[i].Amounts[col] = amount
			found = true
		}
	}
	if !found {
		return fmt.Errorf("%s: unknown ageing category %q", scheduleID, category)
	}
	s.Ageing = t
	b.items[scheduleID] = s
	return nil
}

func same(a, b Schedule) bool {
	ja, err1 := json.Marshal(a)
	jb, err2 := json.Marshal(b)
	return err1 == nil && err2 == nil && string(ja) == string(jb)
}
