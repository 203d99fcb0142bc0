package ledger

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/tbmap/tbmap/internal/id"
	"github.com/tbmap/tbmap/internal/model"
)

var (
	ErrNotFound  = errors.New("ledger: not found")
	ErrDuplicate = errors.New("ledger: duplicate id")
)

// ItemError records why an operation on one ledger of a batch failed.
type ItemError struct {
	LedgerID string
	Err      error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("ledger %s: %v", e.LedgerID, e.Err)
}

func (e ItemError) Unwrap() error { return e.Err }

// Store is the keyed collection of trial-balance ledgers. Items live in an
// insertion-ordered arena with an id index; every read returns a deep copy
// and every write replaces a whole record under the lock.
type Store struct {
	mu      sync.RWMutex
	items   []model.LedgerItem
	index   map[string]int
	nextSeq int
}

// NewStore creates a Store from existing items, keeping their order.
func NewStore(items []model.LedgerItem) (*Store, error) {
	s := &Store{index: make(map[string]int, len(items)), nextSeq: 1}
	for _, it := range items {
		if _, dup := s.index[it.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicate, it.ID)
		}
		s.appendLocked(it.Clone())
	}
	return s, nil
}

func (s *Store) appendLocked(it model.LedgerItem) {
	s.index[it.ID] = len(s.items)
	s.items = append(s.items, it)
	if seq, err := id.ParseLedgerID(it.ID); err == nil && seq >= s.nextSeq {
		s.nextSeq = seq + 1
	}
}

// Len returns the number of ledgers.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Get returns a copy of one ledger.
func (s *Store) Get(ledgerID string) (model.LedgerItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[ledgerID]
	if !ok {
		return model.LedgerItem{}, fmt.Errorf("%w: %s", ErrNotFound, ledgerID)
	}
	return s.items[i].Clone(), nil
}

// Snapshot returns copies of all ledgers in insertion order.
func (s *Store) Snapshot() []model.LedgerItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.LedgerItem, len(s.items))
	for i, it := range s.items {
		out[i] = it.Clone()
	}
	return out
}

// IDs returns all ledger ids in insertion order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.items))
	for i, it := range s.items {
		out[i] = it.ID
	}
	return out
}

// Filter returns copies of the ledgers for which keep returns true.
func (s *Store) Filter(keep func(model.LedgerItem) bool) []model.LedgerItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.LedgerItem
	for _, it := range s.items {
		if keep(it) {
			out = append(out, it.Clone())
		}
	}
	return out
}

// Upsert replaces the ledger with the same id or appends a new one. An empty
// id is assigned the next sequential ledger id, which is returned.
func (s *Store) Upsert(item model.LedgerItem) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == "" {
		item.ID = id.FormatLedgerID(s.nextSeq)
	}
	if i, ok := s.index[item.ID]; ok {
		s.items[i] = item.Clone()
		return item.ID
	}
	s.appendLocked(item.Clone())
	return item.ID
}

// Update applies fn to a copy of one ledger and stores the result if fn
// returns nil. The ledger cannot be changed by anyone else in between.
func (s *Store) Update(ledgerID string, fn func(*model.LedgerItem) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(ledgerID, fn)
}

func (s *Store) updateLocked(ledgerID string, fn func(*model.LedgerItem) error) error {
	i, ok := s.index[ledgerID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, ledgerID)
	}
	next := s.items[i].Clone()
	if err := fn(&next); err != nil {
		return err
	}
	next.ID = ledgerID
	s.items[i] = next
	return nil
}

// BulkUpdate applies fn to each ledger in turn under a single lock. Failures
// are collected per ledger and never stop the rest of the batch.
func (s *Store) BulkUpdate(ledgerIDs []string, fn func(*model.LedgerItem) error) []ItemError {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []ItemError
	for _, lid := range ledgerIDs {
		if err := s.updateLocked(lid, fn); err != nil {
			errs = append(errs, ItemError{LedgerID: lid, Err: err})
		}
	}
	return errs
}

// Remove deletes one ledger.
func (s *Store) Remove(ledgerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[ledgerID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, ledgerID)
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	delete(s.index, ledgerID)
	for j := i; j < len(s.items); j++ {
		s.index[s.items[j].ID] = j
	}
	return nil
}

// MergeSummary describes the effect of MergeImport.
type MergeSummary struct {
	Updated []string // existing ledgers given fresh balances
	Added   []string // ledgers created for new names
	Missing []string // existing ledgers absent from the import, left as they were
}

// MergeImport folds an imported trial balance into the store. Rows are matched
// to ledgers by trimmed, case-insensitive name. Matched ledgers take the new
// balances and keep mapping, suggestion and attributes; unknown names become new
// unmapped ledgers. A name repeated in the import pairs with same-named ledgers
// in store order, one row per ledger, and any extra rows become new ledgers,
// so no row's balance is ever overwritten by another.
func (s *Store) MergeImport(rows []model.ImportRow) MergeSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	byName := make(map[string][]int, len(s.items))
	for i, it := range s.items {
		key := nameKey(it.LedgerName)
		byName[key] = append(byName[key], i)
	}

	var sum MergeSummary
	seen := make(map[int]bool, len(rows))
	for _, r := range rows {
		key := nameKey(r.LedgerName)
		if free := byName[key]; len(free) > 0 {
			i := free[0]
			byName[key] = free[1:]
			s.items[i].ClosingCy = r.ClosingCy
			s.items[i].ClosingPy = r.ClosingPy
			seen[i] = true
			sum.Updated = append(sum.Updated, s.items[i].ID)
			continue
		}
		it := model.LedgerItem{
			ID:         id.FormatLedgerID(s.nextSeq),
			LedgerName: strings.TrimSpace(r.LedgerName),
			ClosingCy:  r.ClosingCy,
			ClosingPy:  r.ClosingPy,
		}
		s.appendLocked(it)
		seen[len(s.items)-1] = true
		sum.Added = append(sum.Added, it.ID)
	}
	for i, it := range s.items {
		if !seen[i] {
			sum.Missing = append(sum.Missing, it.ID)
		}
	}
	return sum
}

// Totals returns the sum of closing balances across all ledgers.
func (s *Store) Totals() (cy, py decimal.Decimal) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Totals(s.items)
}

// Totals sums closing balances of items.
func Totals(items []model.LedgerItem) (cy, py decimal.Decimal) {
	cy, py = decimal.Zero, decimal.Zero
	for _, it := range items {
		cy = cy.Add(it.ClosingCy)
		py = py.Add(it.ClosingPy)
	}
	return cy, py
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
