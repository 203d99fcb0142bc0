// Package mapping drives a ledger from unmapped, through an optional
// classifier suggestion, to a committed mapping and back.
package mapping

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/tbmap/tbmap/internal/ledger"
	"github.com/tbmap/tbmap/internal/masters"
	"github.com/tbmap/tbmap/internal/model"
)

var (
	ErrInvalidMapping = masters.ErrInvalidMapping
	ErrNoSuggestion   = errors.New("no usable suggestion")
	ErrClassifier     = errors.New("classifier failed")
)

// ItemError records why one ledger of a batch operation was not changed.
type ItemError = ledger.ItemError

// Report is the outcome of a batch operation. Every requested id lands in
// exactly one of the three lists.
type Report struct {
	Applied []string
	Skipped []string
	Errors  []ItemError
}

func (r *Report) merge(o Report) {
	r.Applied = append(r.Applied, o.Applied...)
	r.Skipped = append(r.Skipped, o.Skipped...)
	r.Errors = append(r.Errors, o.Errors...)
}

// ClubbingChecker validates that a note line item may hold ledgers mapped to
// groupingCode.
type ClubbingChecker interface {
	CheckClubbing(groupingCode, lineItemID string) error
}

// Options tunes the workflow. Zero values take the defaults.
type Options struct {
	BatchSize     int
	Concurrency   int
	RatePerSecond float64
	Burst         int
	// Overwrite lets fresh classifier results replace usable suggestions.
	Overwrite bool
	Clubbing  ClubbingChecker
	Logger    *slog.Logger
}

const (
	DefaultBatchSize   = 25
	DefaultConcurrency = 2
)

// Workflow applies mapping transitions to a ledger store against a masters
// hierarchy.
type Workflow struct {
	store   *ledger.Store
	masters *masters.Hierarchy
	opts    Options
	log     *slog.Logger
}

var validate = validator.New()

// New creates a Workflow.
func New(store *ledger.Store, h *masters.Hierarchy, opts Options) *Workflow {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Workflow{store: store, masters: h, opts: opts, log: log}
}

// checkMapping validates m against the current masters and, when clubbed,
// against its note line item.
func (w *Workflow) checkMapping(m model.Mapping) error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMapping, err)
	}
	if err := w.masters.CheckMapping(m); err != nil {
		return err
	}
	if m.NoteLineItemID != "" {
		if w.opts.Clubbing == nil {
			return fmt.Errorf("%w: note line item %s cannot be checked", ErrInvalidMapping, m.NoteLineItemID)
		}
		if err := w.opts.Clubbing.CheckClubbing(m.GroupingCode, m.NoteLineItemID); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidMapping, err)
		}
	}
	return nil
}

// Map commits one explicit mapping, replacing any mapping or suggestion.
func (w *Workflow) Map(ledgerID string, m model.Mapping) error {
	if err := w.checkMapping(m); err != nil {
		return err
	}
	return w.store.Update(ledgerID, func(it *model.LedgerItem) error {
		it.Mapping = &m
		it.Suggestion = nil
		return nil
	})
}

// BulkManualMap applies one explicit mapping to every id. An invalid mapping
// fails the whole call before anything is written; unknown ids are reported
// per item.
func (w *Workflow) BulkManualMap(ledgerIDs []string, m model.Mapping) (Report, error) {
	if err := w.checkMapping(m); err != nil {
		return Report{}, err
	}
	errs := w.store.BulkUpdate(ledgerIDs, func(it *model.LedgerItem) error {
		mm := m
		it.Mapping = &mm
		it.Suggestion = nil
		return nil
	})
	return reportFrom(ledgerIDs, errs, nil), nil
}

// Approve commits each ledger's suggestion as its mapping. Ledgers without a
// usable suggestion, or whose suggested grouping no longer resolves, are
// skipped. A suggested line item that no longer accepts the grouping is
// dropped and the ledger is mapped unclubbed.
func (w *Workflow) Approve(ledgerIDs []string) Report {
	var rep Report
	for _, lid := range ledgerIDs {
		skipped := false
		err := w.store.Update(lid, func(it *model.LedgerItem) error {
			if !it.HasUsableSuggestion() {
				skipped = true
				return ErrNoSuggestion
			}
			m := it.Suggestion.Mapping()
			if err := w.masters.CheckMapping(m); err != nil {
				skipped = true
				return err
			}
			if m.NoteLineItemID != "" && w.checkMapping(m) != nil {
				m.NoteLineItemID = ""
			}
			it.Mapping = &m
			it.Suggestion = nil
			return nil
		})
		switch {
		case err == nil:
			rep.Applied = append(rep.Applied, lid)
		case skipped:
			rep.Skipped = append(rep.Skipped, lid)
		default:
			rep.Errors = append(rep.Errors, ItemError{LedgerID: lid, Err: err})
		}
	}
	if len(rep.Applied) > 0 {
		w.log.Info("approved suggestions", "applied", len(rep.Applied), "skipped", len(rep.Skipped))
	}
	return rep
}

// Reject clears suggestions without touching mappings.
func (w *Workflow) Reject(ledgerIDs []string) Report {
	errs := w.store.BulkUpdate(ledgerIDs, func(it *model.LedgerItem) error {
		it.Suggestion = nil
		return nil
	})
	return reportFrom(ledgerIDs, errs, nil)
}

// ClearSuggestions rejects the suggestions of the given ledgers, or of every
// ledger when ledgerIDs is empty.
func (w *Workflow) ClearSuggestions(ledgerIDs []string) Report {
	if len(ledgerIDs) == 0 {
		ledgerIDs = w.store.IDs()
	}
	return w.Reject(ledgerIDs)
}

// Unmap clears a ledger's mapping. When the ledger has no suggestion, the
// cleared mapping is kept as one so it can be re-approved.
func (w *Workflow) Unmap(ledgerID string) error {
	return w.store.Update(ledgerID, func(it *model.LedgerItem) error {
		if it.Mapping == nil {
			return nil
		}
		if it.Suggestion == nil {
			s := model.SuggestionFromMapping(*it.Mapping)
			it.Suggestion = &s
		}
		it.Mapping = nil
		return nil
	})
}

// Club moves mapped ledgers into a note line item, or out of any line item
// when lineItemID is empty.
func (w *Workflow) Club(ledgerIDs []string, lineItemID string) Report {
	skip := map[string]bool{}
	errs := w.store.BulkUpdate(ledgerIDs, func(it *model.LedgerItem) error {
		if it.Mapping == nil {
			skip[it.ID] = true
			return fmt.Errorf("ledger is not mapped")
		}
		m := *it.Mapping
		m.NoteLineItemID = lineItemID
		if lineItemID != "" {
			if err := w.checkMapping(m); err != nil {
				return err
			}
		}
		it.Mapping = &m
		return nil
	})
	return reportFrom(ledgerIDs, errs, skip)
}

// SetAttributes replaces a ledger's disclosure attributes.
func (w *Workflow) SetAttributes(ledgerID string, attrs model.LedgerAttributes) error {
	return w.store.Update(ledgerID, func(it *model.LedgerItem) error {
		it.Attributes = attrs
		return nil
	})
}

func reportFrom(ids []string, errs []ItemError, skip map[string]bool) Report {
	failed := make(map[string]bool, len(errs))
	var rep Report
	for _, e := range errs {
		failed[e.LedgerID] = true
		if skip[e.LedgerID] {
			rep.Skipped = append(rep.Skipped, e.LedgerID)
		} else {
			rep.Errors = append(rep.Errors, e)
		}
	}
	for _, lid := range ids {
		if !failed[lid] {
			rep.Applied = append(rep.Applied, lid)
		}
	}
	return rep
}
