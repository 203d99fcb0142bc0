package mapping

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/tbmap/tbmap/internal/classifier"
	"github.com/tbmap/tbmap/internal/model"
)

// Progress is reported once per finished batch. Calls are serialized but
// arrive in completion order, not batch order.
type Progress struct {
	Batch   int // 1-based index in request order
	Batches int
	Report  Report
	Err     error // set when the classifier call for the whole batch failed
}

// RequestSuggestions classifies the given ledgers in batches of
// Options.BatchSize and merges each batch's results into the store as soon
// as it completes. A failed batch marks its ledgers with error suggestions
// and never stops the other batches. Results for groupings missing from the
// current masters become error suggestions too.
//
// A ledger's existing usable suggestion is only replaced when
// Options.Overwrite is set, and never by an error.
func (w *Workflow) RequestSuggestions(ctx context.Context, ledgerIDs []string, c classifier.Classifier, creds classifier.Credentials, progress func(Progress)) Report {
	var rep Report
	var reqs []classifier.Request
	for _, lid := range ledgerIDs {
		it, err := w.store.Get(lid)
		if err != nil {
			rep.Errors = append(rep.Errors, ItemError{LedgerID: lid, Err: err})
			continue
		}
		reqs = append(reqs, classifier.Request{LedgerID: it.ID, LedgerName: it.LedgerName, Balance: it.ClosingCy})
	}
	batches := chunk(reqs, w.opts.BatchSize)
	if len(batches) == 0 {
		return rep
	}

	limit := rate.Limit(w.opts.RatePerSecond)
	if w.opts.RatePerSecond <= 0 {
		limit = rate.Inf
	}
	limiter := rate.NewLimiter(limit, w.opts.Burst)

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(w.opts.Concurrency)

	w.log.Info("requesting suggestions", "ledgers", len(reqs), "batches", len(batches), "batch_size", w.opts.BatchSize)
	for i, batch := range batches {
		g.Go(func() error {
			start := time.Now()
			results, err := w.classify(ctx, limiter, c, creds, batch)
			br := w.mergeBatch(batch, results, err)
			if err != nil {
				w.log.Warn("suggestion batch failed", "batch", i+1, "ledgers", len(batch), "error", err)
			} else {
				w.log.Debug("suggestion batch merged", "batch", i+1, "applied", len(br.Applied), "duration", time.Since(start))
			}

			mu.Lock()
			defer mu.Unlock()
			rep.merge(br)
			if progress != nil {
				progress(Progress{Batch: i + 1, Batches: len(batches), Report: br, Err: err})
			}
			return nil
		})
	}
	_ = g.Wait()
	return rep
}

func (w *Workflow) classify(ctx context.Context, limiter *rate.Limiter, c classifier.Classifier, creds classifier.Credentials, batch []classifier.Request) ([]classifier.Result, error) {
	if err := limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.Classify(ctx, creds, batch, w.masters.Snapshot())
}

// mergeBatch writes one batch's outcome into the store, re-reading each
// ledger under the store lock.
func (w *Workflow) mergeBatch(batch []classifier.Request, results []classifier.Result, callErr error) Report {
	byID := make(map[string]classifier.Result, len(results))
	for _, r := range results {
		byID[r.LedgerID] = r
	}

	var rep Report
	for _, req := range batch {
		var s model.Suggestion
		switch r, ok := byID[req.LedgerID]; {
		case callErr != nil:
			s = model.Suggestion{Error: fmt.Sprintf("%v: %v", ErrClassifier, callErr)}
		case !ok:
			s = model.Suggestion{Error: "classifier returned no result for this ledger"}
		default:
			s = w.checkSuggestion(r.Suggestion())
		}

		applied := false
		err := w.store.Update(req.LedgerID, func(it *model.LedgerItem) error {
			if it.Suggestion != nil && it.Suggestion.Usable() && (!w.opts.Overwrite || !s.Usable()) {
				return nil
			}
			it.Suggestion = &s
			applied = true
			return nil
		})
		switch {
		case err != nil:
			rep.Errors = append(rep.Errors, ItemError{LedgerID: req.LedgerID, Err: err})
		case !applied:
			rep.Skipped = append(rep.Skipped, req.LedgerID)
		case !s.Usable():
			rep.Errors = append(rep.Errors, ItemError{LedgerID: req.LedgerID, Err: fmt.Errorf("%w: %s", ErrClassifier, s.Error)})
		default:
			rep.Applied = append(rep.Applied, req.LedgerID)
		}
	}
	return rep
}

// checkSuggestion resolves a classifier suggestion against the current
// masters, filling in missing head codes and turning anything that does not
// resolve into an error suggestion.
func (w *Workflow) checkSuggestion(s model.Suggestion) model.Suggestion {
	if s.Error != "" {
		return model.Suggestion{Error: s.Error}
	}
	if s.GroupingCode == "" {
		return model.Suggestion{Error: "classifier returned no grouping"}
	}
	anc, err := w.masters.ResolveAncestry(s.GroupingCode)
	if err != nil {
		return model.Suggestion{Error: fmt.Sprintf("suggested %v", err)}
	}
	if (s.MinorHeadCode != "" && s.MinorHeadCode != anc.Minor.Code) || (s.MajorHeadCode != "" && s.MajorHeadCode != anc.Major.Code) {
		return model.Suggestion{Error: fmt.Sprintf("suggested grouping %s does not belong to %s/%s", s.GroupingCode, s.MajorHeadCode, s.MinorHeadCode)}
	}
	s.MajorHeadCode = anc.Major.Code
	s.MinorHeadCode = anc.Minor.Code
	return s
}

func chunk[T any](items []T, size int) [][]T {
	var out [][]T
	for size < len(items) {
		items, out = items[size:], append(out, items[:size:size])
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}
