package mapping

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbmap/tbmap/internal/classifier"
	"github.com/tbmap/tbmap/internal/id"
	"github.com/tbmap/tbmap/internal/ledger"
	"github.com/tbmap/tbmap/internal/masters"
	"github.com/tbmap/tbmap/internal/model"
)

var (
	rentMapping  = model.Mapping{MajorHeadCode: "C", MinorHeadCode: "C.90", GroupingCode: "C.90.02"}
	salesMapping = model.Mapping{MajorHeadCode: "C", MinorHeadCode: "C.10", GroupingCode: "C.10.01"}
)

func newWorkflow(t *testing.T, n int, opts Options) (*Workflow, *ledger.Store) {
	t.Helper()
	items := make([]model.LedgerItem, n)
	for i := range items {
		items[i] = model.LedgerItem{
			ID:         id.FormatLedgerID(i + 1),
			LedgerName: fmt.Sprintf("Ledger %d", i+1),
			ClosingCy:  decimal.NewFromInt(int64(100 * (i + 1))),
		}
	}
	store, err := ledger.NewStore(items)
	require.NoError(t, err)
	return New(store, masters.NewStandard(), opts), store
}

func get(t *testing.T, s *ledger.Store, lid string) model.LedgerItem {
	t.Helper()
	it, err := s.Get(lid)
	require.NoError(t, err)
	return it
}

func TestMap_RejectsAncestryMismatch(t *testing.T) {
	w, s := newWorkflow(t, 1, Options{})
	bad := model.Mapping{MajorHeadCode: "A", MinorHeadCode: "C.90", GroupingCode: "C.90.02"}
	err := w.Map("L0001", bad)
	assert.ErrorIs(t, err, ErrInvalidMapping)
	assert.Nil(t, get(t, s, "L0001").Mapping)

	err = w.Map("L0001", model.Mapping{GroupingCode: "C.90.02"})
	assert.ErrorIs(t, err, ErrInvalidMapping)

	require.NoError(t, w.Map("L0001", rentMapping))
	assert.Equal(t, "C.90.02", get(t, s, "L0001").GroupingCode())
}

func TestBulkManualMap(t *testing.T) {
	w, s := newWorkflow(t, 3, Options{})
	require.NoError(t, s.Update("L0002", func(it *model.LedgerItem) error {
		it.Suggestion = &model.Suggestion{GroupingCode: "C.10.01"}
		return nil
	}))

	rep, err := w.BulkManualMap([]string{"L0001", "L0002", "L9999"}, rentMapping)
	require.NoError(t, err)
	assert.Equal(t, []string{"L0001", "L0002"}, rep.Applied)
	require.Len(t, rep.Errors, 1)
	assert.ErrorIs(t, rep.Errors[0], ledger.ErrNotFound)
	assert.Nil(t, get(t, s, "L0002").Suggestion)
	assert.Equal(t, rentMapping, *get(t, s, "L0002").Mapping)

	_, err = w.BulkManualMap([]string{"L0003"}, model.Mapping{MajorHeadCode: "C", MinorHeadCode: "C.90", GroupingCode: "C.90.99"})
	assert.ErrorIs(t, err, ErrInvalidMapping)
	assert.Nil(t, get(t, s, "L0003").Mapping, "invalid target writes nothing")
}

func TestApproveAndReject(t *testing.T) {
	w, s := newWorkflow(t, 4, Options{})
	set := func(lid string, sg *model.Suggestion) {
		require.NoError(t, s.Update(lid, func(it *model.LedgerItem) error { it.Suggestion = sg; return nil }))
	}
	set("L0001", &model.Suggestion{MajorHeadCode: "C", MinorHeadCode: "C.90", GroupingCode: "C.90.02", Confidence: 0.9, Reasoning: "rent"})
	set("L0002", &model.Suggestion{Error: "timeout"})
	set("L0003", &model.Suggestion{MajorHeadCode: "C", MinorHeadCode: "C.90", GroupingCode: "C.90.98"})

	rep := w.Approve([]string{"L0001", "L0002", "L0003", "L0004"})
	assert.Equal(t, []string{"L0001"}, rep.Applied)
	assert.Equal(t, []string{"L0002", "L0003", "L0004"}, rep.Skipped)
	assert.Empty(t, rep.Errors)

	l1 := get(t, s, "L0001")
	assert.Equal(t, rentMapping, *l1.Mapping, "confidence and reasoning are dropped")
	assert.Nil(t, l1.Suggestion)
	assert.NotNil(t, get(t, s, "L0003").Suggestion, "skipped ledgers are untouched")

	rep = w.Reject([]string{"L0002", "L0001"})
	assert.Equal(t, []string{"L0002", "L0001"}, rep.Applied)
	assert.Nil(t, get(t, s, "L0002").Suggestion)
	assert.NotNil(t, get(t, s, "L0001").Mapping, "reject never touches mapping")

	rep = w.ClearSuggestions(nil)
	assert.Len(t, rep.Applied, 4)
	assert.Nil(t, get(t, s, "L0003").Suggestion)
}

func TestUnmapApproveRoundTrip(t *testing.T) {
	w, s := newWorkflow(t, 3, Options{Clubbing: fakeClubbing{"li-1": "C.90"}})
	clubbed := rentMapping
	clubbed.NoteLineItemID = "li-1"
	targets := []model.Mapping{rentMapping, salesMapping, clubbed}
	for i, m := range targets {
		lid := id.FormatLedgerID(i + 1)
		require.NoError(t, w.Map(lid, m))
		require.NoError(t, w.Unmap(lid))

		it := get(t, s, lid)
		assert.Nil(t, it.Mapping)
		require.NotNil(t, it.Suggestion)
		assert.Zero(t, it.Suggestion.Confidence)

		rep := w.Approve([]string{lid})
		require.Equal(t, []string{lid}, rep.Applied)
		assert.Equal(t, m, *get(t, s, lid).Mapping)
	}
}

func TestApprove_DropsStaleLineItem(t *testing.T) {
	clubs := fakeClubbing{"li-1": "C.90"}
	w, s := newWorkflow(t, 1, Options{Clubbing: clubs})
	clubbed := rentMapping
	clubbed.NoteLineItemID = "li-1"
	require.NoError(t, w.Map("L0001", clubbed))
	require.NoError(t, w.Unmap("L0001"))
	assert.Equal(t, "li-1", get(t, s, "L0001").Suggestion.NoteLineItemID)

	delete(clubs, "li-1")
	rep := w.Approve([]string{"L0001"})
	require.Equal(t, []string{"L0001"}, rep.Applied)
	assert.Equal(t, rentMapping, *get(t, s, "L0001").Mapping)
}

func TestUnmap_KeepsExistingSuggestion(t *testing.T) {
	w, s := newWorkflow(t, 1, Options{})
	require.NoError(t, w.Map("L0001", rentMapping))
	require.NoError(t, s.Update("L0001", func(it *model.LedgerItem) error {
		it.Suggestion = &model.Suggestion{GroupingCode: "C.10.01", MinorHeadCode: "C.10", MajorHeadCode: "C"}
		return nil
	}))
	require.NoError(t, w.Unmap("L0001"))
	assert.Equal(t, "C.10.01", get(t, s, "L0001").Suggestion.GroupingCode)

	assert.ErrorIs(t, w.Unmap("L0404"), ledger.ErrNotFound)
}

type fakeClubbing map[string]string

func (f fakeClubbing) CheckClubbing(groupingCode, lineItemID string) error {
	prefix, ok := f[lineItemID]
	if !ok {
		return errors.New("unknown line item")
	}
	if !id.HasPrefix(groupingCode, prefix) {
		return fmt.Errorf("line item %s does not accept %s", lineItemID, groupingCode)
	}
	return nil
}

func TestClub(t *testing.T) {
	w, s := newWorkflow(t, 3, Options{Clubbing: fakeClubbing{"li-1": "C.90"}})
	require.NoError(t, w.Map("L0001", rentMapping))
	require.NoError(t, w.Map("L0002", salesMapping))

	rep := w.Club([]string{"L0001", "L0002", "L0003"}, "li-1")
	assert.Equal(t, []string{"L0001"}, rep.Applied)
	assert.Equal(t, []string{"L0003"}, rep.Skipped)
	require.Len(t, rep.Errors, 1)
	assert.ErrorIs(t, rep.Errors[0], ErrInvalidMapping)
	assert.Equal(t, "li-1", get(t, s, "L0001").Mapping.NoteLineItemID)

	rep = w.Club([]string{"L0001"}, "")
	assert.Equal(t, []string{"L0001"}, rep.Applied)
	assert.Empty(t, get(t, s, "L0001").Mapping.NoteLineItemID)

	m := rentMapping
	m.NoteLineItemID = "li-2"
	assert.ErrorIs(t, w.Map("L0003", m), ErrInvalidMapping)
}

func TestSetAttributes(t *testing.T) {
	w, s := newWorkflow(t, 1, Options{})
	require.NoError(t, w.SetAttributes("L0001", model.LedgerAttributes{IsMSME: true}))
	assert.True(t, get(t, s, "L0001").Attributes.IsMSME)
}

// failingBatchClassifier suggests Rent for every ledger and fails any batch
// containing failOn.
func failingBatchClassifier(calls *atomic.Int32, failOn string) classifier.Classifier {
	return classifier.Func(func(_ context.Context, _ classifier.Credentials, batch []classifier.Request, _ model.Masters) ([]classifier.Result, error) {
		calls.Add(1)
		for _, r := range batch {
			if r.LedgerID == failOn {
				return nil, errors.New("upstream 503")
			}
		}
		out := make([]classifier.Result, len(batch))
		for i, r := range batch {
			out[i] = classifier.Result{LedgerID: r.LedgerID, GroupingCode: "C.90.02", Confidence: 0.8}
		}
		return out, nil
	})
}

func TestRequestSuggestions_SecondBatchFails(t *testing.T) {
	w, s := newWorkflow(t, 30, Options{BatchSize: 25})
	var calls atomic.Int32
	var progress []Progress

	rep := w.RequestSuggestions(context.Background(), s.IDs(), failingBatchClassifier(&calls, "L0026"), classifier.Credentials{}, func(p Progress) {
		progress = append(progress, p)
	})

	assert.EqualValues(t, 2, calls.Load())
	assert.Len(t, rep.Applied, 25)
	assert.Len(t, rep.Errors, 5)
	assert.Len(t, progress, 2)

	for i := 1; i <= 25; i++ {
		it := get(t, s, id.FormatLedgerID(i))
		require.NotNil(t, it.Suggestion)
		assert.True(t, it.Suggestion.Usable())
		assert.Equal(t, "C.90", it.Suggestion.MinorHeadCode, "head codes filled from masters")
	}
	for i := 26; i <= 30; i++ {
		it := get(t, s, id.FormatLedgerID(i))
		require.NotNil(t, it.Suggestion)
		assert.Contains(t, it.Suggestion.Error, "upstream 503")
	}
	for _, e := range rep.Errors {
		assert.ErrorIs(t, e, ErrClassifier)
	}
}

func TestRequestSuggestions_InvalidGroupingBecomesError(t *testing.T) {
	w, s := newWorkflow(t, 3, Options{})
	c := classifier.Func(func(_ context.Context, _ classifier.Credentials, batch []classifier.Request, _ model.Masters) ([]classifier.Result, error) {
		return []classifier.Result{
			{LedgerID: "L0001", GroupingCode: "Z.99.99"},
			{LedgerID: "L0002", MinorHeadCode: "A.10", GroupingCode: "C.90.02"},
		}, nil
	})
	rep := w.RequestSuggestions(context.Background(), s.IDs(), c, classifier.Credentials{}, nil)
	assert.Empty(t, rep.Applied)
	assert.Len(t, rep.Errors, 3)
	for _, lid := range s.IDs() {
		it := get(t, s, lid)
		require.NotNil(t, it.Suggestion)
		assert.False(t, it.Suggestion.Usable())
		assert.Empty(t, it.Suggestion.GroupingCode)
	}
}

func TestRequestSuggestions_MergeRereadsState(t *testing.T) {
	w, s := newWorkflow(t, 2, Options{BatchSize: 1, Concurrency: 1})
	c := classifier.Func(func(_ context.Context, _ classifier.Credentials, batch []classifier.Request, _ model.Masters) ([]classifier.Result, error) {
		if batch[0].LedgerID == "L0001" {
			// Another writer fills L0002 while this batch is in flight.
			require.NoError(t, s.Update("L0002", func(it *model.LedgerItem) error {
				it.Suggestion = &model.Suggestion{MajorHeadCode: "C", MinorHeadCode: "C.10", GroupingCode: "C.10.01"}
				return nil
			}))
		}
		return []classifier.Result{{LedgerID: batch[0].LedgerID, GroupingCode: "C.90.02"}}, nil
	})

	rep := w.RequestSuggestions(context.Background(), []string{"L0001", "L0002", "L0404"}, c, classifier.Credentials{}, nil)
	assert.Equal(t, []string{"L0001"}, rep.Applied)
	assert.Equal(t, []string{"L0002"}, rep.Skipped)
	require.Len(t, rep.Errors, 1)
	assert.ErrorIs(t, rep.Errors[0], ledger.ErrNotFound)
	assert.Equal(t, "C.10.01", get(t, s, "L0002").Suggestion.GroupingCode)

	w.opts.Overwrite = true
	rep = w.RequestSuggestions(context.Background(), []string{"L0002"}, c, classifier.Credentials{}, nil)
	assert.Equal(t, []string{"L0002"}, rep.Applied)
	assert.Equal(t, "C.90.02", get(t, s, "L0002").Suggestion.GroupingCode)
}

func TestRequestSuggestions_PassesCredentials(t *testing.T) {
	w, s := newWorkflow(t, 1, Options{RatePerSecond: 100, Burst: 2})
	var token string
	c := classifier.Func(func(_ context.Context, creds classifier.Credentials, batch []classifier.Request, m model.Masters) ([]classifier.Result, error) {
		token = creds.Token
		assert.NotEmpty(t, m.Groupings)
		return nil, nil
	})
	rep := w.RequestSuggestions(context.Background(), s.IDs(), c, classifier.Credentials{Token: "abc"}, nil)
	assert.Equal(t, "abc", token)
	assert.Len(t, rep.Errors, 1, "missing result is an error suggestion")
}

func TestRequestSuggestions_CancelledContext(t *testing.T) {
	w, s := newWorkflow(t, 3, Options{BatchSize: 1, RatePerSecond: 0.001, Burst: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls atomic.Int32
	rep := w.RequestSuggestions(ctx, s.IDs(), failingBatchClassifier(&calls, ""), classifier.Credentials{}, nil)
	assert.Len(t, rep.Errors, 3)
	assert.Zero(t, calls.Load())
}

func TestChunk(t *testing.T) {
	got := chunk([]int{1, 2, 3, 4, 5}, 2)
	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, got)
	assert.Nil(t, chunk([]int{}, 3))
}
