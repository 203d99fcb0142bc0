// Package classifier defines the contract for suggestion providers and ships
// two implementations: a local keyword matcher and an external program spoken
// to over JSON-RPC.
package classifier

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/tbmap/tbmap/internal/model"
)

// Request is one ledger to classify.
type Request struct {
	LedgerID   string          `json:"ledgerId"`
	LedgerName string          `json:"ledgerName"`
	Balance    decimal.Decimal `json:"balance"`
}

// Result is the classification of one ledger. Error is set instead of the
// codes when the ledger could not be classified.
type Result struct {
	LedgerID      string  `json:"ledgerId"`
	MajorHeadCode string  `json:"majorHeadCode,omitempty"`
	MinorHeadCode string  `json:"minorHeadCode,omitempty"`
	GroupingCode  string  `json:"groupingCode,omitempty"`
	Confidence    float64 `json:"confidence,omitempty"`
	Reasoning     string  `json:"reasoning,omitempty"`
	Error         string  `json:"error,omitempty"`
}

// Suggestion converts the result into a ledger suggestion.
func (r Result) Suggestion() model.Suggestion {
	return model.Suggestion{
		MajorHeadCode: r.MajorHeadCode,
		MinorHeadCode: r.MinorHeadCode,
		GroupingCode:  r.GroupingCode,
		Confidence:    r.Confidence,
		Reasoning:     r.Reasoning,
		Error:         r.Error,
	}
}

// Credentials are handed to the classifier on every call. Nothing is looked
// up from ambient state.
type Credentials struct {
	Token string
}

// Classifier suggests groupings for a batch of ledgers. A returned error
// fails the whole batch; per-ledger failures go in Result.Error.
type Classifier interface {
	Classify(ctx context.Context, creds Credentials, batch []Request, masters model.Masters) ([]Result, error)
}

// Func adapts a plain function to Classifier.
type Func func(ctx context.Context, creds Credentials, batch []Request, masters model.Masters) ([]Result, error)

// Classify calls f.
func (f Func) Classify(ctx context.Context, creds Credentials, batch []Request, masters model.Masters) ([]Result, error) {
	return f(ctx, creds, batch, masters)
}
