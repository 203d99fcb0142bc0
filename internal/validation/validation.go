// Package validation checks a trial balance and its mappings against a fixed
// rule set. Running it never changes its input.
package validation

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tbmap/tbmap/internal/aggregate"
	"github.com/tbmap/tbmap/internal/id"
	"github.com/tbmap/tbmap/internal/model"
	"github.com/tbmap/tbmap/internal/notes"
	"github.com/tbmap/tbmap/internal/schedules"
)

// Severity ranks a finding.
type Severity string

const (
	Critical Severity = "Critical"
	High     Severity = "High"
	Medium   Severity = "Medium"
)

// ParseSeverity accepts Critical, High or Medium in any case.
func ParseSeverity(s string) (Severity, error) {
	for _, v := range []Severity{Critical, High, Medium} {
		if strings.EqualFold(s, string(v)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

// Finding is one rule violation.
type Finding struct {
	RuleID          string   `json:"ruleId"`
	RuleName        string   `json:"ruleName"`
	Severity        Severity `json:"severity"`
	Message         string   `json:"message"`
	Details         string   `json:"details,omitempty"`
	AffectedLedgers []string `json:"affectedLedgers,omitempty"`
}

func (f Finding) Error() string {
	return fmt.Sprintf("%s [%s] %s", f.RuleID, f.Severity, f.Message)
}

// Result is the outcome of one run.
type Result struct {
	Findings      []Finding `json:"findings"`
	CriticalCount int       `json:"criticalCount"`
	HighCount     int       `json:"highCount"`
	MediumCount   int       `json:"mediumCount"`
	IsValid       bool      `json:"isValid"`
}

// Options tunes the rule set.
type Options struct {
	UnmappedSeverity Severity
	Tolerance        decimal.Decimal
}

// DefaultOptions flags unmapped ledgers as Critical and allows a rounding
// difference of 1.
func DefaultOptions() Options {
	return Options{UnmappedSeverity: Critical, Tolerance: decimal.NewFromInt(1)}
}

// Input is what the rules read. Schedules may be nil.
type Input struct {
	Ledgers   []model.LedgerItem
	Masters   model.Masters
	LineItems []model.NoteLineItem
	Schedules map[string]schedules.Schedule
}

type check struct {
	in        Input
	opts      Options
	groupings map[string]model.Grouping
	minors    map[string]model.MinorHead
	findings  []Finding
}

// Run applies every rule in a fixed order.
func Run(in Input, opts Options) Result {
	if opts.UnmappedSeverity == "" {
		opts.UnmappedSeverity = Critical
	}
	if opts.Tolerance.IsZero() {
		opts.Tolerance = decimal.NewFromInt(1)
	}
	c := &check{
		in:        in,
		opts:      opts,
		groupings: make(map[string]model.Grouping, len(in.Masters.Groupings)),
		minors:    make(map[string]model.MinorHead, len(in.Masters.MinorHeads)),
	}
	for _, g := range in.Masters.Groupings {
		c.groupings[g.Code] = g
	}
	for _, m := range in.Masters.MinorHeads {
		c.minors[m.Code] = m
	}

	cyBalanced, pyBalanced := c.trialBalance()
	c.unmapped()
	c.invalidMappings()
	c.balanceSheet(cyBalanced, pyBalanced)
	c.msmeDisclosure()
	c.receivablesAgeing()
	c.currentMaturities()
	c.depreciation()
	c.lineItems()

	res := Result{Findings: c.findings}
	for _, f := range c.findings {
		switch f.Severity {
		case Critical:
			res.CriticalCount++
		case High:
			res.HighCount++
		case Medium:
			res.MediumCount++
		}
	}
	res.IsValid = res.CriticalCount == 0 && res.HighCount == 0
	return res
}

func (c *check) add(f Finding) {
	c.findings = append(c.findings, f)
}

func (c *check) within(d decimal.Decimal) bool {
	return d.Abs().LessThanOrEqual(c.opts.Tolerance)
}

// trialBalance checks that every year sums to zero across all ledgers,
// mapped or not.
func (c *check) trialBalance() (cyOK, pyOK bool) {
	cy, py := decimal.Zero, decimal.Zero
	for _, l := range c.in.Ledgers {
		cy = cy.Add(l.ClosingCy)
		py = py.Add(l.ClosingPy)
	}
	cyOK, pyOK = c.within(cy), c.within(py)
	if !cyOK {
		c.add(Finding{
			RuleID:   "TB-01",
			RuleName: "Trial Balance Out of Balance (Current Year)",
			Severity: Critical,
			Message:  fmt.Sprintf("Current-year closing balances sum to %s, not zero", cy.StringFixed(2)),
			Details:  fmt.Sprintf("Difference %s exceeds tolerance %s", cy.Abs().StringFixed(2), c.opts.Tolerance.StringFixed(2)),
		})
	}
	if !pyOK {
		c.add(Finding{
			RuleID:   "TB-02",
			RuleName: "Trial Balance Out of Balance (Previous Year)",
			Severity: Critical,
			Message:  fmt.Sprintf("Previous-year closing balances sum to %s, not zero", py.StringFixed(2)),
			Details:  fmt.Sprintf("Difference %s exceeds tolerance %s", py.Abs().StringFixed(2), c.opts.Tolerance.StringFixed(2)),
		})
	}
	return cyOK, pyOK
}

func (c *check) unmapped() {
	var hit []model.LedgerItem
	for _, l := range c.in.Ledgers {
		if !l.IsMapped() {
			hit = append(hit, l)
		}
	}
	if len(hit) == 0 {
		return
	}
	c.add(Finding{
		RuleID:          "VR-01a",
		RuleName:        "Unmapped Ledgers",
		Severity:        c.opts.UnmappedSeverity,
		Message:         fmt.Sprintf("%d ledger(s) are not mapped to any grouping", len(hit)),
		Details:         names(hit, func(l model.LedgerItem) string { return l.LedgerName }),
		AffectedLedgers: ids(hit),
	})
}

// invalidMappings catches groupings lost from the masters and mappings whose
// head codes disagree with the grouping's ancestry.
func (c *check) invalidMappings() {
	var hit []model.LedgerItem
	for _, l := range c.in.Ledgers {
		if l.Mapping == nil {
			continue
		}
		g, ok := c.groupings[l.Mapping.GroupingCode]
		if !ok {
			hit = append(hit, l)
			continue
		}
		minor, ok := c.minors[g.MinorHeadCode]
		if !ok || minor.Code != l.Mapping.MinorHeadCode || minor.MajorHeadCode != l.Mapping.MajorHeadCode {
			hit = append(hit, l)
		}
	}
	if len(hit) == 0 {
		return
	}
	c.add(Finding{
		RuleID:          "VR-01b",
		RuleName:        "Invalid Grouping Codes",
		Severity:        Critical,
		Message:         fmt.Sprintf("%d ledger(s) mapped to non-existent or inconsistent grouping codes", len(hit)),
		Details:         names(hit, func(l model.LedgerItem) string { return l.LedgerName + " → " + l.Mapping.GroupingCode }),
		AffectedLedgers: ids(hit),
	})
}

// balanceSheet checks assets against equity and liabilities plus the year's
// result, over mapped ledgers. A year whose trial balance is already out is
// not checked again here.
func (c *check) balanceSheet(cyBalanced, pyBalanced bool) {
	check := func(year string, amount func(model.LedgerItem) decimal.Decimal) {
		assets, liabilities, pnl := decimal.Zero, decimal.Zero, decimal.Zero
		for _, l := range c.in.Ledgers {
			if l.Mapping == nil {
				continue
			}
			switch l.Mapping.MajorHeadCode {
			case "A":
				assets = assets.Add(amount(l))
			case "B":
				liabilities = liabilities.Add(amount(l))
			case "C":
				pnl = pnl.Add(amount(l))
			}
		}
		diff := assets.Add(liabilities).Add(pnl)
		if c.within(diff) {
			return
		}
		c.add(Finding{
			RuleID:   "VR-02",
			RuleName: "Balance Sheet Mismatch (" + year + ")",
			Severity: Critical,
			Message: fmt.Sprintf("Balance Sheet does not tally. Assets: %s, Equity & Liabilities (Adj): %s, Diff: %s",
				assets.StringFixed(2), liabilities.Add(pnl).Abs().StringFixed(2), diff.Abs().StringFixed(2)),
			Details: fmt.Sprintf("Liabilities: %s | %s year P&L: %s", liabilities.Abs().StringFixed(2), year, pnl.Abs().StringFixed(2)),
		})
	}
	if cyBalanced {
		check("current", func(l model.LedgerItem) decimal.Decimal { return l.ClosingCy })
	}
	if pyBalanced {
		check("previous", func(l model.LedgerItem) decimal.Decimal { return l.ClosingPy })
	}
}

// msmeDisclosure requires MSME disclosure data on the trade payables
// schedule once any payable is MSME, by grouping or by attribute.
func (c *check) msmeDisclosure() {
	var hit []model.LedgerItem
	total := decimal.Zero
	for _, l := range c.in.Ledgers {
		code := l.GroupingCode()
		if code == "" || l.ClosingCy.IsZero() {
			continue
		}
		if code == "B.80.01" || (id.HasPrefix(code, "B.80") && model.EffectiveAttributes(l).IsMSME) {
			hit = append(hit, l)
			total = total.Add(l.ClosingCy)
		}
	}
	if len(hit) == 0 || c.hasMSMEDisclosure() {
		return
	}
	c.add(Finding{
		RuleID:          "VR-03",
		RuleName:        "MSME Disclosure Required",
		Severity:        High,
		Message:         fmt.Sprintf("MSME payables exist (%s). Complete the MSME ageing and disclosure in the trade payables note.", total.Abs().StringFixed(2)),
		Details:         fmt.Sprintf("%d ledger(s) mapped to MSME payables", len(hit)),
		AffectedLedgers: ids(hit),
	})
}

func (c *check) hasMSMEDisclosure() bool {
	s, ok := c.in.Schedules[notes.TradePayables]
	if !ok {
		return false
	}
	if !s.Ageing.CategoryTotal(schedules.PayablesMSME).IsZero() || !s.Ageing.CategoryTotal(schedules.PayablesDisputedMSME).IsZero() {
		return true
	}
	for _, f := range schedules.MSMEDisclosureFields {
		if v, ok := s.Field(f.Key); ok && (!v.AmountCy.IsZero() || !v.AmountPy.IsZero()) {
			return true
		}
	}
	return false
}

// receivablesAgeing requires an ageing table that reconciles to the
// receivables balance.
func (c *check) receivablesAgeing() {
	var hit []model.LedgerItem
	for _, l := range c.in.Ledgers {
		if id.HasPrefix(l.GroupingCode(), "A.110") && !l.ClosingCy.IsZero() {
			hit = append(hit, l)
		}
	}
	if len(hit) == 0 {
		return
	}
	total, _ := aggregate.Sum(hit, "A.110")
	var aged decimal.Decimal
	if s, ok := c.in.Schedules[notes.TradeReceivables]; ok {
		aged = s.Ageing.Total()
		if c.within(total.Sub(aged)) {
			return
		}
	}
	c.add(Finding{
		RuleID:          "VR-04",
		RuleName:        "Receivables Ageing Required",
		Severity:        High,
		Message:         fmt.Sprintf("Trade Receivables of %s are not fully aged (ageing schedule totals %s).", total.StringFixed(2), aged.StringFixed(2)),
		Details:         fmt.Sprintf("%d ledger(s) mapped to Trade Receivables", len(hit)),
		AffectedLedgers: ids(hit),
	})
}

func (c *check) keywordRule(ruleID, ruleName string, sev Severity, minor string, keywords []string, message string) {
	var hit []model.LedgerItem
	for _, l := range c.in.Ledgers {
		if l.Mapping == nil || l.Mapping.MinorHeadCode != minor {
			continue
		}
		name := strings.ToLower(l.LedgerName)
		for _, kw := range keywords {
			if strings.Contains(name, kw) {
				hit = append(hit, l)
				break
			}
		}
	}
	if len(hit) == 0 {
		return
	}
	c.add(Finding{
		RuleID:          ruleID,
		RuleName:        ruleName,
		Severity:        sev,
		Message:         fmt.Sprintf(message, len(hit)),
		Details:         names(hit, func(l model.LedgerItem) string { return l.LedgerName }),
		AffectedLedgers: ids(hit),
	})
}

func (c *check) currentMaturities() {
	c.keywordRule("VR-05", "Current Maturity Misclassification", High, "B.30",
		[]string{"current maturity", "current maturities", "current portion", "due within", "payable within"},
		"%d ledger(s) appear to be current maturities but are classified under Long-Term Borrowings")
}

func (c *check) depreciation() {
	c.keywordRule("VR-06", "Depreciation Misclassification", Medium, "C.90",
		[]string{"depreciation", "amortisation", "amortization"},
		"%d depreciation ledger(s) are classified under Other Expenses instead of Depreciation & Amortisation")
}

// lineItems checks that clubbed ledgers point at a line item of the note
// their grouping belongs to.
func (c *check) lineItems() {
	items := make(map[string]model.NoteLineItem, len(c.in.LineItems))
	for _, li := range c.in.LineItems {
		items[li.ID] = li
	}
	var hit []model.LedgerItem
	for _, l := range c.in.Ledgers {
		if l.Mapping == nil || l.Mapping.NoteLineItemID == "" {
			continue
		}
		li, ok := items[l.Mapping.NoteLineItemID]
		if !ok {
			hit = append(hit, l)
			continue
		}
		if n, ok := notes.Lookup(li.NoteID); !ok || !n.Covers(l.Mapping.GroupingCode) {
			hit = append(hit, l)
		}
	}
	if len(hit) == 0 {
		return
	}
	c.add(Finding{
		RuleID:          "VR-07",
		RuleName:        "Invalid Note Line Item",
		Severity:        High,
		Message:         fmt.Sprintf("%d ledger(s) are clubbed into a missing note line item or one from another note", len(hit)),
		Details:         names(hit, func(l model.LedgerItem) string { return l.LedgerName }),
		AffectedLedgers: ids(hit),
	})
}

func ids(ls []model.LedgerItem) []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = l.ID
	}
	return out
}

// names lists the first five ledgers and counts the rest.
func names(ls []model.LedgerItem, label func(model.LedgerItem) string) string {
	const shown = 5
	var parts []string
	for i, l := range ls {
		if i == shown {
			break
		}
		parts = append(parts, label(l))
	}
	s := strings.Join(parts, ", ")
	if len(ls) > shown {
		s += fmt.Sprintf(" and %d more...", len(ls)-shown)
	}
	return s
}
