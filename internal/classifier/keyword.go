package classifier

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tbmap/tbmap/internal/model"
)

//go:embed rules.yaml
var defaultRules []byte

// Rule maps ledger-name keywords to a grouping.
type Rule struct {
	Grouping   string   `yaml:"grouping"`
	Keywords   []string `yaml:"keywords"`
	Confidence float64  `yaml:"confidence"`
}

// RulesConfig is the on-disk rules file.
type RulesConfig struct {
	Rules []Rule `yaml:"rules"`
}

// Keyword classifies ledgers by case-insensitive substring match on the
// ledger name. The longest matching keyword wins; ties go to the earlier rule.
type Keyword struct {
	rules []Rule
}

// NewKeyword creates a classifier from rules.
func NewKeyword(rules []Rule) *Keyword {
	norm := make([]Rule, len(rules))
	for i, r := range rules {
		kws := make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				kws = append(kws, kw)
			}
		}
		if r.Confidence <= 0 || r.Confidence > 1 {
			r.Confidence = 0.6
		}
		norm[i] = Rule{Grouping: r.Grouping, Keywords: kws, Confidence: r.Confidence}
	}
	return &Keyword{rules: norm}
}

// DefaultKeyword returns a classifier over the built-in rules.
func DefaultKeyword() *Keyword {
	k, err := ParseRules(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("parsing embedded rules: %v", err))
	}
	return k
}

// ParseRules builds a classifier from YAML.
func ParseRules(data []byte) (*Keyword, error) {
	var cfg RulesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}
	return NewKeyword(cfg.Rules), nil
}

// LoadRules reads a rules file.
func LoadRules(path string) (*Keyword, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}
	return ParseRules(data)
}

// Classify implements Classifier. Groupings that the given masters do not
// contain are never suggested.
func (k *Keyword) Classify(ctx context.Context, _ Credentials, batch []Request, masters model.Masters) ([]Result, error) {
	groupings := make(map[string]model.Grouping, len(masters.Groupings))
	for _, g := range masters.Groupings {
		groupings[g.Code] = g
	}
	minors := make(map[string]model.MinorHead, len(masters.MinorHeads))
	for _, m := range masters.MinorHeads {
		minors[m.Code] = m
	}

	out := make([]Result, 0, len(batch))
	for _, req := range batch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, k.classifyOne(req, groupings, minors))
	}
	return out, nil
}

func (k *Keyword) classifyOne(req Request, groupings map[string]model.Grouping, minors map[string]model.MinorHead) Result {
	name := strings.ToLower(req.LedgerName)
	var best *Rule
	var bestKW string
	for i := range k.rules {
		r := &k.rules[i]
		if _, ok := groupings[r.Grouping]; !ok {
			continue
		}
		for _, kw := range r.Keywords {
			if len(kw) > len(bestKW) && strings.Contains(name, kw) {
				best, bestKW = r, kw
			}
		}
	}
	if best == nil {
		return Result{LedgerID: req.LedgerID, Error: "no keyword rule matched"}
	}
	g := groupings[best.Grouping]
	minor := minors[g.MinorHeadCode]
	return Result{
		LedgerID:      req.LedgerID,
		MajorHeadCode: minor.MajorHeadCode,
		MinorHeadCode: g.MinorHeadCode,
		GroupingCode:  g.Code,
		Confidence:    best.Confidence,
		Reasoning:     fmt.Sprintf("ledger name contains %q (%s)", bestKW, g.Name),
	}
}
