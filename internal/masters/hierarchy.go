package masters

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tbmap/tbmap/internal/id"
	"github.com/tbmap/tbmap/internal/model"
)

var (
	ErrNotFound       = errors.New("masters: code not found")
	ErrInvalidParent  = errors.New("masters: invalid parent")
	ErrInvalidMapping = errors.New("masters: ancestry mismatch")
	ErrDuplicateCode  = errors.New("masters: duplicate code")
)

// Hierarchy provides indexed lookup and the two explicit mutations
// (AddGrouping, Reset) over a Masters tree. It is safe for concurrent use.
type Hierarchy struct {
	mu        sync.RWMutex
	masters   model.Masters
	majors    map[string]model.MajorHead
	minors    map[string]model.MinorHead
	groupings map[string]model.Grouping
}

// New creates a Hierarchy after checking that m is a strict tree.
func New(m model.Masters) (*Hierarchy, error) {
	if errs := Validate(m); len(errs) > 0 {
		return nil, fmt.Errorf("invalid masters: %w", errors.Join(errs...))
	}
	h := &Hierarchy{}
	h.load(m.Clone())
	return h, nil
}

// NewStandard creates a Hierarchy holding the standard chart.
func NewStandard() *Hierarchy {
	h := &Hierarchy{}
	h.load(Standard())
	return h
}

func (h *Hierarchy) load(m model.Masters) {
	h.masters = m
	h.majors = make(map[string]model.MajorHead, len(m.MajorHeads))
	h.minors = make(map[string]model.MinorHead, len(m.MinorHeads))
	h.groupings = make(map[string]model.Grouping, len(m.Groupings))
	for _, mh := range m.MajorHeads {
		h.majors[mh.Code] = mh
	}
	for _, mh := range m.MinorHeads {
		h.minors[mh.Code] = mh
	}
	for _, g := range m.Groupings {
		h.groupings[g.Code] = g
	}
}

// Snapshot returns a copy of the current tree.
func (h *Hierarchy) Snapshot() model.Masters {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.masters.Clone()
}

// Grouping returns a grouping by code.
func (h *Hierarchy) Grouping(code string) (model.Grouping, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	g, ok := h.groupings[code]
	return g, ok
}

// MinorHead returns a minor head by code.
func (h *Hierarchy) MinorHead(code string) (model.MinorHead, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	m, ok := h.minors[code]
	return m, ok
}

// MajorHead returns a major head by code.
func (h *Hierarchy) MajorHead(code string) (model.MajorHead, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	m, ok := h.majors[code]
	return m, ok
}

// Exists reports whether a grouping code exists.
func (h *Hierarchy) Exists(code string) bool {
	_, ok := h.Grouping(code)
	return ok
}

// ResolveAncestry walks a grouping up to its major head. Any missing level
// yields ErrNotFound.
func (h *Hierarchy) ResolveAncestry(groupingCode string) (model.Ancestry, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	g, ok := h.groupings[groupingCode]
	if !ok {
		return model.Ancestry{}, fmt.Errorf("grouping %q: %w", groupingCode, ErrNotFound)
	}
	minor, ok := h.minors[g.MinorHeadCode]
	if !ok {
		return model.Ancestry{}, fmt.Errorf("minor head %q of grouping %q: %w", g.MinorHeadCode, groupingCode, ErrNotFound)
	}
	major, ok := h.majors[minor.MajorHeadCode]
	if !ok {
		return model.Ancestry{}, fmt.Errorf("major head %q of minor head %q: %w", minor.MajorHeadCode, minor.Code, ErrNotFound)
	}
	return model.Ancestry{Major: major, Minor: minor, Grouping: g}, nil
}

// CheckMapping verifies that m's grouping resolves to exactly its minor and
// major head codes.
func (h *Hierarchy) CheckMapping(m model.Mapping) error {
	anc, err := h.ResolveAncestry(m.GroupingCode)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMapping, err)
	}
	if anc.Minor.Code != m.MinorHeadCode || anc.Major.Code != m.MajorHeadCode {
		return fmt.Errorf("%w: %s resolves to %s/%s, not %s/%s", ErrInvalidMapping,
			m.GroupingCode, anc.Major.Code, anc.Minor.Code, m.MajorHeadCode, m.MinorHeadCode)
	}
	return nil
}

// AddGrouping appends a user grouping under minorHeadCode. Its code is
// "<minor>_G<NNN>", numbered from the count of existing groupings under the
// minor head plus one and skipping codes already taken.
func (h *Hierarchy) AddGrouping(minorHeadCode, name string) (model.Grouping, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Grouping{}, errors.New("grouping name is required")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.minors[minorHeadCode]; !ok {
		return model.Grouping{}, fmt.Errorf("minor head %q: %w", minorHeadCode, ErrInvalidParent)
	}

	count := 0
	for _, g := range h.masters.Groupings {
		if g.MinorHeadCode == minorHeadCode {
			count++
		}
	}
	seq := count + 1
	code := id.FormatCustomGrouping(minorHeadCode, seq)
	for {
		if _, taken := h.groupings[code]; !taken {
			break
		}
		seq++
		code = id.FormatCustomGrouping(minorHeadCode, seq)
	}

	g := model.Grouping{Code: code, Name: name, MinorHeadCode: minorHeadCode}
	h.masters.Groupings = append(h.masters.Groupings, g)
	h.groupings[code] = g
	return g, nil
}

// Reset replaces the whole tree. Ledger mappings are not touched; use
// Orphaned to find the ones the new tree no longer resolves.
func (h *Hierarchy) Reset(m model.Masters) error {
	if errs := Validate(m); len(errs) > 0 {
		return fmt.Errorf("invalid masters: %w", errors.Join(errs...))
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.load(m.Clone())
	return nil
}

// ResetToStandard replaces the tree with the standard chart and returns the
// IDs of mapped ledgers whose grouping no longer resolves.
func (h *Hierarchy) ResetToStandard(ledgers []model.LedgerItem) []string {
	h.mu.Lock()
	h.load(Standard())
	h.mu.Unlock()
	return h.Orphaned(ledgers)
}

// Orphaned returns the IDs of mapped ledgers whose mapping fails CheckMapping.
func (h *Hierarchy) Orphaned(ledgers []model.LedgerItem) []string {
	var out []string
	for _, l := range ledgers {
		if l.Mapping == nil {
			continue
		}
		if err := h.CheckMapping(*l.Mapping); err != nil {
			out = append(out, l.ID)
		}
	}
	return out
}

// Rows returns the tree flattened to one Ancestry per grouping, ordered by
// code. Groupings with a missing parent are reported with the empty parent.
func (h *Hierarchy) Rows() []model.Ancestry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rows := make([]model.Ancestry, 0, len(h.masters.Groupings))
	for _, g := range h.masters.Groupings {
		minor := h.minors[g.MinorHeadCode]
		rows = append(rows, model.Ancestry{
			Major:    h.majors[minor.MajorHeadCode],
			Minor:    minor,
			Grouping: g,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return id.Compare(rows[i].Grouping.Code, rows[j].Grouping.Code) < 0
	})
	return rows
}

// GroupingsUnder returns the groupings whose code falls under prefix, in
// tree order.
func (h *Hierarchy) GroupingsUnder(prefix string) []model.Grouping {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []model.Grouping
	for _, g := range h.masters.Groupings {
		if id.HasPrefix(g.Code, prefix) {
			out = append(out, g)
		}
	}
	return out
}

// Validate checks that m is a strict tree: unique codes per level, every
// parent present, and each code's dotted prefix equal to its parent's code.
func Validate(m model.Masters) []error {
	var errs []error

	majors := make(map[string]bool, len(m.MajorHeads))
	for _, mh := range m.MajorHeads {
		if mh.Code == "" {
			errs = append(errs, errors.New("major head with empty code"))
			continue
		}
		if majors[mh.Code] {
			errs = append(errs, fmt.Errorf("major head %q: %w", mh.Code, ErrDuplicateCode))
		}
		majors[mh.Code] = true
	}

	minors := make(map[string]bool, len(m.MinorHeads))
	for _, mh := range m.MinorHeads {
		if minors[mh.Code] {
			errs = append(errs, fmt.Errorf("minor head %q: %w", mh.Code, ErrDuplicateCode))
		}
		minors[mh.Code] = true
		if !majors[mh.MajorHeadCode] {
			errs = append(errs, fmt.Errorf("minor head %q parent %q: %w", mh.Code, mh.MajorHeadCode, ErrInvalidParent))
		} else if !id.IsChildOf(mh.Code, mh.MajorHeadCode) {
			errs = append(errs, fmt.Errorf("minor head %q is not a child code of %q: %w", mh.Code, mh.MajorHeadCode, ErrInvalidParent))
		}
	}

	groupings := make(map[string]bool, len(m.Groupings))
	for _, g := range m.Groupings {
		if groupings[g.Code] {
			errs = append(errs, fmt.Errorf("grouping %q: %w", g.Code, ErrDuplicateCode))
		}
		groupings[g.Code] = true
		if !minors[g.MinorHeadCode] {
			errs = append(errs, fmt.Errorf("grouping %q parent %q: %w", g.Code, g.MinorHeadCode, ErrInvalidParent))
		} else if !id.IsChildOf(g.Code, g.MinorHeadCode) {
			errs = append(errs, fmt.Errorf("grouping %q is not a child code of %q: %w", g.Code, g.MinorHeadCode, ErrInvalidParent))
		}
	}
	return errs
}
