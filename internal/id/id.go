package id

import (
	"fmt"
	"strconv"
	"strings"
)

// customMarker separates a minor head code from the sequence of a
// user-added grouping, e.g. "A.10_G003".
const customMarker = "_G"

// FormatLedgerID returns a ledger ID like "L0007".
func FormatLedgerID(seq int) string {
	return fmt.Sprintf("L%04d", seq)
}

// ParseLedgerID parses "L0007" into its sequence number.
func ParseLedgerID(id string) (int, error) {
	if !strings.HasPrefix(id, "L") {
		return 0, fmt.Errorf("invalid ledger ID format: %q", id)
	}
	seq, err := strconv.Atoi(id[1:])
	if err != nil {
		return 0, fmt.Errorf("invalid sequence in ledger ID %q: %w", id, err)
	}
	return seq, nil
}

// FormatCustomGrouping returns the code of the seq-th user-added grouping
// under a minor head: ("A.10", 3) -> "A.10_G003".
func FormatCustomGrouping(minorCode string, seq int) string {
	return fmt.Sprintf("%s%s%03d", minorCode, customMarker, seq)
}

// IsCustomGrouping reports whether code was produced by FormatCustomGrouping.
func IsCustomGrouping(code string) bool {
	return strings.Contains(code, customMarker)
}

// Parent returns the code of the level above.
// "A.10.01" -> "A.10", "A.10_G001" -> "A.10", "A.10" -> "A", "A" -> "".
func Parent(code string) string {
	if i := strings.LastIndex(code, customMarker); i > 0 {
		return code[:i]
	}
	if i := strings.LastIndexByte(code, '.'); i > 0 {
		return code[:i]
	}
	return ""
}

// IsChildOf reports whether code sits directly beneath parent.
func IsChildOf(code, parent string) bool {
	return parent != "" && code != parent && Parent(code) == parent
}

// HasPrefix reports whether code falls under prefix. Matching is by whole
// segment: "A.10" covers "A.10", "A.10.01" and "A.10_G001" but not "A.100.01".
// The empty prefix covers every code.
func HasPrefix(code, prefix string) bool {
	if prefix == "" {
		return true
	}
	if !strings.HasPrefix(code, prefix) {
		return false
	}
	if len(code) == len(prefix) {
		return true
	}
	switch code[len(prefix)] {
	case '.', '_':
		return true
	}
	return false
}

// HasAnyPrefix reports whether code falls under any of prefixes.
func HasAnyPrefix(code string, prefixes ...string) bool {
	for _, p := range prefixes {
		if HasPrefix(code, p) {
			return true
		}
	}
	return false
}

// Compare orders dotted codes segment by segment, numerically where both
// segments are numbers, so "A.20" sorts before "A.100".
func Compare(a, b string) int {
	as := strings.FieldsFunc(a, isSep)
	bs := strings.FieldsFunc(b, isSep)
	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := compareSegment(as[i], bs[i]); c != 0 {
			return c
		}
	}
	return len(as) - len(bs)
}

func isSep(r rune) bool { return r == '.' || r == '_' }

func compareSegment(a, b string) int {
	an, aerr := strconv.Atoi(strings.TrimPrefix(a, "G"))
	bn, berr := strconv.Atoi(strings.TrimPrefix(b, "G"))
	if aerr == nil && berr == nil {
		// Custom "G" segments sort after the standard numeric ones.
		ag, bg := strings.HasPrefix(a, "G"), strings.HasPrefix(b, "G")
		if ag != bg {
			if ag {
				return 1
			}
			return -1
		}
		return an - bn
	}
	return strings.Compare(a, b)
}
