// Package format renders amounts for display using the entity's number
// format and rounding unit.
package format

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// NumberFormat selects digit grouping and separators.
type NumberFormat string

const (
	// Indian groups as 1,23,45,678.90.
	Indian NumberFormat = "Indian"
	// European groups as 12.345.678,90.
	European NumberFormat = "European"
)

// Unit is the rounding unit amounts are reported in.
type Unit string

const (
	Ones      Unit = "ones"
	Hundreds  Unit = "hundreds"
	Thousands Unit = "thousands"
	Lakhs     Unit = "lakhs"
	Millions  Unit = "millions"
	Crores    Unit = "crores"
)

var divisors = map[Unit]int64{
	Ones:      1,
	Hundreds:  100,
	Thousands: 1_000,
	Lakhs:     100_000,
	Millions:  1_000_000,
	Crores:    10_000_000,
}

// ParseNumberFormat accepts Indian or European in any case.
func ParseNumberFormat(s string) (NumberFormat, error) {
	switch {
	case strings.EqualFold(s, string(Indian)):
		return Indian, nil
	case strings.EqualFold(s, string(European)):
		return European, nil
	}
	return "", fmt.Errorf("unknown number format %q", s)
}

// ParseUnit accepts any of the unit names in any case. An empty string is
// ones.
func ParseUnit(s string) (Unit, error) {
	if s == "" {
		return Ones, nil
	}
	u := Unit(strings.ToLower(s))
	if _, ok := divisors[u]; !ok {
		return "", fmt.Errorf("unknown rounding unit %q", s)
	}
	return u, nil
}

// Formatter renders decimal amounts.
type Formatter struct {
	printer  *message.Printer
	divisor  decimal.Decimal
	decimals int32
	symbol   string
}

// New returns a formatter. Negative decimals are treated as zero.
func New(f NumberFormat, u Unit, decimals int, symbol string) *Formatter {
	tag := language.MustParse("en-IN")
	if f == European {
		tag = language.German
	}
	d, ok := divisors[u]
	if !ok {
		d = 1
	}
	if decimals < 0 {
		decimals = 0
	}
	return &Formatter{
		printer:  message.NewPrinter(tag),
		divisor:  decimal.NewFromInt(d),
		decimals: int32(decimals),
		symbol:   symbol,
	}
}

// Amount scales v to the unit, rounds it and groups its digits. Negative
// amounts are shown in parentheses and zero as a dash.
func (f *Formatter) Amount(v decimal.Decimal) string {
	scaled := v.Div(f.divisor).Round(f.decimals)
	if scaled.IsZero() {
		return "-"
	}
	abs, _ := scaled.Abs().Float64()
	s := f.printer.Sprint(number.Decimal(abs, number.Scale(int(f.decimals))))
	if f.symbol != "" {
		s = f.symbol + " " + s
	}
	if scaled.IsNegative() {
		return "(" + s + ")"
	}
	return s
}

// Scaled returns v in the formatter's unit, rounded, for machine-readable
// outputs such as spreadsheets.
func (f *Formatter) Scaled(v decimal.Decimal) decimal.Decimal {
	return v.Div(f.divisor).Round(f.decimals)
}

// Caption describes the unit for statement headers, e.g. "(Amount in ₹ Lakhs)".
func Caption(symbol string, u Unit) string {
	if u == Ones || u == "" {
		return fmt.Sprintf("(Amount in %s)", symbol)
	}
	return fmt.Sprintf("(Amount in %s %s)", symbol, strings.ToUpper(string(u[:1]))+string(u[1:]))
}
