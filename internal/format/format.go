// Package format holds the display helpers shared by the analysis service and
// the result renderer. Every monetary amount shown to a user goes through
// Currency.
package format

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// CurrencySymbol is the prefix of every formatted amount (pt-BR, BRL).
const CurrencySymbol = "R$"

// Currency formats the absolute value of v as Brazilian reais: "R$ 1.234,56".
func Currency(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	return CurrencyDecimal(decimal.NewFromFloat(v))
}

// CurrencyDecimal is Currency for exact amounts.
func CurrencyDecimal(d decimal.Decimal) string {
	fixed := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var sb strings.Builder
	sb.Grow(len(CurrencySymbol) + len(fixed) + len(fixed)/3 + 1)
	sb.WriteString(CurrencySymbol)
	sb.WriteByte(' ')
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteByte('.')
		}
		sb.WriteRune(c)
	}
	sb.WriteByte(',')
	sb.WriteString(frac)
	return sb.String()
}

// Capitalize upper-cases the first letter and leaves the rest untouched.
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// Percent renders a share with one decimal place, e.g. "60.0%".
func Percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

// SignedPercent is Percent with an explicit sign for increases.
func SignedPercent(v float64) string {
	if v > 0 {
		return "+" + Percent(v)
	}
	return Percent(v)
}
