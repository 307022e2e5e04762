package report

import (
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// amountFormatter prints "1,234.56 €".
var amountFormatter = money.NewFormatter(2, ".", ",", "€", "1 $")

var maxCents = decimal.NewFromInt(math.MaxInt64)

// FormatAmount renders an amount with two decimals, comma grouping and a
// trailing euro sign.
func FormatAmount(d decimal.Decimal) string {
	cents := d.Round(2).Shift(2)
	if cents.Abs().LessThanOrEqual(maxCents) {
		return amountFormatter.Format(cents.IntPart())
	}
	return formatWide(d)
}

// formatWide is FormatAmount for amounts whose cents overflow an int64.
func formatWide(d decimal.Decimal) string {
	whole, frac, _ := strings.Cut(d.Abs().StringFixed(2), ".")

	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteString("." + frac + " €")
	return b.String()
}
