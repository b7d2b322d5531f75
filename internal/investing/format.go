package investing

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// printer groups thousands the English way.
var printer = message.NewPrinter(language.English)

// FormatCurrency renders a dollar amount with thousand separators and cents,
// e.g. 10000 as "$10,000.00" and -12.5 as "-$12.50".
func FormatCurrency(amount float64) string {
	sign, whole, frac := splitCents(amount)
	return sign + "$" + printer.Sprintf("%d", whole) + fmt.Sprintf(".%02d", frac)
}

// FormatPercent renders a percentage with two decimals and an explicit sign
// for gains, e.g. "+4.25%".
func FormatPercent(pct float64) string {
	sign, whole, frac := splitCents(pct)
	if sign == "" && (whole > 0 || frac > 0) {
		sign = "+"
	}
	return sign + printer.Sprintf("%d", whole) + fmt.Sprintf(".%02d%%", frac)
}

// splitCents rounds v to two decimals and returns its sign and both parts.
// Values that round to zero have no sign.
func splitCents(v float64) (sign string, whole, frac int64) {
	cents := int64(math.Round(math.Abs(v) * 100))
	if v < 0 && cents > 0 {
		sign = "-"
	}
	return sign, cents / 100, cents % 100
}
