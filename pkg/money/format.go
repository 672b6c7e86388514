package money

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FormatPrice renders centavos as an es-AR currency string: 123456 -> "$1.234,56".
func FormatPrice(centavos int64) string {
	amount := decimal.NewFromInt(centavos).Div(decimal.NewFromInt(100))
	fixed := amount.StringFixed(2) // "-1234.56"

	negative := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	parts := strings.SplitN(fixed, ".", 2)
	intPart, fracPart := parts[0], parts[1]

	var b strings.Builder
	if negative {
		b.WriteString("-")
	}
	b.WriteString("$")
	b.WriteString(groupThousands(intPart))
	b.WriteString(",")
	b.WriteString(fracPart)
	return b.String()
}

// FormatDate renders a timestamp as ISO-8601 in UTC, the wire format for orders.
func FormatDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// FormatDateDisplay renders a timestamp as DD/MM/YYYY for human-facing views.
func FormatDateDisplay(t time.Time) string {
	return t.Format("02/01/2006")
}

func groupThousands(digits string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}
	var b strings.Builder
	head := n % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteString(".")
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
