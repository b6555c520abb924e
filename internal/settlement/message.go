package settlement

import (
	"strconv"
	"strings"
)

// FormatAmount renders an amount with dot thousands separators: 60000
// becomes "60.000".
func FormatAmount(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}

	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FormatCurrency renders an amount followed by the currency suffix.
func FormatCurrency(amount int64) string {
	return FormatAmount(amount) + " VND"
}

// GeneratePaymentMessage builds the transfer note for a settlement:
// name, amount and codes, e.g. "Jane Doe 60.000 VP01, VP04".
func GeneratePaymentMessage(subject string, amount int64, codes []string) string {
	return subject + " " + FormatAmount(amount) + " " + strings.Join(codes, ", ")
}
