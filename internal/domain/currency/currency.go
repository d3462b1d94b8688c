// Package currency turns free-form price labels into numbers.
package currency

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/okian/appraiser/pkg/logger"
)

// Parse strips everything except digits and the decimal point and parses
// what remains. Empty, "N/A" and unparsable input yield 0. Thousands
// separators and currency symbols are discarded together, so "3,000,000
// Coins" becomes 3000000.
func Parse(ctx context.Context, log logger.Logger, text string) float64 {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || strings.EqualFold(trimmed, "n/a") {
		return 0
	}

	var b strings.Builder
	b.Grow(len(trimmed))
	for _, r := range trimmed {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}

	v, err := decimal.NewFromString(b.String())
	if err != nil {
		if log != nil {
			log.Warn(ctx, "unparsable price", logger.String("text", text), logger.Error(err))
		}
		return 0
	}
	return v.InexactFloat64()
}

// Add sums amounts in decimal so running totals of cent prices do not
// drift ("0.1 + 0.2" stays 0.3).
func Add(total float64, amounts ...float64) float64 {
	sum := decimal.NewFromFloat(total)
	for _, a := range amounts {
		sum = sum.Add(decimal.NewFromFloat(a))
	}
	return sum.InexactFloat64()
}
