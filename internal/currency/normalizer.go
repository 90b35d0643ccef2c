// Package currency converts transaction amounts into a household's
// settlement currency using date-keyed historical exchange rates.
package currency

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"homeledger/internal/logger"
	"homeledger/internal/models"
)

// Normalizer converts amounts between currencies with a read-through
// rate cache and a current-rate fallback when the historical source is
// unavailable.
type Normalizer struct {
	source RateSource
	cache  RateCache
}

// NewNormalizer creates a Normalizer over the given source and cache.
func NewNormalizer(source RateSource, cache RateCache) *Normalizer {
	return &Normalizer{source: source, cache: cache}
}

// Normalize converts amount from one currency to another at the given
// date's historical rate, rounded to 2 decimal places. Same-currency
// conversions return the input unchanged without touching the source.
//
// A failed historical lookup degrades to the current rate instead of
// failing the caller: availability over precision. Only rates obtained
// from the historical endpoint are cached, since a current-rate stand-in
// for a past date would otherwise be served forever.
func (n *Normalizer) Normalize(ctx context.Context, amount decimal.Decimal, from, to models.Currency, date time.Time) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}

	if rate, ok := n.cache.Get(from, to, date); ok {
		return amount.Mul(rate).Round(2), nil
	}

	rate, err := n.source.HistoricalRate(ctx, from, to, date)
	if err == nil {
		n.cache.Put(from, to, date, rate)
		return amount.Mul(rate).Round(2), nil
	}

	logger.Get().Warnw("historical rate lookup failed, falling back to current rate",
		"from", from,
		"to", to,
		"date", date.Format("2006-01-02"),
		"error", err,
	)

	rate, fallbackErr := n.source.CurrentRate(ctx, from, to)
	if fallbackErr != nil {
		return decimal.Zero, fmt.Errorf("exchange rate unavailable for %s->%s: %w", from, to, fallbackErr)
	}
	return amount.Mul(rate).Round(2), nil
}
