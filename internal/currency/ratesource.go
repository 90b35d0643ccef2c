package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"homeledger/internal/models"
)

// RateSource supplies exchange rates from an external provider.
type RateSource interface {
	// HistoricalRate returns the daily rate for the given date.
	HistoricalRate(ctx context.Context, from, to models.Currency, date time.Time) (decimal.Decimal, error)
	// CurrentRate returns today's rate, used as the degraded fallback
	// when the historical lookup fails.
	CurrentRate(ctx context.Context, from, to models.Currency) (decimal.Decimal, error)
}

// HTTPRateSource fetches rates from a frankfurter-style JSON API:
// GET {base}/2026-01-15?from=USD&to=CAD and GET {base}/latest?from=...
type HTTPRateSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPRateSource creates a rate source against the given base URL.
// The timeout bounds each fetch; callers degrade to the current rate
// rather than blocking.
func NewHTTPRateSource(baseURL string, timeout time.Duration) *HTTPRateSource {
	return &HTTPRateSource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type rateResponse struct {
	Rates map[string]decimal.Decimal `json:"rates"`
}

func (s *HTTPRateSource) HistoricalRate(ctx context.Context, from, to models.Currency, date time.Time) (decimal.Decimal, error) {
	return s.fetch(ctx, date.Format("2006-01-02"), from, to)
}

func (s *HTTPRateSource) CurrentRate(ctx context.Context, from, to models.Currency) (decimal.Decimal, error) {
	return s.fetch(ctx, "latest", from, to)
}

func (s *HTTPRateSource) fetch(ctx context.Context, path string, from, to models.Currency) (decimal.Decimal, error) {
	u := fmt.Sprintf("%s/%s?%s", s.baseURL, path, url.Values{
		"from": {string(from)},
		"to":   {string(to)},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to build rate request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("rate fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("rate API returned status %d", resp.StatusCode)
	}

	var body rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode rate response: %w", err)
	}

	rate, ok := body.Rates[string(to)]
	if !ok || rate.IsZero() {
		return decimal.Zero, fmt.Errorf("rate API response missing %s rate", to)
	}
	return rate, nil
}
