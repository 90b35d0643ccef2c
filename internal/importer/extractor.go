package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"homeledger/internal/models"
)

// Candidate is one extracted transaction guess, before persistence.
type Candidate struct {
	Date       time.Time
	Merchant   string
	Amount     decimal.Decimal
	Currency   models.Currency
	Confidence float64
}

// Extractor turns an uploaded statement into transaction candidates.
type Extractor interface {
	Extract(filename string, payload []byte) ([]Candidate, error)
}

// CSVExtractor parses bank statement exports in the common
// date,description,amount[,currency] layout. Rows it cannot parse are
// skipped rather than failing the whole statement.
type CSVExtractor struct {
	// DefaultCurrency is used for rows without a currency column.
	DefaultCurrency models.Currency
}

// NewCSVExtractor creates a CSVExtractor that assumes the given
// currency for statements without a currency column.
func NewCSVExtractor(defaultCurrency models.Currency) *CSVExtractor {
	return &CSVExtractor{DefaultCurrency: defaultCurrency}
}

var dateLayouts = []string{"2006-01-02", "01/02/2006", "2006/01/02", "Jan 2, 2006"}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Extract parses the payload as CSV. A header row is detected by a
// non-parseable date in the first column and skipped.
func (e *CSVExtractor) Extract(filename string, payload []byte) ([]Candidate, error) {
	reader := csv.NewReader(bytes.NewReader(payload))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var candidates []Candidate
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filename, err)
		}
		if len(record) < 3 {
			continue
		}

		date, ok := parseDate(record[0])
		if !ok {
			continue
		}
		merchant := strings.TrimSpace(record[1])
		if merchant == "" {
			continue
		}
		// Statements report charges as negative; store magnitudes.
		amount, err := decimal.NewFromString(strings.TrimSpace(record[2]))
		if err != nil || amount.IsZero() {
			continue
		}
		amount = amount.Abs().Round(2)

		currency := e.DefaultCurrency
		confidence := 0.9
		if len(record) >= 4 {
			parsed := models.Currency(strings.ToUpper(strings.TrimSpace(record[3])))
			if parsed.Valid() {
				currency = parsed
				confidence = 1.0
			}
		}

		candidates = append(candidates, Candidate{
			Date:       date,
			Merchant:   merchant,
			Amount:     amount,
			Currency:   currency,
			Confidence: confidence,
		})
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no parseable transactions in %s", filename)
	}
	return candidates, nil
}
