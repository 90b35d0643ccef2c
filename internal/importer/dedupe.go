package importer

import (
	"strings"
	"time"

	"homeledger/internal/models"
)

const duplicateDateWindow = 3 * 24 * time.Hour

// tokenize lowercases a merchant string and splits it into words,
// dropping punctuation-only fragments.
func tokenize(s string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, word := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	}) {
		if len(word) > 1 {
			tokens[word] = struct{}{}
		}
	}
	return tokens
}

// merchantsMatch reports whether the two merchant strings share at
// least half the tokens of the shorter one. Statement descriptors add
// store numbers and city suffixes, so exact matching is useless.
func merchantsMatch(a, b string) bool {
	ta, tb := tokenize(a), tokenize(b)
	if len(ta) == 0 || len(tb) == 0 {
		return false
	}
	shorter := len(ta)
	if len(tb) < shorter {
		shorter = len(tb)
	}
	overlap := 0
	for token := range ta {
		if _, ok := tb[token]; ok {
			overlap++
		}
	}
	return overlap*2 >= shorter
}

// IsLikelyDuplicate reports whether the candidate matches an existing
// transaction: same amount, date within three days and a fuzzy
// merchant match. Best effort, the user reviews the flag.
func IsLikelyDuplicate(candidate Candidate, existing []models.Transaction) bool {
	for i := range existing {
		tx := &existing[i]
		if !candidate.Amount.Equal(tx.Amount) {
			continue
		}
		delta := candidate.Date.Sub(tx.Date)
		if delta < 0 {
			delta = -delta
		}
		if delta > duplicateDateWindow {
			continue
		}
		if merchantsMatch(candidate.Merchant, tx.Merchant) {
			return true
		}
	}
	return false
}
