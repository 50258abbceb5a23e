package search

import (
	"strings"
	"unicode"
)

// Phone-likeness heuristic: a query is treated as a phone number when it
// carries at least this many digits and digits make up at least this share
// of its non-space characters. Anything else is treated as a name.
const (
	minPhoneDigits  = 7
	phoneDigitRatio = 0.6
)

// NormalizePhone reduces a raw phone query to its canonical digit sequence.
// Idempotent: normalizing an already normalized number is a no-op.
func NormalizePhone(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// LooksLikePhone classifies a query as phone-number-like versus a name.
func LooksLikePhone(query string) bool {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return false
	}
	digits := 0
	total := 0
	for _, r := range trimmed {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits < minPhoneDigits {
		return false
	}
	return float64(digits)/float64(total) >= phoneDigitRatio
}

// ClassifyPhoneMatch compares normalized query digits against a stored
// number and returns the strongest applicable class. Suffix matching
// tolerates an omitted country code; the classes are mutually exclusive.
func ClassifyPhoneMatch(queryDigits, storedNumber string) PhoneMatchClass {
	if queryDigits == "" {
		return MatchNone
	}
	stored := NormalizePhone(storedNumber)
	if stored == "" {
		return MatchNone
	}
	switch {
	case stored == queryDigits:
		return MatchExact
	case strings.HasSuffix(stored, queryDigits):
		return MatchSuffix
	case strings.Contains(stored, queryDigits):
		return MatchContains
	}
	return MatchNone
}
