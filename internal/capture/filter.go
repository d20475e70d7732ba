package capture

import (
	"regexp"

	"github.com/avasquez/deedscan/internal/model"
)

// MatchDocuments retains the listing entries whose legal-description text
// names both the target lot and block. Matches are word-boundary anchored
// so "LOT 31" never matches target lot "1". Subdivision is deliberately
// not a predicate here: it only narrows the upstream search query, because
// subdivision text is too inconsistently formatted to match reliably.
// Relative input order is preserved.
func MatchDocuments(entries []model.ListingEntry, lot, block string) []model.ListingEntry {
	if lot == "" || block == "" {
		return nil
	}

	lotRe := regexp.MustCompile(`(?i)\b(?:LOT|LT)S?\.?\s*` + regexp.QuoteMeta(lot) + `\b`)
	blockRe := regexp.MustCompile(`(?i)\b(?:BLOCK|BLK)\.?\s*` + regexp.QuoteMeta(block) + `\b`)

	var matched []model.ListingEntry
	for _, e := range entries {
		if lotRe.MatchString(e.LegalDescription) && blockRe.MatchString(e.LegalDescription) {
			matched = append(matched, e)
		}
	}
	return matched
}
