package legal

import (
	"regexp"
	"strings"

	"github.com/avasquez/deedscan/internal/model"
)

// Legal descriptions on assessment pages are short multi-line blocks, e.g.
//
//	ST AUGUSTINE HIGHLANDS
//	BLK N/6757
//	LT 8
//
// Only the first match of each pattern is used. Irregular formatting yields
// partial results, which callers treat as "insufficient data", never as an
// error.
var (
	blockTokenRe = regexp.MustCompile(`(?i)\b(?:BLK|BLOCK)\b`)
	blockRe      = regexp.MustCompile(`(?i)\b(?:BLK|BLOCK)\s+([A-Za-z0-9]+)(?:\s*/\s*([A-Za-z0-9]+))?`)
	lotRe        = regexp.MustCompile(`(?i)\b(?:LTS?|LOTS?)\s+(\d+)(?:\s*&\s*(\d+))?`)
)

// Parse decomposes a free-text legal description into its structured
// parts. Every field of the result is optional.
func Parse(text string) model.LegalDescription {
	var ld model.LegalDescription

	lines := splitLines(text)
	if len(lines) == 0 {
		return ld
	}
	joined := strings.Join(lines, " ")

	// Subdivision is the text before the first "BLK". When the block is
	// spelled out or absent, fall back to the first line as long as it is
	// not itself a block line.
	if i := strings.Index(strings.ToUpper(joined), "BLK"); i >= 0 {
		ld.Subdivision = strings.TrimSpace(joined[:i])
	} else if !blockTokenRe.MatchString(lines[0]) {
		ld.Subdivision = lines[0]
	}

	if m := blockRe.FindStringSubmatch(joined); m != nil {
		ld.Block = m[1]
		ld.CityBlock = m[2] // "" when no "/NNNN" part
	}

	if m := lotRe.FindStringSubmatch(joined); m != nil {
		ld.Lot1 = m[1]
		ld.Lot2 = m[2] // "" when no "& NN" part
	}

	return ld
}

// splitLines returns the trimmed, non-empty lines of text.
func splitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
