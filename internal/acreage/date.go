// Package acreage implements the discovery-and-resolution engine for USDA
// FSA crop acreage archives: index-page link classification, landing-page
// resolution, recency selection, and streamed download.
package acreage

import (
	"regexp"
	"strings"
	"time"
)

// Explicit "as of Month Day, Year" mention.
var asOfRe = regexp.MustCompile(`(?i)\bas of\s+([A-Za-z]+\.?\s+\d{1,2},\s+\d{4})`)

// Fallback: any "Month Day, Year" shaped phrase.
var dateRe = regexp.MustCompile(`[A-Za-z]+\.?\s+\d{1,2},\s+\d{4}`)

// The page abbreviates months inconsistently ("Sept", "Jan.", ...).
var monthFix = map[string]string{
	"Sept": "September",
	"Sep.": "September",
	"Sep":  "September",
	"Jan.": "January",
	"Feb.": "February",
	"Mar.": "March",
	"Apr.": "April",
	"Jun.": "June",
	"Jul.": "July",
	"Aug.": "August",
	"Oct.": "October",
	"Nov.": "November",
	"Dec.": "December",
}

// normalizeMonth expands an abbreviated leading month token to its full name.
func normalizeMonth(dateText string) string {
	tokens := strings.Fields(dateText)
	if len(tokens) == 0 {
		return dateText
	}
	if full, ok := monthFix[tokens[0]]; ok {
		tokens[0] = full
	}
	return strings.Join(tokens, " ")
}

// ParseAsOf extracts the best-effort "as of" date from context text. It tries
// the explicit "as of" phrase first, then any date-shaped phrase. Malformed
// or absent dates yield nil, never an error.
func ParseAsOf(text string) *time.Time {
	if text == "" {
		return nil
	}

	var dateText string
	if m := asOfRe.FindStringSubmatch(text); m != nil {
		dateText = m[1]
	} else if m := dateRe.FindString(text); m != "" {
		dateText = m
	} else {
		return nil
	}

	dateText = normalizeMonth(dateText)
	dateText = strings.ReplaceAll(dateText, "  ", " ")
	dateText = strings.ReplaceAll(dateText, " ,", ",")

	t, err := time.Parse("January 2, 2006", dateText)
	if err != nil {
		return nil
	}
	return &t
}
