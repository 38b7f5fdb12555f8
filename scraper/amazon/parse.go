package amazon

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	// decimalRegexp captures the first plain decimal number
	decimalRegexp = regexp.MustCompile(`\d+(?:\.\d+)?`)
	// reviewsRegexp captures a digit run with any comma grouping, e.g. 12,345 or 1,23,456
	reviewsRegexp = regexp.MustCompile(`\d[\d,]*`)
	// brandTokenRegexp captures the first alphabetic word
	brandTokenRegexp = regexp.MustCompile(`\p{L}[\p{L}\p{M}]*`)
)

// promoPhrases are shown in the brand slot but are not brands.
var promoPhrases = []string{
	"deal", "offer", "price", "sponsored", "limited time", "save", "coupon", "bestseller", "amazon's choice",
}

// parsePrice extracts a non-negative amount from a price label.
// Examples:
//
//	"₹1,23,999" → 123999
//	"1,234.56" → 1234.56
//	"Currently unavailable" → not found
func parsePrice(raw string) (float64, bool) {
	cleaned := strings.ReplaceAll(raw, ",", "")
	match := decimalRegexp.FindString(cleaned)
	if match == "" {
		return 0, false
	}
	val, err := strconv.ParseFloat(match, 64)
	if err != nil || val < 0 {
		return 0, false
	}
	return val, true
}

// joinPrice reassembles the split whole/fraction rendering into "{whole}.{fraction}".
func joinPrice(whole, fraction string) string {
	whole = strings.TrimRight(strings.TrimSpace(whole), ".")
	fraction = strings.TrimSpace(fraction)
	if whole == "" {
		return ""
	}
	if fraction == "" {
		return whole
	}
	return whole + "." + fraction
}

// parseRating extracts the leading 0.0–5.0 number of "4.3 out of 5 stars".
func parseRating(raw string) (float64, bool) {
	match := decimalRegexp.FindString(raw)
	if match == "" {
		return 0, false
	}
	val, err := strconv.ParseFloat(match, 64)
	if err != nil || val < 0 || val > 5 {
		return 0, false
	}
	return val, true
}

// parseReviews extracts the first comma grouped count, e.g. "(12,345)" → 12345 or "(1,23,456)" → 123456.
func parseReviews(raw string) (int, bool) {
	match := reviewsRegexp.FindString(raw)
	if match == "" {
		return 0, false
	}
	val, err := strconv.Atoi(strings.ReplaceAll(match, ",", ""))
	if err != nil || val < 0 {
		return 0, false
	}
	return val, true
}

// parseText accepts any non-blank string, collapsing whitespace.
func parseText(raw string) (string, bool) {
	s := normaliseText(raw)
	return s, s != ""
}

// parseBrand accepts a brand label unless it is a promotional phrase.
func parseBrand(raw string) (string, bool) {
	s, ok := parseText(raw)
	if !ok || isPromo(s) {
		return "", false
	}
	if !strings.ContainsFunc(s, unicode.IsLetter) {
		return "", false
	}
	return s, true
}

func isPromo(s string) bool {
	lower := strings.ToLower(s)
	for _, p := range promoPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// brandFromTitle returns the first alphabetic word of the title.
func brandFromTitle(title string) (string, bool) {
	token := brandTokenRegexp.FindString(title)
	return token, token != ""
}

// absoluteURL resolves href against base and strips the query string and fragment.
func absoluteURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	u := ref
	if base != nil {
		u = base.ResolveReference(ref)
	}
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	return u.String()
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
