// Package normalize converts untrusted, loosely-typed extraction values into
// canonical typed values. Every function is total: malformed input degrades
// to nil or empty, never to an error, because upstream model output cannot
// be trusted to follow the schema it was given.
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pocketfold/pocketfold/internal/model"
)

var (
	dateRe     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	currencyRe = regexp.MustCompile(`^[A-Z]{3}$`)
	numericRe  = regexp.MustCompile(`[^0-9.\-]`)
	digitsRe   = regexp.MustCompile(`\D`)
)

// String trims a scalar into a non-empty string, or nil.
func String(v any) *string {
	s, ok := scalarString(v)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Date accepts only an exact YYYY-MM-DD calendar date. No fuzzy parsing:
// the upstream extraction already promised this shape, so anything else is
// discarded rather than guessed at.
func Date(v any) *string {
	s := String(v)
	if s == nil || !dateRe.MatchString(*s) {
		return nil
	}
	if _, err := time.Parse("2006-01-02", *s); err != nil {
		return nil
	}
	return s
}

// Currency uppercases the first three characters and keeps the result only
// if it looks like an ISO 4217 code.
func Currency(v any) *string {
	s := String(v)
	if s == nil {
		return nil
	}
	code := *s
	if len(code) > 3 {
		code = code[:3]
	}
	code = strings.ToUpper(code)
	if !currencyRe.MatchString(code) {
		return nil
	}
	return &code
}

// Money parses a numeric value or a numeric-ish string (currency symbols and
// grouping junk stripped) and rounds to 2 decimals.
func Money(v any) *float64 {
	num := parseNumber(v)
	if num == nil {
		return nil
	}
	rounded := round(*num, 2)
	return &rounded
}

// Confidence parses like Money but clamps to [0, 1] and keeps 4 decimals.
func Confidence(v any) *float64 {
	num := parseNumber(v)
	if num == nil {
		return nil
	}
	n := *num
	if n < 0 {
		n = 0
	} else if n > 1 {
		n = 1
	}
	n = round(n, 4)
	return &n
}

// Last4 strips non-digits and keeps the trailing four characters.
func Last4(v any) *string {
	s := String(v)
	if s == nil {
		return nil
	}
	digits := digitsRe.ReplaceAllString(*s, "")
	if digits == "" {
		return nil
	}
	if len(digits) > 4 {
		digits = digits[len(digits)-4:]
	}
	return &digits
}

// Tags accepts a comma-separated string or a list, trims each entry, drops
// empties, and deduplicates case-sensitively preserving first-seen order.
// The result is never nil.
func Tags(v any) []string {
	var parts []any

	switch t := v.(type) {
	case string:
		for _, piece := range strings.Split(t, ",") {
			parts = append(parts, piece)
		}
	case []any:
		parts = t
	case []string:
		for _, piece := range t {
			parts = append(parts, piece)
		}
	}

	tags := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		s, ok := scalarString(part)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		tags = append(tags, s)
	}

	return tags
}

// LineItems validates a list of extracted items. Items without a non-empty
// name are dropped; numeric fields go through Money. The result is never
// nil.
func LineItems(v any) []model.LineItem {
	list, ok := v.([]any)
	if !ok {
		return []model.LineItem{}
	}

	items := make([]model.LineItem, 0, len(list))
	for _, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}

		name := String(m["name"])
		if name == nil {
			continue
		}

		items = append(items, model.LineItem{
			Name:       *name,
			Quantity:   Money(m["quantity"]),
			UnitPrice:  Money(m["unit_price"]),
			TotalPrice: Money(m["total_price"]),
			Category:   String(m["category"]),
		})
	}

	return items
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// parseNumber accepts native numbers and numeric strings. NaN and infinity
// never survive; they would otherwise leak into stored money fields.
func parseNumber(v any) *float64 {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		return &t
	case int:
		f := float64(t)
		return &f
	case int64:
		f := float64(t)
		return &f
	case string:
		clean := numericRe.ReplaceAllString(t, "")
		if clean == "" {
			return nil
		}
		f, err := strconv.ParseFloat(clean, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return &f
	default:
		return nil
	}
}

func round(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
