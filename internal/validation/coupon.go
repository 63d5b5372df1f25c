package validation

import (
	"strings"
	"time"
	"unicode"
)

const (
	MaxCouponBatch  = 1000
	MaxPageLimit    = 100
	DefaultPageSize = 20
	MaxPage         = 1_000_000
	maxSearchLength = 32
)

var endsAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseEndsAt accepts ISO-8601 timestamps. Values without an offset are read as UTC.
func ParseEndsAt(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range endsAtLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ValidateCouponBatch checks batch issuance parameters and returns the parsed
// end time. maxCount caps count below MaxCouponBatch when configured lower.
func ValidateCouponBatch(tokens int, endsAt string, count, maxCount int, now time.Time) (time.Time, []FieldError) {
	var errs []FieldError

	if tokens <= 0 {
		errs = append(errs, FieldError{Field: "tokens", Reason: ReasonMustBePositive})
	}

	if maxCount <= 0 || maxCount > MaxCouponBatch {
		maxCount = MaxCouponBatch
	}
	if count < 1 || count > maxCount {
		errs = append(errs, FieldError{Field: "count", Reason: ReasonOutOfRange})
	}

	var parsed time.Time
	switch {
	case strings.TrimSpace(endsAt) == "":
		errs = append(errs, FieldError{Field: "endsAt", Reason: ReasonRequired})
	default:
		t, ok := ParseEndsAt(endsAt)
		if !ok {
			errs = append(errs, FieldError{Field: "endsAt", Reason: ReasonInvalidFormat})
		} else if !t.After(now) {
			errs = append(errs, FieldError{Field: "endsAt", Reason: ReasonMustBeFuture})
		} else {
			parsed = t
		}
	}

	return parsed, errs
}

// NormalizeSearch upper-cases a code search term and reports whether it only
// holds characters that can appear in a code.
func NormalizeSearch(search string) (string, bool) {
	search = strings.ToUpper(strings.TrimSpace(search))
	if len(search) > maxSearchLength {
		return "", false
	}
	for _, r := range search {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-') {
			return "", false
		}
	}
	return strings.ReplaceAll(search, "-", ""), true
}

// ValidatePage checks page/limit and applies defaults for zero values.
func ValidatePage(page, limit int) (int, int, []FieldError) {
	var errs []FieldError

	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = DefaultPageSize
	}
	// The cap keeps (page-1)*limit far from overflowing the SQL offset
	if page < 1 || page > MaxPage {
		errs = append(errs, FieldError{Field: "page", Reason: ReasonOutOfRange})
	}
	if limit < 1 || limit > MaxPageLimit {
		errs = append(errs, FieldError{Field: "limit", Reason: ReasonOutOfRange})
	}

	return page, limit, errs
}
