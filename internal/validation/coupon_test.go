package validation

import (
	"strings"
	"testing"
	"time"
)

func reasons(errs []FieldError) map[string]string {
	out := map[string]string{}
	for _, e := range errs {
		out[e.Field] = e.Reason
	}
	return out
}

func TestValidateCouponBatch_Valid(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	endsAt, errs := ValidateCouponBatch(100, "2026-02-01", 3, 0, now)
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	want := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	if !endsAt.Equal(want) {
		t.Errorf("endsAt = %v, want %v", endsAt, want)
	}
}

func TestValidateCouponBatch_ReportsEveryField(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	_, errs := ValidateCouponBatch(0, "not-a-date", 0, 0, now)
	got := reasons(errs)

	if got["tokens"] != ReasonMustBePositive {
		t.Errorf("tokens reason = %q", got["tokens"])
	}
	if got["count"] != ReasonOutOfRange {
		t.Errorf("count reason = %q", got["count"])
	}
	if got["endsAt"] != ReasonInvalidFormat {
		t.Errorf("endsAt reason = %q", got["endsAt"])
	}
}

func TestValidateCouponBatch_EndsAt(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		endsAt string
		reason string
	}{
		{"empty", "  ", ReasonRequired},
		{"past", "2025-12-31T00:00:00Z", ReasonMustBeFuture},
		{"equal to now", "2026-01-01T12:00:00Z", ReasonMustBeFuture},
		{"offset converted to utc", "2026-01-01T20:30:00+09:00", ReasonMustBeFuture},
		{"minute precision", "2026-01-01T12:01", ""},
		{"rfc3339 with fraction", "2026-03-01T00:00:00.5Z", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := ValidateCouponBatch(1, tt.endsAt, 1, 0, now)
			if got := reasons(errs)["endsAt"]; got != tt.reason {
				t.Errorf("reason = %q, want %q", got, tt.reason)
			}
		})
	}
}

func TestValidateCouponBatch_CountBounds(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		count    int
		maxCount int
		ok       bool
	}{
		{1, 0, true},
		{MaxCouponBatch, 0, true},
		{MaxCouponBatch + 1, 0, false},
		{-1, 0, false},
		{50, 50, true},
		{51, 50, false},
		{MaxCouponBatch, 5000, true},
		{MaxCouponBatch + 1, 5000, false},
	}

	for _, tt := range tests {
		_, errs := ValidateCouponBatch(1, "2027-01-01", tt.count, tt.maxCount, now)
		_, failed := reasons(errs)["count"]
		if failed == tt.ok {
			t.Errorf("count=%d max=%d: failed=%v, want ok=%v", tt.count, tt.maxCount, failed, tt.ok)
		}
	}
}

func TestParseEndsAt_UTC(t *testing.T) {
	got, ok := ParseEndsAt("2026-05-05T10:00:00+02:00")
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	if got.Location() != time.UTC {
		t.Errorf("location = %v, want UTC", got.Location())
	}
	if got.Hour() != 8 {
		t.Errorf("hour = %d, want 8", got.Hour())
	}
}

func TestNormalizeSearch(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"", "", true},
		{" abcd ", "ABCD", true},
		{"ab12-cd34", "AB12CD34", true},
		{"ab%", "", false},
		{"ab_cd", "", false},
		{"한글", "", false},
		{strings.Repeat("A", maxSearchLength), strings.Repeat("A", maxSearchLength), true},
		{strings.Repeat("A", maxSearchLength+1), "", false},
	}

	for _, tt := range tests {
		got, ok := NormalizeSearch(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("NormalizeSearch(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestValidatePage(t *testing.T) {
	page, limit, errs := ValidatePage(0, 0)
	if page != 1 || limit != DefaultPageSize || len(errs) != 0 {
		t.Errorf("defaults = %d, %d, %v", page, limit, errs)
	}

	_, _, errs = ValidatePage(-1, MaxPageLimit+1)
	got := reasons(errs)
	if got["page"] != ReasonOutOfRange || got["limit"] != ReasonOutOfRange {
		t.Errorf("errors = %v", errs)
	}

	_, _, errs = ValidatePage(MaxPage+1, MaxPageLimit)
	if reasons(errs)["page"] != ReasonOutOfRange {
		t.Errorf("page beyond cap accepted: %v", errs)
	}

	page, limit, errs = ValidatePage(MaxPage, MaxPageLimit)
	if page != MaxPage || len(errs) != 0 {
		t.Errorf("page at cap = %d, %v", page, errs)
	}

	page, limit, errs = ValidatePage(3, MaxPageLimit)
	if page != 3 || limit != MaxPageLimit || len(errs) != 0 {
		t.Errorf("explicit = %d, %d, %v", page, limit, errs)
	}
}
