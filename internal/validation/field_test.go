package validation

import (
	"strings"
	"testing"
)

func TestMessage_Language(t *testing.T) {
	tests := []struct {
		acceptLanguage string
		want           string
	}{
		{"", "This field is required."},
		{"en-US,en;q=0.9", "This field is required."},
		{"ko-KR,ko;q=0.9,en;q=0.8", "필수 입력 항목입니다."},
		{"fr-FR", "This field is required."},
	}

	for _, tt := range tests {
		if got := Message(ReasonRequired, tt.acceptLanguage); got != tt.want {
			t.Errorf("Message(%q) = %q, want %q", tt.acceptLanguage, got, tt.want)
		}
	}
}

func TestMessage_UnknownReason(t *testing.T) {
	if got := Message("mystery", "en"); got != "mystery" {
		t.Errorf("got %q", got)
	}
}

func TestValidateOrderID(t *testing.T) {
	if errs := ValidateOrderID("pi_123"); errs != nil {
		t.Errorf("valid id rejected: %v", errs)
	}
	if errs := ValidateOrderID("   "); len(errs) != 1 || errs[0].Reason != ReasonRequired {
		t.Errorf("blank id: %v", errs)
	}
	if errs := ValidateOrderID(strings.Repeat("x", maxOrderIDLength+1)); len(errs) != 1 || errs[0].Reason != ReasonTooLong {
		t.Errorf("long id: %v", errs)
	}
}

func TestValidateEmail(t *testing.T) {
	if err := ValidateEmail("vet@example.com"); err != nil {
		t.Errorf("valid email rejected: %v", err)
	}
	for _, bad := range []string{"", "not-an-email", "a@"} {
		if err := ValidateEmail(bad); err == nil {
			t.Errorf("ValidateEmail(%q) accepted", bad)
		}
	}
}
