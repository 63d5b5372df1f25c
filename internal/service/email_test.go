package service

import (
	"context"
	"strings"
	"testing"

	"github.com/templui/pawcare/internal/model"
)

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		amount   int64
		currency string
		want     string
	}{
		{1999, "usd", "19.99 USD"},
		{500, "EUR", "5.00 EUR"},
		{15000, "krw", "15000 KRW"},
		{1200, "", "1200"},
	}
	for _, tt := range tests {
		if got := formatPrice(tt.amount, tt.currency); got != tt.want {
			t.Errorf("formatPrice(%d, %q) = %q, want %q", tt.amount, tt.currency, got, tt.want)
		}
	}
}

func TestRefundReceiptTemplate(t *testing.T) {
	subject, body := refundReceiptEmailTemplate("pi_1", 50, "19.99 USD", "https://pawcare.example/app/tokens", "Pawcare")
	if !strings.Contains(subject, "Pawcare") {
		t.Errorf("subject = %q", subject)
	}
	for _, want := range []string{"pi_1", "50", "19.99 USD", "https://pawcare.example/app/tokens"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestEmailService_DevModeLogsOnly(t *testing.T) {
	svc := NewEmailService("re_key", "noreply@example.com", "http://localhost", "Pawcare", true)
	orderID := "pi_1"

	err := svc.SendRefundReceiptEmail(context.Background(), "vet@example.com", &model.TokenTransaction{ExternalOrderID: &orderID, Amount: 5})
	if err != nil {
		t.Errorf("dev mode send: %v", err)
	}
}

func TestEmailService_ProductionWithoutKey(t *testing.T) {
	svc := NewEmailService("", "noreply@example.com", "http://localhost", "Pawcare", false)

	if err := svc.SendAdminRevokedEmail(context.Background(), "vet@example.com"); err == nil {
		t.Error("expected an error without an API key")
	}
}
