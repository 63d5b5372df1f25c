package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
	"github.com/templui/pawcare/internal/model"
	"github.com/templui/pawcare/internal/repository"
)

type EmailService struct {
	client    *resend.Client
	fromEmail string
	isDev     bool
	appURL    string
	appName   string
}

func NewEmailService(apiKey, fromEmail, appURL, appName string, isDev bool) *EmailService {
	var client *resend.Client
	if apiKey != "" && !isDev {
		client = resend.NewClient(apiKey)
	}

	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		isDev:     isDev,
		appURL:    appURL,
		appName:   appName,
	}
}

func (s *EmailService) SendRefundReceiptEmail(ctx context.Context, email string, txn *model.TokenTransaction) error {
	historyURL := fmt.Sprintf("%s/app/tokens", s.appURL)
	subject, body := refundReceiptEmailTemplate(txn.OrderID(), txn.Amount, formatPrice(txn.PriceAmount, txn.Currency), historyURL, s.appName)
	return s.send(ctx, "refund_receipt", email, subject, body)
}

func (s *EmailService) SendAdminGrantedEmail(ctx context.Context, email string) error {
	adminURL := fmt.Sprintf("%s/admin", s.appURL)
	subject, body := adminGrantedEmailTemplate(adminURL, s.appName)
	return s.send(ctx, "admin_granted", email, subject, body)
}

func (s *EmailService) SendAdminRevokedEmail(ctx context.Context, email string) error {
	subject, body := adminRevokedEmailTemplate(s.appName)
	return s.send(ctx, "admin_revoked", email, subject, body)
}

func (s *EmailService) send(ctx context.Context, kind, to, subject, body string) error {
	if s.isDev {
		slog.Info("email sent (dev mode)", "type", kind, "to", to, "subject", subject)
		return nil
	}

	if s.client == nil {
		return fmt.Errorf("email service not configured (missing RESEND_API_KEY)")
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{to},
		Subject: subject,
		Text:    body,
	}

	_, err := s.client.Emails.SendWithContext(ctx, params)
	if err == nil {
		slog.Info("email sent", "type", kind, "to", to)
	}
	return err
}

// refundReceipts looks up the account owner and mails the receipt.
type refundReceipts struct {
	userRepository repository.UserRepository
	emailService   *EmailService
}

func NewRefundReceipts(userRepository repository.UserRepository, emailService *EmailService) RefundReceipts {
	return &refundReceipts{userRepository: userRepository, emailService: emailService}
}

func (r *refundReceipts) SendRefundReceipt(ctx context.Context, txn *model.TokenTransaction) error {
	user, err := r.userRepository.ByID(ctx, txn.AccountID)
	if err != nil {
		return fmt.Errorf("failed to load account %s: %w", txn.AccountID, err)
	}
	return r.emailService.SendRefundReceiptEmail(ctx, user.Email, txn)
}
