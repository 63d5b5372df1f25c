package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/stripe/stripe-go/v81"
	checkoutsession "github.com/stripe/stripe-go/v81/checkout/session"
	"github.com/stripe/stripe-go/v81/refund"
	"github.com/stripe/stripe-go/v81/webhook"
	"github.com/templui/pawcare/internal/config"
	"github.com/templui/pawcare/internal/model"
	"github.com/templui/pawcare/internal/service"
)

type StripeProvider struct {
	cfg           *config.Config
	ledgerService *service.LedgerService
}

func NewStripeProvider(cfg *config.Config, ledgerService *service.LedgerService) *StripeProvider {
	// Set Stripe API key
	stripe.Key = cfg.StripeSecretKey

	slog.Info("stripe provider initialized", "app_env", cfg.AppEnv)

	return &StripeProvider{
		cfg:           cfg,
		ledgerService: ledgerService,
	}
}

func (s *StripeProvider) Name() string {
	return model.ProviderStripe
}

func (s *StripeProvider) CreateCheckoutURL(ctx context.Context, accountID, customerEmail, pkg string) (string, error) {
	priceID := s.stripePriceID(pkg)
	if priceID == "" {
		return "", fmt.Errorf("no price configured for package %q: %w", pkg, ErrUnknownPackage)
	}

	successURL := fmt.Sprintf("%s/app/tokens?session_id={CHECKOUT_SESSION_ID}", s.cfg.AppURL)
	cancelURL := fmt.Sprintf("%s/app/tokens", s.cfg.AppURL)

	metadata := map[string]string{
		"user_id": accountID,
		"package": pkg,
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		CustomerEmail: stripe.String(customerEmail),
		Metadata:      metadata,
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		},
	}
	params.Context = ctx

	sess, err := checkoutsession.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	slog.Info("stripe checkout created", "user_id", accountID, "package", pkg, "session_id", sess.ID)
	return sess.URL, nil
}

// Refund refunds the payment intent in full. The idempotency key is the
// transaction id, so a retried call cannot refund twice.
func (s *StripeProvider) Refund(ctx context.Context, txn *model.TokenTransaction) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(txn.OrderID()),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.Context = ctx
	params.SetIdempotencyKey("refund-" + txn.ID)
	params.AddMetadata("transaction_id", txn.ID)

	r, err := refund.New(params)
	if err != nil {
		return fmt.Errorf("stripe refund failed: %w", err)
	}

	if r.Status == stripe.RefundStatusFailed || r.Status == stripe.RefundStatusCanceled {
		return fmt.Errorf("stripe refund %s ended as %s", r.ID, r.Status)
	}

	slog.Info("stripe refund created", "order_id", txn.OrderID(), "refund_id", r.ID, "status", r.Status)
	return nil
}

func (s *StripeProvider) HandleWebhook(ctx context.Context, payload []byte, headers http.Header) error {
	signature := headers.Get("Stripe-Signature")

	// Use ConstructEventWithOptions to ignore API version mismatch
	// Stripe's API versions are backwards compatible, so this is safe
	event, err := webhook.ConstructEventWithOptions(
		payload,
		signature,
		s.cfg.StripeWebhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to verify webhook signature: %w", err)
	}

	slog.Info("stripe webhook received", "event_type", event.Type)

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		return s.handleCheckoutSessionCompleted(ctx, event.Data.Raw)
	case "checkout.session.async_payment_failed":
		return s.handleCheckoutSessionFailed(ctx, event.Data.Raw)
	case "charge.refunded":
		return s.handleChargeRefunded(ctx, event.Data.Raw)
	default:
		slog.Warn("stripe webhook unknown event type", "event_type", event.Type)
		return nil
	}
}

type stripeCheckoutSession struct {
	ID            string            `json:"id"`
	PaymentIntent string            `json:"payment_intent"`
	PaymentStatus string            `json:"payment_status"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	Metadata      map[string]string `json:"metadata"`
}

func (s *StripeProvider) handleCheckoutSessionCompleted(ctx context.Context, data json.RawMessage) error {
	var checkoutSession stripeCheckoutSession
	err := json.Unmarshal(data, &checkoutSession)
	if err != nil {
		return fmt.Errorf("failed to parse checkout session: %w", err)
	}

	userID := checkoutSession.Metadata["user_id"]
	if userID == "" {
		slog.Warn("stripe checkout session has no user_id in metadata, skipping", "session_id", checkoutSession.ID)
		return nil
	}

	// Delayed payment methods complete the session before the money arrives
	if checkoutSession.PaymentStatus != "paid" {
		slog.Info("stripe checkout not paid yet", "session_id", checkoutSession.ID, "payment_status", checkoutSession.PaymentStatus)
		return nil
	}

	tokens := packageTokens(s.cfg, checkoutSession.Metadata["package"])
	if tokens == 0 {
		tokens = metadataInt(checkoutSession.Metadata, "tokens")
	}

	_, err = s.ledgerService.RecordPurchase(ctx, service.PurchaseInput{
		AccountID:   userID,
		OrderID:     checkoutSession.PaymentIntent,
		Provider:    model.ProviderStripe,
		Tokens:      tokens,
		PriceAmount: checkoutSession.AmountTotal,
		Currency:    checkoutSession.Currency,
	})
	if err != nil {
		return fmt.Errorf("failed to record purchase: %w", err)
	}

	slog.Info("stripe checkout completed", "user_id", userID, "order_id", checkoutSession.PaymentIntent)
	return nil
}

func (s *StripeProvider) handleCheckoutSessionFailed(ctx context.Context, data json.RawMessage) error {
	var checkoutSession stripeCheckoutSession
	err := json.Unmarshal(data, &checkoutSession)
	if err != nil {
		return fmt.Errorf("failed to parse checkout session: %w", err)
	}

	userID := checkoutSession.Metadata["user_id"]
	if userID == "" {
		return nil
	}

	_, err = s.ledgerService.RecordFailure(ctx, service.PurchaseInput{
		AccountID:   userID,
		OrderID:     checkoutSession.PaymentIntent,
		Provider:    model.ProviderStripe,
		PriceAmount: checkoutSession.AmountTotal,
		Currency:    checkoutSession.Currency,
	})
	return err
}

func (s *StripeProvider) handleChargeRefunded(ctx context.Context, data json.RawMessage) error {
	var charge struct {
		ID            string `json:"id"`
		PaymentIntent string `json:"payment_intent"`
		Refunded      bool   `json:"refunded"`
	}

	err := json.Unmarshal(data, &charge)
	if err != nil {
		return fmt.Errorf("failed to parse charge: %w", err)
	}

	// Partial refunds leave the purchase in place
	if !charge.Refunded || charge.PaymentIntent == "" {
		return nil
	}

	_, err = s.ledgerService.MarkRefunded(ctx, charge.PaymentIntent)
	if errors.Is(err, service.ErrNotFound) {
		slog.Warn("stripe refund for unknown order, skipping", "order_id", charge.PaymentIntent)
		return nil
	}
	return err
}

func (s *StripeProvider) stripePriceID(pkg string) string {
	switch pkg {
	case model.TokenPackageSmall:
		return s.cfg.StripePriceIDTokensSmall
	case model.TokenPackageLarge:
		return s.cfg.StripePriceIDTokensLarge
	default:
		return ""
	}
}

func metadataInt(metadata map[string]string, key string) int {
	n, err := strconv.Atoi(metadata[key])
	if err != nil {
		return 0
	}
	return n
}
