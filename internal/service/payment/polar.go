package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	polargo "github.com/polarsource/polar-go"
	"github.com/polarsource/polar-go/models/components"
	standardwebhooks "github.com/standard-webhooks/standard-webhooks/libraries/go"
	"github.com/templui/pawcare/internal/config"
	"github.com/templui/pawcare/internal/model"
	"github.com/templui/pawcare/internal/service"
)

type PolarProvider struct {
	cfg           *config.Config
	ledgerService *service.LedgerService
	client        *polargo.Polar
}

func NewPolarProvider(cfg *config.Config, ledgerService *service.LedgerService) *PolarProvider {
	var serverOption polargo.SDKOption
	if cfg.PolarSandboxMode {
		serverOption = polargo.WithServer(polargo.ServerSandbox)
		slog.Info("polar using sandbox mode", "app_env", cfg.AppEnv)
	} else {
		serverOption = polargo.WithServer(polargo.ServerProduction)
		slog.Info("polar using production mode", "app_env", cfg.AppEnv)
	}

	client := polargo.New(
		polargo.WithSecurity(cfg.PolarAPIKey),
		serverOption,
	)

	return &PolarProvider{
		cfg:           cfg,
		ledgerService: ledgerService,
		client:        client,
	}
}

func (p *PolarProvider) Name() string {
	return model.ProviderPolar
}

func (p *PolarProvider) CreateCheckoutURL(ctx context.Context, accountID, customerEmail, pkg string) (string, error) {
	productID := p.polarProductID(pkg)
	if productID == "" {
		return "", fmt.Errorf("no product configured for package %q: %w", pkg, ErrUnknownPackage)
	}

	successURL := fmt.Sprintf("%s/app/tokens", p.cfg.AppURL)

	metadata := map[string]components.CheckoutCreateMetadata{
		"user_id": components.CreateCheckoutCreateMetadataStr(accountID),
		"package": components.CreateCheckoutCreateMetadataStr(pkg),
	}

	res, err := p.client.Checkouts.Create(ctx, components.CheckoutCreate{
		Products:      []string{productID},
		SuccessURL:    polargo.String(successURL),
		ReturnURL:     polargo.String(successURL),
		CustomerEmail: polargo.String(customerEmail),
		Metadata:      metadata,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create checkout: %w", err)
	}

	if res == nil || res.Checkout == nil {
		return "", fmt.Errorf("checkout response is nil")
	}

	slog.Info("polar checkout created", "user_id", accountID, "package", pkg, "checkout_id", res.Checkout.ID)
	return res.Checkout.URL, nil
}

// Refund refunds the order in full.
func (p *PolarProvider) Refund(ctx context.Context, txn *model.TokenTransaction) error {
	res, err := p.client.Refunds.Create(ctx, components.RefundCreate{
		OrderID: txn.OrderID(),
		Reason:  components.RefundReasonCustomerRequest,
		Amount:  txn.PriceAmount,
	})
	if err != nil {
		return fmt.Errorf("polar refund failed: %w", err)
	}

	if res == nil || res.Refund == nil {
		return fmt.Errorf("refund response is nil")
	}

	slog.Info("polar refund created", "order_id", txn.OrderID(), "refund_id", res.Refund.ID)
	return nil
}

func (p *PolarProvider) HandleWebhook(ctx context.Context, payload []byte, headers http.Header) error {
	if p.cfg.PolarWebhookSecret == "" {
		slog.Warn("polar no webhook secret configured, skipping signature verification")
	} else {
		wh, err := standardwebhooks.NewWebhookRaw([]byte(p.cfg.PolarWebhookSecret))
		if err != nil {
			return fmt.Errorf("failed to create webhook verifier: %w", err)
		}

		httpHeaders := http.Header{}
		httpHeaders.Set("webhook-id", headers.Get("webhook-id"))
		httpHeaders.Set("webhook-timestamp", headers.Get("webhook-timestamp"))
		httpHeaders.Set("webhook-signature", headers.Get("webhook-signature"))

		err = wh.Verify(payload, httpHeaders)
		if err != nil {
			return fmt.Errorf("invalid webhook signature: %w", err)
		}
	}

	var event struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}

	err := json.Unmarshal(payload, &event)
	if err != nil {
		return fmt.Errorf("failed to parse webhook: %w", err)
	}

	slog.Info("polar webhook received", "event_type", event.Type)

	switch event.Type {
	case "order.paid":
		return p.handleOrderPaid(ctx, event.Data)
	case "order.refunded":
		return p.handleOrderRefunded(ctx, event.Data)
	default:
		slog.Warn("polar webhook unknown event type", "event_type", event.Type)
		return nil
	}
}

func (p *PolarProvider) handleOrderPaid(ctx context.Context, data json.RawMessage) error {
	var order struct {
		ID          string            `json:"id"`
		TotalAmount int64             `json:"total_amount"`
		Currency    string            `json:"currency"`
		Metadata    map[string]string `json:"metadata"`
	}

	err := json.Unmarshal(data, &order)
	if err != nil {
		return fmt.Errorf("failed to parse order data: %w", err)
	}

	userID := order.Metadata["user_id"]
	if userID == "" {
		slog.Warn("polar webhook no user_id in order metadata, skipping", "order_id", order.ID)
		return nil
	}

	_, err = p.ledgerService.RecordPurchase(ctx, service.PurchaseInput{
		AccountID:   userID,
		OrderID:     order.ID,
		Provider:    model.ProviderPolar,
		Tokens:      packageTokens(p.cfg, order.Metadata["package"]),
		PriceAmount: order.TotalAmount,
		Currency:    order.Currency,
	})
	if err != nil {
		return fmt.Errorf("failed to record purchase: %w", err)
	}

	slog.Info("polar order paid", "user_id", userID, "order_id", order.ID)
	return nil
}

func (p *PolarProvider) handleOrderRefunded(ctx context.Context, data json.RawMessage) error {
	var order struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}

	err := json.Unmarshal(data, &order)
	if err != nil {
		return fmt.Errorf("failed to parse order data: %w", err)
	}

	// Partial refunds leave the purchase in place
	if order.Status != "refunded" {
		return nil
	}

	_, err = p.ledgerService.MarkRefunded(ctx, order.ID)
	if errors.Is(err, service.ErrNotFound) {
		slog.Warn("polar refund for unknown order, skipping", "order_id", order.ID)
		return nil
	}
	return err
}

func (p *PolarProvider) polarProductID(pkg string) string {
	switch pkg {
	case model.TokenPackageSmall:
		return p.cfg.PolarProductIDTokensSmall
	case model.TokenPackageLarge:
		return p.cfg.PolarProductIDTokensLarge
	default:
		return ""
	}
}
