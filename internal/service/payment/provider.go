package payment

import (
	"context"
	"errors"
	"net/http"

	"github.com/templui/pawcare/internal/config"
	"github.com/templui/pawcare/internal/model"
	"github.com/templui/pawcare/internal/service"
)

var ErrUnknownPackage = errors.New("unknown token package")

// Provider defines the interface that all payment providers must implement
type Provider interface {
	// CreateCheckoutURL creates a checkout session for a token package and returns the URL
	CreateCheckoutURL(ctx context.Context, accountID, customerEmail, pkg string) (string, error)

	// Refund reverses a completed purchase; it must not return before the
	// processor has accepted or rejected the refund
	Refund(ctx context.Context, txn *model.TokenTransaction) error

	// HandleWebhook processes webhook events from the payment provider
	HandleWebhook(ctx context.Context, payload []byte, headers http.Header) error

	// Name returns the provider name (e.g., "polar", "stripe")
	Name() string
}

var _ service.Refunder = Provider(nil)

// packageTokens is the number of tokens credited for a package.
func packageTokens(cfg *config.Config, pkg string) int {
	switch pkg {
	case model.TokenPackageSmall:
		return cfg.TokensSmall
	case model.TokenPackageLarge:
		return cfg.TokensLarge
	default:
		return 0
	}
}
