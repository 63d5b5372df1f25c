package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/templui/pawcare/internal/ctxkeys"
	"github.com/templui/pawcare/internal/model"
	"github.com/templui/pawcare/internal/repository"
	"github.com/templui/pawcare/internal/service"
	"github.com/templui/pawcare/internal/service/payment"
	"github.com/templui/pawcare/internal/validation"
)

type PaymentHandler struct {
	ledgerService   *service.LedgerService
	refundService   *service.RefundService
	paymentProvider payment.Provider
}

func NewPaymentHandler(ledgerService *service.LedgerService, refundService *service.RefundService, paymentProvider payment.Provider) *PaymentHandler {
	return &PaymentHandler{
		ledgerService:   ledgerService,
		refundService:   refundService,
		paymentProvider: paymentProvider,
	}
}

// Refund reverses a purchase by processor order id. The body always carries
// success so the dashboard can branch on it.
func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request) {
	session := ctxkeys.Session(r.Context())
	failed := map[string]any{"success": false}

	var body struct {
		OrderID string `json:"orderId"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err, failed)
		return
	}

	txn, err := h.refundService.Refund(r.Context(), body.OrderID)
	if err != nil {
		slog.Warn("refund rejected", "order_id", body.OrderID, "admin_id", session.UserID, "error", err)
		writeError(w, r, err, failed)
		return
	}

	slog.Info("refund issued", "order_id", body.OrderID, "admin_id", session.UserID)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"transaction": txn,
	})
}

// List returns the caller's transactions, all statuses unless ?status is set.
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	session := ctxkeys.Session(r.Context())

	txns, err := h.ledgerService.ByAccount(r.Context(), session.UserID, r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, r, err, nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"payments": txns})
}

// Transactions is the admin ledger view across accounts.
func (h *PaymentHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	var errs []validation.FieldError
	q := repository.TransactionQuery{
		AccountID: r.URL.Query().Get("accountId"),
		Status:    r.URL.Query().Get("status"),
		Page:      queryInt(r, "page", &errs),
		Limit:     queryInt(r, "limit", &errs),
	}
	if len(errs) > 0 {
		writeError(w, r, &service.ValidationError{Fields: errs}, nil)
		return
	}

	page, err := h.ledgerService.List(r.Context(), q)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": page.Items,
		"pagination": pagination{
			Page:  page.Page,
			Limit: page.Limit,
			Pages: page.Pages,
			Total: page.Total,
		},
	})
}

func (h *PaymentHandler) Transaction(w http.ResponseWriter, r *http.Request) {
	txn, err := h.ledgerService.ByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, nil)
		return
	}

	writeJSON(w, http.StatusOK, txn)
}

func (h *PaymentHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	session := ctxkeys.Session(r.Context())

	var body struct {
		Package string `json:"package"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, err, nil)
		return
	}

	pkg := strings.ToLower(strings.TrimSpace(body.Package))
	if pkg != model.TokenPackageSmall && pkg != model.TokenPackageLarge {
		writeError(w, r, &service.ValidationError{Fields: []validation.FieldError{
			{Field: "package", Reason: validation.ReasonUnknownValue},
		}}, nil)
		return
	}

	checkoutURL, err := h.paymentProvider.CreateCheckoutURL(r.Context(), session.UserID, session.Email, pkg)
	if errors.Is(err, payment.ErrUnknownPackage) {
		writeError(w, r, &service.ValidationError{Fields: []validation.FieldError{
			{Field: "package", Reason: validation.ReasonUnknownValue},
		}}, nil)
		return
	}
	if err != nil {
		slog.Error("failed to create checkout", "error", err, "user_id", session.UserID, "package", pkg, "provider", h.paymentProvider.Name())
		writeError(w, r, service.ErrUpstreamUnavailable, nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": checkoutURL})
}

func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		slog.Error("failed to read webhook payload", "error", err)
		http.Error(w, "Failed to read payload", http.StatusBadRequest)
		return
	}
	defer func() {
		closeErr := r.Body.Close()
		if closeErr != nil {
			slog.Error("failed to close request body", "error", closeErr)
		}
	}()

	err = h.paymentProvider.HandleWebhook(r.Context(), payload, r.Header)
	if err != nil {
		slog.Error("failed to handle webhook", "error", err, "provider", h.paymentProvider.Name())
		http.Error(w, "Failed to process webhook", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
