package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/templui/pawcare/internal/model"
	"github.com/templui/pawcare/internal/repository"
	"github.com/templui/pawcare/internal/validation"
)

// PurchaseInput is a completed purchase reported by the payment processor.
type PurchaseInput struct {
	AccountID   string
	OrderID     string
	Provider    string
	Tokens      int
	PriceAmount int64
	Currency    string
}

// TransactionPage is one page of the admin ledger view.
type TransactionPage struct {
	Items []*model.TokenTransaction
	Page  int
	Limit int
	Pages int
	Total int
}

// LedgerService is the append-only token ledger.
type LedgerService struct {
	transactionRepository repository.TransactionRepository
	now                   func() time.Time
}

func NewLedgerService(transactionRepository repository.TransactionRepository) *LedgerService {
	return &LedgerService{
		transactionRepository: transactionRepository,
		now:                   func() time.Time { return time.Now().UTC() },
	}
}

// RecordPurchase appends a COMPLETED purchase. Webhooks are delivered at
// least once, so a repeated order id returns the stored transaction.
func (s *LedgerService) RecordPurchase(ctx context.Context, in PurchaseInput) (*model.TokenTransaction, error) {
	var fieldErrs []validation.FieldError
	if in.AccountID == "" {
		fieldErrs = append(fieldErrs, validation.FieldError{Field: "accountId", Reason: validation.ReasonRequired})
	}
	fieldErrs = append(fieldErrs, validation.ValidateOrderID(in.OrderID)...)
	if in.Tokens <= 0 {
		fieldErrs = append(fieldErrs, validation.FieldError{Field: "amount", Reason: validation.ReasonMustBePositive})
	}
	if len(fieldErrs) > 0 {
		return nil, invalid(fieldErrs...)
	}

	now := s.now()
	orderID := strings.TrimSpace(in.OrderID)
	txn := &model.TokenTransaction{
		AccountID:       in.AccountID,
		Amount:          in.Tokens,
		Source:          model.TransactionSourcePurchase,
		Status:          model.TransactionStatusCompleted,
		Provider:        in.Provider,
		ExternalOrderID: &orderID,
		PriceAmount:     in.PriceAmount,
		Currency:        strings.ToLower(in.Currency),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err := s.transactionRepository.Create(ctx, txn)
	if errors.Is(err, repository.ErrDuplicateOrder) {
		existing, err := s.transactionRepository.ByOrderID(ctx, orderID)
		if err != nil {
			return nil, fmt.Errorf("failed to load recorded order: %w", err)
		}
		slog.Info("purchase already recorded", "order_id", orderID, "transaction_id", existing.ID)
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record purchase: %w", err)
	}

	slog.Info("purchase recorded", "order_id", orderID, "account_id", in.AccountID, "tokens", in.Tokens)
	return txn, nil
}

// RecordFailure stores a failed payment attempt. Failed rows never hold the
// order id against later attempts.
func (s *LedgerService) RecordFailure(ctx context.Context, in PurchaseInput) (*model.TokenTransaction, error) {
	if in.AccountID == "" {
		return nil, invalid(validation.FieldError{Field: "accountId", Reason: validation.ReasonRequired})
	}

	now := s.now()
	txn := &model.TokenTransaction{
		AccountID:   in.AccountID,
		Amount:      0,
		Source:      model.TransactionSourcePurchase,
		Status:      model.TransactionStatusFailed,
		Provider:    in.Provider,
		PriceAmount: in.PriceAmount,
		Currency:    strings.ToLower(in.Currency),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.OrderID != "" {
		orderID := in.OrderID
		txn.ExternalOrderID = &orderID
	}

	err := s.transactionRepository.Create(ctx, txn)
	if err != nil {
		return nil, fmt.Errorf("failed to record failed payment: %w", err)
	}

	slog.Warn("payment failed", "order_id", in.OrderID, "account_id", in.AccountID)
	return txn, nil
}

// ByAccount lists an account's transactions newest first. An empty status
// returns every status.
func (s *LedgerService) ByAccount(ctx context.Context, accountID, status string) ([]*model.TokenTransaction, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	if status != "" && !model.ValidTransactionStatus(status) {
		return nil, invalid(validation.FieldError{Field: "status", Reason: validation.ReasonUnknownValue})
	}

	return s.transactionRepository.ByAccount(ctx, accountID, status)
}

func (s *LedgerService) ByID(ctx context.Context, id string) (*model.TokenTransaction, error) {
	txn, err := s.transactionRepository.ByID(ctx, id)
	if errors.Is(err, repository.ErrTransactionNotFound) {
		return nil, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *LedgerService) List(ctx context.Context, q repository.TransactionQuery) (*TransactionPage, error) {
	var fieldErrs []validation.FieldError

	q.Status = strings.ToUpper(strings.TrimSpace(q.Status))
	if q.Status != "" && !model.ValidTransactionStatus(q.Status) {
		fieldErrs = append(fieldErrs, validation.FieldError{Field: "status", Reason: validation.ReasonUnknownValue})
	}

	page, limit, pageErrs := validation.ValidatePage(q.Page, q.Limit)
	fieldErrs = append(fieldErrs, pageErrs...)
	if len(fieldErrs) > 0 {
		return nil, invalid(fieldErrs...)
	}
	q.Page, q.Limit = page, limit

	items, total, err := s.transactionRepository.List(ctx, q)
	if err != nil {
		return nil, err
	}

	return &TransactionPage{
		Items: items,
		Page:  page,
		Limit: limit,
		Pages: pageCount(total, limit),
		Total: total,
	}, nil
}

// MarkRefunded applies a refund the processor reports on its own, for
// example one issued from the processor dashboard. It also finalizes a
// refund this service started if the webhook wins the race.
func (s *LedgerService) MarkRefunded(ctx context.Context, orderID string) (*model.TokenTransaction, error) {
	now := s.now()

	for _, from := range []string{model.TransactionStatusCompleted, model.TransactionStatusRefunding} {
		txn, err := s.transactionRepository.CompareAndSetStatus(ctx, orderID, from, model.TransactionStatusRefunded, now)
		if err == nil {
			slog.Info("transaction marked refunded by processor", "order_id", orderID, "from", from)
			return txn, nil
		}
		if !errors.Is(err, repository.ErrStatusMismatch) {
			return nil, fmt.Errorf("failed to mark refunded: %w", err)
		}
	}

	txn, err := s.transactionRepository.ByOrderID(ctx, orderID)
	if errors.Is(err, repository.ErrTransactionNotFound) {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if txn.Status == model.TransactionStatusRefunded {
		return txn, nil
	}

	return nil, fmt.Errorf("order %s is %s: %w", orderID, txn.Status, ErrConflict)
}
