package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/templui/pawcare/internal/config"
	"github.com/templui/pawcare/internal/model"
	"github.com/templui/pawcare/internal/repository"
	"github.com/templui/pawcare/internal/validation"
)

const (
	defaultRefundTimeout = 15 * time.Second
	revertTimeout        = 10 * time.Second
	finalizeMaxElapsed   = config.RefundFinalizeWindow
)

// Refunder reverses a completed purchase at the payment processor.
type Refunder interface {
	Refund(ctx context.Context, txn *model.TokenTransaction) error
}

// RefundReceipts is told about refunds that reached REFUNDED.
type RefundReceipts interface {
	SendRefundReceipt(ctx context.Context, txn *model.TokenTransaction) error
}

// RefundService moves purchases through COMPLETED -> REFUNDING -> REFUNDED.
// Exclusion is a status compare-and-set on the stored row, so it holds across
// server processes.
type RefundService struct {
	transactionRepository repository.TransactionRepository
	refunder              Refunder
	receipts              RefundReceipts
	timeout               time.Duration
	newBackOff            func() backoff.BackOff
	now                   func() time.Time
}

func NewRefundService(
	transactionRepository repository.TransactionRepository,
	refunder Refunder,
	receipts RefundReceipts,
	timeout time.Duration,
) *RefundService {
	if timeout <= 0 {
		timeout = defaultRefundTimeout
	}

	return &RefundService{
		transactionRepository: transactionRepository,
		refunder:              refunder,
		receipts:              receipts,
		timeout:               timeout,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 100 * time.Millisecond
			b.MaxElapsedTime = finalizeMaxElapsed
			return b
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Refund reverses the purchase identified by orderID. The processor is
// called at most once per successful COMPLETED -> REFUNDING transition.
func (s *RefundService) Refund(ctx context.Context, orderID string) (*model.TokenTransaction, error) {
	orderID = strings.TrimSpace(orderID)
	if fieldErrs := validation.ValidateOrderID(orderID); len(fieldErrs) > 0 {
		return nil, invalid(fieldErrs...)
	}

	txn, err := s.transactionRepository.CompareAndSetStatus(ctx, orderID,
		model.TransactionStatusCompleted, model.TransactionStatusRefunding, s.now())
	if errors.Is(err, repository.ErrStatusMismatch) {
		return nil, s.rejection(ctx, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to start refund: %w", err)
	}

	slog.Info("refund started", "order_id", orderID, "transaction_id", txn.ID, "account_id", txn.AccountID)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	err = s.refunder.Refund(callCtx, txn)
	cancel()

	if err != nil {
		slog.Warn("processor refund failed, reverting", "order_id", orderID, "error", err)
		s.revert(ctx, orderID)
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	refunded, err := s.finalize(ctx, orderID)
	if err != nil {
		slog.Error("processor refunded but ledger was not updated", "order_id", orderID, "error", err)
		return nil, fmt.Errorf("failed to finalize refund for %s: %w", orderID, err)
	}

	slog.Info("refund completed", "order_id", orderID, "transaction_id", refunded.ID)

	if s.receipts != nil {
		err = s.receipts.SendRefundReceipt(context.WithoutCancel(ctx), refunded)
		if err != nil {
			slog.Warn("failed to send refund receipt", "order_id", orderID, "error", err)
		}
	}

	return refunded, nil
}

// RecoverStale reverts REFUNDING rows older than olderThan. They are left
// behind only when a process exits between the two transitions.
func (s *RefundService) RecoverStale(ctx context.Context, olderThan time.Duration) ([]*model.TokenTransaction, error) {
	now := s.now()

	txns, err := s.transactionRepository.RevertStaleRefunds(ctx, now.Add(-olderThan), now)
	if err != nil {
		return nil, fmt.Errorf("failed to recover stale refunds: %w", err)
	}

	for _, txn := range txns {
		slog.Warn("stale refund reverted", "order_id", txn.OrderID(), "transaction_id", txn.ID)
	}

	return txns, nil
}

// rejection explains why the COMPLETED -> REFUNDING transition did not apply.
func (s *RefundService) rejection(ctx context.Context, orderID string) error {
	txn, err := s.transactionRepository.ByOrderID(ctx, orderID)
	if errors.Is(err, repository.ErrTransactionNotFound) {
		return fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to load order %s: %w", orderID, err)
	}

	switch txn.Status {
	case model.TransactionStatusRefunded:
		return ErrAlreadyRefunded
	case model.TransactionStatusRefunding:
		return fmt.Errorf("refund for %s already in progress: %w", orderID, ErrConflict)
	case model.TransactionStatusCompleted:
		// A concurrent refund reverted between our update and this read
		return fmt.Errorf("order %s changed concurrently: %w", orderID, ErrConflict)
	default:
		return fmt.Errorf("order %s is %s: %w", orderID, txn.Status, ErrNotFound)
	}
}

// revert runs even when the caller has gone away.
func (s *RefundService) revert(ctx context.Context, orderID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), revertTimeout)
	defer cancel()

	_, err := s.transactionRepository.CompareAndSetStatus(ctx, orderID,
		model.TransactionStatusRefunding, model.TransactionStatusCompleted, s.now())
	if err != nil {
		slog.Error("failed to revert refund", "order_id", orderID, "error", err)
	}
}

// finalize retries REFUNDING -> REFUNDED until it sticks. A webhook may
// already have applied it, which counts as success.
func (s *RefundService) finalize(ctx context.Context, orderID string) (*model.TokenTransaction, error) {
	ctx = context.WithoutCancel(ctx)

	var refunded *model.TokenTransaction
	operation := func() error {
		txn, err := s.transactionRepository.CompareAndSetStatus(ctx, orderID,
			model.TransactionStatusRefunding, model.TransactionStatusRefunded, s.now())
		if err == nil {
			refunded = txn
			return nil
		}
		if !errors.Is(err, repository.ErrStatusMismatch) {
			return err
		}

		current, err := s.transactionRepository.ByOrderID(ctx, orderID)
		if err != nil {
			return err
		}
		if current.Status == model.TransactionStatusRefunded {
			refunded = current
			return nil
		}
		return backoff.Permanent(fmt.Errorf("order %s moved to %s during refund: %w", orderID, current.Status, ErrConflict))
	}

	err := backoff.Retry(operation, backoff.WithContext(s.newBackOff(), ctx))
	if err != nil {
		return nil, err
	}
	return refunded, nil
}
