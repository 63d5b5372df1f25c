package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/templui/pawcare/internal/db"
	"github.com/templui/pawcare/internal/model"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrDuplicateOrder      = errors.New("order already recorded")
	// ErrStatusMismatch means a compare-and-set transition found the row in a different status.
	ErrStatusMismatch = errors.New("transaction status changed concurrently")
)

// TransactionQuery pages the admin ledger view.
type TransactionQuery struct {
	AccountID string
	Status    string
	Page      int
	Limit     int
}

type TransactionRepository interface {
	Create(ctx context.Context, txn *model.TokenTransaction) error
	ByID(ctx context.Context, id string) (*model.TokenTransaction, error)
	ByOrderID(ctx context.Context, orderID string) (*model.TokenTransaction, error)
	ByAccount(ctx context.Context, accountID, status string) ([]*model.TokenTransaction, error)
	List(ctx context.Context, q TransactionQuery) ([]*model.TokenTransaction, int, error)
	CompareAndSetStatus(ctx context.Context, orderID, from, to string, now time.Time) (*model.TokenTransaction, error)
	RevertStaleRefunds(ctx context.Context, before, now time.Time) ([]*model.TokenTransaction, error)
}

type transactionRepository struct {
	db *sqlx.DB
}

func NewTransactionRepository(db *sqlx.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func newID() string {
	return uuid.New().String()
}

func insertTransaction(ctx context.Context, exec sqlx.ExecerContext, txn *model.TokenTransaction) error {
	if txn.ID == "" {
		txn.ID = newID()
	}

	query := `
		INSERT INTO token_transactions (
			id, account_id, amount, source, status, provider,
			external_order_id, coupon_id, price_amount, currency,
			refunded_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := exec.ExecContext(ctx, query,
		txn.ID,
		txn.AccountID,
		txn.Amount,
		txn.Source,
		txn.Status,
		txn.Provider,
		txn.ExternalOrderID,
		txn.CouponID,
		txn.PriceAmount,
		txn.Currency,
		txn.RefundedAt,
		txn.CreatedAt,
		txn.UpdatedAt,
	)
	if db.IsUniqueViolation(err) {
		return ErrDuplicateOrder
	}
	return err
}

func (r *transactionRepository) Create(ctx context.Context, txn *model.TokenTransaction) error {
	return insertTransaction(ctx, r.db, txn)
}

func (r *transactionRepository) ByID(ctx context.Context, id string) (*model.TokenTransaction, error) {
	txn := &model.TokenTransaction{}
	query := `SELECT * FROM token_transactions WHERE id = $1`

	err := r.db.GetContext(ctx, txn, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}

	return txn, nil
}

// ByOrderID returns the live (non-failed) transaction for a processor order.
// Failed attempts do not hold the order id, so at most one row matches.
func (r *transactionRepository) ByOrderID(ctx context.Context, orderID string) (*model.TokenTransaction, error) {
	txn := &model.TokenTransaction{}
	query := `SELECT * FROM token_transactions WHERE external_order_id = $1 AND status <> $2`

	err := r.db.GetContext(ctx, txn, query, orderID, model.TransactionStatusFailed)
	if err == sql.ErrNoRows {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}

	return txn, nil
}

func (r *transactionRepository) ByAccount(ctx context.Context, accountID, status string) ([]*model.TokenTransaction, error) {
	txns := []*model.TokenTransaction{}

	query := `SELECT * FROM token_transactions WHERE account_id = $1`
	args := []any{accountID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id ASC`

	err := r.db.SelectContext(ctx, &txns, query, args...)
	if err != nil {
		return nil, err
	}

	return txns, nil
}

func (r *transactionRepository) List(ctx context.Context, q TransactionQuery) ([]*model.TokenTransaction, int, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.AccountID != "" {
		where = append(where, "account_id = "+arg(q.AccountID))
	}
	if q.Status != "" {
		where = append(where, "status = "+arg(q.Status))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM token_transactions`+whereClause, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	offset := (q.Page - 1) * q.Limit
	query := `SELECT * FROM token_transactions` + whereClause +
		` ORDER BY created_at DESC, id ASC LIMIT ` + arg(q.Limit) + ` OFFSET ` + arg(offset)

	txns := []*model.TokenTransaction{}
	err = r.db.SelectContext(ctx, &txns, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}

	return txns, total, nil
}

// CompareAndSetStatus moves the order's transaction from one status to
// another in a single UPDATE. Only one caller can win a given transition,
// which is what keeps concurrent refunds of the same order exclusive across
// server processes. Returns ErrStatusMismatch when the row is not in from.
func (r *transactionRepository) CompareAndSetStatus(ctx context.Context, orderID, from, to string, now time.Time) (*model.TokenTransaction, error) {
	var refundedAt *time.Time
	if to == model.TransactionStatusRefunded {
		refundedAt = &now
	}

	query := `
		UPDATE token_transactions
		SET status = $1,
		    updated_at = $2,
		    refunded_at = COALESCE($3, refunded_at)
		WHERE external_order_id = $4
		AND status = $5
		RETURNING *
	`

	txn := &model.TokenTransaction{}
	err := r.db.GetContext(ctx, txn, query, to, now, refundedAt, orderID, from)
	if err == sql.ErrNoRows {
		return nil, ErrStatusMismatch
	}
	if err != nil {
		return nil, err
	}

	return txn, nil
}

// RevertStaleRefunds returns REFUNDING rows untouched since before to
// COMPLETED. Such rows only exist when a process died mid-refund.
func (r *transactionRepository) RevertStaleRefunds(ctx context.Context, before, now time.Time) ([]*model.TokenTransaction, error) {
	query := `
		UPDATE token_transactions
		SET status = $1, updated_at = $2
		WHERE status = $3
		AND updated_at < $4
		RETURNING *
	`

	txns := []*model.TokenTransaction{}
	err := r.db.SelectContext(ctx, &txns, query,
		model.TransactionStatusCompleted,
		now,
		model.TransactionStatusRefunding,
		before,
	)
	if err != nil {
		return nil, err
	}

	return txns, nil
}
