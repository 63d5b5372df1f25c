package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/templui/pawcare/internal/db"
	"github.com/templui/pawcare/internal/model"
)

const (
	CouponSortLatest          = "latest"
	CouponSortOldest          = "oldest"
	CouponSortEndsAtAsc       = "ends_at_asc"
	CouponSortEndsAtDesc      = "ends_at_desc"
	CouponSortCodeAsc         = "code_asc"
	CouponSortRedemptionsDesc = "redemptions_desc"
)

var (
	ErrCouponNotFound      = errors.New("coupon not found")
	ErrDuplicateCouponCode = errors.New("coupon code already exists")
	ErrAlreadyRedeemed     = errors.New("coupon already redeemed by this account")
	ErrCouponNotRedeemable = errors.New("coupon is inactive or expired")
)

// CouponQuery filters and pages the admin coupon listing.
// Status and Active are independent; empty Status / nil Active mean unset.
type CouponQuery struct {
	Search string
	Status string
	Active *bool
	Sort   string
	Page   int
	Limit  int
	Now    time.Time
}

type CouponRepository interface {
	CreateBatch(ctx context.Context, coupons []*model.Coupon) error
	ExistingCodes(ctx context.Context, codes []string) ([]string, error)
	ByID(ctx context.Context, id string) (*model.Coupon, error)
	ByCode(ctx context.Context, code string) (*model.Coupon, error)
	SetActive(ctx context.Context, id string, active bool, now time.Time) (*model.Coupon, error)
	Query(ctx context.Context, q CouponQuery) ([]*model.Coupon, int, error)
	Redeem(ctx context.Context, code, accountID string, now time.Time) (*model.Coupon, *model.TokenTransaction, error)
}

type couponRepository struct {
	db *sqlx.DB
}

func NewCouponRepository(db *sqlx.DB) CouponRepository {
	return &couponRepository{db: db}
}

// couponColumns selects a coupon with its derived redemption count.
const couponColumns = `
	SELECT c.id, c.code, c.tokens, c.ends_at, c.is_active, c.created_at, c.updated_at,
	       COALESCE(r.cnt, 0) AS redemption_count
	FROM coupons c
	LEFT JOIN (
		SELECT coupon_id, COUNT(*) AS cnt FROM coupon_redemptions GROUP BY coupon_id
	) r ON r.coupon_id = c.id
`

// CreateBatch inserts all coupons in one transaction. Either every row is
// persisted or none is; a code collision with a concurrent batch rolls the
// whole set back with ErrDuplicateCouponCode.
func (r *couponRepository) CreateBatch(ctx context.Context, coupons []*model.Coupon) error {
	query := `
		INSERT INTO coupons (id, code, tokens, ends_at, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	return db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, c := range coupons {
			_, err := stmt.ExecContext(ctx,
				c.ID,
				c.Code,
				c.Tokens,
				c.EndsAt,
				c.IsActive,
				c.CreatedAt,
				c.UpdatedAt,
			)
			if db.IsUniqueViolation(err) {
				return ErrDuplicateCouponCode
			}
			if err != nil {
				return fmt.Errorf("failed to insert coupon %s: %w", c.Code, err)
			}
		}
		return nil
	})
}

func (r *couponRepository) ExistingCodes(ctx context.Context, codes []string) ([]string, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT code FROM coupons WHERE code IN (?)`, codes)
	if err != nil {
		return nil, err
	}

	var existing []string
	err = r.db.SelectContext(ctx, &existing, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}

	return existing, nil
}

func (r *couponRepository) ByID(ctx context.Context, id string) (*model.Coupon, error) {
	coupon := &model.Coupon{}
	query := couponColumns + ` WHERE c.id = $1`

	err := r.db.GetContext(ctx, coupon, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrCouponNotFound
	}
	if err != nil {
		return nil, err
	}

	return coupon, nil
}

func (r *couponRepository) ByCode(ctx context.Context, code string) (*model.Coupon, error) {
	coupon := &model.Coupon{}
	query := couponColumns + ` WHERE c.code = $1`

	err := r.db.GetContext(ctx, coupon, query, code)
	if err == sql.ErrNoRows {
		return nil, ErrCouponNotFound
	}
	if err != nil {
		return nil, err
	}

	return coupon, nil
}

// SetActive is idempotent: a coupon already in the requested state is
// returned unchanged. ends_at is never touched.
func (r *couponRepository) SetActive(ctx context.Context, id string, active bool, now time.Time) (*model.Coupon, error) {
	query := `UPDATE coupons SET is_active = $1, updated_at = $2 WHERE id = $3 AND is_active <> $1`

	_, err := r.db.ExecContext(ctx, query, active, now, id)
	if err != nil {
		return nil, err
	}

	return r.ByID(ctx, id)
}

func (r *couponRepository) Query(ctx context.Context, q CouponQuery) ([]*model.Coupon, int, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.Search != "" {
		where = append(where, "c.code LIKE "+arg("%"+q.Search+"%"))
	}

	switch q.Status {
	case model.CouponStatusValid:
		where = append(where, "c.is_active = "+arg(true)+" AND c.ends_at > "+arg(q.Now))
	case model.CouponStatusExpired:
		where = append(where, "c.ends_at <= "+arg(q.Now))
	}

	if q.Active != nil {
		where = append(where, "c.is_active = "+arg(*q.Active))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM coupons c` + whereClause
	err := r.db.GetContext(ctx, &total, countQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count coupons: %w", err)
	}

	// Every ordering ends with the primary key so pages never overlap
	var orderBy string
	switch q.Sort {
	case CouponSortOldest:
		orderBy = " ORDER BY c.created_at ASC, c.id ASC"
	case CouponSortEndsAtAsc:
		orderBy = " ORDER BY c.ends_at ASC, c.id ASC"
	case CouponSortEndsAtDesc:
		orderBy = " ORDER BY c.ends_at DESC, c.id ASC"
	case CouponSortCodeAsc:
		orderBy = " ORDER BY c.code ASC, c.id ASC"
	case CouponSortRedemptionsDesc:
		orderBy = " ORDER BY COALESCE(r.cnt, 0) DESC, c.id ASC"
	default: // CouponSortLatest or empty
		orderBy = " ORDER BY c.created_at DESC, c.id ASC"
	}

	offset := (q.Page - 1) * q.Limit
	query := couponColumns + whereClause + orderBy + " LIMIT " + arg(q.Limit) + " OFFSET " + arg(offset)

	coupons := []*model.Coupon{}
	err = r.db.SelectContext(ctx, &coupons, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query coupons: %w", err)
	}

	return coupons, total, nil
}

// Redeem records a redemption and credits the coupon's tokens to the account
// in one transaction. The (coupon, account) unique index rejects a second
// redemption even when two requests race.
func (r *couponRepository) Redeem(ctx context.Context, code, accountID string, now time.Time) (*model.Coupon, *model.TokenTransaction, error) {
	var (
		coupon model.Coupon
		txn    *model.TokenTransaction
	)

	err := db.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &coupon, `SELECT * FROM coupons WHERE code = $1`, code)
		if err == sql.ErrNoRows {
			return ErrCouponNotFound
		}
		if err != nil {
			return err
		}

		if !coupon.IsValidAt(now) {
			return ErrCouponNotRedeemable
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO coupon_redemptions (id, coupon_id, account_id, created_at) VALUES ($1, $2, $3, $4)`,
			newID(), coupon.ID, accountID, now,
		)
		if db.IsUniqueViolation(err) {
			return ErrAlreadyRedeemed
		}
		if err != nil {
			return fmt.Errorf("failed to record redemption: %w", err)
		}

		couponID := coupon.ID
		txn = &model.TokenTransaction{
			ID:        newID(),
			AccountID: accountID,
			Amount:    coupon.Tokens,
			Source:    model.TransactionSourceCoupon,
			Status:    model.TransactionStatusCompleted,
			CouponID:  &couponID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return insertTransaction(ctx, tx, txn)
	})
	if err != nil {
		return nil, nil, err
	}

	redeemed, err := r.ByID(ctx, coupon.ID)
	if err != nil {
		return nil, nil, err
	}

	return redeemed, txn, nil
}
