package model

import (
	"time"
)

const (
	CouponStatusValid   = "valid"
	CouponStatusExpired = "expired"
)

type Coupon struct {
	ID              string    `db:"id" json:"id"`
	Code            string    `db:"code" json:"code"`
	Tokens          int       `db:"tokens" json:"tokens"`
	EndsAt          time.Time `db:"ends_at" json:"endsAt"`
	IsActive        bool      `db:"is_active" json:"isActive"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"-"`
	RedemptionCount int       `db:"redemption_count" json:"redemptionCount"`

	// Computed at read time (not in database)
	Status string `db:"-" json:"status"`
}

func (c *Coupon) IsExpiredAt(now time.Time) bool {
	return !c.EndsAt.After(now)
}

// IsValidAt reports whether the coupon can be redeemed at now.
// Active flag and expiry are independent; both must allow it.
func (c *Coupon) IsValidAt(now time.Time) bool {
	return c.IsActive && !c.IsExpiredAt(now)
}

// StatusAt returns the derived status label, or "" for an inactive coupon that has not expired yet.
func (c *Coupon) StatusAt(now time.Time) string {
	switch {
	case c.IsExpiredAt(now):
		return CouponStatusExpired
	case c.IsActive:
		return CouponStatusValid
	default:
		return ""
	}
}

type Redemption struct {
	ID        string    `db:"id" json:"id"`
	CouponID  string    `db:"coupon_id" json:"couponId"`
	AccountID string    `db:"account_id" json:"accountId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
