package model

import (
	"time"
)

const (
	TransactionStatusPending   = "PENDING"
	TransactionStatusCompleted = "COMPLETED"
	TransactionStatusRefunding = "REFUNDING"
	TransactionStatusRefunded  = "REFUNDED"
	TransactionStatusFailed    = "FAILED"
)

const (
	TransactionSourcePurchase = "purchase"
	TransactionSourceCoupon   = "coupon"
)

const (
	ProviderPolar  = "polar"
	ProviderStripe = "stripe"
)

const (
	TokenPackageSmall = "small"
	TokenPackageLarge = "large"
)

type TokenTransaction struct {
	ID              string     `db:"id" json:"id"`
	AccountID       string     `db:"account_id" json:"accountId"`
	Amount          int        `db:"amount" json:"amount"`
	Source          string     `db:"source" json:"source"`
	Status          string     `db:"status" json:"status"`
	Provider        string     `db:"provider" json:"provider,omitempty"`
	ExternalOrderID *string    `db:"external_order_id" json:"orderId,omitempty"`
	CouponID        *string    `db:"coupon_id" json:"couponId,omitempty"`
	PriceAmount     int64      `db:"price_amount" json:"priceAmount"`
	Currency        string     `db:"currency" json:"currency,omitempty"`
	RefundedAt      *time.Time `db:"refunded_at" json:"refundedAt,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updatedAt"`
}

func (t *TokenTransaction) OrderID() string {
	if t.ExternalOrderID == nil {
		return ""
	}
	return *t.ExternalOrderID
}

func ValidTransactionStatus(status string) bool {
	switch status {
	case TransactionStatusPending, TransactionStatusCompleted, TransactionStatusRefunding,
		TransactionStatusRefunded, TransactionStatusFailed:
		return true
	default:
		return false
	}
}
