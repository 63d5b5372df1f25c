package model

import (
	"testing"
	"time"
)

func TestCoupon_StatusAt(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		active   bool
		endsAt   time.Time
		status   string
		validNow bool
	}{
		{"active future", true, now.Add(time.Hour), CouponStatusValid, true},
		{"active expired", true, now.Add(-time.Hour), CouponStatusExpired, false},
		{"ends exactly now", true, now, CouponStatusExpired, false},
		{"inactive future", false, now.Add(time.Hour), "", false},
		{"inactive expired", false, now.Add(-time.Hour), CouponStatusExpired, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Coupon{IsActive: tt.active, EndsAt: tt.endsAt}
			if got := c.StatusAt(now); got != tt.status {
				t.Errorf("StatusAt = %q, want %q", got, tt.status)
			}
			if got := c.IsValidAt(now); got != tt.validNow {
				t.Errorf("IsValidAt = %v, want %v", got, tt.validNow)
			}
		})
	}
}
