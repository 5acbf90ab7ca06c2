package models

import "time"

// Coupon types
const (
	CouponPercentage = "percentage"
	CouponFixed      = "fixed"
)

type Coupon struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Code          string    `gorm:"type:varchar(40);uniqueIndex;not null" json:"code"`
	Type          string    `gorm:"type:varchar(20);not null" json:"type"`
	DiscountValue float64   `gorm:"type:decimal(10,2);not null" json:"discount_value"`
	MinOrderValue float64   `gorm:"type:decimal(10,2);not null;default:0" json:"min_order_value"`
	MaxUses       int       `gorm:"not null;default:0" json:"max_uses"`
	CurrentUses   int       `gorm:"not null;default:0" json:"current_uses"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}

// Exhausted reports whether the coupon has no redemptions left.
func (cp *Coupon) Exhausted() bool {
	return cp.MaxUses > 0 && cp.CurrentUses >= cp.MaxUses
}
