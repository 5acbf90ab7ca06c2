package models

import "time"

// Loyalty transaction types
const (
	LoyaltyEarn           = "earn"
	LoyaltyRedeem         = "redeem"
	LoyaltyRedeemReversal = "redeem_reversal"
	LoyaltyAdjust         = "adjust"
)

// LoyaltyTransaction is an immutable ledger row. Positive points earn,
// negative points redeem. The unique (order_id, type) index is what makes
// retried settlements safe: a duplicate earn insert is a silent conflict,
// not a double credit.
type LoyaltyTransaction struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CustomerID  uint      `gorm:"not null;index" json:"customer_id"`
	Customer    Customer  `gorm:"foreignKey:CustomerID" json:"-"`
	OrderID     *uint     `gorm:"index:idx_loyalty_order_type,unique" json:"order_id,omitempty"`
	Type        string    `gorm:"type:varchar(20);not null;index:idx_loyalty_order_type,unique" json:"type"`
	Points      int       `gorm:"not null" json:"points"`
	Description string    `gorm:"type:varchar(255)" json:"description"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}
