package models

import "time"

const (
	CashMovementIncome  = "income"
	CashMovementExpense = "expense"

	CashCategorySale = "sale"
)

// CashMovement is one append-only cash-flow row. The unique order_id index
// guarantees a single sale entry per settled order no matter how many times
// settlement is retried.
type CashMovement struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	OrderID       *uint     `gorm:"uniqueIndex" json:"order_id,omitempty"`
	Type          string    `gorm:"type:varchar(20);not null;default:'income'" json:"type"`
	Category      string    `gorm:"type:varchar(20);not null;default:'sale'" json:"category"`
	Amount        float64   `gorm:"type:decimal(10,2);not null" json:"amount"`
	PaymentMethod string    `gorm:"type:varchar(20);not null" json:"payment_method"`
	Description   string    `gorm:"type:varchar(255)" json:"description"`
	MovementDate  time.Time `gorm:"index;not null" json:"movement_date"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
}
