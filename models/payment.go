package models

import (
	"time"
)

// Payment represents one settlement attempt for an order. Asynchronous
// charges carry the provider reference plus the renderable QR artifacts.
type Payment struct {
	ID            uint    `json:"id" gorm:"primaryKey"`
	OrderID       uint    `json:"order_id" gorm:"not null;index"`
	Order         Order   `json:"order" gorm:"foreignKey:OrderID"`
	Amount        float64 `json:"amount" gorm:"type:decimal(10,2);not null"`
	Status        string  `json:"status" gorm:"type:varchar(30);not null;default:'pending'"`
	PaymentMethod string  `json:"payment_method" gorm:"type:varchar(20);not null"`
	ChargeRef     string  `json:"charge_ref" gorm:"type:varchar(64);index"`
	QRImage       string  `json:"qr_image" gorm:"type:text"`       // image URL or data URL for PIX
	CopyPasteCode string  `json:"copy_paste_code" gorm:"type:text"` // textual payment string
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
