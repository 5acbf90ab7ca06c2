package models

import (
	"time"
)

// Fulfillment kinds
const (
	KindDineIn   = "dine_in"
	KindPickup   = "pickup"
	KindDelivery = "delivery"
)

// Ordering channels
const (
	ChannelPOS     = "pos"
	ChannelKiosk   = "kiosk"
	ChannelCounter = "counter"
	ChannelOnline  = "online"
)

// Payment methods; "pending" means the payer has not chosen yet.
const (
	PayMethodPending    = "pending"
	PayMethodCash       = "cash"
	PayMethodCreditCard = "credit_card"
	PayMethodDebitCard  = "debit_card"
	PayMethodPix        = "pix"
)

type Order struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Number  string `gorm:"type:varchar(40);uniqueIndex;not null" json:"number"`
	Channel string `gorm:"type:varchar(20);not null" json:"channel"`
	Kind    string `gorm:"type:varchar(20);not null" json:"kind"`
	Status  string `gorm:"type:varchar(30);not null;default:'new'" json:"status"`

	PaymentMethod string `gorm:"type:varchar(20);not null;default:'pending'" json:"payment_method"`

	Subtotal        float64 `gorm:"type:decimal(10,2);not null;default:0.00" json:"subtotal"`
	DeliveryFee     float64 `gorm:"type:decimal(10,2);not null;default:0.00" json:"delivery_fee"`
	ServiceFee      float64 `gorm:"type:decimal(10,2);not null;default:0.00" json:"service_fee"`
	CouponDiscount  float64 `gorm:"type:decimal(10,2);not null;default:0.00" json:"coupon_discount"`
	LoyaltyDiscount float64 `gorm:"type:decimal(10,2);not null;default:0.00" json:"loyalty_discount"`
	Total           float64 `gorm:"type:decimal(10,2);not null;default:0.00" json:"total"`

	CustomerID *uint     `gorm:"index" json:"customer_id,omitempty"`
	Customer   *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	TableID    *uint     `gorm:"index" json:"table_id,omitempty"`
	Table      *Table    `gorm:"foreignKey:TableID" json:"table,omitempty"`
	RiderID    *uint     `gorm:"index" json:"rider_id,omitempty"`
	Rider      *Rider    `gorm:"foreignKey:RiderID" json:"rider,omitempty"`
	CouponID   *uint     `gorm:"index" json:"coupon_id,omitempty"`

	DeliveryAddress    string  `gorm:"type:varchar(255)" json:"delivery_address,omitempty"`
	DeliveryDistanceKm float64 `gorm:"type:decimal(6,2);default:0" json:"delivery_distance_km,omitempty"`

	LoyaltyPointsEarned int `gorm:"not null;default:0" json:"loyalty_points_earned"`
	LoyaltyPointsUsed   int `gorm:"not null;default:0" json:"loyalty_points_used"`

	OrderItems []OrderItem `gorm:"foreignKey:OrderID" json:"order_items"`

	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null" json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
