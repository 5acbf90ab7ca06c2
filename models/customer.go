package models

import (
	"time"
)

// Customer is identified by phone. LoyaltyPoints is a cached projection
// of the loyalty transaction sum; only the ledger writes it.
type Customer struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Phone         string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"phone"`
	Name          string    `gorm:"type:varchar(120)" json:"name"`
	Address       string    `gorm:"type:varchar(255)" json:"address"`
	LoyaltyPoints int       `gorm:"not null;default:0" json:"loyalty_points"`
	IsSuspicious  bool      `gorm:"not null;default:false" json:"is_suspicious"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}
