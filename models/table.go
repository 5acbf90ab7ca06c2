package models

import "time"

// Table statuses
const (
	TableFree     = "free"
	TableOccupied = "occupied"
	TableReserved = "reserved"
)

type Table struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Number    string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"number"`
	Status    string    `gorm:"type:varchar(20);not null;default:'free'" json:"status"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
