package models

import "time"

// Table occupancy states. A table is occupied from the moment an open
// ticket references it until its last open ticket closes or voids.
const (
	TableStatusFree     = "free"
	TableStatusOccupied = "occupied"
)

type Table struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TableNumber string    `gorm:"type:varchar(50);not null;uniqueIndex" json:"table_number"`
	Status      string    `gorm:"type:varchar(50);not null;default:'free'" json:"status"`
	Seats       int       `gorm:"not null;default:4" json:"seats"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}
