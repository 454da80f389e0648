package entity

import (
	"time"

	"gorm.io/gorm"
)

// Airline is a reference-table row used to resolve the free-text carrier
// names parsed out of deal emails into canonical codes.
type Airline struct {
	ID        uint
	Code      string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt
}
