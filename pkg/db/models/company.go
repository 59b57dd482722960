package models

import (
	"time"

	"github.com/google/uuid"
)

// Company represents the canonical tenant model. Every trade, party, and
// membership hangs off a company.
type Company struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string    `gorm:"column:name;not null"`
	BaseCurrency string    `gorm:"column:base_currency;type:char(3);not null;default:'USD'"`
	IsActive     bool      `gorm:"column:is_active;not null;default:true"`
	OwnerID      uuid.UUID `gorm:"column:owner_id;type:uuid;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
