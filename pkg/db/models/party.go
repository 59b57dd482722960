package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tradewind-labs/tradedesk-backend/pkg/enums"
)

// Party is a counterparty a company trades with.
type Party struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CompanyID uuid.UUID       `gorm:"column:company_id;type:uuid;not null;index"`
	Name      string          `gorm:"column:name;not null"`
	PartyType enums.PartyType `gorm:"column:party_type;type:party_type;not null"`
	Email     *string         `gorm:"column:email"`
	Phone     *string         `gorm:"column:phone"`
	Country   *string         `gorm:"column:country"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
