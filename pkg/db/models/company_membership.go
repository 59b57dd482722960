package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tradewind-labs/tradedesk-backend/pkg/enums"
)

// CompanyMembership links a user with a company and captures their role and
// status inside that company. Roles are scoped per membership, never global.
type CompanyMembership struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CompanyID       uuid.UUID              `gorm:"column:company_id;type:uuid;not null;uniqueIndex:idx_company_user"`
	UserID          uuid.UUID              `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_company_user"`
	Role            enums.MemberRole       `gorm:"column:role;type:member_role;not null"`
	Status          enums.MembershipStatus `gorm:"column:status;type:membership_status;not null"`
	InvitedByUserID *uuid.UUID             `gorm:"column:invited_by_user_id;type:uuid"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
