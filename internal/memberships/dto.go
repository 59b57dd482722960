package memberships

import (
	"time"

	"github.com/google/uuid"

	"github.com/tradewind-labs/tradedesk-backend/pkg/db/models"
	"github.com/tradewind-labs/tradedesk-backend/pkg/enums"
)

// MembershipDTO is the transport shape for a raw membership record.
type MembershipDTO struct {
	ID              uuid.UUID              `json:"id"`
	CompanyID       uuid.UUID              `json:"company_id"`
	UserID          uuid.UUID              `json:"user_id"`
	Role            enums.MemberRole       `json:"role"`
	Status          enums.MembershipStatus `json:"status"`
	InvitedByUserID *uuid.UUID             `json:"invited_by_user_id,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// MembershipWithCompany includes basic company metadata + membership info.
// This is the shape the SDK stores per company on the session user.
type MembershipWithCompany struct {
	MembershipID    uuid.UUID              `json:"membership_id"`
	CompanyID       uuid.UUID              `json:"company_id"`
	UserID          uuid.UUID              `json:"user_id"`
	CompanyName     string                 `json:"company_name"`
	BaseCurrency    string                 `json:"base_currency"`
	Role            enums.MemberRole       `json:"role"`
	Status          enums.MembershipStatus `json:"status"`
	InvitedByUserID *uuid.UUID             `json:"invited_by_user_id,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// CompanyUserDTO mixes membership metadata with the associated user profile for company admins.
type CompanyUserDTO struct {
	MembershipID uuid.UUID              `json:"membership_id"`
	CompanyID    uuid.UUID              `json:"company_id"`
	UserID       uuid.UUID              `json:"user_id"`
	Email        string                 `json:"email"`
	FirstName    string                 `json:"first_name"`
	LastName     string                 `json:"last_name"`
	Role         enums.MemberRole       `json:"role"`
	Status       enums.MembershipStatus `json:"membership_status"`
	CreatedAt    time.Time              `json:"created_at"`
	LastLoginAt  *time.Time             `json:"last_login_at,omitempty"`
}

// ToDTO converts a model to the external DTO.
func ToDTO(m *models.CompanyMembership) *MembershipDTO {
	if m == nil {
		return nil
	}

	return &MembershipDTO{
		ID:              m.ID,
		CompanyID:       m.CompanyID,
		UserID:          m.UserID,
		Role:            m.Role,
		Status:          m.Status,
		InvitedByUserID: copyUUIDPointer(m.InvitedByUserID),
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func copyUUIDPointer(src *uuid.UUID) *uuid.UUID {
	if src == nil {
		return nil
	}
	dst := *src
	return &dst
}
