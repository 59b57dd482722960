package auth

import (
	"github.com/google/uuid"

	"github.com/tradewind-labs/tradedesk-backend/internal/memberships"
	"github.com/tradewind-labs/tradedesk-backend/internal/users"
	"github.com/tradewind-labs/tradedesk-backend/pkg/enums"
)

// LoginRequest captures the credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// CompanySummary describes one company the user belongs to, with the role
// they hold there. The client keeps this list to drive company switching.
type CompanySummary struct {
	ID           uuid.UUID        `json:"id"`
	Name         string           `json:"name"`
	BaseCurrency string           `json:"base_currency"`
	Role         enums.MemberRole `json:"role"`
}

// LoginResponse contains the token pair, the user, and their companies.
type LoginResponse struct {
	AccessToken     string           `json:"access_token"`
	RefreshToken    string           `json:"refresh_token"`
	ActiveCompanyID *uuid.UUID       `json:"active_company_id,omitempty"`
	Companies       []CompanySummary `json:"companies"`
	User            *users.UserDTO   `json:"user"`
}

// RefreshRequest carries the refresh token presented for rotation.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshResponse returns the rotated token pair plus a fresh user snapshot
// so the client can reconcile role or membership changes that happened while
// the old access token was live.
type RefreshResponse struct {
	AccessToken     string           `json:"access_token"`
	RefreshToken    string           `json:"refresh_token"`
	ActiveCompanyID *uuid.UUID       `json:"active_company_id,omitempty"`
	Companies       []CompanySummary `json:"companies"`
	User            *users.UserDTO   `json:"user"`
}

// SwitchCompanyRequest selects a different company for the session.
type SwitchCompanyRequest struct {
	CompanyID    uuid.UUID `json:"company_id" validate:"required"`
	RefreshToken string    `json:"refresh_token" validate:"required"`
}

// SwitchCompanyResponse returns the re-minted token pair and the company the
// session now acts under.
type SwitchCompanyResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	Company      CompanySummary `json:"company"`
}

func companySummaries(rows []memberships.MembershipWithCompany) []CompanySummary {
	out := make([]CompanySummary, 0, len(rows))
	for _, m := range rows {
		if m.Status != enums.MembershipStatusActive {
			continue
		}
		out = append(out, CompanySummary{
			ID:           m.CompanyID,
			Name:         m.CompanyName,
			BaseCurrency: m.BaseCurrency,
			Role:         m.Role,
		})
	}
	return out
}
