package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tradewind-labs/tradedesk-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT. Role is
// the caller's role inside the active company; switching companies re-mints
// the token with that company's role.
type AccessTokenPayload struct {
	UserID          uuid.UUID
	ActiveCompanyID *uuid.UUID
	Role            enums.MemberRole
	JTI             string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID          uuid.UUID        `json:"user_id"`
	ActiveCompanyID *uuid.UUID       `json:"active_company_id,omitempty"`
	Role            enums.MemberRole `json:"role"`
	jwt.RegisteredClaims
}
