package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradewind-labs/tradedesk-backend/internal/memberships"
	pkgAuth "github.com/tradewind-labs/tradedesk-backend/pkg/auth"
	"github.com/tradewind-labs/tradedesk-backend/pkg/auth/session"
	"github.com/tradewind-labs/tradedesk-backend/pkg/config"
	"github.com/tradewind-labs/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/tradewind-labs/tradedesk-backend/pkg/errors"
)

// SwitchCompanyInput captures the data required to switch companies.
type SwitchCompanyInput struct {
	UserID        uuid.UUID
	CompanyID     uuid.UUID
	AccessTokenID string
	RefreshToken  string
}

type switchCompanyService struct {
	memberships switchMembershipsRepository
	session     switchSessionRotator
	jwtCfg      config.JWTConfig
}

type switchMembershipsRepository interface {
	GetMembershipWithCompany(ctx context.Context, userID, companyID uuid.UUID) (*memberships.MembershipWithCompany, error)
}

type switchSessionRotator interface {
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
}

// SwitchCompanyServiceParams bundles dependencies for the switch flow.
type SwitchCompanyServiceParams struct {
	MembershipsRepo switchMembershipsRepository
	SessionManager  switchSessionRotator
	JWTConfig       config.JWTConfig
}

// NewSwitchCompanyService constructs the service.
func NewSwitchCompanyService(params SwitchCompanyServiceParams) (SwitchCompanyService, error) {
	if params.MembershipsRepo == nil {
		return nil, errors.New("memberships repository required")
	}
	if params.SessionManager == nil {
		return nil, errors.New("session manager required")
	}
	return &switchCompanyService{
		memberships: params.MembershipsRepo,
		session:     params.SessionManager,
		jwtCfg:      params.JWTConfig,
	}, nil
}

// SwitchCompanyService is the interface exposed to the controller.
type SwitchCompanyService interface {
	Switch(ctx context.Context, input SwitchCompanyInput) (*SwitchCompanyResponse, error)
}

// Switch re-mints the session against a different company. The membership
// is re-read at switch time, so the new token always carries the caller's
// current role at that company, not the role cached at login.
func (s *switchCompanyService) Switch(ctx context.Context, input SwitchCompanyInput) (*SwitchCompanyResponse, error) {
	membership, err := s.memberships.GetMembershipWithCompany(ctx, input.UserID, input.CompanyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "company membership required")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup membership")
	}
	if membership.Status != enums.MembershipStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "company membership inactive")
	}

	newAccessID, newRefreshToken, err := s.session.Rotate(ctx, input.AccessTokenID, input.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rotate session")
	}

	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, time.Now().UTC(), pkgAuth.AccessTokenPayload{
		UserID:          input.UserID,
		ActiveCompanyID: &input.CompanyID,
		Role:            membership.Role,
		JTI:             newAccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	return &SwitchCompanyResponse{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		Company: CompanySummary{
			ID:           membership.CompanyID,
			Name:         membership.CompanyName,
			BaseCurrency: membership.BaseCurrency,
			Role:         membership.Role,
		},
	}, nil
}
