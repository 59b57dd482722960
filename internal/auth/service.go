package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradewind-labs/tradedesk-backend/internal/memberships"
	"github.com/tradewind-labs/tradedesk-backend/internal/users"
	pkgAuth "github.com/tradewind-labs/tradedesk-backend/pkg/auth"
	"github.com/tradewind-labs/tradedesk-backend/pkg/auth/session"
	"github.com/tradewind-labs/tradedesk-backend/pkg/config"
	"github.com/tradewind-labs/tradedesk-backend/pkg/db/models"
	"github.com/tradewind-labs/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/tradewind-labs/tradedesk-backend/pkg/errors"
	"github.com/tradewind-labs/tradedesk-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth controller.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Refresh(ctx context.Context, sess SessionClaims, req RefreshRequest) (*RefreshResponse, error)
	Logout(ctx context.Context, accessID string) error
}

// SessionClaims is what the controller extracts from a presented access
// token. Expiry is not checked for refresh and logout; only the signature
// and the jti matter there.
type SessionClaims struct {
	UserID          uuid.UUID
	ActiveCompanyID *uuid.UUID
	AccessID        string
}

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type membershipsRepository interface {
	ListUserCompanies(ctx context.Context, userID uuid.UUID) ([]memberships.MembershipWithCompany, error)
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

type service struct {
	users       userRepository
	memberships membershipsRepository
	session     sessionManager
	jwtCfg      config.JWTConfig
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo        userRepository
	MembershipsRepo membershipsRepository
	SessionManager  sessionManager
	JWTConfig       config.JWTConfig
}

// NewService constructs the login/refresh/logout service.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.MembershipsRepo == nil {
		return nil, fmt.Errorf("memberships repository is required")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	return &service{
		users:       params.UserRepo,
		memberships: params.MembershipsRepo,
		session:     params.SessionManager,
		jwtCfg:      params.JWTConfig,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	rows, err := s.memberships.ListUserCompanies(ctx, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list companies")
	}
	companies := companySummaries(rows)
	if len(companies) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	now, err := s.recordLogin(ctx, user)
	if err != nil {
		return nil, err
	}

	// First company (alphabetical) is the default active one; the client
	// may switch afterwards.
	primary := companies[0]
	activeCompanyID := primary.ID

	accessID := session.NewAccessID()
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID:          user.ID,
		ActiveCompanyID: &activeCompanyID,
		Role:            primary.Role,
		JTI:             accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	refreshToken, err := s.session.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store refresh token")
	}

	return &LoginResponse{
		AccessToken:     accessToken,
		RefreshToken:    refreshToken,
		ActiveCompanyID: &activeCompanyID,
		Companies:       companies,
		User:            users.FromModel(user),
	}, nil
}

// Refresh rotates the session keyed on the presented token. The caller's
// access token may already be expired; only its jti matters here. Role and
// membership are re-read so a refresh never extends permissions the user has
// lost since login.
func (s *service) Refresh(ctx context.Context, sess SessionClaims, req RefreshRequest) (*RefreshResponse, error) {
	if strings.TrimSpace(sess.AccessID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid session")
	}

	user, err := s.users.FindByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid session")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	if !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid session")
	}

	rows, err := s.memberships.ListUserCompanies(ctx, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list companies")
	}
	companies := companySummaries(rows)
	if len(companies) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid session")
	}

	active, role := resolveActiveCompany(companies, sess.ActiveCompanyID)

	newAccessID, newRefreshToken, err := s.session.Rotate(ctx, sess.AccessID, req.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rotate session")
	}

	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, time.Now().UTC(), pkgAuth.AccessTokenPayload{
		UserID:          user.ID,
		ActiveCompanyID: active,
		Role:            role,
		JTI:             newAccessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	return &RefreshResponse{
		AccessToken:     accessToken,
		RefreshToken:    newRefreshToken,
		ActiveCompanyID: active,
		Companies:       companies,
		User:            users.FromModel(user),
	}, nil
}

// Logout revokes the session. Revoking a session that is already gone is a
// success; logout is idempotent.
func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return nil
	}
	if err := s.session.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke session")
	}
	return nil
}

// resolveActiveCompany keeps the previous active company when the user still
// belongs to it, otherwise falls back to the first remaining company.
func resolveActiveCompany(companies []CompanySummary, previous *uuid.UUID) (*uuid.UUID, enums.MemberRole) {
	if previous != nil {
		for _, c := range companies {
			if c.ID == *previous {
				id := c.ID
				return &id, c.Role
			}
		}
	}
	id := companies[0].ID
	return &id, companies[0].Role
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := strings.TrimSpace(email)
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByEmail(ctx, strings.ToLower(input))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

func (s *service) recordLogin(ctx context.Context, user *models.User) (time.Time, error) {
	now := time.Now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now
	return now, nil
}
