package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradewind-labs/tradedesk-backend/internal/memberships"
	pkgAuth "github.com/tradewind-labs/tradedesk-backend/pkg/auth"
	"github.com/tradewind-labs/tradedesk-backend/pkg/auth/session"
	"github.com/tradewind-labs/tradedesk-backend/pkg/config"
	"github.com/tradewind-labs/tradedesk-backend/pkg/db/models"
	"github.com/tradewind-labs/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/tradewind-labs/tradedesk-backend/pkg/errors"
	"github.com/tradewind-labs/tradedesk-backend/pkg/security"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "tradedesk",
		ExpirationMinutes: 30,
	}
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

func testUser(t *testing.T, password string) *models.User {
	t.Helper()
	return &models.User{
		ID:           uuid.New(),
		Email:        "finance@example.com",
		PasswordHash: mustHashPassword(t, password),
		FirstName:    "Dana",
		LastName:     "Finance",
		IsActive:     true,
	}
}

func activeMembership(userID uuid.UUID, name string, role enums.MemberRole) memberships.MembershipWithCompany {
	return memberships.MembershipWithCompany{
		MembershipID: uuid.New(),
		CompanyID:    uuid.New(),
		UserID:       userID,
		CompanyName:  name,
		BaseCurrency: "USD",
		Role:         role,
		Status:       enums.MembershipStatusActive,
	}
}

func buildTestService(user *models.User, companies []memberships.MembershipWithCompany, jwtCfg config.JWTConfig) (Service, *stubSessionManager, error) {
	userRepo := &stubUserRepo{user: user}
	membershipRepo := stubMembershipsRepo{companies: companies}
	sessionMgr := &stubSessionManager{refreshToken: "refresh-token"}
	svc, err := NewService(ServiceParams{
		UserRepo:        userRepo,
		MembershipsRepo: membershipRepo,
		SessionManager:  sessionMgr,
		JWTConfig:       jwtCfg,
	})
	return svc, sessionMgr, err
}

func TestServiceLogin(t *testing.T) {
	password := "finance-secret"
	user := testUser(t, password)
	rows := []memberships.MembershipWithCompany{
		activeMembership(user.ID, "Alpha Imports", enums.MemberRoleFinance),
		activeMembership(user.ID, "Beta Exports", enums.MemberRoleAuditor),
	}
	cfg := testJWTConfig()

	svc, _, err := buildTestService(user, rows, cfg)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    "  Finance@Example.com ",
		Password: password,
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if len(resp.Companies) != 2 {
		t.Fatalf("expected 2 companies, got %d", len(resp.Companies))
	}
	if resp.ActiveCompanyID == nil || *resp.ActiveCompanyID != rows[0].CompanyID {
		t.Fatal("first company should be active by default")
	}
	if resp.RefreshToken == "" {
		t.Fatal("expected refresh token")
	}

	claims, err := pkgAuth.ParseAccessToken(cfg, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Role != enums.MemberRoleFinance {
		t.Fatalf("token role = %s, want finance", claims.Role)
	}
	if claims.ActiveCompanyID == nil || *claims.ActiveCompanyID != rows[0].CompanyID {
		t.Fatal("token should carry the active company")
	}
	if user.LastLoginAt == nil {
		t.Fatal("login should stamp last_login_at")
	}
}

func TestServiceLoginWrongPassword(t *testing.T) {
	user := testUser(t, "right-password")
	rows := []memberships.MembershipWithCompany{activeMembership(user.ID, "Alpha", enums.MemberRoleAdmin)}

	svc, _, err := buildTestService(user, rows, testJWTConfig())
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	_, err = svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "wrong-password"})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestServiceLoginRequiresActiveMembership(t *testing.T) {
	password := "no-role"
	user := testUser(t, password)
	suspended := activeMembership(user.ID, "Alpha", enums.MemberRoleFinance)
	suspended.Status = enums.MembershipStatusSuspended

	svc, _, err := buildTestService(user, []memberships.MembershipWithCompany{suspended}, testJWTConfig())
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	_, err = svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: password})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized without active membership, got %v", err)
	}
}

func TestServiceLoginInactiveUser(t *testing.T) {
	password := "inactive"
	user := testUser(t, password)
	user.IsActive = false
	rows := []memberships.MembershipWithCompany{activeMembership(user.ID, "Alpha", enums.MemberRoleAdmin)}

	svc, _, err := buildTestService(user, rows, testJWTConfig())
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	_, err = svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: password})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for inactive user, got %v", err)
	}
}

func TestServiceRefreshRotatesSession(t *testing.T) {
	user := testUser(t, "irrelevant")
	rows := []memberships.MembershipWithCompany{activeMembership(user.ID, "Alpha", enums.MemberRoleFinance)}
	cfg := testJWTConfig()

	svc, sessionMgr, err := buildTestService(user, rows, cfg)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	companyID := rows[0].CompanyID
	resp, err := svc.Refresh(context.Background(), SessionClaims{
		UserID:          user.ID,
		ActiveCompanyID: &companyID,
		AccessID:        "old-access-id",
	}, RefreshRequest{RefreshToken: "refresh-token"})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if sessionMgr.rotatedFrom != "old-access-id" {
		t.Fatalf("rotate keyed on %q", sessionMgr.rotatedFrom)
	}
	if resp.RefreshToken != "rotated-refresh-token" {
		t.Fatalf("refresh token = %q", resp.RefreshToken)
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.ActiveCompanyID == nil || *claims.ActiveCompanyID != companyID {
		t.Fatal("refresh should keep the active company")
	}
}

func TestServiceRefreshFallsBackWhenMembershipLost(t *testing.T) {
	user := testUser(t, "irrelevant")
	remaining := activeMembership(user.ID, "Beta", enums.MemberRoleAuditor)
	cfg := testJWTConfig()

	svc, _, err := buildTestService(user, []memberships.MembershipWithCompany{remaining}, cfg)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	lostCompanyID := uuid.New()
	resp, err := svc.Refresh(context.Background(), SessionClaims{
		UserID:          user.ID,
		ActiveCompanyID: &lostCompanyID,
		AccessID:        "old-access-id",
	}, RefreshRequest{RefreshToken: "refresh-token"})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(cfg, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.ActiveCompanyID == nil || *claims.ActiveCompanyID != remaining.CompanyID {
		t.Fatal("refresh should fall back to a remaining company")
	}
	if claims.Role != enums.MemberRoleAuditor {
		t.Fatalf("token role = %s, want auditor", claims.Role)
	}
}

func TestServiceRefreshInvalidToken(t *testing.T) {
	user := testUser(t, "irrelevant")
	rows := []memberships.MembershipWithCompany{activeMembership(user.ID, "Alpha", enums.MemberRoleFinance)}

	svc, sessionMgr, err := buildTestService(user, rows, testJWTConfig())
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	sessionMgr.rotateErr = session.ErrInvalidRefreshToken

	_, err = svc.Refresh(context.Background(), SessionClaims{
		UserID:   user.ID,
		AccessID: "old-access-id",
	}, RefreshRequest{RefreshToken: "stale"})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestServiceLogoutIdempotent(t *testing.T) {
	user := testUser(t, "irrelevant")
	svc, sessionMgr, err := buildTestService(user, nil, testJWTConfig())
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	if err := svc.Logout(context.Background(), "access-id"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if err := svc.Logout(context.Background(), "access-id"); err != nil {
		t.Fatalf("second logout: %v", err)
	}
	if sessionMgr.revoked != 2 {
		t.Fatalf("revoke called %d times", sessionMgr.revoked)
	}
	if err := svc.Logout(context.Background(), "  "); err != nil {
		t.Fatalf("blank logout: %v", err)
	}
}

type stubUserRepo struct {
	user *models.User
	err  error
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.user == nil || s.user.Email != email {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s *stubUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	if s.user != nil && s.user.ID == id {
		s.user.LastLoginAt = &at
	}
	return nil
}

type stubMembershipsRepo struct {
	companies []memberships.MembershipWithCompany
	err       error
}

func (s stubMembershipsRepo) ListUserCompanies(ctx context.Context, userID uuid.UUID) ([]memberships.MembershipWithCompany, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.companies, nil
}

type stubSessionManager struct {
	refreshToken string
	rotatedFrom  string
	rotateErr    error
	revoked      int
}

func (s *stubSessionManager) Generate(ctx context.Context, accessID string) (string, error) {
	return s.refreshToken, nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	s.rotatedFrom = oldAccessID
	if s.rotateErr != nil {
		return "", "", s.rotateErr
	}
	return session.NewAccessID(), "rotated-refresh-token", nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	s.revoked++
	return nil
}
