package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradewind-labs/tradedesk-backend/internal/memberships"
	pkgAuth "github.com/tradewind-labs/tradedesk-backend/pkg/auth"
	"github.com/tradewind-labs/tradedesk-backend/pkg/auth/session"
	"github.com/tradewind-labs/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/tradewind-labs/tradedesk-backend/pkg/errors"
)

type stubSwitchMembershipsRepo struct {
	membership *memberships.MembershipWithCompany
	err        error
}

func (s stubSwitchMembershipsRepo) GetMembershipWithCompany(ctx context.Context, userID, companyID uuid.UUID) (*memberships.MembershipWithCompany, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.membership, nil
}

type stubSwitchRotator struct {
	rotatedFrom string
	provided    string
	err         error
}

func (s *stubSwitchRotator) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	s.rotatedFrom = oldAccessID
	s.provided = provided
	if s.err != nil {
		return "", "", s.err
	}
	return session.NewAccessID(), "rotated-refresh-token", nil
}

func TestSwitchCompanyReMintsWithFreshRole(t *testing.T) {
	userID := uuid.New()
	companyID := uuid.New()
	membership := &memberships.MembershipWithCompany{
		MembershipID: uuid.New(),
		CompanyID:    companyID,
		UserID:       userID,
		CompanyName:  "Beta Exports",
		BaseCurrency: "EUR",
		Role:         enums.MemberRoleAuditor,
		Status:       enums.MembershipStatusActive,
	}
	rotator := &stubSwitchRotator{}
	cfg := testJWTConfig()

	svc, err := NewSwitchCompanyService(SwitchCompanyServiceParams{
		MembershipsRepo: stubSwitchMembershipsRepo{membership: membership},
		SessionManager:  rotator,
		JWTConfig:       cfg,
	})
	if err != nil {
		t.Fatalf("new switch service: %v", err)
	}

	result, err := svc.Switch(context.Background(), SwitchCompanyInput{
		UserID:        userID,
		CompanyID:     companyID,
		AccessTokenID: "old-access-id",
		RefreshToken:  "current-refresh",
	})
	if err != nil {
		t.Fatalf("switch: %v", err)
	}

	if rotator.rotatedFrom != "old-access-id" || rotator.provided != "current-refresh" {
		t.Fatal("session not rotated with the presented token")
	}
	if result.RefreshToken != "rotated-refresh-token" {
		t.Fatalf("refresh token = %q", result.RefreshToken)
	}
	if result.Company.ID != companyID || result.Company.Role != enums.MemberRoleAuditor {
		t.Fatalf("company summary = %+v", result.Company)
	}

	claims, err := pkgAuth.ParseAccessToken(cfg, result.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Role != enums.MemberRoleAuditor {
		t.Fatalf("token role = %s, want the role at the target company", claims.Role)
	}
	if claims.ActiveCompanyID == nil || *claims.ActiveCompanyID != companyID {
		t.Fatal("token should carry the new company")
	}
}

func TestSwitchCompanyWithoutMembership(t *testing.T) {
	svc, err := NewSwitchCompanyService(SwitchCompanyServiceParams{
		MembershipsRepo: stubSwitchMembershipsRepo{err: gorm.ErrRecordNotFound},
		SessionManager:  &stubSwitchRotator{},
		JWTConfig:       testJWTConfig(),
	})
	if err != nil {
		t.Fatalf("new switch service: %v", err)
	}

	_, err = svc.Switch(context.Background(), SwitchCompanyInput{
		UserID:        uuid.New(),
		CompanyID:     uuid.New(),
		AccessTokenID: "access-id",
		RefreshToken:  "refresh",
	})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestSwitchCompanyInactiveMembership(t *testing.T) {
	membership := &memberships.MembershipWithCompany{
		CompanyID: uuid.New(),
		Role:      enums.MemberRoleFinance,
		Status:    enums.MembershipStatusSuspended,
	}
	svc, err := NewSwitchCompanyService(SwitchCompanyServiceParams{
		MembershipsRepo: stubSwitchMembershipsRepo{membership: membership},
		SessionManager:  &stubSwitchRotator{},
		JWTConfig:       testJWTConfig(),
	})
	if err != nil {
		t.Fatalf("new switch service: %v", err)
	}

	_, err = svc.Switch(context.Background(), SwitchCompanyInput{
		UserID:        uuid.New(),
		CompanyID:     membership.CompanyID,
		AccessTokenID: "access-id",
		RefreshToken:  "refresh",
	})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestSwitchCompanyInvalidRefreshToken(t *testing.T) {
	membership := &memberships.MembershipWithCompany{
		CompanyID: uuid.New(),
		Role:      enums.MemberRoleFinance,
		Status:    enums.MembershipStatusActive,
	}
	svc, err := NewSwitchCompanyService(SwitchCompanyServiceParams{
		MembershipsRepo: stubSwitchMembershipsRepo{membership: membership},
		SessionManager:  &stubSwitchRotator{err: session.ErrInvalidRefreshToken},
		JWTConfig:       testJWTConfig(),
	})
	if err != nil {
		t.Fatalf("new switch service: %v", err)
	}

	_, err = svc.Switch(context.Background(), SwitchCompanyInput{
		UserID:        uuid.New(),
		CompanyID:     membership.CompanyID,
		AccessTokenID: "access-id",
		RefreshToken:  "stale",
	})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
