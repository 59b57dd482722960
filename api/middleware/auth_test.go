package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tradewind-labs/tradedesk-backend/pkg/auth"
	"github.com/tradewind-labs/tradedesk-backend/pkg/config"
	"github.com/tradewind-labs/tradedesk-backend/pkg/enums"
	"github.com/tradewind-labs/tradedesk-backend/pkg/logger"
)

type stubSessionChecker struct {
	live map[string]bool
	err  error
}

func (s *stubSessionChecker) HasSession(_ context.Context, accessID string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.live[accessID], nil
}

func testMiddlewareJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "tradedesk", ExpirationMinutes: 30}
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, userID uuid.UUID, companyID *uuid.UUID, jti string) string {
	t.Helper()
	token, err := auth.MintAccessToken(cfg, time.Now(), auth.AccessTokenPayload{
		UserID:          userID,
		ActiveCompanyID: companyID,
		Role:            enums.MemberRoleFinance,
		JTI:             jti,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestAuthSeedsContext(t *testing.T) {
	cfg := testMiddlewareJWTConfig()
	logg := logger.New(logger.Options{ServiceName: "middleware-test"})
	userID := uuid.New()
	companyID := uuid.New()
	token := mintTestToken(t, cfg, userID, &companyID, "jti-1")

	sessions := &stubSessionChecker{live: map[string]bool{"jti-1": true}}

	var gotUser, gotCompany, gotRole string
	handler := Auth(cfg, sessions, logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
		gotCompany = CompanyIDFromContext(r.Context())
		gotRole = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trades", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotUser != userID.String() {
		t.Errorf("user id = %q, want %q", gotUser, userID)
	}
	if gotCompany != companyID.String() {
		t.Errorf("company id = %q, want %q", gotCompany, companyID)
	}
	if gotRole != enums.MemberRoleFinance.String() {
		t.Errorf("role = %q, want finance", gotRole)
	}
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	cfg := testMiddlewareJWTConfig()
	logg := logger.New(logger.Options{ServiceName: "middleware-test"})
	handler := Auth(cfg, &stubSessionChecker{}, logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trades", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthRejectsRevokedSession(t *testing.T) {
	cfg := testMiddlewareJWTConfig()
	logg := logger.New(logger.Options{ServiceName: "middleware-test"})
	token := mintTestToken(t, cfg, uuid.New(), nil, "jti-revoked")

	handler := Auth(cfg, &stubSessionChecker{live: map[string]bool{}}, logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trades", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthRejectsGarbageToken(t *testing.T) {
	cfg := testMiddlewareJWTConfig()
	logg := logger.New(logger.Options{ServiceName: "middleware-test"})
	handler := Auth(cfg, &stubSessionChecker{}, logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trades", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", false},
		{"bearer abc", "abc", false},
		{"", "", true},
		{"Basic abc", "", true},
		{"Bearer ", "", true},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		got, err := BearerToken(req)
		if tc.wantErr {
			if err == nil {
				t.Errorf("header %q: expected error", tc.header)
			}
			continue
		}
		if err != nil {
			t.Errorf("header %q: unexpected error %v", tc.header, err)
			continue
		}
		if got != tc.want {
			t.Errorf("header %q: got %q, want %q", tc.header, got, tc.want)
		}
	}
}
