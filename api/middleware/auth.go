package middleware

import (
	"net/http"
	"strings"

	"github.com/tradewind-labs/tradedesk-backend/api/responses"
	"github.com/tradewind-labs/tradedesk-backend/pkg/auth"
	"github.com/tradewind-labs/tradedesk-backend/pkg/auth/session"
	"github.com/tradewind-labs/tradedesk-backend/pkg/config"
	pkgerrors "github.com/tradewind-labs/tradedesk-backend/pkg/errors"
	"github.com/tradewind-labs/tradedesk-backend/pkg/logger"
)

// Auth validates the bearer token, confirms the session is still live in
// Redis, and seeds the request context with the caller's identity. The active
// company claim inside the token is the server-side source of truth; the
// X-Company-Id header clients send is advisory and never trusted for
// authorization.
func Auth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			tokenString, err := BearerToken(r)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}

			claims, err := auth.ParseAccessToken(cfg, tokenString)
			if err != nil {
				responses.WriteError(ctx, logg, w,
					pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token"))
				return
			}

			accessID := claims.ID
			if accessID == "" {
				responses.WriteError(ctx, logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid access token"))
				return
			}

			live, err := sessions.HasSession(ctx, accessID)
			if err != nil {
				responses.WriteError(ctx, logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, "session lookup failed"))
				return
			}
			if !live {
				responses.WriteError(ctx, logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired"))
				return
			}

			userID := claims.UserID.String()
			role := claims.Role.String()

			ctx = WithUserID(ctx, userID)
			ctx = WithRole(ctx, role)
			ctx = logg.WithUserID(ctx, userID)
			ctx = logg.WithActorRole(ctx, role)

			if claims.ActiveCompanyID != nil {
				companyID := claims.ActiveCompanyID.String()
				ctx = WithCompanyID(ctx, companyID)
				ctx = logg.WithCompanyID(ctx, companyID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "malformed authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}
