package controllers

import (
	"net/http"

	"github.com/tradewind-labs/tradedesk-backend/api/middleware"
	"github.com/tradewind-labs/tradedesk-backend/api/responses"
	"github.com/tradewind-labs/tradedesk-backend/api/validators"
	internalauth "github.com/tradewind-labs/tradedesk-backend/internal/auth"
	pkgauth "github.com/tradewind-labs/tradedesk-backend/pkg/auth"
	"github.com/tradewind-labs/tradedesk-backend/pkg/config"
	pkgerrors "github.com/tradewind-labs/tradedesk-backend/pkg/errors"
	"github.com/tradewind-labs/tradedesk-backend/pkg/logger"
)

// AuthRegister creates the user and their first company in one transaction.
func AuthRegister(svc internalauth.RegisterService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req internalauth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Register(ctx, req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{"status": "registered"})
	}
}

// AuthLogin exchanges credentials for a token pair.
func AuthLogin(svc internalauth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req internalauth.LoginRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp, err := svc.Login(ctx, req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// AuthRefresh rotates the refresh token. The access token may be expired;
// its claims only identify which session to rotate.
func AuthRefresh(cfg config.JWTConfig, svc internalauth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		sess, err := sessionClaimsFromRequest(cfg, r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req internalauth.RefreshRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp, err := svc.Refresh(ctx, sess, req)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// AuthLogout revokes the session behind the presented token. Expired tokens
// are accepted so a stale client can still sign out cleanly.
func AuthLogout(cfg config.JWTConfig, svc internalauth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		sess, err := sessionClaimsFromRequest(cfg, r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Logout(ctx, sess.AccessID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}

// AuthSwitchCompany re-mints the token pair scoped to another company the
// caller belongs to.
func AuthSwitchCompany(cfg config.JWTConfig, svc internalauth.SwitchCompanyService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		sess, err := sessionClaimsFromRequest(cfg, r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req internalauth.SwitchCompanyRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp, err := svc.Switch(ctx, internalauth.SwitchCompanyInput{
			UserID:        sess.UserID,
			CompanyID:     req.CompanyID,
			AccessTokenID: sess.AccessID,
			RefreshToken:  req.RefreshToken,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// sessionClaimsFromRequest identifies the session from the bearer token,
// tolerating expiry. Signature and issuer are still enforced.
func sessionClaimsFromRequest(cfg config.JWTConfig, r *http.Request) (internalauth.SessionClaims, error) {
	tokenString, err := middleware.BearerToken(r)
	if err != nil {
		return internalauth.SessionClaims{}, err
	}

	claims, err := pkgauth.ParseAccessTokenAllowExpired(cfg, tokenString)
	if err != nil {
		return internalauth.SessionClaims{},
			pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token")
	}

	return internalauth.SessionClaims{
		UserID:          claims.UserID,
		ActiveCompanyID: claims.ActiveCompanyID,
		AccessID:        claims.ID,
	}, nil
}
