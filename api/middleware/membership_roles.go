package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/tradewind-labs/tradedesk-backend/api/responses"
	"github.com/tradewind-labs/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/tradewind-labs/tradedesk-backend/pkg/errors"
	"github.com/tradewind-labs/tradedesk-backend/pkg/logger"
)

// MembershipChecker verifies the caller holds one of the given roles inside a
// company. Backed by the memberships repository in production.
type MembershipChecker interface {
	UserHasRole(ctx context.Context, userID, companyID uuid.UUID, roles ...enums.MemberRole) (bool, error)
}

// RequireCompanyRoles gates a route on the caller's membership role in the
// active company. The database is the source of truth here, not the token:
// a role revoked mid-session takes effect on the next request.
func RequireCompanyRoles(checker MembershipChecker, logg *logger.Logger, roles ...enums.MemberRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			userID, err := uuid.Parse(UserIDFromContext(ctx))
			if err != nil {
				responses.WriteError(ctx, logg, w,
					pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}
			companyID, err := uuid.Parse(CompanyIDFromContext(ctx))
			if err != nil {
				responses.WriteError(ctx, logg, w,
					pkgerrors.New(pkgerrors.CodeForbidden, "active company required"))
				return
			}

			allowed, err := checker.UserHasRole(ctx, userID, companyID, roles...)
			if err != nil {
				responses.WriteError(ctx, logg, w,
					pkgerrors.Wrap(pkgerrors.CodeInternal, err, "membership lookup failed"))
				return
			}
			if !allowed {
				responses.WriteError(ctx, logg, w,
					pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role for this action"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
