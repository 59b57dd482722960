package middleware

import (
	"net/http"

	"github.com/tradewind-labs/tradedesk-backend/api/responses"
	pkgerrors "github.com/tradewind-labs/tradedesk-backend/pkg/errors"
	"github.com/tradewind-labs/tradedesk-backend/pkg/logger"
)

// CompanyContext rejects requests whose token carries no active company.
// Company-scoped routes sit behind this so handlers can assume the context
// value is present.
func CompanyContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if CompanyIDFromContext(ctx) == "" {
				responses.WriteError(ctx, logg, w,
					pkgerrors.New(pkgerrors.CodeForbidden, "active company required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
