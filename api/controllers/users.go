package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradewind-labs/tradedesk-backend/api/middleware"
	"github.com/tradewind-labs/tradedesk-backend/api/responses"
	"github.com/tradewind-labs/tradedesk-backend/api/validators"
	"github.com/tradewind-labs/tradedesk-backend/internal/users"
	"github.com/tradewind-labs/tradedesk-backend/pkg/db/models"
	pkgerrors "github.com/tradewind-labs/tradedesk-backend/pkg/errors"
	"github.com/tradewind-labs/tradedesk-backend/pkg/logger"
)

// UserRepository is the slice of the users repo the profile endpoints use.
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, dto users.UpdateProfileDTO) (*models.User, error)
}

// UsersMe returns the authenticated user's profile.
func UsersMe(repo UserRepository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := authedUserID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		user, err := repo.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				responses.WriteError(ctx, logg, w,
					pkgerrors.New(pkgerrors.CodeNotFound, "user not found"))
				return
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, users.FromModel(user))
	}
}

// UsersMeUpdate patches the caller's profile fields.
func UsersMeUpdate(repo UserRepository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := authedUserID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var dto users.UpdateProfileDTO
		if err := validators.DecodeJSONBody(r, &dto); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		user, err := repo.UpdateProfile(ctx, userID, dto)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, users.FromModel(user))
	}
}

func authedUserID(ctx context.Context) (uuid.UUID, error) {
	userID, err := uuid.Parse(middleware.UserIDFromContext(ctx))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return userID, nil
}
