package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tradewind-labs/tradedesk-backend/api/middleware"
	"github.com/tradewind-labs/tradedesk-backend/api/responses"
	"github.com/tradewind-labs/tradedesk-backend/api/validators"
	"github.com/tradewind-labs/tradedesk-backend/internal/companies"
	"github.com/tradewind-labs/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/tradewind-labs/tradedesk-backend/pkg/errors"
	"github.com/tradewind-labs/tradedesk-backend/pkg/logger"
)

// CompaniesMe returns the active company's profile.
func CompaniesMe(svc companies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		companyID, err := activeCompanyID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		company, err := svc.GetByID(ctx, companyID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, company)
	}
}

type updateCompanyRequest struct {
	Name         *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	BaseCurrency *string `json:"base_currency,omitempty" validate:"omitempty,len=3"`
}

// CompaniesMeUpdate edits the active company. Admin only, enforced in the
// service against the membership table.
func CompaniesMeUpdate(svc companies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := authedUserID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		companyID, err := activeCompanyID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req updateCompanyRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		company, err := svc.Update(ctx, userID, companyID, companies.UpdateCompanyInput{
			Name:         req.Name,
			BaseCurrency: req.BaseCurrency,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, company)
	}
}

// CompanyUsersList lists members of the active company.
func CompanyUsersList(svc companies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := authedUserID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		companyID, err := activeCompanyID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		members, err := svc.ListUsers(ctx, userID, companyID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, members)
	}
}

type inviteUserRequest struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"required,min=1,max=100"`
	LastName  string `json:"last_name" validate:"required,min=1,max=100"`
	Role      string `json:"role" validate:"required"`
}

type inviteUserResponse struct {
	Member       any    `json:"member"`
	TempPassword string `json:"temp_password,omitempty"`
}

// CompanyUsersInvite adds a user to the active company, creating the account
// with a temporary password when the email is new.
func CompanyUsersInvite(svc companies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		inviterID, err := authedUserID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		companyID, err := activeCompanyID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req inviteUserRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		role, err := enums.ParseMemberRole(req.Role)
		if err != nil {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "invalid role"))
			return
		}

		member, tempPassword, err := svc.InviteUser(ctx, inviterID, companyID, companies.InviteUserInput{
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Role:      role,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, inviteUserResponse{
			Member:       member,
			TempPassword: tempPassword,
		})
	}
}

// CompanyUsersRemove revokes a membership. The last admin cannot be removed.
func CompanyUsersRemove(svc companies.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actorID, err := authedUserID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		companyID, err := activeCompanyID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		targetID, err := uuid.Parse(chi.URLParam(r, "userID"))
		if err != nil {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "invalid user id"))
			return
		}

		if err := svc.RemoveUser(ctx, actorID, companyID, targetID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

func activeCompanyID(ctx context.Context) (uuid.UUID, error) {
	companyID, err := uuid.Parse(middleware.CompanyIDFromContext(ctx))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "active company required")
	}
	return companyID, nil
}
