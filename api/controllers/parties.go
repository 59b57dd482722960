package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tradewind-labs/tradedesk-backend/api/middleware"
	"github.com/tradewind-labs/tradedesk-backend/api/responses"
	"github.com/tradewind-labs/tradedesk-backend/api/validators"
	"github.com/tradewind-labs/tradedesk-backend/internal/parties"
	"github.com/tradewind-labs/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/tradewind-labs/tradedesk-backend/pkg/errors"
	"github.com/tradewind-labs/tradedesk-backend/pkg/logger"
)

// PartiesCreate registers a new counterparty in the active company.
func PartiesCreate(svc parties.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		companyID, role, err := companyScope(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var input parties.CreatePartyInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		party, err := svc.Create(ctx, companyID, role, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, party)
	}
}

// PartiesList returns all counterparties in the active company.
func PartiesList(svc parties.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		companyID, err := activeCompanyID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		list, err := svc.List(ctx, companyID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// PartiesGet fetches a single counterparty by id.
func PartiesGet(svc parties.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		companyID, err := activeCompanyID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		partyID, err := pathUUID(r, "partyID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		party, err := svc.Get(ctx, companyID, partyID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, party)
	}
}

// PartiesUpdate edits a counterparty.
func PartiesUpdate(svc parties.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		companyID, role, err := companyScope(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		partyID, err := pathUUID(r, "partyID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var input parties.UpdatePartyInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		party, err := svc.Update(ctx, companyID, partyID, role, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, party)
	}
}

// PartiesDelete removes a counterparty with no trades referencing it.
func PartiesDelete(svc parties.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		companyID, role, err := companyScope(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		partyID, err := pathUUID(r, "partyID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Delete(ctx, companyID, partyID, role); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func companyScope(ctx context.Context) (uuid.UUID, enums.MemberRole, error) {
	companyID, err := activeCompanyID(ctx)
	if err != nil {
		return uuid.Nil, "", err
	}
	role, err := enums.ParseMemberRole(middleware.RoleFromContext(ctx))
	if err != nil {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return companyID, role, nil
}

func pathUUID(r *http.Request, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, key))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid "+key)
	}
	return id, nil
}
