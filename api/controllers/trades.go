package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tradewind-labs/tradedesk-backend/api/responses"
	"github.com/tradewind-labs/tradedesk-backend/api/validators"
	"github.com/tradewind-labs/tradedesk-backend/internal/trades"
	"github.com/tradewind-labs/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/tradewind-labs/tradedesk-backend/pkg/errors"
	"github.com/tradewind-labs/tradedesk-backend/pkg/logger"
	"github.com/tradewind-labs/tradedesk-backend/pkg/pagination"
)

// tradeListPage is the list envelope with the opaque cursor for the next page.
type tradeListPage struct {
	Trades     []trades.TradeDTO `json:"trades"`
	NextCursor *string           `json:"next_cursor,omitempty"`
}

// resolveActor loads the caller's display name so stage transitions can stamp
// the audit columns with who acted, not just their id.
func resolveActor(ctx context.Context, repo UserRepository) (trades.Actor, error) {
	userID, err := authedUserID(ctx)
	if err != nil {
		return trades.Actor{}, err
	}
	_, role, err := companyScope(ctx)
	if err != nil {
		return trades.Actor{}, err
	}

	user, err := repo.FindByID(ctx, userID)
	if err != nil {
		return trades.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "unknown actor")
	}

	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	return trades.Actor{ID: userID, Name: name, Role: role}, nil
}

// TradesCreate books a new draft trade.
func TradesCreate(svc trades.Service, usersRepo UserRepository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		companyID, err := activeCompanyID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		actor, err := resolveActor(ctx, usersRepo)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var input trades.CreateTradeInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		trade, err := svc.Create(ctx, companyID, actor, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, trade)
	}
}

// TradesList pages through the active company's trades, newest first.
// Supports stage, trade_type and party_id filters.
func TradesList(svc trades.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		companyID, err := activeCompanyID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		filters, err := listFiltersFromQuery(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		list, next, err := svc.List(ctx, companyID, filters, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		page := tradeListPage{Trades: list}
		if next != nil {
			encoded := pagination.EncodeCursor(*next)
			page.NextCursor = &encoded
		}
		responses.WriteSuccess(w, page)
	}
}

func listFiltersFromQuery(r *http.Request) (trades.ListFilters, error) {
	var filters trades.ListFilters
	query := r.URL.Query()

	if raw := strings.TrimSpace(query.Get("stage")); raw != "" {
		stage, err := enums.ParseTradeStage(raw)
		if err != nil {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "invalid stage filter")
		}
		filters.Stage = stage
	}
	if raw := strings.TrimSpace(query.Get("trade_type")); raw != "" {
		tradeType, err := enums.ParseTradeType(raw)
		if err != nil {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "invalid trade_type filter")
		}
		filters.TradeType = tradeType
	}
	if raw := strings.TrimSpace(query.Get("party_id")); raw != "" {
		partyID, err := uuid.Parse(raw)
		if err != nil {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "invalid party_id filter")
		}
		filters.PartyID = &partyID
	}
	return filters, nil
}

// TradesGet fetches one trade.
func TradesGet(svc trades.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		companyID, err := activeCompanyID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		tradeID, err := pathUUID(r, "tradeID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		trade, err := svc.Get(ctx, companyID, tradeID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, trade)
	}
}

// TradesUpdate edits a draft trade.
func TradesUpdate(svc trades.Service, usersRepo UserRepository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		companyID, err := activeCompanyID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		tradeID, err := pathUUID(r, "tradeID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		actor, err := resolveActor(ctx, usersRepo)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var input trades.UpdateTradeInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		trade, err := svc.Update(ctx, companyID, tradeID, actor, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, trade)
	}
}

type transitionFunc func(ctx context.Context, companyID, id uuid.UUID, actor trades.Actor) (*trades.TradeDTO, error)

func tradeTransition(usersRepo UserRepository, logg *logger.Logger, apply transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		companyID, err := activeCompanyID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		tradeID, err := pathUUID(r, "tradeID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		actor, err := resolveActor(ctx, usersRepo)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		trade, err := apply(ctx, companyID, tradeID, actor)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, trade)
	}
}

// TradesSubmit moves a draft into review.
func TradesSubmit(svc trades.Service, usersRepo UserRepository, logg *logger.Logger) http.HandlerFunc {
	return tradeTransition(usersRepo, logg, svc.Submit)
}

// TradesApprove approves a submitted trade. Admin only.
func TradesApprove(svc trades.Service, usersRepo UserRepository, logg *logger.Logger) http.HandlerFunc {
	return tradeTransition(usersRepo, logg, svc.Approve)
}

// TradesClose settles an approved trade.
func TradesClose(svc trades.Service, usersRepo UserRepository, logg *logger.Logger) http.HandlerFunc {
	return tradeTransition(usersRepo, logg, svc.Close)
}

// TradesCancel terminates a draft or submitted trade with a mandatory reason.
func TradesCancel(svc trades.Service, usersRepo UserRepository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		companyID, err := activeCompanyID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		tradeID, err := pathUUID(r, "tradeID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		actor, err := resolveActor(ctx, usersRepo)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var input trades.CancelTradeInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		trade, err := svc.Cancel(ctx, companyID, tradeID, actor, input.Reason)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, trade)
	}
}

// TradesTimeline reconstructs the lifecycle history of a trade.
func TradesTimeline(svc trades.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		companyID, err := activeCompanyID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		tradeID, err := pathUUID(r, "tradeID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		timeline, err := svc.Timeline(ctx, companyID, tradeID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"timeline": timeline})
	}
}
