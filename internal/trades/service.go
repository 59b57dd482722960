package trades

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tradewind-labs/tradedesk-backend/pkg/db/models"
	"github.com/tradewind-labs/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/tradewind-labs/tradedesk-backend/pkg/errors"
	"github.com/tradewind-labs/tradedesk-backend/pkg/logger"
	"github.com/tradewind-labs/tradedesk-backend/pkg/metrics"
	"github.com/tradewind-labs/tradedesk-backend/pkg/pagination"
)

// Actor is the authenticated member performing an operation, resolved from
// the request token. The display name is denormalized onto the trade's audit
// columns at transition time.
type Actor struct {
	ID   uuid.UUID
	Name string
	Role enums.MemberRole
}

type tradeRepository interface {
	Create(ctx context.Context, trade *models.Trade) (*models.Trade, error)
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*models.Trade, error)
	List(ctx context.Context, companyID uuid.UUID, filters ListFilters, params pagination.Params) ([]models.Trade, *pagination.Cursor, error)
	UpdateDraftFields(ctx context.Context, companyID, id uuid.UUID, fields map[string]any) error
	ApplyTransition(ctx context.Context, companyID, id uuid.UUID, expected string, fields map[string]any) error
}

type partyLookup interface {
	Exists(ctx context.Context, companyID, partyID uuid.UUID) (bool, error)
}

// Service owns the trade lifecycle. Stage transitions re-check the guard
// against the row's current stage inside the update itself, so two racing
// writers cannot both win.
type Service interface {
	Create(ctx context.Context, companyID uuid.UUID, actor Actor, input CreateTradeInput) (*TradeDTO, error)
	Get(ctx context.Context, companyID, id uuid.UUID) (*TradeDTO, error)
	List(ctx context.Context, companyID uuid.UUID, filters ListFilters, params pagination.Params) ([]TradeDTO, *pagination.Cursor, error)
	Update(ctx context.Context, companyID, id uuid.UUID, actor Actor, input UpdateTradeInput) (*TradeDTO, error)
	Submit(ctx context.Context, companyID, id uuid.UUID, actor Actor) (*TradeDTO, error)
	Approve(ctx context.Context, companyID, id uuid.UUID, actor Actor) (*TradeDTO, error)
	Cancel(ctx context.Context, companyID, id uuid.UUID, actor Actor, reason string) (*TradeDTO, error)
	Close(ctx context.Context, companyID, id uuid.UUID, actor Actor) (*TradeDTO, error)
	Timeline(ctx context.Context, companyID, id uuid.UUID) ([]TimelineEvent, error)
}

// Params wires the trade service dependencies. Metrics may be nil.
type Params struct {
	Repo    tradeRepository
	Parties partyLookup
	Numbers NumberAllocator
	Metrics *metrics.HTTPMetrics
	Logger  *logger.Logger
	Now     func() time.Time
}

type service struct {
	repo    tradeRepository
	parties partyLookup
	numbers NumberAllocator
	metrics *metrics.HTTPMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds the trade service.
func NewService(p Params) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("trade repository required")
	}
	if p.Parties == nil {
		return nil, fmt.Errorf("party lookup required")
	}
	if p.Numbers == nil {
		return nil, fmt.Errorf("trade number allocator required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:    p.Repo,
		parties: p.Parties,
		numbers: p.Numbers,
		metrics: p.Metrics,
		logg:    p.Logger,
		now:     now,
	}, nil
}

func (s *service) Create(ctx context.Context, companyID uuid.UUID, actor Actor, input CreateTradeInput) (*TradeDTO, error) {
	if !CanCreate(actor.Role) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot create trades")
	}
	if !input.TradeType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid trade type")
	}
	pair := normalizeCurrencyPair(input.CurrencyPair)
	if err := validateCurrencyPair(pair); err != nil {
		return nil, err
	}
	if input.Amount.IsZero() || input.Amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if input.Rate.IsZero() || input.Rate.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rate must be positive")
	}
	ok, err := s.parties.Exists(ctx, companyID, input.PartyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify party")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "party not found for company")
	}

	number, err := s.numbers.Next(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate trade number")
	}

	trade := &models.Trade{
		CompanyID:      companyID,
		TradeNumber:    number,
		TradeType:      input.TradeType,
		TradeStage:     enums.TradeStageDraft,
		PartyID:        input.PartyID,
		CurrencyPair:   pair,
		Amount:         input.Amount,
		Rate:           input.Rate,
		TradeReference: input.TradeReference,
		Remarks:        input.Remarks,
		CreatedBy:      actor.ID,
		CreatedByName:  actor.Name,
	}
	created, err := s.repo.Create(ctx, trade)
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"trade_id":     created.ID.String(),
		"trade_number": created.TradeNumber,
		"company_id":   companyID.String(),
	})
	s.logg.Info(logCtx, "trade created")
	s.incTransition(ActionCreate)
	return FromModel(created), nil
}

func (s *service) Get(ctx context.Context, companyID, id uuid.UUID) (*TradeDTO, error) {
	trade, err := s.repo.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	return FromModel(trade), nil
}

func (s *service) List(ctx context.Context, companyID uuid.UUID, filters ListFilters, params pagination.Params) ([]TradeDTO, *pagination.Cursor, error) {
	if filters.Stage != "" && !filters.Stage.IsValid() {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid trade stage filter")
	}
	if filters.TradeType != "" && !filters.TradeType.IsValid() {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid trade type filter")
	}
	rows, next, err := s.repo.List(ctx, companyID, filters, params)
	if err != nil {
		return nil, nil, err
	}
	return fromModels(rows), next, nil
}

func (s *service) Update(ctx context.Context, companyID, id uuid.UUID, actor Actor, input UpdateTradeInput) (*TradeDTO, error) {
	trade, err := s.repo.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if !financeOrAdmin[actor.Role] {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot edit trades")
	}
	if !CanEdit(actor.Role, trade.TradeStage) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only draft trades can be edited")
	}

	fields := map[string]any{}
	if input.PartyID != nil {
		ok, err := s.parties.Exists(ctx, companyID, *input.PartyID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify party")
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "party not found for company")
		}
		fields["party_id"] = *input.PartyID
	}
	if input.TradeType != nil {
		if !input.TradeType.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid trade type")
		}
		fields["trade_type"] = *input.TradeType
	}
	if input.CurrencyPair != nil {
		pair := normalizeCurrencyPair(*input.CurrencyPair)
		if err := validateCurrencyPair(pair); err != nil {
			return nil, err
		}
		fields["currency_pair"] = pair
	}
	if input.Amount != nil {
		if input.Amount.IsZero() || input.Amount.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
		}
		fields["amount"] = *input.Amount
	}
	if input.Rate != nil {
		if input.Rate.IsZero() || input.Rate.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "rate must be positive")
		}
		fields["rate"] = *input.Rate
	}
	if input.TradeReference != nil {
		fields["trade_reference"] = *input.TradeReference
	}
	if input.Remarks != nil {
		fields["remarks"] = *input.Remarks
	}
	if len(fields) == 0 {
		return FromModel(trade), nil
	}

	if err := s.repo.UpdateDraftFields(ctx, companyID, id, fields); err != nil {
		return nil, err
	}
	s.incTransition(ActionEdit)
	return s.Get(ctx, companyID, id)
}

func (s *service) Submit(ctx context.Context, companyID, id uuid.UUID, actor Actor) (*TradeDTO, error) {
	now := s.now().UTC()
	return s.transition(ctx, companyID, id, actor, ActionSubmit, map[string]any{
		"trade_stage":       enums.TradeStageSubmitted,
		"submitted_at":      now,
		"submitted_by":      actor.ID,
		"submitted_by_name": actor.Name,
	})
}

func (s *service) Approve(ctx context.Context, companyID, id uuid.UUID, actor Actor) (*TradeDTO, error) {
	now := s.now().UTC()
	return s.transition(ctx, companyID, id, actor, ActionApprove, map[string]any{
		"trade_stage":      enums.TradeStageApproved,
		"approved_at":      now,
		"approved_by":      actor.ID,
		"approved_by_name": actor.Name,
	})
}

func (s *service) Cancel(ctx context.Context, companyID, id uuid.UUID, actor Actor, reason string) (*TradeDTO, error) {
	if err := ValidateCancelReason(reason); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	return s.transition(ctx, companyID, id, actor, ActionCancel, map[string]any{
		"trade_stage":       enums.TradeStageCancelled,
		"cancel_reason":     strings.TrimSpace(reason),
		"cancelled_at":      now,
		"cancelled_by":      actor.ID,
		"cancelled_by_name": actor.Name,
	})
}

func (s *service) Close(ctx context.Context, companyID, id uuid.UUID, actor Actor) (*TradeDTO, error) {
	now := s.now().UTC()
	return s.transition(ctx, companyID, id, actor, ActionClose, map[string]any{
		"trade_stage":    enums.TradeStageClosed,
		"closed_at":      now,
		"closed_by":      actor.ID,
		"closed_by_name": actor.Name,
	})
}

func (s *service) Timeline(ctx context.Context, companyID, id uuid.UUID) ([]TimelineEvent, error) {
	trade, err := s.repo.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	return BuildTimeline(trade), nil
}

// transition re-reads the trade, evaluates the guard against the fresh
// stage, then applies the conditional update keyed on that same stage.
func (s *service) transition(ctx context.Context, companyID, id uuid.UUID, actor Actor, action Action, fields map[string]any) (*TradeDTO, error) {
	trade, err := s.repo.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	t := transitions[action]
	if !t.roles[actor.Role] {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, fmt.Sprintf("role cannot %s trades", action))
	}
	if !t.from[trade.TradeStage] {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot %s trade in stage %s", action, trade.TradeStage))
	}

	if err := s.repo.ApplyTransition(ctx, companyID, id, trade.TradeStage.String(), fields); err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"trade_id":   id.String(),
		"company_id": companyID.String(),
		"action":     string(action),
		"from_stage": trade.TradeStage.String(),
	})
	s.logg.Info(logCtx, "trade transition applied")
	s.incTransition(action)
	return s.Get(ctx, companyID, id)
}

func (s *service) incTransition(action Action) {
	if s.metrics != nil {
		s.metrics.IncTransition(string(action))
	}
}

func validateCurrencyPair(pair string) error {
	if len(pair) != 7 || pair[3] != '/' {
		return pkgerrors.New(pkgerrors.CodeValidation, "currency pair must look like EUR/USD")
	}
	for i, r := range pair {
		if i == 3 {
			continue
		}
		if r < 'A' || r > 'Z' {
			return pkgerrors.New(pkgerrors.CodeValidation, "currency pair must look like EUR/USD")
		}
	}
	return nil
}
