package trades

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradewind-labs/tradedesk-backend/pkg/db/models"
	"github.com/tradewind-labs/tradedesk-backend/pkg/enums"
)

// TradeDTO is the API shape of a trade, audit trail included.
type TradeDTO struct {
	ID              uuid.UUID        `json:"id"`
	CompanyID       uuid.UUID        `json:"company_id"`
	TradeNumber     string           `json:"trade_number"`
	TradeType       enums.TradeType  `json:"trade_type"`
	TradeStage      enums.TradeStage `json:"trade_stage"`
	PartyID         uuid.UUID        `json:"party_id"`
	CurrencyPair    string           `json:"currency_pair"`
	Amount          decimal.Decimal  `json:"amount"`
	Rate            decimal.Decimal  `json:"rate"`
	TradeReference  *string          `json:"trade_reference,omitempty"`
	Remarks         *string          `json:"remarks,omitempty"`
	CancelReason    *string          `json:"cancel_reason,omitempty"`
	CreatedBy       uuid.UUID        `json:"created_by"`
	CreatedByName   string           `json:"created_by_name"`
	SubmittedAt     *time.Time       `json:"submitted_at,omitempty"`
	SubmittedByName *string          `json:"submitted_by_name,omitempty"`
	ApprovedAt      *time.Time       `json:"approved_at,omitempty"`
	ApprovedByName  *string          `json:"approved_by_name,omitempty"`
	CancelledAt     *time.Time       `json:"cancelled_at,omitempty"`
	CancelledByName *string          `json:"cancelled_by_name,omitempty"`
	ClosedAt        *time.Time       `json:"closed_at,omitempty"`
	ClosedByName    *string          `json:"closed_by_name,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// CreateTradeInput carries the business fields for a new draft trade.
type CreateTradeInput struct {
	PartyID        uuid.UUID       `json:"party_id" validate:"required"`
	TradeType      enums.TradeType `json:"trade_type" validate:"required"`
	CurrencyPair   string          `json:"currency_pair" validate:"required,len=7"`
	Amount         decimal.Decimal `json:"amount" validate:"required"`
	Rate           decimal.Decimal `json:"rate" validate:"required"`
	TradeReference *string         `json:"trade_reference,omitempty" validate:"omitempty,max=100"`
	Remarks        *string         `json:"remarks,omitempty" validate:"omitempty,max=1000"`
}

// UpdateTradeInput is a partial update of a draft trade's business fields.
// Nil means "leave unchanged".
type UpdateTradeInput struct {
	PartyID        *uuid.UUID       `json:"party_id,omitempty"`
	TradeType      *enums.TradeType `json:"trade_type,omitempty"`
	CurrencyPair   *string          `json:"currency_pair,omitempty" validate:"omitempty,len=7"`
	Amount         *decimal.Decimal `json:"amount,omitempty"`
	Rate           *decimal.Decimal `json:"rate,omitempty"`
	TradeReference *string          `json:"trade_reference,omitempty" validate:"omitempty,max=100"`
	Remarks        *string          `json:"remarks,omitempty" validate:"omitempty,max=1000"`
}

// ListFilters narrows a trade listing. Zero values mean no filter.
type ListFilters struct {
	Stage     enums.TradeStage
	TradeType enums.TradeType
	PartyID   *uuid.UUID
}

// CancelTradeInput carries the mandatory cancellation reason.
type CancelTradeInput struct {
	Reason string `json:"reason" validate:"required"`
}

// FromModel converts a trade row into its API shape.
func FromModel(m *models.Trade) *TradeDTO {
	if m == nil {
		return nil
	}
	return &TradeDTO{
		ID:              m.ID,
		CompanyID:       m.CompanyID,
		TradeNumber:     m.TradeNumber,
		TradeType:       m.TradeType,
		TradeStage:      m.TradeStage,
		PartyID:         m.PartyID,
		CurrencyPair:    m.CurrencyPair,
		Amount:          m.Amount,
		Rate:            m.Rate,
		TradeReference:  m.TradeReference,
		Remarks:         m.Remarks,
		CancelReason:    m.CancelReason,
		CreatedBy:       m.CreatedBy,
		CreatedByName:   m.CreatedByName,
		SubmittedAt:     m.SubmittedAt,
		SubmittedByName: m.SubmittedByName,
		ApprovedAt:      m.ApprovedAt,
		ApprovedByName:  m.ApprovedByName,
		CancelledAt:     m.CancelledAt,
		CancelledByName: m.CancelledByName,
		ClosedAt:        m.ClosedAt,
		ClosedByName:    m.ClosedByName,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func fromModels(rows []models.Trade) []TradeDTO {
	out := make([]TradeDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}

func normalizeCurrencyPair(pair string) string {
	return strings.ToUpper(strings.TrimSpace(pair))
}
