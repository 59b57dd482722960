package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradewind-labs/tradedesk-backend/pkg/enums"
)

// Trade is the central lifecycle entity. TradeStage is the single source of
// truth for where the trade sits; the per-transition audit columns record
// when and by whom each stage was entered and legitimately coexist with a
// later stage (a closed trade still carries its submitted_at).
type Trade struct {
	ID              uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CompanyID       uuid.UUID        `gorm:"column:company_id;type:uuid;not null;index"`
	TradeNumber     string           `gorm:"column:trade_number;not null;uniqueIndex"`
	TradeType       enums.TradeType  `gorm:"column:trade_type;type:trade_type;not null"`
	TradeStage      enums.TradeStage `gorm:"column:trade_stage;type:trade_stage;not null;default:'draft'"`
	PartyID         uuid.UUID        `gorm:"column:party_id;type:uuid;not null"`
	CurrencyPair    string           `gorm:"column:currency_pair;type:char(7);not null"`
	Amount          decimal.Decimal  `gorm:"column:amount;type:numeric(18,2);not null"`
	Rate            decimal.Decimal  `gorm:"column:rate;type:numeric(18,6);not null"`
	TradeReference  *string          `gorm:"column:trade_reference"`
	Remarks         *string          `gorm:"column:remarks"`
	CancelReason    *string          `gorm:"column:cancel_reason"`
	CreatedBy       uuid.UUID        `gorm:"column:created_by;type:uuid;not null"`
	CreatedByName   string           `gorm:"column:created_by_name;not null"`
	SubmittedAt     *time.Time       `gorm:"column:submitted_at"`
	SubmittedBy     *uuid.UUID       `gorm:"column:submitted_by;type:uuid"`
	SubmittedByName *string          `gorm:"column:submitted_by_name"`
	ApprovedAt      *time.Time       `gorm:"column:approved_at"`
	ApprovedBy      *uuid.UUID       `gorm:"column:approved_by;type:uuid"`
	ApprovedByName  *string          `gorm:"column:approved_by_name"`
	CancelledAt     *time.Time       `gorm:"column:cancelled_at"`
	CancelledBy     *uuid.UUID       `gorm:"column:cancelled_by;type:uuid"`
	CancelledByName *string          `gorm:"column:cancelled_by_name"`
	ClosedAt        *time.Time       `gorm:"column:closed_at"`
	ClosedBy        *uuid.UUID       `gorm:"column:closed_by;type:uuid"`
	ClosedByName    *string          `gorm:"column:closed_by_name"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
