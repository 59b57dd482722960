package trades

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradewind-labs/tradedesk-backend/internal/repo"
	"github.com/tradewind-labs/tradedesk-backend/pkg/db"
	"github.com/tradewind-labs/tradedesk-backend/pkg/db/models"
	"github.com/tradewind-labs/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/tradewind-labs/tradedesk-backend/pkg/errors"
	"github.com/tradewind-labs/tradedesk-backend/pkg/pagination"
)

// Repo persists trades. Every read and write is company-scoped.
type Repo struct {
	repo.Base
}

func NewRepo(conn *gorm.DB) *Repo {
	return &Repo{Base: repo.NewBase(conn)}
}

func (r *Repo) Create(ctx context.Context, trade *models.Trade) (*models.Trade, error) {
	if trade == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "trade is required")
	}
	if err := r.DB(ctx).Create(trade).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "trade number already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to create trade")
	}
	return trade, nil
}

func (r *Repo) FindByID(ctx context.Context, companyID, id uuid.UUID) (*models.Trade, error) {
	var trade models.Trade
	err := r.DB(ctx).
		Where("company_id = ? AND id = ?", companyID, id).
		First(&trade).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "trade not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load trade")
	}
	return &trade, nil
}

// List returns a page of the company's trades, newest first, keyed on
// (created_at, id) so the cursor stays stable under concurrent inserts.
func (r *Repo) List(ctx context.Context, companyID uuid.UUID, filters ListFilters, params pagination.Params) ([]models.Trade, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.DB(ctx).
		Model(&models.Trade{}).
		Where("company_id = ?", companyID)

	if filters.Stage != "" {
		query = query.Where("trade_stage = ?", filters.Stage)
	}
	if filters.TradeType != "" {
		query = query.Where("trade_type = ?", filters.TradeType)
	}
	if filters.PartyID != nil {
		query = query.Where("party_id = ?", *filters.PartyID)
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Trade
	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to list trades")
	}

	var next *pagination.Cursor
	if len(rows) > normalized {
		rows = rows[:normalized]
		last := rows[len(rows)-1]
		next = &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return rows, next, nil
}

// UpdateDraftFields patches business fields on a draft trade. The stage
// predicate in the WHERE clause makes the update a no-op if the trade left
// draft between read and write; zero rows reports a state conflict.
func (r *Repo) UpdateDraftFields(ctx context.Context, companyID, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.DB(ctx).
		Model(&models.Trade{}).
		Where("company_id = ? AND id = ? AND trade_stage = ?", companyID, id, enums.TradeStageDraft).
		Updates(fields)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "failed to update trade")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "trade is no longer editable")
	}
	return nil
}

// ApplyTransition moves a trade from one stage to another in a single
// conditional update. The expected stage rides in the WHERE clause, so a
// concurrent transition that got there first leaves zero rows affected and
// the caller sees a state conflict instead of a partial mutation.
func (r *Repo) ApplyTransition(ctx context.Context, companyID, id uuid.UUID, expected string, fields map[string]any) error {
	res := r.DB(ctx).
		Model(&models.Trade{}).
		Where("company_id = ? AND id = ? AND trade_stage = ?", companyID, id, expected).
		Updates(fields)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "failed to apply trade transition")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "trade stage changed concurrently")
	}
	return nil
}
