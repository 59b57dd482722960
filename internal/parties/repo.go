package parties

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradewind-labs/tradedesk-backend/pkg/db/models"
)

// Repository handles counterparty persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to party operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a new party row.
func (r *Repository) Create(ctx context.Context, party *models.Party) error {
	if party == nil {
		return fmt.Errorf("party is required")
	}
	return r.db.WithContext(ctx).Create(party).Error
}

// FindByID loads a party scoped to the owning company.
func (r *Repository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*models.Party, error) {
	var party models.Party
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND id = ?", companyID, id).
		First(&party).Error
	if err != nil {
		return nil, err
	}
	return &party, nil
}

// ListByCompany returns all counterparties for the company ordered by name.
func (r *Repository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]models.Party, error) {
	var parties []models.Party
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("name").
		Find(&parties).Error
	if err != nil {
		return nil, err
	}
	return parties, nil
}

// Update saves the provided party.
func (r *Repository) Update(ctx context.Context, party *models.Party) error {
	if party == nil {
		return fmt.Errorf("party is required")
	}
	return r.db.WithContext(ctx).Save(party).Error
}

// Delete removes the party scoped to the owning company.
func (r *Repository) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("company_id = ? AND id = ?", companyID, id).
		Delete(&models.Party{}).Error
}

// Exists reports whether the party belongs to the company.
func (r *Repository) Exists(ctx context.Context, companyID, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Party{}).
		Where("company_id = ? AND id = ?", companyID, id).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountTradesReferencing reports how many trades point at the party.
func (r *Repository) CountTradesReferencing(ctx context.Context, companyID, partyID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Trade{}).
		Where("company_id = ? AND party_id = ?", companyID, partyID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
