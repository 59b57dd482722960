package companies

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradewind-labs/tradedesk-backend/pkg/db/models"
)

// Repository handles company persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to company operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a new company row.
func (r *Repository) Create(ctx context.Context, dto CreateCompanyDTO) (*models.Company, error) {
	company := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(company).Error; err != nil {
		return nil, err
	}
	return company, nil
}

// FindByID loads a company by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	var company models.Company
	if err := r.db.WithContext(ctx).First(&company, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

// FindByOwner returns all companies owned by the provided user.
func (r *Repository) FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Company, error) {
	var companies []models.Company
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Find(&companies).Error; err != nil {
		return nil, err
	}
	return companies, nil
}

// Update saves the provided company.
func (r *Repository) Update(ctx context.Context, company *models.Company) error {
	if company == nil {
		return fmt.Errorf("company is required")
	}
	return r.db.WithContext(ctx).Save(company).Error
}

// CreateWithTx persists the company using the provided transaction.
func (r *Repository) CreateWithTx(tx *gorm.DB, dto CreateCompanyDTO) (*models.Company, error) {
	if tx == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	company := dto.ToModel()
	if err := tx.Create(company).Error; err != nil {
		return nil, err
	}
	return company, nil
}
