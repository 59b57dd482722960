package companies

import (
	"time"

	"github.com/google/uuid"

	"github.com/tradewind-labs/tradedesk-backend/pkg/db/models"
)

// CompanyDTO exposes safe tenant data in API responses.
type CompanyDTO struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	BaseCurrency string    `json:"base_currency"`
	IsActive     bool      `json:"is_active"`
	OwnerID      uuid.UUID `json:"owner_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateCompanyDTO holds creation-time data for a new company.
type CreateCompanyDTO struct {
	Name         string
	BaseCurrency *string
	OwnerID      uuid.UUID
}

// FromModel maps the persisted company into a DTO.
func FromModel(m *models.Company) *CompanyDTO {
	if m == nil {
		return nil
	}

	return &CompanyDTO{
		ID:           m.ID,
		Name:         m.Name,
		BaseCurrency: m.BaseCurrency,
		IsActive:     m.IsActive,
		OwnerID:      m.OwnerID,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// ToModel prepares the GORM model from creation DTO, supplying defaults.
func (c CreateCompanyDTO) ToModel() *models.Company {
	model := &models.Company{
		Name:         c.Name,
		BaseCurrency: "USD",
		IsActive:     true,
		OwnerID:      c.OwnerID,
	}
	if c.BaseCurrency != nil && *c.BaseCurrency != "" {
		model.BaseCurrency = *c.BaseCurrency
	}
	return model
}
