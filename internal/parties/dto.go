package parties

import (
	"time"

	"github.com/google/uuid"

	"github.com/tradewind-labs/tradedesk-backend/pkg/db/models"
	"github.com/tradewind-labs/tradedesk-backend/pkg/enums"
)

// PartyDTO is the transport shape for a counterparty.
type PartyDTO struct {
	ID        uuid.UUID       `json:"id"`
	CompanyID uuid.UUID       `json:"company_id"`
	Name      string          `json:"name"`
	PartyType enums.PartyType `json:"party_type"`
	Email     *string         `json:"email,omitempty"`
	Phone     *string         `json:"phone,omitempty"`
	Country   *string         `json:"country,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CreatePartyInput captures the fields for a new counterparty.
type CreatePartyInput struct {
	Name      string          `json:"name" validate:"required,min=1,max=200"`
	PartyType enums.PartyType `json:"party_type" validate:"required"`
	Email     *string         `json:"email,omitempty" validate:"omitempty,email"`
	Phone     *string         `json:"phone,omitempty" validate:"omitempty,max=32"`
	Country   *string         `json:"country,omitempty" validate:"omitempty,len=2"`
}

// UpdatePartyInput captures the mutable fields of an existing counterparty.
type UpdatePartyInput struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Country *string `json:"country,omitempty" validate:"omitempty,len=2"`
}

// FromModel maps a persisted party into the DTO.
func FromModel(m *models.Party) *PartyDTO {
	if m == nil {
		return nil
	}
	return &PartyDTO{
		ID:        m.ID,
		CompanyID: m.CompanyID,
		Name:      m.Name,
		PartyType: m.PartyType,
		Email:     m.Email,
		Phone:     m.Phone,
		Country:   m.Country,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func fromModels(ms []models.Party) []PartyDTO {
	out := make([]PartyDTO, 0, len(ms))
	for i := range ms {
		out = append(out, *FromModel(&ms[i]))
	}
	return out
}
