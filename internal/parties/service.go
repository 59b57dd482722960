package parties

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradewind-labs/tradedesk-backend/pkg/db/models"
	"github.com/tradewind-labs/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/tradewind-labs/tradedesk-backend/pkg/errors"
)

type partyRepository interface {
	Create(ctx context.Context, party *models.Party) error
	FindByID(ctx context.Context, companyID, id uuid.UUID) (*models.Party, error)
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]models.Party, error)
	Update(ctx context.Context, party *models.Party) error
	Delete(ctx context.Context, companyID, id uuid.UUID) error
	CountTradesReferencing(ctx context.Context, companyID, partyID uuid.UUID) (int64, error)
}

// Service exposes counterparty operations. Mutations require finance or
// admin; auditors read.
type Service interface {
	Create(ctx context.Context, companyID uuid.UUID, role enums.MemberRole, input CreatePartyInput) (*PartyDTO, error)
	Get(ctx context.Context, companyID, id uuid.UUID) (*PartyDTO, error)
	List(ctx context.Context, companyID uuid.UUID) ([]PartyDTO, error)
	Update(ctx context.Context, companyID, id uuid.UUID, role enums.MemberRole, input UpdatePartyInput) (*PartyDTO, error)
	Delete(ctx context.Context, companyID, id uuid.UUID, role enums.MemberRole) error
}

// Params wires the party service dependencies.
type Params struct {
	Repo partyRepository
}

type service struct {
	repo partyRepository
}

// NewService builds the party service.
func NewService(p Params) (Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("party repository required")
	}
	return &service{repo: p.Repo}, nil
}

func canMutate(role enums.MemberRole) bool {
	return role == enums.MemberRoleFinance || role == enums.MemberRoleAdmin
}

func (s *service) Create(ctx context.Context, companyID uuid.UUID, role enums.MemberRole, input CreatePartyInput) (*PartyDTO, error) {
	if !canMutate(role) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot manage parties")
	}
	if !input.PartyType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid party type")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "party name is required")
	}

	party := &models.Party{
		CompanyID: companyID,
		Name:      name,
		PartyType: input.PartyType,
		Email:     input.Email,
		Phone:     input.Phone,
		Country:   input.Country,
	}
	if err := s.repo.Create(ctx, party); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create party")
	}
	return FromModel(party), nil
}

func (s *service) Get(ctx context.Context, companyID, id uuid.UUID) (*PartyDTO, error) {
	party, err := s.repo.FindByID(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "party not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load party")
	}
	return FromModel(party), nil
}

func (s *service) List(ctx context.Context, companyID uuid.UUID) ([]PartyDTO, error) {
	parties, err := s.repo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list parties")
	}
	return fromModels(parties), nil
}

func (s *service) Update(ctx context.Context, companyID, id uuid.UUID, role enums.MemberRole, input UpdatePartyInput) (*PartyDTO, error) {
	if !canMutate(role) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot manage parties")
	}

	party, err := s.repo.FindByID(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "party not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load party")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "party name cannot be empty")
		}
		party.Name = name
	}
	if input.Email != nil {
		party.Email = input.Email
	}
	if input.Phone != nil {
		party.Phone = input.Phone
	}
	if input.Country != nil {
		party.Country = input.Country
	}

	if err := s.repo.Update(ctx, party); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update party")
	}
	return FromModel(party), nil
}

func (s *service) Delete(ctx context.Context, companyID, id uuid.UUID, role enums.MemberRole) error {
	if !canMutate(role) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "role cannot manage parties")
	}

	if _, err := s.repo.FindByID(ctx, companyID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "party not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load party")
	}

	count, err := s.repo.CountTradesReferencing(ctx, companyID, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count referencing trades")
	}
	if count > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "party is referenced by trades")
	}

	if err := s.repo.Delete(ctx, companyID, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete party")
	}
	return nil
}
