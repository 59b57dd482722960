package parties

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradewind-labs/tradedesk-backend/pkg/db/models"
	"github.com/tradewind-labs/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/tradewind-labs/tradedesk-backend/pkg/errors"
)

func TestCreatePartyRejectsAuditor(t *testing.T) {
	svc := newPartyService(t, &stubPartyRepo{})

	_, err := svc.Create(context.Background(), uuid.New(), enums.MemberRoleAuditor, CreatePartyInput{
		Name:      "Acme Imports",
		PartyType: enums.PartyTypeBuyer,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCreatePartySuccess(t *testing.T) {
	repo := &stubPartyRepo{}
	svc := newPartyService(t, repo)
	companyID := uuid.New()

	dto, err := svc.Create(context.Background(), companyID, enums.MemberRoleFinance, CreatePartyInput{
		Name:      "  Acme Imports  ",
		PartyType: enums.PartyTypeSupplier,
	})
	if err != nil {
		t.Fatalf("create party: %v", err)
	}
	if dto.Name != "Acme Imports" {
		t.Fatalf("expected trimmed name, got %q", dto.Name)
	}
	if dto.CompanyID != companyID {
		t.Fatalf("expected company scope %s, got %s", companyID, dto.CompanyID)
	}
	if repo.created == nil {
		t.Fatal("expected repo create call")
	}
}

func TestCreatePartyInvalidType(t *testing.T) {
	svc := newPartyService(t, &stubPartyRepo{})

	_, err := svc.Create(context.Background(), uuid.New(), enums.MemberRoleAdmin, CreatePartyInput{
		Name:      "Acme",
		PartyType: "broker",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDeletePartyBlockedByTrades(t *testing.T) {
	repo := &stubPartyRepo{
		party:      &models.Party{ID: uuid.New(), Name: "Acme"},
		tradeCount: 3,
	}
	svc := newPartyService(t, repo)

	err := svc.Delete(context.Background(), uuid.New(), uuid.New(), enums.MemberRoleAdmin)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if repo.deleted {
		t.Fatal("party must not be deleted while referenced")
	}
}

func TestDeletePartySuccess(t *testing.T) {
	repo := &stubPartyRepo{party: &models.Party{ID: uuid.New(), Name: "Acme"}}
	svc := newPartyService(t, repo)

	if err := svc.Delete(context.Background(), uuid.New(), uuid.New(), enums.MemberRoleFinance); err != nil {
		t.Fatalf("delete party: %v", err)
	}
	if !repo.deleted {
		t.Fatal("expected repo delete call")
	}
}

func TestGetPartyNotFound(t *testing.T) {
	svc := newPartyService(t, &stubPartyRepo{})

	_, err := svc.Get(context.Background(), uuid.New(), uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func newPartyService(t *testing.T, repo partyRepository) Service {
	t.Helper()
	svc, err := NewService(Params{Repo: repo})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

type stubPartyRepo struct {
	party      *models.Party
	created    *models.Party
	deleted    bool
	tradeCount int64
}

func (s *stubPartyRepo) Create(ctx context.Context, party *models.Party) error {
	s.created = party
	return nil
}

func (s *stubPartyRepo) FindByID(ctx context.Context, companyID, id uuid.UUID) (*models.Party, error) {
	if s.party == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.party, nil
}

func (s *stubPartyRepo) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]models.Party, error) {
	if s.party == nil {
		return nil, nil
	}
	return []models.Party{*s.party}, nil
}

func (s *stubPartyRepo) Update(ctx context.Context, party *models.Party) error {
	return nil
}

func (s *stubPartyRepo) Delete(ctx context.Context, companyID, id uuid.UUID) error {
	s.deleted = true
	return nil
}

func (s *stubPartyRepo) CountTradesReferencing(ctx context.Context, companyID, partyID uuid.UUID) (int64, error) {
	return s.tradeCount, nil
}
