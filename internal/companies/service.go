package companies

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradewind-labs/tradedesk-backend/internal/memberships"
	"github.com/tradewind-labs/tradedesk-backend/internal/users"
	"github.com/tradewind-labs/tradedesk-backend/pkg/config"
	"github.com/tradewind-labs/tradedesk-backend/pkg/db/models"
	"github.com/tradewind-labs/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/tradewind-labs/tradedesk-backend/pkg/errors"
	"github.com/tradewind-labs/tradedesk-backend/pkg/security"
)

type companyRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Company, error)
	Update(ctx context.Context, company *models.Company) error
}

type membershipsRepository interface {
	UserHasRole(ctx context.Context, userID, companyID uuid.UUID, roles ...enums.MemberRole) (bool, error)
	ListCompanyUsers(ctx context.Context, companyID uuid.UUID) ([]memberships.CompanyUserDTO, error)
	GetMembership(ctx context.Context, userID, companyID uuid.UUID) (*models.CompanyMembership, error)
	CreateMembership(ctx context.Context, companyID, userID uuid.UUID, role enums.MemberRole, invitedBy *uuid.UUID, status enums.MembershipStatus) (*models.CompanyMembership, error)
	DeleteMembership(ctx context.Context, companyID, userID uuid.UUID) error
	CountMembersWithRoles(ctx context.Context, companyID uuid.UUID, roles ...enums.MemberRole) (int64, error)
}

type usersRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

// Service exposes company operations. Membership management is admin-gated;
// finance and auditor members can only read the company record.
type Service interface {
	GetByID(ctx context.Context, id uuid.UUID) (*CompanyDTO, error)
	Update(ctx context.Context, userID, companyID uuid.UUID, input UpdateCompanyInput) (*CompanyDTO, error)
	ListUsers(ctx context.Context, userID, companyID uuid.UUID) ([]memberships.CompanyUserDTO, error)
	InviteUser(ctx context.Context, inviterID, companyID uuid.UUID, input InviteUserInput) (*memberships.CompanyUserDTO, string, error)
	RemoveUser(ctx context.Context, actorID, companyID, targetUserID uuid.UUID) error
}

type service struct {
	repo        companyRepository
	memberships membershipsRepository
	users       usersRepository
	passwordCfg config.PasswordConfig
}

// NewService builds a company service with the provided repositories.
func NewService(repo companyRepository, memberships membershipsRepository, usersRepo usersRepository, passwordCfg config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("company repository required")
	}
	if memberships == nil {
		return nil, fmt.Errorf("memberships repository required")
	}
	if usersRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{
		repo:        repo,
		memberships: memberships,
		users:       usersRepo,
		passwordCfg: passwordCfg,
	}, nil
}

// UpdateCompanyInput captures the allowed company fields for mutation.
type UpdateCompanyInput struct {
	Name         *string
	BaseCurrency *string
}

// InviteUserInput captures the data required to invite a company user.
type InviteUserInput struct {
	Email     string
	FirstName string
	LastName  string
	Role      enums.MemberRole
}

func (s *service) createNewUser(ctx context.Context, email, firstName, lastName string, companyID uuid.UUID) (*models.User, string, error) {
	if !strings.Contains(email, "@") {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "invalid email")
	}

	tempPassword, err := security.GenerateTempPassword(16)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate temp password")
	}
	hash, err := security.HashPassword(tempPassword, s.passwordCfg)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: hash,
		CompanyIDs:   []uuid.UUID{companyID},
	})
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}
	return user, tempPassword, nil
}

func (s *service) resetUserPassword(ctx context.Context, userID uuid.UUID) (string, error) {
	tempPassword, err := security.GenerateTempPassword(16)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate temp password")
	}
	hash, err := security.HashPassword(tempPassword, s.passwordCfg)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update user password")
	}
	return tempPassword, nil
}

func (s *service) fetchCompanyUser(ctx context.Context, companyID, userID uuid.UUID) (*memberships.CompanyUserDTO, error) {
	members, err := s.memberships.ListCompanyUsers(ctx, companyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list company users")
	}
	for _, m := range members {
		if m.UserID == userID {
			return &m, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "membership not found")
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*CompanyDTO, error) {
	company, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "company not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load company")
	}
	return FromModel(company), nil
}

func (s *service) Update(ctx context.Context, userID, companyID uuid.UUID, input UpdateCompanyInput) (*CompanyDTO, error) {
	ok, err := s.memberships.UserHasRole(ctx, userID, companyID, enums.MemberRoleAdmin)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check membership")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient company role")
	}

	company, err := s.repo.FindByID(ctx, companyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "company not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load company")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "company name cannot be empty")
		}
		company.Name = name
	}
	if input.BaseCurrency != nil {
		currency := strings.ToUpper(strings.TrimSpace(*input.BaseCurrency))
		if len(currency) != 3 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "base currency must be a 3-letter ISO code")
		}
		company.BaseCurrency = currency
	}

	if err := s.repo.Update(ctx, company); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update company")
	}
	return FromModel(company), nil
}

func (s *service) ListUsers(ctx context.Context, userID, companyID uuid.UUID) ([]memberships.CompanyUserDTO, error) {
	ok, err := s.memberships.UserHasRole(ctx, userID, companyID, enums.MemberRoleAdmin)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check membership")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient company role")
	}

	members, err := s.memberships.ListCompanyUsers(ctx, companyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list company users")
	}
	return members, nil
}

func (s *service) InviteUser(ctx context.Context, inviterID, companyID uuid.UUID, input InviteUserInput) (*memberships.CompanyUserDTO, string, error) {
	ok, err := s.memberships.UserHasRole(ctx, inviterID, companyID, enums.MemberRoleAdmin)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check membership")
	}
	if !ok {
		return nil, "", pkgerrors.New(pkgerrors.CodeForbidden, "insufficient company role")
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if !input.Role.IsValid() {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}

	var usr *models.User
	var tempPassword string
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			usr, tempPassword, err = s.createNewUser(ctx, email, input.FirstName, input.LastName, companyID)
			if err != nil {
				return nil, "", err
			}
		} else {
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
		}
	} else {
		usr = user
	}

	membership, err := s.memberships.GetMembership(ctx, usr.ID, companyID)
	if err == nil && membership != nil {
		dto, fetchErr := s.fetchCompanyUser(ctx, companyID, usr.ID)
		if fetchErr != nil {
			return nil, "", fetchErr
		}
		return dto, "", nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check membership")
	}

	if tempPassword == "" {
		tempPassword, err = s.resetUserPassword(ctx, usr.ID)
		if err != nil {
			return nil, "", err
		}
	}

	if _, err := s.memberships.CreateMembership(ctx, companyID, usr.ID, input.Role, &inviterID, enums.MembershipStatusInvited); err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create membership")
	}

	dto, fetchErr := s.fetchCompanyUser(ctx, companyID, usr.ID)
	if fetchErr != nil {
		return nil, "", fetchErr
	}
	return dto, tempPassword, nil
}

func (s *service) RemoveUser(ctx context.Context, actorID, companyID, targetUserID uuid.UUID) error {
	ok, err := s.memberships.UserHasRole(ctx, actorID, companyID, enums.MemberRoleAdmin)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check membership")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeForbidden, "insufficient company role")
	}

	membership, err := s.memberships.GetMembership(ctx, targetUserID, companyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "membership not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load membership")
	}

	if membership.Role == enums.MemberRoleAdmin {
		count, err := s.memberships.CountMembersWithRoles(ctx, companyID, enums.MemberRoleAdmin)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count admins")
		}
		if count <= 1 {
			return pkgerrors.New(pkgerrors.CodeConflict, "cannot remove last admin")
		}
	}

	if err := s.memberships.DeleteMembership(ctx, companyID, targetUserID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete membership")
	}

	return nil
}
