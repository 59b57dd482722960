package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradewind-labs/tradedesk-backend/internal/companies"
	"github.com/tradewind-labs/tradedesk-backend/internal/memberships"
	"github.com/tradewind-labs/tradedesk-backend/internal/users"
	"github.com/tradewind-labs/tradedesk-backend/pkg/config"
	"github.com/tradewind-labs/tradedesk-backend/pkg/db"
	"github.com/tradewind-labs/tradedesk-backend/pkg/db/models"
	"github.com/tradewind-labs/tradedesk-backend/pkg/enums"
	pkgerrors "github.com/tradewind-labs/tradedesk-backend/pkg/errors"
	"github.com/tradewind-labs/tradedesk-backend/pkg/security"
)

// RegisterRequest contains the payload for onboarding a company. A new user
// is created when the email is unknown; an existing user who presents their
// current password gets a second company instead. Either way the requester
// becomes the company's admin.
type RegisterRequest struct {
	FirstName    string  `json:"first_name" validate:"required"`
	LastName     string  `json:"last_name" validate:"required"`
	Email        string  `json:"email" validate:"required,email"`
	Password     string  `json:"password" validate:"required,min=8"`
	Phone        *string `json:"phone,omitempty"`
	CompanyName  string  `json:"company_name" validate:"required"`
	BaseCurrency *string `json:"base_currency,omitempty" validate:"omitempty,len=3"`
}

// RegisterService handles the onboarding transaction.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type registerUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	UpdateCompanyIDs(ctx context.Context, id uuid.UUID, companyIDs []uuid.UUID) error
}

type registerCompanyRepository interface {
	Create(ctx context.Context, dto companies.CreateCompanyDTO) (*models.Company, error)
}

type registerMembershipRepository interface {
	CreateMembership(ctx context.Context, companyID, userID uuid.UUID, role enums.MemberRole, invitedBy *uuid.UUID, status enums.MembershipStatus) (*models.CompanyMembership, error)
}

// RegisterServiceParams packages the dependencies for the registration flow.
// The factories receive the transaction the flow runs in.
type RegisterServiceParams struct {
	TxRunner              txRunner
	UserRepoFactory       func(tx *gorm.DB) registerUserRepository
	CompanyRepoFactory    func(tx *gorm.DB) registerCompanyRepository
	MembershipRepoFactory func(tx *gorm.DB) registerMembershipRepository
	PasswordConfig        config.PasswordConfig
}

type registerService struct {
	tx             txRunner
	userRepo       func(tx *gorm.DB) registerUserRepository
	companyRepo    func(tx *gorm.DB) registerCompanyRepository
	membershipRepo func(tx *gorm.DB) registerMembershipRepository
	passwordCfg    config.PasswordConfig
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.TxRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.UserRepoFactory == nil || params.CompanyRepoFactory == nil || params.MembershipRepoFactory == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "repository factories required")
	}
	return &registerService{
		tx:             params.TxRunner,
		userRepo:       params.UserRepoFactory,
		companyRepo:    params.CompanyRepoFactory,
		membershipRepo: params.MembershipRepoFactory,
		passwordCfg:    params.PasswordConfig,
	}, nil
}

// DefaultRegisterServiceParams wires the registration flow against the real
// database repositories.
func DefaultRegisterServiceParams(client *db.Client, passwordCfg config.PasswordConfig) RegisterServiceParams {
	return RegisterServiceParams{
		TxRunner: client,
		UserRepoFactory: func(tx *gorm.DB) registerUserRepository {
			return users.NewRepository(tx)
		},
		CompanyRepoFactory: func(tx *gorm.DB) registerCompanyRepository {
			return companies.NewRepository(tx)
		},
		MembershipRepoFactory: func(tx *gorm.DB) registerMembershipRepository {
			return memberships.NewRepository(tx)
		},
		PasswordConfig: passwordCfg,
	}
}

func (s *registerService) Register(ctx context.Context, req RegisterRequest) error {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	companyName := strings.TrimSpace(req.CompanyName)
	if companyName == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "company name is required")
	}
	var baseCurrency *string
	if req.BaseCurrency != nil {
		normalized := strings.ToUpper(strings.TrimSpace(*req.BaseCurrency))
		if len(normalized) != 3 {
			return pkgerrors.New(pkgerrors.CodeValidation, "base currency must be a 3-letter code")
		}
		baseCurrency = &normalized
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := s.userRepo(tx)
		companyRepo := s.companyRepo(tx)
		membershipRepo := s.membershipRepo(tx)

		user, err := s.resolveUser(ctx, userRepo, email, req)
		if err != nil {
			return err
		}

		company, err := companyRepo.Create(ctx, companies.CreateCompanyDTO{
			Name:         companyName,
			BaseCurrency: baseCurrency,
			OwnerID:      user.ID,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create company")
		}

		if _, err := membershipRepo.CreateMembership(
			ctx,
			company.ID,
			user.ID,
			enums.MemberRoleAdmin,
			nil,
			enums.MembershipStatusActive,
		); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create membership")
		}

		companyIDs := append([]uuid.UUID(nil), user.CompanyIDs...)
		companyIDs = append(companyIDs, company.ID)
		if err := userRepo.UpdateCompanyIDs(ctx, user.ID, companyIDs); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "associate company with user")
		}

		return nil
	})
}

func (s *registerService) resolveUser(ctx context.Context, userRepo registerUserRepository, email string, req RegisterRequest) (*models.User, error) {
	existing, err := userRepo.FindByEmail(ctx, email)
	if err == nil {
		valid, verr := security.VerifyPassword(req.Password, existing.PasswordHash)
		if verr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, verr, "verify password")
		}
		if !valid || !existing.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	user, err := userRepo.Create(ctx, users.CreateUserDTO{
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}
	return user, nil
}
