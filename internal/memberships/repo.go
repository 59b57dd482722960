package memberships

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradewind-labs/tradedesk-backend/pkg/db/models"
	"github.com/tradewind-labs/tradedesk-backend/pkg/enums"
)

// Repository exposes membership persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListUserCompanies returns the companies a user belongs to along with membership metadata.
func (r *Repository) ListUserCompanies(ctx context.Context, userID uuid.UUID) ([]MembershipWithCompany, error) {
	var rows []membershipWithCompanyRow

	err := r.db.WithContext(ctx).
		Model(&models.CompanyMembership{}).
		Select("company_memberships.*, companies.name AS company_name, companies.base_currency AS base_currency").
		Joins("JOIN companies ON companies.id = company_memberships.company_id").
		Where("company_memberships.user_id = ?", userID).
		Order("companies.name").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	return membershipRowsToDTO(rows), nil
}

// GetMembership retrieves a membership by user and company.
func (r *Repository) GetMembership(ctx context.Context, userID, companyID uuid.UUID) (*models.CompanyMembership, error) {
	var membership models.CompanyMembership
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND company_id = ?", userID, companyID).
		First(&membership).Error
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

// CreateMembership persists a new membership record.
func (r *Repository) CreateMembership(ctx context.Context, companyID, userID uuid.UUID, role enums.MemberRole, invitedBy *uuid.UUID, status enums.MembershipStatus) (*models.CompanyMembership, error) {
	if !role.IsValid() {
		return nil, fmt.Errorf("invalid member role %q", role)
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid membership status %q", status)
	}

	membership := &models.CompanyMembership{
		CompanyID:       companyID,
		UserID:          userID,
		Role:            role,
		Status:          status,
		InvitedByUserID: invitedBy,
	}

	if err := r.db.WithContext(ctx).Create(membership).Error; err != nil {
		return nil, err
	}
	return membership, nil
}

// UserHasRole reports whether the user holds one of the provided roles for the company.
func (r *Repository) UserHasRole(ctx context.Context, userID, companyID uuid.UUID, roles ...enums.MemberRole) (bool, error) {
	if len(roles) == 0 {
		return false, nil
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CompanyMembership{}).
		Where("user_id = ? AND company_id = ? AND role IN ?", userID, companyID, roles).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetMembershipWithCompany returns membership details joined with company metadata.
func (r *Repository) GetMembershipWithCompany(ctx context.Context, userID, companyID uuid.UUID) (*MembershipWithCompany, error) {
	var row membershipWithCompanyRow
	err := r.db.WithContext(ctx).
		Model(&models.CompanyMembership{}).
		Select("company_memberships.*, companies.name AS company_name, companies.base_currency AS base_currency").
		Joins("JOIN companies ON companies.id = company_memberships.company_id").
		Where("company_memberships.user_id = ? AND company_memberships.company_id = ?", userID, companyID).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	dto := membershipWithCompanyFromRow(row)
	return &dto, nil
}

// ListCompanyUsers returns memberships for the company along with user metadata.
func (r *Repository) ListCompanyUsers(ctx context.Context, companyID uuid.UUID) ([]CompanyUserDTO, error) {
	var rows []companyUserRow
	err := r.db.WithContext(ctx).
		Model(&models.CompanyMembership{}).
		Select("company_memberships.*, users.email, users.first_name, users.last_name, users.last_login_at").
		Joins("JOIN users ON users.id = company_memberships.user_id").
		Where("company_memberships.company_id = ?", companyID).
		Order("company_memberships.created_at").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return companyUsersFromRows(rows), nil
}

// DeleteMembership removes the membership tying the user to the company.
func (r *Repository) DeleteMembership(ctx context.Context, companyID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("company_id = ? AND user_id = ?", companyID, userID).
		Delete(&models.CompanyMembership{}).Error
}

// CountMembersWithRoles counts company members holding any of the provided roles.
func (r *Repository) CountMembersWithRoles(ctx context.Context, companyID uuid.UUID, roles ...enums.MemberRole) (int64, error) {
	if len(roles) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CompanyMembership{}).
		Where("company_id = ? AND role IN ?", companyID, roles).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// UpdateStatus flips the status on an existing membership.
func (r *Repository) UpdateStatus(ctx context.Context, membershipID uuid.UUID, status enums.MembershipStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid membership status %q", status)
	}
	return r.db.WithContext(ctx).
		Model(&models.CompanyMembership{}).
		Where("id = ?", membershipID).
		UpdateColumn("status", status).Error
}
