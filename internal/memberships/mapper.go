package memberships

import (
	"time"

	"github.com/tradewind-labs/tradedesk-backend/pkg/db/models"
)

type membershipWithCompanyRow struct {
	models.CompanyMembership
	CompanyName  string `gorm:"column:company_name"`
	BaseCurrency string `gorm:"column:base_currency"`
}

func membershipWithCompanyFromRow(row membershipWithCompanyRow) MembershipWithCompany {
	return MembershipWithCompany{
		MembershipID:    row.ID,
		CompanyID:       row.CompanyID,
		UserID:          row.UserID,
		CompanyName:     row.CompanyName,
		BaseCurrency:    row.BaseCurrency,
		Role:            row.Role,
		Status:          row.Status,
		InvitedByUserID: copyUUIDPointer(row.InvitedByUserID),
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}

func membershipRowsToDTO(rows []membershipWithCompanyRow) []MembershipWithCompany {
	out := make([]MembershipWithCompany, 0, len(rows))
	for _, row := range rows {
		out = append(out, membershipWithCompanyFromRow(row))
	}
	return out
}

type companyUserRow struct {
	models.CompanyMembership
	Email       string     `gorm:"column:email"`
	FirstName   string     `gorm:"column:first_name"`
	LastName    string     `gorm:"column:last_name"`
	LastLoginAt *time.Time `gorm:"column:last_login_at"`
}

func companyUsersFromRows(rows []companyUserRow) []CompanyUserDTO {
	out := make([]CompanyUserDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, CompanyUserDTO{
			MembershipID: row.ID,
			CompanyID:    row.CompanyID,
			UserID:       row.UserID,
			Email:        row.Email,
			FirstName:    row.FirstName,
			LastName:     row.LastName,
			Role:         row.Role,
			Status:       row.Status,
			CreatedAt:    row.CreatedAt,
			LastLoginAt:  row.LastLoginAt,
		})
	}
	return out
}
