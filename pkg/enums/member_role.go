package enums

import "fmt"

// MemberRole represents a company-level permissions role. Roles are scoped to
// a membership, not to the user: the same user can be finance in one company
// and auditor in another.
type MemberRole string

const (
	MemberRoleAdmin   MemberRole = "admin"
	MemberRoleFinance MemberRole = "finance"
	MemberRoleAuditor MemberRole = "auditor"
)

var validMemberRoles = []MemberRole{
	MemberRoleAdmin,
	MemberRoleFinance,
	MemberRoleAuditor,
}

// String implements fmt.Stringer.
func (m MemberRole) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MemberRole.
func (m MemberRole) IsValid() bool {
	for _, candidate := range validMemberRoles {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMemberRole converts raw input into a MemberRole.
func ParseMemberRole(value string) (MemberRole, error) {
	for _, candidate := range validMemberRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid member role %q", value)
}
