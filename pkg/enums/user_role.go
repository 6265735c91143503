package enums

import "fmt"

// UserRole distinguishes shoppers from back-office operators.
type UserRole string

const (
	UserRoleCustomer UserRole = "customer"
	UserRoleAdmin    UserRole = "admin"
)

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	return r == UserRoleCustomer || r == UserRoleAdmin
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	role := UserRole(value)
	if !role.IsValid() {
		return "", fmt.Errorf("invalid user role %q", value)
	}
	return role, nil
}
