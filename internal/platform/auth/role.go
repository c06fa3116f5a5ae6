package auth

import (
	"fmt"
	"strings"

	"github.com/mindful/mindful/internal/platform/apperr"
)

// Role is the closed set of platform roles.
type Role string

const (
	RolePatient    Role = "patient"
	RoleDoctor     Role = "doctor"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

var knownRoles = map[Role]bool{
	RolePatient:    true,
	RoleDoctor:     true,
	RoleAdmin:      true,
	RoleSuperAdmin: true,
}

// ParseRole converts s to a Role, rejecting anything outside the enum.
func ParseRole(s string) (Role, error) {
	r := Role(strings.TrimSpace(s))
	if !knownRoles[r] {
		return "", apperr.Validation("role", fmt.Sprintf("unknown role %q", s))
	}
	return r, nil
}

func (r Role) Valid() bool { return knownRoles[r] }

// Satisfies reports whether r may act as want. super_admin implies admin.
func (r Role) Satisfies(want Role) bool {
	if r == want {
		return true
	}
	return r == RoleSuperAdmin && want == RoleAdmin
}

// Authorize is the single access guard used by route middleware and by every
// workflow entry point.
func Authorize(role Role, allowed ...Role) error {
	for _, want := range allowed {
		if role.Satisfies(want) {
			return nil
		}
	}
	names := make([]string, len(allowed))
	for i, a := range allowed {
		names[i] = string(a)
	}
	return apperr.Forbidden(fmt.Sprintf("required role: %s", strings.Join(names, " or ")))
}
