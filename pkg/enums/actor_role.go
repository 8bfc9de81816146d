package enums

import (
	"fmt"
	"strings"
)

// ActorRole is the platform role carried by an access token.
type ActorRole string

const (
	ActorRoleAdmin    ActorRole = "admin"
	ActorRoleSupplier ActorRole = "supplier"
	ActorRoleRider    ActorRole = "rider"
	ActorRoleShopper  ActorRole = "shopper"
)

var validActorRoles = []ActorRole{
	ActorRoleAdmin,
	ActorRoleSupplier,
	ActorRoleRider,
	ActorRoleShopper,
}

// String implements fmt.Stringer.
func (r ActorRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ActorRole.
func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseActorRole converts raw input into an ActorRole, ignoring case.
func ParseActorRole(value string) (ActorRole, error) {
	raw := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validActorRoles {
		if string(candidate) == raw {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
