package domain

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleGuide     Role = "guide"
	RoleLeadGuide Role = "lead-guide"
	RoleAdmin     Role = "admin"
)

var knownRoles = []Role{RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin}

func (r Role) String() string {
	return string(r)
}

func (r Role) Valid() bool {
	for _, known := range knownRoles {
		if r == known {
			return true
		}
	}
	return false
}

// ParseRole maps a stored or configured role name onto the closed role set.
func ParseRole(value string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", value)
	}
	return role, nil
}

// RoleSet is an immutable set of roles built once at route registration.
type RoleSet struct {
	members map[Role]struct{}
}

func NewRoleSet(roles ...Role) RoleSet {
	members := make(map[Role]struct{}, len(roles))
	for _, role := range roles {
		members[role] = struct{}{}
	}
	return RoleSet{members: members}
}

// Allows reports whether role is a member. The empty set allows nothing.
func (s RoleSet) Allows(role Role) bool {
	_, ok := s.members[role]
	return ok
}

func (s RoleSet) Len() int {
	return len(s.members)
}
