package models

import "strings"

// Role is the closed set of account roles.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Capability names something a role may be allowed to do.
type Capability int

const (
	// CapabilityModifyAnyResource lets the holder mutate resources it does not own.
	CapabilityModifyAnyResource Capability = iota
	// CapabilityManageUsers lets the holder list users and change their roles.
	CapabilityManageUsers
)

var roleCapabilities = map[Role][]Capability{
	RoleUser:  nil,
	RoleAdmin: {CapabilityModifyAnyResource, CapabilityManageUsers},
}

// Roles returns every known role.
func Roles() []Role {
	return []Role{RoleUser, RoleAdmin}
}

// ParseRole resolves a role name. Unknown names are rejected.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.TrimSpace(s))
	return r, r.Valid()
}

// Valid reports whether r is a member of the enumeration.
func (r Role) Valid() bool {
	_, ok := roleCapabilities[r]
	return ok
}

// HasCapability reports whether r grants capability.
func (r Role) HasCapability(capability Capability) bool {
	for _, c := range roleCapabilities[r] {
		if c == capability {
			return true
		}
	}
	return false
}

// CanModify is the single owner-or-admin rule used by every mutation path.
// Identifiers are compared in their canonical string form.
func CanModify(role Role, callerID, ownerID string) bool {
	if role.HasCapability(CapabilityModifyAnyResource) {
		return true
	}
	return callerID != "" && callerID == ownerID
}
