package domain

import "fmt"

// Role is the permission tier a membership grants within one organization.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleViewer Role = "viewer"
)

// rank orders roles for hierarchy checks. Unknown roles rank below every
// valid role.
func (r Role) rank() int {
	switch r {
	case RoleOwner:
		return 2
	case RoleAdmin:
		return 1
	case RoleViewer:
		return 0
	default:
		return -1
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r.rank() >= 0
}

// AtLeast reports whether r ranks at or above threshold. It is false when
// either role is unknown.
func (r Role) AtLeast(threshold Role) bool {
	if !r.Valid() || !threshold.Valid() {
		return false
	}
	return r.rank() >= threshold.rank()
}

// ParseRole converts a stored role string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// CanManageTasks reports whether the role may create, update or delete tasks.
func CanManageTasks(r Role) bool {
	return r.AtLeast(RoleAdmin)
}

// CanViewTasks reports whether the role may read tasks. Every valid role can.
func CanViewTasks(r Role) bool {
	return r.Valid()
}

// CanViewAuditLogs reports whether the role may read the audit trail.
func CanViewAuditLogs(r Role) bool {
	return r.AtLeast(RoleAdmin)
}
