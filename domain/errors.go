package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotAuthenticated indicates the request carried no resolvable caller.
	ErrNotAuthenticated = errors.New("user not authenticated")

	// ErrNoRole indicates an authenticated caller with no membership in the
	// organization they are acting in.
	ErrNoRole = errors.New("user role not found")

	// ErrInvalidRole indicates a role value outside the known hierarchy.
	ErrInvalidRole = errors.New("invalid role")

	// ErrTaskNotFound covers both a missing task and a task outside the
	// caller's organization scope; the two cases are deliberately
	// indistinguishable.
	ErrTaskNotFound = errors.New("task not found")
)

// InsufficientRoleError is returned when the caller holds a valid role that
// does not satisfy any of the roles an operation requires.
type InsufficientRoleError struct {
	Required []Role
}

func (e *InsufficientRoleError) Error() string {
	names := make([]string, len(e.Required))
	for i, r := range e.Required {
		names[i] = string(r)
	}
	return "insufficient permissions, required roles: " + strings.Join(names, ", ")
}

// ValidationError reports malformed operation input before any write happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// OrganizationLookupError wraps a failure to resolve the organization scope.
// It always propagates; scope resolution never degrades to "no access".
type OrganizationLookupError struct {
	Err error
}

func (e *OrganizationLookupError) Error() string {
	return "organization lookup failed: " + e.Err.Error()
}

func (e *OrganizationLookupError) Unwrap() error { return e.Err }

// AuditWriteError reports that a mutation was durably persisted but the
// matching audit entry was not. The overall operation fails so operators are
// alerted to the incomplete trail.
type AuditWriteError struct {
	Err error
}

func (e *AuditWriteError) Error() string {
	return "audit write failed after mutation: " + e.Err.Error()
}

func (e *AuditWriteError) Unwrap() error { return e.Err }
