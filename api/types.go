package api

import (
	"context"

	"orgboard-api/domain"
)

// TaskAccess abstracts the organization-scoped task operations for handlers.
type TaskAccess interface {
	FindAll(ctx context.Context, callerOrgID string) ([]domain.Task, error)
	FindOne(ctx context.Context, taskID, callerOrgID string) (*domain.Task, error)
	Create(ctx context.Context, draft domain.TaskDraft, callerOrgID, callerUserID string) (*domain.Task, error)
	Update(ctx context.Context, taskID string, patch domain.TaskPatch, callerOrgID, callerUserID string) (*domain.Task, error)
	Remove(ctx context.Context, taskID, callerOrgID, callerUserID string) error
}

// AuditLog abstracts the audit trail for handlers. Mutating task operations
// record their own entries inside TaskAccess; handlers only record logins,
// denials and serve queries.
type AuditLog interface {
	RecordLogin(ctx context.Context, userID, organizationID string) error
	RecordPermissionDenied(ctx context.Context, userID, organizationID, action, resource, reason string) error
	FindByOrganization(ctx context.Context, organizationID string, limit int) ([]domain.AuditEntry, error)
}

// Authenticator is implemented by types able to extract caller identities
// from headers.
type Authenticator interface {
	IdentityFromAuthHeader(string) (Identity, error)
}

// MembershipSource resolves the stored membership backing a token identity.
// A nil membership without an error means the user holds no role in that
// organization.
type MembershipSource interface {
	Membership(ctx context.Context, userID, orgID string) (*domain.Membership, error)
}

// Deduper prevents reprocessing of duplicate task creations.
type Deduper interface {
	// Add records the idempotency key and returns true if it was newly added.
	Add(ctx context.Context, userID, key string) (bool, error)
	// Remove deletes a previously added key, used when downstream processing fails.
	Remove(ctx context.Context, userID, key string) error
}
