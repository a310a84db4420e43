package domain

import "time"

// AuditAction enumerates the event kinds recorded in the audit trail.
type AuditAction string

const (
	ActionLogin            AuditAction = "login"
	ActionCreateTask       AuditAction = "create_task"
	ActionUpdateTask       AuditAction = "update_task"
	ActionDeleteTask       AuditAction = "delete_task"
	ActionPermissionDenied AuditAction = "permission_denied"
)

// AuditEntry is one immutable record of a security- or state-relevant event.
// User, organization and task references are optional because the referenced
// entity may be removed after the fact; entries are never updated or deleted.
type AuditEntry struct {
	ID             string         `json:"id"`
	Action         AuditAction    `json:"action"`
	UserID         string         `json:"userId,omitempty"`
	OrganizationID string         `json:"organizationId,omitempty"`
	TaskID         string         `json:"taskId,omitempty"`
	Details        map[string]any `json:"details,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}
