package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// DefaultAuditQueryLimit bounds audit queries when the caller supplies no
// limit.
const DefaultAuditQueryLimit = 100

// AuditStore persists audit entries and serves scoped queries.
type AuditStore interface {
	AppendAuditEntry(ctx context.Context, entry AuditEntry) error
	// AuditEntriesByOrganizations returns entries for the given organizations,
	// newest first, truncated to limit.
	AuditEntriesByOrganizations(ctx context.Context, orgIDs []string, limit int) ([]AuditEntry, error)
}

// AuditExporter forwards entries to a downstream feed after the durable
// write. Export is best-effort.
type AuditExporter interface {
	ExportAuditEntry(ctx context.Context, entry AuditEntry) error
}

// Recorder appends immutable audit entries and serves organization-scoped
// queries over them. The table write is the durable record: a failed append
// surfaces as AuditWriteError, while export-feed failures are only logged.
type Recorder struct {
	store    AuditStore
	exporter AuditExporter
	scope    ScopeResolver
	logger   *log.Logger
}

func NewRecorder(store AuditStore, exporter AuditExporter, scope ScopeResolver, logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Recorder{store: store, exporter: exporter, scope: scope, logger: logger}
}

// Record appends one entry. Empty user/organization/task IDs mean the entry
// carries no such reference.
func (r *Recorder) Record(ctx context.Context, action AuditAction, userID, organizationID, taskID string, details map[string]any) error {
	entry := AuditEntry{
		ID:             uuid.NewString(),
		Action:         action,
		UserID:         userID,
		OrganizationID: organizationID,
		TaskID:         taskID,
		Details:        details,
		CreatedAt:      nextTime(),
	}
	if err := r.store.AppendAuditEntry(ctx, entry); err != nil {
		return &AuditWriteError{Err: err}
	}
	if r.exporter != nil {
		if err := r.exporter.ExportAuditEntry(ctx, entry); err != nil {
			r.logger.WithFields(log.Fields{
				"entry":  entry.ID,
				"action": string(action),
			}).WithError(err).Warn("audit export enqueue failed")
		}
	}
	return nil
}

// RecordLogin records a successful authentication.
func (r *Recorder) RecordLogin(ctx context.Context, userID, organizationID string) error {
	return r.Record(ctx, ActionLogin, userID, organizationID, "", map[string]any{
		"timestamp": now(),
	})
}

// RecordTaskCreated records a task creation with the created title.
func (r *Recorder) RecordTaskCreated(ctx context.Context, userID, organizationID, taskID, taskTitle string) error {
	return r.Record(ctx, ActionCreateTask, userID, organizationID, taskID, map[string]any{
		"taskTitle": taskTitle,
		"timestamp": now(),
	})
}

// RecordTaskUpdated records a task update with its field-level diff. Callers
// must not invoke it with an empty change set; a no-op update produces no
// audit entry at all.
func (r *Recorder) RecordTaskUpdated(ctx context.Context, userID, organizationID, taskID string, changes map[string]FieldChange) error {
	return r.Record(ctx, ActionUpdateTask, userID, organizationID, taskID, map[string]any{
		"changes":   changes,
		"timestamp": now(),
	})
}

// RecordTaskDeleted records a task deletion with the title captured before
// the row was removed.
func (r *Recorder) RecordTaskDeleted(ctx context.Context, userID, organizationID, taskID, taskTitle string) error {
	return r.Record(ctx, ActionDeleteTask, userID, organizationID, taskID, map[string]any{
		"taskTitle": taskTitle,
		"timestamp": now(),
	})
}

// RecordPermissionDenied records a denied operation. The guard itself never
// logs; the calling layer invokes this after a denial.
func (r *Recorder) RecordPermissionDenied(ctx context.Context, userID, organizationID, action, resource, reason string) error {
	return r.Record(ctx, ActionPermissionDenied, userID, organizationID, "", map[string]any{
		"deniedAction": action,
		"resource":     resource,
		"reason":       reason,
		"timestamp":    now(),
	})
}

// FindByOrganization returns audit entries for the organization and its
// direct children, newest first. A non-positive limit falls back to
// DefaultAuditQueryLimit.
func (r *Recorder) FindByOrganization(ctx context.Context, organizationID string, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = DefaultAuditQueryLimit
	}
	orgIDs, err := r.scope.AccessibleOrganizationIDs(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	return r.store.AuditEntriesByOrganizations(ctx, orgIDs, limit)
}

func now() string {
	return nextTime().Format(time.RFC3339Nano)
}
