package domain

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// TaskStore persists tasks. Lookups that find nothing return nil without an
// error so callers can map absence onto ErrTaskNotFound themselves.
type TaskStore interface {
	TasksByOrganizations(ctx context.Context, orgIDs []string) ([]Task, error)
	TaskByID(ctx context.Context, orgIDs []string, taskID string) (*Task, error)
	InsertTask(ctx context.Context, task Task) error
	UpdateTask(ctx context.Context, task Task) error
	DeleteTask(ctx context.Context, orgID, taskID string) error
}

// TaskService orchestrates organization-scoped task operations: it resolves
// the accessible scope, performs the read or write restricted to that scope
// and appends the matching audit entry for every mutation. Role checks happen
// in the calling layer before any of the mutating methods run.
type TaskService struct {
	store    TaskStore
	scope    ScopeResolver
	recorder *Recorder
}

func NewTaskService(store TaskStore, scope ScopeResolver, recorder *Recorder) *TaskService {
	return &TaskService{store: store, scope: scope, recorder: recorder}
}

// FindAll returns every task within the caller's organization scope. Reads
// are not audited.
func (s *TaskService) FindAll(ctx context.Context, callerOrgID string) ([]Task, error) {
	orgIDs, err := s.scope.AccessibleOrganizationIDs(ctx, callerOrgID)
	if err != nil {
		return nil, err
	}
	return s.store.TasksByOrganizations(ctx, orgIDs)
}

// FindOne returns the task with the given ID if it lies within the caller's
// scope. A task outside the scope is reported exactly like a task that does
// not exist.
func (s *TaskService) FindOne(ctx context.Context, taskID, callerOrgID string) (*Task, error) {
	orgIDs, err := s.scope.AccessibleOrganizationIDs(ctx, callerOrgID)
	if err != nil {
		return nil, err
	}
	task, err := s.store.TaskByID(ctx, orgIDs, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

// Create persists a new task stamped with the caller's organization and user
// ID, then records the creation. Any organization or creator supplied by the
// client has already been dropped by the input type.
func (s *TaskService) Create(ctx context.Context, draft TaskDraft, callerOrgID, callerUserID string) (*Task, error) {
	if strings.TrimSpace(draft.Title) == "" {
		return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	now := nextTime()
	task := Task{
		ID:              uuid.NewString(),
		OrganizationID:  callerOrgID,
		Title:           draft.Title,
		Description:     draft.Description,
		Category:        draft.Category,
		Status:          draft.Status,
		Checklist:       draft.Checklist,
		SortOrder:       draft.SortOrder,
		CreatedByUserID: callerUserID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.InsertTask(ctx, task); err != nil {
		return nil, err
	}
	if err := s.recorder.RecordTaskCreated(ctx, callerUserID, callerOrgID, task.ID, task.Title); err != nil {
		return nil, err
	}
	return &task, nil
}

// Update loads the task within scope, computes the field-level diff against
// the pre-mutation state, applies the patch and persists it. The diff is
// recorded only when non-empty: a no-op update leaves no audit entry.
func (s *TaskService) Update(ctx context.Context, taskID string, patch TaskPatch, callerOrgID, callerUserID string) (*Task, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	orgIDs, err := s.scope.AccessibleOrganizationIDs(ctx, callerOrgID)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.TaskByID(ctx, orgIDs, taskID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrTaskNotFound
	}

	changes := Diff(*existing, patch)
	existing.apply(patch)
	existing.UpdatedAt = nextTime()
	if err := s.store.UpdateTask(ctx, *existing); err != nil {
		return nil, err
	}
	if len(changes) > 0 {
		if err := s.recorder.RecordTaskUpdated(ctx, callerUserID, existing.OrganizationID, existing.ID, changes); err != nil {
			return nil, err
		}
	}
	return existing, nil
}

// Remove deletes the task within scope and records the deletion with the
// title captured before the row was removed.
func (s *TaskService) Remove(ctx context.Context, taskID, callerOrgID, callerUserID string) error {
	orgIDs, err := s.scope.AccessibleOrganizationIDs(ctx, callerOrgID)
	if err != nil {
		return err
	}
	existing, err := s.store.TaskByID(ctx, orgIDs, taskID)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrTaskNotFound
	}
	title := existing.Title
	if err := s.store.DeleteTask(ctx, existing.OrganizationID, existing.ID); err != nil {
		return err
	}
	return s.recorder.RecordTaskDeleted(ctx, callerUserID, existing.OrganizationID, existing.ID, title)
}
