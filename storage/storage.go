package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"

	"orgboard-api/domain"
)

// organizations share a single partition; child lookups filter on ParentID.
const orgPartition = "org"

// Storage provides access to the four tenant tables and the optional audit
// export queue.
type Storage struct {
	orgTable        *aztables.Client
	membershipTable *aztables.Client
	taskTable       *aztables.Client
	auditTable      *aztables.Client
	exportQueue     *azqueue.QueueClient
}

// New creates a Storage from the given connection string. exportQueue may be
// empty, in which case ExportAuditEntry reports the queue as unconfigured.
func New(connStr, orgsTable, membershipsTable, tasksTable, auditTable, exportQueue string) (*Storage, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	s := &Storage{
		orgTable:        svc.NewClient(orgsTable),
		membershipTable: svc.NewClient(membershipsTable),
		taskTable:       svc.NewClient(tasksTable),
		auditTable:      svc.NewClient(auditTable),
	}
	if exportQueue != "" {
		queueClientOptions := azqueue.ClientOptions{
			ClientOptions: azcore.ClientOptions{
				Retry: policy.RetryOptions{
					MaxRetries:    3,
					TryTimeout:    time.Minute * 1,
					RetryDelay:    time.Second * 1,
					MaxRetryDelay: time.Second * 15,
					StatusCodes:   []int{408, 429, 500, 502, 503, 504},
				},
			},
		}
		q, err := azqueue.NewQueueClientFromConnectionString(connStr, exportQueue, &queueClientOptions)
		if err != nil {
			return nil, err
		}
		s.exportQueue = q
	}
	return s, nil
}

type orgEntity struct {
	aztables.Entity
	Name     string `json:"Name"`
	ParentID string `json:"ParentID"`
}

type membershipEntity struct {
	aztables.Entity
	Role string `json:"Role"`
}

type taskEntity struct {
	aztables.Entity
	Title           string `json:"Title"`
	Description     string `json:"Description"`
	Category        string `json:"Category"`
	Status          string `json:"Status"`
	Checklist       string `json:"Checklist"`
	SortOrder       int    `json:"SortOrder"`
	CreatedByUserID string `json:"CreatedByUserID"`
	AssigneeUserID  string `json:"AssigneeUserID"`
	CreatedAt       string `json:"CreatedAt"`
	UpdatedAt       string `json:"UpdatedAt"`
}

type auditEntity struct {
	aztables.Entity
	Action    string `json:"Action"`
	UserID    string `json:"UserID"`
	TaskID    string `json:"TaskID"`
	Details   string `json:"Details"`
	CreatedAt string `json:"CreatedAt"`
}

// ChildOrganizationIDs returns the IDs of organizations whose parent is
// parentID.
func (s *Storage) ChildOrganizationIDs(ctx context.Context, parentID string) ([]string, error) {
	filter := "PartitionKey eq '" + orgPartition + "' and ParentID eq '" + parentID + "'"
	pager := s.orgTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	ids := []string{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			var ent orgEntity
			if err := json.Unmarshal(e, &ent); err != nil {
				return nil, err
			}
			ids = append(ids, ent.RowKey)
		}
	}
	return ids, nil
}

// Membership returns the membership binding the user to the organization, or
// nil when none exists.
func (s *Storage) Membership(ctx context.Context, userID, orgID string) (*domain.Membership, error) {
	resp, err := s.membershipTable.GetEntity(ctx, userID, orgID, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var ent membershipEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return nil, err
	}
	return &domain.Membership{
		UserID:         ent.PartitionKey,
		OrganizationID: ent.RowKey,
		Role:           domain.Role(ent.Role),
	}, nil
}

// TasksByOrganization returns every task owned by one organization.
func (s *Storage) TasksByOrganization(ctx context.Context, orgID string) ([]domain.Task, error) {
	filter := "PartitionKey eq '" + orgID + "'"
	pager := s.taskTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			var ent taskEntity
			if err := json.Unmarshal(e, &ent); err != nil {
				return nil, err
			}
			task, err := taskFromEntity(ent)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

// TasksByOrganizations returns the tasks of every organization in the given
// scope.
func (s *Storage) TasksByOrganizations(ctx context.Context, orgIDs []string) ([]domain.Task, error) {
	tasks := []domain.Task{}
	for _, orgID := range orgIDs {
		orgTasks, err := s.TasksByOrganization(ctx, orgID)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, orgTasks...)
	}
	return tasks, nil
}

// TaskByID returns the task when it exists inside one of the given
// organizations, nil otherwise.
func (s *Storage) TaskByID(ctx context.Context, orgIDs []string, taskID string) (*domain.Task, error) {
	for _, orgID := range orgIDs {
		resp, err := s.taskTable.GetEntity(ctx, orgID, taskID, nil)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		var ent taskEntity
		if err := json.Unmarshal(resp.Value, &ent); err != nil {
			return nil, err
		}
		task, err := taskFromEntity(ent)
		if err != nil {
			return nil, err
		}
		return &task, nil
	}
	return nil, nil
}

// InsertTask adds a new task row.
func (s *Storage) InsertTask(ctx context.Context, task domain.Task) error {
	ent, err := taskToEntity(task)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		return err
	}
	_, err = s.taskTable.AddEntity(ctx, payload, nil)
	return err
}

// UpdateTask replaces an existing task row. Concurrent writers race
// last-write-wins at this layer.
func (s *Storage) UpdateTask(ctx context.Context, task domain.Task) error {
	ent, err := taskToEntity(task)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		return err
	}
	et := azcore.ETagAny
	_, err = s.taskTable.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{
		IfMatch:    &et,
		UpdateMode: aztables.UpdateModeReplace,
	})
	return err
}

// DeleteTask removes a task row. Deleting an already-deleted row is not an
// error.
func (s *Storage) DeleteTask(ctx context.Context, orgID, taskID string) error {
	_, err := s.taskTable.DeleteEntity(ctx, orgID, taskID, nil)
	if err != nil && isNotFound(err) {
		return nil
	}
	return err
}

// AppendAuditEntry persists one audit entry. Row keys embed the inverted
// creation timestamp so a partition scan yields entries newest first.
func (s *Storage) AppendAuditEntry(ctx context.Context, entry domain.AuditEntry) error {
	ent, err := auditToEntity(entry)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		return err
	}
	_, err = s.auditTable.AddEntity(ctx, payload, nil)
	return err
}

// AuditEntriesByOrganizations returns up to limit entries for the given
// organizations, newest first.
func (s *Storage) AuditEntriesByOrganizations(ctx context.Context, orgIDs []string, limit int) ([]domain.AuditEntry, error) {
	entries := []domain.AuditEntry{}
	for _, orgID := range orgIDs {
		partition, err := s.auditEntriesForOrganization(ctx, orgID, limit)
		if err != nil {
			return nil, err
		}
		entries = append(entries, partition...)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) })
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *Storage) auditEntriesForOrganization(ctx context.Context, orgID string, limit int) ([]domain.AuditEntry, error) {
	filter := "PartitionKey eq '" + orgID + "'"
	top := int32(limit)
	pager := s.auditTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter, Top: &top})
	entries := []domain.AuditEntry{}
	for pager.More() && len(entries) < limit {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			var ent auditEntity
			if err := json.Unmarshal(e, &ent); err != nil {
				return nil, err
			}
			entry, err := auditFromEntity(ent)
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
			if len(entries) == limit {
				break
			}
		}
	}
	return entries, nil
}

// ExportAuditEntry pushes the entry onto the export feed.
func (s *Storage) ExportAuditEntry(ctx context.Context, entry domain.AuditEntry) error {
	if s.exportQueue == nil {
		return errors.New("audit export queue not configured")
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = s.exportQueue.EnqueueMessage(ctx, string(data), nil)
	return err
}

// ExportConfigured reports whether the audit export queue is wired.
func (s *Storage) ExportConfigured() bool {
	return s.exportQueue != nil
}

func taskToEntity(task domain.Task) (taskEntity, error) {
	checklist := ""
	if len(task.Checklist) > 0 {
		data, err := json.Marshal(task.Checklist)
		if err != nil {
			return taskEntity{}, err
		}
		checklist = string(data)
	}
	return taskEntity{
		Entity: aztables.Entity{
			PartitionKey: task.OrganizationID,
			RowKey:       task.ID,
		},
		Title:           task.Title,
		Description:     task.Description,
		Category:        task.Category,
		Status:          task.Status,
		Checklist:       checklist,
		SortOrder:       task.SortOrder,
		CreatedByUserID: task.CreatedByUserID,
		AssigneeUserID:  task.AssigneeUserID,
		CreatedAt:       task.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:       task.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

func taskFromEntity(ent taskEntity) (domain.Task, error) {
	task := domain.Task{
		ID:              ent.RowKey,
		OrganizationID:  ent.PartitionKey,
		Title:           ent.Title,
		Description:     ent.Description,
		Category:        ent.Category,
		Status:          ent.Status,
		SortOrder:       ent.SortOrder,
		CreatedByUserID: ent.CreatedByUserID,
		AssigneeUserID:  ent.AssigneeUserID,
	}
	if ent.Checklist != "" {
		if err := json.Unmarshal([]byte(ent.Checklist), &task.Checklist); err != nil {
			return domain.Task{}, err
		}
	}
	var err error
	if task.CreatedAt, err = parseTime(ent.CreatedAt); err != nil {
		return domain.Task{}, err
	}
	if task.UpdatedAt, err = parseTime(ent.UpdatedAt); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

func auditToEntity(entry domain.AuditEntry) (auditEntity, error) {
	details := ""
	if entry.Details != nil {
		data, err := json.Marshal(entry.Details)
		if err != nil {
			return auditEntity{}, err
		}
		details = string(data)
	}
	return auditEntity{
		Entity: aztables.Entity{
			PartitionKey: entry.OrganizationID,
			RowKey:       auditRowKey(entry.CreatedAt, entry.ID),
		},
		Action:    string(entry.Action),
		UserID:    entry.UserID,
		TaskID:    entry.TaskID,
		Details:   details,
		CreatedAt: entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

func auditFromEntity(ent auditEntity) (domain.AuditEntry, error) {
	entry := domain.AuditEntry{
		ID:             auditEntryID(ent.RowKey),
		Action:         domain.AuditAction(ent.Action),
		UserID:         ent.UserID,
		OrganizationID: ent.PartitionKey,
		TaskID:         ent.TaskID,
	}
	if ent.Details != "" {
		if err := json.Unmarshal([]byte(ent.Details), &entry.Details); err != nil {
			return domain.AuditEntry{}, err
		}
	}
	var err error
	if entry.CreatedAt, err = parseTime(ent.CreatedAt); err != nil {
		return domain.AuditEntry{}, err
	}
	return entry, nil
}

// auditRowKey inverts the nanosecond timestamp so lexical row order within a
// partition is newest first; the entry ID keeps keys unique across
// instances.
func auditRowKey(createdAt time.Time, id string) string {
	return fmt.Sprintf("%020d-%s", math.MaxInt64-createdAt.UnixNano(), id)
}

func auditEntryID(rowKey string) string {
	if len(rowKey) > 21 {
		return rowKey[21:]
	}
	return rowKey
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == 404
}
