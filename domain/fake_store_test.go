package domain

import (
	"context"
	"errors"
	"sort"
)

type fakeDirectory struct {
	children map[string][]string
	err      error
}

func (f *fakeDirectory) ChildOrganizationIDs(ctx context.Context, parentID string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.children[parentID], nil
}

type fakeTaskStore struct {
	tasks map[string]Task // keyed by task ID

	insertErr error
	updateErr error
	deleteErr error
	lookupErr error

	deleted []string
}

func newFakeTaskStore(tasks ...Task) *fakeTaskStore {
	s := &fakeTaskStore{tasks: map[string]Task{}}
	for _, t := range tasks {
		s.tasks[t.ID] = t
	}
	return s
}

func (f *fakeTaskStore) inScope(orgIDs []string, orgID string) bool {
	for _, id := range orgIDs {
		if id == orgID {
			return true
		}
	}
	return false
}

func (f *fakeTaskStore) TasksByOrganizations(ctx context.Context, orgIDs []string) ([]Task, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	var out []Task
	for _, t := range f.tasks {
		if f.inScope(orgIDs, t.OrganizationID) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeTaskStore) TaskByID(ctx context.Context, orgIDs []string, taskID string) (*Task, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	t, ok := f.tasks[taskID]
	if !ok || !f.inScope(orgIDs, t.OrganizationID) {
		return nil, nil
	}
	copied := t
	return &copied, nil
}

func (f *fakeTaskStore) InsertTask(ctx context.Context, task Task) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	if _, exists := f.tasks[task.ID]; exists {
		return errors.New("task already exists")
	}
	f.tasks[task.ID] = task
	return nil
}

func (f *fakeTaskStore) UpdateTask(ctx context.Context, task Task) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.tasks[task.ID] = task
	return nil
}

func (f *fakeTaskStore) DeleteTask(ctx context.Context, orgID, taskID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.tasks, taskID)
	f.deleted = append(f.deleted, taskID)
	return nil
}

type fakeAuditStore struct {
	entries   []AuditEntry
	appendErr error
	queryErr  error

	queriedOrgs  []string
	queriedLimit int
}

func (f *fakeAuditStore) AppendAuditEntry(ctx context.Context, entry AuditEntry) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditStore) AuditEntriesByOrganizations(ctx context.Context, orgIDs []string, limit int) ([]AuditEntry, error) {
	f.queriedOrgs = orgIDs
	f.queriedLimit = limit
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var out []AuditEntry
	for _, e := range f.entries {
		for _, id := range orgIDs {
			if e.OrganizationID == id {
				out = append(out, e)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeExporter struct {
	exported []AuditEntry
	err      error
}

func (f *fakeExporter) ExportAuditEntry(ctx context.Context, entry AuditEntry) error {
	if f.err != nil {
		return f.err
	}
	f.exported = append(f.exported, entry)
	return nil
}
