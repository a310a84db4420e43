package domain

import "time"

// ChecklistItem is one entry of a task's ordered checklist.
type ChecklistItem struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Task is a single work item owned by exactly one organization. Organization
// and creator are fixed at creation and never patched.
type Task struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organizationId"`
	Title          string          `json:"title"`
	Description    string          `json:"description,omitempty"`
	Category       string          `json:"category,omitempty"`
	Status         string          `json:"status,omitempty"`
	Checklist      []ChecklistItem `json:"checklist,omitempty"`
	SortOrder      int             `json:"sortOrder,omitempty"`
	CreatedByUserID string         `json:"createdByUserId"`
	AssigneeUserID  string         `json:"assigneeUserId,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// TaskDraft carries client-supplied fields for task creation. Tenant
// assignment is never client-controlled, so it has no organization or
// creator fields.
type TaskDraft struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Status      string          `json:"status"`
	Checklist   []ChecklistItem `json:"checklist"`
	SortOrder   int             `json:"sortOrder"`
}

// TaskPatch carries a partial update. Nil fields were absent from the patch
// and stay untouched.
type TaskPatch struct {
	Title          *string          `json:"title"`
	Description    *string          `json:"description"`
	Category       *string          `json:"category"`
	Status         *string          `json:"status"`
	Checklist      *[]ChecklistItem `json:"checklist"`
	SortOrder      *int             `json:"sortOrder"`
	AssigneeUserID *string          `json:"assigneeUserId"`
}

// FieldChange is one before/after pair in an update diff.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// Diff computes the per-field change set a patch would apply to a task. Only
// fields present in the patch whose value differs from the stored value are
// included; an unchanged patch yields an empty map.
func Diff(existing Task, patch TaskPatch) map[string]FieldChange {
	changes := make(map[string]FieldChange)
	if patch.Title != nil && *patch.Title != existing.Title {
		changes["title"] = FieldChange{Old: existing.Title, New: *patch.Title}
	}
	if patch.Description != nil && *patch.Description != existing.Description {
		changes["description"] = FieldChange{Old: existing.Description, New: *patch.Description}
	}
	if patch.Category != nil && *patch.Category != existing.Category {
		changes["category"] = FieldChange{Old: existing.Category, New: *patch.Category}
	}
	if patch.Status != nil && *patch.Status != existing.Status {
		changes["status"] = FieldChange{Old: existing.Status, New: *patch.Status}
	}
	if patch.SortOrder != nil && *patch.SortOrder != existing.SortOrder {
		changes["sortOrder"] = FieldChange{Old: existing.SortOrder, New: *patch.SortOrder}
	}
	if patch.AssigneeUserID != nil && *patch.AssigneeUserID != existing.AssigneeUserID {
		changes["assigneeUserId"] = FieldChange{Old: existing.AssigneeUserID, New: *patch.AssigneeUserID}
	}
	if patch.Checklist != nil && !checklistsEqual(*patch.Checklist, existing.Checklist) {
		changes["checklist"] = FieldChange{Old: existing.Checklist, New: *patch.Checklist}
	}
	return changes
}

func checklistsEqual(a, b []ChecklistItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// apply merges the patch into the task. Organization, creator, identity and
// timestamps are left to the caller.
func (t *Task) apply(patch TaskPatch) {
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Category != nil {
		t.Category = *patch.Category
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.Checklist != nil {
		t.Checklist = *patch.Checklist
	}
	if patch.SortOrder != nil {
		t.SortOrder = *patch.SortOrder
	}
	if patch.AssigneeUserID != nil {
		t.AssigneeUserID = *patch.AssigneeUserID
	}
}
