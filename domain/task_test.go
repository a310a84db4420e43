package domain

import (
	"reflect"
	"testing"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestDiffSingleChangedField(t *testing.T) {
	existing := Task{Title: "Complete Q4 Report", Category: "Work", Status: "todo"}
	patch := TaskPatch{Category: strPtr("Personal")}

	changes := Diff(existing, patch)
	want := map[string]FieldChange{
		"category": {Old: "Work", New: "Personal"},
	}
	if !reflect.DeepEqual(changes, want) {
		t.Fatalf("unexpected diff: %#v", changes)
	}
}

func TestDiffIgnoresUnchangedAndAbsentFields(t *testing.T) {
	existing := Task{Title: "Title", Category: "Work", SortOrder: 3}
	patch := TaskPatch{
		Title:     strPtr("Title"), // present but identical
		SortOrder: intPtr(3),
	}

	if changes := Diff(existing, patch); len(changes) != 0 {
		t.Fatalf("expected empty diff, got %#v", changes)
	}
}

func TestDiffMultipleFields(t *testing.T) {
	existing := Task{Title: "Old", Status: "todo", SortOrder: 1}
	patch := TaskPatch{
		Title:     strPtr("New"),
		Status:    strPtr("in_progress"),
		SortOrder: intPtr(5),
	}

	changes := Diff(existing, patch)
	if len(changes) != 3 {
		t.Fatalf("expected 3 changes, got %#v", changes)
	}
	if changes["title"] != (FieldChange{Old: "Old", New: "New"}) {
		t.Fatalf("unexpected title change: %#v", changes["title"])
	}
}

func TestDiffChecklist(t *testing.T) {
	existing := Task{Checklist: []ChecklistItem{{ID: "c1", Text: "step", Completed: false}}}

	same := TaskPatch{Checklist: &[]ChecklistItem{{ID: "c1", Text: "step", Completed: false}}}
	if changes := Diff(existing, same); len(changes) != 0 {
		t.Fatalf("identical checklist must not diff, got %#v", changes)
	}

	completed := TaskPatch{Checklist: &[]ChecklistItem{{ID: "c1", Text: "step", Completed: true}}}
	changes := Diff(existing, completed)
	if _, ok := changes["checklist"]; !ok || len(changes) != 1 {
		t.Fatalf("expected checklist change only, got %#v", changes)
	}
}

func TestApplyPatchPreservesOwnership(t *testing.T) {
	task := Task{
		ID:              "t1",
		OrganizationID:  "org-1",
		CreatedByUserID: "u1",
		Title:           "Old",
	}
	patch := TaskPatch{Title: strPtr("New"), AssigneeUserID: strPtr("u2")}
	task.apply(patch)

	if task.OrganizationID != "org-1" || task.CreatedByUserID != "u1" {
		t.Fatalf("patch must not touch organization or creator: %#v", task)
	}
	if task.Title != "New" || task.AssigneeUserID != "u2" {
		t.Fatalf("patch not applied: %#v", task)
	}
}
