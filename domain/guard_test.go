package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestAuthorizeNoRequirement(t *testing.T) {
	if err := Authorize(nil); err != nil {
		t.Fatalf("empty requirement must always succeed, got %v", err)
	}
	if err := Authorize(&Caller{UserID: "u", Role: RoleViewer}); err != nil {
		t.Fatalf("empty requirement must succeed for any caller, got %v", err)
	}
}

func TestAuthorizeUnauthenticated(t *testing.T) {
	if err := Authorize(nil, RoleAdmin); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestAuthorizeNoRole(t *testing.T) {
	caller := &Caller{UserID: "u", OrganizationID: "org"}
	if err := Authorize(caller, RoleAdmin); !errors.Is(err, ErrNoRole) {
		t.Fatalf("expected ErrNoRole, got %v", err)
	}
}

func TestAuthorizeHierarchyUpgrade(t *testing.T) {
	owner := &Caller{UserID: "u", OrganizationID: "org", Role: RoleOwner}
	if err := Authorize(owner, RoleAdmin); err != nil {
		t.Fatalf("owner must satisfy an admin requirement, got %v", err)
	}
	admin := &Caller{UserID: "u", OrganizationID: "org", Role: RoleAdmin}
	if err := Authorize(admin, RoleViewer); err != nil {
		t.Fatalf("admin must satisfy a viewer requirement, got %v", err)
	}
}

func TestAuthorizeInsufficientRoleListsRequirements(t *testing.T) {
	viewer := &Caller{UserID: "u", OrganizationID: "org", Role: RoleViewer}
	err := Authorize(viewer, RoleAdmin, RoleOwner)
	if err == nil {
		t.Fatal("expected denial for viewer")
	}
	var insufficient *InsufficientRoleError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientRoleError, got %T", err)
	}
	if len(insufficient.Required) != 2 {
		t.Fatalf("unexpected required roles: %v", insufficient.Required)
	}
	msg := err.Error()
	if !strings.Contains(msg, "admin") || !strings.Contains(msg, "owner") {
		t.Fatalf("denial message must enumerate required roles, got %q", msg)
	}
}

func TestAuthorizeAnyOfRequirement(t *testing.T) {
	admin := &Caller{UserID: "u", OrganizationID: "org", Role: RoleAdmin}
	if err := Authorize(admin, RoleOwner, RoleAdmin); err != nil {
		t.Fatalf("admin satisfies [owner, admin], got %v", err)
	}
}
