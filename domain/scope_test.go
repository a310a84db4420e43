package domain

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestAccessibleOrganizationIDsIncludesSelfAndChildren(t *testing.T) {
	dir := &fakeDirectory{children: map[string][]string{
		"techcorp": {"techcorp-sales", "techcorp-eng"},
	}}
	resolver := NewScopeResolver(dir)

	ids, err := resolver.AccessibleOrganizationIDs(context.Background(), "techcorp")
	if err != nil {
		t.Fatalf("resolve scope: %v", err)
	}
	want := []string{"techcorp", "techcorp-sales", "techcorp-eng"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("unexpected scope: %v", ids)
	}
}

func TestAccessibleOrganizationIDsExcludesGrandchildren(t *testing.T) {
	dir := &fakeDirectory{children: map[string][]string{
		"root":  {"child"},
		"child": {"grandchild"},
	}}
	resolver := NewScopeResolver(dir)

	ids, err := resolver.AccessibleOrganizationIDs(context.Background(), "root")
	if err != nil {
		t.Fatalf("resolve scope: %v", err)
	}
	for _, id := range ids {
		if id == "grandchild" {
			t.Fatal("scope must not recurse into grandchildren")
		}
	}
	if len(ids) != 2 {
		t.Fatalf("unexpected scope size: %v", ids)
	}
}

func TestAccessibleOrganizationIDsNoChildren(t *testing.T) {
	resolver := NewScopeResolver(&fakeDirectory{})

	ids, err := resolver.AccessibleOrganizationIDs(context.Background(), "lonely")
	if err != nil {
		t.Fatalf("resolve scope: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"lonely"}) {
		t.Fatalf("unexpected scope: %v", ids)
	}
}

func TestAccessibleOrganizationIDsDeduplicates(t *testing.T) {
	dir := &fakeDirectory{children: map[string][]string{
		"org": {"child", "child", "org"},
	}}
	resolver := NewScopeResolver(dir)

	ids, err := resolver.AccessibleOrganizationIDs(context.Background(), "org")
	if err != nil {
		t.Fatalf("resolve scope: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"org", "child"}) {
		t.Fatalf("expected deduplicated scope, got %v", ids)
	}
}

func TestAccessibleOrganizationIDsPropagatesLookupFailure(t *testing.T) {
	lookupErr := errors.New("directory unavailable")
	resolver := NewScopeResolver(&fakeDirectory{err: lookupErr})

	ids, err := resolver.AccessibleOrganizationIDs(context.Background(), "org")
	if ids != nil {
		t.Fatalf("failed resolution must not yield a scope, got %v", ids)
	}
	var orgErr *OrganizationLookupError
	if !errors.As(err, &orgErr) {
		t.Fatalf("expected OrganizationLookupError, got %v", err)
	}
	if !errors.Is(err, lookupErr) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}
