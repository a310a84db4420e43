package domain

import "context"

// OrganizationDirectory looks up organization hierarchy relations.
type OrganizationDirectory interface {
	// ChildOrganizationIDs returns the IDs of organizations whose parent is
	// parentID.
	ChildOrganizationIDs(ctx context.Context, parentID string) ([]string, error)
}

// ScopeResolver computes the set of organization IDs a caller's requests may
// read and write within: the caller's own organization plus its direct
// children. It descends exactly one level; deeper hierarchies are
// unsupported.
type ScopeResolver struct {
	dir OrganizationDirectory
}

func NewScopeResolver(dir OrganizationDirectory) ScopeResolver {
	return ScopeResolver{dir: dir}
}

// AccessibleOrganizationIDs returns orgID plus every direct child, without
// duplicates. Lookup failures propagate as OrganizationLookupError and are
// never downgraded to an empty scope.
func (r ScopeResolver) AccessibleOrganizationIDs(ctx context.Context, orgID string) ([]string, error) {
	children, err := r.dir.ChildOrganizationIDs(ctx, orgID)
	if err != nil {
		return nil, &OrganizationLookupError{Err: err}
	}
	ids := make([]string, 0, len(children)+1)
	ids = append(ids, orgID)
	seen := map[string]struct{}{orgID: {}}
	for _, id := range children {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}
