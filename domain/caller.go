package domain

// Caller is the validated identity a request acts under. It is constructed
// once at the transport boundary from the bearer token's subject, the
// explicitly chosen organization and the stored membership role, and never
// re-derived inside handlers.
type Caller struct {
	UserID         string `json:"userId"`
	OrganizationID string `json:"organizationId"`
	Role           Role   `json:"role"`
}

// Organization is a tenant. ParentID is empty for root organizations; the
// hierarchy is at most one level deep (children of a root), which the
// provisioning path enforces.
type Organization struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parentId,omitempty"`
}

// Membership binds one user to one organization with one role. There is at
// most one membership per (user, organization) pair.
type Membership struct {
	UserID         string `json:"userId"`
	OrganizationID string `json:"organizationId"`
	Role           Role   `json:"role"`
}
