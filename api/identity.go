package api

import (
	"context"
	"fmt"

	"orgboard-api/domain"
)

// callerResolver turns a verified token identity into a full caller by
// loading the membership for the organization the token names. The role
// always comes from storage, never from token claims.
type callerResolver struct {
	auth        Authenticator
	memberships MembershipSource
}

func (r callerResolver) Resolve(ctx context.Context, authHeader string) (*domain.Caller, error) {
	identity, err := r.auth.IdentityFromAuthHeader(authHeader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNotAuthenticated, err)
	}
	membership, err := r.memberships.Membership(ctx, identity.UserID, identity.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("membership lookup: %w", err)
	}
	if membership == nil || !membership.Role.Valid() {
		return nil, domain.ErrNoRole
	}
	return &domain.Caller{
		UserID:         identity.UserID,
		OrganizationID: identity.OrganizationID,
		Role:           membership.Role,
	}, nil
}
