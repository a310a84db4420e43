package domain

// Authorize decides whether the caller may perform an operation requiring any
// of the given roles. An empty requirement always succeeds. The check is pure
// decision logic: denial logging is the calling layer's responsibility so the
// guard stays testable without I/O.
//
// A requirement is satisfied by the required role or any role ranking above
// it, so an Owner passes an Admin requirement and any valid role passes a
// Viewer requirement.
func Authorize(caller *Caller, required ...Role) error {
	if len(required) == 0 {
		return nil
	}
	if caller == nil {
		return ErrNotAuthenticated
	}
	if !caller.Role.Valid() {
		return ErrNoRole
	}
	for _, req := range required {
		if caller.Role.AtLeast(req) {
			return nil
		}
	}
	return &InsufficientRoleError{Required: required}
}
