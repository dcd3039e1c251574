package domain

import "time"

// Permission statuses.
const (
	PermissionPending   = "PENDING"
	PermissionPublished = "PUBLISHED"
	PermissionFailed    = "FAILED"
	PermissionManual    = "MANUAL"
)

// Wildcard is both the "every field" field name and the "all values" value.
const Wildcard = "*"

// Permission is one row-filter rule: principal may see rows whose Field is one of RLSValues.
type Permission struct {
	ID           string
	DataSetArn   string
	UserGroupArn string
	Field        string
	RLSValues    string // comma-separated, or "*"
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsWildcard reports whether this is the single "everything" rule for its principal.
func (p Permission) IsWildcard() bool {
	return p.Field == Wildcard && p.RLSValues == Wildcard
}

// CreatePermissionRequest holds parameters for creating a permission.
type CreatePermissionRequest struct {
	DataSetArn   string
	UserGroupArn string
	Field        string
	RLSValues    string
	Status       string
}

// Validate checks that the request is well-formed.
func (r *CreatePermissionRequest) Validate() error {
	if r.DataSetArn == "" {
		return ErrValidation("dataSetArn is required")
	}
	if r.UserGroupArn == "" {
		return ErrValidation("userGroupArn is required")
	}
	if PrincipalKind(r.UserGroupArn) == "" {
		return ErrValidation("userGroupArn %q is neither a user nor a group ARN", r.UserGroupArn)
	}
	if r.Field == "" {
		return ErrValidation("field is required")
	}
	if r.RLSValues == "" {
		return ErrValidation("rlsValues is required (use %q for all values)", Wildcard)
	}
	if r.Status != "" && !validPermissionStatus(r.Status) {
		return ErrValidation("invalid status %q", r.Status)
	}
	return nil
}

// UpdatePermissionRequest holds the mutable fields of a permission.
type UpdatePermissionRequest struct {
	Field     *string
	RLSValues *string
	Status    *string
}

// Validate checks that the request is well-formed.
func (r *UpdatePermissionRequest) Validate() error {
	if r.Field != nil && *r.Field == "" {
		return ErrValidation("field must not be empty")
	}
	if r.RLSValues != nil && *r.RLSValues == "" {
		return ErrValidation("rlsValues must not be empty")
	}
	if r.Status != nil && !validPermissionStatus(*r.Status) {
		return ErrValidation("invalid status %q", *r.Status)
	}
	return nil
}

func validPermissionStatus(s string) bool {
	switch s {
	case PermissionPending, PermissionPublished, PermissionFailed, PermissionManual:
		return true
	}
	return false
}
