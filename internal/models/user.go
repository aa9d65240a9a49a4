package models

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPER_ADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleInstructor UserRole = "INSTRUCTOR"
	RoleLearner    UserRole = "LEARNER"
)

// IsAdminTier reports whether the role bypasses cohort assignment checks.
func (r UserRole) IsAdminTier() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// NewPagination normalizes page inputs the same way the repositories do, so
// the metadata matches the query that actually ran.
func NewPagination(page, pageSize, total int) *Pagination {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return &Pagination{Page: page, PageSize: pageSize, TotalCount: total}
}
