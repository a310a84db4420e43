package api

import "orgboard-api/domain"

const taskBodyMaxSize = 64 * 1024 // 64 KiB

// POST /api/sessions response body
type sessionResponse struct {
	UserID         string      `json:"userId"`
	OrganizationID string      `json:"organizationId"`
	Role           domain.Role `json:"role"`
}

// GET /api/tasks response body
type tasksResponse struct {
	Tasks []domain.Task `json:"tasks"`
}

// GET /api/audit-log response body
type auditLogResponse struct {
	Entries []domain.AuditEntry `json:"entries"`
}
