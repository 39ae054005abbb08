package dto

import (
	"time"

	"github.com/opetse/peereval-api/internal/models"
)

// AuditLogListRequest filters and paginates audit log queries.
type AuditLogListRequest struct {
	Page         int    `query:"page"`
	PageSize     int    `query:"page_size" validate:"omitempty,lte=500"`
	ActorID      uint   `query:"actor_id"`
	Action       string `query:"action"`
	ResourceType string `query:"resource_type"`
}

// AuditLogResponse serializes one audit trail entry.
type AuditLogResponse struct {
	ID           uint                   `json:"id"`
	ActorID      *uint                  `json:"actor_id"`
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resource_type"`
	ResourceID   *uint                  `json:"resource_id"`
	Details      map[string]interface{} `json:"details"`
	CreatedAt    time.Time              `json:"created_at"`
}

// PaginationMeta describes the page window of a list response.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// AuditLogListResponse pages through audit entries.
type AuditLogListResponse struct {
	Items      []AuditLogResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}

// NewAuditLogResponse converts an AuditLog model into a DTO.
func NewAuditLogResponse(model models.AuditLog) AuditLogResponse {
	return AuditLogResponse{
		ID:           model.ID,
		ActorID:      model.ActorID,
		Action:       model.Action,
		ResourceType: model.ResourceType,
		ResourceID:   model.ResourceID,
		Details:      model.Details,
		CreatedAt:    model.CreatedAt,
	}
}
