package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog is one immutable entry in the append-only audit trail. ActorID is
// nil for actions performed by the system itself. Rows are never updated or
// deleted.
type AuditLog struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	ActorID      *uint             `gorm:"index" json:"actor_id"`
	Action       string            `gorm:"size:64;not null;index" json:"action"`
	ResourceType string            `gorm:"size:64;not null;index" json:"resource_type"`
	ResourceID   *uint             `json:"resource_id"`
	Details      datatypes.JSONMap `gorm:"type:json" json:"details"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Auditable action labels.
const (
	ActionEvaluationSubmitted  = "evaluation.submitted"
	ActionFormCreated          = "form.created"
	ActionFormUpdated          = "form.updated"
	ActionFormDeadlineExtended = "form.deadline_extended"
	ActionLatePermissionGrant  = "form.late_permission_granted"
	ActionLatePermissionRevoke = "form.late_permission_revoked"
	ActionReportViewed         = "report.viewed"
)
