package dto

import (
	"time"

	"github.com/opetse/peereval-api/internal/models"
)

// CriterionInput describes one rubric criterion in form create/update payloads.
type CriterionInput struct {
	Text      string   `json:"text" validate:"required,min=1,max=512"`
	MaxPoints int      `json:"max_points" validate:"required,gt=0"`
	Weight    *float64 `json:"weight" validate:"omitempty,gte=0,lte=100"`
}

// FormCreateRequest is the payload for creating an evaluation form.
type FormCreateRequest struct {
	ProjectID uint             `json:"project_id" validate:"required,gt=0"`
	Title     string           `json:"title" validate:"required,min=1,max=255"`
	MaxScore  int              `json:"max_score" validate:"required,gt=0"`
	Deadline  *time.Time       `json:"deadline"`
	Criteria  []CriterionInput `json:"criteria" validate:"required,min=1,dive"`
}

// FormCriteriaUpdateRequest replaces a form's criteria set. Rejected once the
// form is referenced by an evaluation.
type FormCriteriaUpdateRequest struct {
	Criteria []CriterionInput `json:"criteria" validate:"required,min=1,dive"`
}

// FormDeadlineRequest extends a form deadline; the only edit allowed once
// evaluations reference the form.
type FormDeadlineRequest struct {
	Deadline time.Time `json:"deadline" validate:"required"`
}

// LatePermissionRequest grants one user a late-submission window for a form.
type LatePermissionRequest struct {
	UserID       uint      `json:"user_id" validate:"required,gt=0"`
	AllowedUntil time.Time `json:"allowed_until" validate:"required"`
	Reason       string    `json:"reason" validate:"omitempty,max=512"`
}

// CriterionResponse serializes a rubric criterion.
type CriterionResponse struct {
	ID         uint     `json:"id"`
	Text       string   `json:"text"`
	MaxPoints  int      `json:"max_points"`
	Weight     *float64 `json:"weight"`
	OrderIndex int      `json:"order_index"`
}

// FormResponse is returned to API clients when viewing forms.
type FormResponse struct {
	ID        uint                `json:"id"`
	ProjectID uint                `json:"project_id"`
	Title     string              `json:"title"`
	MaxScore  int                 `json:"max_score"`
	Deadline  *time.Time          `json:"deadline"`
	Weighted  bool                `json:"weighted"`
	Criteria  []CriterionResponse `json:"criteria"`
	CreatedAt time.Time           `json:"created_at"`
}

// NewFormResponse converts an EvaluationForm model into a DTO.
func NewFormResponse(model models.EvaluationForm) FormResponse {
	criteria := make([]CriterionResponse, 0, len(model.Criteria))
	for _, criterion := range model.Criteria {
		criteria = append(criteria, CriterionResponse{
			ID:         criterion.ID,
			Text:       criterion.Text,
			MaxPoints:  criterion.MaxPoints,
			Weight:     criterion.Weight,
			OrderIndex: criterion.OrderIndex,
		})
	}

	return FormResponse{
		ID:        model.ID,
		ProjectID: model.ProjectID,
		Title:     model.Title,
		MaxScore:  model.MaxScore,
		Deadline:  model.Deadline,
		Weighted:  model.WeightingEnabled(),
		Criteria:  criteria,
		CreatedAt: model.CreatedAt,
	}
}

// LatePermissionResponse serializes a late-submission permission.
type LatePermissionResponse struct {
	ID           uint      `json:"id"`
	FormID       uint      `json:"form_id"`
	UserID       uint      `json:"user_id"`
	AllowedUntil time.Time `json:"allowed_until"`
	GrantedBy    uint      `json:"granted_by"`
	Reason       string    `json:"reason"`
	Active       bool      `json:"active"`
}

// NewLatePermissionResponse converts a LateSubmissionPermission model into a DTO.
func NewLatePermissionResponse(model models.LateSubmissionPermission) LatePermissionResponse {
	return LatePermissionResponse{
		ID:           model.ID,
		FormID:       model.FormID,
		UserID:       model.UserID,
		AllowedUntil: model.AllowedUntil,
		GrantedBy:    model.GrantedBy,
		Reason:       model.Reason,
		Active:       model.Active,
	}
}
