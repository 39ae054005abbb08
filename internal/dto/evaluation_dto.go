package dto

import (
	"strconv"
	"time"

	"github.com/opetse/peereval-api/internal/models"
	"github.com/opetse/peereval-api/internal/scoring"
)

// CriterionScoreInput is one raw score in a submission payload.
type CriterionScoreInput struct {
	CriterionID uint `json:"criterion_id" validate:"required,gt=0"`
	Score       int  `json:"score" validate:"gte=0"`
}

// EvaluationSubmitRequest is the payload for submitting a peer evaluation.
// The evaluator is taken from the authenticated context, never from the body.
type EvaluationSubmitRequest struct {
	FormID      uint                  `json:"form_id" validate:"required,gt=0"`
	TeamID      uint                  `json:"team_id" validate:"required,gt=0"`
	EvaluateeID uint                  `json:"evaluatee_id" validate:"required,gt=0"`
	Scores      []CriterionScoreInput `json:"scores" validate:"required,min=1,dive"`
	Comments    string                `json:"comments" validate:"omitempty,max=4000"`
}

// RawScores flattens the submitted scores into the map shape the scoring
// calculator consumes.
func (r EvaluationSubmitRequest) RawScores() map[uint]int {
	raw := make(map[uint]int, len(r.Scores))
	for _, score := range r.Scores {
		raw[score.CriterionID] = score.Score
	}
	return raw
}

// EvaluationFilter narrows evaluation list queries.
type EvaluationFilter struct {
	FormID      *uint `query:"form_id"`
	TeamID      *uint `query:"team_id"`
	EvaluatorID *uint `query:"evaluator_id"`
	EvaluateeID *uint `query:"evaluatee_id"`
}

// EvaluatorRef identifies the evaluator in responses. The id is a string so
// the anonymity filter can substitute the "anonymous" sentinel without
// changing the payload shape.
type EvaluatorRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserLite summarizes a user without exposing full profile data.
type UserLite struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// TeamLite summarizes a team in nested payloads.
type TeamLite struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// FormLite summarizes a form in nested payloads.
type FormLite struct {
	ID       uint       `json:"id"`
	Title    string     `json:"title"`
	MaxScore int        `json:"max_score"`
	Deadline *time.Time `json:"deadline"`
}

// EvaluationScoreResponse serializes one per-criterion score row.
type EvaluationScoreResponse struct {
	CriterionID   uint   `json:"criterion_id"`
	CriterionText string `json:"criterion_text"`
	Score         int    `json:"score"`
	MaxPoints     int    `json:"max_points"`
}

// EvaluationResponse is returned to API clients when viewing evaluations.
// EvaluatorIDHidden is set by the anonymity filter for unprivileged viewers.
type EvaluationResponse struct {
	ID                uint                      `json:"id"`
	FormID            uint                      `json:"form_id"`
	TeamID            uint                      `json:"team_id"`
	Evaluator         EvaluatorRef              `json:"evaluator"`
	EvaluatorIDHidden bool                      `json:"evaluator_id_hidden"`
	Evaluatee         UserLite                  `json:"evaluatee"`
	TotalScore        float64                   `json:"total_score"`
	WeightedScore     *float64                  `json:"weighted_score"`
	ScorePercentage   float64                   `json:"score_percentage"`
	Comments          string                    `json:"comments"`
	LateSubmission    bool                      `json:"late_submission"`
	SubmittedAt       time.Time                 `json:"submitted_at"`
	Team              TeamLite                  `json:"team"`
	Form              FormLite                  `json:"form"`
	Scores            []EvaluationScoreResponse `json:"scores"`
	Breakdown         []scoring.CriterionScore  `json:"weighted_breakdown,omitempty"`
}

// NewEvaluationResponse converts an Evaluation model into a DTO.
func NewEvaluationResponse(model models.Evaluation) EvaluationResponse {
	response := EvaluationResponse{
		ID:              model.ID,
		FormID:          model.FormID,
		TeamID:          model.TeamID,
		TotalScore:      model.TotalScore,
		WeightedScore:   model.WeightedScore,
		ScorePercentage: model.ScorePercentage,
		Comments:        model.Comments,
		LateSubmission:  model.LateSubmission,
		SubmittedAt:     model.SubmittedAt,
	}

	if model.Evaluator.ID != 0 {
		response.Evaluator = EvaluatorRef{
			ID:    strconv.FormatUint(uint64(model.Evaluator.ID), 10),
			Name:  model.Evaluator.Name,
			Email: model.Evaluator.Email,
		}
	} else {
		response.Evaluator = EvaluatorRef{ID: strconv.FormatUint(uint64(model.EvaluatorID), 10)}
	}

	if model.Evaluatee.ID != 0 {
		response.Evaluatee = UserLite{
			ID:    model.Evaluatee.ID,
			Name:  model.Evaluatee.Name,
			Email: model.Evaluatee.Email,
		}
	} else {
		response.Evaluatee = UserLite{ID: model.EvaluateeID}
	}

	if model.Team.ID != 0 {
		response.Team = TeamLite{ID: model.Team.ID, Name: model.Team.Name}
	}

	if model.Form.ID != 0 {
		response.Form = FormLite{
			ID:       model.Form.ID,
			Title:    model.Form.Title,
			MaxScore: model.Form.MaxScore,
			Deadline: model.Form.Deadline,
		}
	}

	if len(model.Scores) > 0 {
		scores := make([]EvaluationScoreResponse, 0, len(model.Scores))
		for _, score := range model.Scores {
			scores = append(scores, EvaluationScoreResponse{
				CriterionID:   score.CriterionID,
				CriterionText: score.Criterion.Text,
				Score:         score.Score,
				MaxPoints:     score.Criterion.MaxPoints,
			})
		}
		response.Scores = scores
	}

	return response
}

// NewEvaluationResponseSlice converts evaluation models into DTOs.
func NewEvaluationResponseSlice(evaluations []models.Evaluation) []EvaluationResponse {
	responses := make([]EvaluationResponse, 0, len(evaluations))
	for _, evaluation := range evaluations {
		responses = append(responses, NewEvaluationResponse(evaluation))
	}
	return responses
}
