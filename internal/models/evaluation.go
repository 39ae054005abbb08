package models

import "time"

// Evaluation records one evaluator's assessment of one teammate for one form.
// The (form, evaluator, evaluatee) tuple is unique at the storage layer so
// concurrent duplicate submissions cannot both commit.
type Evaluation struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	FormID          uint              `gorm:"not null;uniqueIndex:idx_evaluations_form_pair" json:"form_id"`
	EvaluatorID     uint              `gorm:"not null;uniqueIndex:idx_evaluations_form_pair" json:"evaluator_id"`
	EvaluateeID     uint              `gorm:"not null;uniqueIndex:idx_evaluations_form_pair" json:"evaluatee_id"`
	TeamID          uint              `gorm:"not null;index" json:"team_id"`
	TotalScore      float64           `gorm:"not null" json:"total_score"`
	WeightedScore   *float64          `json:"weighted_score"`
	ScorePercentage float64           `gorm:"not null" json:"score_percentage"`
	Comments        string            `gorm:"type:text" json:"comments"`
	LateSubmission  bool              `gorm:"not null;default:false" json:"late_submission"`
	SubmittedAt     time.Time         `gorm:"not null" json:"submitted_at"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	Form            EvaluationForm    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"form"`
	Team            Team              `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"team"`
	Evaluator       User              `gorm:"foreignKey:EvaluatorID" json:"evaluator"`
	Evaluatee       User              `gorm:"foreignKey:EvaluateeID" json:"evaluatee"`
	Scores          []EvaluationScore `gorm:"foreignKey:EvaluationID" json:"scores,omitempty"`
}

// EvaluationScore is the raw score one evaluation assigned to one criterion.
// An evaluation carries at most one row per criterion; the storage constraint
// backs up the validation in the submission pipeline.
type EvaluationScore struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	EvaluationID uint          `gorm:"not null;uniqueIndex:idx_evaluation_scores_criterion" json:"evaluation_id"`
	CriterionID  uint          `gorm:"not null;uniqueIndex:idx_evaluation_scores_criterion" json:"criterion_id"`
	Score        int           `gorm:"not null" json:"score"`
	Criterion    FormCriterion `gorm:"foreignKey:CriterionID" json:"criterion"`
}

// RawScores flattens the score rows into a criterion id keyed map, the shape
// the scoring calculator consumes.
func (e Evaluation) RawScores() map[uint]int {
	raw := make(map[uint]int, len(e.Scores))
	for _, score := range e.Scores {
		raw[score.CriterionID] = score.Score
	}
	return raw
}
