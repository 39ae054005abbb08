package models

import "time"

// EvaluationForm defines the rubric a team uses to evaluate its members.
// Once any Evaluation references the form it is immutable except for
// deadline extension.
type EvaluationForm struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	ProjectID uint            `gorm:"not null" json:"project_id"`
	Title     string          `gorm:"size:255;not null" json:"title"`
	Deadline  *time.Time      `json:"deadline"`
	MaxScore  int             `gorm:"not null;default:100" json:"max_score"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Criteria  []FormCriterion `gorm:"foreignKey:FormID" json:"criteria,omitempty"`
}

// FormCriterion is one scored dimension of a rubric. Weight is a 0-100
// percentage; nil (or zero) means the criterion carries no weight.
type FormCriterion struct {
	ID         uint     `gorm:"primaryKey" json:"id"`
	FormID     uint     `gorm:"not null;index" json:"form_id"`
	Text       string   `gorm:"size:512;not null" json:"text"`
	MaxPoints  int      `gorm:"not null" json:"max_points"`
	Weight     *float64 `json:"weight"`
	OrderIndex int      `gorm:"not null;default:0" json:"order_index"`
}

// HasWeight reports whether the criterion carries an explicit positive weight.
func (c FormCriterion) HasWeight() bool {
	return c.Weight != nil && *c.Weight > 0
}

// DeadlinePassed reports whether the form is closed for submissions at the
// given instant. The boundary instant itself is closed. Comparison happens in
// UTC; deadlines are stored in UTC and the reference time is coerced.
func (f EvaluationForm) DeadlinePassed(now time.Time) bool {
	if f.Deadline == nil {
		return false
	}
	return !now.UTC().Before(f.Deadline.UTC())
}

// WeightingEnabled reports whether every criterion carries a weight, i.e. the
// form was validated as fully weighted.
func (f EvaluationForm) WeightingEnabled() bool {
	if len(f.Criteria) == 0 {
		return false
	}
	for _, criterion := range f.Criteria {
		if !criterion.HasWeight() {
			return false
		}
	}
	return true
}
