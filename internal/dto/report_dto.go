package dto

// The report variants form a small closed set so the anonymity filter can
// walk them exhaustively instead of guessing field names on loose maps.

// ProjectLite summarizes a project in report payloads.
type ProjectLite struct {
	ID           uint   `json:"id"`
	Title        string `json:"title"`
	InstructorID uint   `json:"instructor_id"`
}

// ScoreStatistics aggregates a set of evaluation scores.
type ScoreStatistics struct {
	Count        int     `json:"count"`
	AverageScore float64 `json:"average_score"`
	MinScore     float64 `json:"min_score"`
	MaxScore     float64 `json:"max_score"`
}

// MemberReport summarizes the evaluations one team member received.
type MemberReport struct {
	Member              UserLite             `json:"member"`
	EvaluationsReceived int                  `json:"evaluations_received"`
	AverageScore        float64              `json:"average_score"`
	Evaluations         []EvaluationResponse `json:"evaluations"`
}

// TeamReport is the evaluation report for one team.
type TeamReport struct {
	Team       TeamLite       `json:"team"`
	Members    []MemberReport `json:"members"`
	Statistics TeamStatistics `json:"statistics"`
}

// TeamStatistics aggregates a whole team's evaluations.
type TeamStatistics struct {
	TotalMembers     int     `json:"total_members"`
	TotalEvaluations int     `json:"total_evaluations"`
	AverageScore     float64 `json:"average_score"`
	MinScore         float64 `json:"min_score"`
	MaxScore         float64 `json:"max_score"`
}

// ProjectReport rolls up every team in a project.
type ProjectReport struct {
	Project    ProjectLite       `json:"project"`
	Teams      []TeamReport      `json:"teams"`
	Statistics ProjectStatistics `json:"overall_statistics"`
}

// ProjectStatistics aggregates a whole project's evaluations.
type ProjectStatistics struct {
	TotalTeams       int     `json:"total_teams"`
	TotalEvaluations int     `json:"total_evaluations"`
	AverageScore     float64 `json:"average_score"`
}

// UserTeamSummary is the per-team slice of a user report.
type UserTeamSummary struct {
	Team             TeamLite `json:"team"`
	EvaluationsCount int      `json:"evaluations_count"`
	AverageScore     float64  `json:"average_score"`
}

// UserReport summarizes the evaluations one user received and gave.
type UserReport struct {
	User        UserLite             `json:"user"`
	Teams       []UserTeamSummary    `json:"teams"`
	Statistics  UserStatistics       `json:"overall_statistics"`
	Evaluations []EvaluationResponse `json:"detailed_evaluations"`
}

// UserStatistics aggregates one user's evaluation activity.
type UserStatistics struct {
	TeamsCount           int     `json:"teams_count"`
	EvaluationsReceived  int     `json:"evaluations_received"`
	EvaluationsGiven     int     `json:"evaluations_given"`
	AverageScoreReceived float64 `json:"average_score_received"`
}

// CriterionLite summarizes a rubric criterion in form reports.
type CriterionLite struct {
	ID        uint     `json:"id"`
	Text      string   `json:"text"`
	MaxPoints int      `json:"max_points"`
	Weight    *float64 `json:"weight"`
}

// CriterionAnalysis aggregates the raw scores one criterion received.
type CriterionAnalysis struct {
	Criterion  CriterionLite   `json:"criterion"`
	Statistics ScoreStatistics `json:"statistics"`
}

// FormReport is the statistical report for one evaluation form.
type FormReport struct {
	Form        FormLite             `json:"form"`
	Criteria    []CriterionAnalysis  `json:"criteria_analysis"`
	Statistics  FormStatistics       `json:"overall_statistics"`
	Evaluations []EvaluationResponse `json:"evaluations"`
}

// FormStatistics aggregates a form's evaluations.
type FormStatistics struct {
	TotalEvaluations int     `json:"total_evaluations"`
	AverageScore     float64 `json:"average_score"`
}
