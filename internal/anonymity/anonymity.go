// Package anonymity redacts evaluator identity from evaluation-shaped
// payloads for viewers that may not see who evaluated whom. The filter is
// pure and storage-free; it trusts the role it is handed, so callers must
// source it from the authenticated context, never from client input.
package anonymity

import (
	"strings"

	"github.com/opetse/peereval-api/internal/dto"
	"github.com/opetse/peereval-api/internal/models"
)

// Sentinel values substituted for the evaluator identity of redacted
// evaluations.
const (
	SentinelID    = "anonymous"
	SentinelName  = "Anonymous"
	SentinelEmail = "anonymous@hidden.com"
)

// CanViewEvaluator reports whether a role may see evaluator identities.
// Unknown or missing roles are denied.
func CanViewEvaluator(role string) bool {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case models.RoleInstructor, models.RoleAdmin:
		return true
	default:
		return false
	}
}

// Evaluation redacts the evaluator identity in place when the role is not
// permitted to see it. Scores, comments and evaluatee identity are never
// touched. Applying the filter twice is equivalent to applying it once.
func Evaluation(evaluation *dto.EvaluationResponse, role string) {
	if evaluation == nil || CanViewEvaluator(role) {
		return
	}

	evaluation.Evaluator = dto.EvaluatorRef{
		ID:    SentinelID,
		Name:  SentinelName,
		Email: SentinelEmail,
	}
	evaluation.EvaluatorIDHidden = true
}

// Evaluations redacts a list of evaluations in place.
func Evaluations(evaluations []dto.EvaluationResponse, role string) {
	for i := range evaluations {
		Evaluation(&evaluations[i], role)
	}
}

// TeamReport redacts every evaluation embedded in a team report.
func TeamReport(report *dto.TeamReport, role string) {
	if report == nil {
		return
	}
	for i := range report.Members {
		Evaluations(report.Members[i].Evaluations, role)
	}
}

// ProjectReport redacts every evaluation embedded in a project report.
func ProjectReport(report *dto.ProjectReport, role string) {
	if report == nil {
		return
	}
	for i := range report.Teams {
		TeamReport(&report.Teams[i], role)
	}
}

// UserReport redacts the detailed evaluations of a user report.
func UserReport(report *dto.UserReport, role string) {
	if report == nil {
		return
	}
	Evaluations(report.Evaluations, role)
}

// FormReport redacts the evaluations of a form report. Criterion statistics
// are aggregates and carry no evaluator identity.
func FormReport(report *dto.FormReport, role string) {
	if report == nil {
		return
	}
	Evaluations(report.Evaluations, role)
}
