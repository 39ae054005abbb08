package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/opetse/peereval-api/internal/anonymity"
	"github.com/opetse/peereval-api/internal/dto"
	"github.com/opetse/peereval-api/internal/models"
	"github.com/opetse/peereval-api/internal/repository"
	"github.com/opetse/peereval-api/internal/scoring"
)

// ReportService rolls stored evaluations up into project, team, user and form
// reports. Scores are re-derived from the current criteria with the same
// calculator the submission path uses, so both paths agree; the stored
// snapshot is only a fallback for evaluations whose criteria are no longer
// resolvable. Reports are cached before anonymization and filtered per viewer
// after retrieval, so a cached payload never leaks identities across
// privilege levels.
type ReportService interface {
	ProjectReport(ctx context.Context, projectID uint, viewer Viewer) (dto.ProjectReport, error)
	TeamReport(ctx context.Context, teamID uint, viewer Viewer) (dto.TeamReport, error)
	UserReport(ctx context.Context, userID uint, viewer Viewer) (dto.UserReport, error)
	FormReport(ctx context.Context, formID uint, viewer Viewer) (dto.FormReport, error)
}

type reportService struct {
	evaluations repository.EvaluationRepository
	teams       repository.TeamRepository
	users       repository.UserRepository
	projects    repository.ProjectRepository
	forms       repository.FormRepository
	audit       AuditRecorder
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewReportService constructs the aggregation reporter.
func NewReportService(
	evaluations repository.EvaluationRepository,
	teams repository.TeamRepository,
	users repository.UserRepository,
	projects repository.ProjectRepository,
	forms repository.FormRepository,
	audit AuditRecorder,
	cache *redis.Client,
	cacheTTL time.Duration,
	logger zerolog.Logger,
) ReportService {
	return &reportService{
		evaluations: evaluations,
		teams:       teams,
		users:       users,
		projects:    projects,
		forms:       forms,
		audit:       audit,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger.With().Str("component", "report_service").Logger(),
		tracer:      otel.Tracer("github.com/opetse/peereval-api/internal/service/report"),
	}
}

func (s *reportService) ProjectReport(ctx context.Context, projectID uint, viewer Viewer) (dto.ProjectReport, error) {
	ctx, span := s.tracer.Start(ctx, "report.project")
	span.SetAttributes(attribute.Int("report.project_id", int(projectID)))
	defer span.End()

	cacheKey := fmt.Sprintf("report:project:%d", projectID)
	var report dto.ProjectReport
	if s.cacheGet(ctx, cacheKey, &report) {
		anonymity.ProjectReport(&report, viewer.Role)
		s.recordReportViewed(ctx, viewer, "project", projectID)
		return report, nil
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProjectReport{}, ErrProjectNotFound
		}
		return dto.ProjectReport{}, storeErr(err)
	}

	teams, err := s.teams.ListByProject(ctx, projectID)
	if err != nil {
		return dto.ProjectReport{}, storeErr(err)
	}

	report = dto.ProjectReport{
		Project: dto.ProjectLite{
			ID:           project.ID,
			Title:        project.Title,
			InstructorID: project.InstructorID,
		},
		Teams: make([]dto.TeamReport, 0, len(teams)),
	}

	totalEvaluations := 0
	scoreSum := 0.0
	scoreCount := 0
	for _, team := range teams {
		teamReport, scores, err := s.buildTeamReport(ctx, team)
		if err != nil {
			return dto.ProjectReport{}, err
		}
		report.Teams = append(report.Teams, teamReport)
		totalEvaluations += teamReport.Statistics.TotalEvaluations
		for _, score := range scores {
			scoreSum += score
		}
		scoreCount += len(scores)
	}

	report.Statistics = dto.ProjectStatistics{
		TotalTeams:       len(teams),
		TotalEvaluations: totalEvaluations,
	}
	if scoreCount > 0 {
		report.Statistics.AverageScore = roundScore(scoreSum / float64(scoreCount))
	}

	s.cacheSet(ctx, cacheKey, report)
	anonymity.ProjectReport(&report, viewer.Role)
	s.recordReportViewed(ctx, viewer, "project", projectID)
	return report, nil
}

func (s *reportService) TeamReport(ctx context.Context, teamID uint, viewer Viewer) (dto.TeamReport, error) {
	ctx, span := s.tracer.Start(ctx, "report.team")
	span.SetAttributes(attribute.Int("report.team_id", int(teamID)))
	defer span.End()

	cacheKey := fmt.Sprintf("report:team:%d", teamID)
	var report dto.TeamReport
	if s.cacheGet(ctx, cacheKey, &report) {
		anonymity.TeamReport(&report, viewer.Role)
		s.recordReportViewed(ctx, viewer, "team", teamID)
		return report, nil
	}

	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TeamReport{}, ErrTeamNotFound
		}
		return dto.TeamReport{}, storeErr(err)
	}

	report, _, err = s.buildTeamReport(ctx, team)
	if err != nil {
		return dto.TeamReport{}, err
	}

	s.cacheSet(ctx, cacheKey, report)
	anonymity.TeamReport(&report, viewer.Role)
	s.recordReportViewed(ctx, viewer, "team", teamID)
	return report, nil
}

func (s *reportService) UserReport(ctx context.Context, userID uint, viewer Viewer) (dto.UserReport, error) {
	ctx, span := s.tracer.Start(ctx, "report.user")
	span.SetAttributes(attribute.Int("report.user_id", int(userID)))
	defer span.End()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserReport{}, ErrUserNotFound
		}
		return dto.UserReport{}, storeErr(err)
	}

	teamIDs, err := s.teams.ListTeamIDsForUser(ctx, userID)
	if err != nil {
		return dto.UserReport{}, storeErr(err)
	}

	received, err := s.evaluations.List(ctx, repository.EvaluationFilter{EvaluateeID: &userID})
	if err != nil {
		return dto.UserReport{}, storeErr(err)
	}

	given, err := s.evaluations.CountByEvaluator(ctx, userID)
	if err != nil {
		return dto.UserReport{}, storeErr(err)
	}

	report := dto.UserReport{
		User: dto.UserLite{ID: user.ID, Name: user.Name, Email: user.Email},
		Statistics: dto.UserStatistics{
			TeamsCount:          len(teamIDs),
			EvaluationsReceived: len(received),
			EvaluationsGiven:    int(given),
		},
	}

	scoreSum := 0.0
	perTeamScores := make(map[uint][]float64, len(teamIDs))
	for _, evaluation := range received {
		score := s.effectiveScore(evaluation)
		scoreSum += score
		perTeamScores[evaluation.TeamID] = append(perTeamScores[evaluation.TeamID], score)

		response := dto.NewEvaluationResponse(evaluation)
		response.TotalScore = score
		report.Evaluations = append(report.Evaluations, response)
	}
	if len(received) > 0 {
		report.Statistics.AverageScoreReceived = roundScore(scoreSum / float64(len(received)))
	}

	for _, teamID := range teamIDs {
		team, err := s.teams.GetByID(ctx, teamID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return dto.UserReport{}, storeErr(err)
		}

		summary := dto.UserTeamSummary{
			Team:             dto.TeamLite{ID: team.ID, Name: team.Name},
			EvaluationsCount: len(perTeamScores[teamID]),
		}
		if scores := perTeamScores[teamID]; len(scores) > 0 {
			sum := 0.0
			for _, score := range scores {
				sum += score
			}
			summary.AverageScore = roundScore(sum / float64(len(scores)))
		}
		report.Teams = append(report.Teams, summary)
	}

	anonymity.UserReport(&report, viewer.Role)
	s.recordReportViewed(ctx, viewer, "user", userID)
	return report, nil
}

func (s *reportService) FormReport(ctx context.Context, formID uint, viewer Viewer) (dto.FormReport, error) {
	ctx, span := s.tracer.Start(ctx, "report.form")
	span.SetAttributes(attribute.Int("report.form_id", int(formID)))
	defer span.End()

	form, err := s.forms.GetByID(ctx, formID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.FormReport{}, ErrFormNotFound
		}
		return dto.FormReport{}, storeErr(err)
	}

	evaluations, err := s.evaluations.List(ctx, repository.EvaluationFilter{FormID: &formID})
	if err != nil {
		return dto.FormReport{}, storeErr(err)
	}

	report := dto.FormReport{
		Form: dto.FormLite{
			ID:       form.ID,
			Title:    form.Title,
			MaxScore: form.MaxScore,
			Deadline: form.Deadline,
		},
		Statistics: dto.FormStatistics{TotalEvaluations: len(evaluations)},
	}

	rawByCriterion := make(map[uint][]int, len(form.Criteria))
	scoreSum := 0.0
	for _, evaluation := range evaluations {
		score := s.effectiveScore(evaluation)
		scoreSum += score

		for _, row := range evaluation.Scores {
			rawByCriterion[row.CriterionID] = append(rawByCriterion[row.CriterionID], row.Score)
		}

		response := dto.NewEvaluationResponse(evaluation)
		response.TotalScore = score
		report.Evaluations = append(report.Evaluations, response)
	}
	if len(evaluations) > 0 {
		report.Statistics.AverageScore = roundScore(scoreSum / float64(len(evaluations)))
	}

	report.Criteria = make([]dto.CriterionAnalysis, 0, len(form.Criteria))
	for _, criterion := range form.Criteria {
		analysis := dto.CriterionAnalysis{
			Criterion: dto.CriterionLite{
				ID:        criterion.ID,
				Text:      criterion.Text,
				MaxPoints: criterion.MaxPoints,
				Weight:    criterion.Weight,
			},
		}

		raws := rawByCriterion[criterion.ID]
		analysis.Statistics.Count = len(raws)
		if len(raws) > 0 {
			sum := 0
			minScore := raws[0]
			maxScore := raws[0]
			for _, raw := range raws {
				sum += raw
				if raw < minScore {
					minScore = raw
				}
				if raw > maxScore {
					maxScore = raw
				}
			}
			analysis.Statistics.AverageScore = roundScore(float64(sum) / float64(len(raws)))
			analysis.Statistics.MinScore = float64(minScore)
			analysis.Statistics.MaxScore = float64(maxScore)
		}

		report.Criteria = append(report.Criteria, analysis)
	}

	anonymity.FormReport(&report, viewer.Role)
	s.recordReportViewed(ctx, viewer, "form", formID)
	return report, nil
}

// buildTeamReport aggregates one team's evaluations and returns the
// re-derived scores so project rollups can reuse them.
func (s *reportService) buildTeamReport(ctx context.Context, team models.Team) (dto.TeamReport, []float64, error) {
	teamID := team.ID
	evaluations, err := s.evaluations.List(ctx, repository.EvaluationFilter{TeamID: &teamID})
	if err != nil {
		return dto.TeamReport{}, nil, storeErr(err)
	}

	report := dto.TeamReport{
		Team: dto.TeamLite{ID: team.ID, Name: team.Name},
		Statistics: dto.TeamStatistics{
			TotalMembers:     len(team.Members),
			TotalEvaluations: len(evaluations),
		},
	}

	scoresByMember := make(map[uint][]float64, len(team.Members))
	responsesByMember := make(map[uint][]dto.EvaluationResponse, len(team.Members))
	allScores := make([]float64, 0, len(evaluations))
	for _, evaluation := range evaluations {
		score := s.effectiveScore(evaluation)
		allScores = append(allScores, score)
		scoresByMember[evaluation.EvaluateeID] = append(scoresByMember[evaluation.EvaluateeID], score)

		response := dto.NewEvaluationResponse(evaluation)
		response.TotalScore = score
		responsesByMember[evaluation.EvaluateeID] = append(responsesByMember[evaluation.EvaluateeID], response)
	}

	report.Members = make([]dto.MemberReport, 0, len(team.Members))
	for _, member := range team.Members {
		memberReport := dto.MemberReport{
			Member:              dto.UserLite{ID: member.ID, Name: member.Name, Email: member.Email},
			EvaluationsReceived: len(scoresByMember[member.ID]),
			Evaluations:         responsesByMember[member.ID],
		}
		if scores := scoresByMember[member.ID]; len(scores) > 0 {
			sum := 0.0
			for _, score := range scores {
				sum += score
			}
			memberReport.AverageScore = roundScore(sum / float64(len(scores)))
		}
		report.Members = append(report.Members, memberReport)
	}

	if len(allScores) > 0 {
		sum := 0.0
		minScore := allScores[0]
		maxScore := allScores[0]
		for _, score := range allScores {
			sum += score
			if score < minScore {
				minScore = score
			}
			if score > maxScore {
				maxScore = score
			}
		}
		report.Statistics.AverageScore = roundScore(sum / float64(len(allScores)))
		report.Statistics.MinScore = minScore
		report.Statistics.MaxScore = maxScore
	}

	return report, allScores, nil
}

// effectiveScore re-derives the weighted total from the evaluation's current
// criteria; the stored snapshot is the fallback when criteria have been
// removed or the form no longer resolves.
func (s *reportService) effectiveScore(evaluation models.Evaluation) float64 {
	if evaluation.Form.ID == 0 || len(evaluation.Form.Criteria) == 0 {
		return evaluation.TotalScore
	}

	result, err := scoring.Calculate(evaluation.Form.Criteria, evaluation.Form.MaxScore, evaluation.RawScores())
	if err != nil {
		return evaluation.TotalScore
	}

	return result.WeightedTotal
}

func (s *reportService) cacheGet(ctx context.Context, key string, target interface{}) bool {
	if s.cache == nil {
		return false
	}

	cached, err := s.cache.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Str("cache_key", key).Msg("failed to read report cache")
		}
		return false
	}

	if err := json.Unmarshal([]byte(cached), target); err != nil {
		s.logger.Warn().Err(err).Str("cache_key", key).Msg("failed to decode cached report")
		return false
	}

	return true
}

func (s *reportService) cacheSet(ctx context.Context, key string, report interface{}) {
	if s.cache == nil {
		return
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return
	}

	if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Str("cache_key", key).Msg("failed to store report cache")
	}
}

func (s *reportService) recordReportViewed(ctx context.Context, viewer Viewer, scope string, scopeID uint) {
	if s.audit == nil {
		return
	}

	var actorID *uint
	if viewer.ID > 0 {
		id := viewer.ID
		actorID = &id
	}

	entry := AuditEntry{
		ActorID:      actorID,
		Action:       models.ActionReportViewed,
		ResourceType: "report",
		Details: map[string]interface{}{
			"scope":    scope,
			"scope_id": scopeID,
			"role":     viewer.Role,
		},
	}

	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("scope", scope).Msg("report view not audited")
	}
}

// roundScore keeps aggregate values on the same two-decimal scale as the
// scoring calculator.
func roundScore(value float64) float64 {
	return scoring.Round2(value)
}
