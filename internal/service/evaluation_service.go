package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/opetse/peereval-api/internal/anonymity"
	"github.com/opetse/peereval-api/internal/dto"
	"github.com/opetse/peereval-api/internal/models"
	"github.com/opetse/peereval-api/internal/observability"
	"github.com/opetse/peereval-api/internal/repository"
	"github.com/opetse/peereval-api/internal/scoring"
)

// EvaluationService orchestrates the submission pipeline and the anonymized
// read surface for evaluations.
type EvaluationService interface {
	Submit(ctx context.Context, evaluator Viewer, payload dto.EvaluationSubmitRequest) (dto.EvaluationResponse, error)
	Get(ctx context.Context, id uint, viewer Viewer) (dto.EvaluationResponse, error)
	List(ctx context.Context, filter dto.EvaluationFilter, viewer Viewer) ([]dto.EvaluationResponse, error)
}

type evaluationService struct {
	evaluations  repository.EvaluationRepository
	forms        repository.FormRepository
	teams        repository.TeamRepository
	users        repository.UserRepository
	latePerms    repository.LatePermissionRepository
	audit        AuditRecorder
	events       EventPublisher
	validator    *validator.Validate
	sanitizer    *bluemonday.Policy
	logger       zerolog.Logger
	tracer       trace.Tracer
	now          func() time.Time
	storeTimeout time.Duration
}

// NewEvaluationService constructs the evaluation submission service.
func NewEvaluationService(
	evaluations repository.EvaluationRepository,
	forms repository.FormRepository,
	teams repository.TeamRepository,
	users repository.UserRepository,
	latePerms repository.LatePermissionRepository,
	audit AuditRecorder,
	events EventPublisher,
	validate *validator.Validate,
	storeTimeout time.Duration,
	logger zerolog.Logger,
) EvaluationService {
	return &evaluationService{
		evaluations:  evaluations,
		forms:        forms,
		teams:        teams,
		users:        users,
		latePerms:    latePerms,
		audit:        audit,
		events:       events,
		validator:    validate,
		sanitizer:    bluemonday.StrictPolicy(),
		logger:       logger.With().Str("component", "evaluation_service").Logger(),
		tracer:       otel.Tracer("github.com/opetse/peereval-api/internal/service/evaluation"),
		now:          time.Now,
		storeTimeout: storeTimeout,
	}
}

// Submit runs the full validation pipeline and, once every check has passed,
// persists the evaluation header and its score rows in one transaction. The
// checks short-circuit in a fixed order: self-evaluation, deadline, existence
// and membership, duplicate, criterion validity, score completeness.
func (s *evaluationService) Submit(ctx context.Context, evaluator Viewer, payload dto.EvaluationSubmitRequest) (dto.EvaluationResponse, error) {
	started := s.now()
	ctx, span := s.tracer.Start(ctx, "evaluation.submit")
	span.SetAttributes(
		attribute.Int("evaluation.form_id", int(payload.FormID)),
		attribute.Int("evaluation.team_id", int(payload.TeamID)),
	)
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		return dto.EvaluationResponse{}, err
	}

	// Structural check first, no lookups wasted on invalid input.
	if evaluator.ID == payload.EvaluateeID {
		return dto.EvaluationResponse{}, ErrSelfEvaluation
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	form, err := s.forms.GetByID(ctx, payload.FormID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EvaluationResponse{}, ErrFormNotFound
		}
		return dto.EvaluationResponse{}, storeErr(err)
	}

	now := s.now()
	late := false
	if form.DeadlinePassed(now) {
		permission, found, err := s.latePerms.GetActive(ctx, form.ID, evaluator.ID)
		if err != nil {
			return dto.EvaluationResponse{}, storeErr(err)
		}
		if !found || !permission.Admits(now) {
			return dto.EvaluationResponse{}, &DeadlinePassedError{Deadline: *form.Deadline}
		}
		late = true
	}

	// The remaining reads are independent, so they run concurrently; their
	// outcomes are evaluated afterwards in the fixed pipeline order.
	var (
		team            models.Team
		teamFound       bool
		evaluatorExists bool
		evaluateeExists bool
		duplicate       bool
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		fetched, err := s.teams.GetByID(groupCtx, payload.TeamID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return storeErr(err)
		}
		team = fetched
		teamFound = true
		return nil
	})
	group.Go(func() error {
		exists, err := s.users.Exists(groupCtx, evaluator.ID)
		if err != nil {
			return storeErr(err)
		}
		evaluatorExists = exists
		return nil
	})
	group.Go(func() error {
		exists, err := s.users.Exists(groupCtx, payload.EvaluateeID)
		if err != nil {
			return storeErr(err)
		}
		evaluateeExists = exists
		return nil
	})
	group.Go(func() error {
		exists, err := s.evaluations.Exists(groupCtx, payload.FormID, evaluator.ID, payload.EvaluateeID)
		if err != nil {
			return storeErr(err)
		}
		duplicate = exists
		return nil
	})

	if err := group.Wait(); err != nil {
		return dto.EvaluationResponse{}, err
	}

	switch {
	case !teamFound:
		return dto.EvaluationResponse{}, ErrTeamNotFound
	case !evaluatorExists:
		return dto.EvaluationResponse{}, ErrEvaluatorNotFound
	case !evaluateeExists:
		return dto.EvaluationResponse{}, ErrEvaluateeNotFound
	case !team.HasMember(evaluator.ID), !team.HasMember(payload.EvaluateeID):
		return dto.EvaluationResponse{}, ErrNotATeamMember
	case duplicate:
		return dto.EvaluationResponse{}, ErrDuplicateEvaluation
	}

	// Exactly one raw score per form criterion: foreign ids are rejected here,
	// repeats too, and scoring.Calculate rejects any criterion left unscored.
	knownCriteria := make(map[uint]struct{}, len(form.Criteria))
	for _, criterion := range form.Criteria {
		knownCriteria[criterion.ID] = struct{}{}
	}
	scored := make(map[uint]struct{}, len(payload.Scores))
	for _, score := range payload.Scores {
		if _, ok := knownCriteria[score.CriterionID]; !ok {
			return dto.EvaluationResponse{}, ErrCriterionNotFound
		}
		if _, ok := scored[score.CriterionID]; ok {
			return dto.EvaluationResponse{}, ErrRepeatedCriterionScore
		}
		scored[score.CriterionID] = struct{}{}
	}

	result, err := scoring.Calculate(form.Criteria, form.MaxScore, payload.RawScores())
	if err != nil {
		return dto.EvaluationResponse{}, err
	}

	evaluation := models.Evaluation{
		FormID:          form.ID,
		EvaluatorID:     evaluator.ID,
		EvaluateeID:     payload.EvaluateeID,
		TeamID:          team.ID,
		TotalScore:      result.WeightedTotal,
		ScorePercentage: result.Percentage,
		Comments:        s.sanitizer.Sanitize(payload.Comments),
		LateSubmission:  late,
		SubmittedAt:     now.UTC(),
	}
	if result.WeightingEnabled {
		weighted := result.WeightedTotal
		evaluation.WeightedScore = &weighted
	}

	scoreRows := make([]models.EvaluationScore, 0, len(payload.Scores))
	for _, score := range payload.Scores {
		scoreRows = append(scoreRows, models.EvaluationScore{
			CriterionID: score.CriterionID,
			Score:       score.Score,
		})
	}

	if err := s.evaluations.CreateWithScores(ctx, &evaluation, scoreRows); err != nil {
		// The storage uniqueness constraint backs up the duplicate pre-check:
		// two concurrent submissions cannot both commit, and the loser gets the
		// same error as a pre-checked duplicate.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.EvaluationResponse{}, ErrDuplicateEvaluation
		}
		return dto.EvaluationResponse{}, storeErr(err)
	}

	created, err := s.evaluations.GetByID(ctx, evaluation.ID)
	if err != nil {
		return dto.EvaluationResponse{}, storeErr(err)
	}

	s.recordSubmissionAudit(ctx, evaluator, created, result)
	s.publishSubmissionEvent(ctx, created)

	elapsed := s.now().Sub(started)
	observability.SubmissionLatency().Observe(elapsed.Seconds())
	s.logger.Info().
		Uint("evaluation_id", created.ID).
		Uint("form_id", created.FormID).
		Bool("late_submission", created.LateSubmission).
		Dur("elapsed", elapsed).
		Msg("evaluation submitted")

	response := dto.NewEvaluationResponse(created)
	response.Breakdown = result.Breakdown
	return response, nil
}

func (s *evaluationService) Get(ctx context.Context, id uint, viewer Viewer) (dto.EvaluationResponse, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	evaluation, err := s.evaluations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EvaluationResponse{}, ErrEvaluationNotFound
		}
		return dto.EvaluationResponse{}, storeErr(err)
	}

	response := dto.NewEvaluationResponse(evaluation)
	anonymity.Evaluation(&response, viewer.Role)
	return response, nil
}

func (s *evaluationService) List(ctx context.Context, filter dto.EvaluationFilter, viewer Viewer) ([]dto.EvaluationResponse, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	repoFilter := repository.EvaluationFilter{
		FormID:      filter.FormID,
		TeamID:      filter.TeamID,
		EvaluatorID: filter.EvaluatorID,
		EvaluateeID: filter.EvaluateeID,
	}

	evaluations, err := s.evaluations.List(ctx, repoFilter)
	if err != nil {
		return nil, storeErr(err)
	}

	responses := dto.NewEvaluationResponseSlice(evaluations)
	anonymity.Evaluations(responses, viewer.Role)
	return responses, nil
}

// storeContext bounds datastore work so a hung store surfaces as
// ErrStoreUnavailable instead of stalling the request.
func (s *evaluationService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

// recordSubmissionAudit appends the audit record for a committed submission.
// The evaluation stays committed even if the audit write fails; the failure
// is logged and counted so operators can see it.
func (s *evaluationService) recordSubmissionAudit(ctx context.Context, evaluator Viewer, evaluation models.Evaluation, result scoring.Result) {
	if s.audit == nil {
		return
	}

	actorID := evaluator.ID
	entry := AuditEntry{
		ActorID:      &actorID,
		Action:       models.ActionEvaluationSubmitted,
		ResourceType: "evaluation",
		ResourceID:   &evaluation.ID,
		Details: map[string]interface{}{
			"form_id":          evaluation.FormID,
			"team_id":          evaluation.TeamID,
			"evaluatee_id":     evaluation.EvaluateeID,
			"weighted":         result.WeightingEnabled,
			"late_submission":  evaluation.LateSubmission,
			"score_percentage": evaluation.ScorePercentage,
		},
	}

	if err := s.audit.Record(ctx, entry); err != nil {
		observability.AuditWriteFailures().Inc()
		s.logger.Error().Err(err).Uint("evaluation_id", evaluation.ID).Msg("audit write failed for committed evaluation")
	}
}

func (s *evaluationService) publishSubmissionEvent(ctx context.Context, evaluation models.Evaluation) {
	if s.events == nil {
		return
	}

	event := EvaluationSubmittedEvent{
		EvaluationID:   evaluation.ID,
		FormID:         evaluation.FormID,
		TeamID:         evaluation.TeamID,
		EvaluatorID:    evaluation.EvaluatorID,
		EvaluateeID:    evaluation.EvaluateeID,
		LateSubmission: evaluation.LateSubmission,
		SubmittedAt:    evaluation.SubmittedAt,
	}

	if err := s.events.PublishEvaluationSubmitted(ctx, event); err != nil {
		s.logger.Warn().Err(err).Uint("evaluation_id", evaluation.ID).Msg("evaluation event not published")
	}
}
