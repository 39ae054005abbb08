package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/opetse/peereval-api/internal/dto"
	"github.com/opetse/peereval-api/internal/models"
	"github.com/opetse/peereval-api/internal/repository"
	"github.com/opetse/peereval-api/internal/scoring"
)

// FormService manages evaluation forms and their rubric criteria. Weight
// configuration is validated here, at authoring time; the submission path
// assumes stored criteria are already valid.
type FormService interface {
	Create(ctx context.Context, actor Viewer, payload dto.FormCreateRequest) (dto.FormResponse, error)
	Get(ctx context.Context, id uint) (dto.FormResponse, error)
	UpdateCriteria(ctx context.Context, actor Viewer, formID uint, payload dto.FormCriteriaUpdateRequest) (dto.FormResponse, error)
	ExtendDeadline(ctx context.Context, actor Viewer, formID uint, payload dto.FormDeadlineRequest) (dto.FormResponse, error)
	GrantLatePermission(ctx context.Context, actor Viewer, formID uint, payload dto.LatePermissionRequest) (dto.LatePermissionResponse, error)
	RevokeLatePermission(ctx context.Context, actor Viewer, formID, userID uint) error
}

type formService struct {
	forms       repository.FormRepository
	projects    repository.ProjectRepository
	users       repository.UserRepository
	evaluations repository.EvaluationRepository
	latePerms   repository.LatePermissionRepository
	audit       AuditRecorder
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	now         func() time.Time
}

// NewFormService constructs the form management service.
func NewFormService(
	forms repository.FormRepository,
	projects repository.ProjectRepository,
	users repository.UserRepository,
	evaluations repository.EvaluationRepository,
	latePerms repository.LatePermissionRepository,
	audit AuditRecorder,
	validate *validator.Validate,
	logger zerolog.Logger,
) FormService {
	return &formService{
		forms:       forms,
		projects:    projects,
		users:       users,
		evaluations: evaluations,
		latePerms:   latePerms,
		audit:       audit,
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "form_service").Logger(),
		now:         time.Now,
	}
}

func (s *formService) Create(ctx context.Context, actor Viewer, payload dto.FormCreateRequest) (dto.FormResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.FormResponse{}, err
	}

	if _, err := s.projects.GetByID(ctx, payload.ProjectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.FormResponse{}, ErrProjectNotFound
		}
		return dto.FormResponse{}, storeErr(err)
	}

	criteria := s.buildCriteria(payload.Criteria)
	if err := scoring.ValidateWeights(criteria); err != nil {
		return dto.FormResponse{}, err
	}
	if err := checkPointsBudget(criteria, payload.MaxScore); err != nil {
		return dto.FormResponse{}, err
	}

	form := models.EvaluationForm{
		ProjectID: payload.ProjectID,
		Title:     s.sanitizer.Sanitize(payload.Title),
		MaxScore:  payload.MaxScore,
		Deadline:  payload.Deadline,
		Criteria:  criteria,
	}

	if err := s.forms.Create(ctx, &form); err != nil {
		return dto.FormResponse{}, storeErr(err)
	}

	s.recordFormAudit(ctx, actor, models.ActionFormCreated, form.ID, map[string]interface{}{
		"project_id": form.ProjectID,
		"title":      form.Title,
		"criteria":   len(form.Criteria),
		"weighted":   form.WeightingEnabled(),
	})

	s.logger.Info().Uint("form_id", form.ID).Uint("project_id", form.ProjectID).Msg("evaluation form created")
	return dto.NewFormResponse(form), nil
}

func (s *formService) Get(ctx context.Context, id uint) (dto.FormResponse, error) {
	form, err := s.forms.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.FormResponse{}, ErrFormNotFound
		}
		return dto.FormResponse{}, storeErr(err)
	}

	return dto.NewFormResponse(form), nil
}

// UpdateCriteria replaces the rubric wholesale. Once any evaluation references
// the form the rubric is frozen so stored submissions stay interpretable.
func (s *formService) UpdateCriteria(ctx context.Context, actor Viewer, formID uint, payload dto.FormCriteriaUpdateRequest) (dto.FormResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.FormResponse{}, err
	}

	form, err := s.forms.GetByID(ctx, formID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.FormResponse{}, ErrFormNotFound
		}
		return dto.FormResponse{}, storeErr(err)
	}

	submissions, err := s.evaluations.CountByForm(ctx, formID)
	if err != nil {
		return dto.FormResponse{}, storeErr(err)
	}
	if submissions > 0 {
		return dto.FormResponse{}, ErrFormLocked
	}

	criteria := s.buildCriteria(payload.Criteria)
	if err := scoring.ValidateWeights(criteria); err != nil {
		return dto.FormResponse{}, err
	}
	if err := checkPointsBudget(criteria, form.MaxScore); err != nil {
		return dto.FormResponse{}, err
	}

	if err := s.forms.ReplaceCriteria(ctx, formID, criteria); err != nil {
		return dto.FormResponse{}, storeErr(err)
	}

	updated, err := s.forms.GetByID(ctx, formID)
	if err != nil {
		return dto.FormResponse{}, storeErr(err)
	}

	s.recordFormAudit(ctx, actor, models.ActionFormUpdated, formID, map[string]interface{}{
		"criteria": len(criteria),
		"weighted": updated.WeightingEnabled(),
	})

	return dto.NewFormResponse(updated), nil
}

// ExtendDeadline moves the deadline forward. Shortening is rejected so that a
// window students already saw can never silently close earlier.
func (s *formService) ExtendDeadline(ctx context.Context, actor Viewer, formID uint, payload dto.FormDeadlineRequest) (dto.FormResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.FormResponse{}, err
	}

	form, err := s.forms.GetByID(ctx, formID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.FormResponse{}, ErrFormNotFound
		}
		return dto.FormResponse{}, storeErr(err)
	}

	newDeadline := payload.Deadline.UTC()
	if form.Deadline != nil && !newDeadline.After(form.Deadline.UTC()) {
		return dto.FormResponse{}, ErrDeadlineNotExtended
	}

	if err := s.forms.UpdateDeadline(ctx, formID, &newDeadline); err != nil {
		return dto.FormResponse{}, storeErr(err)
	}

	details := map[string]interface{}{"new_deadline": newDeadline}
	if form.Deadline != nil {
		details["previous_deadline"] = form.Deadline.UTC()
	}
	s.recordFormAudit(ctx, actor, models.ActionFormDeadlineExtended, formID, details)

	form.Deadline = &newDeadline
	return dto.NewFormResponse(form), nil
}

func (s *formService) GrantLatePermission(ctx context.Context, actor Viewer, formID uint, payload dto.LatePermissionRequest) (dto.LatePermissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.LatePermissionResponse{}, err
	}

	if _, err := s.forms.GetByID(ctx, formID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LatePermissionResponse{}, ErrFormNotFound
		}
		return dto.LatePermissionResponse{}, storeErr(err)
	}

	exists, err := s.users.Exists(ctx, payload.UserID)
	if err != nil {
		return dto.LatePermissionResponse{}, storeErr(err)
	}
	if !exists {
		return dto.LatePermissionResponse{}, ErrUserNotFound
	}

	permission := models.LateSubmissionPermission{
		FormID:       formID,
		UserID:       payload.UserID,
		AllowedUntil: payload.AllowedUntil.UTC(),
		GrantedBy:    actor.ID,
		Reason:       s.sanitizer.Sanitize(payload.Reason),
		Active:       true,
	}

	if err := s.latePerms.Upsert(ctx, &permission); err != nil {
		return dto.LatePermissionResponse{}, storeErr(err)
	}

	s.recordFormAudit(ctx, actor, models.ActionLatePermissionGrant, formID, map[string]interface{}{
		"user_id":       payload.UserID,
		"allowed_until": permission.AllowedUntil,
	})

	return dto.NewLatePermissionResponse(permission), nil
}

func (s *formService) RevokeLatePermission(ctx context.Context, actor Viewer, formID, userID uint) error {
	if _, err := s.forms.GetByID(ctx, formID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFormNotFound
		}
		return storeErr(err)
	}

	if err := s.latePerms.Revoke(ctx, formID, userID); err != nil {
		return storeErr(err)
	}

	s.recordFormAudit(ctx, actor, models.ActionLatePermissionRevoke, formID, map[string]interface{}{
		"user_id": userID,
	})

	return nil
}

func (s *formService) buildCriteria(inputs []dto.CriterionInput) []models.FormCriterion {
	criteria := make([]models.FormCriterion, 0, len(inputs))
	for i, input := range inputs {
		criteria = append(criteria, models.FormCriterion{
			Text:       s.sanitizer.Sanitize(input.Text),
			MaxPoints:  input.MaxPoints,
			Weight:     input.Weight,
			OrderIndex: i,
		})
	}
	return criteria
}

// recordFormAudit appends an audit record for a form-management action. The
// action itself is already committed when it runs.
func (s *formService) recordFormAudit(ctx context.Context, actor Viewer, action string, formID uint, details map[string]interface{}) {
	if s.audit == nil {
		return
	}

	actorID := actor.ID
	entry := AuditEntry{
		ActorID:      &actorID,
		Action:       action,
		ResourceType: "form",
		ResourceID:   &formID,
		Details:      details,
	}

	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Uint("form_id", formID).Msg("form action not audited")
	}
}

// checkPointsBudget requires the rubric's raw points on unweighted forms to
// sum to the form's max score, so an unweighted total is never scaled past
// what students expect from the point values they see.
func checkPointsBudget(criteria []models.FormCriterion, maxScore int) error {
	for _, criterion := range criteria {
		if criterion.HasWeight() {
			return nil
		}
	}

	sum := 0
	for _, criterion := range criteria {
		sum += criterion.MaxPoints
	}
	if sum != maxScore {
		return ErrCriteriaPointsMismatch
	}

	return nil
}
