package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/opetse/peereval-api/internal/dto"
	"github.com/opetse/peereval-api/internal/models"
	"github.com/opetse/peereval-api/internal/scoring"
)

type formFixture struct {
	service     FormService
	forms       *fakeFormRepo
	evaluations *fakeEvaluationRepo
	latePerms   *fakeLatePermRepo
	audit       *fakeAuditRecorder
}

func newFormFixture(t *testing.T) *formFixture {
	t.Helper()

	fixture := &formFixture{
		forms:       newFakeFormRepo(),
		evaluations: newFakeEvaluationRepo(),
		latePerms:   newFakeLatePermRepo(),
		audit:       &fakeAuditRecorder{},
	}

	projects := newFakeProjectRepo(models.Project{ID: 1, Title: "Compilers", InstructorID: 9})
	users := newFakeUserRepo(
		models.User{ID: 1, Name: "Alice", Email: "alice@example.com", Role: models.RoleStudent},
		models.User{ID: 9, Name: "Prof", Email: "prof@example.com", Role: models.RoleInstructor},
	)

	fixture.service = NewFormService(
		fixture.forms,
		projects,
		users,
		fixture.evaluations,
		fixture.latePerms,
		fixture.audit,
		validator.New(),
		zerolog.Nop(),
	)

	return fixture
}

func instructor() Viewer {
	return Viewer{ID: 9, Role: models.RoleInstructor}
}

func weightedCreateRequest() dto.FormCreateRequest {
	return dto.FormCreateRequest{
		ProjectID: 1,
		Title:     "Sprint retrospective",
		MaxScore:  100,
		Criteria: []dto.CriterionInput{
			{Text: "Contribution", MaxPoints: 10, Weight: weightPtr(60)},
			{Text: "Communication", MaxPoints: 5, Weight: weightPtr(40)},
		},
	}
}

func TestFormCreateWeighted(t *testing.T) {
	fixture := newFormFixture(t)

	response, err := fixture.service.Create(context.Background(), instructor(), weightedCreateRequest())
	require.NoError(t, err)
	require.True(t, response.Weighted)
	require.Len(t, response.Criteria, 2)

	entries := fixture.audit.recorded()
	require.Len(t, entries, 1)
	require.Equal(t, models.ActionFormCreated, entries[0].Action)
}

func TestFormCreateUnweighted(t *testing.T) {
	fixture := newFormFixture(t)

	payload := dto.FormCreateRequest{
		ProjectID: 1,
		Title:     "Peer review",
		MaxScore:  15,
		Criteria: []dto.CriterionInput{
			{Text: "Contribution", MaxPoints: 10},
			{Text: "Communication", MaxPoints: 5},
		},
	}

	response, err := fixture.service.Create(context.Background(), instructor(), payload)
	require.NoError(t, err)
	require.False(t, response.Weighted)
}

func TestFormCreateRejectsPartialWeights(t *testing.T) {
	fixture := newFormFixture(t)

	payload := weightedCreateRequest()
	payload.Criteria[1].Weight = nil

	_, err := fixture.service.Create(context.Background(), instructor(), payload)
	require.ErrorIs(t, err, scoring.ErrInvalidWeightConfiguration)
}

func TestFormCreateRejectsBadWeightSum(t *testing.T) {
	fixture := newFormFixture(t)

	payload := weightedCreateRequest()
	payload.Criteria[1].Weight = weightPtr(30)

	_, err := fixture.service.Create(context.Background(), instructor(), payload)
	require.ErrorIs(t, err, scoring.ErrInvalidWeightConfiguration)
}

func TestFormCreateRejectsPointsMismatch(t *testing.T) {
	fixture := newFormFixture(t)

	payload := dto.FormCreateRequest{
		ProjectID: 1,
		Title:     "Peer review",
		MaxScore:  100,
		Criteria: []dto.CriterionInput{
			{Text: "Contribution", MaxPoints: 10},
			{Text: "Communication", MaxPoints: 5},
		},
	}

	_, err := fixture.service.Create(context.Background(), instructor(), payload)
	require.ErrorIs(t, err, ErrCriteriaPointsMismatch)
}

func TestFormCreateUnknownProject(t *testing.T) {
	fixture := newFormFixture(t)

	payload := weightedCreateRequest()
	payload.ProjectID = 99

	_, err := fixture.service.Create(context.Background(), instructor(), payload)
	require.ErrorIs(t, err, ErrProjectNotFound)
}

func TestFormUpdateCriteriaLockedBySubmissions(t *testing.T) {
	fixture := newFormFixture(t)

	created, err := fixture.service.Create(context.Background(), instructor(), weightedCreateRequest())
	require.NoError(t, err)

	require.NoError(t, fixture.evaluations.CreateWithScores(context.Background(), &models.Evaluation{
		FormID:      created.ID,
		EvaluatorID: 1,
		EvaluateeID: 2,
		TeamID:      1,
	}, []models.EvaluationScore{{CriterionID: 1, Score: 5}}))

	_, err = fixture.service.UpdateCriteria(context.Background(), instructor(), created.ID, dto.FormCriteriaUpdateRequest{
		Criteria: []dto.CriterionInput{{Text: "Contribution", MaxPoints: 10, Weight: weightPtr(100)}},
	})
	require.ErrorIs(t, err, ErrFormLocked)
}

func TestFormUpdateCriteriaRevalidatesWeights(t *testing.T) {
	fixture := newFormFixture(t)

	created, err := fixture.service.Create(context.Background(), instructor(), weightedCreateRequest())
	require.NoError(t, err)

	_, err = fixture.service.UpdateCriteria(context.Background(), instructor(), created.ID, dto.FormCriteriaUpdateRequest{
		Criteria: []dto.CriterionInput{
			{Text: "Contribution", MaxPoints: 10, Weight: weightPtr(70)},
			{Text: "Communication", MaxPoints: 5, Weight: weightPtr(40)},
		},
	})
	require.ErrorIs(t, err, scoring.ErrInvalidWeightConfiguration)

	updated, err := fixture.service.UpdateCriteria(context.Background(), instructor(), created.ID, dto.FormCriteriaUpdateRequest{
		Criteria: []dto.CriterionInput{
			{Text: "Contribution", MaxPoints: 10, Weight: weightPtr(70)},
			{Text: "Communication", MaxPoints: 5, Weight: weightPtr(30)},
		},
	})
	require.NoError(t, err)
	require.Len(t, updated.Criteria, 2)
	require.Equal(t, 70.0, *updated.Criteria[0].Weight)
}

func TestFormExtendDeadline(t *testing.T) {
	fixture := newFormFixture(t)

	payload := weightedCreateRequest()
	deadline := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	payload.Deadline = &deadline

	created, err := fixture.service.Create(context.Background(), instructor(), payload)
	require.NoError(t, err)

	// Moving the deadline backwards is rejected.
	_, err = fixture.service.ExtendDeadline(context.Background(), instructor(), created.ID, dto.FormDeadlineRequest{
		Deadline: deadline.Add(-time.Hour),
	})
	require.ErrorIs(t, err, ErrDeadlineNotExtended)

	// So is resubmitting the same deadline.
	_, err = fixture.service.ExtendDeadline(context.Background(), instructor(), created.ID, dto.FormDeadlineRequest{
		Deadline: deadline,
	})
	require.ErrorIs(t, err, ErrDeadlineNotExtended)

	extended := deadline.Add(48 * time.Hour)
	response, err := fixture.service.ExtendDeadline(context.Background(), instructor(), created.ID, dto.FormDeadlineRequest{
		Deadline: extended,
	})
	require.NoError(t, err)
	require.NotNil(t, response.Deadline)
	require.True(t, response.Deadline.Equal(extended))

	entries := fixture.audit.recorded()
	require.Equal(t, models.ActionFormDeadlineExtended, entries[len(entries)-1].Action)
}

func TestFormGrantAndRevokeLatePermission(t *testing.T) {
	fixture := newFormFixture(t)

	created, err := fixture.service.Create(context.Background(), instructor(), weightedCreateRequest())
	require.NoError(t, err)

	granted, err := fixture.service.GrantLatePermission(context.Background(), instructor(), created.ID, dto.LatePermissionRequest{
		UserID:       1,
		AllowedUntil: time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC),
		Reason:       "medical exemption",
	})
	require.NoError(t, err)
	require.True(t, granted.Active)
	require.Equal(t, uint(9), granted.GrantedBy)

	permission, found, err := fixture.latePerms.GetActive(context.Background(), created.ID, 1)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "medical exemption", permission.Reason)

	require.NoError(t, fixture.service.RevokeLatePermission(context.Background(), instructor(), created.ID, 1))

	_, found, err = fixture.latePerms.GetActive(context.Background(), created.ID, 1)
	require.NoError(t, err)
	require.False(t, found)
}

func TestFormGrantLatePermissionUnknownUser(t *testing.T) {
	fixture := newFormFixture(t)

	created, err := fixture.service.Create(context.Background(), instructor(), weightedCreateRequest())
	require.NoError(t, err)

	_, err = fixture.service.GrantLatePermission(context.Background(), instructor(), created.ID, dto.LatePermissionRequest{
		UserID:       99,
		AllowedUntil: time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC),
	})
	require.ErrorIs(t, err, ErrUserNotFound)
}
