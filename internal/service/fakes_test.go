package service

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/opetse/peereval-api/internal/models"
	"github.com/opetse/peereval-api/internal/repository"
)

// In-memory repository fakes backing the service tests. Error fields inject
// failures; nil maps behave as empty stores.

type fakeFormRepo struct {
	forms  map[uint]models.EvaluationForm
	getErr error
}

func newFakeFormRepo(forms ...models.EvaluationForm) *fakeFormRepo {
	repo := &fakeFormRepo{forms: make(map[uint]models.EvaluationForm)}
	for _, form := range forms {
		repo.forms[form.ID] = form
	}
	return repo
}

func (r *fakeFormRepo) GetByID(_ context.Context, id uint) (models.EvaluationForm, error) {
	if r.getErr != nil {
		return models.EvaluationForm{}, r.getErr
	}
	form, ok := r.forms[id]
	if !ok {
		return models.EvaluationForm{}, gorm.ErrRecordNotFound
	}
	return form, nil
}

func (r *fakeFormRepo) Create(_ context.Context, form *models.EvaluationForm) error {
	form.ID = uint(len(r.forms) + 1)
	for i := range form.Criteria {
		form.Criteria[i].ID = uint(i + 1)
		form.Criteria[i].FormID = form.ID
	}
	r.forms[form.ID] = *form
	return nil
}

func (r *fakeFormRepo) ReplaceCriteria(_ context.Context, formID uint, criteria []models.FormCriterion) error {
	form := r.forms[formID]
	for i := range criteria {
		criteria[i].ID = uint(i + 1)
		criteria[i].FormID = formID
	}
	form.Criteria = criteria
	r.forms[formID] = form
	return nil
}

func (r *fakeFormRepo) UpdateDeadline(_ context.Context, formID uint, deadline *time.Time) error {
	form := r.forms[formID]
	form.Deadline = deadline
	r.forms[formID] = form
	return nil
}

type fakeTeamRepo struct {
	order []uint
	teams map[uint]models.Team
}

func newFakeTeamRepo(teams ...models.Team) *fakeTeamRepo {
	repo := &fakeTeamRepo{teams: make(map[uint]models.Team)}
	for _, team := range teams {
		repo.order = append(repo.order, team.ID)
		repo.teams[team.ID] = team
	}
	return repo
}

func (r *fakeTeamRepo) GetByID(_ context.Context, id uint) (models.Team, error) {
	team, ok := r.teams[id]
	if !ok {
		return models.Team{}, gorm.ErrRecordNotFound
	}
	return team, nil
}

func (r *fakeTeamRepo) ListByProject(_ context.Context, projectID uint) ([]models.Team, error) {
	var teams []models.Team
	for _, id := range r.order {
		if team := r.teams[id]; team.ProjectID == projectID {
			teams = append(teams, team)
		}
	}
	return teams, nil
}

func (r *fakeTeamRepo) ListTeamIDsForUser(_ context.Context, userID uint) ([]uint, error) {
	var ids []uint
	for _, id := range r.order {
		if r.teams[id].HasMember(userID) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type fakeUserRepo struct {
	users map[uint]models.User
}

func newFakeUserRepo(users ...models.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[uint]models.User)}
	for _, user := range users {
		repo.users[user.ID] = user
	}
	return repo
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uint) (models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) Exists(_ context.Context, id uint) (bool, error) {
	_, ok := r.users[id]
	return ok, nil
}

type fakeProjectRepo struct {
	projects map[uint]models.Project
}

func newFakeProjectRepo(projects ...models.Project) *fakeProjectRepo {
	repo := &fakeProjectRepo{projects: make(map[uint]models.Project)}
	for _, project := range projects {
		repo.projects[project.ID] = project
	}
	return repo
}

func (r *fakeProjectRepo) GetByID(_ context.Context, id uint) (models.Project, error) {
	project, ok := r.projects[id]
	if !ok {
		return models.Project{}, gorm.ErrRecordNotFound
	}
	return project, nil
}

type latePermKey struct {
	formID uint
	userID uint
}

type fakeLatePermRepo struct {
	permissions map[latePermKey]models.LateSubmissionPermission
}

func newFakeLatePermRepo(permissions ...models.LateSubmissionPermission) *fakeLatePermRepo {
	repo := &fakeLatePermRepo{permissions: make(map[latePermKey]models.LateSubmissionPermission)}
	for _, permission := range permissions {
		repo.permissions[latePermKey{permission.FormID, permission.UserID}] = permission
	}
	return repo
}

func (r *fakeLatePermRepo) GetActive(_ context.Context, formID, userID uint) (models.LateSubmissionPermission, bool, error) {
	permission, ok := r.permissions[latePermKey{formID, userID}]
	if !ok || !permission.Active {
		return models.LateSubmissionPermission{}, false, nil
	}
	return permission, true, nil
}

func (r *fakeLatePermRepo) Upsert(_ context.Context, permission *models.LateSubmissionPermission) error {
	if permission.ID == 0 {
		permission.ID = uint(len(r.permissions) + 1)
	}
	r.permissions[latePermKey{permission.FormID, permission.UserID}] = *permission
	return nil
}

func (r *fakeLatePermRepo) Revoke(_ context.Context, formID, userID uint) error {
	key := latePermKey{formID, userID}
	permission, ok := r.permissions[key]
	if !ok {
		return nil
	}
	permission.Active = false
	r.permissions[key] = permission
	return nil
}

type fakeEvaluationRepo struct {
	mu          sync.Mutex
	nextID      uint
	evaluations map[uint]models.Evaluation
	createErr   error
	listErr     error
	// stall makes reads block until the caller's context expires, mimicking
	// an unresponsive store.
	stall bool
}

func newFakeEvaluationRepo(evaluations ...models.Evaluation) *fakeEvaluationRepo {
	repo := &fakeEvaluationRepo{evaluations: make(map[uint]models.Evaluation)}
	for _, evaluation := range evaluations {
		repo.evaluations[evaluation.ID] = evaluation
		if evaluation.ID > repo.nextID {
			repo.nextID = evaluation.ID
		}
	}
	return repo
}

func (r *fakeEvaluationRepo) GetByID(ctx context.Context, id uint) (models.Evaluation, error) {
	if r.stall {
		<-ctx.Done()
		return models.Evaluation{}, ctx.Err()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	evaluation, ok := r.evaluations[id]
	if !ok {
		return models.Evaluation{}, gorm.ErrRecordNotFound
	}
	return evaluation, nil
}

func (r *fakeEvaluationRepo) Exists(_ context.Context, formID, evaluatorID, evaluateeID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, evaluation := range r.evaluations {
		if evaluation.FormID == formID && evaluation.EvaluatorID == evaluatorID && evaluation.EvaluateeID == evaluateeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeEvaluationRepo) CreateWithScores(_ context.Context, evaluation *models.Evaluation, scores []models.EvaluationScore) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	evaluation.ID = r.nextID
	for i := range scores {
		scores[i].EvaluationID = evaluation.ID
	}
	evaluation.Scores = scores
	r.evaluations[evaluation.ID] = *evaluation
	return nil
}

func (r *fakeEvaluationRepo) List(ctx context.Context, filter repository.EvaluationFilter) ([]models.Evaluation, error) {
	if r.stall {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []models.Evaluation
	for id := uint(1); id <= r.nextID; id++ {
		evaluation, ok := r.evaluations[id]
		if !ok {
			continue
		}
		if filter.FormID != nil && evaluation.FormID != *filter.FormID {
			continue
		}
		if filter.TeamID != nil && evaluation.TeamID != *filter.TeamID {
			continue
		}
		if filter.EvaluatorID != nil && evaluation.EvaluatorID != *filter.EvaluatorID {
			continue
		}
		if filter.EvaluateeID != nil && evaluation.EvaluateeID != *filter.EvaluateeID {
			continue
		}
		result = append(result, evaluation)
	}
	return result, nil
}

func (r *fakeEvaluationRepo) CountByEvaluator(_ context.Context, evaluatorID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, evaluation := range r.evaluations {
		if evaluation.EvaluatorID == evaluatorID {
			count++
		}
	}
	return count, nil
}

func (r *fakeEvaluationRepo) CountByForm(_ context.Context, formID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, evaluation := range r.evaluations {
		if evaluation.FormID == formID {
			count++
		}
	}
	return count, nil
}

type fakeAuditRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
	err     error
}

func (r *fakeAuditRecorder) Record(_ context.Context, entry AuditEntry) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeAuditRecorder) recorded() []AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]AuditEntry(nil), r.entries...)
}

type fakeEventPublisher struct {
	mu     sync.Mutex
	events []EvaluationSubmittedEvent
	err    error
}

func (p *fakeEventPublisher) PublishEvaluationSubmitted(_ context.Context, event EvaluationSubmittedEvent) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakeEventPublisher) published() []EvaluationSubmittedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]EvaluationSubmittedEvent(nil), p.events...)
}
