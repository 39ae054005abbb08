package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/opetse/peereval-api/internal/models"
)

// EvaluationFilter narrows evaluation queries. All fields are optional.
type EvaluationFilter struct {
	FormID      *uint
	TeamID      *uint
	EvaluatorID *uint
	EvaluateeID *uint
}

// EvaluationRepository defines data operations for evaluations.
type EvaluationRepository interface {
	GetByID(ctx context.Context, id uint) (models.Evaluation, error)
	Exists(ctx context.Context, formID, evaluatorID, evaluateeID uint) (bool, error)
	// CreateWithScores persists the evaluation header and its score rows as a
	// single transaction; readers never observe a partial write.
	CreateWithScores(ctx context.Context, evaluation *models.Evaluation, scores []models.EvaluationScore) error
	List(ctx context.Context, filter EvaluationFilter) ([]models.Evaluation, error)
	CountByEvaluator(ctx context.Context, evaluatorID uint) (int64, error)
	CountByForm(ctx context.Context, formID uint) (int64, error)
}

type evaluationRepository struct {
	db *gorm.DB
}

// NewEvaluationRepository instantiates the repository.
func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

func (r *evaluationRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Evaluation{}).
		Preload("Form").
		Preload("Form.Criteria", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC")
		}).
		Preload("Team").
		Preload("Evaluator").
		Preload("Evaluatee").
		Preload("Scores").
		Preload("Scores.Criterion")
}

func (r *evaluationRepository) GetByID(ctx context.Context, id uint) (models.Evaluation, error) {
	var evaluation models.Evaluation
	if err := r.baseQuery(ctx).First(&evaluation, id).Error; err != nil {
		return models.Evaluation{}, err
	}

	return evaluation, nil
}

func (r *evaluationRepository) Exists(ctx context.Context, formID, evaluatorID, evaluateeID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Evaluation{}).
		Where("form_id = ?", formID).
		Where("evaluator_id = ?", evaluatorID).
		Where("evaluatee_id = ?", evaluateeID).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *evaluationRepository) CreateWithScores(ctx context.Context, evaluation *models.Evaluation, scores []models.EvaluationScore) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(evaluation).Error; err != nil {
			return err
		}

		for i := range scores {
			scores[i].EvaluationID = evaluation.ID
		}

		// One batched insert for all score rows instead of N single-row writes.
		if err := tx.Create(&scores).Error; err != nil {
			return err
		}

		return nil
	})
}

func (r *evaluationRepository) List(ctx context.Context, filter EvaluationFilter) ([]models.Evaluation, error) {
	query := r.baseQuery(ctx)

	if filter.FormID != nil {
		query = query.Where("form_id = ?", *filter.FormID)
	}

	if filter.TeamID != nil {
		query = query.Where("team_id = ?", *filter.TeamID)
	}

	if filter.EvaluatorID != nil {
		query = query.Where("evaluator_id = ?", *filter.EvaluatorID)
	}

	if filter.EvaluateeID != nil {
		query = query.Where("evaluatee_id = ?", *filter.EvaluateeID)
	}

	var evaluations []models.Evaluation
	if err := query.Order("submitted_at DESC").Find(&evaluations).Error; err != nil {
		return nil, err
	}

	return evaluations, nil
}

func (r *evaluationRepository) CountByEvaluator(ctx context.Context, evaluatorID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Evaluation{}).
		Where("evaluator_id = ?", evaluatorID).
		Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}

func (r *evaluationRepository) CountByForm(ctx context.Context, formID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Evaluation{}).
		Where("form_id = ?", formID).
		Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}
