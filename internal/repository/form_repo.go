package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/opetse/peereval-api/internal/models"
)

// FormRepository defines data operations for evaluation forms.
type FormRepository interface {
	GetByID(ctx context.Context, id uint) (models.EvaluationForm, error)
	Create(ctx context.Context, form *models.EvaluationForm) error
	ReplaceCriteria(ctx context.Context, formID uint, criteria []models.FormCriterion) error
	UpdateDeadline(ctx context.Context, formID uint, deadline *time.Time) error
}

type formRepository struct {
	db *gorm.DB
}

// NewFormRepository instantiates the repository.
func NewFormRepository(db *gorm.DB) FormRepository {
	return &formRepository{db: db}
}

func (r *formRepository) GetByID(ctx context.Context, id uint) (models.EvaluationForm, error) {
	var form models.EvaluationForm
	if err := r.db.WithContext(ctx).
		Preload("Criteria", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_index ASC")
		}).
		First(&form, id).Error; err != nil {
		return models.EvaluationForm{}, err
	}

	return form, nil
}

func (r *formRepository) Create(ctx context.Context, form *models.EvaluationForm) error {
	return r.db.WithContext(ctx).Create(form).Error
}

func (r *formRepository) ReplaceCriteria(ctx context.Context, formID uint, criteria []models.FormCriterion) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("form_id = ?", formID).Delete(&models.FormCriterion{}).Error; err != nil {
			return err
		}
		for i := range criteria {
			criteria[i].FormID = formID
		}
		return tx.Create(&criteria).Error
	})
}

func (r *formRepository) UpdateDeadline(ctx context.Context, formID uint, deadline *time.Time) error {
	return r.db.WithContext(ctx).Model(&models.EvaluationForm{}).
		Where("id = ?", formID).
		Update("deadline", deadline).Error
}
