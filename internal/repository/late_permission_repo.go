package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/opetse/peereval-api/internal/models"
)

// LatePermissionRepository defines data operations for late-submission
// permissions.
type LatePermissionRepository interface {
	GetActive(ctx context.Context, formID, userID uint) (models.LateSubmissionPermission, bool, error)
	Upsert(ctx context.Context, permission *models.LateSubmissionPermission) error
	Revoke(ctx context.Context, formID, userID uint) error
}

type latePermissionRepository struct {
	db *gorm.DB
}

// NewLatePermissionRepository instantiates the repository.
func NewLatePermissionRepository(db *gorm.DB) LatePermissionRepository {
	return &latePermissionRepository{db: db}
}

func (r *latePermissionRepository) GetActive(ctx context.Context, formID, userID uint) (models.LateSubmissionPermission, bool, error) {
	var permission models.LateSubmissionPermission
	err := r.db.WithContext(ctx).
		Where("form_id = ?", formID).
		Where("user_id = ?", userID).
		Where("active = ?", true).
		First(&permission).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.LateSubmissionPermission{}, false, nil
		}
		return models.LateSubmissionPermission{}, false, err
	}

	return permission, true, nil
}

func (r *latePermissionRepository) Upsert(ctx context.Context, permission *models.LateSubmissionPermission) error {
	var existing models.LateSubmissionPermission
	err := r.db.WithContext(ctx).
		Where("form_id = ?", permission.FormID).
		Where("user_id = ?", permission.UserID).
		First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return r.db.WithContext(ctx).Create(permission).Error
		}
		return err
	}

	permission.ID = existing.ID
	return r.db.WithContext(ctx).Save(permission).Error
}

func (r *latePermissionRepository) Revoke(ctx context.Context, formID, userID uint) error {
	return r.db.WithContext(ctx).Model(&models.LateSubmissionPermission{}).
		Where("form_id = ?", formID).
		Where("user_id = ?", userID).
		Update("active", false).Error
}
