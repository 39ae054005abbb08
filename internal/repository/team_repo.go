package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/opetse/peereval-api/internal/models"
)

// TeamRepository defines data operations for teams and memberships.
type TeamRepository interface {
	GetByID(ctx context.Context, id uint) (models.Team, error)
	ListByProject(ctx context.Context, projectID uint) ([]models.Team, error)
	ListTeamIDsForUser(ctx context.Context, userID uint) ([]uint, error)
}

type teamRepository struct {
	db *gorm.DB
}

// NewTeamRepository instantiates the repository.
func NewTeamRepository(db *gorm.DB) TeamRepository {
	return &teamRepository{db: db}
}

func (r *teamRepository) GetByID(ctx context.Context, id uint) (models.Team, error) {
	var team models.Team
	if err := r.db.WithContext(ctx).Preload("Members").First(&team, id).Error; err != nil {
		return models.Team{}, err
	}

	return team, nil
}

func (r *teamRepository) ListByProject(ctx context.Context, projectID uint) ([]models.Team, error) {
	var teams []models.Team
	if err := r.db.WithContext(ctx).
		Preload("Members").
		Where("project_id = ?", projectID).
		Order("id ASC").
		Find(&teams).Error; err != nil {
		return nil, err
	}

	return teams, nil
}

func (r *teamRepository) ListTeamIDsForUser(ctx context.Context, userID uint) ([]uint, error) {
	var teamIDs []uint
	if err := r.db.WithContext(ctx).
		Table("team_members").
		Where("user_id = ?", userID).
		Pluck("team_id", &teamIDs).Error; err != nil {
		return nil, err
	}

	return teamIDs, nil
}
