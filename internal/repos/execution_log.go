package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftwise/craftwise-backend/internal/domain"
	"github.com/craftwise/craftwise-backend/internal/platform/logger"
)

type ExecutionLogRepo interface {
	Create(ctx context.Context, tx *gorm.DB, logEntry *domain.ExecutionLog) error
	Exists(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error)
	CountByRecipe(ctx context.Context, tx *gorm.DB, recipeID uuid.UUID) (int64, error)
	ListByRecipe(ctx context.Context, tx *gorm.DB, recipeID uuid.UUID) ([]*domain.ExecutionLog, error)
}

type executionLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewExecutionLogRepo(db *gorm.DB, baseLog *logger.Logger) ExecutionLogRepo {
	return &executionLogRepo{db: db, log: baseLog.With("repo", "ExecutionLogRepo")}
}

func (r *executionLogRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *executionLogRepo) Create(ctx context.Context, tx *gorm.DB, logEntry *domain.ExecutionLog) error {
	return r.conn(tx).WithContext(ctx).Create(logEntry).Error
}

func (r *executionLogRepo) Exists(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error) {
	var found domain.ExecutionLog
	err := r.conn(tx).WithContext(ctx).
		Select("id").
		First(&found, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *executionLogRepo) CountByRecipe(ctx context.Context, tx *gorm.DB, recipeID uuid.UUID) (int64, error) {
	var n int64
	if err := r.conn(tx).WithContext(ctx).
		Model(&domain.ExecutionLog{}).
		Where("recipe_id = ?", recipeID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *executionLogRepo) ListByRecipe(ctx context.Context, tx *gorm.DB, recipeID uuid.UUID) ([]*domain.ExecutionLog, error) {
	var out []*domain.ExecutionLog
	if err := r.conn(tx).WithContext(ctx).
		Where("recipe_id = ?", recipeID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
