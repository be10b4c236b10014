package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftwise/craftwise-backend/internal/domain"
	"github.com/craftwise/craftwise-backend/internal/platform/logger"
)

type ToolRepo interface {
	Create(ctx context.Context, tx *gorm.DB, tools []*domain.Tool) error
	GetByID(ctx context.Context, tx *gorm.DB, orgID, id uuid.UUID) (*domain.Tool, error)
	ListByOrg(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) ([]*domain.Tool, error)
	Delete(ctx context.Context, tx *gorm.DB, orgID, id uuid.UUID) error
}

type toolRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewToolRepo(db *gorm.DB, baseLog *logger.Logger) ToolRepo {
	return &toolRepo{db: db, log: baseLog.With("repo", "ToolRepo")}
}

func (r *toolRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *toolRepo) Create(ctx context.Context, tx *gorm.DB, tools []*domain.Tool) error {
	if len(tools) == 0 {
		return nil
	}
	const batchSize = 100
	return r.conn(tx).WithContext(ctx).CreateInBatches(tools, batchSize).Error
}

func (r *toolRepo) GetByID(ctx context.Context, tx *gorm.DB, orgID, id uuid.UUID) (*domain.Tool, error) {
	var tool domain.Tool
	if err := r.conn(tx).WithContext(ctx).
		First(&tool, "id = ? AND org_id = ?", id, orgID).Error; err != nil {
		return nil, err
	}
	return &tool, nil
}

func (r *toolRepo) ListByOrg(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) ([]*domain.Tool, error) {
	var out []*domain.Tool
	if err := r.conn(tx).WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("name ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *toolRepo) Delete(ctx context.Context, tx *gorm.DB, orgID, id uuid.UUID) error {
	return r.conn(tx).WithContext(ctx).
		Delete(&domain.Tool{}, "id = ? AND org_id = ?", id, orgID).Error
}
