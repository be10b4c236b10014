package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftwise/craftwise-backend/internal/domain"
	"github.com/craftwise/craftwise-backend/internal/platform/logger"
)

type WorkspaceRepo interface {
	Create(ctx context.Context, tx *gorm.DB, ws *domain.Workspace) error
	GetByID(ctx context.Context, tx *gorm.DB, orgID, id uuid.UUID) (*domain.Workspace, error)
	ListByOrg(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) ([]*domain.Workspace, error)
	Delete(ctx context.Context, tx *gorm.DB, orgID, id uuid.UUID) error
}

type workspaceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWorkspaceRepo(db *gorm.DB, baseLog *logger.Logger) WorkspaceRepo {
	return &workspaceRepo{db: db, log: baseLog.With("repo", "WorkspaceRepo")}
}

func (r *workspaceRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *workspaceRepo) Create(ctx context.Context, tx *gorm.DB, ws *domain.Workspace) error {
	return r.conn(tx).WithContext(ctx).Create(ws).Error
}

func (r *workspaceRepo) GetByID(ctx context.Context, tx *gorm.DB, orgID, id uuid.UUID) (*domain.Workspace, error) {
	var ws domain.Workspace
	if err := r.conn(tx).WithContext(ctx).
		First(&ws, "id = ? AND org_id = ?", id, orgID).Error; err != nil {
		return nil, err
	}
	return &ws, nil
}

func (r *workspaceRepo) ListByOrg(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) ([]*domain.Workspace, error) {
	var out []*domain.Workspace
	if err := r.conn(tx).WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *workspaceRepo) Delete(ctx context.Context, tx *gorm.DB, orgID, id uuid.UUID) error {
	return r.conn(tx).WithContext(ctx).
		Delete(&domain.Workspace{}, "id = ? AND org_id = ?", id, orgID).Error
}
