package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/craftwise/craftwise-backend/internal/domain"
	"github.com/craftwise/craftwise-backend/internal/platform/logger"
)

type ProblemRepo interface {
	Create(ctx context.Context, tx *gorm.DB, problem *domain.Problem) error
	GetByID(ctx context.Context, tx *gorm.DB, orgID, id uuid.UUID) (*domain.Problem, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, ids []uuid.UUID) ([]*domain.Problem, error)
	ListByOrg(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, statuses []string) ([]*domain.Problem, error)
	ListEmbedded(ctx context.Context, tx *gorm.DB) ([]*domain.Problem, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, orgID, id uuid.UUID, status string) error
	UpdateEmbedding(ctx context.Context, tx *gorm.DB, orgID, id uuid.UUID, embedding datatypes.JSON) error
	Delete(ctx context.Context, tx *gorm.DB, orgID, id uuid.UUID) error
}

type problemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProblemRepo(db *gorm.DB, baseLog *logger.Logger) ProblemRepo {
	return &problemRepo{db: db, log: baseLog.With("repo", "ProblemRepo")}
}

func (r *problemRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *problemRepo) Create(ctx context.Context, tx *gorm.DB, problem *domain.Problem) error {
	return r.conn(tx).WithContext(ctx).Create(problem).Error
}

func (r *problemRepo) GetByID(ctx context.Context, tx *gorm.DB, orgID, id uuid.UUID) (*domain.Problem, error) {
	var p domain.Problem
	if err := r.conn(tx).WithContext(ctx).
		First(&p, "id = ? AND org_id = ?", id, orgID).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *problemRepo) GetByIDs(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, ids []uuid.UUID) ([]*domain.Problem, error) {
	var out []*domain.Problem
	if len(ids) == 0 {
		return out, nil
	}
	if err := r.conn(tx).WithContext(ctx).
		Where("id IN ? AND org_id = ?", ids, orgID).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *problemRepo) ListByOrg(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, statuses []string) ([]*domain.Problem, error) {
	q := r.conn(tx).WithContext(ctx).Where("org_id = ?", orgID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	var out []*domain.Problem
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListEmbedded returns every problem carrying an embedding, across all
// tenants. Used only by the index bootstrap at startup.
func (r *problemRepo) ListEmbedded(ctx context.Context, tx *gorm.DB) ([]*domain.Problem, error) {
	var out []*domain.Problem
	if err := r.conn(tx).WithContext(ctx).
		Where("embedding IS NOT NULL").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *problemRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, orgID, id uuid.UUID, status string) error {
	return r.conn(tx).WithContext(ctx).
		Model(&domain.Problem{}).
		Where("id = ? AND org_id = ?", id, orgID).
		Update("status", status).Error
}

func (r *problemRepo) UpdateEmbedding(ctx context.Context, tx *gorm.DB, orgID, id uuid.UUID, embedding datatypes.JSON) error {
	return r.conn(tx).WithContext(ctx).
		Model(&domain.Problem{}).
		Where("id = ? AND org_id = ?", id, orgID).
		Update("embedding", embedding).Error
}

func (r *problemRepo) Delete(ctx context.Context, tx *gorm.DB, orgID, id uuid.UUID) error {
	return r.conn(tx).WithContext(ctx).
		Delete(&domain.Problem{}, "id = ? AND org_id = ?", id, orgID).Error
}
