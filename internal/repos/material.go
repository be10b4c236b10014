package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftwise/craftwise-backend/internal/domain"
	"github.com/craftwise/craftwise-backend/internal/platform/logger"
)

type MaterialRepo interface {
	Create(ctx context.Context, tx *gorm.DB, materials []*domain.Material) error
	GetByID(ctx context.Context, tx *gorm.DB, orgID, id uuid.UUID) (*domain.Material, error)
	ListByOrg(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) ([]*domain.Material, error)
	UpdateStock(ctx context.Context, tx *gorm.DB, orgID, id uuid.UUID, stock int) error
	Delete(ctx context.Context, tx *gorm.DB, orgID, id uuid.UUID) error
}

type materialRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMaterialRepo(db *gorm.DB, baseLog *logger.Logger) MaterialRepo {
	return &materialRepo{db: db, log: baseLog.With("repo", "MaterialRepo")}
}

func (r *materialRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *materialRepo) Create(ctx context.Context, tx *gorm.DB, materials []*domain.Material) error {
	if len(materials) == 0 {
		return nil
	}
	const batchSize = 100
	return r.conn(tx).WithContext(ctx).CreateInBatches(materials, batchSize).Error
}

func (r *materialRepo) GetByID(ctx context.Context, tx *gorm.DB, orgID, id uuid.UUID) (*domain.Material, error) {
	var m domain.Material
	if err := r.conn(tx).WithContext(ctx).
		First(&m, "id = ? AND org_id = ?", id, orgID).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *materialRepo) ListByOrg(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) ([]*domain.Material, error) {
	var out []*domain.Material
	if err := r.conn(tx).WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("name ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *materialRepo) UpdateStock(ctx context.Context, tx *gorm.DB, orgID, id uuid.UUID, stock int) error {
	return r.conn(tx).WithContext(ctx).
		Model(&domain.Material{}).
		Where("id = ? AND org_id = ?", id, orgID).
		Update("stock", stock).Error
}

func (r *materialRepo) Delete(ctx context.Context, tx *gorm.DB, orgID, id uuid.UUID) error {
	return r.conn(tx).WithContext(ctx).
		Delete(&domain.Material{}, "id = ? AND org_id = ?", id, orgID).Error
}
