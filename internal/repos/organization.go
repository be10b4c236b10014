package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftwise/craftwise-backend/internal/domain"
	"github.com/craftwise/craftwise-backend/internal/platform/logger"
)

type OrganizationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, org *domain.Organization) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Organization, error)
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type organizationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOrganizationRepo(db *gorm.DB, baseLog *logger.Logger) OrganizationRepo {
	return &organizationRepo{db: db, log: baseLog.With("repo", "OrganizationRepo")}
}

func (r *organizationRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *organizationRepo) Create(ctx context.Context, tx *gorm.DB, org *domain.Organization) error {
	return r.conn(tx).WithContext(ctx).Create(org).Error
}

func (r *organizationRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Organization, error) {
	var org domain.Organization
	if err := r.conn(tx).WithContext(ctx).First(&org, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *organizationRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return r.conn(tx).WithContext(ctx).Delete(&domain.Organization{}, "id = ?", id).Error
}
