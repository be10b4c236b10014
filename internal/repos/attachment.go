package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftwise/craftwise-backend/internal/domain"
	"github.com/craftwise/craftwise-backend/internal/platform/logger"
)

type AttachmentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, attachment *domain.Attachment) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Attachment, error)
	ListByOwner(ctx context.Context, tx *gorm.DB, ownerType domain.AttachmentOwner, ownerID uuid.UUID) ([]*domain.Attachment, error)
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type attachmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAttachmentRepo(db *gorm.DB, baseLog *logger.Logger) AttachmentRepo {
	return &attachmentRepo{db: db, log: baseLog.With("repo", "AttachmentRepo")}
}

func (r *attachmentRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *attachmentRepo) Create(ctx context.Context, tx *gorm.DB, attachment *domain.Attachment) error {
	return r.conn(tx).WithContext(ctx).Create(attachment).Error
}

func (r *attachmentRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Attachment, error) {
	var attachment domain.Attachment
	if err := r.conn(tx).WithContext(ctx).First(&attachment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &attachment, nil
}

func (r *attachmentRepo) ListByOwner(ctx context.Context, tx *gorm.DB, ownerType domain.AttachmentOwner, ownerID uuid.UUID) ([]*domain.Attachment, error) {
	var out []*domain.Attachment
	if err := r.conn(tx).WithContext(ctx).
		Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *attachmentRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return r.conn(tx).WithContext(ctx).Delete(&domain.Attachment{}, "id = ?", id).Error
}
