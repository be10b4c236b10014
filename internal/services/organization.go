package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftwise/craftwise-backend/internal/domain"
	"github.com/craftwise/craftwise-backend/internal/platform/logger"
	"github.com/craftwise/craftwise-backend/internal/repos"
)

type OrganizationService interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Organization, error)
}

type organizationService struct {
	db      *gorm.DB
	log     *logger.Logger
	orgRepo repos.OrganizationRepo
}

func NewOrganizationService(db *gorm.DB, baseLog *logger.Logger, orgRepo repos.OrganizationRepo) OrganizationService {
	return &organizationService{
		db:      db,
		log:     baseLog.With("service", "OrganizationService"),
		orgRepo: orgRepo,
	}
}

func (os *organizationService) Get(ctx context.Context, id uuid.UUID) (*domain.Organization, error) {
	return os.orgRepo.GetByID(ctx, nil, id)
}
