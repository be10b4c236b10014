package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftwise/craftwise-backend/internal/domain"
	"github.com/craftwise/craftwise-backend/internal/platform/logger"
	"github.com/craftwise/craftwise-backend/internal/repos"
)

type WorkspaceService interface {
	Create(ctx context.Context, orgID, ownerID uuid.UUID, location string) (*domain.Workspace, error)
	Get(ctx context.Context, orgID, id uuid.UUID) (*domain.Workspace, error)
	List(ctx context.Context, orgID uuid.UUID) ([]*domain.Workspace, error)
	Delete(ctx context.Context, orgID, id uuid.UUID) error
}

type workspaceService struct {
	db            *gorm.DB
	log           *logger.Logger
	workspaceRepo repos.WorkspaceRepo
}

func NewWorkspaceService(db *gorm.DB, baseLog *logger.Logger, workspaceRepo repos.WorkspaceRepo) WorkspaceService {
	return &workspaceService{
		db:            db,
		log:           baseLog.With("service", "WorkspaceService"),
		workspaceRepo: workspaceRepo,
	}
}

func (ws *workspaceService) Create(ctx context.Context, orgID, ownerID uuid.UUID, location string) (*domain.Workspace, error) {
	workspace := &domain.Workspace{
		OrgID:    orgID,
		OwnerID:  &ownerID,
		Location: location,
	}
	if err := ws.workspaceRepo.Create(ctx, nil, workspace); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	return workspace, nil
}

func (ws *workspaceService) Get(ctx context.Context, orgID, id uuid.UUID) (*domain.Workspace, error) {
	return ws.workspaceRepo.GetByID(ctx, nil, orgID, id)
}

func (ws *workspaceService) List(ctx context.Context, orgID uuid.UUID) ([]*domain.Workspace, error) {
	return ws.workspaceRepo.ListByOrg(ctx, nil, orgID)
}

func (ws *workspaceService) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	return ws.workspaceRepo.Delete(ctx, nil, orgID, id)
}
