package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/craftwise/craftwise-backend/internal/domain"
	"github.com/craftwise/craftwise-backend/internal/platform/logger"
	"github.com/craftwise/craftwise-backend/internal/repos"
)

type CreateToolInput struct {
	Name         string         `json:"name"`
	Capabilities datatypes.JSON `json:"capabilities,omitempty"`
}

type ToolService interface {
	Create(ctx context.Context, orgID, userID uuid.UUID, inputs []CreateToolInput) ([]*domain.Tool, error)
	Get(ctx context.Context, orgID, id uuid.UUID) (*domain.Tool, error)
	List(ctx context.Context, orgID uuid.UUID) ([]*domain.Tool, error)
	Delete(ctx context.Context, orgID, id uuid.UUID) error
}

type toolService struct {
	db       *gorm.DB
	log      *logger.Logger
	toolRepo repos.ToolRepo
}

func NewToolService(db *gorm.DB, baseLog *logger.Logger, toolRepo repos.ToolRepo) ToolService {
	return &toolService{
		db:       db,
		log:      baseLog.With("service", "ToolService"),
		toolRepo: toolRepo,
	}
}

func (ts *toolService) Create(ctx context.Context, orgID, userID uuid.UUID, inputs []CreateToolInput) ([]*domain.Tool, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("at least one tool is required")
	}
	tools := make([]*domain.Tool, 0, len(inputs))
	for _, in := range inputs {
		if in.Name == "" {
			return nil, fmt.Errorf("a tool name is required")
		}
		tools = append(tools, &domain.Tool{
			OrgID:        orgID,
			UserID:       &userID,
			Name:         in.Name,
			Capabilities: in.Capabilities,
		})
	}
	if err := ts.toolRepo.Create(ctx, nil, tools); err != nil {
		return nil, fmt.Errorf("failed to create tools: %w", err)
	}
	return tools, nil
}

func (ts *toolService) Get(ctx context.Context, orgID, id uuid.UUID) (*domain.Tool, error) {
	return ts.toolRepo.GetByID(ctx, nil, orgID, id)
}

func (ts *toolService) List(ctx context.Context, orgID uuid.UUID) ([]*domain.Tool, error) {
	return ts.toolRepo.ListByOrg(ctx, nil, orgID)
}

func (ts *toolService) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	return ts.toolRepo.Delete(ctx, nil, orgID, id)
}
