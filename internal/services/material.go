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

type CreateMaterialInput struct {
	Name       string         `json:"name"`
	Properties datatypes.JSON `json:"properties,omitempty"`
	Stock      int            `json:"stock"`
}

type MaterialService interface {
	Create(ctx context.Context, orgID, userID uuid.UUID, inputs []CreateMaterialInput) ([]*domain.Material, error)
	Get(ctx context.Context, orgID, id uuid.UUID) (*domain.Material, error)
	List(ctx context.Context, orgID uuid.UUID) ([]*domain.Material, error)
	UpdateStock(ctx context.Context, orgID, id uuid.UUID, stock int) error
	Delete(ctx context.Context, orgID, id uuid.UUID) error
}

type materialService struct {
	db           *gorm.DB
	log          *logger.Logger
	materialRepo repos.MaterialRepo
}

func NewMaterialService(db *gorm.DB, baseLog *logger.Logger, materialRepo repos.MaterialRepo) MaterialService {
	return &materialService{
		db:           db,
		log:          baseLog.With("service", "MaterialService"),
		materialRepo: materialRepo,
	}
}

func (ms *materialService) Create(ctx context.Context, orgID, userID uuid.UUID, inputs []CreateMaterialInput) ([]*domain.Material, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("at least one material is required")
	}
	materials := make([]*domain.Material, 0, len(inputs))
	for _, in := range inputs {
		if in.Name == "" {
			return nil, fmt.Errorf("a material name is required")
		}
		if in.Stock < 0 {
			return nil, fmt.Errorf("stock cannot be negative")
		}
		materials = append(materials, &domain.Material{
			OrgID:      orgID,
			UserID:     &userID,
			Name:       in.Name,
			Properties: in.Properties,
			Stock:      in.Stock,
		})
	}
	if err := ms.materialRepo.Create(ctx, nil, materials); err != nil {
		return nil, fmt.Errorf("failed to create materials: %w", err)
	}
	return materials, nil
}

func (ms *materialService) Get(ctx context.Context, orgID, id uuid.UUID) (*domain.Material, error) {
	return ms.materialRepo.GetByID(ctx, nil, orgID, id)
}

func (ms *materialService) List(ctx context.Context, orgID uuid.UUID) ([]*domain.Material, error) {
	return ms.materialRepo.ListByOrg(ctx, nil, orgID)
}

func (ms *materialService) UpdateStock(ctx context.Context, orgID, id uuid.UUID, stock int) error {
	if stock < 0 {
		return fmt.Errorf("stock cannot be negative")
	}
	return ms.materialRepo.UpdateStock(ctx, nil, orgID, id, stock)
}

func (ms *materialService) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	return ms.materialRepo.Delete(ctx, nil, orgID, id)
}
