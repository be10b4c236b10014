package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	redisbus "github.com/craftwise/craftwise-backend/internal/clients/redis"
	"github.com/craftwise/craftwise-backend/internal/domain"
	"github.com/craftwise/craftwise-backend/internal/engine/retrieval"
	"github.com/craftwise/craftwise-backend/internal/platform/embedder"
	"github.com/craftwise/craftwise-backend/internal/platform/logger"
	"github.com/craftwise/craftwise-backend/internal/repos"
)

type SubmitRecipeInput struct {
	ProblemID         uuid.UUID           `json:"problem_id"`
	ParentRecipeID    *uuid.UUID          `json:"parent_recipe_id,omitempty"`
	Title             string              `json:"title"`
	Steps             []string            `json:"steps"`
	SafetyNotes       string              `json:"safety_notes,omitempty"`
	RequiredMaterials map[string][]string `json:"required_materials,omitempty"`
	RequiredTools     map[string][]string `json:"required_tools,omitempty"`
	SafetyFlags       []string            `json:"safety_flags,omitempty"`
	EstTimeMin        int                 `json:"est_time_min"`
	EstCostCents      int                 `json:"est_cost_cents"`
	Confidence        *float64            `json:"confidence,omitempty"`
	CreatedByAI       bool                `json:"created_by_ai"`
}

type RecipeService interface {
	Submit(ctx context.Context, orgID uuid.UUID, input SubmitRecipeInput) (*domain.Recipe, error)
	Get(ctx context.Context, orgID, id uuid.UUID) (*domain.Recipe, error)
	ListByProblem(ctx context.Context, orgID, problemID uuid.UUID) ([]*domain.Recipe, error)
	History(ctx context.Context, orgID, id uuid.UUID) ([]*domain.Recipe, error)
	Latest(ctx context.Context, orgID, id uuid.UUID) (*domain.Recipe, error)
	Delete(ctx context.Context, orgID, id uuid.UUID) error
}

type recipeService struct {
	db          *gorm.DB
	log         *logger.Logger
	problemRepo repos.ProblemRepo
	recipeRepo  repos.RecipeRepo
	orch        *retrieval.Orchestrator
	embed       embedder.Client
	bus         redisbus.EventBus
}

func NewRecipeService(
	db *gorm.DB,
	baseLog *logger.Logger,
	problemRepo repos.ProblemRepo,
	recipeRepo repos.RecipeRepo,
	orch *retrieval.Orchestrator,
	embed embedder.Client,
	bus redisbus.EventBus,
) RecipeService {
	return &recipeService{
		db:          db,
		log:         baseLog.With("service", "RecipeService"),
		problemRepo: problemRepo,
		recipeRepo:  recipeRepo,
		orch:        orch,
		embed:       embed,
		bus:         bus,
	}
}

// Submit creates a root recipe, or a fork when parent_recipe_id is set.
// The recipe embeds over its title and step text.
func (rs *recipeService) Submit(ctx context.Context, orgID uuid.UUID, input SubmitRecipeInput) (*domain.Recipe, error) {
	if input.Title == "" {
		return nil, fmt.Errorf("a title is required")
	}
	problem, err := rs.problemRepo.GetByID(ctx, nil, orgID, input.ProblemID)
	if err != nil {
		return nil, fmt.Errorf("problem not found")
	}

	steps, err := domain.EncodeStringList(input.Steps)
	if err != nil {
		return nil, fmt.Errorf("invalid steps: %w", err)
	}
	materials, err := domain.EncodeAttrDoc(input.RequiredMaterials)
	if err != nil {
		return nil, fmt.Errorf("invalid required materials: %w", err)
	}
	tools, err := domain.EncodeAttrDoc(input.RequiredTools)
	if err != nil {
		return nil, fmt.Errorf("invalid required tools: %w", err)
	}
	flags, err := domain.EncodeStringList(input.SafetyFlags)
	if err != nil {
		return nil, fmt.Errorf("invalid safety flags: %w", err)
	}

	confidence := 0.5
	if input.Confidence != nil {
		confidence = *input.Confidence
	}
	recipe := &domain.Recipe{
		Title:             input.Title,
		Steps:             steps,
		SafetyNotes:       input.SafetyNotes,
		RequiredMaterials: materials,
		RequiredTools:     tools,
		SafetyFlags:       flags,
		EstTimeMin:        input.EstTimeMin,
		EstCostCents:      input.EstCostCents,
		Confidence:        confidence,
		CreatedByAI:       input.CreatedByAI,
	}

	text := input.Title + "\n" + strings.Join(input.Steps, "\n")
	if vecs, err := rs.embed.Embed(ctx, []string{text}); err != nil {
		rs.log.Warn("embedding failed, storing recipe unembedded", "error", err)
	} else if raw, encErr := domain.EncodeVector(vecs[0]); encErr == nil {
		recipe.Embedding = raw
	}

	recipe, err = rs.orch.SubmitRecipe(ctx, nil, problem, recipe, input.ParentRecipeID)
	if err != nil {
		return nil, err
	}
	rs.publish(ctx, redisbus.EventRecipeIndexed, orgID, recipe.ID)
	return recipe, nil
}

func (rs *recipeService) Get(ctx context.Context, orgID, id uuid.UUID) (*domain.Recipe, error) {
	return rs.recipeRepo.GetByID(ctx, nil, orgID, id)
}

func (rs *recipeService) ListByProblem(ctx context.Context, orgID, problemID uuid.UUID) ([]*domain.Recipe, error) {
	return rs.recipeRepo.ListByProblem(ctx, nil, orgID, problemID)
}

func (rs *recipeService) History(ctx context.Context, orgID, id uuid.UUID) ([]*domain.Recipe, error) {
	return rs.orch.Forest().History(ctx, nil, orgID, id)
}

func (rs *recipeService) Latest(ctx context.Context, orgID, id uuid.UUID) (*domain.Recipe, error) {
	return rs.orch.Forest().Latest(ctx, nil, orgID, id)
}

func (rs *recipeService) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	if err := rs.recipeRepo.Delete(ctx, nil, orgID, id); err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	rs.orch.RemoveRecipe(orgID, id)
	return nil
}

func (rs *recipeService) publish(ctx context.Context, eventType string, orgID, entityID uuid.UUID) {
	if rs.bus == nil {
		return
	}
	if err := rs.bus.Publish(ctx, redisbus.Event{Type: eventType, OrgID: orgID, EntityID: entityID}); err != nil {
		rs.log.Warn("failed to publish event", "type", eventType, "error", err)
	}
}
