package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	redisbus "github.com/craftwise/craftwise-backend/internal/clients/redis"
	"github.com/craftwise/craftwise-backend/internal/domain"
	"github.com/craftwise/craftwise-backend/internal/engine/retrieval"
	"github.com/craftwise/craftwise-backend/internal/platform/embedder"
	"github.com/craftwise/craftwise-backend/internal/platform/logger"
	"github.com/craftwise/craftwise-backend/internal/repos"
)

type CreateProblemInput struct {
	WorkspaceID *uuid.UUID          `json:"workspace_id,omitempty"`
	Description string              `json:"description"`
	Constraints map[string][]string `json:"constraints,omitempty"`
	SafetyFlags []string            `json:"safety_flags,omitempty"`
}

type ProblemService interface {
	Create(ctx context.Context, orgID uuid.UUID, input CreateProblemInput) (*domain.Problem, error)
	Get(ctx context.Context, orgID, id uuid.UUID) (*domain.Problem, error)
	List(ctx context.Context, orgID uuid.UUID, statuses []string) ([]*domain.Problem, error)
	UpdateStatus(ctx context.Context, orgID, id uuid.UUID, status string) error
	Delete(ctx context.Context, orgID, id uuid.UUID) error
	Candidates(ctx context.Context, orgID, id uuid.UUID) (*retrieval.Result, error)
}

type problemService struct {
	db          *gorm.DB
	log         *logger.Logger
	problemRepo repos.ProblemRepo
	orch        *retrieval.Orchestrator
	embed       embedder.Client
	bus         redisbus.EventBus
}

func NewProblemService(
	db *gorm.DB,
	baseLog *logger.Logger,
	problemRepo repos.ProblemRepo,
	orch *retrieval.Orchestrator,
	embed embedder.Client,
	bus redisbus.EventBus,
) ProblemService {
	return &problemService{
		db:          db,
		log:         baseLog.With("service", "ProblemService"),
		problemRepo: problemRepo,
		orch:        orch,
		embed:       embed,
		bus:         bus,
	}
}

// Create persists the problem, then embeds its description and indexes
// it. An embedder failure leaves the problem stored without an
// embedding; it joins similarity search after a later bootstrap or
// re-embed, never blocks the write.
func (ps *problemService) Create(ctx context.Context, orgID uuid.UUID, input CreateProblemInput) (*domain.Problem, error) {
	if input.Description == "" {
		return nil, fmt.Errorf("a description is required")
	}
	constraints, err := domain.EncodeAttrDoc(input.Constraints)
	if err != nil {
		return nil, fmt.Errorf("invalid constraints: %w", err)
	}
	flags, err := domain.EncodeStringList(input.SafetyFlags)
	if err != nil {
		return nil, fmt.Errorf("invalid safety flags: %w", err)
	}

	problem := &domain.Problem{
		WorkspaceID: input.WorkspaceID,
		OrgID:       orgID,
		Description: input.Description,
		Constraints: constraints,
		SafetyFlags: flags,
		Status:      domain.ProblemStatusOpen,
	}

	if vecs, err := ps.embed.Embed(ctx, []string{input.Description}); err != nil {
		ps.log.Warn("embedding failed, storing problem unembedded", "error", err)
	} else if raw, encErr := domain.EncodeVector(vecs[0]); encErr == nil {
		problem.Embedding = raw
	}

	if err := ps.problemRepo.Create(ctx, nil, problem); err != nil {
		return nil, fmt.Errorf("failed to create problem: %w", err)
	}

	if len(problem.Embedding) > 0 {
		if err := ps.orch.IndexProblem(problem); err != nil {
			ps.log.Warn("failed to index problem", "problem_id", problem.ID, "error", err)
		} else {
			ps.publish(ctx, redisbus.EventProblemIndexed, orgID, problem.ID)
		}
	}
	return problem, nil
}

func (ps *problemService) Get(ctx context.Context, orgID, id uuid.UUID) (*domain.Problem, error) {
	return ps.problemRepo.GetByID(ctx, nil, orgID, id)
}

func (ps *problemService) List(ctx context.Context, orgID uuid.UUID, statuses []string) ([]*domain.Problem, error) {
	for _, s := range statuses {
		if !domain.ValidProblemStatus(s) {
			return nil, fmt.Errorf("unknown status %q", s)
		}
	}
	return ps.problemRepo.ListByOrg(ctx, nil, orgID, statuses)
}

func (ps *problemService) UpdateStatus(ctx context.Context, orgID, id uuid.UUID, status string) error {
	if !domain.ValidProblemStatus(status) {
		return fmt.Errorf("unknown status %q", status)
	}
	return ps.problemRepo.UpdateStatus(ctx, nil, orgID, id, status)
}

// Delete removes the row; recipes cascade in Postgres, so their index
// entries are dropped here too.
func (ps *problemService) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	recipes, err := ps.orch.RecipesOf(ctx, nil, orgID, id)
	if err != nil {
		return err
	}
	if err := ps.problemRepo.Delete(ctx, nil, orgID, id); err != nil {
		return fmt.Errorf("failed to delete problem: %w", err)
	}
	ps.orch.RemoveProblem(orgID, id)
	for _, r := range recipes {
		ps.orch.RemoveRecipe(orgID, r.ID)
	}
	return nil
}

func (ps *problemService) Candidates(ctx context.Context, orgID, id uuid.UUID) (*retrieval.Result, error) {
	problem, err := ps.problemRepo.GetByID(ctx, nil, orgID, id)
	if err != nil {
		return nil, err
	}
	return ps.orch.FindCandidates(ctx, nil, problem)
}

func (ps *problemService) publish(ctx context.Context, eventType string, orgID, entityID uuid.UUID) {
	if ps.bus == nil {
		return
	}
	if err := ps.bus.Publish(ctx, redisbus.Event{Type: eventType, OrgID: orgID, EntityID: entityID}); err != nil {
		ps.log.Warn("failed to publish event", "type", eventType, "error", err)
	}
}
