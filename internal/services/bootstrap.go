package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/craftwise/craftwise-backend/internal/engine/retrieval"
	"github.com/craftwise/craftwise-backend/internal/platform/logger"
	"github.com/craftwise/craftwise-backend/internal/repos"
)

// BootstrapService rebuilds the in-memory indexes from Postgres at
// startup. The relational store is authoritative; the indexes are a
// derived view and can always be regenerated from it.
type BootstrapService interface {
	RebuildIndexes(ctx context.Context) error
}

type bootstrapService struct {
	db          *gorm.DB
	log         *logger.Logger
	problemRepo repos.ProblemRepo
	recipeRepo  repos.RecipeRepo
	orch        *retrieval.Orchestrator
}

func NewBootstrapService(
	db *gorm.DB,
	baseLog *logger.Logger,
	problemRepo repos.ProblemRepo,
	recipeRepo repos.RecipeRepo,
	orch *retrieval.Orchestrator,
) BootstrapService {
	return &bootstrapService{
		db:          db,
		log:         baseLog.With("service", "BootstrapService"),
		problemRepo: problemRepo,
		recipeRepo:  recipeRepo,
		orch:        orch,
	}
}

func (bs *bootstrapService) RebuildIndexes(ctx context.Context) error {
	start := time.Now()
	var problemCount, recipeCount, skippedProblems, skippedRecipes int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		problems, err := bs.problemRepo.ListEmbedded(gctx, nil)
		if err != nil {
			return fmt.Errorf("failed to list embedded problems: %w", err)
		}
		for _, p := range problems {
			if err := bs.orch.IndexProblem(p); err != nil {
				bs.log.Warn("skipping unindexable problem", "problem_id", p.ID, "error", err)
				skippedProblems++
				continue
			}
			problemCount++
		}
		return nil
	})
	g.Go(func() error {
		// Every recipe goes through IndexRecipe, not just the embedded
		// ones: an unembedded recipe is still reachable through
		// problem-side expansion, so its safety flags must be in the
		// attribute index before the first query lands.
		recipes, err := bs.recipeRepo.ListAll(gctx, nil)
		if err != nil {
			return fmt.Errorf("failed to list recipes: %w", err)
		}
		for _, r := range recipes {
			if err := bs.orch.IndexRecipe(r); err != nil {
				bs.log.Warn("skipping unindexable recipe", "recipe_id", r.ID, "error", err)
				skippedRecipes++
				continue
			}
			recipeCount++
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	bs.log.Info("indexes rebuilt",
		"problems", problemCount, "recipes", recipeCount, "skipped", skippedProblems+skippedRecipes,
		"elapsed", time.Since(start).String())
	return nil
}
