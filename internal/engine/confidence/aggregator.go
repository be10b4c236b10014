// Package confidence folds execution feedback into a recipe's stored
// confidence score. Each log contributes once: the score is the running
// mean of all accepted signals seeded by the 0.5 prior, so replays and
// out-of-range ratings never move it.
package confidence

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftwise/craftwise-backend/internal/domain"
	"github.com/craftwise/craftwise-backend/internal/engine/enginerr"
	"github.com/craftwise/craftwise-backend/internal/platform/logger"
	"github.com/craftwise/craftwise-backend/internal/repos"
)

// Aggregator serializes feedback per recipe so two concurrent logs for
// the same recipe both land in the mean instead of racing on the stored
// score.
type Aggregator struct {
	recipes repos.RecipeRepo
	logs    repos.ExecutionLogRepo
	log     *logger.Logger

	mu     sync.Mutex
	perRec map[uuid.UUID]*sync.Mutex
}

func NewAggregator(recipes repos.RecipeRepo, logs repos.ExecutionLogRepo, baseLog *logger.Logger) *Aggregator {
	return &Aggregator{
		recipes: recipes,
		logs:    logs,
		log:     baseLog.With("component", "confidence.Aggregator"),
		perRec:  map[uuid.UUID]*sync.Mutex{},
	}
}

func (a *Aggregator) recipeLock(id uuid.UUID) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	m, ok := a.perRec[id]
	if !ok {
		m = &sync.Mutex{}
		a.perRec[id] = m
	}
	return m
}

// Signal maps an outcome and rating onto [0,1]. Success dominates the
// rating, failure stays in the bottom fifth, partial sits between.
func Signal(outcome string, rating int) (float64, error) {
	if rating < domain.RatingMin || rating > domain.RatingMax {
		return 0, enginerr.Newf(enginerr.KindValidation, "confidence.Signal", "rating %d outside [%d,%d]", rating, domain.RatingMin, domain.RatingMax)
	}
	switch outcome {
	case domain.OutcomeSuccess:
		return 0.75 + float64(rating)/20, nil
	case domain.OutcomePartial:
		return 0.25 + float64(rating)/10, nil
	case domain.OutcomeFailure:
		return float64(rating-1) / 20, nil
	}
	return 0, enginerr.Newf(enginerr.KindValidation, "confidence.Signal", "unknown outcome %q", outcome)
}

// Record validates and persists one execution log, then folds its
// signal into the recipe's confidence. The update is a running mean:
// with n prior logs, new = clamp01((old*n + signal)/(n+1)). A log id
// already recorded is a no-op returning the current score.
func (a *Aggregator) Record(ctx context.Context, tx *gorm.DB, orgID uuid.UUID, entry *domain.ExecutionLog) (float64, error) {
	const op = "confidence.Record"

	signal, err := Signal(entry.Outcome, entry.Rating)
	if err != nil {
		return 0, err
	}

	mu := a.recipeLock(entry.RecipeID)
	mu.Lock()
	defer mu.Unlock()

	// Read the stored score only while holding the lock, so a
	// concurrent Record cannot fold against a stale prior.
	recipe, err := a.recipes.GetByID(ctx, tx, orgID, entry.RecipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, enginerr.New(enginerr.KindNotFound, op, errors.New("recipe not found")).WithEntity(entry.RecipeID)
		}
		return 0, enginerr.New(enginerr.KindInternal, op, err)
	}

	if entry.ID != uuid.Nil {
		seen, err := a.logs.Exists(ctx, tx, entry.ID)
		if err != nil {
			return 0, enginerr.New(enginerr.KindInternal, op, err)
		}
		if seen {
			a.log.Debug("duplicate execution log ignored", "log_id", entry.ID, "recipe_id", entry.RecipeID)
			return recipe.Confidence, nil
		}
	}

	n, err := a.logs.CountByRecipe(ctx, tx, entry.RecipeID)
	if err != nil {
		return 0, enginerr.New(enginerr.KindInternal, op, err)
	}

	if err := a.logs.Create(ctx, tx, entry); err != nil {
		return 0, enginerr.New(enginerr.KindInternal, op, err)
	}

	updated := clamp01((recipe.Confidence*float64(n) + signal) / float64(n+1))
	if err := a.recipes.UpdateConfidence(ctx, tx, entry.RecipeID, updated); err != nil {
		return 0, enginerr.New(enginerr.KindInternal, op, err)
	}
	a.log.Info("confidence updated",
		"recipe_id", entry.RecipeID, "outcome", entry.Outcome, "rating", entry.Rating,
		"signal", signal, "confidence", updated)
	return updated, nil
}

// ConfidenceOf returns the stored score and its supporting sample
// count; a recipe with no feedback yet reports its 0.5 prior over zero
// samples.
func (a *Aggregator) ConfidenceOf(ctx context.Context, tx *gorm.DB, orgID, recipeID uuid.UUID) (float64, int64, error) {
	const op = "confidence.ConfidenceOf"
	recipe, err := a.recipes.GetByID(ctx, tx, orgID, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, 0, enginerr.New(enginerr.KindNotFound, op, errors.New("recipe not found")).WithEntity(recipeID)
		}
		return 0, 0, enginerr.New(enginerr.KindInternal, op, err)
	}
	n, err := a.logs.CountByRecipe(ctx, tx, recipeID)
	if err != nil {
		return 0, 0, enginerr.New(enginerr.KindInternal, op, err)
	}
	return recipe.Confidence, n, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
