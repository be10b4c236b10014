package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	redisbus "github.com/craftwise/craftwise-backend/internal/clients/redis"
	"github.com/craftwise/craftwise-backend/internal/domain"
	"github.com/craftwise/craftwise-backend/internal/engine/confidence"
	"github.com/craftwise/craftwise-backend/internal/platform/logger"
	"github.com/craftwise/craftwise-backend/internal/repos"
)

type RecordExecutionInput struct {
	// LogID lets clients retry safely: replays of the same id are
	// deduplicated and never double-count.
	LogID    *uuid.UUID `json:"log_id,omitempty"`
	RecipeID uuid.UUID  `json:"recipe_id"`
	Outcome  string     `json:"outcome"`
	Notes    string     `json:"notes,omitempty"`
	Rating   int        `json:"rating"`
}

type RecordExecutionOutput struct {
	Log        *domain.ExecutionLog `json:"log"`
	Confidence float64              `json:"confidence"`
}

type ConfidenceOutput struct {
	RecipeID   uuid.UUID `json:"recipe_id"`
	Confidence float64   `json:"confidence"`
	Samples    int64     `json:"samples"`
}

type ExecutionService interface {
	Record(ctx context.Context, orgID, userID uuid.UUID, input RecordExecutionInput) (*RecordExecutionOutput, error)
	ListByRecipe(ctx context.Context, orgID, recipeID uuid.UUID) ([]*domain.ExecutionLog, error)
	ConfidenceOf(ctx context.Context, orgID, recipeID uuid.UUID) (*ConfidenceOutput, error)
}

type executionService struct {
	db         *gorm.DB
	log        *logger.Logger
	recipeRepo repos.RecipeRepo
	logRepo    repos.ExecutionLogRepo
	agg        *confidence.Aggregator
	bus        redisbus.EventBus
}

func NewExecutionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	recipeRepo repos.RecipeRepo,
	logRepo repos.ExecutionLogRepo,
	agg *confidence.Aggregator,
	bus redisbus.EventBus,
) ExecutionService {
	return &executionService{
		db:         db,
		log:        baseLog.With("service", "ExecutionService"),
		recipeRepo: recipeRepo,
		logRepo:    logRepo,
		agg:        agg,
		bus:        bus,
	}
}

func (es *executionService) Record(ctx context.Context, orgID, userID uuid.UUID, input RecordExecutionInput) (*RecordExecutionOutput, error) {
	entry := &domain.ExecutionLog{
		RecipeID: input.RecipeID,
		UserID:   &userID,
		Outcome:  input.Outcome,
		Notes:    input.Notes,
		Rating:   input.Rating,
	}
	if input.LogID != nil {
		entry.ID = *input.LogID
	}

	updated, err := es.agg.Record(ctx, nil, orgID, entry)
	if err != nil {
		return nil, err
	}
	if es.bus != nil {
		if pubErr := es.bus.Publish(ctx, redisbus.Event{
			Type: redisbus.EventExecutionRecorded, OrgID: orgID, EntityID: entry.RecipeID,
		}); pubErr != nil {
			es.log.Warn("failed to publish event", "type", redisbus.EventExecutionRecorded, "error", pubErr)
		}
	}
	return &RecordExecutionOutput{Log: entry, Confidence: updated}, nil
}

func (es *executionService) ListByRecipe(ctx context.Context, orgID, recipeID uuid.UUID) ([]*domain.ExecutionLog, error) {
	// Scope check before the unscoped log listing.
	if _, err := es.recipeRepo.GetByID(ctx, nil, orgID, recipeID); err != nil {
		return nil, err
	}
	return es.logRepo.ListByRecipe(ctx, nil, recipeID)
}

func (es *executionService) ConfidenceOf(ctx context.Context, orgID, recipeID uuid.UUID) (*ConfidenceOutput, error) {
	score, samples, err := es.agg.ConfidenceOf(ctx, nil, orgID, recipeID)
	if err != nil {
		return nil, err
	}
	return &ConfidenceOutput{RecipeID: recipeID, Confidence: score, Samples: samples}, nil
}
