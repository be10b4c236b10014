package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/craftwise/craftwise-backend/internal/app"
	"github.com/craftwise/craftwise-backend/internal/clients/gcp"
	redisbus "github.com/craftwise/craftwise-backend/internal/clients/redis"
	"github.com/craftwise/craftwise-backend/internal/data/db"
	"github.com/craftwise/craftwise-backend/internal/engine/attrindex"
	"github.com/craftwise/craftwise-backend/internal/engine/confidence"
	"github.com/craftwise/craftwise-backend/internal/engine/lineage"
	"github.com/craftwise/craftwise-backend/internal/engine/retrieval"
	"github.com/craftwise/craftwise-backend/internal/engine/vectorindex"
	"github.com/craftwise/craftwise-backend/internal/handlers"
	"github.com/craftwise/craftwise-backend/internal/middleware"
	"github.com/craftwise/craftwise-backend/internal/observability"
	"github.com/craftwise/craftwise-backend/internal/platform/embedder"
	"github.com/craftwise/craftwise-backend/internal/platform/logger"
	"github.com/craftwise/craftwise-backend/internal/repos"
	"github.com/craftwise/craftwise-backend/internal/server"
	"github.com/craftwise/craftwise-backend/internal/services"
	"github.com/craftwise/craftwise-backend/internal/temporalx"
	"github.com/craftwise/craftwise-backend/internal/temporalx/temporalworker"
	"github.com/craftwise/craftwise-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Config
	log.Info("Loading configuration from main...")
	cfg, err := app.LoadConfig(log)
	if err != nil {
		log.Error("Could not load config", "error", err)
		os.Exit(1)
	}

	// Tracing
	ctx := context.Background()
	if shutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "craftwise-backend",
		Environment: utils.GetEnv("ENVIRONMENT", "development", log),
		Version:     utils.GetEnv("SERVICE_VERSION", "dev", log),
	}); shutdown != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(shutdownCtx)
		}()
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	orgRepo := repos.NewOrganizationRepo(thePG, log)
	userRepo := repos.NewUserRepo(thePG, log)
	workspaceRepo := repos.NewWorkspaceRepo(thePG, log)
	materialRepo := repos.NewMaterialRepo(thePG, log)
	toolRepo := repos.NewToolRepo(thePG, log)
	problemRepo := repos.NewProblemRepo(thePG, log)
	recipeRepo := repos.NewRecipeRepo(thePG, log)
	executionLogRepo := repos.NewExecutionLogRepo(thePG, log)
	attachmentRepo := repos.NewAttachmentRepo(thePG, log)

	// Embedder
	embedClient, err := embedder.NewFromEnv(log)
	if err != nil {
		log.Error("Could not init embedder client", "error", err)
		os.Exit(1)
	}

	// Engine
	log.Info("Setting up retrieval engine from main...")
	indexCfg := vectorindex.Config{
		Dim:          embedClient.Dim(),
		MaxCentroids: cfg.Index.MaxCentroids,
		Probes:       cfg.Index.Probes,
	}
	problemIndex := vectorindex.New(log, indexCfg)
	recipeIndex := vectorindex.New(log, indexCfg)
	attrIndex := attrindex.New(log)
	forest := lineage.NewStore(recipeRepo, log)
	aggregator := confidence.NewAggregator(recipeRepo, executionLogRepo, log)
	orchestrator := retrieval.NewOrchestrator(
		recipeRepo,
		problemIndex,
		recipeIndex,
		attrIndex,
		forest,
		cfg.RetrievalConfig(),
		log,
	)

	// Clients
	eventBus, err := redisbus.NewEventBus(log)
	if err != nil {
		log.Warn("Could not init redis event bus; events disabled", "error", err)
	}
	if eventBus != nil {
		defer eventBus.Close()
	}
	bucketService, err := gcp.NewBucketService(log)
	if err != nil {
		log.Warn("Could not init BucketService", "error", err)
	}

	// Services
	log.Info("Setting up Services from main...")
	authService := services.NewAuthService(thePG, log, userRepo, orgRepo, cfg.Auth.JWTSecretKey, cfg.AccessTTL(), cfg.RefreshTTL())
	orgService := services.NewOrganizationService(thePG, log, orgRepo)
	workspaceService := services.NewWorkspaceService(thePG, log, workspaceRepo)
	materialService := services.NewMaterialService(thePG, log, materialRepo)
	toolService := services.NewToolService(thePG, log, toolRepo)
	problemService := services.NewProblemService(thePG, log, problemRepo, orchestrator, embedClient, eventBus)
	recipeService := services.NewRecipeService(thePG, log, problemRepo, recipeRepo, orchestrator, embedClient, eventBus)
	executionService := services.NewExecutionService(thePG, log, recipeRepo, executionLogRepo, aggregator, eventBus)
	attachmentService := services.NewAttachmentService(thePG, log, attachmentRepo, problemRepo, recipeRepo, executionLogRepo, bucketService)
	bootstrapService := services.NewBootstrapService(thePG, log, problemRepo, recipeRepo, orchestrator)

	// Rehydrate in-memory indexes from Postgres before serving.
	if err := bootstrapService.RebuildIndexes(ctx); err != nil {
		log.Warn("Index rebuild failed; serving with partial indexes", "error", err)
	}

	// Peer instances publish index events; replaying them keeps this
	// instance's in-memory indexes warm without a full rebuild.
	if eventBus != nil {
		err := eventBus.StartForwarder(ctx, func(ev redisbus.Event) {
			switch ev.Type {
			case redisbus.EventProblemIndexed:
				p, err := problemRepo.GetByID(ctx, nil, ev.OrgID, ev.EntityID)
				if err != nil {
					return
				}
				if err := orchestrator.IndexProblem(p); err != nil {
					log.Warn("peer problem index replay failed", "problem_id", ev.EntityID, "error", err)
				}
			case redisbus.EventRecipeIndexed:
				r, err := recipeRepo.GetByID(ctx, nil, ev.OrgID, ev.EntityID)
				if err != nil {
					return
				}
				if err := orchestrator.IndexRecipe(r); err != nil {
					log.Warn("peer recipe index replay failed", "recipe_id", ev.EntityID, "error", err)
				}
			}
		})
		if err != nil {
			log.Warn("event forwarder not started", "error", err)
		}
	}

	// Index maintenance: Temporal when configured, in-process otherwise.
	tc, err := temporalx.NewClient(log)
	if err != nil {
		log.Warn("Temporal init failed", "error", err)
	}
	if tc != nil {
		defer tc.Close()
		runner, err := temporalworker.NewRunner(log, tc, problemIndex, recipeIndex)
		if err != nil {
			log.Error("Could not init Temporal worker", "error", err)
			os.Exit(1)
		}
		if err := runner.Start(ctx); err != nil {
			log.Warn("Temporal worker failed to start; falling back to in-process maintenance", "error", err)
			tc = nil
		}
	}
	if tc == nil {
		interval := time.Duration(utils.GetEnvAsInt("INDEX_MAINTENANCE_INTERVAL_SECONDS", 600, log)) * time.Second
		go problemIndex.RunMaintenance(ctx, interval)
		go recipeIndex.RunMaintenance(ctx, interval)
	}

	// Handlers
	log.Info("Setting up handlers from main...")
	authHandler := handlers.NewAuthHandler(authService)
	orgHandler := handlers.NewOrganizationHandler(orgService)
	workspaceHandler := handlers.NewWorkspaceHandler(workspaceService)
	materialHandler := handlers.NewMaterialHandler(materialService)
	toolHandler := handlers.NewToolHandler(toolService)
	problemHandler := handlers.NewProblemHandler(problemService)
	recipeHandler := handlers.NewRecipeHandler(recipeService)
	executionHandler := handlers.NewExecutionHandler(executionService)
	attachmentHandler := handlers.NewAttachmentHandler(attachmentService)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		ServiceName:       "craftwise-backend",
		AuthHandler:       authHandler,
		AuthMiddleware:    authMiddleware,
		OrgHandler:        orgHandler,
		WorkspaceHandler:  workspaceHandler,
		MaterialHandler:   materialHandler,
		ToolHandler:       toolHandler,
		ProblemHandler:    problemHandler,
		RecipeHandler:     recipeHandler,
		ExecutionHandler:  executionHandler,
		AttachmentHandler: attachmentHandler,
	})

	fmt.Printf("Server listening on :%s\n", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
