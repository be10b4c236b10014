package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/craftwise/craftwise-backend/internal/handlers"
	"github.com/craftwise/craftwise-backend/internal/middleware"
)

type RouterConfig struct {
	ServiceName       string
	AuthHandler       *handlers.AuthHandler
	AuthMiddleware    *middleware.AuthMiddleware
	OrgHandler        *handlers.OrganizationHandler
	WorkspaceHandler  *handlers.WorkspaceHandler
	MaterialHandler   *handlers.MaterialHandler
	ToolHandler       *handlers.ToolHandler
	ProblemHandler    *handlers.ProblemHandler
	RecipeHandler     *handlers.RecipeHandler
	ExecutionHandler  *handlers.ExecutionHandler
	AttachmentHandler *handlers.AttachmentHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware(cfg.ServiceName))

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	api := router.Group("/api")
	{
		api.POST("/register", cfg.AuthHandler.Register)
		api.POST("/login", cfg.AuthHandler.Login)
		api.POST("/refresh", cfg.AuthHandler.Refresh)
	}

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/api")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Organization
	protected.GET("/organization", cfg.OrgHandler.Get)
	// Workspaces
	protected.POST("/workspaces", cfg.WorkspaceHandler.Create)
	protected.GET("/workspaces", cfg.WorkspaceHandler.List)
	protected.GET("/workspaces/:id", cfg.WorkspaceHandler.Get)
	protected.DELETE("/workspaces/:id", cfg.WorkspaceHandler.Delete)
	// Materials
	protected.POST("/materials", cfg.MaterialHandler.Create)
	protected.GET("/materials", cfg.MaterialHandler.List)
	protected.GET("/materials/:id", cfg.MaterialHandler.Get)
	protected.PATCH("/materials/:id/stock", cfg.MaterialHandler.UpdateStock)
	protected.DELETE("/materials/:id", cfg.MaterialHandler.Delete)
	// Tools
	protected.POST("/tools", cfg.ToolHandler.Create)
	protected.GET("/tools", cfg.ToolHandler.List)
	protected.GET("/tools/:id", cfg.ToolHandler.Get)
	protected.DELETE("/tools/:id", cfg.ToolHandler.Delete)
	// Problems
	protected.POST("/problems", cfg.ProblemHandler.Create)
	protected.GET("/problems", cfg.ProblemHandler.List)
	protected.GET("/problems/:id", cfg.ProblemHandler.Get)
	protected.PATCH("/problems/:id/status", cfg.ProblemHandler.UpdateStatus)
	protected.DELETE("/problems/:id", cfg.ProblemHandler.Delete)
	protected.POST("/problems/:id/candidates", cfg.ProblemHandler.Candidates)
	protected.GET("/problems/:id/recipes", cfg.RecipeHandler.ListByProblem)
	// Recipes
	protected.POST("/recipes", cfg.RecipeHandler.Submit)
	protected.GET("/recipes/:id", cfg.RecipeHandler.Get)
	protected.GET("/recipes/:id/history", cfg.RecipeHandler.History)
	protected.GET("/recipes/:id/latest", cfg.RecipeHandler.Latest)
	protected.DELETE("/recipes/:id", cfg.RecipeHandler.Delete)
	// Executions
	protected.POST("/executions", cfg.ExecutionHandler.Record)
	protected.GET("/recipes/:id/executions", cfg.ExecutionHandler.ListByRecipe)
	protected.GET("/recipes/:id/confidence", cfg.ExecutionHandler.Confidence)
	// Attachments
	protected.POST("/attachments/:ownerType/:ownerId", cfg.AttachmentHandler.Attach)
	protected.GET("/attachments/:ownerType/:ownerId", cfg.AttachmentHandler.ListByOwner)
	protected.DELETE("/attachments/:id", cfg.AttachmentHandler.Delete)

	return router
}
