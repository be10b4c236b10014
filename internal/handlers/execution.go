package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/craftwise/craftwise-backend/internal/requestdata"
	"github.com/craftwise/craftwise-backend/internal/services"
)

type ExecutionHandler struct {
	executionService services.ExecutionService
}

func NewExecutionHandler(executionService services.ExecutionService) *ExecutionHandler {
	return &ExecutionHandler{executionService: executionService}
}

func (eh *ExecutionHandler) Record(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	var req services.RecordExecutionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	out, err := eh.executionService.Record(c.Request.Context(), rd.OrgID, rd.UserID, req)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (eh *ExecutionHandler) ListByRecipe(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	recipeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	logs, err := eh.executionService.ListByRecipe(c.Request.Context(), rd.OrgID, recipeID)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	RespondOK(c, logs)
}

func (eh *ExecutionHandler) Confidence(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	recipeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	out, err := eh.executionService.ConfidenceOf(c.Request.Context(), rd.OrgID, recipeID)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	RespondOK(c, out)
}
