package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/craftwise/craftwise-backend/internal/requestdata"
	"github.com/craftwise/craftwise-backend/internal/services"
)

type WorkspaceHandler struct {
	workspaceService services.WorkspaceService
}

func NewWorkspaceHandler(workspaceService services.WorkspaceService) *WorkspaceHandler {
	return &WorkspaceHandler{workspaceService: workspaceService}
}

func (wh *WorkspaceHandler) Create(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	var req struct {
		Location string `json:"location"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	ws, err := wh.workspaceService.Create(c.Request.Context(), rd.OrgID, rd.UserID, req.Location)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ws)
}

func (wh *WorkspaceHandler) Get(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	ws, err := wh.workspaceService.Get(c.Request.Context(), rd.OrgID, id)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	RespondOK(c, ws)
}

func (wh *WorkspaceHandler) List(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	workspaces, err := wh.workspaceService.List(c.Request.Context(), rd.OrgID)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	RespondOK(c, workspaces)
}

func (wh *WorkspaceHandler) Delete(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	if err := wh.workspaceService.Delete(c.Request.Context(), rd.OrgID, id); err != nil {
		RespondEngineError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
