package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/craftwise/craftwise-backend/internal/requestdata"
	"github.com/craftwise/craftwise-backend/internal/services"
)

// MaterialHandler and ToolHandler cover the workshop inventory that
// recipes draw their required materials and tools from.
type MaterialHandler struct {
	materialService services.MaterialService
}

func NewMaterialHandler(materialService services.MaterialService) *MaterialHandler {
	return &MaterialHandler{materialService: materialService}
}

func (mh *MaterialHandler) Create(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	var req []services.CreateMaterialInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	materials, err := mh.materialService.Create(c.Request.Context(), rd.OrgID, rd.UserID, req)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, materials)
}

func (mh *MaterialHandler) Get(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	material, err := mh.materialService.Get(c.Request.Context(), rd.OrgID, id)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	RespondOK(c, material)
}

func (mh *MaterialHandler) List(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	materials, err := mh.materialService.List(c.Request.Context(), rd.OrgID)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	RespondOK(c, materials)
}

func (mh *MaterialHandler) UpdateStock(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	var req struct {
		Stock int `json:"stock"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	if err := mh.materialService.UpdateStock(c.Request.Context(), rd.OrgID, id, req.Stock); err != nil {
		RespondEngineError(c, err)
		return
	}
	RespondOK(c, gin.H{"id": id, "stock": req.Stock})
}

func (mh *MaterialHandler) Delete(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	if err := mh.materialService.Delete(c.Request.Context(), rd.OrgID, id); err != nil {
		RespondEngineError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type ToolHandler struct {
	toolService services.ToolService
}

func NewToolHandler(toolService services.ToolService) *ToolHandler {
	return &ToolHandler{toolService: toolService}
}

func (th *ToolHandler) Create(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	var req []services.CreateToolInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	tools, err := th.toolService.Create(c.Request.Context(), rd.OrgID, rd.UserID, req)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tools)
}

func (th *ToolHandler) Get(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	tool, err := th.toolService.Get(c.Request.Context(), rd.OrgID, id)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	RespondOK(c, tool)
}

func (th *ToolHandler) List(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	tools, err := th.toolService.List(c.Request.Context(), rd.OrgID)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	RespondOK(c, tools)
}

func (th *ToolHandler) Delete(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	if err := th.toolService.Delete(c.Request.Context(), rd.OrgID, id); err != nil {
		RespondEngineError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
