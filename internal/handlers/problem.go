package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/craftwise/craftwise-backend/internal/requestdata"
	"github.com/craftwise/craftwise-backend/internal/services"
)

type ProblemHandler struct {
	problemService services.ProblemService
}

func NewProblemHandler(problemService services.ProblemService) *ProblemHandler {
	return &ProblemHandler{problemService: problemService}
}

func (ph *ProblemHandler) Create(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	var req services.CreateProblemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	problem, err := ph.problemService.Create(c.Request.Context(), rd.OrgID, req)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, problem)
}

func (ph *ProblemHandler) Get(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	problem, err := ph.problemService.Get(c.Request.Context(), rd.OrgID, id)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	RespondOK(c, problem)
}

func (ph *ProblemHandler) List(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	problems, err := ph.problemService.List(c.Request.Context(), rd.OrgID, c.QueryArray("status"))
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	RespondOK(c, problems)
}

func (ph *ProblemHandler) UpdateStatus(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	if err := ph.problemService.UpdateStatus(c.Request.Context(), rd.OrgID, id, req.Status); err != nil {
		RespondEngineError(c, err)
		return
	}
	RespondOK(c, gin.H{"id": id, "status": req.Status})
}

func (ph *ProblemHandler) Delete(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	if err := ph.problemService.Delete(c.Request.Context(), rd.OrgID, id); err != nil {
		RespondEngineError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Candidates returns the ranked recipes for a problem.
func (ph *ProblemHandler) Candidates(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	result, err := ph.problemService.Candidates(c.Request.Context(), rd.OrgID, id)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	RespondOK(c, result)
}
