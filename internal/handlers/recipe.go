package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/craftwise/craftwise-backend/internal/requestdata"
	"github.com/craftwise/craftwise-backend/internal/services"
)

type RecipeHandler struct {
	recipeService services.RecipeService
}

func NewRecipeHandler(recipeService services.RecipeService) *RecipeHandler {
	return &RecipeHandler{recipeService: recipeService}
}

// Submit creates a root recipe, or a fork when parent_recipe_id is set.
func (rh *RecipeHandler) Submit(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	var req services.SubmitRecipeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	recipe, err := rh.recipeService.Submit(c.Request.Context(), rd.OrgID, req)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, recipe)
}

func (rh *RecipeHandler) Get(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	recipe, err := rh.recipeService.Get(c.Request.Context(), rd.OrgID, id)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	RespondOK(c, recipe)
}

func (rh *RecipeHandler) ListByProblem(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	problemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	recipes, err := rh.recipeService.ListByProblem(c.Request.Context(), rd.OrgID, problemID)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	RespondOK(c, recipes)
}

// History returns the recipe's version chain, root first.
func (rh *RecipeHandler) History(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	chain, err := rh.recipeService.History(c.Request.Context(), rd.OrgID, id)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	RespondOK(c, chain)
}

// Latest returns the highest-version recipe in the forest containing id.
func (rh *RecipeHandler) Latest(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	recipe, err := rh.recipeService.Latest(c.Request.Context(), rd.OrgID, id)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	RespondOK(c, recipe)
}

func (rh *RecipeHandler) Delete(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	if err := rh.recipeService.Delete(c.Request.Context(), rd.OrgID, id); err != nil {
		RespondEngineError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
