package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/craftwise/craftwise-backend/internal/requestdata"
	"github.com/craftwise/craftwise-backend/internal/services"
)

type OrganizationHandler struct {
	orgService services.OrganizationService
}

func NewOrganizationHandler(orgService services.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{orgService: orgService}
}

// Get returns the caller's own organization. There is no cross-org read.
func (oh *OrganizationHandler) Get(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	org, err := oh.orgService.Get(c.Request.Context(), rd.OrgID)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	RespondOK(c, org)
}
