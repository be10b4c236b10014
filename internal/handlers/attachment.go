package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/craftwise/craftwise-backend/internal/domain"
	"github.com/craftwise/craftwise-backend/internal/requestdata"
	"github.com/craftwise/craftwise-backend/internal/services"
)

type AttachmentHandler struct {
	attachmentService services.AttachmentService
}

func NewAttachmentHandler(attachmentService services.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{attachmentService: attachmentService}
}

// Attach accepts a multipart upload. Owner kind and id come from the
// route so a single endpoint serves problems, recipes and execution logs.
func (ah *AttachmentHandler) Attach(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	ownerType := domain.AttachmentOwner(c.Param("ownerType"))
	ownerID, err := uuid.Parse(c.Param("ownerId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	defer file.Close()

	attachment, err := ah.attachmentService.Attach(
		c.Request.Context(), rd.OrgID, ownerType, ownerID,
		fileHeader.Filename, fileHeader.Header.Get("Content-Type"), file,
	)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	c.JSON(http.StatusCreated, attachment)
}

func (ah *AttachmentHandler) ListByOwner(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	ownerType := domain.AttachmentOwner(c.Param("ownerType"))
	ownerID, err := uuid.Parse(c.Param("ownerId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	views, err := ah.attachmentService.ListByOwner(c.Request.Context(), rd.OrgID, ownerType, ownerID)
	if err != nil {
		RespondEngineError(c, err)
		return
	}
	RespondOK(c, views)
}

func (ah *AttachmentHandler) Delete(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "validation", err)
		return
	}
	if err := ah.attachmentService.Delete(c.Request.Context(), rd.OrgID, id); err != nil {
		RespondEngineError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
