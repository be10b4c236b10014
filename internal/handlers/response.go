package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/craftwise/craftwise-backend/internal/engine/enginerr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondEngineError maps the engine error taxonomy onto HTTP statuses.
// Tenant isolation deliberately reads as not found: the caller learns
// nothing about data outside its organization.
func RespondEngineError(c *gin.Context, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		RespondError(c, http.StatusNotFound, "not_found", errors.New("not found"))
		return
	}
	kind := enginerr.KindOf(err)
	switch kind {
	case enginerr.KindValidation:
		RespondError(c, http.StatusBadRequest, string(kind), err)
	case enginerr.KindNotFound, enginerr.KindTenantIsolation:
		RespondError(c, http.StatusNotFound, "not_found", errors.New("not found"))
	case enginerr.KindLineage:
		RespondError(c, http.StatusConflict, string(kind), err)
	case enginerr.KindIndexUnavailable:
		RespondError(c, http.StatusServiceUnavailable, string(kind), err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal", errors.New("internal error"))
	}
}
