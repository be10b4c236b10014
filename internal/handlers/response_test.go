package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/craftwise/craftwise-backend/internal/engine/enginerr"
)

func respondWith(t *testing.T, err error) (*httptest.ResponseRecorder, ErrorEnvelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	RespondEngineError(c, err)

	var env ErrorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return w, env
}

func TestRespondEngineErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", enginerr.Newf(enginerr.KindValidation, "op", "bad rating"), http.StatusBadRequest},
		{"not_found", enginerr.Newf(enginerr.KindNotFound, "op", "no such recipe"), http.StatusNotFound},
		{"tenant_isolation", enginerr.Newf(enginerr.KindTenantIsolation, "op", "wrong org"), http.StatusNotFound},
		{"lineage", enginerr.Newf(enginerr.KindLineage, "op", "cycle"), http.StatusConflict},
		{"index_unavailable", enginerr.Newf(enginerr.KindIndexUnavailable, "op", "maintenance"), http.StatusServiceUnavailable},
		{"internal", errors.New("boom"), http.StatusInternalServerError},
		{"gorm_not_found", gorm.ErrRecordNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, _ := respondWith(t, tc.err)
			if w.Code != tc.wantStatus {
				t.Fatalf("status: want=%d got=%d", tc.wantStatus, w.Code)
			}
		})
	}
}

func TestRespondEngineErrorHidesTenantDetail(t *testing.T) {
	err := enginerr.Newf(enginerr.KindTenantIsolation, "lineage.Fork", "parent belongs to another org")
	_, env := respondWith(t, err)
	if env.Error.Code != "not_found" {
		t.Fatalf("code: want=%q got=%q", "not_found", env.Error.Code)
	}
	if strings.Contains(env.Error.Message, "org") {
		t.Fatalf("message leaks tenancy detail: %q", env.Error.Message)
	}
}

func TestRespondEngineErrorHidesInternalDetail(t *testing.T) {
	_, env := respondWith(t, errors.New("pq: connection refused"))
	if strings.Contains(env.Error.Message, "pq:") {
		t.Fatalf("message leaks internal detail: %q", env.Error.Message)
	}
}
